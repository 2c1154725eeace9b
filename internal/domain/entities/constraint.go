package entities

// DistanceMode indicates how a travel-time constraint is converted to
// distance.
type DistanceMode string

const (
	DistanceModeDrive DistanceMode = "drive"
	DistanceModeWalk  DistanceMode = "walk"
)

// Constraint holds the structured limits parsed from a free-text
// follow-up. Nil fields mean no constraint on that dimension; an
// utterance that matches nothing yields the zero value.
type Constraint struct {
	MaxDistanceMeters *float64      `json:"max_distance_meters,omitempty"`
	DistanceMode      *DistanceMode `json:"distance_mode,omitempty"`
	MaxPriceUSD       *float64      `json:"max_price_usd,omitempty"`
	MaxPriceLevel     *int          `json:"max_price_level,omitempty"`
}

// IsEmpty reports whether no dimension is constrained.
func (c Constraint) IsEmpty() bool {
	return c.MaxDistanceMeters == nil && c.MaxPriceUSD == nil && c.MaxPriceLevel == nil
}
