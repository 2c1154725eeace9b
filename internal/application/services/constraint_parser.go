package services

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/aroundme/aroundme/internal/domain/entities"
	"github.com/aroundme/aroundme/pkg/config"
)

var (
	distancePattern  = regexp.MustCompile(`(?i)within\s+(\d+)\s+min(?:ute)?s?(?:\s+(drive|walk))?`)
	priceUSDPattern  = regexp.MustCompile(`(?i)(?:under|less\s+than)\s+\$(\d+(?:\.\d+)?)`)
	priceTierPattern = regexp.MustCompile(`(?i)(?:under|less\s+than)\s+(\${1,4})(?:[^\d]|$)`)
)

// ConstraintParser turns free-text follow-ups into structured distance
// and price limits. Text that matches nothing yields an empty constraint,
// never an error.
type ConstraintParser struct {
	driveMetersPerMin float64
	walkMetersPerMin  float64
}

// NewConstraintParser creates a parser using the configured travel speeds.
func NewConstraintParser(cfg config.ScoringConfig) *ConstraintParser {
	return &ConstraintParser{
		driveMetersPerMin: cfg.DriveMetersPerMin,
		walkMetersPerMin:  cfg.WalkMetersPerMin,
	}
}

// Parse extracts constraints from an utterance. Categories are
// independent; the first match per category wins.
func (p *ConstraintParser) Parse(text string) entities.Constraint {
	var c entities.Constraint

	if m := distancePattern.FindStringSubmatch(text); m != nil {
		minutes, err := strconv.ParseFloat(m[1], 64)
		if err == nil {
			mode := entities.DistanceModeDrive
			metersPerMin := p.driveMetersPerMin
			if strings.EqualFold(m[2], "walk") {
				mode = entities.DistanceModeWalk
				metersPerMin = p.walkMetersPerMin
			}
			meters := minutes * metersPerMin
			c.MaxDistanceMeters = &meters
			c.DistanceMode = &mode
		}
	}

	if m := priceUSDPattern.FindStringSubmatch(text); m != nil {
		usd, err := strconv.ParseFloat(m[1], 64)
		if err == nil {
			c.MaxPriceUSD = &usd
		}
	} else if m := priceTierPattern.FindStringSubmatch(text); m != nil {
		tier := len(m[1])
		c.MaxPriceLevel = &tier
	}

	return c
}
