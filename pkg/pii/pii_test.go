package pii

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScrubText_Email(t *testing.T) {
	out := ScrubText("reach me at john.doe@example.com please")
	assert.NotContains(t, out, "john.doe@example.com")
	assert.Contains(t, out, "[email:jo…om]")
}

func TestScrubText_Phone(t *testing.T) {
	out := ScrubText("call +1 (555) 123-4567 anytime")
	assert.NotContains(t, out, "123-4567")
	assert.Contains(t, out, "[phone:")
}

func TestScrubText_Card(t *testing.T) {
	out := ScrubText("card 4242 4242 4242 4242 on file")
	assert.NotContains(t, out, "4242 4242 4242 4242")
	assert.Contains(t, out, "[card:")
}

func TestScrubText_Clean(t *testing.T) {
	in := "best tacos within 10 minutes drive"
	assert.Equal(t, in, ScrubText(in))
	assert.Equal(t, "", ScrubText(""))
}
