// Package planner chooses the rendition ladder for a probed source duration.
package planner

// Rendition is one fixed-resolution/bitrate variant of the source video.
type Rendition struct {
	Height      int
	BitrateKbps int
}

// LongFormThresholdSeconds is the duration above which the reduced ladder is
// used. Long-form content would otherwise occupy encoder slots for hours, so it
// trades quality tiers for throughput.
const LongFormThresholdSeconds = 1200

var fullLadder = []Rendition{
	{Height: 240, BitrateKbps: 400},
	{Height: 360, BitrateKbps: 800},
	{Height: 480, BitrateKbps: 1400},
	{Height: 720, BitrateKbps: 2800},
	{Height: 1080, BitrateKbps: 5000},
}

var reducedLadder = []Rendition{
	{Height: 360, BitrateKbps: 800},
	{Height: 720, BitrateKbps: 2800},
}

// Plan returns the rendition ladder for a source of the given duration. The
// boundary is inclusive: a source of exactly the threshold still gets the full
// ladder.
func Plan(durationSeconds float64) []Rendition {
	if durationSeconds <= LongFormThresholdSeconds {
		return ladderCopy(fullLadder)
	}
	return ladderCopy(reducedLadder)
}

func ladderCopy(ladder []Rendition) []Rendition {
	cp := make([]Rendition, len(ladder))
	copy(cp, ladder)
	return cp
}
