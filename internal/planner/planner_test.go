package planner_test

import (
	"testing"

	"vodmill/internal/planner"
)

func TestPlanShortFormUsesFullLadder(t *testing.T) {
	ladder := planner.Plan(900)
	if len(ladder) != 5 {
		t.Fatalf("expected 5 renditions, got %d", len(ladder))
	}

	expected := []planner.Rendition{
		{Height: 240, BitrateKbps: 400},
		{Height: 360, BitrateKbps: 800},
		{Height: 480, BitrateKbps: 1400},
		{Height: 720, BitrateKbps: 2800},
		{Height: 1080, BitrateKbps: 5000},
	}
	for i, want := range expected {
		if ladder[i] != want {
			t.Errorf("rendition %d: got %+v, want %+v", i, ladder[i], want)
		}
	}
}

func TestPlanLongFormUsesReducedLadder(t *testing.T) {
	ladder := planner.Plan(1500)
	if len(ladder) != 2 {
		t.Fatalf("expected 2 renditions, got %d", len(ladder))
	}
	if ladder[0].Height != 360 || ladder[1].Height != 720 {
		t.Fatalf("unexpected reduced ladder: %+v", ladder)
	}
}

func TestPlanBoundaryIsInclusive(t *testing.T) {
	if got := len(planner.Plan(planner.LongFormThresholdSeconds)); got != 5 {
		t.Fatalf("duration at threshold should use the full ladder, got %d renditions", got)
	}
	if got := len(planner.Plan(planner.LongFormThresholdSeconds + 0.1)); got != 2 {
		t.Fatalf("duration past threshold should use the reduced ladder, got %d renditions", got)
	}
}

func TestPlanReturnsIndependentCopies(t *testing.T) {
	first := planner.Plan(100)
	first[0].BitrateKbps = 1

	second := planner.Plan(100)
	if second[0].BitrateKbps != 400 {
		t.Fatalf("mutating a returned ladder leaked into a later plan: %+v", second[0])
	}
}
