// Package navigation picks the instruction to show a rider for their current
// position along a planned route.
package navigation

import (
	"math"
	"time"

	"backend-bikerental/internal/route"
	"backend-bikerental/internal/shared/geo"
)

const (
	// LookAheadMeters is how close to the end of a step the rider must be
	// before the following step's instruction is announced.
	LookAheadMeters = 50

	DefaultInstruction = "Follow the route"

	// fallbackSpeed in m/s, used when the route carries no duration.
	fallbackSpeed = 5.0
)

type Instruction struct {
	Text   string `json:"instruction"`
	Meters int    `json:"meters"`
	// Step is the index of the step Text belongs to, -1 for the default.
	Step int `json:"step"`
}

// Next returns the instruction for stepIndex, or the following step's
// instruction once the rider is within LookAheadMeters of the step's end.
// Advancing stepIndex is left to the caller.
func Next(current *geo.Point, r route.Info, stepIndex int) Instruction {
	if current == nil || stepIndex < 0 || stepIndex >= len(r.Steps) {
		return Instruction{Text: DefaultInstruction, Step: -1}
	}

	step := r.Steps[stepIndex]
	toEnd := geo.Distance(*current, step.End)
	if toEnd < LookAheadMeters && stepIndex < len(r.Steps)-1 {
		next := r.Steps[stepIndex+1]
		return Instruction{Text: next.Instruction, Meters: next.DistanceMeters, Step: stepIndex + 1}
	}
	return Instruction{Text: step.Instruction, Meters: int(toEnd), Step: stepIndex}
}

// RemainingMeters is the distance left from current through the end of the
// route. Without a position the current step is counted in full.
func RemainingMeters(current *geo.Point, r route.Info, stepIndex int) float64 {
	if stepIndex < 0 {
		stepIndex = 0
	}
	if stepIndex >= len(r.Steps) {
		return 0
	}

	remaining := float64(r.Steps[stepIndex].DistanceMeters)
	if current != nil {
		remaining = geo.Distance(*current, r.Steps[stepIndex].End)
	}
	for _, s := range r.Steps[stepIndex+1:] {
		remaining += float64(s.DistanceMeters)
	}
	return remaining
}

// ETA estimates time to arrival at the route's average speed. A nil position
// yields the route's full duration.
func ETA(current *geo.Point, r route.Info, stepIndex int) time.Duration {
	if current == nil {
		return time.Duration(r.DurationSeconds) * time.Second
	}

	speed := fallbackSpeed
	if r.DistanceMeters > 0 && r.DurationSeconds > 0 {
		speed = float64(r.DistanceMeters) / float64(r.DurationSeconds)
	}
	seconds := RemainingMeters(current, r, stepIndex) / speed
	return time.Duration(math.Round(seconds)) * time.Second
}
