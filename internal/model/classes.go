// Package model loads pre-trained fault classifiers and serves them from an
// immutable in-memory registry keyed by sensor configuration and effective
// sampling rate. Classifiers are loaded once at startup and never mutated,
// so concurrent lookups and classifications need no synchronisation.
package model

import "fmt"

// FaultClass is one of the seven machine conditions the classifiers were
// trained on. The set and its index order are fixed at training time; the
// runtime never infers labels from an artifact's contents beyond checking
// that they match this enumeration exactly.
type FaultClass string

const (
	ClassNormal                  FaultClass = "normal"
	ClassHorizontalMisalignment  FaultClass = "horizontal-misalignment"
	ClassVerticalMisalignment    FaultClass = "vertical-misalignment"
	ClassImbalance               FaultClass = "imbalance"
	ClassBallFault               FaultClass = "ball_fault"
	ClassCageFault               FaultClass = "cage_fault"
	ClassOuterRace               FaultClass = "outer_race"
)

// Classes lists all fault classes in training index order (class 0 first).
var Classes = []FaultClass{
	ClassNormal,
	ClassHorizontalMisalignment,
	ClassVerticalMisalignment,
	ClassImbalance,
	ClassBallFault,
	ClassCageFault,
	ClassOuterRace,
}

// NumClasses is the size of the fixed class enumeration.
const NumClasses = 7

// validateClasses checks that an artifact's class list matches the fixed
// enumeration exactly, index for index. A reordered or truncated list means
// the artifact was produced by an incompatible training run.
func validateClasses(classes []string) error {
	if len(classes) != NumClasses {
		return fmt.Errorf("artifact has %d classes, want %d", len(classes), NumClasses)
	}
	for i, c := range classes {
		if c != string(Classes[i]) {
			return fmt.Errorf("artifact class[%d] = %q, want %q", i, c, Classes[i])
		}
	}
	return nil
}
