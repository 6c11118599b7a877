// Package blood defines the blood group domain primitive. Validity is
// enforced at parse time so the rest of the engine never handles an
// unknown group string.
package blood

import (
	"bloodlink/pkg/apperrors"
)

// Group is one of the eight ABO/Rh blood groups.
type Group string

const (
	APositive  Group = "A+"
	ANegative  Group = "A-"
	BPositive  Group = "B+"
	BNegative  Group = "B-"
	ABPositive Group = "AB+"
	ABNegative Group = "AB-"
	OPositive  Group = "O+"
	ONegative  Group = "O-"
)

var groups = map[Group]struct{}{
	APositive: {}, ANegative: {},
	BPositive: {}, BNegative: {},
	ABPositive: {}, ABNegative: {},
	OPositive: {}, ONegative: {},
}

// Parse validates and returns a Group. Rejections carry the validation
// code so handlers surface them as bad input rather than engine faults.
func Parse(s string) (Group, error) {
	g := Group(s)
	if _, ok := groups[g]; !ok {
		return "", apperrors.Newf(apperrors.CodeValidation, "unknown blood group: %q", s)
	}
	return g, nil
}

// All returns the eight groups in a stable order, for broadcast filters
// and seed data.
func All() []Group {
	return []Group{
		APositive, ANegative,
		BPositive, BNegative,
		ABPositive, ABNegative,
		OPositive, ONegative,
	}
}

func (g Group) String() string { return string(g) }
