package query

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// boundsInput mirrors the handful of Params fields worth shape-checking
// before they reach the plan builder: everything else is either a
// free-form string or already range-safe by construction. Grounded on
// the teacher's request-DTO validation boundary (go-playground/
// validator struct tags at the edge of the HTTP layer, not threaded
// into the domain types themselves).
type boundsInput struct {
	LatVal     float64 `validate:"omitempty,latitude"`
	LongVal    float64 `validate:"omitempty,longitude"`
	PageSize   int     `validate:"gte=0"`
	PageNum    int     `validate:"gte=0"`
	GeoWidthKM float64 `validate:"omitempty"`
}

var paramsValidator = validator.New()

// Validate rejects a Params whose numeric fields are out of range (spec
// §6.1: malformed requests get a 400 with an empty body). Filter
// semantics themselves — required-filter rule, empty results, etc. —
// are enforced later by Build/Search, not here.
func (p Params) Validate() error {
	input := boundsInput{
		PageSize:   p.PageSize,
		PageNum:    p.PageNum,
		GeoWidthKM: 0,
	}
	if p.LatVal != nil {
		input.LatVal = *p.LatVal
	}
	if p.LongVal != nil {
		input.LongVal = *p.LongVal
	}
	if err := paramsValidator.Struct(input); err != nil {
		return fmt.Errorf("invalid request parameters: %w", err)
	}
	return nil
}
