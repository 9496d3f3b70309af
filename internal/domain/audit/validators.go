package audit

import (
	"context"
	"sort"
	"time"

	"github.com/glosa/glosa/internal/domain/claim"
	"github.com/glosa/glosa/internal/platform/terminology"
)

// DetectDuplicates flags repeated procedure codes within one encounter.
// Items are grouped by code in SortOrder; the first of each group is
// canonical, the rest are marked duplicate. Re-running yields the same
// flags. Returns the number of items flagged.
func DetectDuplicates(items []*claim.LineItem) int {
	ordered := make([]*claim.LineItem, len(items))
	copy(ordered, items)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].SortOrder < ordered[j].SortOrder })

	seen := make(map[string]bool)
	flagged := 0
	for _, li := range ordered {
		if seen[li.ProcedureCode] {
			li.Duplicate = true
			flagged++
		} else {
			seen[li.ProcedureCode] = true
			li.Duplicate = false
		}
	}
	return flagged
}

// AuthorizationValidator checks an encounter's prior authorization against
// the procedures billed in it.
type AuthorizationValidator struct {
	catalog    terminology.ProcedureCatalog
	windowDays int
}

func NewAuthorizationValidator(catalog terminology.ProcedureCatalog, windowDays int) *AuthorizationValidator {
	return &AuthorizationValidator{catalog: catalog, windowDays: windowDays}
}

// Validate sets the encounter's AuthorizationValid flag. When no billed
// procedure requires prior authorization the flag is trivially true.
// Otherwise the authorization must exist and precede the encounter start by
// at most the window, inclusive on both ends. Returns whether any procedure
// required authorization.
func (v *AuthorizationValidator) Validate(ctx context.Context, enc *claim.Encounter, items []*claim.LineItem) (bool, error) {
	required := false
	for _, li := range items {
		needs, err := v.catalog.RequiresAuthorization(ctx, li.ProcedureCode)
		if err != nil {
			return false, err
		}
		if needs {
			required = true
			break
		}
	}
	if !required {
		enc.AuthorizationValid = true
		return false, nil
	}
	enc.AuthorizationValid = v.withinWindow(enc)
	return true, nil
}

func (v *AuthorizationValidator) withinWindow(enc *claim.Encounter) bool {
	if !enc.HasAuthorization() || enc.AuthorizationDate == nil {
		return false
	}
	gap := enc.StartDate.Sub(*enc.AuthorizationDate)
	return gap >= 0 && gap <= time.Duration(v.windowDays)*24*time.Hour
}

// PertinenceValidator checks each line item's clinical coherence with the
// encounter's principal diagnosis.
type PertinenceValidator struct {
	policy terminology.PertinencePolicy
}

func NewPertinenceValidator(policy terminology.PertinencePolicy) *PertinenceValidator {
	return &PertinenceValidator{policy: policy}
}

// Validate sets PertinenceValidated on every item. Returns the number of
// items found not pertinent.
func (v *PertinenceValidator) Validate(ctx context.Context, enc *claim.Encounter, items []*claim.LineItem) (int, error) {
	nonPertinent := 0
	for _, li := range items {
		ok, err := v.policy.IsPertinent(ctx, li.ProcedureCode, enc.PrincipalDiagnosis)
		if err != nil {
			return 0, err
		}
		li.PertinenceValidated = ok
		if !ok {
			nonPertinent++
		}
	}
	return nonPertinent, nil
}
