package audit

import (
	"github.com/glosa/glosa/internal/domain/claim"
)

// Facts is the closed set of per-line-item values rule conditions may
// reference. Rules address them by the snake_case names in factGetters;
// anything else resolves to nil and the condition is simply false. Tariff
// deviation facts are absent (nil) while the item is unpriced, so difference
// rules cannot fire against a billed total with no contracted counterpart.
type Facts struct {
	Delta               float64
	PercentageDelta     float64
	Quantity            int
	HasAuthorization    bool
	AuthorizationValid  bool
	Duplicate           bool
	PertinenceValidated bool
	TariffValidated     bool
	SupportDocs         bool
}

var factGetters = map[string]func(Facts) interface{}{
	"delta": func(f Facts) interface{} {
		if !f.TariffValidated {
			return nil
		}
		return f.Delta
	},
	"percentage_delta": func(f Facts) interface{} {
		if !f.TariffValidated {
			return nil
		}
		return f.PercentageDelta
	},
	"quantity":             func(f Facts) interface{} { return f.Quantity },
	"has_authorization":    func(f Facts) interface{} { return f.HasAuthorization },
	"authorization_valid":  func(f Facts) interface{} { return f.AuthorizationValid },
	"duplicate":            func(f Facts) interface{} { return f.Duplicate },
	"pertinence_validated": func(f Facts) interface{} { return f.PertinenceValidated },
	"tariff_validated":     func(f Facts) interface{} { return f.TariffValidated },
	"support_docs":         func(f Facts) interface{} { return f.SupportDocs },
}

// Lookup resolves a fact by rule field name. Unknown names return nil.
func (f Facts) Lookup(field string) interface{} {
	getter, ok := factGetters[field]
	if !ok {
		return nil
	}
	return getter(f)
}

// BuildFacts derives the rule-engine facts for one line item. Authorization
// flags come from the owning encounter; the rest live on the item itself.
func BuildFacts(li *claim.LineItem, enc *claim.Encounter) Facts {
	f := Facts{
		Quantity:            li.Quantity,
		HasAuthorization:    enc.HasAuthorization(),
		AuthorizationValid:  enc.AuthorizationValid,
		Duplicate:           li.Duplicate,
		PertinenceValidated: li.PertinenceValidated,
		TariffValidated:     li.TariffValidated,
		SupportDocs:         li.SupportDocsPresent,
	}
	if li.TariffValidated {
		f.Delta = li.Delta()
		f.PercentageDelta = li.PercentageDelta()
	}
	return f
}
