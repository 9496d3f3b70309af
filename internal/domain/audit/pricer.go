package audit

import "github.com/glosa/glosa/internal/domain/claim"

// Pricer fills a line item's contracted figures from a resolved price table.
type Pricer struct {
	table map[string]float64
}

func NewPricer(table map[string]float64) *Pricer {
	return &Pricer{table: table}
}

// Price sets the contracted unit price and total for the item's procedure
// code. Returns false when the code is absent from the tariff; the item is
// left unpriced and excluded from tariff-deviation rules, but keeps flowing
// through the other validators.
func (p *Pricer) Price(li *claim.LineItem) bool {
	unitPrice, ok := p.table[li.ProcedureCode]
	if !ok {
		return false
	}
	li.ContractedUnitPrice = unitPrice
	li.ContractedTotal = float64(li.Quantity) * unitPrice
	li.TariffValidated = true
	return true
}
