package audit

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/glosa/glosa/internal/domain/claim"
	"github.com/glosa/glosa/internal/domain/rules"
)

// Engine evaluates audit rules against line item facts and materializes
// priced glosas. Rules are independent per line item: multiple rules may
// fire on the same item under different codes and their deductions stack.
type Engine struct {
	glosas claim.GlosaRepository
}

func NewEngine(glosas claim.GlosaRepository) *Engine {
	return &Engine{glosas: glosas}
}

// EvaluateCondition checks one predicate against the facts. Unknown fields
// and uncoercible values make the condition false, never an error.
func EvaluateCondition(f Facts, c rules.Condition) bool {
	v := f.Lookup(c.Field)
	switch c.Op {
	case rules.OpExists:
		return v != nil
	case rules.OpNotExists:
		return v == nil
	}
	if v == nil {
		return false
	}
	switch val := v.(type) {
	case float64:
		return compareNumeric(val, c)
	case int:
		return compareNumeric(float64(val), c)
	case bool:
		want, err := strconv.ParseBool(c.Value)
		if err != nil {
			return false
		}
		switch c.Op {
		case rules.OpEqual:
			return val == want
		case rules.OpNotEqual:
			return val != want
		}
		return false
	case string:
		switch c.Op {
		case rules.OpEqual:
			return val == c.Value
		case rules.OpNotEqual:
			return val != c.Value
		case rules.OpContains:
			return strings.Contains(val, c.Value)
		}
		return false
	}
	return false
}

func compareNumeric(val float64, c rules.Condition) bool {
	want, err := strconv.ParseFloat(c.Value, 64)
	if err != nil {
		return false
	}
	switch c.Op {
	case rules.OpGreater:
		return val > want
	case rules.OpLess:
		return val < want
	case rules.OpEqual:
		return val == want
	case rules.OpNotEqual:
		return val != want
	case rules.OpGreaterEqual:
		return val >= want
	case rules.OpLessEqual:
		return val <= want
	}
	return false
}

// Satisfied combines the rule's condition results under its logical operator.
func Satisfied(f Facts, r *rules.AuditRule) bool {
	if len(r.Conditions) == 0 {
		return false
	}
	for _, c := range r.Conditions {
		ok := EvaluateCondition(f, c)
		if r.LogicalOp == rules.LogicOr && ok {
			return true
		}
		if r.LogicalOp != rules.LogicOr && !ok {
			return false
		}
	}
	return r.LogicalOp != rules.LogicOr
}

// Deduction computes the glosa amount for a fired rule.
func Deduction(f Facts, li *claim.LineItem, r *rules.AuditRule) float64 {
	switch r.Pricing.Strategy {
	case rules.StrategyDifference:
		// No contracted price means no deviation to deduct.
		if !f.TariffValidated || f.Delta <= 0 {
			return 0
		}
		return f.Delta
	case rules.StrategyFullAmount:
		return li.BilledTotal
	case rules.StrategyPercentage:
		return li.BilledTotal * *r.Pricing.Percentage / 100
	case rules.StrategyFixed:
		return *r.Pricing.FixedAmount
	}
	return 0
}

// Apply runs the rule set against one line item. Each firing rule creates at
// most one glosa per (line item, rule code); re-runs are no-ops thanks to
// CreateIfAbsent. The item's deducted total and payable are updated in
// memory for every glosa actually inserted; the caller persists the item.
func (e *Engine) Apply(ctx context.Context, li *claim.LineItem, f Facts, ruleSet []*rules.AuditRule) ([]*claim.Glosa, error) {
	var created []*claim.Glosa
	for _, r := range ruleSet {
		if !Satisfied(f, r) {
			continue
		}
		amount := Deduction(f, li, r)
		if amount <= 0 {
			continue
		}
		g := &claim.Glosa{
			LineItemID:    li.ID,
			RuleCode:      r.Code,
			Category:      r.Category,
			Amount:        amount,
			Percentage:    r.Pricing.Percentage,
			Justification: fmt.Sprintf("%s (%s)", r.Name, r.Code),
			State:         claim.GlosaPending,
			AutoGenerated: true,
		}
		inserted, err := e.glosas.CreateIfAbsent(ctx, g)
		if err != nil {
			return nil, err
		}
		if !inserted {
			continue
		}
		li.DeductedTotal += amount
		li.Payable = li.BilledTotal - li.DeductedTotal
		created = append(created, g)
	}
	return created, nil
}
