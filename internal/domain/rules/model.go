package rules

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Condition operators.
const (
	OpGreater      = ">"
	OpLess         = "<"
	OpEqual        = "="
	OpNotEqual     = "!="
	OpGreaterEqual = ">="
	OpLessEqual    = "<="
	OpContains     = "contains"
	OpExists       = "exists"
	OpNotExists    = "not_exists"
)

var validOps = map[string]bool{
	OpGreater: true, OpLess: true, OpEqual: true, OpNotEqual: true,
	OpGreaterEqual: true, OpLessEqual: true, OpContains: true,
	OpExists: true, OpNotExists: true,
}

// Logical operators joining a rule's conditions.
const (
	LogicAnd = "AND"
	LogicOr  = "OR"
)

// Pricing strategies. Each one computes the glosa amount differently; only
// percentage and fixed_amount take a parameter.
const (
	StrategyDifference = "difference"
	StrategyFullAmount = "full_amount"
	StrategyPercentage = "percentage"
	StrategyFixed      = "fixed_amount"
)

// Condition is one predicate over the line item facts. Value is kept as a
// string and coerced against the fact's type at evaluation time; it is unused
// for exists / not_exists.
type Condition struct {
	Field string `json:"field"`
	Op    string `json:"op"`
	Value string `json:"value,omitempty"`
}

func (c Condition) Validate() error {
	if c.Field == "" {
		return fmt.Errorf("condition field is required")
	}
	if !validOps[c.Op] {
		return fmt.Errorf("invalid operator: %s", c.Op)
	}
	if c.Op != OpExists && c.Op != OpNotExists && c.Value == "" {
		return fmt.Errorf("operator %s requires a value", c.Op)
	}
	return nil
}

// Pricing is the tagged strategy deciding how much a fired rule deducts.
// Percentage is set only for percentage rules, FixedAmount only for
// fixed_amount rules.
type Pricing struct {
	Strategy    string   `json:"strategy"`
	Percentage  *float64 `json:"percentage,omitempty"`
	FixedAmount *float64 `json:"fixed_amount,omitempty"`
}

func (p Pricing) Validate() error {
	switch p.Strategy {
	case StrategyDifference, StrategyFullAmount:
		if p.Percentage != nil || p.FixedAmount != nil {
			return fmt.Errorf("strategy %s takes no parameters", p.Strategy)
		}
	case StrategyPercentage:
		if p.Percentage == nil {
			return fmt.Errorf("percentage strategy requires a percentage")
		}
		if *p.Percentage <= 0 || *p.Percentage > 100 {
			return fmt.Errorf("percentage must be in (0, 100], got %v", *p.Percentage)
		}
		if p.FixedAmount != nil {
			return fmt.Errorf("percentage strategy does not take a fixed amount")
		}
	case StrategyFixed:
		if p.FixedAmount == nil {
			return fmt.Errorf("fixed_amount strategy requires an amount")
		}
		if *p.FixedAmount <= 0 {
			return fmt.Errorf("fixed amount must be positive, got %v", *p.FixedAmount)
		}
		if p.Percentage != nil {
			return fmt.Errorf("fixed_amount strategy does not take a percentage")
		}
	default:
		return fmt.Errorf("invalid pricing strategy: %s", p.Strategy)
	}
	return nil
}

// AuditRule maps to the audit_rule table. Conditions and pricing are stored
// as jsonb. Rules run in ascending priority order; the code lands on every
// glosa the rule generates.
type AuditRule struct {
	ID          uuid.UUID   `db:"id" json:"id"`
	Code        string      `db:"code" json:"code"`
	Name        string      `db:"name" json:"name"`
	Category    string      `db:"category" json:"category"`
	Description *string     `db:"description" json:"description,omitempty"`
	Priority    int         `db:"priority" json:"priority"`
	LogicalOp   string      `db:"logical_op" json:"logical_op"`
	Conditions  []Condition `db:"conditions" json:"conditions"`
	Pricing     Pricing     `db:"pricing" json:"pricing"`
	Active      bool        `db:"active" json:"active"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at" json:"updated_at"`
}

func (r *AuditRule) Validate() error {
	if r.Code == "" {
		return fmt.Errorf("code is required")
	}
	if r.Name == "" {
		return fmt.Errorf("name is required")
	}
	if r.Category == "" {
		return fmt.Errorf("category is required")
	}
	if r.LogicalOp != LogicAnd && r.LogicalOp != LogicOr {
		return fmt.Errorf("logical_op must be AND or OR, got %s", r.LogicalOp)
	}
	if len(r.Conditions) == 0 {
		return fmt.Errorf("at least one condition is required")
	}
	for i, c := range r.Conditions {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("condition %d: %w", i, err)
		}
	}
	return r.Pricing.Validate()
}
