package claim

import (
	"context"

	"github.com/google/uuid"
)

// ClaimRepository handles claim persistence.
type ClaimRepository interface {
	Create(ctx context.Context, c *Claim) error
	GetByID(ctx context.Context, id uuid.UUID) (*Claim, error)
	GetByNumber(ctx context.Context, claimNumber string) (*Claim, error)
	Update(ctx context.Context, c *Claim) error
	List(ctx context.Context, limit, offset int) ([]*Claim, int, error)
	ListByStatus(ctx context.Context, status string, limit, offset int) ([]*Claim, int, error)
}

// EncounterRepository handles encounter persistence.
type EncounterRepository interface {
	Create(ctx context.Context, e *Encounter) error
	GetByID(ctx context.Context, id uuid.UUID) (*Encounter, error)
	ListByClaim(ctx context.Context, claimID uuid.UUID) ([]*Encounter, error)
	Update(ctx context.Context, e *Encounter) error
}

// LineItemRepository handles line item persistence.
type LineItemRepository interface {
	Create(ctx context.Context, li *LineItem) error
	GetByID(ctx context.Context, id uuid.UUID) (*LineItem, error)
	ListByEncounter(ctx context.Context, encounterID uuid.UUID) ([]*LineItem, error)
	ListByClaim(ctx context.Context, claimID uuid.UUID) ([]*LineItem, error)
	Update(ctx context.Context, li *LineItem) error
}

// GlosaRepository handles glosa persistence. CreateIfAbsent backs the
// one-glosa-per-rule-per-line-item guarantee with the unique index on
// (line_item_id, rule_code).
type GlosaRepository interface {
	CreateIfAbsent(ctx context.Context, g *Glosa) (bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Glosa, error)
	ListByLineItem(ctx context.Context, lineItemID uuid.UUID) ([]*Glosa, error)
	ListByClaim(ctx context.Context, claimID uuid.UUID) ([]*Glosa, error)
	Update(ctx context.Context, g *Glosa) error
}
