package rules

import (
	"context"

	"github.com/google/uuid"
)

// Repository handles audit rule persistence.
type Repository interface {
	Create(ctx context.Context, r *AuditRule) error
	GetByID(ctx context.Context, id uuid.UUID) (*AuditRule, error)
	GetByCode(ctx context.Context, code string) (*AuditRule, error)
	Update(ctx context.Context, r *AuditRule) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*AuditRule, int, error)
	// ListActive returns active rules in ascending priority order, the order
	// the engine applies them in.
	ListActive(ctx context.Context) ([]*AuditRule, error)
}
