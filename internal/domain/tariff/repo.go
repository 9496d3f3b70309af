package tariff

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository handles tariff and tariff entry persistence.
type Repository interface {
	Create(ctx context.Context, t *Tariff) error
	GetByID(ctx context.Context, id uuid.UUID) (*Tariff, error)
	Update(ctx context.Context, t *Tariff) error
	List(ctx context.Context, limit, offset int) ([]*Tariff, int, error)

	// ListActiveContracts returns the payer's active contract tariffs whose
	// window contains date, most recent effective_start first.
	ListActiveContracts(ctx context.Context, payerNIT string, date time.Time) ([]*Tariff, error)
	// ListActiveReference returns active reference tariffs covering date,
	// most recent effective_start first.
	ListActiveReference(ctx context.Context, date time.Time) ([]*Tariff, error)

	UpsertEntry(ctx context.Context, e *Entry) error
	ListEntries(ctx context.Context, tariffID uuid.UUID) ([]*Entry, error)
	GetEntry(ctx context.Context, tariffID uuid.UUID, procedureCode string) (*Entry, error)
}
