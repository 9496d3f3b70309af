package tariff

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ErrNoTariffFound is returned when neither a contract nor a reference tariff
// covers the service date. The claim cannot be priced without one.
var ErrNoTariffFound = errors.New("no applicable tariff found")

var validKinds = map[string]bool{KindReference: true, KindContract: true}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Create(ctx context.Context, t *Tariff) error {
	if t.Name == "" {
		return fmt.Errorf("name is required")
	}
	if !validKinds[t.Kind] {
		return fmt.Errorf("invalid tariff kind: %s", t.Kind)
	}
	if t.Kind == KindContract && (t.PayerNIT == nil || *t.PayerNIT == "") {
		return fmt.Errorf("payer_nit is required for contract tariffs")
	}
	if t.Kind == KindReference && t.PayerNIT != nil {
		return fmt.Errorf("payer_nit is not allowed on reference tariffs")
	}
	if t.EffectiveStart.IsZero() {
		return fmt.Errorf("effective_start is required")
	}
	if t.EffectiveEnd != nil && t.EffectiveEnd.Before(t.EffectiveStart) {
		return fmt.Errorf("effective_end must not precede effective_start")
	}
	return s.repo.Create(ctx, t)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Tariff, error) {
	t, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("tariff not found")
	}
	return t, err
}

func (s *Service) Update(ctx context.Context, t *Tariff) error {
	if t.Name == "" {
		return fmt.Errorf("name is required")
	}
	if t.EffectiveEnd != nil && t.EffectiveEnd.Before(t.EffectiveStart) {
		return fmt.Errorf("effective_end must not precede effective_start")
	}
	return s.repo.Update(ctx, t)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Tariff, int, error) {
	return s.repo.List(ctx, limit, offset)
}

func (s *Service) AddEntry(ctx context.Context, e *Entry) error {
	if e.TariffID == uuid.Nil {
		return fmt.Errorf("tariff_id is required")
	}
	if e.ProcedureCode == "" {
		return fmt.Errorf("procedure_code is required")
	}
	if e.UnitPrice < 0 {
		return fmt.Errorf("unit_price must not be negative")
	}
	if _, err := s.Get(ctx, e.TariffID); err != nil {
		return err
	}
	return s.repo.UpsertEntry(ctx, e)
}

func (s *Service) ListEntries(ctx context.Context, tariffID uuid.UUID) ([]*Entry, error) {
	return s.repo.ListEntries(ctx, tariffID)
}

// Resolve picks the tariff that governs a claim: the payer's most recently
// started active contract whose window contains the service date, falling
// back to the most recently started active reference tariff. Returns
// ErrNoTariffFound when neither exists.
func (s *Service) Resolve(ctx context.Context, payerNIT string, date time.Time) (*Tariff, error) {
	contracts, err := s.repo.ListActiveContracts(ctx, payerNIT, date)
	if err != nil {
		return nil, err
	}
	if len(contracts) > 0 {
		return contracts[0], nil
	}
	refs, err := s.repo.ListActiveReference(ctx, date)
	if err != nil {
		return nil, err
	}
	if len(refs) > 0 {
		return refs[0], nil
	}
	return nil, ErrNoTariffFound
}

// PriceTable loads a tariff's entries keyed by procedure code, the shape the
// pricer consumes.
func (s *Service) PriceTable(ctx context.Context, tariffID uuid.UUID) (map[string]float64, error) {
	entries, err := s.repo.ListEntries(ctx, tariffID)
	if err != nil {
		return nil, err
	}
	table := make(map[string]float64, len(entries))
	for _, e := range entries {
		table[e.ProcedureCode] = e.UnitPrice
	}
	return table, nil
}
