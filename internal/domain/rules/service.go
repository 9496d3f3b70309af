package rules

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Create(ctx context.Context, r *AuditRule) error {
	if err := r.Validate(); err != nil {
		return err
	}
	if _, err := s.repo.GetByCode(ctx, r.Code); err == nil {
		return fmt.Errorf("rule code already exists: %s", r.Code)
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}
	return s.repo.Create(ctx, r)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*AuditRule, error) {
	r, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("rule not found")
	}
	return r, err
}

func (s *Service) Update(ctx context.Context, r *AuditRule) error {
	existing, err := s.Get(ctx, r.ID)
	if err != nil {
		return err
	}
	// The code is the stable identity glosas reference; it never changes.
	r.Code = existing.Code
	if err := r.Validate(); err != nil {
		return err
	}
	return s.repo.Update(ctx, r)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*AuditRule, int, error) {
	return s.repo.List(ctx, limit, offset)
}

func (s *Service) ListActive(ctx context.Context) ([]*AuditRule, error) {
	return s.repo.ListActive(ctx)
}
