package audit

import (
	"context"

	"github.com/google/uuid"
)

// SessionRepository handles audit session persistence. Steps are stored
// alongside the session as a document; they are only ever appended.
type SessionRepository interface {
	Create(ctx context.Context, s *Session) error
	GetByID(ctx context.Context, id uuid.UUID) (*Session, error)
	Update(ctx context.Context, s *Session) error
	ListByClaim(ctx context.Context, claimID uuid.UUID) ([]*Session, error)
}
