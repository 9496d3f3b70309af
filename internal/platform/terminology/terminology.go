package terminology

import (
	"context"
	"sync"
)

// ProcedureCatalog exposes the procedure-metadata lookups the audit engine
// needs. The real catalog (CUPS manual) lives outside this service; callers
// wire in whichever implementation they have.
type ProcedureCatalog interface {
	RequiresAuthorization(ctx context.Context, procedureCode string) (bool, error)
}

// PertinencePolicy decides whether a procedure is clinically coherent with a
// diagnosis. Implementations must be pure functions of their inputs.
type PertinencePolicy interface {
	IsPertinent(ctx context.Context, procedureCode, diagnosisCode string) (bool, error)
}

// StaticCatalog is an in-memory ProcedureCatalog backed by a code set.
type StaticCatalog struct {
	mu           sync.RWMutex
	requiresAuth map[string]bool
}

func NewStaticCatalog(requiresAuth []string) *StaticCatalog {
	m := make(map[string]bool, len(requiresAuth))
	for _, code := range requiresAuth {
		m[code] = true
	}
	return &StaticCatalog{requiresAuth: m}
}

func (c *StaticCatalog) RequiresAuthorization(_ context.Context, procedureCode string) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.requiresAuth[procedureCode], nil
}

// Add marks a procedure code as requiring prior authorization.
func (c *StaticCatalog) Add(procedureCode string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requiresAuth[procedureCode] = true
}

// PermissivePolicy accepts every (procedure, diagnosis) pair. It stands in
// until a clinical-coherence source is available.
type PermissivePolicy struct{}

func (PermissivePolicy) IsPertinent(_ context.Context, _, _ string) (bool, error) {
	return true, nil
}
