package claim

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// -- Mock Repositories --

type mockClaimRepo struct {
	items map[uuid.UUID]*Claim
}

func newMockClaimRepo() *mockClaimRepo {
	return &mockClaimRepo{items: make(map[uuid.UUID]*Claim)}
}

func (m *mockClaimRepo) Create(_ context.Context, c *Claim) error {
	c.ID = uuid.New()
	c.CreatedAt = time.Now()
	c.UpdatedAt = time.Now()
	cp := *c
	m.items[c.ID] = &cp
	return nil
}

func (m *mockClaimRepo) GetByID(_ context.Context, id uuid.UUID) (*Claim, error) {
	c, ok := m.items[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *c
	return &cp, nil
}

func (m *mockClaimRepo) GetByNumber(_ context.Context, claimNumber string) (*Claim, error) {
	for _, c := range m.items {
		if c.ClaimNumber == claimNumber {
			cp := *c
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *mockClaimRepo) Update(_ context.Context, c *Claim) error {
	cp := *c
	m.items[c.ID] = &cp
	return nil
}

func (m *mockClaimRepo) List(_ context.Context, limit, offset int) ([]*Claim, int, error) {
	var result []*Claim
	for _, c := range m.items {
		result = append(result, c)
	}
	return result, len(result), nil
}

func (m *mockClaimRepo) ListByStatus(_ context.Context, status string, limit, offset int) ([]*Claim, int, error) {
	var result []*Claim
	for _, c := range m.items {
		if c.Status == status {
			result = append(result, c)
		}
	}
	return result, len(result), nil
}

type mockEncounterRepo struct {
	items map[uuid.UUID]*Encounter
}

func newMockEncounterRepo() *mockEncounterRepo {
	return &mockEncounterRepo{items: make(map[uuid.UUID]*Encounter)}
}

func (m *mockEncounterRepo) Create(_ context.Context, e *Encounter) error {
	e.ID = uuid.New()
	e.CreatedAt = time.Now()
	cp := *e
	m.items[e.ID] = &cp
	return nil
}

func (m *mockEncounterRepo) GetByID(_ context.Context, id uuid.UUID) (*Encounter, error) {
	e, ok := m.items[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *e
	return &cp, nil
}

func (m *mockEncounterRepo) ListByClaim(_ context.Context, claimID uuid.UUID) ([]*Encounter, error) {
	var result []*Encounter
	for _, e := range m.items {
		if e.ClaimID == claimID {
			result = append(result, e)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].EncounterNumber < result[j].EncounterNumber })
	return result, nil
}

func (m *mockEncounterRepo) Update(_ context.Context, e *Encounter) error {
	cp := *e
	m.items[e.ID] = &cp
	return nil
}

type mockLineItemRepo struct {
	items      map[uuid.UUID]*LineItem
	encounters *mockEncounterRepo
}

func newMockLineItemRepo(enc *mockEncounterRepo) *mockLineItemRepo {
	return &mockLineItemRepo{items: make(map[uuid.UUID]*LineItem), encounters: enc}
}

func (m *mockLineItemRepo) Create(_ context.Context, li *LineItem) error {
	li.ID = uuid.New()
	li.CreatedAt = time.Now()
	cp := *li
	m.items[li.ID] = &cp
	return nil
}

func (m *mockLineItemRepo) GetByID(_ context.Context, id uuid.UUID) (*LineItem, error) {
	li, ok := m.items[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *li
	return &cp, nil
}

func (m *mockLineItemRepo) ListByEncounter(_ context.Context, encounterID uuid.UUID) ([]*LineItem, error) {
	var result []*LineItem
	for _, li := range m.items {
		if li.EncounterID == encounterID {
			result = append(result, li)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].SortOrder < result[j].SortOrder })
	return result, nil
}

func (m *mockLineItemRepo) ListByClaim(ctx context.Context, claimID uuid.UUID) ([]*LineItem, error) {
	encs, _ := m.encounters.ListByClaim(ctx, claimID)
	var result []*LineItem
	for _, e := range encs {
		items, _ := m.ListByEncounter(ctx, e.ID)
		result = append(result, items...)
	}
	return result, nil
}

func (m *mockLineItemRepo) Update(_ context.Context, li *LineItem) error {
	cp := *li
	m.items[li.ID] = &cp
	return nil
}

type mockGlosaRepo struct {
	items     map[uuid.UUID]*Glosa
	lineItems *mockLineItemRepo
}

func newMockGlosaRepo(li *mockLineItemRepo) *mockGlosaRepo {
	return &mockGlosaRepo{items: make(map[uuid.UUID]*Glosa), lineItems: li}
}

func (m *mockGlosaRepo) CreateIfAbsent(_ context.Context, g *Glosa) (bool, error) {
	for _, existing := range m.items {
		if existing.LineItemID == g.LineItemID && existing.RuleCode == g.RuleCode {
			return false, nil
		}
	}
	g.ID = uuid.New()
	g.CreatedAt = time.Now()
	g.UpdatedAt = time.Now()
	cp := *g
	m.items[g.ID] = &cp
	return true, nil
}

func (m *mockGlosaRepo) GetByID(_ context.Context, id uuid.UUID) (*Glosa, error) {
	g, ok := m.items[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *g
	return &cp, nil
}

func (m *mockGlosaRepo) ListByLineItem(_ context.Context, lineItemID uuid.UUID) ([]*Glosa, error) {
	var result []*Glosa
	for _, g := range m.items {
		if g.LineItemID == lineItemID {
			result = append(result, g)
		}
	}
	return result, nil
}

func (m *mockGlosaRepo) ListByClaim(ctx context.Context, claimID uuid.UUID) ([]*Glosa, error) {
	items, _ := m.lineItems.ListByClaim(ctx, claimID)
	var result []*Glosa
	for _, li := range items {
		glosas, _ := m.ListByLineItem(ctx, li.ID)
		result = append(result, glosas...)
	}
	return result, nil
}

func (m *mockGlosaRepo) Update(_ context.Context, g *Glosa) error {
	g.UpdatedAt = time.Now()
	cp := *g
	m.items[g.ID] = &cp
	return nil
}

func newTestService() (*Service, *mockClaimRepo, *mockEncounterRepo, *mockLineItemRepo, *mockGlosaRepo) {
	claims := newMockClaimRepo()
	encounters := newMockEncounterRepo()
	lineItems := newMockLineItemRepo(encounters)
	glosas := newMockGlosaRepo(lineItems)
	svc := NewService(claims, encounters, lineItems, glosas, nil)
	return svc, claims, encounters, lineItems, glosas
}
