package audit

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/glosa/glosa/internal/domain/claim"
	"github.com/glosa/glosa/internal/domain/rules"
	"github.com/glosa/glosa/internal/domain/tariff"
)

// -- Mock claim repositories --

type mockClaimRepo struct {
	items map[uuid.UUID]*claim.Claim
}

func newMockClaimRepo() *mockClaimRepo {
	return &mockClaimRepo{items: make(map[uuid.UUID]*claim.Claim)}
}

func (m *mockClaimRepo) Create(_ context.Context, c *claim.Claim) error {
	c.ID = uuid.New()
	cp := *c
	m.items[c.ID] = &cp
	return nil
}

func (m *mockClaimRepo) GetByID(_ context.Context, id uuid.UUID) (*claim.Claim, error) {
	c, ok := m.items[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *c
	return &cp, nil
}

func (m *mockClaimRepo) GetByNumber(_ context.Context, number string) (*claim.Claim, error) {
	for _, c := range m.items {
		if c.ClaimNumber == number {
			cp := *c
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *mockClaimRepo) Update(_ context.Context, c *claim.Claim) error {
	cp := *c
	m.items[c.ID] = &cp
	return nil
}

func (m *mockClaimRepo) List(_ context.Context, limit, offset int) ([]*claim.Claim, int, error) {
	var result []*claim.Claim
	for _, c := range m.items {
		result = append(result, c)
	}
	return result, len(result), nil
}

func (m *mockClaimRepo) ListByStatus(_ context.Context, status string, limit, offset int) ([]*claim.Claim, int, error) {
	var result []*claim.Claim
	for _, c := range m.items {
		if c.Status == status {
			result = append(result, c)
		}
	}
	return result, len(result), nil
}

type mockEncounterRepo struct {
	items map[uuid.UUID]*claim.Encounter
}

func newMockEncounterRepo() *mockEncounterRepo {
	return &mockEncounterRepo{items: make(map[uuid.UUID]*claim.Encounter)}
}

func (m *mockEncounterRepo) Create(_ context.Context, e *claim.Encounter) error {
	e.ID = uuid.New()
	cp := *e
	m.items[e.ID] = &cp
	return nil
}

func (m *mockEncounterRepo) GetByID(_ context.Context, id uuid.UUID) (*claim.Encounter, error) {
	e, ok := m.items[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *e
	return &cp, nil
}

func (m *mockEncounterRepo) ListByClaim(_ context.Context, claimID uuid.UUID) ([]*claim.Encounter, error) {
	var result []*claim.Encounter
	for _, e := range m.items {
		if e.ClaimID == claimID {
			cp := *e
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].EncounterNumber < result[j].EncounterNumber })
	return result, nil
}

func (m *mockEncounterRepo) Update(_ context.Context, e *claim.Encounter) error {
	cp := *e
	m.items[e.ID] = &cp
	return nil
}

type mockLineItemRepo struct {
	items      map[uuid.UUID]*claim.LineItem
	encounters *mockEncounterRepo
}

func newMockLineItemRepo(enc *mockEncounterRepo) *mockLineItemRepo {
	return &mockLineItemRepo{items: make(map[uuid.UUID]*claim.LineItem), encounters: enc}
}

func (m *mockLineItemRepo) Create(_ context.Context, li *claim.LineItem) error {
	li.ID = uuid.New()
	cp := *li
	m.items[li.ID] = &cp
	return nil
}

func (m *mockLineItemRepo) GetByID(_ context.Context, id uuid.UUID) (*claim.LineItem, error) {
	li, ok := m.items[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *li
	return &cp, nil
}

func (m *mockLineItemRepo) ListByEncounter(_ context.Context, encounterID uuid.UUID) ([]*claim.LineItem, error) {
	var result []*claim.LineItem
	for _, li := range m.items {
		if li.EncounterID == encounterID {
			cp := *li
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].SortOrder < result[j].SortOrder })
	return result, nil
}

func (m *mockLineItemRepo) ListByClaim(ctx context.Context, claimID uuid.UUID) ([]*claim.LineItem, error) {
	encs, _ := m.encounters.ListByClaim(ctx, claimID)
	var result []*claim.LineItem
	for _, e := range encs {
		items, _ := m.ListByEncounter(ctx, e.ID)
		result = append(result, items...)
	}
	return result, nil
}

func (m *mockLineItemRepo) Update(_ context.Context, li *claim.LineItem) error {
	cp := *li
	m.items[li.ID] = &cp
	return nil
}

type mockGlosaRepo struct {
	items     map[uuid.UUID]*claim.Glosa
	lineItems *mockLineItemRepo
}

func newMockGlosaRepo(li *mockLineItemRepo) *mockGlosaRepo {
	return &mockGlosaRepo{items: make(map[uuid.UUID]*claim.Glosa), lineItems: li}
}

func (m *mockGlosaRepo) CreateIfAbsent(_ context.Context, g *claim.Glosa) (bool, error) {
	for _, existing := range m.items {
		if existing.LineItemID == g.LineItemID && existing.RuleCode == g.RuleCode {
			return false, nil
		}
	}
	g.ID = uuid.New()
	g.CreatedAt = time.Now()
	cp := *g
	m.items[g.ID] = &cp
	return true, nil
}

func (m *mockGlosaRepo) GetByID(_ context.Context, id uuid.UUID) (*claim.Glosa, error) {
	g, ok := m.items[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *g
	return &cp, nil
}

func (m *mockGlosaRepo) ListByLineItem(_ context.Context, lineItemID uuid.UUID) ([]*claim.Glosa, error) {
	var result []*claim.Glosa
	for _, g := range m.items {
		if g.LineItemID == lineItemID {
			cp := *g
			result = append(result, &cp)
		}
	}
	return result, nil
}

func (m *mockGlosaRepo) ListByClaim(ctx context.Context, claimID uuid.UUID) ([]*claim.Glosa, error) {
	items, _ := m.lineItems.ListByClaim(ctx, claimID)
	var result []*claim.Glosa
	for _, li := range items {
		glosas, _ := m.ListByLineItem(ctx, li.ID)
		result = append(result, glosas...)
	}
	return result, nil
}

func (m *mockGlosaRepo) Update(_ context.Context, g *claim.Glosa) error {
	cp := *g
	m.items[g.ID] = &cp
	return nil
}

// -- Mock session repository --

type mockSessionRepo struct {
	items map[uuid.UUID]*Session
}

func newMockSessionRepo() *mockSessionRepo {
	return &mockSessionRepo{items: make(map[uuid.UUID]*Session)}
}

func (m *mockSessionRepo) Create(_ context.Context, s *Session) error {
	s.ID = uuid.New()
	s.CreatedAt = time.Now()
	cp := *s
	m.items[s.ID] = &cp
	return nil
}

func (m *mockSessionRepo) GetByID(_ context.Context, id uuid.UUID) (*Session, error) {
	s, ok := m.items[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *s
	return &cp, nil
}

func (m *mockSessionRepo) Update(_ context.Context, s *Session) error {
	cp := *s
	m.items[s.ID] = &cp
	return nil
}

func (m *mockSessionRepo) ListByClaim(_ context.Context, claimID uuid.UUID) ([]*Session, error) {
	var result []*Session
	for _, s := range m.items {
		if s.ClaimID == claimID {
			result = append(result, s)
		}
	}
	return result, nil
}

// -- Mock rules repository --

type mockRuleRepo struct {
	items map[uuid.UUID]*rules.AuditRule
}

func newMockRuleRepo() *mockRuleRepo {
	return &mockRuleRepo{items: make(map[uuid.UUID]*rules.AuditRule)}
}

func (m *mockRuleRepo) Create(_ context.Context, r *rules.AuditRule) error {
	r.ID = uuid.New()
	cp := *r
	m.items[r.ID] = &cp
	return nil
}

func (m *mockRuleRepo) GetByID(_ context.Context, id uuid.UUID) (*rules.AuditRule, error) {
	r, ok := m.items[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return r, nil
}

func (m *mockRuleRepo) GetByCode(_ context.Context, code string) (*rules.AuditRule, error) {
	for _, r := range m.items {
		if r.Code == code {
			return r, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *mockRuleRepo) Update(_ context.Context, r *rules.AuditRule) error {
	cp := *r
	m.items[r.ID] = &cp
	return nil
}

func (m *mockRuleRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.items, id)
	return nil
}

func (m *mockRuleRepo) List(_ context.Context, limit, offset int) ([]*rules.AuditRule, int, error) {
	var result []*rules.AuditRule
	for _, r := range m.items {
		result = append(result, r)
	}
	return result, len(result), nil
}

func (m *mockRuleRepo) ListActive(_ context.Context) ([]*rules.AuditRule, error) {
	var result []*rules.AuditRule
	for _, r := range m.items {
		if r.Active {
			result = append(result, r)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Priority != result[j].Priority {
			return result[i].Priority < result[j].Priority
		}
		return result[i].Code < result[j].Code
	})
	return result, nil
}

// -- Mock tariff repository --

type mockTariffRepo struct {
	tariffs map[uuid.UUID]*tariff.Tariff
	entries map[uuid.UUID][]*tariff.Entry
}

func newMockTariffRepo() *mockTariffRepo {
	return &mockTariffRepo{tariffs: make(map[uuid.UUID]*tariff.Tariff), entries: make(map[uuid.UUID][]*tariff.Entry)}
}

func (m *mockTariffRepo) Create(_ context.Context, t *tariff.Tariff) error {
	t.ID = uuid.New()
	cp := *t
	m.tariffs[t.ID] = &cp
	return nil
}

func (m *mockTariffRepo) GetByID(_ context.Context, id uuid.UUID) (*tariff.Tariff, error) {
	t, ok := m.tariffs[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return t, nil
}

func (m *mockTariffRepo) Update(_ context.Context, t *tariff.Tariff) error {
	cp := *t
	m.tariffs[t.ID] = &cp
	return nil
}

func (m *mockTariffRepo) List(_ context.Context, limit, offset int) ([]*tariff.Tariff, int, error) {
	var result []*tariff.Tariff
	for _, t := range m.tariffs {
		result = append(result, t)
	}
	return result, len(result), nil
}

func (m *mockTariffRepo) ListActiveContracts(_ context.Context, payerNIT string, date time.Time) ([]*tariff.Tariff, error) {
	var result []*tariff.Tariff
	for _, t := range m.tariffs {
		if t.Kind == tariff.KindContract && t.Active && t.PayerNIT != nil && *t.PayerNIT == payerNIT && t.Covers(date) {
			result = append(result, t)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].EffectiveStart.After(result[j].EffectiveStart) })
	return result, nil
}

func (m *mockTariffRepo) ListActiveReference(_ context.Context, date time.Time) ([]*tariff.Tariff, error) {
	var result []*tariff.Tariff
	for _, t := range m.tariffs {
		if t.Kind == tariff.KindReference && t.Active && t.Covers(date) {
			result = append(result, t)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].EffectiveStart.After(result[j].EffectiveStart) })
	return result, nil
}

func (m *mockTariffRepo) UpsertEntry(_ context.Context, e *tariff.Entry) error {
	for _, existing := range m.entries[e.TariffID] {
		if existing.ProcedureCode == e.ProcedureCode {
			existing.UnitPrice = e.UnitPrice
			return nil
		}
	}
	e.ID = uuid.New()
	cp := *e
	m.entries[e.TariffID] = append(m.entries[e.TariffID], &cp)
	return nil
}

func (m *mockTariffRepo) ListEntries(_ context.Context, tariffID uuid.UUID) ([]*tariff.Entry, error) {
	return m.entries[tariffID], nil
}

func (m *mockTariffRepo) GetEntry(_ context.Context, tariffID uuid.UUID, code string) (*tariff.Entry, error) {
	for _, e := range m.entries[tariffID] {
		if e.ProcedureCode == code {
			return e, nil
		}
	}
	return nil, pgx.ErrNoRows
}
