package audit

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/glosa/glosa/internal/domain/claim"
	"github.com/glosa/glosa/internal/domain/rules"
	"github.com/glosa/glosa/internal/domain/tariff"
	"github.com/glosa/glosa/internal/platform/terminology"
)

// TxRunner executes fn inside a database transaction. One audit step is one
// transaction: a crash mid-step leaves the claim at the last completed step.
type TxRunner func(ctx context.Context, fn func(context.Context) error) error

func passthrough(ctx context.Context, fn func(context.Context) error) error { return fn(ctx) }

// Deps wires the orchestrator's collaborators.
type Deps struct {
	Claims         claim.ClaimRepository
	Encounters     claim.EncounterRepository
	LineItems      claim.LineItemRepository
	Glosas         claim.GlosaRepository
	Sessions       SessionRepository
	Tariffs        *tariff.Service
	Rules          rules.Repository
	Catalog        terminology.ProcedureCatalog
	Pertinence     terminology.PertinencePolicy
	AuthWindowDays int
	RunTx          TxRunner
	Logger         zerolog.Logger
}

// Service drives the audit pipeline over a claim, either atomically or one
// operator-controlled step at a time. Both modes share the same step logic;
// the pipeline is single-threaded per claim because each step reads flags
// the previous step wrote.
type Service struct {
	claims     claim.ClaimRepository
	encounters claim.EncounterRepository
	lineItems  claim.LineItemRepository
	glosas     claim.GlosaRepository
	sessions   SessionRepository
	tariffs    *tariff.Service
	rules      rules.Repository
	engine     *Engine
	auth       *AuthorizationValidator
	pertinence *PertinenceValidator
	runTx      TxRunner
	logger     zerolog.Logger
}

func NewService(d Deps) *Service {
	if d.RunTx == nil {
		d.RunTx = passthrough
	}
	if d.AuthWindowDays <= 0 {
		d.AuthWindowDays = 30
	}
	return &Service{
		claims:     d.Claims,
		encounters: d.Encounters,
		lineItems:  d.LineItems,
		glosas:     d.Glosas,
		sessions:   d.Sessions,
		tariffs:    d.Tariffs,
		rules:      d.Rules,
		engine:     NewEngine(d.Glosas),
		auth:       NewAuthorizationValidator(d.Catalog, d.AuthWindowDays),
		pertinence: NewPertinenceValidator(d.Pertinence),
		runTx:      d.RunTx,
		logger:     d.Logger,
	}
}

// CategoryTotal aggregates the deductions of one glosa category.
type CategoryTotal struct {
	Category string  `json:"category"`
	Amount   float64 `json:"amount"`
	Count    int     `json:"count"`
}

// Result is the outcome of a full audit run.
type Result struct {
	ClaimID              uuid.UUID       `json:"claim_id"`
	TotalAmount          float64         `json:"total_amount"`
	TotalDeductions      float64         `json:"total_deductions"`
	AcceptedAmount       float64         `json:"accepted_amount"`
	GlosaCount           int             `json:"glosa_count"`
	DeductionsByCategory []CategoryTotal `json:"deductions_by_category"`
	Observations         []string        `json:"observations,omitempty"`
}

// RunFullAudit executes the whole pipeline atomically and transitions the
// claim to audited. Re-running on an unchanged claim creates no new glosas
// and returns the same totals.
func (s *Service) RunFullAudit(ctx context.Context, claimID uuid.UUID) (*Result, error) {
	start := time.Now()
	err := s.runTx(ctx, func(ctx context.Context) error {
		for number := 1; number <= TotalSteps; number++ {
			if _, err := s.runStep(ctx, claimID, number); err != nil {
				return fmt.Errorf("step %s: %w", StepNames[number-1], err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	result, err := s.buildResult(ctx, claimID)
	if err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("claim_id", claimID.String()).
		Float64("total_deductions", result.TotalDeductions).
		Int("glosas", result.GlosaCount).
		Dur("elapsed", time.Since(start)).
		Msg("full audit completed")
	return result, nil
}

func (s *Service) buildResult(ctx context.Context, claimID uuid.UUID) (*Result, error) {
	c, err := s.getClaim(ctx, claimID)
	if err != nil {
		return nil, err
	}
	encs, err := s.encounters.ListByClaim(ctx, claimID)
	if err != nil {
		return nil, err
	}
	glosas, err := s.glosas.ListByClaim(ctx, claimID)
	if err != nil {
		return nil, err
	}

	result := &Result{
		ClaimID:         c.ID,
		TotalAmount:     c.TotalAmount,
		TotalDeductions: c.TotalDeductions,
		AcceptedAmount:  c.AcceptedAmount,
	}

	byCategory := make(map[string]*CategoryTotal)
	for _, g := range glosas {
		if g.State == claim.GlosaRejected {
			continue
		}
		result.GlosaCount++
		ct, ok := byCategory[g.Category]
		if !ok {
			ct = &CategoryTotal{Category: g.Category}
			byCategory[g.Category] = ct
		}
		ct.Amount += g.Amount
		ct.Count++
	}
	categories := make([]string, 0, len(byCategory))
	for cat := range byCategory {
		categories = append(categories, cat)
	}
	sort.Strings(categories)
	for _, cat := range categories {
		result.DeductionsByCategory = append(result.DeductionsByCategory, *byCategory[cat])
	}

	for _, enc := range encs {
		if !enc.AuthorizationValid {
			result.Observations = append(result.Observations,
				fmt.Sprintf("encounter %s: authorization missing or outside the allowed window", enc.EncounterNumber))
		}
		items, err := s.lineItems.ListByEncounter(ctx, enc.ID)
		if err != nil {
			return nil, err
		}
		for _, li := range items {
			if !li.TariffValidated {
				result.Observations = append(result.Observations,
					fmt.Sprintf("procedure %s: not found in tariff, item left unpriced", li.ProcedureCode))
			}
			if li.Payable < 0 {
				result.Observations = append(result.Observations,
					fmt.Sprintf("procedure %s: deductions exceed billed amount, payable is negative", li.ProcedureCode))
			}
		}
	}
	return result, nil
}

// -- Sessions --

func (s *Service) StartSession(ctx context.Context, claimID uuid.UUID) (*Session, error) {
	c, err := s.getClaim(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if c.Status == claim.StatusClosed {
		return nil, claim.ErrClosed
	}
	sess := &Session{ClaimID: claimID, Status: SessionStarted, Steps: []SessionStep{}}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, err
	}
	s.logger.Info().Str("claim_id", claimID.String()).Str("session_id", sess.ID.String()).Msg("audit session started")
	return sess, nil
}

// AdvanceSession executes exactly the next step of the session's pipeline.
// A step failure is recorded on the session, which moves to error and stays
// there; advancing a completed or errored session mutates nothing.
func (s *Service) AdvanceSession(ctx context.Context, sessionID uuid.UUID) (*Session, error) {
	sess, err := s.getSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	switch sess.Status {
	case SessionCompleted:
		return nil, ErrSessionCompleted
	case SessionError:
		return nil, ErrInvalidStepSequence
	}

	number := sess.CurrentStep + 1
	started := time.Now()
	var evidence map[string]interface{}
	stepErr := s.runTx(ctx, func(ctx context.Context) error {
		var err error
		evidence, err = s.runStep(ctx, sess.ClaimID, number)
		return err
	})
	finished := time.Now()

	step := SessionStep{
		Number:     number,
		Name:       StepNames[number-1],
		StartedAt:  started,
		FinishedAt: finished,
		DurationMS: finished.Sub(started).Milliseconds(),
		Evidence:   evidence,
	}
	if stepErr != nil {
		msg := stepErr.Error()
		step.Status = StepError
		step.Error = &msg
		sess.Status = SessionError
		s.logger.Error().
			Str("session_id", sess.ID.String()).
			Str("step", step.Name).
			Err(stepErr).
			Msg("audit step failed")
	} else {
		step.Status = StepCompleted
		sess.CurrentStep = number
		if number == TotalSteps {
			sess.Status = SessionCompleted
		} else {
			sess.Status = SessionInProgress
		}
		s.logger.Info().
			Str("session_id", sess.ID.String()).
			Str("step", step.Name).
			Int64("duration_ms", step.DurationMS).
			Msg("audit step completed")
	}
	sess.Steps = append(sess.Steps, step)
	if err := s.sessions.Update(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *Service) GetSession(ctx context.Context, sessionID uuid.UUID) (*Session, error) {
	return s.getSession(ctx, sessionID)
}

func (s *Service) ListSessionsByClaim(ctx context.Context, claimID uuid.UUID) ([]*Session, error) {
	return s.sessions.ListByClaim(ctx, claimID)
}

// -- Steps --

func (s *Service) runStep(ctx context.Context, claimID uuid.UUID, number int) (map[string]interface{}, error) {
	switch number {
	case 1:
		return s.stepLoadClaim(ctx, claimID)
	case 2:
		return s.stepPriceTariffs(ctx, claimID)
	case 3:
		return s.stepValidateAuthorizations(ctx, claimID)
	case 4:
		return s.stepDetectDuplicates(ctx, claimID)
	case 5:
		return s.stepValidatePertinence(ctx, claimID)
	case 6:
		return s.stepApplyRules(ctx, claimID)
	}
	return nil, fmt.Errorf("unknown step %d", number)
}

func (s *Service) stepLoadClaim(ctx context.Context, claimID uuid.UUID) (map[string]interface{}, error) {
	c, err := s.getClaim(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if c.Status == claim.StatusClosed {
		return nil, claim.ErrClosed
	}
	encs, err := s.encounters.ListByClaim(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	if len(encs) == 0 {
		return nil, fmt.Errorf("claim %s has no encounters", c.ClaimNumber)
	}
	itemCount := 0
	for _, enc := range encs {
		items, err := s.lineItems.ListByEncounter(ctx, enc.ID)
		if err != nil {
			return nil, err
		}
		itemCount += len(items)
	}
	if itemCount == 0 {
		return nil, fmt.Errorf("claim %s has no line items", c.ClaimNumber)
	}
	if c.Status == claim.StatusReceived {
		c.Status = claim.StatusInAudit
		if err := s.claims.Update(ctx, c); err != nil {
			return nil, err
		}
	}
	return map[string]interface{}{
		"claim_number": c.ClaimNumber,
		"encounters":   len(encs),
		"line_items":   itemCount,
		"total_amount": c.TotalAmount,
	}, nil
}

func (s *Service) stepPriceTariffs(ctx context.Context, claimID uuid.UUID) (map[string]interface{}, error) {
	c, err := s.getClaim(ctx, claimID)
	if err != nil {
		return nil, err
	}
	resolved, err := s.tariffs.Resolve(ctx, c.PayerNIT, c.IssuedAt)
	if err != nil {
		return nil, err
	}
	table, err := s.tariffs.PriceTable(ctx, resolved.ID)
	if err != nil {
		return nil, err
	}
	pricer := NewPricer(table)

	items, err := s.lineItems.ListByClaim(ctx, claimID)
	if err != nil {
		return nil, err
	}
	priced := 0
	var unpricedCodes []string
	for _, li := range items {
		if pricer.Price(li) {
			priced++
		} else {
			unpricedCodes = append(unpricedCodes, li.ProcedureCode)
			s.logger.Warn().
				Str("claim_id", claimID.String()).
				Str("procedure_code", li.ProcedureCode).
				Msg("procedure code not in tariff, item left unpriced")
		}
		if err := s.lineItems.Update(ctx, li); err != nil {
			return nil, err
		}
	}
	return map[string]interface{}{
		"tariff":         resolved.Name,
		"tariff_kind":    resolved.Kind,
		"priced":         priced,
		"unpriced":       len(unpricedCodes),
		"unpriced_codes": unpricedCodes,
	}, nil
}

func (s *Service) stepValidateAuthorizations(ctx context.Context, claimID uuid.UUID) (map[string]interface{}, error) {
	encs, err := s.encounters.ListByClaim(ctx, claimID)
	if err != nil {
		return nil, err
	}
	requiring, invalid := 0, 0
	for _, enc := range encs {
		items, err := s.lineItems.ListByEncounter(ctx, enc.ID)
		if err != nil {
			return nil, err
		}
		required, err := s.auth.Validate(ctx, enc, items)
		if err != nil {
			return nil, err
		}
		if required {
			requiring++
			if !enc.AuthorizationValid {
				invalid++
			}
		}
		if err := s.encounters.Update(ctx, enc); err != nil {
			return nil, err
		}
	}
	return map[string]interface{}{
		"requiring_authorization": requiring,
		"invalid_authorizations":  invalid,
	}, nil
}

func (s *Service) stepDetectDuplicates(ctx context.Context, claimID uuid.UUID) (map[string]interface{}, error) {
	encs, err := s.encounters.ListByClaim(ctx, claimID)
	if err != nil {
		return nil, err
	}
	duplicates := 0
	for _, enc := range encs {
		items, err := s.lineItems.ListByEncounter(ctx, enc.ID)
		if err != nil {
			return nil, err
		}
		duplicates += DetectDuplicates(items)
		for _, li := range items {
			if err := s.lineItems.Update(ctx, li); err != nil {
				return nil, err
			}
		}
	}
	return map[string]interface{}{"duplicates": duplicates}, nil
}

func (s *Service) stepValidatePertinence(ctx context.Context, claimID uuid.UUID) (map[string]interface{}, error) {
	encs, err := s.encounters.ListByClaim(ctx, claimID)
	if err != nil {
		return nil, err
	}
	nonPertinent := 0
	for _, enc := range encs {
		items, err := s.lineItems.ListByEncounter(ctx, enc.ID)
		if err != nil {
			return nil, err
		}
		n, err := s.pertinence.Validate(ctx, enc, items)
		if err != nil {
			return nil, err
		}
		nonPertinent += n
		for _, li := range items {
			if err := s.lineItems.Update(ctx, li); err != nil {
				return nil, err
			}
		}
	}
	return map[string]interface{}{"non_pertinent": nonPertinent}, nil
}

func (s *Service) stepApplyRules(ctx context.Context, claimID uuid.UUID) (map[string]interface{}, error) {
	c, err := s.getClaim(ctx, claimID)
	if err != nil {
		return nil, err
	}
	ruleSet, err := s.rules.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	encs, err := s.encounters.ListByClaim(ctx, claimID)
	if err != nil {
		return nil, err
	}

	glosasCreated := 0
	firedRules := make(map[string]bool)
	for _, enc := range encs {
		items, err := s.lineItems.ListByEncounter(ctx, enc.ID)
		if err != nil {
			return nil, err
		}
		for _, li := range items {
			facts := BuildFacts(li, enc)
			created, err := s.engine.Apply(ctx, li, facts, ruleSet)
			if err != nil {
				return nil, err
			}
			if len(created) == 0 {
				continue
			}
			glosasCreated += len(created)
			for _, g := range created {
				firedRules[g.RuleCode] = true
			}
			if err := s.lineItems.Update(ctx, li); err != nil {
				return nil, err
			}
		}
	}

	// Re-derive claim totals from the full glosa set, then freeze the claim
	// as audited until a human edits a glosa.
	glosas, err := s.glosas.ListByClaim(ctx, claimID)
	if err != nil {
		return nil, err
	}
	var totalDeductions float64
	for _, g := range glosas {
		if g.State == claim.GlosaRejected {
			continue
		}
		totalDeductions += g.Amount
	}
	c.TotalDeductions = totalDeductions
	c.AcceptedAmount = c.TotalAmount - totalDeductions
	c.Status = claim.StatusAudited
	if err := s.claims.Update(ctx, c); err != nil {
		return nil, err
	}

	fired := make([]string, 0, len(firedRules))
	for code := range firedRules {
		fired = append(fired, code)
	}
	sort.Strings(fired)
	return map[string]interface{}{
		"rules_evaluated":  len(ruleSet),
		"glosas_created":   glosasCreated,
		"fired_rules":      fired,
		"total_deductions": totalDeductions,
	}, nil
}

// -- helpers --

func (s *Service) getClaim(ctx context.Context, claimID uuid.UUID) (*claim.Claim, error) {
	c, err := s.claims.GetByID(ctx, claimID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, claim.ErrNotFound
	}
	return c, err
}

func (s *Service) getSession(ctx context.Context, sessionID uuid.UUID) (*Session, error) {
	sess, err := s.sessions.GetByID(ctx, sessionID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	return sess, err
}
