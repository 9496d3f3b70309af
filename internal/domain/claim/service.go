package claim

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// TxRunner executes fn inside a database transaction. The no-op runner used
// in tests just calls fn.
type TxRunner func(ctx context.Context, fn func(context.Context) error) error

func passthrough(ctx context.Context, fn func(context.Context) error) error { return fn(ctx) }

type Service struct {
	claims     ClaimRepository
	encounters EncounterRepository
	lineItems  LineItemRepository
	glosas     GlosaRepository
	runTx      TxRunner
}

func NewService(cl ClaimRepository, enc EncounterRepository, li LineItemRepository, gl GlosaRepository, runTx TxRunner) *Service {
	if runTx == nil {
		runTx = passthrough
	}
	return &Service{claims: cl, encounters: enc, lineItems: li, glosas: gl, runTx: runTx}
}

var validClaimStatuses = map[string]bool{
	StatusReceived: true, StatusInAudit: true, StatusAudited: true, StatusClosed: true,
}

// claimTransitions holds the allowed status moves of the audit lifecycle.
var claimTransitions = map[string][]string{
	StatusReceived: {StatusInAudit},
	StatusInAudit:  {StatusAudited, StatusReceived},
	StatusAudited:  {StatusClosed},
}

var validGlosaStates = map[string]bool{
	GlosaPending: true, GlosaAccepted: true, GlosaRejected: true, GlosaInDiscussion: true,
}

// -- Ingestion --

// LineItemInput is one billed service inside an ingested encounter.
type LineItemInput struct {
	ProcedureCode      string  `json:"procedure_code"`
	Description        *string `json:"description,omitempty"`
	Quantity           int     `json:"quantity"`
	UnitPrice          float64 `json:"unit_price"`
	SupportDocsPresent bool    `json:"support_docs_present"`
}

// EncounterInput is one patient visit inside an ingested claim.
type EncounterInput struct {
	EncounterNumber     string          `json:"encounter_number"`
	PatientDocument     string          `json:"patient_document"`
	PatientName         *string         `json:"patient_name,omitempty"`
	PrincipalDiagnosis  string          `json:"principal_diagnosis"`
	SecondaryDiagnoses  []string        `json:"secondary_diagnoses,omitempty"`
	StartDate           time.Time       `json:"start_date"`
	EndDate             *time.Time      `json:"end_date,omitempty"`
	AuthorizationNumber *string         `json:"authorization_number,omitempty"`
	AuthorizationDate   *time.Time      `json:"authorization_date,omitempty"`
	LineItems           []LineItemInput `json:"line_items"`
}

// IngestInput is the full claim payload as submitted by the provider.
type IngestInput struct {
	ClaimNumber    string           `json:"claim_number"`
	ProviderNIT    string           `json:"provider_nit"`
	ProviderName   *string          `json:"provider_name,omitempty"`
	PayerNIT       string           `json:"payer_nit"`
	PayerName      *string          `json:"payer_name,omitempty"`
	ContractNumber *string          `json:"contract_number,omitempty"`
	IssuedAt       time.Time        `json:"issued_at"`
	Encounters     []EncounterInput `json:"encounters"`
}

// Ingest persists a full claim with its encounters and line items in one
// transaction. Billed totals are computed server-side; the audit fills in
// contracted figures later.
func (s *Service) Ingest(ctx context.Context, in *IngestInput) (*Claim, error) {
	if in.ClaimNumber == "" {
		return nil, fmt.Errorf("claim_number is required")
	}
	if in.ProviderNIT == "" {
		return nil, fmt.Errorf("provider_nit is required")
	}
	if in.PayerNIT == "" {
		return nil, fmt.Errorf("payer_nit is required")
	}
	if in.IssuedAt.IsZero() {
		return nil, fmt.Errorf("issued_at is required")
	}
	if len(in.Encounters) == 0 {
		return nil, fmt.Errorf("at least one encounter is required")
	}
	for i, enc := range in.Encounters {
		if enc.EncounterNumber == "" {
			return nil, fmt.Errorf("encounter %d: encounter_number is required", i)
		}
		if enc.PatientDocument == "" {
			return nil, fmt.Errorf("encounter %s: patient_document is required", enc.EncounterNumber)
		}
		if enc.PrincipalDiagnosis == "" {
			return nil, fmt.Errorf("encounter %s: principal_diagnosis is required", enc.EncounterNumber)
		}
		if enc.StartDate.IsZero() {
			return nil, fmt.Errorf("encounter %s: start_date is required", enc.EncounterNumber)
		}
		for j, li := range enc.LineItems {
			if li.ProcedureCode == "" {
				return nil, fmt.Errorf("encounter %s, item %d: procedure_code is required", enc.EncounterNumber, j)
			}
			if li.Quantity <= 0 {
				return nil, fmt.Errorf("encounter %s, item %d: quantity must be positive", enc.EncounterNumber, j)
			}
			if li.UnitPrice < 0 {
				return nil, fmt.Errorf("encounter %s, item %d: unit_price must not be negative", enc.EncounterNumber, j)
			}
		}
	}

	c := &Claim{
		ClaimNumber:    in.ClaimNumber,
		ProviderNIT:    in.ProviderNIT,
		ProviderName:   in.ProviderName,
		PayerNIT:       in.PayerNIT,
		PayerName:      in.PayerName,
		ContractNumber: in.ContractNumber,
		IssuedAt:       in.IssuedAt,
		Status:         StatusReceived,
	}
	for _, enc := range in.Encounters {
		for _, li := range enc.LineItems {
			c.TotalAmount += float64(li.Quantity) * li.UnitPrice
		}
	}
	c.AcceptedAmount = c.TotalAmount

	err := s.runTx(ctx, func(ctx context.Context) error {
		if err := s.claims.Create(ctx, c); err != nil {
			return err
		}
		for _, encIn := range in.Encounters {
			e := &Encounter{
				ClaimID:             c.ID,
				EncounterNumber:     encIn.EncounterNumber,
				PatientDocument:     encIn.PatientDocument,
				PatientName:         encIn.PatientName,
				PrincipalDiagnosis:  encIn.PrincipalDiagnosis,
				SecondaryDiagnoses:  encIn.SecondaryDiagnoses,
				StartDate:           encIn.StartDate,
				EndDate:             encIn.EndDate,
				AuthorizationNumber: encIn.AuthorizationNumber,
				AuthorizationDate:   encIn.AuthorizationDate,
			}
			if err := s.encounters.Create(ctx, e); err != nil {
				return err
			}
			for j, liIn := range encIn.LineItems {
				billed := float64(liIn.Quantity) * liIn.UnitPrice
				li := &LineItem{
					EncounterID:        e.ID,
					ProcedureCode:      liIn.ProcedureCode,
					Description:        liIn.Description,
					Quantity:           liIn.Quantity,
					BilledUnitPrice:    liIn.UnitPrice,
					BilledTotal:        billed,
					Payable:            billed,
					SupportDocsPresent: liIn.SupportDocsPresent,
					SortOrder:          j,
				}
				if err := s.lineItems.Create(ctx, li); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// -- Reads --

func (s *Service) GetClaim(ctx context.Context, id uuid.UUID) (*Claim, error) {
	c, err := s.claims.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return c, err
}

func (s *Service) GetClaimByNumber(ctx context.Context, claimNumber string) (*Claim, error) {
	c, err := s.claims.GetByNumber(ctx, claimNumber)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return c, err
}

func (s *Service) ListClaims(ctx context.Context, status string, limit, offset int) ([]*Claim, int, error) {
	if status != "" {
		if !validClaimStatuses[status] {
			return nil, 0, fmt.Errorf("invalid claim status: %s", status)
		}
		return s.claims.ListByStatus(ctx, status, limit, offset)
	}
	return s.claims.List(ctx, limit, offset)
}

// EncounterDetail is an encounter with its line items.
type EncounterDetail struct {
	*Encounter
	LineItems []*LineItem `json:"line_items"`
}

// ClaimDetail is a claim with its full tree: encounters, line items, glosas.
type ClaimDetail struct {
	*Claim
	Encounters []*EncounterDetail `json:"encounters"`
	Glosas     []*Glosa           `json:"glosas"`
}

func (s *Service) GetClaimDetail(ctx context.Context, id uuid.UUID) (*ClaimDetail, error) {
	c, err := s.GetClaim(ctx, id)
	if err != nil {
		return nil, err
	}
	encs, err := s.encounters.ListByClaim(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	detail := &ClaimDetail{Claim: c}
	for _, e := range encs {
		items, err := s.lineItems.ListByEncounter(ctx, e.ID)
		if err != nil {
			return nil, err
		}
		detail.Encounters = append(detail.Encounters, &EncounterDetail{Encounter: e, LineItems: items})
	}
	detail.Glosas, err = s.glosas.ListByClaim(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	return detail, nil
}

func (s *Service) ListGlosasByClaim(ctx context.Context, claimID uuid.UUID) ([]*Glosa, error) {
	return s.glosas.ListByClaim(ctx, claimID)
}

func (s *Service) ListEncounters(ctx context.Context, claimID uuid.UUID) ([]*Encounter, error) {
	if _, err := s.GetClaim(ctx, claimID); err != nil {
		return nil, err
	}
	return s.encounters.ListByClaim(ctx, claimID)
}

func (s *Service) ListLineItems(ctx context.Context, encounterID uuid.UUID) ([]*LineItem, error) {
	if _, err := s.encounters.GetByID(ctx, encounterID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s.lineItems.ListByEncounter(ctx, encounterID)
}

func (s *Service) ListGlosasByLineItem(ctx context.Context, lineItemID uuid.UUID) ([]*Glosa, error) {
	if _, err := s.lineItems.GetByID(ctx, lineItemID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s.glosas.ListByLineItem(ctx, lineItemID)
}

// -- Status lifecycle --

func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*Claim, error) {
	if !validClaimStatuses[status] {
		return nil, fmt.Errorf("invalid claim status: %s", status)
	}
	c, err := s.GetClaim(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Status == StatusClosed {
		return nil, ErrClosed
	}
	allowed := false
	for _, next := range claimTransitions[c.Status] {
		if next == status {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, fmt.Errorf("cannot move claim from %s to %s", c.Status, status)
	}
	c.Status = status
	if err := s.claims.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// -- Glosa edits --

// GlosaUpdateInput carries the fields an auditor may change on a glosa.
// Nil fields are left untouched.
type GlosaUpdateInput struct {
	Amount        *float64 `json:"amount,omitempty"`
	Justification *string  `json:"justification,omitempty"`
	State         *string  `json:"state,omitempty"`
}

// UpdateGlosa applies a manual edit to a glosa and recomputes the affected
// line item and claim totals. Rejected glosas stop counting as deductions.
func (s *Service) UpdateGlosa(ctx context.Context, glosaID uuid.UUID, in *GlosaUpdateInput) (*Glosa, error) {
	g, err := s.glosas.GetByID(ctx, glosaID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("glosa not found")
	}
	if err != nil {
		return nil, err
	}
	li, err := s.lineItems.GetByID(ctx, g.LineItemID)
	if err != nil {
		return nil, err
	}
	enc, err := s.encounters.GetByID(ctx, li.EncounterID)
	if err != nil {
		return nil, err
	}
	c, err := s.claims.GetByID(ctx, enc.ClaimID)
	if err != nil {
		return nil, err
	}
	if c.Status == StatusClosed {
		return nil, ErrClosed
	}

	if in.Amount != nil {
		if *in.Amount < 0 {
			return nil, fmt.Errorf("glosa amount must not be negative")
		}
		g.Amount = *in.Amount
	}
	if in.Justification != nil {
		g.Justification = *in.Justification
	}
	if in.State != nil {
		if !validGlosaStates[*in.State] {
			return nil, fmt.Errorf("invalid glosa state: %s", *in.State)
		}
		g.State = *in.State
	}

	err = s.runTx(ctx, func(ctx context.Context) error {
		if err := s.glosas.Update(ctx, g); err != nil {
			return err
		}
		return s.recomputeTotals(ctx, c)
	})
	if err != nil {
		return nil, err
	}
	return g, nil
}

// RecomputeTotals re-derives line item and claim money figures from the
// current glosa set.
func (s *Service) RecomputeTotals(ctx context.Context, claimID uuid.UUID) error {
	c, err := s.GetClaim(ctx, claimID)
	if err != nil {
		return err
	}
	return s.runTx(ctx, func(ctx context.Context) error {
		return s.recomputeTotals(ctx, c)
	})
}

func (s *Service) recomputeTotals(ctx context.Context, c *Claim) error {
	items, err := s.lineItems.ListByClaim(ctx, c.ID)
	if err != nil {
		return err
	}
	glosas, err := s.glosas.ListByClaim(ctx, c.ID)
	if err != nil {
		return err
	}

	deductedByItem := make(map[uuid.UUID]float64, len(items))
	for _, g := range glosas {
		if g.State == GlosaRejected {
			continue
		}
		deductedByItem[g.LineItemID] += g.Amount
	}

	var totalDeductions float64
	for _, li := range items {
		deducted := deductedByItem[li.ID]
		if li.DeductedTotal != deducted || li.Payable != li.BilledTotal-deducted {
			li.DeductedTotal = deducted
			li.Payable = li.BilledTotal - deducted
			if err := s.lineItems.Update(ctx, li); err != nil {
				return err
			}
		}
		totalDeductions += deducted
	}

	c.TotalDeductions = totalDeductions
	c.AcceptedAmount = c.TotalAmount - totalDeductions
	return s.claims.Update(ctx, c)
}
