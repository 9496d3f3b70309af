package claim

import (
	"time"

	"github.com/google/uuid"
)

// Claim statuses follow the audit lifecycle: a claim arrives, gets audited,
// and is eventually closed after the provider answers the glosas.
const (
	StatusReceived = "received"
	StatusInAudit  = "in-audit"
	StatusAudited  = "audited"
	StatusClosed   = "closed"
)

// Glosa states track the back-and-forth with the provider. The engine
// creates glosas as pending; a rejected glosa no longer counts against the
// claim's totals.
const (
	GlosaPending      = "pending"
	GlosaAccepted     = "accepted"
	GlosaRejected     = "rejected"
	GlosaInDiscussion = "in-discussion"
)

// Claim maps to the claim table. One claim covers one billing period of one
// provider against one payer; its encounters carry the actual line items.
type Claim struct {
	ID              uuid.UUID `db:"id" json:"id"`
	ClaimNumber     string    `db:"claim_number" json:"claim_number"`
	ProviderNIT     string    `db:"provider_nit" json:"provider_nit"`
	ProviderName    *string   `db:"provider_name" json:"provider_name,omitempty"`
	PayerNIT        string    `db:"payer_nit" json:"payer_nit"`
	PayerName       *string   `db:"payer_name" json:"payer_name,omitempty"`
	ContractNumber  *string   `db:"contract_number" json:"contract_number,omitempty"`
	IssuedAt        time.Time `db:"issued_at" json:"issued_at"`
	TotalAmount     float64   `db:"total_amount" json:"total_amount"`
	TotalDeductions float64   `db:"total_deductions" json:"total_deductions"`
	AcceptedAmount  float64   `db:"accepted_amount" json:"accepted_amount"`
	Status          string    `db:"status" json:"status"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// Encounter maps to the encounter table. Authorization data lives here, not
// on the line item: one authorization covers every service of the visit.
type Encounter struct {
	ID                  uuid.UUID  `db:"id" json:"id"`
	ClaimID             uuid.UUID  `db:"claim_id" json:"claim_id"`
	EncounterNumber     string     `db:"encounter_number" json:"encounter_number"`
	PatientDocument     string     `db:"patient_document" json:"patient_document"`
	PatientName         *string    `db:"patient_name" json:"patient_name,omitempty"`
	PrincipalDiagnosis  string     `db:"principal_diagnosis" json:"principal_diagnosis"`
	SecondaryDiagnoses  []string   `db:"secondary_diagnoses" json:"secondary_diagnoses,omitempty"`
	StartDate           time.Time  `db:"start_date" json:"start_date"`
	EndDate             *time.Time `db:"end_date" json:"end_date,omitempty"`
	AuthorizationNumber *string    `db:"authorization_number" json:"authorization_number,omitempty"`
	AuthorizationDate   *time.Time `db:"authorization_date" json:"authorization_date,omitempty"`
	AuthorizationValid  bool       `db:"authorization_valid" json:"authorization_valid"`
	CreatedAt           time.Time  `db:"created_at" json:"created_at"`
}

// HasAuthorization reports whether the encounter carries an authorization
// number at all. Validity against the service date is a separate question.
func (e *Encounter) HasAuthorization() bool {
	return e.AuthorizationNumber != nil && *e.AuthorizationNumber != ""
}

// LineItem maps to the line_item table. Billed figures come from the
// provider; contracted figures, flags and payable are filled in by the audit.
type LineItem struct {
	ID                  uuid.UUID `db:"id" json:"id"`
	EncounterID         uuid.UUID `db:"encounter_id" json:"encounter_id"`
	ProcedureCode       string    `db:"procedure_code" json:"procedure_code"`
	Description         *string   `db:"description" json:"description,omitempty"`
	Quantity            int       `db:"quantity" json:"quantity"`
	BilledUnitPrice     float64   `db:"billed_unit_price" json:"billed_unit_price"`
	BilledTotal         float64   `db:"billed_total" json:"billed_total"`
	ContractedUnitPrice float64   `db:"contracted_unit_price" json:"contracted_unit_price"`
	ContractedTotal     float64   `db:"contracted_total" json:"contracted_total"`
	DeductedTotal       float64   `db:"deducted_total" json:"deducted_total"`
	Payable             float64   `db:"payable" json:"payable"`
	Duplicate           bool      `db:"duplicate" json:"duplicate"`
	TariffValidated     bool      `db:"tariff_validated" json:"tariff_validated"`
	PertinenceValidated bool      `db:"pertinence_validated" json:"pertinence_validated"`
	SupportDocsPresent  bool      `db:"support_docs_present" json:"support_docs_present"`
	SortOrder           int       `db:"sort_order" json:"sort_order"`
	CreatedAt           time.Time `db:"created_at" json:"created_at"`
}

// Delta is the overbilling amount: billed total minus contracted total.
// Negative when the provider billed below tariff.
func (li *LineItem) Delta() float64 {
	return li.BilledTotal - li.ContractedTotal
}

// PercentageDelta is the delta relative to the contracted total, in percent.
// Zero when no contracted price has been resolved yet.
func (li *LineItem) PercentageDelta() float64 {
	if li.ContractedTotal == 0 {
		return 0
	}
	return li.Delta() / li.ContractedTotal * 100
}

// Glosa maps to the glosa table. One glosa is one deduction applied to one
// line item by one rule; the (line_item_id, rule_code) pair is unique.
type Glosa struct {
	ID            uuid.UUID `db:"id" json:"id"`
	LineItemID    uuid.UUID `db:"line_item_id" json:"line_item_id"`
	RuleCode      string    `db:"rule_code" json:"rule_code"`
	Category      string    `db:"category" json:"category"`
	Amount        float64   `db:"amount" json:"amount"`
	Percentage    *float64  `db:"percentage" json:"percentage,omitempty"`
	Justification string    `db:"justification" json:"justification"`
	State         string    `db:"state" json:"state"`
	AutoGenerated bool      `db:"auto_generated" json:"auto_generated"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}
