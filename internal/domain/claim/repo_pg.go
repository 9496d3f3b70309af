package claim

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/glosa/glosa/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// prefixCols qualifies every column in a comma-separated list with a table
// alias, for joined queries.
func prefixCols(cols, alias string) string {
	parts := strings.Split(cols, ",")
	for i, p := range parts {
		parts[i] = alias + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}

// =========== Claim Repository ===========

type claimRepoPG struct{ pool *pgxpool.Pool }

func NewClaimRepoPG(pool *pgxpool.Pool) ClaimRepository { return &claimRepoPG{pool: pool} }

func (r *claimRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const claimCols = `id, claim_number, provider_nit, provider_name, payer_nit, payer_name,
	contract_number, issued_at, total_amount, total_deductions, accepted_amount,
	status, created_at, updated_at`

func (r *claimRepoPG) scanClaim(row pgx.Row) (*Claim, error) {
	var c Claim
	err := row.Scan(&c.ID, &c.ClaimNumber, &c.ProviderNIT, &c.ProviderName, &c.PayerNIT, &c.PayerName,
		&c.ContractNumber, &c.IssuedAt, &c.TotalAmount, &c.TotalDeductions, &c.AcceptedAmount,
		&c.Status, &c.CreatedAt, &c.UpdatedAt)
	return &c, err
}

func (r *claimRepoPG) Create(ctx context.Context, c *Claim) error {
	c.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO claim (id, claim_number, provider_nit, provider_name, payer_nit, payer_name,
			contract_number, issued_at, total_amount, total_deductions, accepted_amount, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		c.ID, c.ClaimNumber, c.ProviderNIT, c.ProviderName, c.PayerNIT, c.PayerName,
		c.ContractNumber, c.IssuedAt, c.TotalAmount, c.TotalDeductions, c.AcceptedAmount, c.Status)
	return err
}

func (r *claimRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Claim, error) {
	return r.scanClaim(r.conn(ctx).QueryRow(ctx, `SELECT `+claimCols+` FROM claim WHERE id = $1`, id))
}

func (r *claimRepoPG) GetByNumber(ctx context.Context, claimNumber string) (*Claim, error) {
	return r.scanClaim(r.conn(ctx).QueryRow(ctx, `SELECT `+claimCols+` FROM claim WHERE claim_number = $1`, claimNumber))
}

func (r *claimRepoPG) Update(ctx context.Context, c *Claim) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE claim SET total_amount=$2, total_deductions=$3, accepted_amount=$4,
			status=$5, updated_at=NOW()
		WHERE id = $1`,
		c.ID, c.TotalAmount, c.TotalDeductions, c.AcceptedAmount, c.Status)
	return err
}

func (r *claimRepoPG) List(ctx context.Context, limit, offset int) ([]*Claim, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM claim`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+claimCols+` FROM claim ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Claim
	for rows.Next() {
		c, err := r.scanClaim(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, c)
	}
	return items, total, nil
}

func (r *claimRepoPG) ListByStatus(ctx context.Context, status string, limit, offset int) ([]*Claim, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM claim WHERE status = $1`, status).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+claimCols+` FROM claim WHERE status = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`, status, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Claim
	for rows.Next() {
		c, err := r.scanClaim(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, c)
	}
	return items, total, nil
}

// =========== Encounter Repository ===========

type encounterRepoPG struct{ pool *pgxpool.Pool }

func NewEncounterRepoPG(pool *pgxpool.Pool) EncounterRepository { return &encounterRepoPG{pool: pool} }

func (r *encounterRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const encounterCols = `id, claim_id, encounter_number, patient_document, patient_name,
	principal_diagnosis, secondary_diagnoses, start_date, end_date,
	authorization_number, authorization_date, authorization_valid, created_at`

func (r *encounterRepoPG) scanEncounter(row pgx.Row) (*Encounter, error) {
	var e Encounter
	err := row.Scan(&e.ID, &e.ClaimID, &e.EncounterNumber, &e.PatientDocument, &e.PatientName,
		&e.PrincipalDiagnosis, &e.SecondaryDiagnoses, &e.StartDate, &e.EndDate,
		&e.AuthorizationNumber, &e.AuthorizationDate, &e.AuthorizationValid, &e.CreatedAt)
	return &e, err
}

func (r *encounterRepoPG) Create(ctx context.Context, e *Encounter) error {
	e.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO encounter (id, claim_id, encounter_number, patient_document, patient_name,
			principal_diagnosis, secondary_diagnoses, start_date, end_date,
			authorization_number, authorization_date, authorization_valid)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		e.ID, e.ClaimID, e.EncounterNumber, e.PatientDocument, e.PatientName,
		e.PrincipalDiagnosis, e.SecondaryDiagnoses, e.StartDate, e.EndDate,
		e.AuthorizationNumber, e.AuthorizationDate, e.AuthorizationValid)
	return err
}

func (r *encounterRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Encounter, error) {
	return r.scanEncounter(r.conn(ctx).QueryRow(ctx, `SELECT `+encounterCols+` FROM encounter WHERE id = $1`, id))
}

func (r *encounterRepoPG) ListByClaim(ctx context.Context, claimID uuid.UUID) ([]*Encounter, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+encounterCols+` FROM encounter WHERE claim_id = $1 ORDER BY encounter_number`, claimID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Encounter
	for rows.Next() {
		e, err := r.scanEncounter(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, nil
}

func (r *encounterRepoPG) Update(ctx context.Context, e *Encounter) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE encounter SET authorization_number=$2, authorization_date=$3, authorization_valid=$4
		WHERE id = $1`,
		e.ID, e.AuthorizationNumber, e.AuthorizationDate, e.AuthorizationValid)
	return err
}

// =========== LineItem Repository ===========

type lineItemRepoPG struct{ pool *pgxpool.Pool }

func NewLineItemRepoPG(pool *pgxpool.Pool) LineItemRepository { return &lineItemRepoPG{pool: pool} }

func (r *lineItemRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const lineItemCols = `id, encounter_id, procedure_code, description, quantity,
	billed_unit_price, billed_total, contracted_unit_price, contracted_total,
	deducted_total, payable, duplicate, tariff_validated, pertinence_validated,
	support_docs_present, sort_order, created_at`

func (r *lineItemRepoPG) scanLineItem(row pgx.Row) (*LineItem, error) {
	var li LineItem
	err := row.Scan(&li.ID, &li.EncounterID, &li.ProcedureCode, &li.Description, &li.Quantity,
		&li.BilledUnitPrice, &li.BilledTotal, &li.ContractedUnitPrice, &li.ContractedTotal,
		&li.DeductedTotal, &li.Payable, &li.Duplicate, &li.TariffValidated, &li.PertinenceValidated,
		&li.SupportDocsPresent, &li.SortOrder, &li.CreatedAt)
	return &li, err
}

func (r *lineItemRepoPG) Create(ctx context.Context, li *LineItem) error {
	li.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO line_item (id, encounter_id, procedure_code, description, quantity,
			billed_unit_price, billed_total, contracted_unit_price, contracted_total,
			deducted_total, payable, duplicate, tariff_validated, pertinence_validated,
			support_docs_present, sort_order)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`,
		li.ID, li.EncounterID, li.ProcedureCode, li.Description, li.Quantity,
		li.BilledUnitPrice, li.BilledTotal, li.ContractedUnitPrice, li.ContractedTotal,
		li.DeductedTotal, li.Payable, li.Duplicate, li.TariffValidated, li.PertinenceValidated,
		li.SupportDocsPresent, li.SortOrder)
	return err
}

func (r *lineItemRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*LineItem, error) {
	return r.scanLineItem(r.conn(ctx).QueryRow(ctx, `SELECT `+lineItemCols+` FROM line_item WHERE id = $1`, id))
}

func (r *lineItemRepoPG) ListByEncounter(ctx context.Context, encounterID uuid.UUID) ([]*LineItem, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+lineItemCols+` FROM line_item WHERE encounter_id = $1 ORDER BY sort_order`, encounterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*LineItem
	for rows.Next() {
		li, err := r.scanLineItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, li)
	}
	return items, nil
}

func (r *lineItemRepoPG) ListByClaim(ctx context.Context, claimID uuid.UUID) ([]*LineItem, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+prefixCols(lineItemCols, "li.")+`
		FROM line_item li
		JOIN encounter e ON e.id = li.encounter_id
		WHERE e.claim_id = $1
		ORDER BY e.encounter_number, li.sort_order`, claimID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*LineItem
	for rows.Next() {
		li, err := r.scanLineItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, li)
	}
	return items, nil
}

func (r *lineItemRepoPG) Update(ctx context.Context, li *LineItem) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE line_item SET contracted_unit_price=$2, contracted_total=$3,
			deducted_total=$4, payable=$5, duplicate=$6, tariff_validated=$7,
			pertinence_validated=$8, support_docs_present=$9
		WHERE id = $1`,
		li.ID, li.ContractedUnitPrice, li.ContractedTotal,
		li.DeductedTotal, li.Payable, li.Duplicate, li.TariffValidated,
		li.PertinenceValidated, li.SupportDocsPresent)
	return err
}

// =========== Glosa Repository ===========

type glosaRepoPG struct{ pool *pgxpool.Pool }

func NewGlosaRepoPG(pool *pgxpool.Pool) GlosaRepository { return &glosaRepoPG{pool: pool} }

func (r *glosaRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const glosaCols = `id, line_item_id, rule_code, category, amount, percentage,
	justification, state, auto_generated, created_at, updated_at`

func (r *glosaRepoPG) scanGlosa(row pgx.Row) (*Glosa, error) {
	var g Glosa
	err := row.Scan(&g.ID, &g.LineItemID, &g.RuleCode, &g.Category, &g.Amount, &g.Percentage,
		&g.Justification, &g.State, &g.AutoGenerated, &g.CreatedAt, &g.UpdatedAt)
	return &g, err
}

func (r *glosaRepoPG) CreateIfAbsent(ctx context.Context, g *Glosa) (bool, error) {
	g.ID = uuid.New()
	tag, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO glosa (id, line_item_id, rule_code, category, amount, percentage,
			justification, state, auto_generated)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (line_item_id, rule_code) DO NOTHING`,
		g.ID, g.LineItemID, g.RuleCode, g.Category, g.Amount, g.Percentage,
		g.Justification, g.State, g.AutoGenerated)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *glosaRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Glosa, error) {
	return r.scanGlosa(r.conn(ctx).QueryRow(ctx, `SELECT `+glosaCols+` FROM glosa WHERE id = $1`, id))
}

func (r *glosaRepoPG) ListByLineItem(ctx context.Context, lineItemID uuid.UUID) ([]*Glosa, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+glosaCols+` FROM glosa WHERE line_item_id = $1 ORDER BY created_at`, lineItemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Glosa
	for rows.Next() {
		g, err := r.scanGlosa(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, g)
	}
	return items, nil
}

func (r *glosaRepoPG) ListByClaim(ctx context.Context, claimID uuid.UUID) ([]*Glosa, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+prefixCols(glosaCols, "g.")+`
		FROM glosa g
		JOIN line_item li ON li.id = g.line_item_id
		JOIN encounter e ON e.id = li.encounter_id
		WHERE e.claim_id = $1
		ORDER BY e.encounter_number, li.sort_order, g.created_at`, claimID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Glosa
	for rows.Next() {
		g, err := r.scanGlosa(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, g)
	}
	return items, nil
}

func (r *glosaRepoPG) Update(ctx context.Context, g *Glosa) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE glosa SET amount=$2, percentage=$3, justification=$4, state=$5, updated_at=NOW()
		WHERE id = $1`,
		g.ID, g.Amount, g.Percentage, g.Justification, g.State)
	return err
}
