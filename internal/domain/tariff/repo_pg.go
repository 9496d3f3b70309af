package tariff

import (
	"context"
	"time"

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

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const tariffCols = `id, name, kind, payer_nit, effective_start, effective_end,
	active, created_at, updated_at`

func (r *repoPG) scanTariff(row pgx.Row) (*Tariff, error) {
	var t Tariff
	err := row.Scan(&t.ID, &t.Name, &t.Kind, &t.PayerNIT, &t.EffectiveStart, &t.EffectiveEnd,
		&t.Active, &t.CreatedAt, &t.UpdatedAt)
	return &t, err
}

func (r *repoPG) Create(ctx context.Context, t *Tariff) error {
	t.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO tariff (id, name, kind, payer_nit, effective_start, effective_end, active)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		t.ID, t.Name, t.Kind, t.PayerNIT, t.EffectiveStart, t.EffectiveEnd, t.Active)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Tariff, error) {
	return r.scanTariff(r.conn(ctx).QueryRow(ctx, `SELECT `+tariffCols+` FROM tariff WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, t *Tariff) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE tariff SET name=$2, effective_start=$3, effective_end=$4, active=$5, updated_at=NOW()
		WHERE id = $1`,
		t.ID, t.Name, t.EffectiveStart, t.EffectiveEnd, t.Active)
	return err
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Tariff, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM tariff`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+tariffCols+` FROM tariff ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Tariff
	for rows.Next() {
		t, err := r.scanTariff(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, t)
	}
	return items, total, nil
}

func (r *repoPG) ListActiveContracts(ctx context.Context, payerNIT string, date time.Time) ([]*Tariff, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+tariffCols+` FROM tariff
		WHERE kind = 'contract' AND active AND payer_nit = $1
			AND effective_start <= $2
			AND (effective_end IS NULL OR effective_end >= $2)
		ORDER BY effective_start DESC`, payerNIT, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Tariff
	for rows.Next() {
		t, err := r.scanTariff(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, nil
}

func (r *repoPG) ListActiveReference(ctx context.Context, date time.Time) ([]*Tariff, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+tariffCols+` FROM tariff
		WHERE kind = 'reference' AND active
			AND effective_start <= $1
			AND (effective_end IS NULL OR effective_end >= $1)
		ORDER BY effective_start DESC`, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Tariff
	for rows.Next() {
		t, err := r.scanTariff(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, nil
}

const entryCols = `id, tariff_id, procedure_code, description, unit_price, created_at`

func (r *repoPG) UpsertEntry(ctx context.Context, e *Entry) error {
	e.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO tariff_entry (id, tariff_id, procedure_code, description, unit_price)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (tariff_id, procedure_code)
		DO UPDATE SET description = EXCLUDED.description, unit_price = EXCLUDED.unit_price`,
		e.ID, e.TariffID, e.ProcedureCode, e.Description, e.UnitPrice)
	return err
}

func (r *repoPG) ListEntries(ctx context.Context, tariffID uuid.UUID) ([]*Entry, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+entryCols+` FROM tariff_entry WHERE tariff_id = $1 ORDER BY procedure_code`, tariffID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.TariffID, &e.ProcedureCode, &e.Description, &e.UnitPrice, &e.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, &e)
	}
	return items, nil
}

func (r *repoPG) GetEntry(ctx context.Context, tariffID uuid.UUID, procedureCode string) (*Entry, error) {
	var e Entry
	err := r.conn(ctx).QueryRow(ctx, `SELECT `+entryCols+` FROM tariff_entry WHERE tariff_id = $1 AND procedure_code = $2`,
		tariffID, procedureCode).
		Scan(&e.ID, &e.TariffID, &e.ProcedureCode, &e.Description, &e.UnitPrice, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}
