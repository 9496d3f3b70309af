package rules

import (
	"context"
	"encoding/json"

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

const ruleCols = `id, code, name, category, description, priority, logical_op,
	conditions, pricing, active, created_at, updated_at`

func (r *repoPG) scanRule(row pgx.Row) (*AuditRule, error) {
	var ar AuditRule
	var conditions, pricing []byte
	err := row.Scan(&ar.ID, &ar.Code, &ar.Name, &ar.Category, &ar.Description, &ar.Priority, &ar.LogicalOp,
		&conditions, &pricing, &ar.Active, &ar.CreatedAt, &ar.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(conditions, &ar.Conditions); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(pricing, &ar.Pricing); err != nil {
		return nil, err
	}
	return &ar, nil
}

func (r *repoPG) Create(ctx context.Context, ar *AuditRule) error {
	ar.ID = uuid.New()
	conditions, err := json.Marshal(ar.Conditions)
	if err != nil {
		return err
	}
	pricing, err := json.Marshal(ar.Pricing)
	if err != nil {
		return err
	}
	_, err = r.conn(ctx).Exec(ctx, `
		INSERT INTO audit_rule (id, code, name, category, description, priority, logical_op,
			conditions, pricing, active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		ar.ID, ar.Code, ar.Name, ar.Category, ar.Description, ar.Priority, ar.LogicalOp,
		conditions, pricing, ar.Active)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*AuditRule, error) {
	return r.scanRule(r.conn(ctx).QueryRow(ctx, `SELECT `+ruleCols+` FROM audit_rule WHERE id = $1`, id))
}

func (r *repoPG) GetByCode(ctx context.Context, code string) (*AuditRule, error) {
	return r.scanRule(r.conn(ctx).QueryRow(ctx, `SELECT `+ruleCols+` FROM audit_rule WHERE code = $1`, code))
}

func (r *repoPG) Update(ctx context.Context, ar *AuditRule) error {
	conditions, err := json.Marshal(ar.Conditions)
	if err != nil {
		return err
	}
	pricing, err := json.Marshal(ar.Pricing)
	if err != nil {
		return err
	}
	_, err = r.conn(ctx).Exec(ctx, `
		UPDATE audit_rule SET name=$2, category=$3, description=$4, priority=$5,
			logical_op=$6, conditions=$7, pricing=$8, active=$9, updated_at=NOW()
		WHERE id = $1`,
		ar.ID, ar.Name, ar.Category, ar.Description, ar.Priority,
		ar.LogicalOp, conditions, pricing, ar.Active)
	return err
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM audit_rule WHERE id = $1`, id)
	return err
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*AuditRule, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM audit_rule`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+ruleCols+` FROM audit_rule ORDER BY priority, code LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*AuditRule
	for rows.Next() {
		ar, err := r.scanRule(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, ar)
	}
	return items, total, nil
}

func (r *repoPG) ListActive(ctx context.Context) ([]*AuditRule, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+ruleCols+` FROM audit_rule WHERE active ORDER BY priority, code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*AuditRule
	for rows.Next() {
		ar, err := r.scanRule(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, ar)
	}
	return items, nil
}
