package tariff

import (
	"time"

	"github.com/google/uuid"
)

// Tariff kinds. Contract tariffs are negotiated per payer; reference tariffs
// (ISS/SOAT style manuals) are the fallback when no contract applies.
const (
	KindReference = "reference"
	KindContract  = "contract"
)

// Tariff maps to the tariff table. A contract tariff carries the payer it was
// negotiated with; reference tariffs have no payer.
type Tariff struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	Name           string     `db:"name" json:"name"`
	Kind           string     `db:"kind" json:"kind"`
	PayerNIT       *string    `db:"payer_nit" json:"payer_nit,omitempty"`
	EffectiveStart time.Time  `db:"effective_start" json:"effective_start"`
	EffectiveEnd   *time.Time `db:"effective_end" json:"effective_end,omitempty"`
	Active         bool       `db:"active" json:"active"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// Covers reports whether the tariff's effective window contains the date.
// An open-ended tariff covers everything from its start onward.
func (t *Tariff) Covers(date time.Time) bool {
	if date.Before(t.EffectiveStart) {
		return false
	}
	return t.EffectiveEnd == nil || !date.After(*t.EffectiveEnd)
}

// Entry maps to the tariff_entry table: one contracted unit price for one
// procedure code. (tariff_id, procedure_code) is unique.
type Entry struct {
	ID            uuid.UUID `db:"id" json:"id"`
	TariffID      uuid.UUID `db:"tariff_id" json:"tariff_id"`
	ProcedureCode string    `db:"procedure_code" json:"procedure_code"`
	Description   *string   `db:"description" json:"description,omitempty"`
	UnitPrice     float64   `db:"unit_price" json:"unit_price"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}
