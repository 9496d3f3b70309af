package audit

import (
	"context"
	"testing"
	"time"

	"github.com/glosa/glosa/internal/domain/claim"
	"github.com/glosa/glosa/internal/platform/terminology"
)

func date(y int, mo time.Month, d int) time.Time {
	return time.Date(y, mo, d, 0, 0, 0, 0, time.UTC)
}

func strPtr(s string) *string { return &s }

func TestDetectDuplicates_AAB(t *testing.T) {
	items := []*claim.LineItem{
		{ProcedureCode: "A", SortOrder: 0},
		{ProcedureCode: "A", SortOrder: 1},
		{ProcedureCode: "B", SortOrder: 2},
	}

	flagged := DetectDuplicates(items)
	if flagged != 1 {
		t.Fatalf("expected 1 flagged, got %d", flagged)
	}
	if items[0].Duplicate {
		t.Error("first A is canonical, must not be flagged")
	}
	if !items[1].Duplicate {
		t.Error("second A must be flagged")
	}
	if items[2].Duplicate {
		t.Error("B must not be flagged")
	}
}

func TestDetectDuplicates_StableAcrossInputOrder(t *testing.T) {
	// SortOrder, not slice position, decides which item is canonical.
	items := []*claim.LineItem{
		{ProcedureCode: "A", SortOrder: 1},
		{ProcedureCode: "A", SortOrder: 0},
	}

	DetectDuplicates(items)
	if !items[0].Duplicate {
		t.Error("item with higher sort order must be flagged")
	}
	if items[1].Duplicate {
		t.Error("item with lowest sort order is canonical")
	}

	// Re-running produces identical flags.
	DetectDuplicates(items)
	if !items[0].Duplicate || items[1].Duplicate {
		t.Error("re-run changed duplicate flags")
	}
}

func TestDetectDuplicates_NoDuplicates(t *testing.T) {
	items := []*claim.LineItem{
		{ProcedureCode: "A", SortOrder: 0, Duplicate: true},
		{ProcedureCode: "B", SortOrder: 1},
	}
	if flagged := DetectDuplicates(items); flagged != 0 {
		t.Errorf("expected 0 flagged, got %d", flagged)
	}
	if items[0].Duplicate {
		t.Error("stale duplicate flag must be cleared for canonical item")
	}
}

func TestAuthorizationValidator_Window(t *testing.T) {
	catalog := terminology.NewStaticCatalog([]string{"890201"})
	v := NewAuthorizationValidator(catalog, 30)
	items := []*claim.LineItem{{ProcedureCode: "890201"}}

	cases := []struct {
		name      string
		authDate  *time.Time
		start     time.Time
		wantValid bool
	}{
		{"10 days before start", timePtr(date(2024, 3, 1)), date(2024, 3, 11), true},
		{"same day", timePtr(date(2024, 3, 11)), date(2024, 3, 11), true},
		{"exactly 30 days", timePtr(date(2024, 2, 10)), date(2024, 3, 11), true},
		{"35 days stale", timePtr(date(2024, 2, 5)), date(2024, 3, 11), false},
		{"issued after start", timePtr(date(2024, 3, 12)), date(2024, 3, 11), false},
		{"no authorization", nil, date(2024, 3, 11), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			enc := &claim.Encounter{StartDate: tc.start, AuthorizationDate: tc.authDate}
			if tc.authDate != nil {
				enc.AuthorizationNumber = strPtr("AUT-123")
			}
			required, err := v.Validate(context.Background(), enc, items)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !required {
				t.Fatal("expected authorization to be required")
			}
			if enc.AuthorizationValid != tc.wantValid {
				t.Errorf("expected valid=%v, got %v", tc.wantValid, enc.AuthorizationValid)
			}
		})
	}
}

func TestAuthorizationValidator_NotRequired(t *testing.T) {
	catalog := terminology.NewStaticCatalog(nil)
	v := NewAuthorizationValidator(catalog, 30)

	enc := &claim.Encounter{StartDate: date(2024, 3, 11)}
	required, err := v.Validate(context.Background(), enc, []*claim.LineItem{{ProcedureCode: "902210"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if required {
		t.Error("no procedure requires authorization")
	}
	if !enc.AuthorizationValid {
		t.Error("flag must be trivially satisfied when authorization is not required")
	}
}

func TestPertinenceValidator_Permissive(t *testing.T) {
	v := NewPertinenceValidator(terminology.PermissivePolicy{})
	enc := &claim.Encounter{PrincipalDiagnosis: "J189"}
	items := []*claim.LineItem{{ProcedureCode: "890201"}, {ProcedureCode: "902210"}}

	n, err := v.Validate(context.Background(), enc, items)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 0 {
		t.Errorf("permissive policy flags nothing, got %d", n)
	}
	for _, li := range items {
		if !li.PertinenceValidated {
			t.Error("expected every item pertinence-validated")
		}
	}
}

type denyPolicy struct{ code string }

func (p denyPolicy) IsPertinent(_ context.Context, procedureCode, _ string) (bool, error) {
	return procedureCode != p.code, nil
}

func TestPertinenceValidator_Deny(t *testing.T) {
	v := NewPertinenceValidator(denyPolicy{code: "890201"})
	enc := &claim.Encounter{PrincipalDiagnosis: "J189"}
	items := []*claim.LineItem{{ProcedureCode: "890201"}, {ProcedureCode: "902210"}}

	n, err := v.Validate(context.Background(), enc, items)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 non-pertinent item, got %d", n)
	}
	if items[0].PertinenceValidated {
		t.Error("denied item must not be pertinence-validated")
	}
}

func timePtr(t time.Time) *time.Time { return &t }
