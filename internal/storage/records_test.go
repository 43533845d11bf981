package storage

import (
	"errors"
	"testing"
	"time"

	"martelinho/internal/core"
)

func TestParseRow(t *testing.T) {
	row := Row{
		ColID:            "b1c2",
		ColTenantID:      "tenant-1",
		ColClientName:    "João",
		ColServiceDate:   "2024-02-10T03:00:00-03:00",
		ColCarPlate:      "ABC1D23",
		ColCarModel:      "Onix",
		ColServiceValue:  "150.50",
		ColRepairedParts: `["teto","capo"]`,
		ColAuthCode:      "AC123456",
		ColCreatedAt:     "2024-02-10T12:00:00Z",
	}
	rec, err := ParseRow(row)
	if err != nil {
		t.Fatalf("ParseRow: %v", err)
	}
	if !rec.ServiceDate.Equal(core.NewDate(2024, time.February, 10)) {
		t.Errorf("date = %v", rec.ServiceDate)
	}
	if rec.ServiceValue.Cents != 15050 {
		t.Errorf("value = %d, want 15050", rec.ServiceValue.Cents)
	}
	if len(rec.RepairedParts) != 2 || rec.RepairedParts[0] != core.PartCapo {
		t.Errorf("parts = %v", rec.RepairedParts)
	}
	if rec.CreatedAt.IsZero() {
		t.Error("created_at not parsed")
	}
}

func TestParseRowLegacyAndMalformed(t *testing.T) {
	tests := []struct {
		name      string
		row       Row
		wantErr   bool
		wantCents int64
		wantParts int
	}{
		{
			name:      "legacy single part and float value",
			row:       Row{ColID: "1", ColServiceDate: "2024-01-05", ColServiceValue: 99.9, ColRepairedPart: "pintura"},
			wantCents: 9990,
			wantParts: 1,
		},
		{
			name:      "unreadable value is zero",
			row:       Row{ColID: "2", ColServiceDate: "2024-01-05", ColServiceValue: "abc", ColRepairedParts: "garbage"},
			wantCents: 0,
			wantParts: 0,
		},
		{
			name:    "missing id",
			row:     Row{ColServiceDate: "2024-01-05"},
			wantErr: true,
		},
		{
			name:    "bad date",
			row:     Row{ColID: "3", ColServiceDate: "05/01/2024"},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := ParseRow(tt.row)
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedRow) {
					t.Fatalf("err = %v, want ErrMalformedRow", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if rec.ServiceValue.Cents != tt.wantCents {
				t.Errorf("cents = %d, want %d", rec.ServiceValue.Cents, tt.wantCents)
			}
			if len(rec.RepairedParts) != tt.wantParts {
				t.Errorf("parts = %v", rec.RepairedParts)
			}
		})
	}
}

func TestToRowRoundTrip(t *testing.T) {
	rec := core.ServiceRecord{
		ID:            "id-1",
		TenantID:      "t",
		ClientName:    "Maria",
		ServiceDate:   core.NewDate(2024, time.March, 1),
		CarPlate:      "XYZ9A87",
		CarModel:      "Gol",
		ServiceValue:  core.Money{Cents: 123456},
		RepairedParts: []core.RepairedPart{core.PartPintura},
		AuthCode:      "ACZZZZZZ",
		CreatedAt:     time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC),
		UpdatedAt:     time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC),
	}
	row := ToRow(rec)
	if row[ColServiceValue] != "1234.56" {
		t.Errorf("service_value = %v", row[ColServiceValue])
	}
	back, err := ParseRow(row)
	if err != nil {
		t.Fatalf("ParseRow: %v", err)
	}
	if back.ServiceValue != rec.ServiceValue || !back.ServiceDate.Equal(rec.ServiceDate) || !back.CreatedAt.Equal(rec.CreatedAt) {
		t.Errorf("round trip mismatch: %+v", back)
	}
}
