package storage

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"martelinho/internal/core"
)

var ErrMalformedRow = errors.New("malformed row")

// ParseRow converts a loosely typed row into a ServiceRecord. It is the only
// place where storage values are interpreted: dates may carry a time part,
// the value may be a number or a numeric string and the parts may be stored
// in any of the shapes CoerceParts understands. A row without an id or with
// an unreadable date is rejected. An unreadable value becomes zero.
func ParseRow(row Row) (core.ServiceRecord, error) {
	id := stringOf(row[ColID])
	if id == "" {
		return core.ServiceRecord{}, fmt.Errorf("%w: missing id", ErrMalformedRow)
	}
	date, err := core.ParseDate(stringOf(row[ColServiceDate]))
	if err != nil {
		return core.ServiceRecord{}, fmt.Errorf("%w: service %s: %v", ErrMalformedRow, id, err)
	}
	cents, _ := core.CoerceCents(row[ColServiceValue])

	parts := core.CoerceParts(row[ColRepairedParts])
	if len(parts) == 0 {
		parts = core.CoerceParts(row[ColRepairedPart])
	}

	return core.ServiceRecord{
		ID:            id,
		TenantID:      stringOf(row[ColTenantID]),
		ClientName:    stringOf(row[ColClientName]),
		ServiceDate:   date,
		CarPlate:      stringOf(row[ColCarPlate]),
		CarModel:      stringOf(row[ColCarModel]),
		ServiceValue:  core.Money{Cents: cents},
		RepairedParts: parts,
		AuthCode:      stringOf(row[ColAuthCode]),
		Notes:         stringOf(row[ColNotes]),
		CreatedAt:     timeOf(row[ColCreatedAt]),
		UpdatedAt:     timeOf(row[ColUpdatedAt]),
	}, nil
}

// ToRow is the inverse of ParseRow for a complete record.
func ToRow(r core.ServiceRecord) Row {
	return Row{
		ColID:            r.ID,
		ColTenantID:      r.TenantID,
		ColClientName:    r.ClientName,
		ColServiceDate:   r.ServiceDate.String(),
		ColCarPlate:      r.CarPlate,
		ColCarModel:      r.CarModel,
		ColServiceValue:  r.ServiceValue.Decimal(),
		ColRepairedParts: core.EncodeParts(r.RepairedParts),
		ColAuthCode:      r.AuthCode,
		ColNotes:         r.Notes,
		ColCreatedAt:     formatTime(r.CreatedAt),
		ColUpdatedAt:     formatTime(r.UpdatedAt),
	}
}

// UpdateRow holds the columns an edit may change.
func UpdateRow(in core.ServiceInput, updatedAt time.Time) Row {
	return Row{
		ColClientName:    in.ClientName,
		ColServiceDate:   in.ServiceDate.String(),
		ColCarPlate:      in.CarPlate,
		ColCarModel:      in.CarModel,
		ColServiceValue:  in.ServiceValue.Decimal(),
		ColRepairedParts: core.EncodeParts(in.RepairedParts),
		ColNotes:         in.Notes,
		ColUpdatedAt:     formatTime(updatedAt),
	}
}

func stringOf(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	case time.Time:
		return val.Format(time.RFC3339)
	default:
		return fmt.Sprint(val)
	}
}

func timeOf(v any) time.Time {
	if t, ok := v.(time.Time); ok {
		return t.UTC()
	}
	s := strings.TrimSpace(stringOf(v))
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05", core.DateLayout} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}
