package storage

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrNotFound       = errors.New("record not found")
	ErrTenantRequired = errors.New("tenant id is required")
	ErrUnknownColumn  = errors.New("unknown column")
	ErrConflict       = errors.New("record already exists")
)

// Column names of the services table.
const (
	ColID            = "id"
	ColTenantID      = "tenant_id"
	ColClientName    = "client_name"
	ColServiceDate   = "service_date"
	ColCarPlate      = "car_plate"
	ColCarModel      = "car_model"
	ColServiceValue  = "service_value"
	ColRepairedParts = "repaired_parts"
	ColRepairedPart  = "repaired_part" // legacy single-part column
	ColAuthCode      = "auth_code"
	ColNotes         = "notes"
	ColCreatedAt     = "created_at"
	ColUpdatedAt     = "updated_at"
)

// ServiceColumns lists every column of the services table in schema order.
var ServiceColumns = []string{
	ColID, ColTenantID, ColClientName, ColServiceDate, ColCarPlate, ColCarModel,
	ColServiceValue, ColRepairedParts, ColRepairedPart, ColAuthCode, ColNotes,
	ColCreatedAt, ColUpdatedAt,
}

var knownColumns = func() map[string]bool {
	m := make(map[string]bool, len(ServiceColumns))
	for _, c := range ServiceColumns {
		m[c] = true
	}
	return m
}()

// Row is a record as exchanged with the table: loosely typed column values.
// Dates travel as yyyy-MM-dd strings, money as numbers or numeric strings.
type Row map[string]any

// Op is a filter comparison operator.
type Op string

const (
	OpEq  Op = "eq"
	OpGte Op = "gte"
	OpLte Op = "lte"
)

func (o Op) sql() string {
	switch o {
	case OpGte:
		return ">="
	case OpLte:
		return "<="
	default:
		return "="
	}
}

type Filter struct {
	Column string
	Op     Op
	Value  any
}

// Query is a declarative, tenant-scoped read of the services table.
// Build it with From and the chainable methods; every method returns a copy.
type Query struct {
	TenantID   string
	Columns    []string
	Filters    []Filter
	OrderBy    string
	Descending bool
	Limit      int
}

// From starts a query scoped to a tenant.
func From(tenantID string) Query {
	return Query{TenantID: tenantID}
}

func (q Query) Select(columns ...string) Query {
	q.Columns = append(append([]string(nil), q.Columns...), columns...)
	return q
}

func (q Query) Eq(column string, value any) Query  { return q.where(column, OpEq, value) }
func (q Query) Gte(column string, value any) Query { return q.where(column, OpGte, value) }
func (q Query) Lte(column string, value any) Query { return q.where(column, OpLte, value) }

// Between is an inclusive range filter.
func (q Query) Between(column string, from, to any) Query {
	return q.Gte(column, from).Lte(column, to)
}

func (q Query) Order(column string, descending bool) Query {
	q.OrderBy = column
	q.Descending = descending
	return q
}

func (q Query) Take(n int) Query {
	q.Limit = n
	return q
}

func (q Query) where(column string, op Op, value any) Query {
	q.Filters = append(append([]Filter(nil), q.Filters...), Filter{Column: column, Op: op, Value: value})
	return q
}

// Validate checks tenant scoping and that every referenced column exists.
func (q Query) Validate() error {
	if q.TenantID == "" {
		return ErrTenantRequired
	}
	for _, c := range q.Columns {
		if !knownColumns[c] {
			return fmt.Errorf("%w: %s", ErrUnknownColumn, c)
		}
	}
	for _, f := range q.Filters {
		if !knownColumns[f.Column] {
			return fmt.Errorf("%w: %s", ErrUnknownColumn, f.Column)
		}
	}
	if q.OrderBy != "" && !knownColumns[q.OrderBy] {
		return fmt.Errorf("%w: %s", ErrUnknownColumn, q.OrderBy)
	}
	return nil
}

// SelectedColumns returns the projection, defaulting to every column.
func (q Query) SelectedColumns() []string {
	if len(q.Columns) == 0 {
		return ServiceColumns
	}
	return q.Columns
}

// Table is the services table of the storage backend. Every operation is
// scoped to the tenant passed explicitly by the caller.
type Table interface {
	Select(ctx context.Context, q Query) ([]Row, error)
	Insert(ctx context.Context, tenantID string, row Row) error
	Update(ctx context.Context, tenantID, id string, row Row) error
	Delete(ctx context.Context, tenantID, id string) error
}

// ValidateRow rejects writes to columns outside the schema.
func ValidateRow(row Row) error {
	for c := range row {
		if !knownColumns[c] {
			return fmt.Errorf("%w: %s", ErrUnknownColumn, c)
		}
	}
	return nil
}
