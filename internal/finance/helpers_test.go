package finance

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"martelinho/internal/core"
	"martelinho/internal/storage"
	"martelinho/internal/storage/memory"
)

const tenant = "tenant-1"

// seed stores one record per (date, value) pair; value is a raw storage value.
func seed(t *testing.T, tbl storage.Table, tenantID string, entries ...[2]any) {
	t.Helper()
	for _, e := range entries {
		d, err := core.ParseDate(e[0].(string))
		require.NoError(t, err)
		row := storage.ToRow(core.ServiceRecord{
			ID:            uuid.NewString(),
			TenantID:      tenantID,
			ClientName:    "Cliente",
			ServiceDate:   d,
			CarPlate:      "ABC1D23",
			CarModel:      "Onix",
			RepairedParts: []core.RepairedPart{core.PartCapo},
			AuthCode:      core.GenerateAuthCode(),
		})
		row[storage.ColServiceValue] = e[1]
		require.NoError(t, tbl.Insert(context.Background(), tenantID, row))
	}
}

func newTable(t *testing.T, entries ...[2]any) storage.Table {
	t.Helper()
	tbl := memory.New().Services()
	seed(t, tbl, tenant, entries...)
	return tbl
}

var errBackendDown = errors.New("backend down")

// recordingTable records every query and can fail selected windows.
type recordingTable struct {
	storage.Table
	mu      sync.Mutex
	queries []storage.Query
	failOn  string // start date of the window to fail, "" fails nothing
}

func (r *recordingTable) Select(ctx context.Context, q storage.Query) ([]storage.Row, error) {
	r.mu.Lock()
	r.queries = append(r.queries, q)
	r.mu.Unlock()
	for _, f := range q.Filters {
		if f.Op == storage.OpGte && f.Value == r.failOn {
			return nil, errBackendDown
		}
	}
	return r.Table.Select(ctx, q)
}
