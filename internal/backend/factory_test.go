package backend

import (
	"context"
	"path/filepath"
	"testing"

	"martelinho/internal/config"
	"martelinho/internal/storage"
)

func TestFromAppConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.Config
		want    BackendType
		wantErr bool
	}{
		{name: "nil config", cfg: nil, wantErr: true},
		{name: "memory", cfg: &config.Config{DataBackend: "memory"}, want: MemoryBackend},
		{name: "sqlite", cfg: &config.Config{DataBackend: "sqlite", SQLiteDBPath: "x.db"}, want: SQLiteBackend},
		{name: "unknown", cfg: &config.Config{DataBackend: "sheets"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromAppConfig(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("FromAppConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got.Type != tt.want {
				t.Errorf("FromAppConfig() type = %v, want %v", got.Type, tt.want)
			}
		})
	}
}

func TestConfigValidate(t *testing.T) {
	if err := (Config{Type: SQLiteBackend}).Validate(); err == nil {
		t.Error("Validate() error = nil, want missing path error")
	}
	if err := (Config{Type: MemoryBackend}).Validate(); err != nil {
		t.Errorf("Validate() error = %v, want nil", err)
	}
	if got := GetBackendTypeStrings(); len(got) != 2 || got[0] != "sqlite" || got[1] != "memory" {
		t.Errorf("GetBackendTypeStrings() = %v", got)
	}
}

func TestCreateBackend(t *testing.T) {
	ctx := context.Background()
	factory := NewFactory(nil)

	cases := map[string]Config{
		"memory": {Type: MemoryBackend},
		"sqlite": {Type: SQLiteBackend, SQLiteDBPath: filepath.Join(t.TempDir(), "test.db")},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			res, err := factory.CreateBackend(ctx, cfg)
			if err != nil {
				t.Fatalf("CreateBackend() error = %v", err)
			}
			defer res.Close()

			if err := res.Ping(ctx); err != nil {
				t.Fatalf("Ping() error = %v", err)
			}
			row := storage.Row{
				storage.ColID:           "svc-1",
				storage.ColClientName:   "Ana",
				storage.ColServiceDate:  "2024-02-10",
				storage.ColCarPlate:     "ABC1D23",
				storage.ColCarModel:     "Gol",
				storage.ColServiceValue: "100.00",
				storage.ColAuthCode:     "AC000001",
				storage.ColCreatedAt:    "2024-02-10T12:00:00Z",
				storage.ColUpdatedAt:    "2024-02-10T12:00:00Z",
			}
			if err := res.Services.Insert(ctx, "tenant-1", row); err != nil {
				t.Fatalf("Insert() error = %v", err)
			}
			rows, err := res.Services.Select(ctx, storage.From("tenant-1"))
			if err != nil {
				t.Fatalf("Select() error = %v", err)
			}
			if len(rows) != 1 {
				t.Errorf("Select() returned %d rows, want 1", len(rows))
			}
		})
	}

	if _, err := factory.CreateBackend(ctx, Config{Type: "bogus"}); err == nil {
		t.Error("CreateBackend() error = nil for unknown backend")
	}
}
