package backend

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"budget/internal/config"
	"budget/internal/core"
	applog "budget/internal/log"
)

func quietFactory() Factory {
	return NewFactory(applog.New(applog.Config{Output: io.Discard}))
}

func TestFromAppConfig(t *testing.T) {
	cfg := &config.Config{
		DataBackend:     "mongo",
		MongoURI:        "mongodb://localhost:27017",
		MongoDatabase:   "streamlit",
		MongoCollection: "budget_tracking",
		MemorySeedFile:  "seed.json",
	}
	bc, err := FromAppConfig(cfg)
	require.NoError(t, err)
	require.Equal(t, MongoBackend, bc.Type)
	require.Equal(t, "budget_tracking", bc.MongoCollection)
	require.Equal(t, "seed.json", bc.SeedFile)

	_, err = FromAppConfig(&config.Config{DataBackend: "sheets"})
	require.Error(t, err)

	_, err = FromAppConfig(nil)
	require.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"sqlite ok", Config{Type: SQLiteBackend, SQLiteDBPath: "x.db"}, false},
		{"sqlite missing path", Config{Type: SQLiteBackend}, true},
		{"mongo missing uri", Config{Type: MongoBackend}, true},
		{"postgres missing url", Config{Type: PostgresBackend}, true},
		{"postgres ok", Config{Type: PostgresBackend, PostgresURL: "postgres://localhost/db"}, false},
		{"memory", Config{Type: MemoryBackend}, false},
		{"unknown", Config{Type: "sheets"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestGetBackendTypeStrings(t *testing.T) {
	require.Equal(t, []string{"sqlite", "mongo", "postgres", "memory"}, GetBackendTypeStrings())
}

func TestCreateMemoryBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"key":"2024_January","incomes":{"Salary":10},"expenses":{},"comment":""}]`), 0o600))

	res, err := quietFactory().CreateBackend(context.Background(), Config{Type: MemoryBackend, SeedFile: path})
	require.NoError(t, err)
	defer res.Close()

	p, err := res.Store.GetPeriod(context.Background(), "2024_January")
	require.NoError(t, err)
	require.NotNil(t, p)
	require.Equal(t, int64(10), p.Incomes["Salary"])
}

func TestCreateSQLiteBackend(t *testing.T) {
	res, err := quietFactory().CreateBackend(context.Background(), Config{
		Type:         SQLiteBackend,
		SQLiteDBPath: filepath.Join(t.TempDir(), "budget.db"),
	})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, res.Store.InsertPeriod(ctx, core.Period{Key: "2024_May", Incomes: core.Amounts{"Salary": 1}}))
	periods, err := res.Store.ListPeriods(ctx)
	require.NoError(t, err)
	require.Len(t, periods, 1)
	require.NoError(t, res.Close())
}

func TestCreateBackendRejectsInvalidConfig(t *testing.T) {
	_, err := quietFactory().CreateBackend(context.Background(), Config{Type: PostgresBackend})
	require.Error(t, err)
}

func TestNilResultClose(t *testing.T) {
	var r *BackendResult
	require.NoError(t, r.Close())
}
