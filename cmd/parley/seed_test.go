package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavelanni/parley/internal/llm"
	"github.com/pavelanni/parley/internal/model"
	"github.com/pavelanni/parley/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSeedStaff(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.Error(t, seedStaff(ctx, s, ""), "empty database needs a password")

	require.NoError(t, seedStaff(ctx, s, "s3cret"))
	u, err := s.GetUserByUsername(ctx, staffUsername)
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.True(t, u.IsStaff())

	require.NoError(t, seedStaff(ctx, s, ""), "existing users skip seeding")
	n, err := s.UserCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSeedScenariosIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, seedScenarios(ctx, s))
	require.NoError(t, seedScenarios(ctx, s))

	scenarios, err := s.ListScenarios(ctx)
	require.NoError(t, err)
	require.Len(t, scenarios, 3)
	names := []string{scenarios[0].Name, scenarios[1].Name, scenarios[2].Name}
	assert.ElementsMatch(t, []string{"Retail Customer Service", "Cafetaria Food Order", "Peer Conversation"}, names)
}

func writeScenarioFile(t *testing.T, path string, scenarios []model.ScenarioImport) {
	t.Helper()
	data, err := json.Marshal(scenarios)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func TestImportScenarios(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, seedScenarios(ctx, s))

	path := filepath.Join(t.TempDir(), "extra.json")
	writeScenarioFile(t, path, []model.ScenarioImport{
		{Name: "Job Interview", ModelRole: "interviewer", UserRole: "candidate"},
		{Name: "Peer Conversation", ModelRole: "classmate", UserRole: "student"},
	})

	require.NoError(t, importScenarios(ctx, s, []string{path}))
	count, err := s.ScenarioCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, count, "duplicate names are skipped")

	writeScenarioFile(t, path, []model.ScenarioImport{
		{Name: "Library Help", ModelRole: "visitor", UserRole: "librarian"},
	})
	require.NoError(t, importScenarios(ctx, s, []string{path}))
	count, err = s.ScenarioCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, count, "changed files are not re-imported")

	require.Error(t, importScenarios(ctx, s, []string{filepath.Join(t.TempDir(), "missing.json")}))
}

func TestNewGatewayDisabled(t *testing.T) {
	ctx := context.Background()
	cfg := llm.DefaultConfig()

	assert.False(t, newGateway(ctx, cfg, false).Available())

	cfg.Provider = "anthropic" // no API key
	assert.False(t, newGateway(ctx, cfg, true).Available())

	cfg.Provider = "mock"
	assert.True(t, newGateway(ctx, cfg, true).Available())
}

func TestLockAndExportCommands(t *testing.T) {
	db := filepath.Join(t.TempDir(), "parley.db")

	root := rootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"lock", "on", "--db", db})
	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "maintenance lock on")

	s, err := store.New(db)
	require.NoError(t, err)
	locked, err := s.UsageLocked(context.Background())
	require.NoError(t, err)
	assert.True(t, locked)
	require.NoError(t, s.Close())

	root = rootCmd()
	out.Reset()
	root.SetOut(&out)
	root.SetArgs([]string{"export", "--db", db})
	require.NoError(t, root.Execute())
	var export model.PracticeExport
	require.NoError(t, json.Unmarshal(out.Bytes(), &export))
	assert.Empty(t, export.Results)

	root = rootCmd()
	root.SetArgs([]string{"lock", "maybe", "--db", db})
	root.SilenceErrors = true
	root.SilenceUsage = true
	assert.Error(t, root.Execute())
}
