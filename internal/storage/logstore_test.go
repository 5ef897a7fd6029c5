package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bmedtech/startup-intake/internal/models"
)

func sampleSubmission(name string) *models.Submission {
	return &models.Submission{
		Timestamp: "2026-08-28 10:30:00",
		GeneralInfo: models.GeneralInfo{
			StartupName: name,
			Email:       "contato@" + strings.ToLower(name) + ".com.br",
			Niche:       "Telemedicina",
		},
		Category: "Ferramentas de Gestão e Fluxo",
		TechChecklist: models.TechChecklist{
			AnvisaStatus: "Não se aplica",
			LGPD:         true,
		},
		FolderPath: "submissions/" + strings.ToLower(name) + "_20260828_1030",
		SpecificData: map[string]any{
			"integration_type": "Padrão HL7 FHIR/v2",
			"click_count":      "< 5 cliques",
		},
	}
}

func TestAppendGrowsByOneLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subs.jsonl")
	store := NewLogStore(path)

	for i, name := range []string{"Alpha", "Beta", "Gamma"} {
		require.NoError(t, store.Append(sampleSubmission(name)))
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
		assert.Len(t, lines, i+1)
	}
}

func TestAppendRoundTripPreservesNestedMapping(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subs.jsonl")
	store := NewLogStore(path)

	want := sampleSubmission("Saudetech")
	require.NoError(t, store.Append(want))

	subs, err := store.ReadAll()
	require.NoError(t, err)
	require.Len(t, subs, 1)

	got := subs[0]
	assert.Equal(t, want.StartupName, got.StartupName)
	assert.Equal(t, want.Category, got.Category)
	assert.Equal(t, want.LGPD, got.LGPD)
	assert.Equal(t, "Padrão HL7 FHIR/v2", got.SpecificData["integration_type"])
	assert.Equal(t, "< 5 cliques", got.SpecificData["click_count"])
}

func TestPriorEntriesNeverRewritten(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subs.jsonl")
	store := NewLogStore(path)

	require.NoError(t, store.Append(sampleSubmission("Alpha")))
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	require.NoError(t, store.Append(sampleSubmission("Beta")))
	after, err := os.ReadFile(path)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(string(after), string(before)))
}

func TestReaderToleratesTrailingPartialLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subs.jsonl")
	store := NewLogStore(path)

	require.NoError(t, store.Append(sampleSubmission("Alpha")))
	require.NoError(t, store.Append(sampleSubmission("Beta")))

	// Simulate a crashed writer leaving a truncated record behind.
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o640)
	require.NoError(t, err)
	_, err = f.WriteString(`{"timestamp":"2026-08-28 10:31:00","startup_na`)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	subs, err := store.ReadAll()
	require.NoError(t, err)
	require.Len(t, subs, 2)
	assert.Equal(t, "Alpha", subs[0].StartupName)
	assert.Equal(t, "Beta", subs[1].StartupName)
}

func TestReadAllMissingFile(t *testing.T) {
	store := NewLogStore(filepath.Join(t.TempDir(), "missing.jsonl"))
	subs, err := store.ReadAll()
	require.NoError(t, err)
	assert.Empty(t, subs)

	n, err := store.Count()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRecentLimits(t *testing.T) {
	store := NewLogStore(filepath.Join(t.TempDir(), "subs.jsonl"))
	for _, name := range []string{"A", "B", "C", "D"} {
		require.NoError(t, store.Append(sampleSubmission(name)))
	}

	subs, err := store.Recent(2)
	require.NoError(t, err)
	require.Len(t, subs, 2)
	assert.Equal(t, "C", subs[0].StartupName)
	assert.Equal(t, "D", subs[1].StartupName)
}
