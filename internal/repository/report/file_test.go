package report

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestSaveLoadRoundtrip ensures a report is persisted and loaded back correctly.
func TestSaveLoadRoundtrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "report.json")
	repo := NewFileRepository(path)

	saved := &Report{
		RecordingID:   "5bb10621-0b4c-47f5-9196-f817c5b8cbc3",
		Directory:     "/data/session1",
		Format:        "flatbin",
		Strategy:      "barcodes",
		MainReference: "100/ProbeA",
		GeneratedAt:   time.Now().UTC().Truncate(time.Second),
		OK:            true,
		Warnings:      []string{"no barcode channel flagged as main"},
		Streams: []StreamReport{
			{StreamName: "ProbeA", Samples: 300000, Aligned: true, FirstTimestamp: -0.5, LastTimestamp: 9.5},
		},
	}

	require.NoError(t, repo.Save(context.Background(), saved))

	loaded, err := repo.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, saved, loaded)
}

// TestLoadMissingReport ensures a missing file maps to ErrNotFound.
func TestLoadMissingReport(t *testing.T) {
	t.Parallel()

	repo := NewFileRepository(filepath.Join(t.TempDir(), "missing.json"))

	_, err := repo.Load(context.Background())
	require.ErrorIs(t, err, ErrNotFound)
}

// TestSaveOverwrites ensures each save fully replaces the previous report.
func TestSaveOverwrites(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "report.json")
	repo := NewFileRepository(path)

	first := &Report{Strategy: "sync-lines", OK: false, Error: "insufficient data", GeneratedAt: time.Unix(0, 0).UTC()}
	require.NoError(t, repo.Save(context.Background(), first))

	second := &Report{Strategy: "barcodes", OK: true, GeneratedAt: time.Unix(1, 0).UTC()}
	require.NoError(t, repo.Save(context.Background(), second))

	loaded, err := repo.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, second, loaded)
}
