package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/probelab/streamsync/internal/config"
)

// StreamReport summarizes one continuous stream after an alignment pass.
type StreamReport struct {
	// StreamName is the stream identifier.
	StreamName string `json:"stream_name"`
	// Samples is the stream length in samples.
	Samples int `json:"samples"`
	// Aligned reports whether the pass wrote global timestamps.
	Aligned bool `json:"aligned"`
	// FirstTimestamp is the first global timestamp in seconds.
	FirstTimestamp float64 `json:"first_timestamp"`
	// LastTimestamp is the last global timestamp in seconds.
	LastTimestamp float64 `json:"last_timestamp"`
}

// Report summarizes one alignment pass over a recording.
type Report struct {
	// RecordingID is the aggregate identity.
	RecordingID string `json:"recording_id"`
	// Directory is where the recording was loaded from.
	Directory string `json:"directory"`
	// Format names the storage format.
	Format string `json:"format"`
	// Strategy names the reference data the pass ran on.
	Strategy string `json:"strategy"`
	// MainReference names the main clock as processor/stream.
	MainReference string `json:"main_reference"`
	// GeneratedAt is when the pass finished.
	GeneratedAt time.Time `json:"generated_at"`
	// OK reports whether the pass completed.
	OK bool `json:"ok"`
	// Error carries the abort reason when OK is false.
	Error string `json:"error,omitempty"`
	// Warnings lists recoverable conditions encountered during the pass.
	Warnings []string `json:"warnings,omitempty"`
	// Streams summarizes every continuous stream of the recording.
	Streams []StreamReport `json:"streams"`
}

// Repository defines persistence operations for alignment reports.
type Repository interface {
	Load(ctx context.Context) (*Report, error)
	Save(ctx context.Context, report *Report) error
}

// FileRepository persists the alignment report to a JSON file on disk.
// Each save fully overwrites the previous report, matching the
// write-once-per-pass semantics of the aligner.
type FileRepository struct {
	// path is the filesystem location of the JSON report file.
	path string
	// mu protects concurrent access to the report file.
	mu sync.Mutex
}

// ErrNotFound is returned when the report file does not exist yet.
var ErrNotFound = errors.New("report not found")

// NewFileRepository creates a repository that reads/writes JSON at the provided path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{
		path: filepath.Clean(path),
	}
}

// Load reads the report from disk.
func (r *FileRepository) Load(_ context.Context) (*Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	contents, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("read report file: %w", err)
	}

	var report Report
	if err = json.Unmarshal(contents, &report); err != nil {
		return nil, fmt.Errorf("decode report file: %w", err)
	}

	return &report, nil
}

// Save writes the report to disk using JSON representation.
func (r *FileRepository) Save(_ context.Context, report *Report) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	if err = os.WriteFile(r.path, data, config.DefaultFilePermissions); err != nil {
		return fmt.Errorf("write report file: %w", err)
	}

	return nil
}
