package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// SyncLineEntry describes one sync-line registration in the plan.
type SyncLineEntry struct {
	// Line is the digital line number carrying the sync pulses.
	Line int `yaml:"line"`
	// ProcessorID identifies the acquisition processor.
	ProcessorID string `yaml:"processor_id"`
	// StreamName names the stream the line was recorded on.
	StreamName string `yaml:"stream_name"`
	// Main marks the line as the main clock reference.
	Main bool `yaml:"main"`
	// Barcode marks the line as carrying a barcode pulse train.
	Barcode bool `yaml:"barcode"`
}

// BarcodeEntry describes one barcode extraction in the plan.
type BarcodeEntry struct {
	// Line is the digital line carrying the barcode signal.
	Line int `yaml:"line"`
	// ProcessorID identifies the acquisition processor.
	ProcessorID string `yaml:"processor_id"`
	// StreamName names the stream the barcodes were recorded on.
	StreamName string `yaml:"stream_name"`
	// Main marks the channel as the main clock reference.
	Main bool `yaml:"main"`
	// Bits is the barcode width. Zero means the decoder default.
	Bits int `yaml:"bits"`
	// IntervalMS is the nominal barcode spacing in milliseconds.
	IntervalMS float64 `yaml:"interval_ms"`
	// InitDurationMS is the wrapper pulse duration in milliseconds.
	InitDurationMS float64 `yaml:"init_duration_ms"`
	// PulseDurationMS is the value bit duration in milliseconds.
	PulseDurationMS float64 `yaml:"pulse_duration_ms"`
	// Tolerance is the relative classification tolerance.
	Tolerance float64 `yaml:"tolerance"`
}

// Plan holds everything one synchronization pass needs: where the recording
// lives, which lines reference which clocks, and where results go.
type Plan struct {
	// Dataset is the recording directory.
	Dataset string `yaml:"dataset"`
	// Format optionally forces a storage format instead of auto-detection.
	Format string `yaml:"format"`
	// SyncLines lists sync-line registrations.
	SyncLines []SyncLineEntry `yaml:"sync_lines"`
	// Barcodes lists barcode extractions.
	Barcodes []BarcodeEntry `yaml:"barcodes"`
	// OutputDir is where per-stream timestamp files are written.
	// Defaults to <dataset>/aligned.
	OutputDir string `yaml:"output_dir"`
	// ReportFile is where the alignment report is written.
	// Defaults to <output_dir>/report.json.
	ReportFile string `yaml:"report_file"`
}

const (
	// DefaultPlanFilename is the default filename for the sync plan.
	DefaultPlanFilename = "streamsync-plan.yaml"

	// DefaultOutputDirName is the default output directory name under the dataset.
	DefaultOutputDirName = "aligned"

	// DefaultReportFilename is the default report filename under the output directory.
	DefaultReportFilename = "report.json"

	// DefaultFilePermissions is the default file permission for written files.
	DefaultFilePermissions = 0o600
)

var (
	// errPlanIsNotSet is returned when a nil plan is provided.
	errPlanIsNotSet = errors.New("plan is not set")
	// errDatasetRequired is returned when the dataset directory is missing.
	errDatasetRequired = errors.New("dataset directory must be provided")
)

// Load reads a plan from the provided path and validates essential fields.
func Load(path string) (*Plan, error) {
	if path == "" {
		path = DefaultPlanFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read plan: %w", err)
	}

	var plan Plan
	if err := yaml.Unmarshal(contents, &plan); err != nil {
		return nil, fmt.Errorf("unmarshal plan: %w", err)
	}

	if err := Validate(&plan); err != nil {
		return nil, err
	}

	return &plan, nil
}

// Save writes the plan to the provided path.
func Save(path string, plan *Plan) error {
	if plan == nil {
		return errPlanIsNotSet
	}

	if path == "" {
		path = DefaultPlanFilename
	}

	if err := Validate(plan); err != nil {
		return err
	}

	data, err := yaml.Marshal(plan)
	if err != nil {
		return fmt.Errorf("marshal plan: %w", err)
	}

	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write plan: %w", err)
	}

	return nil
}

// Validate checks the plan for required fields and fills in defaults.
func Validate(plan *Plan) error {
	if plan.Dataset == "" {
		return errDatasetRequired
	}

	for i, entry := range plan.SyncLines {
		if entry.StreamName == "" {
			return fmt.Errorf("sync line %d: stream name must be provided", i)
		}
	}

	for i, entry := range plan.Barcodes {
		if entry.Line <= 0 {
			return fmt.Errorf("barcode source %d: line must be positive", i)
		}

		if entry.StreamName == "" {
			return fmt.Errorf("barcode source %d: stream name must be provided", i)
		}
	}

	// Set default output locations if not specified.
	if plan.OutputDir == "" {
		plan.OutputDir = filepath.Join(plan.Dataset, DefaultOutputDirName)
	}

	if plan.ReportFile == "" {
		plan.ReportFile = filepath.Join(plan.OutputDir, DefaultReportFilename)
	}

	return nil
}
