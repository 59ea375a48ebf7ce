package sync

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/probelab/streamsync/internal/align"
	"github.com/probelab/streamsync/internal/barcode"
	"github.com/probelab/streamsync/internal/config"
	"github.com/probelab/streamsync/internal/domain/recording"
	"github.com/probelab/streamsync/internal/format"
	"github.com/probelab/streamsync/internal/logger"
	repository "github.com/probelab/streamsync/internal/repository/report"
)

// Options controls one synchronization run.
type Options struct {
	// PlanPath specifies the path to the plan YAML file.
	PlanPath string
	// Dataset provides an optional recording directory override.
	Dataset string
	// OutputDir provides an optional output directory override.
	OutputDir string
}

// Run executes one full synchronization pass: load the recording, apply the
// plan's registrations and extractions, compute global timestamps, export
// per-stream timestamp files and persist the alignment report.
//
// A failed alignment still writes the report; Run then returns an error so
// the process exits non-zero.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "streamsync")

	plan, err := config.Load(opts.PlanPath)
	if err != nil {
		return fmt.Errorf("load plan: %w", err)
	}

	// Apply command line overrides, then re-derive defaults.
	if opts.Dataset != "" {
		plan.Dataset = opts.Dataset
		plan.OutputDir = ""
		plan.ReportFile = ""
	}

	if opts.OutputDir != "" {
		plan.OutputDir = opts.OutputDir
		plan.ReportFile = ""
	}

	if err := config.Validate(plan); err != nil {
		return fmt.Errorf("validate plan: %w", err)
	}

	rec, err := format.Load(ctx, plan.Dataset, plan.Format)
	if err != nil {
		return fmt.Errorf("load recording: %w", err)
	}

	warnings := applyPlan(ctx, rec, plan)

	outcome := align.ComputeGlobalTimestamps(ctx, rec)
	warnings = append(warnings, outcome.Warnings...)

	if err := os.MkdirAll(plan.OutputDir, 0o750); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	if outcome.OK {
		if err := exportTimestamps(ctx, rec, plan.OutputDir); err != nil {
			return err
		}
	}

	repo := repository.NewFileRepository(plan.ReportFile)
	if err := repo.Save(ctx, buildReport(rec, outcome, warnings)); err != nil {
		return fmt.Errorf("save report: %w", err)
	}

	logger.InfoKV(ctx, "Report written", "path", plan.ReportFile, "ok", outcome.OK)

	if !outcome.OK {
		return fmt.Errorf("alignment failed: %w", outcome.Err)
	}

	return nil
}

// applyPlan registers the plan's sync lines and extracts its barcode
// channels, collecting warnings as it goes.
func applyPlan(ctx context.Context, rec *recording.Recording, plan *config.Plan) []string {
	var warnings []string

	for _, entry := range plan.SyncLines {
		outcome := rec.RegisterSyncLine(ctx, entry.Line, entry.ProcessorID, entry.StreamName, entry.Main, entry.Barcode)
		warnings = append(warnings, outcome.Warnings...)
	}

	for _, entry := range plan.Barcodes {
		_, outcome := barcode.Extract(ctx, rec, barcode.Options{
			Line:            entry.Line,
			StreamName:      entry.StreamName,
			ProcessorID:     entry.ProcessorID,
			IsMain:          entry.Main,
			Bits:            entry.Bits,
			IntervalMS:      entry.IntervalMS,
			InitDurationMS:  entry.InitDurationMS,
			PulseDurationMS: entry.PulseDurationMS,
			Tolerance:       entry.Tolerance,
		})

		warnings = append(warnings, outcome.Warnings...)

		if !outcome.OK {
			warnings = append(warnings, fmt.Sprintf("barcode extraction for %s/%s aborted: %v",
				entry.ProcessorID, entry.StreamName, outcome.Err))
		}
	}

	return warnings
}

// exportTimestamps writes each aligned stream's global timestamps to
// <output>/<stream>.timestamps.f64 as little-endian float64 values.
func exportTimestamps(ctx context.Context, rec *recording.Recording, outputDir string) error {
	for _, stream := range rec.Streams.Values() {
		if stream.GlobalTimestamps == nil {
			continue
		}

		path := filepath.Join(outputDir, stream.StreamName+".timestamps.f64")
		if err := format.WriteFloat64File(path, stream.GlobalTimestamps); err != nil {
			return fmt.Errorf("export timestamps for %q: %w", stream.StreamName, err)
		}

		logger.InfoKV(ctx, "Exported timestamps", "stream", stream.StreamName, "path", path)
	}

	return nil
}

// buildReport summarizes the pass for the report repository.
func buildReport(rec *recording.Recording, outcome recording.Outcome, warnings []string) *repository.Report {
	result := &repository.Report{
		RecordingID:   rec.ID.String(),
		Directory:     rec.Directory,
		Format:        rec.Format,
		Strategy:      string(align.PickStrategy(rec)),
		MainReference: mainReference(rec),
		GeneratedAt:   time.Now().UTC(),
		OK:            outcome.OK,
		Warnings:      warnings,
	}

	if outcome.Err != nil {
		result.Error = outcome.Err.Error()
	}

	for _, stream := range rec.Streams.Values() {
		entry := repository.StreamReport{
			StreamName: stream.StreamName,
			Samples:    len(stream.SampleNumbers),
			Aligned:    stream.GlobalTimestamps != nil,
		}

		if n := len(stream.GlobalTimestamps); n > 0 {
			if !math.IsNaN(stream.GlobalTimestamps[0]) {
				entry.FirstTimestamp = stream.GlobalTimestamps[0]
			}

			if !math.IsNaN(stream.GlobalTimestamps[n-1]) {
				entry.LastTimestamp = stream.GlobalTimestamps[n-1]
			}
		}

		result.Streams = append(result.Streams, entry)
	}

	return result
}

// mainReference names the effective main clock as processor/stream.
func mainReference(rec *recording.Recording) string {
	switch align.PickStrategy(rec) {
	case align.StrategyBarcodes:
		channels := rec.BarcodeChannels.Values()
		for _, ch := range channels {
			if ch.IsMain {
				return ch.ProcessorID + "/" + ch.StreamName
			}
		}

		return channels[0].ProcessorID + "/" + channels[0].StreamName
	case align.StrategySyncLines:
		lines := rec.SyncLines.Values()
		for _, sync := range lines {
			if sync.IsMain {
				return sync.ProcessorID + "/" + sync.StreamName
			}
		}

		return lines[0].ProcessorID + "/" + lines[0].StreamName
	default:
		return ""
	}
}
