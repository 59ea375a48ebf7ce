package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/probelab/streamsync/internal/config"
	"github.com/probelab/streamsync/internal/logger"
	syncservice "github.com/probelab/streamsync/internal/service/sync"
	"github.com/probelab/streamsync/internal/version"
)

var (
	// logLevel is the minimum level for console diagnostics.
	logLevel string

	// planPath to the synchronization plan YAML file.
	planPath string
	// dataset overrides the plan's recording directory.
	dataset string
	// outputDir overrides the plan's output directory.
	outputDir string

	// barcodeDataset is the recording directory for the barcodes subcommand.
	barcodeDataset string
	// barcodeFormat optionally forces the storage format.
	barcodeFormat string
	// barcodeLine is the digital line carrying the barcode signal.
	barcodeLine int
	// barcodeStream names the stream the barcodes were recorded on.
	barcodeStream string
	// barcodeBits is the barcode width in bits.
	barcodeBits int

	// rootCmd represents the base command for the streamsync binary.
	rootCmd = &cobra.Command{
		Use:   "streamsync",
		Short: "Align multi-processor recordings into one common time base.",
		Long: `Aligns independently-clocked data streams of a multi-probe recording
into one common time base, using decoded barcode fiducials or digital
sync-line pulses as the reference.`,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if level, ok := logger.ParseLogLevel(logLevel); ok {
				logger.SetLevel(level)
			}
		},
	}

	// runCmd executes a full synchronization pass from a plan file.
	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Run a full synchronization pass from a plan file.",
		Long: `Loads the recording named by the plan, registers its sync lines,
extracts its barcode channels, computes per-sample global timestamps for
every continuous stream and writes the timestamp files and the report.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := &syncservice.Options{
				PlanPath:  planPath,
				Dataset:   dataset,
				OutputDir: outputDir,
			}

			return syncservice.Run(ctx, options)
		},
	}

	// barcodesCmd decodes one barcode line and prints the fiducials.
	barcodesCmd = &cobra.Command{
		Use:   "barcodes [dataset]",
		Short: "Decode one barcode line of a recording and print its values.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			if len(args) > 0 {
				barcodeDataset = args[0]
			}

			options := &syncservice.BarcodeOptions{
				Dataset:    barcodeDataset,
				Format:     barcodeFormat,
				Line:       barcodeLine,
				StreamName: barcodeStream,
				Bits:       barcodeBits,
			}

			return syncservice.RunBarcodes(ctx, options)
		},
	}
)

// Execute runs the streamsync CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "minimum log level (debug, info, warn, error)")

	runCmd.Flags().StringVarP(&planPath, "plan", "p", config.DefaultPlanFilename, "path to the synchronization plan")
	runCmd.Flags().StringVarP(&dataset, "dataset", "d", "", "override the plan's recording directory")
	runCmd.Flags().StringVarP(&outputDir, "output", "o", "", "override the plan's output directory")

	barcodesCmd.Flags().StringVarP(&barcodeDataset, "dataset", "d", "", "recording directory")
	barcodesCmd.Flags().StringVarP(&barcodeFormat, "format", "f", "", "storage format (auto-detected when empty)")
	barcodesCmd.Flags().IntVarP(&barcodeLine, "line", "l", 0, "digital line carrying the barcode signal")
	barcodesCmd.Flags().StringVarP(&barcodeStream, "stream", "s", "", "stream the barcodes were recorded on")
	barcodesCmd.Flags().IntVarP(&barcodeBits, "bits", "b", 0, "barcode width in bits")

	rootCmd.AddCommand(runCmd, barcodesCmd)
}
