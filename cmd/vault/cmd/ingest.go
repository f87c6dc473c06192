package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [path...]",
	Short: "Ingest a file or directory once and exit",
	Long: `Run the ingestion pipeline once over files already in the intake
directory, then exit. Paths given as arguments are copied into the
intake directory first; a directory argument copies its files.

Examples:
  # Process everything currently in the intake directory
  vault ingest

  # Copy a file in and process it
  vault ingest ~/Downloads/contract.pdf

  # Copy a whole folder of scans in
  vault ingest ~/scans/`,
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := GetConfig()

	if err := os.MkdirAll(cfg.Ingest.WatchDir, 0o755); err != nil {
		return fmt.Errorf("failed to create intake directory: %w", err)
	}

	for _, arg := range args {
		if err := stageIntoIntake(arg, cfg.Ingest.WatchDir); err != nil {
			return err
		}
	}

	coord, cleanup, err := buildPipeline(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	count, err := coord.IngestExisting(ctx)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	fmt.Printf("Processed %d file(s).\n", count)
	return nil
}

// stageIntoIntake copies a file, or every file in a directory, into the
// intake directory. Originals are left in place.
func stageIntoIntake(path, intakeDir string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}

	if !info.IsDir() {
		return copyIn(path, intakeDir)
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if err := copyIn(filepath.Join(path, entry.Name()), intakeDir); err != nil {
			return err
		}
	}
	return nil
}

func copyIn(src, intakeDir string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	dst := filepath.Join(intakeDir, filepath.Base(src))
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}
	return out.Close()
}
