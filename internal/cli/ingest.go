package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/veldt-labs/papyrus/internal/config"
	"github.com/veldt-labs/papyrus/internal/domain"
)

// IngestCmd returns the ingest command, a one-shot run of the full
// pipeline against a local file.
func IngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest <file>",
		Short: "Ingest a document and wait for processing to finish",
		Args:  cobra.ExactArgs(1),
		RunE:  runIngest,
	}

	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	application, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer application.Close()

	content, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	doc, err := application.ingestor.Ingest(ctx, filepath.Base(args[0]), content)
	if err != nil {
		return fmt.Errorf("failed to ingest: %w", err)
	}

	if doc.Status == domain.DocumentStatusReady {
		fmt.Printf("document %s already ingested\n", doc.ID)
		return nil
	}

	fmt.Printf("processing document %s...\n", doc.ID)
	if err := application.ingestor.Process(ctx, doc.ID); err != nil {
		return fmt.Errorf("processing failed: %w", err)
	}

	doc, err = application.documents.Get(ctx, doc.ID)
	if err != nil {
		return err
	}

	fmt.Printf("document %s is %s (%d pages)\n", doc.ID, doc.Status, doc.PageCount)
	if len(doc.FailedPages) > 0 {
		fmt.Printf("pages with indexing failures: %v\n", doc.FailedPages)
	}
	return nil
}
