package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/noah-isme/sma-records/internal/models"
	"github.com/noah-isme/sma-records/internal/service"
	"github.com/noah-isme/sma-records/pkg/storage"
)

type recordAPI interface {
	Entities() []service.EntityInfo
	Count(ctx context.Context, name string) (int, error)
	ListMany(ctx context.Context, names ...string) ([]models.Exportable, error)
	Export(ctx context.Context, req service.ExportRequest) (*service.ExportResult, error)
	Clean(ctx context.Context, name string) (int64, error)
}

type session struct {
	records   recordAPI
	exportDir string
	close     func() error
}

type opener func(ctx context.Context) (*session, error)

func newRootCmd(open opener) *cobra.Command {
	var timeout time.Duration

	root := &cobra.Command{
		Use:          "recordctl",
		Short:        "Inspect and maintain academic record tables",
		SilenceUsage: true,
	}
	root.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "Operation timeout")

	// withSession opens connections for the duration of one command.
	withSession := func(run func(ctx context.Context, cmd *cobra.Command, s *session, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			s, err := open(ctx)
			if err != nil {
				return err
			}
			defer s.close() //nolint:errcheck
			return run(ctx, cmd, s, args)
		}
	}

	root.AddCommand(
		newEntitiesCmd(withSession),
		newCountCmd(withSession),
		newListCmd(withSession),
		newExportCmd(withSession),
		newCleanCmd(withSession),
	)
	return root
}

type sessionWrapper func(run func(ctx context.Context, cmd *cobra.Command, s *session, args []string) error) func(*cobra.Command, []string) error

func newEntitiesCmd(with sessionWrapper) *cobra.Command {
	return &cobra.Command{
		Use:   "entities",
		Short: "List registered record entities",
		Args:  cobra.NoArgs,
		RunE: with(func(_ context.Context, cmd *cobra.Command, s *session, _ []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ENTITY\tSOURCE\tTABLE")
			for _, e := range s.records.Entities() {
				fmt.Fprintf(w, "%s\t%s\t%s\n", e.Name, e.Source, e.Table)
			}
			return w.Flush()
		}),
	}
}

func newCountCmd(with sessionWrapper) *cobra.Command {
	return &cobra.Command{
		Use:   "count <entity>...",
		Short: "Count rows in entity tables",
		Args:  cobra.MinimumNArgs(1),
		RunE: with(func(ctx context.Context, cmd *cobra.Command, s *session, args []string) error {
			for _, name := range args {
				total, err := s.records.Count(ctx, name)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\n", name, total)
			}
			return nil
		}),
	}
}

func newListCmd(with sessionWrapper) *cobra.Command {
	return &cobra.Command{
		Use:   "list <entity>...",
		Short: "Print every record of one or more entities as JSON",
		Long:  "Print every record of the given entities as JSON. Records of several entities are grouped by record type.",
		Args:  cobra.MinimumNArgs(1),
		RunE: with(func(ctx context.Context, cmd *cobra.Command, s *session, args []string) error {
			records, err := s.records.ListMany(ctx, args...)
			if err != nil {
				return err
			}
			if records == nil {
				records = []models.Exportable{}
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(records)
		}),
	}
}

func newExportCmd(with sessionWrapper) *cobra.Command {
	var (
		format, outDir string
		keep           time.Duration
	)
	cmd := &cobra.Command{
		Use:   "export <entity>",
		Short: "Write an entity listing to a CSV or PDF file",
		Args:  cobra.ExactArgs(1),
		RunE: with(func(ctx context.Context, cmd *cobra.Command, s *session, args []string) error {
			result, err := s.records.Export(ctx, service.ExportRequest{Entity: args[0], Format: format})
			if err != nil {
				return err
			}
			dir := outDir
			if dir == "" {
				dir = s.exportDir
			}
			store, err := storage.NewLocalStorage(dir)
			if err != nil {
				return err
			}
			path, err := store.Save(result.Filename, result.Body)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d rows to %s\n", result.Rows, path)

			if keep > 0 {
				removed, err := store.Prune(keep, time.Now())
				if err != nil {
					return err
				}
				for _, name := range removed {
					fmt.Fprintf(cmd.OutOrStdout(), "pruned %s\n", name)
				}
			}
			return nil
		}),
	}
	cmd.Flags().StringVarP(&format, "format", "f", "csv", "Export format (csv or pdf)")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Output directory (default RECORDS_EXPORT_DIR)")
	cmd.Flags().DurationVar(&keep, "keep", 0, "Also delete exports older than this from the output directory")
	return cmd
}

func newCleanCmd(with sessionWrapper) *cobra.Command {
	var confirmed bool
	cmd := &cobra.Command{
		Use:   "clean <entity>...",
		Short: "Delete all rows of entity tables on a TEST database",
		Long: strings.TrimSpace(`
Delete every row of the given entity tables. Each table is only touched after
the environment descriptor query reads TEST; any other value aborts the run.`),
		Args: cobra.MinimumNArgs(1),
		RunE: with(func(ctx context.Context, cmd *cobra.Command, s *session, args []string) error {
			if !confirmed {
				return fmt.Errorf("clean deletes data; rerun with --yes to confirm")
			}
			for _, name := range args {
				deleted, err := s.records.Clean(ctx, name)
				if err != nil {
					return fmt.Errorf("clean %s: %w", name, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d rows deleted\n", name, deleted)
			}
			return nil
		}),
	}
	cmd.Flags().BoolVar(&confirmed, "yes", false, "Confirm the destructive clean")
	return cmd
}
