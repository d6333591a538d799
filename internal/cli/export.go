package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/vbp1/datafetch/internal/dump"
	"github.com/vbp1/datafetch/internal/process"
)

func newExportCmd(opts *Options) *cobra.Command {
	var stream, file bool
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Dump the local database (runs on the remote host)",
		Long: "Dump the database to stdout (--stream, default) or to a file in the cache dir (--file).\n" +
			"With --file a single JSON line {filename, basename, size} is printed; dumps older than 24h are removed first.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts, nil)
			if err != nil {
				return err
			}
			d, err := cfg.Resolver().Resolve(cmd.Context())
			if err != nil {
				return err
			}
			mode := dump.Stream
			if file {
				mode = dump.StagedFile
			}
			slog.Info("export", "mode", mode, "database", d.Database, "host", d.Host)
			e := &dump.Exporter{Runner: process.Exec{}, Dir: cfg.CacheDir}
			_, err = e.Export(cmd.Context(), d, mode, cmd.OutOrStdout())
			return err
		},
	}
	cmd.Flags().BoolVar(&stream, "stream", false, "Write the dump to stdout (default)")
	cmd.Flags().BoolVar(&file, "file", false, "Write the dump to a file and print its location as JSON")
	cmd.MarkFlagsMutuallyExclusive("stream", "file")
	return cmd
}
