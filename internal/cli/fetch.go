package cli

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/vbp1/datafetch/internal/config"
	"github.com/vbp1/datafetch/internal/fetch"
	"github.com/vbp1/datafetch/internal/filesync"
	"github.com/vbp1/datafetch/internal/mysql"
	"github.com/vbp1/datafetch/internal/process"
	"github.com/vbp1/datafetch/internal/remote"
	"github.com/vbp1/datafetch/internal/runctx"
	"github.com/vbp1/datafetch/internal/transfer"
)

func newFetchCmd(opts *Options) *cobra.Command {
	var dbOnly, filesOnly bool
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch and import the remote database, then sync the configured folders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts, map[string]string{"progress": "progress"})
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runFetch(cmd, cfg, dbOnly, filesOnly)
		},
	}
	cmd.Flags().BoolVar(&dbOnly, "db-only", false, "Only fetch the database")
	cmd.Flags().BoolVar(&filesOnly, "files-only", false, "Only sync files")
	cmd.Flags().String("progress", config.ProgressAuto, "Progress display: auto|bar|rows")
	cmd.MarkFlagsMutuallyExclusive("db-only", "files-only")
	return cmd
}

func runFetch(cmd *cobra.Command, cfg *config.Config, dbOnly, filesOnly bool) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	runner := process.Exec{}
	target := cfg.Target()

	var shell remote.Shell = remote.Invoker{Runner: runner}
	if cfg.SSH.Native {
		native := &remote.NativeShell{KeyPath: cfg.SSH.Key, Insecure: cfg.SSH.Insecure}
		defer func() { _ = native.Close() }()
		shell = native
	}

	db := &transfer.Coordinator{
		Target:        target,
		Shell:         shell,
		Runner:        runner,
		Resolver:      cfg.Resolver(),
		Mode:          cfg.Mode(),
		RemoteCommand: cfg.Remote.Command,
		RsyncOptions:  cfg.RsyncOptions,
		Bar:           useBar(cfg.Progress, out),
		BarOutput:     out,
	}
	if cfg.Verify {
		db.Verifier = mysql.Verifier{}
	}
	if !filesOnly {
		staging, err := runctx.New(cfg.CacheDir)
		if err != nil {
			return err
		}
		defer func() { _ = staging.Release() }()
		db.Staging = staging
	}

	files := &filesync.Coordinator{Target: target, Runner: runner, Options: cfg.RsyncOptions}

	o := fetch.New(&fetch.Config{
		DBOnly:    dbOnly,
		FilesOnly: filesOnly,
		Folders:   cfg.Folders,
		Out:       out,
	}, db, files)
	// the stages print their own failures
	if err := o.Run(ctx); err != nil {
		return reportedError{err}
	}
	return nil
}

func useBar(mode string, out io.Writer) bool {
	switch mode {
	case config.ProgressBar:
		return true
	case config.ProgressRows:
		return false
	}
	f, ok := out.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}
