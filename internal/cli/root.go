package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/vbp1/datafetch/internal/config"
	"github.com/vbp1/datafetch/internal/log"
)

// Options holds values of the persistent flags.
type Options struct {
	ConfigFile string
	Env        string
	Debug      bool
	Verbose    bool
}

// reportedError marks a failure whose details were already printed.
type reportedError struct{ error }

func (e reportedError) Unwrap() error { return e.error }

// Reported reports whether err was already shown to the user.
func Reported(err error) bool {
	var r reportedError
	return errors.As(err, &r)
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	opts := &Options{}
	root := &cobra.Command{
		Use:           "datafetch",
		Short:         "Pull a remote environment's database and files into the local checkout",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			log.Setup(opts.Debug, opts.Verbose)
		},
	}

	f := root.PersistentFlags()
	f.StringVarP(&opts.ConfigFile, "config", "c", "", "Config file (default: datafetch[.<env>].yaml in ., ./config, ~/.config/datafetch)")
	f.StringVarP(&opts.Env, "env", "e", "", "Environment label selecting datafetch.<env>.yaml")
	f.BoolVar(&opts.Debug, "debug", false, "Enable debug trace output")
	f.BoolVarP(&opts.Verbose, "verbose", "v", false, "Verbose output")

	root.AddCommand(newExportCmd(opts), newFetchCmd(opts), newVersionCmd())
	return root
}

// Execute parses flags and runs the selected command.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

// loadConfig reads the config file and binds the flags given in bind
// (viper key -> flag name) of cmd.
func loadConfig(cmd *cobra.Command, opts *Options, bind map[string]string) (*config.Config, error) {
	v, err := config.New(opts.ConfigFile, opts.Env)
	if err != nil {
		return nil, err
	}
	if err := bindFlags(v, cmd, bind); err != nil {
		return nil, err
	}
	return config.Load(v)
}

func bindFlags(v *viper.Viper, cmd *cobra.Command, bind map[string]string) error {
	for key, name := range bind {
		if err := v.BindPFlag(key, cmd.Flags().Lookup(name)); err != nil {
			return err
		}
	}
	return nil
}
