package main

import (
	"io"

	"storecore/pkg/config"
	"storecore/pkg/logging"

	"github.com/spf13/cobra"
)

// globals are shared by every subcommand once the root's pre-run has loaded
// the configuration.
type globals struct {
	configPath string
	cfg        *config.Configuration
}

func NewRootCommand(stdout, stderr io.Writer) *cobra.Command {
	g := &globals{}
	rc := &cobra.Command{
		Use:           "storecore",
		Short:         "Page-level buffer pool and lock manager tooling.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(g.configPath)
			if err != nil {
				return err
			}
			g.cfg = cfg
			// A previous command in the same process may have failed before
			// its post-run closed the logger.
			_ = logging.Close()
			return logging.Init(cfg.Logging)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return logging.Close()
		},
	}
	rc.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "TOML configuration file to read from.")

	rc.AddCommand(newBenchCommand(g, stdout))
	rc.AddCommand(newWALCommand(g, stdout))
	rc.AddCommand(newConfigCommand(g, stdout))

	rc.SetOut(stdout)
	rc.SetErr(stderr)
	return rc
}
