package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/spikematch/internal/config"
	"github.com/example/spikematch/internal/logging"
	"github.com/example/spikematch/internal/template"
)

var (
	cfgFile   string
	activeCfg config.Config
)

// NewRootCmd builds the spikematch CLI: the configuration is loaded once
// in PersistentPreRunE and shared by the run/bench/doctor subcommands,
// each of which then loads the template bank itself, mirroring the
// teacher's single-config-load-then-dispatch pattern.
func NewRootCmd() *cobra.Command {
	defaults := config.DefaultConfig()

	cmd := &cobra.Command{
		Use:   "spikematch",
		Short: "Template-matching spike-sorting core",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			loaded, err := config.Load(config.LoadOptions{
				Cmd:        cmd,
				ConfigFile: cfgFile,
				Defaults:   defaults,
			})
			if err != nil {
				return err
			}

			activeCfg = loaded
			logging.Setup(loaded.LogLevel)

			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Optional config file (yaml|toml|json)")
	config.RegisterFlags(cmd.PersistentFlags(), defaults)

	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newBenchCmd())
	cmd.AddCommand(newDoctorCmd())

	return cmd
}

func requireConfig() (config.Config, error) {
	if activeCfg.Bank.TemplatePath == "" {
		return config.Config{}, fmt.Errorf("--bank-template-path is required")
	}

	return activeCfg, nil
}

func loadBank(cfg config.Config) (*template.Bank, error) {
	return template.LoadBank(cfg.Bank.TemplatePath)
}
