package main

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/spikematch/internal/doctor"
)

func newDoctorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Run template bank preflight checks",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			bank, _ := loadBank(cfg) // a load failure surfaces as doctor's own nil-bank check

			result := doctor.Run(doctor.Config{Bank: bank, Rank: cfg.Bank.Rank}, os.Stdout)
			if result.Failed() {
				return errors.New("doctor checks failed")
			}

			return nil
		},
	}

	return cmd
}
