package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	httpcmd "github.com/acolhe/clinicd_backend/cmd/http"
	systemcmd "github.com/acolhe/clinicd_backend/cmd/system"
)

var (
	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "clinicd",
	Short: "Clinicd operations backend for therapy clinics.",
	Long: `Clinicd is the operations core for therapy clinics and independent
psychologists. It manages the appointment lifecycle, payment reconciliation
with clinic and psychologist splits, and financial reporting behind one API.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global config flag, available for all commands.
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.yaml", "config file path")

	// Attach top-level command trees.
	rootCmd.AddCommand(systemcmd.NewSystemCommand())
	rootCmd.AddCommand(httpcmd.NewHTTPCommand())
}
