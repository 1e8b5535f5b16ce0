package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	Version   = "dev"
	CommitSHA = "none"
	BuildDate = "unknown"
)

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "dpsagent",
		Short: "Headless agent that watches DPS appointment availability and books slots",
	}

	root.AddCommand(newVersionCmd())
	root.AddCommand(newKeysCmd())
	root.AddCommand(newServerCmd())
	root.AddCommand(newUserCmd())
	root.AddCommand(newProfileCmd())
	root.AddCommand(newJobCmd())
	root.AddCommand(newCheckCmd())

	return root
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger() (*zap.Logger, error) {
	if os.Getenv("DEBUG") != "" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
