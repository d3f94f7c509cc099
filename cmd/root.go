package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	CommitSHA = "none"
	BuildDate = "unknown"
)

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "bookerd",
		Short: "Restaurant booking API that runs bookings through a browser-driven agent",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// .env is optional; real deployments set the environment directly.
			_ = godotenv.Load()
		},
	}

	root.AddCommand(newVersionCmd())
	root.AddCommand(newServerCmd())
	root.AddCommand(newBookCmd())
	root.AddCommand(newUserCmd())
	root.AddCommand(newKeysCmd())

	return root
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
