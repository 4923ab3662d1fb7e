package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "gramctl",
		Short:         "GramStore operator CLI",
		Long:          "gramctl talks to the configured catalog store directly. It reads the same environment as the API.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("owner", "", "store owner id")

	// Sales
	root.AddCommand(newSellCmd())
	root.AddCommand(newSalesCmd())

	// Reports
	root.AddCommand(newAnalyticsCmd())

	// Auth
	root.AddCommand(newTokenCmd())
	return root
}
