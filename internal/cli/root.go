// Package cli defines the cobra command tree for renthub.
package cli

import (
	"encoding/json"
	"io"

	"github.com/spf13/cobra"
)

var flagFormat string

// NewRootCmd creates the root cobra command with global flags.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "renthub",
		Short:         "Rental applications, escrow payments and stay pricing",
		Long:          "RentHub runs the rental application and escrow payment API, its background worker, and a few operator tools.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&flagFormat, "format", "text", "output format (text|json)")

	root.AddCommand(
		newServeCmd(),
		newIndexesCmd(),
		newTokenCmd(),
		newEstimateCmd(),
	)

	return root
}

func isJSON() bool {
	return flagFormat == "json"
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
