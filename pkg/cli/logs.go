package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/getimposd/imposd/pkg/cli/internal/output"
)

var logsLimit int

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show recent server logs",
	Example: `  # Last 20 entries
  imposd logs

  # Last 100 entries
  imposd logs -n 100`,
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := apiClient().Logs(cmd.Context(), -1, -1)
		if err != nil {
			return err
		}
		if logsLimit > 0 && len(entries) > logsLimit {
			entries = entries[len(entries)-logsLimit:]
		}
		if jsonOutput {
			return output.JSON(entries)
		}
		if len(entries) == 0 {
			fmt.Println("No log entries")
			return nil
		}
		for _, e := range entries {
			fmt.Printf("%s  %-5s  %s\n", e.Timestamp.Format("2006-01-02 15:04:05"), strings.ToUpper(e.Level), e.Message)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(logsCmd)

	logsCmd.Flags().IntVarP(&logsLimit, "limit", "n", 20, "number of entries to show")
}
