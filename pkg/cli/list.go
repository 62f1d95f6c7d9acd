package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/getimposd/imposd/pkg/cli/internal/output"
	"github.com/getimposd/imposd/pkg/client"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List imposters on the running server",
	Example: `  # Table grouped by protocol
  imposd list

  # Machine-readable
  imposd list --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		imposters, err := apiClient().ListImposters(cmd.Context())
		if err != nil {
			return err
		}
		if jsonOutput {
			return output.JSON(imposters)
		}
		printImposterTable(imposters)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}

// printImposterTable groups summaries by protocol and prints one table
// per group, in a fixed protocol order.
func printImposterTable(imposters []client.ImposterSummary) {
	if len(imposters) == 0 {
		fmt.Println("No imposters")
		return
	}

	byProtocol := make(map[string][]client.ImposterSummary)
	for _, imp := range imposters {
		byProtocol[imp.Protocol] = append(byProtocol[imp.Protocol], imp)
	}

	order := []string{"http", "https", "tcp", "smtp"}
	title := cases.Title(language.English)

	printGroup := func(proto string, group []client.ImposterSummary) {
		fmt.Printf("%s:\n", title.String(proto))
		w := output.Table()
		_, _ = fmt.Fprintln(w, "  PORT\tNAME\tREQUESTS")
		for _, imp := range group {
			_, _ = fmt.Fprintf(w, "  %d\t%s\t%d\n", imp.Port, imp.Name, imp.NumberOfRequests)
		}
		_ = w.Flush()
		fmt.Println()
	}

	for _, proto := range order {
		if group, ok := byProtocol[proto]; ok {
			printGroup(proto, group)
			delete(byProtocol, proto)
		}
	}
	for proto, group := range byProtocol {
		printGroup(proto, group)
	}
}
