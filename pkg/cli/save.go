package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/getimposd/imposd/pkg/config"
)

var (
	saveFile          string
	saveRemoveProxies bool
)

var saveCmd = &cobra.Command{
	Use:   "save",
	Short: "Save running imposters to a config file",
	Long: `Fetch every imposter in replayable form and write the result to a
file. The file loads back through 'imposd replay --file' or
'imposd serve --configfile'.

With --remove-proxies, proxy responses are dropped from the saved
configuration and only their recordings remain, so replaying the file
never contacts the origins again.`,
	Example: `  # Save to the default imposters.json
  imposd save

  # Save recorded traffic only, as YAML
  imposd save --remove-proxies --file recorded.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := apiClient().SaveImposters(cmd.Context(), saveRemoveProxies)
		if err != nil {
			return err
		}
		if err := config.SaveFile(saveFile, doc); err != nil {
			return err
		}
		fmt.Printf("Saved %d imposters to %s\n", len(doc.Imposters), saveFile)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(saveCmd)
	saveCmd.Flags().StringVarP(&saveFile, "file", "f", "imposters.json", "file to write")
	saveCmd.Flags().BoolVar(&saveRemoveProxies, "remove-proxies", false, "strip proxy responses, keeping their recordings")
}
