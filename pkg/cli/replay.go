package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/getimposd/imposd/pkg/config"
	"github.com/getimposd/imposd/pkg/imposter"
)

var replayFile string

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Switch the server to replay mode, or restore a saved file",
	Long: `Without --file, convert the running server in place: every recorded
proxy response becomes an ordinary stub and the proxies are removed, so
the server keeps answering without contacting any origin.

With --file, replace the server's imposters with the contents of a
previously saved config file.`,
	Example: `  # Stop proxying, replay what was recorded
  imposd replay

  # Restore a saved session
  imposd replay --file recorded.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		api := apiClient()

		var doc *imposter.Document
		var err error
		if replayFile != "" {
			doc, err = config.LoadFile(replayFile)
		} else {
			doc, err = api.SaveImposters(cmd.Context(), true)
		}
		if err != nil {
			return err
		}

		restored, err := api.RestoreImposters(cmd.Context(), doc)
		if err != nil {
			return err
		}
		fmt.Printf("Replaying %d imposters\n", len(restored))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(replayCmd)
	replayCmd.Flags().StringVarP(&replayFile, "file", "f", "", "saved config file to restore")
}
