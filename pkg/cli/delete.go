package cli

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/getimposd/imposd/pkg/cli/internal/output"
)

var deleteAll bool

var deleteCmd = &cobra.Command{
	Use:   "delete [port]",
	Short: "Delete an imposter, or all of them",
	Example: `  # Delete the imposter on port 4545
  imposd delete 4545

  # Delete every imposter
  imposd delete --all`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		api := apiClient()

		if deleteAll {
			if len(args) > 0 {
				return errors.New("cannot combine --all with a port")
			}
			deleted, err := api.DeleteAllImposters(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOutput {
				return output.JSON(deleted)
			}
			fmt.Printf("Deleted %d imposters\n", len(deleted.Imposters))
			return nil
		}

		if len(args) == 0 {
			return errors.New("a port is required unless --all is given")
		}
		port, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid port %q", args[0])
		}

		cfg, err := api.DeleteImposter(cmd.Context(), port)
		if err != nil {
			return err
		}
		if jsonOutput {
			if cfg == nil {
				fmt.Println("{}")
				return nil
			}
			return output.JSON(cfg)
		}
		if cfg == nil {
			fmt.Printf("No imposter on port %d\n", port)
			return nil
		}
		fmt.Printf("Deleted %s imposter on port %d\n", cfg.Protocol, port)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd)

	deleteCmd.Flags().BoolVar(&deleteAll, "all", false, "delete every imposter")
}
