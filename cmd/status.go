package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cardsim/openpgpcard/output"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show PW Status Bytes for a freshly seeded card",
	Long: `Show the PW Status Bytes data object (tag 00C4) a freshly
bringup-seeded card reports: maximum password lengths and remaining
verification tries for PW1, PW3 and the Resetting Code.`,
	Run: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
	c, err := newCard()
	if err != nil {
		printError(err.Error())
		return
	}

	status, err := c.Services.Security.LoadPWStatus()
	if err != nil {
		printError(fmt.Sprintf("load PW status: %v", err))
		return
	}

	if jsonOutput {
		data, err := json.MarshalIndent(status, "", "  ")
		if err != nil {
			printError(err.Error())
			return
		}
		fmt.Println(string(data))
		return
	}

	output.PrintPWStatus(status)
}
