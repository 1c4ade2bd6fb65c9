package cmd

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cardsim/openpgpcard/output"
	"github.com/cardsim/openpgpcard/pcsc"
)

var pcscReaderIndex int

var pcscCmd = &cobra.Command{
	Use:   "pcsc",
	Short: "Select the OpenPGP applet on a physical card over PC/SC",
	Long: `Connect to a physical smart card over PC/SC, select the
OpenPGP applet, and report its ATR and select response, for comparing
a real card's behavior against the simulated one.`,
	Run: runPCSC,
}

var pcscListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available PC/SC readers",
	Run:   runPCSCList,
}

func init() {
	pcscCmd.Flags().IntVarP(&pcscReaderIndex, "reader", "r", 0,
		"PC/SC reader index (see 'cardsim pcsc list')")
	pcscCmd.AddCommand(pcscListCmd)
	rootCmd.AddCommand(pcscCmd)
}

func runPCSCList(cmd *cobra.Command, args []string) {
	readers, err := pcsc.ListReaders()
	if err != nil {
		printError(err.Error())
		return
	}
	output.PrintReaderList(readers)
}

func runPCSC(cmd *cobra.Command, args []string) {
	reader, err := pcsc.Connect(pcscReaderIndex)
	if err != nil {
		printError(err.Error())
		return
	}
	defer reader.Close()

	printSuccess(fmt.Sprintf("connected to %s (ATR %s)", reader.Name(), reader.ATRHex()))

	cfg := defaultBringupAID()
	resp, err := reader.SelectOpenPGP(cfg)
	if err != nil {
		printError(fmt.Sprintf("select OpenPGP applet: %v", err))
		return
	}
	fmt.Printf("SELECT response: %s\n", strings.ToUpper(hex.EncodeToString(resp)))
}

func defaultBringupAID() []byte {
	return []byte{0xD2, 0x76, 0x00, 0x01, 0x24, 0x01}
}
