package cmd

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var verifyWhich string

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Interactively verify a password against a freshly seeded card",
	Long: `Prompt for PW1, PW3 or the Resetting Code at the terminal
(without echoing it) and run a VERIFY command against a freshly
bringup-seeded, in-process applet, reporting the outcome and any
remaining tries.

Examples:
  cardsim verify --which pw1
  cardsim verify --which pw3`,
	Run: runVerify,
}

func init() {
	verifyCmd.Flags().StringVar(&verifyWhich, "which", "pw1", "password to verify: pw1, pw3 or rc")
	rootCmd.AddCommand(verifyCmd)
}

var verifyP2 = map[string]byte{"pw1": 0x81, "pw3": 0x83, "rc": 0x82}

func runVerify(cmd *cobra.Command, args []string) {
	p2, ok := verifyP2[strings.ToLower(verifyWhich)]
	if !ok {
		printError(fmt.Sprintf("unknown --which %q (want pw1, pw3 or rc)", verifyWhich))
		return
	}

	fmt.Fprint(os.Stdout, "password: ")
	pw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stdout)
	if err != nil {
		printError(fmt.Sprintf("read password: %v", err))
		return
	}

	c, err := newCard()
	if err != nil {
		printError(err.Error())
		return
	}
	c.selectApplet()

	apdu := append([]byte{0x00, 0x20, 0x00, p2, byte(len(pw))}, pw...)
	resp := c.Executor.Execute(apdu)

	sw := resp[len(resp)-2:]
	if sw[0] == 0x90 && sw[1] == 0x00 {
		printSuccess(fmt.Sprintf("%s verified (SW %s)", verifyWhich, strings.ToUpper(hex.EncodeToString(sw))))
		return
	}
	printWarning(fmt.Sprintf("%s verification failed (SW %s)", verifyWhich, strings.ToUpper(hex.EncodeToString(sw))))
}
