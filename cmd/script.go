package cmd

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var scriptCmd = &cobra.Command{
	Use:   "script [file]",
	Short: "Run a hex APDU script against the simulated applet",
	Long: `Run a script of hex-encoded APDU commands against a freshly
bringup-seeded, in-process applet (one command per line, '#' starts
a comment, blank lines ignored).

Example script:
  # Select the applet
  00 A4 04 00 06 D2 76 00 01 24 01
  # Verify PW1
  00 20 00 81 06 31 32 33 34 35 36

Examples:
  cardsim script commands.txt
  cardsim script -c bringup.json commands.txt`,
	Args: cobra.ExactArgs(1),
	Run:  runScript,
}

func init() {
	rootCmd.AddCommand(scriptCmd)
}

type scriptStep struct {
	Line     int    `json:"line"`
	APDU     string `json:"apdu"`
	Response string `json:"response"`
}

func runScript(cmd *cobra.Command, args []string) {
	c, err := newCard()
	if err != nil {
		printError(err.Error())
		return
	}

	f, err := os.Open(args[0])
	if err != nil {
		printError(fmt.Sprintf("open script: %v", err))
		return
	}
	defer f.Close()

	var steps []scriptStep
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		apdu, err := hex.DecodeString(strings.ReplaceAll(line, " ", ""))
		if err != nil {
			printError(fmt.Sprintf("line %d: invalid hex: %v", lineNo, err))
			return
		}

		resp := c.Executor.Execute(apdu)
		steps = append(steps, scriptStep{
			Line:     lineNo,
			APDU:     strings.ToUpper(hex.EncodeToString(apdu)),
			Response: strings.ToUpper(hex.EncodeToString(resp)),
		})
	}
	if err := scanner.Err(); err != nil {
		printError(fmt.Sprintf("read script: %v", err))
		return
	}

	for _, s := range steps {
		fmt.Printf("%3d  => %s\n     <= %s\n", s.Line, s.APDU, s.Response)
	}
}
