package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cardsim/openpgpcard/conformance"
	"github.com/cardsim/openpgpcard/output"
)

var (
	conformanceCategory string
	conformanceReport   string
)

var conformanceCmd = &cobra.Command{
	Use:   "conformance",
	Short: "Run the built-in conformance check suite",
	Long: `Run the built-in invariant and scenario checks against a
freshly bringup-seeded, in-process applet, and print a summary.

Examples:
  cardsim conformance
  cardsim conformance --category scenarios
  cardsim conformance --report /tmp/openpgp-conformance`,
	Run: runConformance,
}

func init() {
	conformanceCmd.Flags().StringVar(&conformanceCategory, "category", "",
		"run only this category (invariants, scenarios); all categories if omitted")
	conformanceCmd.Flags().StringVar(&conformanceReport, "report", "",
		"write <prefix>.json and <prefix>.html reports")
	rootCmd.AddCommand(conformanceCmd)
}

func runConformance(cmd *cobra.Command, args []string) {
	runner := conformance.NewRunner()

	var err error
	if conformanceCategory != "" {
		err = runner.RunCategory(conformanceCategory)
	} else {
		err = runner.RunAll()
	}
	if err != nil {
		printError(err.Error())
		return
	}

	if conformanceReport != "" {
		if err := runner.GenerateReport(conformanceReport); err != nil {
			printError(fmt.Sprintf("generate report: %v", err))
		} else {
			printSuccess(fmt.Sprintf("report written to %s.json and %s.html", conformanceReport, conformanceReport))
		}
	}

	if jsonOutput {
		data, err := json.MarshalIndent(runner.GetSummary(), "", "  ")
		if err != nil {
			printError(err.Error())
			return
		}
		fmt.Println(string(data))
		return
	}

	output.PrintConformanceSummary(runner.Results)
}
