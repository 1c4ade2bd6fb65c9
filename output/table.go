// Package output renders PW status, PC/SC reader, and conformance
// information as terminal tables using go-pretty.
package output

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/cardsim/openpgpcard/conformance"
	"github.com/cardsim/openpgpcard/security"
)

var (
	colorHeader  = text.Colors{text.FgCyan, text.Bold}
	colorLabel   = text.Colors{text.FgYellow}
	colorValue   = text.Colors{text.FgWhite}
	colorSuccess = text.Colors{text.FgGreen}
	colorError   = text.Colors{text.FgRed}
	colorWarn    = text.Colors{text.FgYellow}
)

func getTableStyle() table.Style {
	style := table.StyleRounded
	style.Color.Header = colorHeader
	style.Color.Row = text.Colors{text.FgWhite}
	style.Color.RowAlternate = text.Colors{text.FgHiWhite}
	style.Options.SeparateRows = false
	return style
}

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(getTableStyle())
	t.Style().Options.SeparateRows = false
	return t
}

// PrintError prints a failure message.
func PrintError(msg string) {
	fmt.Println(colorError.Sprintf("ERROR: %s", msg))
}

// PrintSuccess prints a success message.
func PrintSuccess(msg string) {
	fmt.Println(colorSuccess.Sprintf("OK: %s", msg))
}

// PrintWarning prints a cautionary message.
func PrintWarning(msg string) {
	fmt.Println(colorWarn.Sprintf("WARN: %s", msg))
}

// PrintPWStatus renders the PW Status Bytes record as a table.
func PrintPWStatus(p *security.PWStatusBytes) {
	fmt.Println()
	t := newTable()
	t.SetTitle("PW STATUS BYTES")
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Colors: colorLabel, WidthMin: 24},
		{Number: 2, Colors: colorValue, WidthMin: 12},
	})
	t.AppendRow(table.Row{"PW1 valid for several CDS", p.PW1ValidSeveralCDS})
	t.AppendRow(table.Row{"PW1 max length", p.PW1MaxLen})
	t.AppendRow(table.Row{"RC max length", p.RCMaxLen})
	t.AppendRow(table.Row{"PW3 max length", p.PW3MaxLen})
	t.AppendRow(table.Row{"PW1 tries left", p.PW1Tries})
	t.AppendRow(table.Row{"RC tries left", p.RCTries})
	t.AppendRow(table.Row{"PW3 tries left", p.PW3Tries})
	t.Render()
}

// PrintReaderList renders discovered PC/SC reader names.
func PrintReaderList(readers []string) {
	fmt.Println()
	t := newTable()
	t.SetTitle("PC/SC READERS")
	t.AppendHeader(table.Row{"#", "Name"})
	for i, name := range readers {
		t.AppendRow(table.Row{i, name})
	}
	t.Render()
}

// PrintConformanceSummary renders a Runner's aggregated results.
func PrintConformanceSummary(results []conformance.TestResult) {
	if len(results) == 0 {
		PrintWarning("no conformance results")
		return
	}

	passed, failed := 0, 0
	byCategory := make(map[string]int)
	var failedTests []string
	for _, r := range results {
		if r.Passed {
			passed++
		} else {
			failed++
			failedTests = append(failedTests, r.Name)
		}
		byCategory[r.Category]++
	}
	passRate := float64(passed) / float64(len(results)) * 100

	fmt.Println()
	t := newTable()
	t.SetTitle("CONFORMANCE SUMMARY")
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Colors: colorLabel, WidthMin: 20},
		{Number: 2, Colors: colorValue, WidthMin: 12},
	})
	t.AppendRow(table.Row{"Total checks", len(results)})
	t.AppendRow(table.Row{"Passed", colorSuccess.Sprintf("%d", passed)})
	t.AppendRow(table.Row{"Failed", colorError.Sprintf("%d", failed)})
	t.AppendRow(table.Row{"Pass rate", fmt.Sprintf("%.1f%%", passRate)})
	t.Render()

	fmt.Println()
	t2 := newTable()
	t2.SetTitle("CHECKS BY CATEGORY")
	t2.AppendHeader(table.Row{"Category", "Count"})
	for cat, count := range byCategory {
		t2.AppendRow(table.Row{cat, count})
	}
	t2.Render()

	if len(failedTests) > 0 {
		fmt.Println()
		t3 := newTable()
		t3.SetTitle("FAILED CHECKS")
		t3.SetColumnConfigs([]table.ColumnConfig{
			{Number: 1, Colors: colorError, WidthMin: 50},
		})
		for _, name := range failedTests {
			t3.AppendRow(table.Row{name})
		}
		t3.Render()
	}

	fmt.Println()
	t4 := newTable()
	t4.SetTitle("DETAILED RESULTS")
	t4.AppendHeader(table.Row{"Status", "Category", "Name", "SW/Result"})
	t4.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 6},
		{Number: 2, Colors: colorLabel, WidthMin: 10},
		{Number: 3, Colors: colorValue, WidthMin: 45},
		{Number: 4, Colors: colorValue, WidthMin: 12},
	})
	for _, r := range results {
		status := colorSuccess.Sprint("OK")
		if !r.Passed {
			status = colorError.Sprint("FAIL")
		}
		result := r.Actual
		if !r.Passed && r.Error != "" {
			result = r.Error
		}
		t4.AppendRow(table.Row{status, r.Category, r.Name, result})
	}
	t4.Render()
}
