// Package cmd is the cardsim command-line front end: an in-process
// OpenPGP Card applet driven from the shell, plus a PC/SC hardware
// mode and a conformance runner.
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "1.0.0"

	// Global flags
	configPath   string
	jsonOutput   bool
	randomSerial bool
)

var rootCmd = &cobra.Command{
	Use:   "cardsim",
	Short: "OpenPGP Card Application simulator",
	Long: `cardsim v` + version + `
An in-process implementation of the OpenPGP Card Application
(v3.3.1), driven over the same APDU wire format a physical card
would see.

This tool supports:
  - Running hex-encoded APDU scripts against the simulated applet
  - Reporting PW Status Bytes
  - Selecting the OpenPGP applet on a physical card over PC/SC
  - Running the built-in conformance check suite`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"bringup.json describing the card's factory-default state (defaults built in if omitted)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false,
		"output in JSON format")
	rootCmd.PersistentFlags().BoolVar(&randomSerial, "random-serial", false,
		"give the card a random AID serial number instead of the factory default")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// GetVersion returns the current version string.
func GetVersion() string {
	return version
}
