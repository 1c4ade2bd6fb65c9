package cmd

import (
	"fmt"

	"github.com/cardsim/openpgpcard/bringup"
	"github.com/cardsim/openpgpcard/cryptoengine"
	"github.com/cardsim/openpgpcard/cryptoengine/software"
	"github.com/cardsim/openpgpcard/executor"
	"github.com/cardsim/openpgpcard/keystore"
	"github.com/cardsim/openpgpcard/openpgp"
	"github.com/cardsim/openpgpcard/output"
	"github.com/cardsim/openpgpcard/vfs"
)

// card bundles the wiring needed to drive the in-process applet: the
// executor loop a host would feed raw APDUs into, and the services it
// dispatches to, for commands that want to inspect state directly
// (PW status, key slots) without round-tripping through APDU bytes.
type card struct {
	Executor *executor.Executor
	Services *openpgp.Services
}

// newCard builds a freshly bringup-seeded in-process card, using
// configPath if set or the built-in factory defaults otherwise.
func newCard() (*card, error) {
	cfg := bringup.DefaultConfig()
	if configPath != "" {
		loaded, err := bringup.LoadConfig(configPath)
		if err != nil {
			return nil, fmt.Errorf("load bringup config: %w", err)
		}
		cfg = loaded
	}
	if randomSerial {
		cfg = bringup.WithRandomSerial(cfg)
	}

	fs := vfs.New(vfs.NewMemoryBackend())
	appID := string(cfg.AID)
	if err := bringup.Seed(fs, appID, cfg); err != nil {
		return nil, fmt.Errorf("seed card: %w", err)
	}

	store := keystore.New(fs, appID)
	engine := cryptoengine.New(software.New(), store)
	services := openpgp.NewServices(fs, appID, engine)
	applet := bringup.NewApplet(cfg)

	return &card{
		Executor: executor.New(applet, services),
		Services: services,
	}, nil
}

// selectApplet runs a SELECT by AID family prefix against c, the way
// a host application brings up the applet before sending it anything
// else.
func (c *card) selectApplet() []byte {
	aid := openpgp.AIDPrefix
	apdu := append([]byte{0x00, 0xA4, 0x04, 0x00, byte(len(aid))}, aid...)
	return c.Executor.Execute(apdu)
}

// printError prints an error message, unless JSON output was requested.
func printError(msg string) {
	if !jsonOutput {
		output.PrintError(msg)
	}
}

// printSuccess prints a success message, unless JSON output was requested.
func printSuccess(msg string) {
	if !jsonOutput {
		output.PrintSuccess(msg)
	}
}

// printWarning prints a warning message, unless JSON output was requested.
func printWarning(msg string) {
	if !jsonOutput {
		output.PrintWarning(msg)
	}
}
