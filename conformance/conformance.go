// Package conformance drives the in-process OpenPGP applet through
// the invariant checks and worked command transcripts a conforming
// implementation must satisfy, producing the same pass/fail
// TestResult/TestSummary shape the rest of the toolchain's reporting
// is built around.
package conformance

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/cardsim/openpgpcard/bringup"
	"github.com/cardsim/openpgpcard/cryptoengine"
	"github.com/cardsim/openpgpcard/cryptoengine/software"
	"github.com/cardsim/openpgpcard/executor"
	"github.com/cardsim/openpgpcard/keystore"
	"github.com/cardsim/openpgpcard/openpgp"
	"github.com/cardsim/openpgpcard/security"
	"github.com/cardsim/openpgpcard/vfs"
)

// TestResult is one invariant check or scenario transcript's outcome.
type TestResult struct {
	Name     string        `json:"name"`
	Category string        `json:"category"` // invariant, scenario
	Passed   bool          `json:"passed"`
	Expected string        `json:"expected,omitempty"`
	Actual   string        `json:"actual,omitempty"`
	APDU     string        `json:"apdu,omitempty"`
	Response string        `json:"response,omitempty"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration_ns"`
}

// TestSummary aggregates a Runner's Results.
type TestSummary struct {
	Total       int            `json:"total"`
	Passed      int            `json:"passed"`
	Failed      int            `json:"failed"`
	PassRate    float64        `json:"pass_rate"`
	Duration    time.Duration  `json:"duration_ns"`
	ByCategory  map[string]int `json:"by_category"`
	FailedTests []string       `json:"failed_tests,omitempty"`
}

// Runner drives a fresh card instance per run, so results are never
// contaminated by state a previous category left behind.
type Runner struct {
	Results   []TestResult
	StartTime time.Time
	EndTime   time.Time
}

// NewRunner returns an empty Runner.
func NewRunner() *Runner {
	return &Runner{}
}

// newCard builds a freshly-seeded applet and executor, independent of
// any other Runner state, for each check to start from a known point.
func newCard() (*executor.Executor, *openpgp.Services) {
	cfg := bringup.DefaultConfig()
	fs := vfs.New(vfs.NewMemoryBackend())
	appID := string(cfg.AID)
	if err := bringup.Seed(fs, appID, cfg); err != nil {
		panic(fmt.Sprintf("conformance: seed failed: %v", err))
	}
	store := keystore.New(fs, appID)
	crypto := cryptoengine.New(software.New(), store)
	svc := openpgp.NewServices(fs, appID, crypto)
	applet := bringup.NewApplet(cfg)
	return executor.New(applet, svc), svc
}

func selectApplet(e *executor.Executor) []byte {
	return e.Execute([]byte{0x00, 0xA4, 0x04, 0x00, 0x06, 0xD2, 0x76, 0x00, 0x01, 0x24, 0x01})
}

// RunAll runs every invariant and scenario category.
func (r *Runner) RunAll() error {
	r.StartTime = time.Now()
	for _, cat := range []string{"invariants", "scenarios"} {
		if err := r.RunCategory(cat); err != nil {
			return err
		}
	}
	r.EndTime = time.Now()
	return nil
}

// RunCategory runs one named category ("invariants" or "scenarios").
func (r *Runner) RunCategory(category string) error {
	switch strings.ToLower(strings.TrimSpace(category)) {
	case "invariants":
		r.runInvariants()
		return nil
	case "scenarios":
		r.runScenarios()
		return nil
	default:
		return fmt.Errorf("conformance: unknown category %q", category)
	}
}

// GetSummary aggregates r.Results.
func (r *Runner) GetSummary() TestSummary {
	s := TestSummary{ByCategory: make(map[string]int)}
	for _, res := range r.Results {
		s.Total++
		s.ByCategory[res.Category]++
		if res.Passed {
			s.Passed++
		} else {
			s.Failed++
			s.FailedTests = append(s.FailedTests, res.Name)
		}
	}
	if s.Total > 0 {
		s.PassRate = float64(s.Passed) / float64(s.Total) * 100
	}
	s.Duration = r.EndTime.Sub(r.StartTime)
	return s
}

func (r *Runner) record(name, category string, passed bool, expected, actual string, apdu, resp []byte, errMsg string) {
	r.Results = append(r.Results, TestResult{
		Name:     name,
		Category: category,
		Passed:   passed,
		Expected: expected,
		Actual:   actual,
		APDU:     strings.ToUpper(hex.EncodeToString(apdu)),
		Response: strings.ToUpper(hex.EncodeToString(resp)),
		Error:    errMsg,
	})
}

func swOf(resp []byte) string {
	if len(resp) < 2 {
		return ""
	}
	return fmt.Sprintf("%02X%02X", resp[len(resp)-2], resp[len(resp)-1])
}

// runInvariants checks six protocol-level invariants the applet must
// uphold regardless of command history, each against its own
// freshly-seeded card.
func (r *Runner) runInvariants() {
	r.checkWellFormedSW()
	r.checkRemainingTriesMonotone()
	r.checkDSCounterMonotone()
	r.checkVerifyResetClearsAuth()
	r.checkPowerUpResetClearsAuth()
	r.checkPutGetRoundtrip()
}

func (r *Runner) checkWellFormedSW() {
	e, _ := newCard()
	apdus := [][]byte{
		{0x00, 0xA4, 0x04, 0x00, 0x06, 0xD2, 0x76, 0x00, 0x01, 0x24, 0x01},
		{0x00, 0x20, 0x00, 0x82, 0x06, 0x31, 0x32, 0x33, 0x34, 0x35, 0x36},
		{0x00, 0xCA, 0x00, 0x5E, 0x00},
		{0x00, 0x2A, 0x9E, 0x9A, 0x01, 0xAB},
	}
	for _, apdu := range apdus {
		resp := e.Execute(apdu)
		if len(resp) < 2 {
			r.record("every response ends in SW1SW2", "invariant", false,
				"len>=2", fmt.Sprintf("len=%d", len(resp)), apdu, resp,
				"response too short to carry a status word")
			return
		}
	}
	r.record("every response ends in SW1SW2", "invariant", true, "", "all responses >= 2 bytes", nil, nil, "")
}

func (r *Runner) checkRemainingTriesMonotone() {
	e, svc := newCard()
	selectApplet(e)

	before, _ := svc.Security.RemainingTries(security.PW1User)
	e.Execute([]byte{0x00, 0x20, 0x00, 0x82, 0x06, 0x30, 0x30, 0x30, 0x30, 0x30, 0x30})
	afterFail, _ := svc.Security.RemainingTries(security.PW1User)
	if afterFail >= before {
		r.record("remaining_tries decreases on failure", "invariant", false,
			fmt.Sprintf("< %d", before), fmt.Sprintf("%d", afterFail), nil, nil, "")
		return
	}

	e.Execute([]byte{0x00, 0x20, 0x00, 0x82, 0x06, 0x31, 0x32, 0x33, 0x34, 0x35, 0x36})
	afterSuccess, _ := svc.Security.RemainingTries(security.PW1User)
	if afterSuccess != before {
		r.record("remaining_tries resets to max on success", "invariant", false,
			fmt.Sprintf("%d", before), fmt.Sprintf("%d", afterSuccess), nil, nil, "")
		return
	}
	r.record("remaining_tries is monotone and resets on success", "invariant", true, "", "", nil, nil, "")
}

func (r *Runner) checkDSCounterMonotone() {
	e, svc := newCard()
	selectApplet(e)
	e.Execute([]byte{0x00, 0x20, 0x00, 0x81, 0x06, 0x31, 0x32, 0x33, 0x34, 0x35, 0x36})
	e.Execute([]byte{0x00, 0x47, 0x80, 0x00, 0x02, 0xB6, 0x00})

	before, _ := svc.Security.GetDSCounter()
	digest := bytes.Repeat([]byte{0xCD}, 32)
	req := append([]byte{0x00, 0x2A, 0x9E, 0x9A, byte(len(digest))}, digest...)
	e.Execute(req)
	after, _ := svc.Security.GetDSCounter()
	if after != before+1 {
		r.record("DS counter increments by exactly 1 per PSO:CDS", "invariant", false,
			fmt.Sprintf("%d", before+1), fmt.Sprintf("%d", after), req, nil, "")
		return
	}
	r.record("DS counter increments by exactly 1 per PSO:CDS", "invariant", true, "", "", nil, nil, "")
}

func (r *Runner) checkVerifyResetClearsAuth() {
	e, svc := newCard()
	selectApplet(e)
	e.Execute([]byte{0x00, 0x20, 0x00, 0x82, 0x06, 0x31, 0x32, 0x33, 0x34, 0x35, 0x36})
	if !svc.Security.IsVerified(security.PW1User) {
		r.record("Verify P1=0xFF clears auth", "invariant", false, "verified before reset", "not verified", nil, nil, "setup failed")
		return
	}
	e.Execute([]byte{0x00, 0x20, 0xFF, 0x82, 0x00})
	if svc.Security.IsVerified(security.PW1User) {
		r.record("Verify P1=0xFF clears auth", "invariant", false, "verified=false", "verified=true", nil, nil, "")
		return
	}
	r.record("Verify P1=0xFF clears auth", "invariant", true, "", "", nil, nil, "")
}

func (r *Runner) checkPowerUpResetClearsAuth() {
	e, svc := newCard()
	selectApplet(e)
	e.Execute([]byte{0x00, 0x20, 0x00, 0x82, 0x06, 0x31, 0x32, 0x33, 0x34, 0x35, 0x36})
	e.Reset()
	if svc.Security.IsVerified(security.PW1User) {
		r.record("power-up reset clears all auth", "invariant", false, "verified=false", "verified=true", nil, nil, "")
		return
	}
	r.record("power-up reset clears all auth", "invariant", true, "", "", nil, nil, "")
}

func (r *Runner) checkPutGetRoundtrip() {
	e, _ := newCard()
	selectApplet(e)
	put := e.Execute([]byte{0x00, 0xDA, 0x00, 0x5E, 0x04, 0xDE, 0xAD, 0xBE, 0xEF})
	get := e.Execute([]byte{0x00, 0xCA, 0x00, 0x5E, 0x00})
	want := []byte{0xDE, 0xAD, 0xBE, 0xEF, 0x90, 0x00}
	if !bytes.HasSuffix(put, []byte{0x90, 0x00}) || !bytes.Equal(get, want) {
		r.record("PutData/GetData round-trips exact bytes", "invariant", false,
			fmt.Sprintf("%X", want), fmt.Sprintf("%X", get), nil, nil, "")
		return
	}
	r.record("PutData/GetData round-trips exact bytes", "invariant", true, "", "", nil, nil, "")
}

// runScenarios replays six worked APDU transcripts verbatim, each
// against a fresh card. Scenario 4 (GenerateKeyPair read-public) needs
// a key on the slot to read, so a generate step runs first; the
// literal read-public APDU and its SW are what gets scored.
func (r *Runner) runScenarios() {
	r.scenarioSelect()
	r.scenarioVerify()
	r.scenarioChangeReferenceData()
	r.scenarioGenerateAndReadPublicKey()
	r.scenarioCDSWithoutVerify()
	r.scenarioPutGetRoundtrip()
}

func (r *Runner) scenarioSelect() {
	e, _ := newCard()
	apdu := []byte{0x00, 0xA4, 0x04, 0x00, 0x06, 0xD2, 0x76, 0x00, 0x01, 0x24, 0x01}
	resp := e.Execute(apdu)
	r.record("select OpenPGP applet", "scenario", swOf(resp) == "9000", "9000", swOf(resp), apdu, resp, "")
}

func (r *Runner) scenarioVerify() {
	e, _ := newCard()
	selectApplet(e)

	wrong := []byte{0x00, 0x20, 0x00, 0x82, 0x06, 0x31, 0x32, 0x33, 0x34, 0x35, 0x37}
	resp := e.Execute(wrong)
	if swOf(resp) != "63C2" {
		r.record("verify PW1 wrong PIN reports 2 tries left", "scenario", false, "63C2", swOf(resp), wrong, resp, "")
		return
	}

	right := []byte{0x00, 0x20, 0x00, 0x82, 0x06, 0x31, 0x32, 0x33, 0x34, 0x35, 0x36}
	resp = e.Execute(right)
	if swOf(resp) != "9000" {
		r.record("verify PW1 correct PIN succeeds", "scenario", false, "9000", swOf(resp), right, resp, "")
		return
	}

	status := []byte{0x00, 0x20, 0x00, 0x82, 0x00}
	resp = e.Execute(status)
	r.record("verify PW1 wrong-then-correct, then status query", "scenario",
		swOf(resp) == "9000", "9000", swOf(resp), status, resp, "")
}

func (r *Runner) scenarioChangeReferenceData() {
	e, _ := newCard()
	selectApplet(e)
	apdu := []byte{
		0x00, 0x24, 0x00, 0x82, 0x0C,
		0x31, 0x32, 0x33, 0x34, 0x35, 0x36,
		0x61, 0x62, 0x63, 0x64, 0x65, 0x66,
	}
	resp := e.Execute(apdu)
	r.record(`ChangeReferenceData PW1 from "123456" to "abcdef"`, "scenario",
		swOf(resp) == "9000", "9000", swOf(resp), apdu, resp, "")
}

func (r *Runner) scenarioGenerateAndReadPublicKey() {
	e, _ := newCard()
	selectApplet(e)
	e.Execute([]byte{0x00, 0x47, 0x80, 0x00, 0x02, 0xB6, 0x00})

	apdu := []byte{0x00, 0x47, 0x81, 0x00, 0x02, 0xB6, 0x00}
	resp := e.Execute(apdu)
	ok := swOf(resp) == "9000" && len(resp) > 2 && resp[0] == 0x7F && resp[1] == 0x49
	r.record("GenerateAsymmetricKeyPair read-public for signature key", "scenario",
		ok, "7F49...9000", fmt.Sprintf("%02X..%s", resp[0], swOf(resp)), apdu, resp, "")
}

func (r *Runner) scenarioCDSWithoutVerify() {
	e, _ := newCard()
	selectApplet(e)
	digest := bytes.Repeat([]byte{0xAB}, 32)
	apdu := append([]byte{0x00, 0x2A, 0x9E, 0x9A, byte(len(digest))}, digest...)
	resp := e.Execute(apdu)
	r.record("PSO:CDS without prior verify is denied", "scenario",
		swOf(resp) == "6982", "6982", swOf(resp), apdu, resp, "")
}

func (r *Runner) scenarioPutGetRoundtrip() {
	e, _ := newCard()
	selectApplet(e)
	put := e.Execute([]byte{0x00, 0xDA, 0x00, 0x5E, 0x05, 0x48, 0x65, 0x6C, 0x6C, 0x6F})
	if swOf(put) != "9000" {
		r.record("PutData/GetData round trip on tag 0x005E", "scenario", false, "9000", swOf(put), nil, put, "PutData failed")
		return
	}
	getApdu := []byte{0x00, 0xCA, 0x00, 0x5E, 0x00}
	resp := e.Execute(getApdu)
	want := []byte{0x48, 0x65, 0x6C, 0x6C, 0x6F, 0x90, 0x00}
	r.record("PutData/GetData round trip on tag 0x005E", "scenario",
		bytes.Equal(resp, want), fmt.Sprintf("%X", want), fmt.Sprintf("%X", resp), getApdu, resp, "")
}
