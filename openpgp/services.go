// Package openpgp implements the OpenPGP Card Application v3.3.1
// applet: AID selection, the handler table, and the per-command
// semantics of VERIFY, CHANGE REFERENCE DATA, RESET RETRY COUNTER,
// GET/PUT DATA, PSO, INTERNAL AUTHENTICATE, GENERATE ASYMMETRIC KEY
// PAIR and GET CHALLENGE.
package openpgp

import (
	"github.com/cardsim/openpgpcard/cryptoengine"
	"github.com/cardsim/openpgpcard/keystore"
	"github.com/cardsim/openpgpcard/security"
	"github.com/cardsim/openpgpcard/vfs"
)

// Services bundles every collaborator a handler needs, passed
// explicitly rather than reached for through package-level globals.
type Services struct {
	FS       *vfs.FS
	Security *security.Security
	Keys     *keystore.Store
	Crypto   *cryptoengine.Engine
	AppID    string
}

// NewServices wires a fresh set of collaborators scoped to appID,
// backed by a single shared vfs.FS.
func NewServices(fs *vfs.FS, appID string, crypto *cryptoengine.Engine) *Services {
	return &Services{
		FS:       fs,
		Security: security.New(fs, appID, security.DefaultPolicy()),
		Keys:     keystore.New(fs, appID),
		Crypto:   crypto,
		AppID:    appID,
	}
}
