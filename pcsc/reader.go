// Package pcsc talks to a physical PC/SC smart card: it lists readers,
// connects, and sends raw APDUs such as SELECT. The applet engine itself
// never imports this package; it exists only for the cardsim pcsc
// command.
package pcsc

import (
	"fmt"

	"github.com/ebfe/scard"
)

// Reader is a connection to a physical smart card reader and the card
// currently inserted in it.
type Reader struct {
	ctx  *scard.Context
	card *scard.Card
	name string
	atr  []byte
}

// ListReaders returns the names of available PC/SC readers.
func ListReaders() ([]string, error) {
	ctx, err := scard.EstablishContext()
	if err != nil {
		return nil, fmt.Errorf("establish PC/SC context: %w", err)
	}
	defer ctx.Release()

	readers, err := ctx.ListReaders()
	if err != nil {
		return nil, fmt.Errorf("list readers: %w", err)
	}
	return readers, nil
}

// Connect opens a connection to the reader at the given index.
func Connect(readerIndex int) (*Reader, error) {
	ctx, err := scard.EstablishContext()
	if err != nil {
		return nil, fmt.Errorf("establish PC/SC context: %w", err)
	}

	readers, err := ctx.ListReaders()
	if err != nil {
		ctx.Release()
		return nil, fmt.Errorf("list readers: %w", err)
	}
	if len(readers) == 0 {
		ctx.Release()
		return nil, fmt.Errorf("no PC/SC readers found")
	}
	if readerIndex < 0 || readerIndex >= len(readers) {
		ctx.Release()
		return nil, fmt.Errorf("reader index %d out of range (0-%d)", readerIndex, len(readers)-1)
	}

	name := readers[readerIndex]
	cardConn, err := ctx.Connect(name, scard.ShareShared, scard.ProtocolAny)
	if err != nil {
		ctx.Release()
		return nil, fmt.Errorf("connect to card in %q: %w", name, err)
	}

	status, err := cardConn.Status()
	if err != nil {
		cardConn.Disconnect(scard.LeaveCard)
		ctx.Release()
		return nil, fmt.Errorf("card status: %w", err)
	}

	return &Reader{ctx: ctx, card: cardConn, name: name, atr: status.Atr}, nil
}

// ConnectFirst connects to the first available reader.
func ConnectFirst() (*Reader, error) {
	return Connect(0)
}

// Transmit sends a raw APDU and returns the raw response, SW1SW2 included.
func (r *Reader) Transmit(apdu []byte) ([]byte, error) {
	resp, err := r.card.Transmit(apdu)
	if err != nil {
		return nil, fmt.Errorf("transmit failed: %w", err)
	}
	return resp, nil
}

// Close releases the reader connection.
func (r *Reader) Close() error {
	if r.card != nil {
		r.card.Disconnect(scard.LeaveCard)
	}
	if r.ctx != nil {
		r.ctx.Release()
	}
	return nil
}

// Name returns the PC/SC reader name.
func (r *Reader) Name() string { return r.name }

// ATRHex returns the card's ATR as an uppercase hex string.
func (r *Reader) ATRHex() string { return fmt.Sprintf("%X", r.atr) }

// SelectOpenPGP sends SELECT by AID for the OpenPGP applet family.
func (r *Reader) SelectOpenPGP(aid []byte) ([]byte, error) {
	apdu := make([]byte, 5+len(aid))
	apdu[0] = 0x00
	apdu[1] = 0xA4
	apdu[2] = 0x04
	apdu[3] = 0x00
	apdu[4] = byte(len(aid))
	copy(apdu[5:], aid)
	return r.Transmit(apdu)
}
