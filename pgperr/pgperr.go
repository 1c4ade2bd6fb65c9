// Package pgperr defines the applet's closed error taxonomy and the
// total mapping from error kind to ISO 7816-4 status word (SW1SW2).
package pgperr

import "fmt"

// Kind is a closed enumeration of the error categories the core can
// produce: structural, routing, access, storage, crypto, TLV and
// internal errors, plus the ErrorPutInData sentinel.
type Kind int

const (
	NoError Kind = iota

	// Structural / APDU framing
	WrongAPDUStructure
	WrongAPDUCLA
	WrongAPDUINS
	WrongAPDUP1P2
	WrongAPDULength
	WrongAPDUDataLength

	// Routing
	ApplicationNotFound

	// Access / security
	AccessDenied
	PasswordLocked
	WrongPassword
	ConditionsNotSatisfied
	ApplicationTerminated

	// Storage
	DataNotFound
	FileNotFound
	FileWriteError
	StoredKeyError
	StoredKeyParamsError

	// Crypto
	CryptoDataError
	CryptoOperationError
	CryptoResultError

	// TLV
	TLVDecodeError

	// Internal
	InternalError
	OutOfMemory

	// ErrorPutInData signals that the handler has already written the
	// full response, including its own status word; the executor must
	// not append one of its own.
	ErrorPutInData
)

// Error wraps a Kind with an optional underlying cause and, for
// WrongPassword, the number of verification attempts remaining.
type Error struct {
	Kind           Kind
	RemainingTries int // meaningful only for WrongPassword
	Cause          error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Cause)
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Cause }

// New constructs an *Error of the given kind with no wrapped cause.
func New(kind Kind) *Error { return &Error{Kind: kind} }

// Wrap constructs an *Error of the given kind wrapping cause.
func Wrap(kind Kind, cause error) *Error { return &Error{Kind: kind, Cause: cause} }

// WrongPasswordErr builds the WrongPassword error carrying the number
// of verification attempts left after the failed try.
func WrongPasswordErr(remaining int) *Error {
	return &Error{Kind: WrongPassword, RemainingTries: remaining}
}

func (k Kind) String() string {
	switch k {
	case NoError:
		return "no error"
	case WrongAPDUStructure:
		return "malformed APDU structure"
	case WrongAPDUCLA:
		return "wrong APDU class"
	case WrongAPDUINS:
		return "wrong APDU instruction"
	case WrongAPDUP1P2:
		return "wrong P1/P2"
	case WrongAPDULength:
		return "wrong APDU length"
	case WrongAPDUDataLength:
		return "wrong data field length"
	case ApplicationNotFound:
		return "application not found"
	case AccessDenied:
		return "access denied"
	case PasswordLocked:
		return "password locked"
	case WrongPassword:
		return "wrong password"
	case ConditionsNotSatisfied:
		return "conditions of use not satisfied"
	case ApplicationTerminated:
		return "application terminated"
	case DataNotFound:
		return "data object not found"
	case FileNotFound:
		return "file not found"
	case FileWriteError:
		return "file write error"
	case StoredKeyError:
		return "stored key error"
	case StoredKeyParamsError:
		return "stored key parameters error"
	case CryptoDataError:
		return "crypto input data error"
	case CryptoOperationError:
		return "crypto operation failed"
	case CryptoResultError:
		return "crypto result error"
	case TLVDecodeError:
		return "TLV decode error"
	case InternalError:
		return "internal error"
	case OutOfMemory:
		return "out of memory"
	case ErrorPutInData:
		return "response already written by handler"
	default:
		return "unknown error"
	}
}

// SW1SW2 status words used by the mapping table below.
const (
	swOK                   = 0x9000
	swApplicationNotFound  = 0x6A82
	swWrongCLA             = 0x6E00
	swWrongINS             = 0x6D00
	swWrongP1P2            = 0x6B00
	swWrongLength          = 0x6700
	swDataNotFound         = 0x6A88
	swConditionsNotSat     = 0x6985
	swAccessDenied         = 0x6982
	swPasswordLocked       = 0x6983
	swWrongPasswordBase    = 0x63C0
	swInternal             = 0x6F00
)

// ToSW implements the total error-kind-to-status-word mapping. For
// WrongPassword, remainingTries must be the post-decrement attempt
// count (0-15); it is packed into the low nibble of SW2.
func ToSW(err error) uint16 {
	if err == nil {
		return swOK
	}
	pe, ok := err.(*Error)
	if !ok {
		return swInternal
	}
	switch pe.Kind {
	case NoError:
		return swOK
	case ApplicationNotFound:
		return swApplicationNotFound
	case WrongAPDUCLA:
		return swWrongCLA
	case WrongAPDUINS:
		return swWrongINS
	case WrongAPDUP1P2:
		return swWrongP1P2
	case WrongAPDUStructure, WrongAPDULength, WrongAPDUDataLength:
		return swWrongLength
	case DataNotFound, FileNotFound:
		return swDataNotFound
	case ConditionsNotSatisfied:
		return swConditionsNotSat
	case AccessDenied:
		return swAccessDenied
	case PasswordLocked:
		return swPasswordLocked
	case ApplicationTerminated:
		return swConditionsNotSat
	case WrongPassword:
		tries := pe.RemainingTries & 0x0F
		return uint16(swWrongPasswordBase | tries)
	case CryptoDataError, CryptoOperationError, CryptoResultError,
		TLVDecodeError, StoredKeyError, StoredKeyParamsError,
		FileWriteError, InternalError, OutOfMemory:
		return swInternal
	default:
		return swInternal
	}
}

// SplitSW splits a 16-bit status word into its SW1/SW2 bytes.
func SplitSW(sw uint16) (byte, byte) {
	return byte(sw >> 8), byte(sw)
}
