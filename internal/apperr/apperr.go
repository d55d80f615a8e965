// Package apperr provides the error taxonomy shared by the custody and
// authorization layers.  Errors carry the operation that raised them, a
// class (Kind) used for runtime matching, and an optional stable reason Code
// that calling tooling can surface to a user.
package apperr

import (
	"errors"
	"strings"
)

// Op describes the operation in which an error condition was raised.
type Op string

// Code is a stable, user-facing reason code such as "daily_cap_exceeded".
type Code string

// Kind describes the class of error.
type Kind int

// Error kinds.
const (
	Other              Kind = iota // Unclassified error -- does not appear in error strings
	Crypto                         // Authentication, envelope or share reconstruction failure
	NotExist                       // Wallet or account does not exist
	Exist                          // Wallet already exists
	Invalid                        // Invalid argument or operation
	Passphrase                     // Wrong passphrase
	NotEstablished                 // Passphrase has not been set up yet
	Policy                         // Operation blocked by policy
	Declined                       // User declined or did not answer a confirmation
	BackupNotConfirmed             // Offline share acknowledgement failed
	IO                             // Disk or network I/O error
	LockTimeout                    // Keystore lock could not be acquired in time
)

func (k Kind) String() string {
	switch k {
	case Other:
		return "unclassified error"
	case Crypto:
		return "cryptographic failure"
	case NotExist:
		return "item does not exist"
	case Exist:
		return "item already exists"
	case Invalid:
		return "invalid operation"
	case Passphrase:
		return "invalid passphrase"
	case NotEstablished:
		return "passphrase not established"
	case Policy:
		return "blocked by policy"
	case Declined:
		return "declined by user"
	case BackupNotConfirmed:
		return "backup not confirmed"
	case IO:
		return "I/O error"
	case LockTimeout:
		return "keystore lock timeout"
	default:
		return "unknown error kind"
	}
}

// Error describes an error condition raised within the wallet backend.
type Error struct {
	Op   Op
	Kind Kind
	Code Code
	Err  error
}

// E creates an *Error from one or more arguments.  Recognized argument
// types are Op, Kind, Code, string (becomes the underlying error) and error.
// When a nested *Error is passed, its Op, Kind and Code are promoted to the
// new error unless overridden by the other arguments.
//
// Panics if no arguments are passed.
func E(args ...interface{}) error {
	if len(args) == 0 {
		panic("apperr.E: no args")
	}

	var e Error
	var prev *Error
	for _, arg := range args {
		switch arg := arg.(type) {
		case Op:
			e.Op = arg
		case Kind:
			e.Kind = arg
		case Code:
			e.Code = arg
		case string:
			e.Err = errors.New(arg)
		case *Error:
			prev = arg
			e.Err = arg
		case error:
			e.Err = arg
		}
	}

	if prev != nil && e.Err == prev {
		if e.Op == "" {
			e.Op = prev.Op
		}
		if e.Kind == Other {
			e.Kind = prev.Kind
		}
		if e.Code == "" {
			e.Code = prev.Code
		}
		if (prev.Op == "" || prev.Op == e.Op) && (prev.Kind == Other || prev.Kind == e.Kind) &&
			(prev.Code == "" || prev.Code == e.Code) {
			e.Err = prev.Err
		}
	}

	return &e
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(string(e.Op))
	}
	if e.Kind != Other {
		if b.Len() > 0 {
			b.WriteString(": ")
		}
		b.WriteString(e.Kind.String())
	}
	if e.Code != "" {
		b.WriteString(" (")
		b.WriteString(string(e.Code))
		b.WriteString(")")
	}
	if e.Err != nil {
		if b.Len() > 0 {
			b.WriteString(": ")
		}
		b.WriteString(e.Err.Error())
	}
	if b.Len() == 0 {
		return Other.String()
	}
	return b.String()
}

// Unwrap returns the underlying error so sentinel errors can be matched
// with errors.Is.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is returns whether err is, or wraps, an *Error of the given kind.
// Does not match against the Other kind.
func Is(kind Kind, err error) bool {
	var e *Error
	for err != nil {
		if !errors.As(err, &e) {
			return false
		}
		if e.Kind != Other {
			return e.Kind == kind
		}
		err = e.Err
	}
	return false
}

// CodeOf returns the first reason code found in the error chain, or the
// empty code.
func CodeOf(err error) Code {
	var e *Error
	for err != nil {
		if !errors.As(err, &e) {
			return ""
		}
		if e.Code != "" {
			return e.Code
		}
		err = e.Err
	}
	return ""
}
