package dag

import "errors"

// Kind classifies repository errors.
type Kind uint8

const (
	KindIO Kind = iota + 1
	KindEmptyRepository
	KindObjectNotFound
	KindInvalidReference
	KindCodec
	KindCyclicHistory
)

func (k Kind) String() string {
	switch k {
	case KindIO:
		return "i/o error"
	case KindEmptyRepository:
		return "not a wts repository"
	case KindObjectNotFound:
		return "object not found"
	case KindInvalidReference:
		return "invalid reference"
	case KindCodec:
		return "codec error"
	case KindCyclicHistory:
		return "cyclic history"
	default:
		return "unknown error"
	}
}

// Error is returned by every repository operation. Key names the object,
// reference or path the failure is about.
type Error struct {
	Kind Kind
	Key  string
	Err  error
}

// Sentinels to test error kinds with errors.Is.
var (
	ErrIO               = &Error{Kind: KindIO}
	ErrEmptyRepository  = &Error{Kind: KindEmptyRepository}
	ErrObjectNotFound   = &Error{Kind: KindObjectNotFound}
	ErrInvalidReference = &Error{Kind: KindInvalidReference}
	ErrCodec            = &Error{Kind: KindCodec}
	ErrCyclicHistory    = &Error{Kind: KindCyclicHistory}
)

func newError(kind Kind, key string, err error) *Error {
	return &Error{Kind: kind, Key: key, Err: err}
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Key != "" {
		msg += ": " + e.Key
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap nested error
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches any *Error of the same kind. A target with a key also
// requires the key to match.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Key == "" || t.Key == e.Key)
}

// KindOf returns the kind of the first *Error in err's chain, or 0.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
