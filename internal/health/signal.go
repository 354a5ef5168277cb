package health

import (
	"errors"
	"fmt"
	"time"
)

// ErrorKind classifies a connection failure.
type ErrorKind int

const (
	ConnectError ErrorKind = iota
	JoinError
	SendError
	TransportException
	ReceiveTimeout
)

// String returns the kind's name.
func (k ErrorKind) String() string {
	switch k {
	case ConnectError:
		return "connect_error"
	case JoinError:
		return "join_error"
	case SendError:
		return "send_error"
	case TransportException:
		return "transport_exception"
	case ReceiveTimeout:
		return "receive_timeout"
	default:
		return "unknown"
	}
}

// Sentinel errors, one per kind, for use with errors.Is on a *Signal.
var (
	ErrConnect        = errors.New("health: connect failed")
	ErrJoin           = errors.New("health: join failed")
	ErrSend           = errors.New("health: send failed")
	ErrTransport      = errors.New("health: transport failure")
	ErrReceiveTimeout = errors.New("health: receive timeout")
)

func (k ErrorKind) sentinel() error {
	switch k {
	case ConnectError:
		return ErrConnect
	case JoinError:
		return ErrJoin
	case SendError:
		return ErrSend
	case TransportException:
		return ErrTransport
	case ReceiveTimeout:
		return ErrReceiveTimeout
	default:
		return nil
	}
}

// Signal is a classified connection failure. Detail holds the raw transport
// message for logs; it is never shown to the user.
type Signal struct {
	Kind   ErrorKind
	Detail string
}

// NewSignal creates a signal of the given kind. err may be nil.
func NewSignal(kind ErrorKind, err error) *Signal {
	s := &Signal{Kind: kind}
	if err != nil {
		s.Detail = err.Error()
	}
	return s
}

// Timeout returns a ReceiveTimeout signal when elapsed reached limit, or nil.
// A non-positive limit disables the check.
func Timeout(elapsed, limit time.Duration) *Signal {
	if limit <= 0 || elapsed < limit {
		return nil
	}
	return &Signal{Kind: ReceiveTimeout, Detail: fmt.Sprintf("no data for %s", elapsed)}
}

// Error implements error.
func (s *Signal) Error() string {
	if s.Detail == "" {
		return s.Kind.String()
	}
	return s.Kind.String() + ": " + s.Detail
}

// Is matches the kind's sentinel error.
func (s *Signal) Is(target error) bool {
	return target != nil && target == s.Kind.sentinel()
}

// Title returns the popup title for the signal.
func (s *Signal) Title() string {
	return "Error"
}

// Message returns classified, multi-line text suitable for the user.
func (s *Signal) Message() string {
	switch s.Kind {
	case ConnectError:
		return "Could not connect\nto the server."
	case JoinError:
		return "Could not join\nthe game session."
	case SendError:
		return "Failed to send data\nto the server."
	case TransportException:
		return "The connection\nwas lost."
	case ReceiveTimeout:
		return "The server stopped\nresponding."
	default:
		return "Unknown network\nerror."
	}
}
