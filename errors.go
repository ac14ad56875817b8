package exmdbpp

import (
	"fmt"

	"github.com/grommunio/exmdbpp-go/internal/wire"
)

// ConnectionError reports a failure at the transport layer: DNS, connect
// timeout, send/recv failure, unexpected close, or a short read on the
// socket. It is always fatal for the connection it occurred on.
type ConnectionError struct {
	Op  string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("exmdbpp: connection: %s: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// ProtocolError reports a non-zero status byte returned by the server.
type ProtocolError struct {
	Code byte
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("exmdbpp: protocol error: %s", responseCodeName(e.Code))
}

// Is reports whether target is a ProtocolError with the same code, so
// callers can write errors.Is(err, &ProtocolError{Code: DispatchError}).
func (e *ProtocolError) Is(target error) bool {
	t, ok := target.(*ProtocolError)
	return ok && t.Code == e.Code
}

// SerializationError reports a failure to serialize or deserialize a
// value: an oversize chain, an invalid SizedXID size, an unrecognized
// restriction or propval type code.
type SerializationError struct {
	Msg string
}

func (e *SerializationError) Error() string { return "exmdbpp: serialization: " + e.Msg }

// InvalidTypeError reports that a typed constructor's argument does not
// match the tag's declared wire type.
type InvalidTypeError struct {
	Tag      uint32
	Type     PropvalType
	Wanted   string
}

func (e *InvalidTypeError) Error() string {
	return fmt.Sprintf("exmdbpp: cannot construct %s tag 0x%08x from %s", e.Type, e.Tag, e.Wanted)
}

// ShortReadError reports that a Pop* call needed more bytes than a buffer
// had available.
type ShortReadError struct {
	Want, Have int
}

func (e *ShortReadError) Error() string {
	return fmt.Sprintf("exmdbpp: short read: wanted %d bytes, %d available", e.Want, e.Have)
}

// WrapShortRead converts a *wire.ErrShort (unexported outside this module)
// into the exported *ShortReadError so callers can errors.As into it. Any
// other error, including nil, passes through unchanged.
func WrapShortRead(err error) error {
	se, ok := err.(*wire.ErrShort)
	if !ok {
		return err
	}
	return &ShortReadError{Want: se.Want, Have: se.Have}
}

// Server response codes, per the exmdb wire protocol's 1-byte status field.
const (
	Success           byte = 0
	AccessDeny        byte = 1
	MaxReached        byte = 2
	LackMemory        byte = 3
	MisconfigPrefix   byte = 4
	MisconfigMode     byte = 5
	ConnectIncomplete byte = 6
	PullError         byte = 7
	DispatchError     byte = 8
	PushError         byte = 9
)

func responseCodeName(code byte) string {
	switch code {
	case Success:
		return "SUCCESS"
	case AccessDeny:
		return "ACCESS_DENY"
	case MaxReached:
		return "MAX_REACHED"
	case LackMemory:
		return "LACK_MEMORY"
	case MisconfigPrefix:
		return "MISCONFIG_PREFIX"
	case MisconfigMode:
		return "MISCONFIG_MODE"
	case ConnectIncomplete:
		return "CONNECT_INCOMPLETE"
	case PullError:
		return "PULL_ERROR"
	case DispatchError:
		return "DISPATCH_ERROR"
	case PushError:
		return "PUSH_ERROR"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", code)
	}
}
