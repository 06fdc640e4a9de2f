package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
)

// --------------------------------------------------------------------------
// Sentinel errors
// --------------------------------------------------------------------------

var (
	// ErrTimeout resolves an invocation whose deadline passed before a
	// response arrived.
	ErrTimeout = errors.New("invocation timed out")

	// ErrConnectionClosed resolves invocations that were in flight on a
	// connection when it went away.
	ErrConnectionClosed = errors.New("connection to member was closed")

	// ErrClientShutdown fails operations issued after the client was shut down.
	ErrClientShutdown = errors.New("client is shut down")

	// ErrNoOwner is returned when no owner is known for a partition.
	ErrNoOwner = errors.New("no owner known for partition")

	// ErrNoEndpoints is returned when the balancer has no endpoint to offer.
	ErrNoEndpoints = errors.New("no endpoints available")
)

// --------------------------------------------------------------------------
// Error Catalog
// --------------------------------------------------------------------------

// ErrorCode classifies a remote error. The catalog below decides which codes
// may be retried.
type ErrorCode int32

const (
	CodeUndefined ErrorCode = iota
	CodeGeneric
	CodeTargetNotActive     // addressed member is shutting down or gone
	CodeTargetDisconnected  // member dropped the connection mid-request
	CodePartitionMigrating  // partition is moving between members
	CodeRetryableServer     // transient server-side condition
	CodeIllegalArgument     // request rejected as malformed
	CodeAuthentication      // request rejected as unauthorized
	CodeInternal            // unspecified server failure
)

// String returns the symbolic name of the code.
func (c ErrorCode) String() string {
	switch c {
	case CodeGeneric:
		return "generic"
	case CodeTargetNotActive:
		return "targetNotActive"
	case CodeTargetDisconnected:
		return "targetDisconnected"
	case CodePartitionMigrating:
		return "partitionMigrating"
	case CodeRetryableServer:
		return "retryableServer"
	case CodeIllegalArgument:
		return "illegalArgument"
	case CodeAuthentication:
		return "authentication"
	case CodeInternal:
		return "internal"
	default:
		return "undefined"
	}
}

// --------------------------------------------------------------------------
// ServerError
// --------------------------------------------------------------------------

// ServerError is a remote error decoded from an error response message.
type ServerError struct {
	Code    ErrorCode
	Class   string
	Message string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error (%s): %s: %s", e.Code, e.Class, e.Message)
}

// --------------------------------------------------------------------------
// Classification
// --------------------------------------------------------------------------

// IsTransportError reports whether err indicates that the connection or the
// addressed member itself failed. Such failures are retried on a new target
// without regard to the request's retryable marker.
func IsTransportError(err error) bool {
	if errors.Is(err, ErrConnectionClosed) || errors.Is(err, ErrNoOwner) || errors.Is(err, ErrNoEndpoints) {
		return true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var serverErr *ServerError
	if errors.As(err, &serverErr) {
		return serverErr.Code == CodeTargetNotActive || serverErr.Code == CodeTargetDisconnected
	}
	return false
}

// IsRetryableError reports whether err is a remote error the protocol marks
// as retryable. Retrying those is only safe for idempotent requests, which
// the caller of this function has to check.
func IsRetryableError(err error) bool {
	var serverErr *ServerError
	if !errors.As(err, &serverErr) {
		return false
	}
	switch serverErr.Code {
	case CodePartitionMigrating, CodeRetryableServer:
		return true
	default:
		return false
	}
}

// --------------------------------------------------------------------------
// Error Codec
// --------------------------------------------------------------------------

// Error payload layout:
// - 4 bytes: error code (uint32, big endian)
// - 2 bytes: class length, followed by the class string
// - 2 bytes: message length, followed by the message string

// DecodeError decodes the remote error carried by an error response message.
func DecodeError(msg *ClientMessage) *ServerError {
	payload := msg.Payload()
	if len(payload) < 4 {
		return &ServerError{Code: CodeUndefined, Class: "UnknownError", Message: "malformed error payload"}
	}

	serverErr := &ServerError{Code: ErrorCode(binary.BigEndian.Uint32(payload[0:4]))}
	rest := payload[4:]

	serverErr.Class, rest = readString(rest)
	serverErr.Message, _ = readString(rest)
	return serverErr
}

// EncodeError builds an error response message for the given correlation id.
// Used by tests and diagnostic tooling; the cluster side produces the same
// layout.
func EncodeError(correlationID int64, serverErr *ServerError) *ClientMessage {
	payload := make([]byte, 0, 8+len(serverErr.Class)+len(serverErr.Message))
	payload = binary.BigEndian.AppendUint32(payload, uint32(serverErr.Code))
	payload = appendString(payload, serverErr.Class)
	payload = appendString(payload, serverErr.Message)

	msg := NewMessage(MsgTError, payload)
	msg.SetCorrelationID(correlationID)
	return msg
}

func appendString(buf []byte, s string) []byte {
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(s)))
	return append(buf, s...)
}

func readString(buf []byte) (string, []byte) {
	if len(buf) < 2 {
		return "", nil
	}
	length := int(binary.BigEndian.Uint16(buf[0:2]))
	buf = buf[2:]
	if len(buf) < length {
		return string(buf), nil
	}
	return string(buf[:length]), buf[length:]
}
