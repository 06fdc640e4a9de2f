package protocol

import (
	"errors"
	"fmt"
	"io"
	"testing"
)

func TestErrorCodecRoundTrip(t *testing.T) {
	serverErr := &ServerError{
		Code:    CodePartitionMigrating,
		Class:   "PartitionMigratingException",
		Message: "partition 12 is moving",
	}

	msg := EncodeError(77, serverErr)

	if msg.Type() != MsgTError {
		t.Fatalf("expected error message type, got %s", msg.Type())
	}
	if msg.CorrelationID() != 77 {
		t.Errorf("expected correlation id 77, got %d", msg.CorrelationID())
	}

	decoded := DecodeError(msg)
	if decoded.Code != serverErr.Code {
		t.Errorf("code mismatch: got %s, want %s", decoded.Code, serverErr.Code)
	}
	if decoded.Class != serverErr.Class {
		t.Errorf("class mismatch: got %q, want %q", decoded.Class, serverErr.Class)
	}
	if decoded.Message != serverErr.Message {
		t.Errorf("message mismatch: got %q, want %q", decoded.Message, serverErr.Message)
	}
}

func TestDecodeErrorMalformedPayload(t *testing.T) {
	msg := NewMessage(MsgTError, []byte{0x01})

	decoded := DecodeError(msg)
	if decoded.Code != CodeUndefined {
		t.Errorf("malformed payloads should decode to an undefined error, got %s", decoded.Code)
	}
}

func TestIsTransportError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"connection closed", ErrConnectionClosed, true},
		{"wrapped connection closed", fmt.Errorf("send: %w", ErrConnectionClosed), true},
		{"no owner", ErrNoOwner, true},
		{"no endpoints", ErrNoEndpoints, true},
		{"eof", io.EOF, true},
		{"unexpected eof", io.ErrUnexpectedEOF, true},
		{"target not active", &ServerError{Code: CodeTargetNotActive}, true},
		{"target disconnected", &ServerError{Code: CodeTargetDisconnected}, true},
		{"partition migrating", &ServerError{Code: CodePartitionMigrating}, false},
		{"illegal argument", &ServerError{Code: CodeIllegalArgument}, false},
		{"plain error", errors.New("something else"), false},
		{"timeout", ErrTimeout, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransportError(tt.err); got != tt.want {
				t.Errorf("IsTransportError(%v) = %t, want %t", tt.err, got, tt.want)
			}
		})
	}
}

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"partition migrating", &ServerError{Code: CodePartitionMigrating}, true},
		{"retryable server", &ServerError{Code: CodeRetryableServer}, true},
		{"internal", &ServerError{Code: CodeInternal}, false},
		{"authentication", &ServerError{Code: CodeAuthentication}, false},
		{"not a server error", ErrConnectionClosed, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryableError(tt.err); got != tt.want {
				t.Errorf("IsRetryableError(%v) = %t, want %t", tt.err, got, tt.want)
			}
		})
	}
}
