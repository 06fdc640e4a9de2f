package protocol

import (
	"encoding/binary"
	"fmt"
	"io"
)

// --------------------------------------------------------------------------
// Message Structure
// --------------------------------------------------------------------------

// ClientMessage is the unit exchanged with the cluster. The fixed header
// carries the routing and correlation information, the payload is opaque to
// the invocation machinery.
type ClientMessage struct {
	msgType       MessageType
	flags         uint8
	correlationID int64
	partitionID   int32
	payload       []byte

	// retryable marks the originating request as safe to re-execute. It is
	// client-local and never written to the wire.
	retryable bool
}

// NewMessage creates an outbound message of the given type with an opaque
// payload. The partition id starts unset (-1).
func NewMessage(msgType MessageType, payload []byte) *ClientMessage {
	return &ClientMessage{
		msgType:     msgType,
		partitionID: -1,
		payload:     payload,
	}
}

// NewPingRequest creates a ping request. Pings are idempotent.
func NewPingRequest() *ClientMessage {
	msg := NewMessage(MsgTPing, nil)
	msg.SetRetryable(true)
	return msg
}

func (m *ClientMessage) Type() MessageType    { return m.msgType }
func (m *ClientMessage) CorrelationID() int64 { return m.correlationID }
func (m *ClientMessage) PartitionID() int32   { return m.partitionID }
func (m *ClientMessage) Payload() []byte      { return m.payload }
func (m *ClientMessage) Retryable() bool      { return m.retryable }

func (m *ClientMessage) SetCorrelationID(id int64)   { m.correlationID = id }
func (m *ClientMessage) SetPartitionID(id int32)     { m.partitionID = id }
func (m *ClientMessage) SetRetryable(retryable bool) { m.retryable = retryable }

// HasEventFlag reports whether this message belongs to an event stream
// rather than being the single response of a request.
func (m *ClientMessage) HasEventFlag() bool { return m.flags&FlagEvent != 0 }

// SetEventFlag marks the message as an event message.
func (m *ClientMessage) SetEventFlag() { m.flags |= FlagEvent }

// String returns a short representation used in log statements.
func (m *ClientMessage) String() string {
	return fmt.Sprintf("message{type=%s, correlation=%d, partition=%d, event=%t, len=%d}",
		m.msgType, m.correlationID, m.partitionID, m.HasEventFlag(), len(m.payload))
}

// --------------------------------------------------------------------------
// Frame Codec
// --------------------------------------------------------------------------

// headerSize is the fixed frame header:
// - 4 bytes: payload length (uint32, big endian)
// - 2 bytes: message type (uint16, big endian)
// - 1 byte:  flags
// - 8 bytes: correlation id (uint64, big endian)
// - 4 bytes: partition id (uint32, big endian, two's complement for -1)
const headerSize = 19

// Write encodes the message as a single frame on w. The header and payload
// are written with one writev-style call where the writer supports it.
func (m *ClientMessage) Write(w io.Writer) error {
	header := make([]byte, headerSize)
	binary.BigEndian.PutUint32(header[0:4], uint32(len(m.payload)))
	binary.BigEndian.PutUint16(header[4:6], uint16(m.msgType))
	header[6] = m.flags
	binary.BigEndian.PutUint64(header[7:15], uint64(m.correlationID))
	binary.BigEndian.PutUint32(header[15:19], uint32(m.partitionID))

	if len(m.payload) == 0 {
		_, err := w.Write(header)
		return err
	}

	buffers := [][]byte{header, m.payload}
	for _, buf := range buffers {
		if _, err := w.Write(buf); err != nil {
			return err
		}
	}
	return nil
}

// Read decodes a single frame from r. It blocks until a full frame was read
// or the reader fails.
func Read(r io.Reader) (*ClientMessage, error) {
	header := make([]byte, headerSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, err
	}

	contentLength := binary.BigEndian.Uint32(header[0:4])
	msg := &ClientMessage{
		msgType:       MessageType(binary.BigEndian.Uint16(header[4:6])),
		flags:         header[6],
		correlationID: int64(binary.BigEndian.Uint64(header[7:15])),
		partitionID:   int32(binary.BigEndian.Uint32(header[15:19])),
	}

	if contentLength == 0 {
		return msg, nil
	}

	msg.payload = make([]byte, contentLength)
	if _, err := io.ReadFull(r, msg.payload); err != nil {
		return nil, err
	}
	return msg, nil
}

// --------------------------------------------------------------------------
// Flags
// --------------------------------------------------------------------------

const (
	// FlagEvent marks a message that belongs to a listener's event stream.
	FlagEvent uint8 = 1 << 0
)

// --------------------------------------------------------------------------
// Message Type Definition
// --------------------------------------------------------------------------

// MessageType discriminates the kind of request or response a message
// carries. MsgTError marks a response encoding a remote error.
type MessageType uint16

const (
	MsgTUnknown MessageType = iota

	// General message types

	MsgTPing  // Liveness probe
	MsgTError // Response encoding a remote error

	// Data operations

	MsgTGet    // Read a value by key
	MsgTSet    // Store a key-value pair
	MsgTDelete // Remove a key

	// Listener operations

	MsgTAddListener    // Subscribe to an event stream
	MsgTRemoveListener // Unsubscribe
	MsgTEvent          // A single event pushed by the cluster
)

// String returns the string representation of a MessageType.
func (t MessageType) String() string {
	switch t {
	case MsgTPing:
		return "ping"
	case MsgTError:
		return "error"
	case MsgTGet:
		return "get"
	case MsgTSet:
		return "set"
	case MsgTDelete:
		return "delete"
	case MsgTAddListener:
		return "addListener"
	case MsgTRemoveListener:
		return "removeListener"
	case MsgTEvent:
		return "event"
	default:
		return "unknown"
	}
}
