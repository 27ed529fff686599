package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

// RemoteRequest is one call from a remote client:
// [sequence_number, function_name, ...args].
type RemoteRequest struct {
	Seq  int64
	Func string
	Args []json.RawMessage
}

func (r *RemoteRequest) UnmarshalJSON(data []byte) error {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("request must be an array: %w", err)
	}
	if len(items) < 2 {
		return errors.New("request needs a sequence number and a function name")
	}
	if err := json.Unmarshal(items[0], &r.Seq); err != nil {
		return fmt.Errorf("sequence number: %w", err)
	}
	if err := json.Unmarshal(items[1], &r.Func); err != nil {
		return fmt.Errorf("function name: %w", err)
	}
	r.Args = items[2:]
	return nil
}

// RemoteResponse answers a RemoteRequest, or pushes a listener value under
// the sequence number of the add_*_listener call. A response without
// payload is an acknowledgement.
type RemoteResponse struct {
	Seq        int64
	Payload    any
	HasPayload bool
}

func (r RemoteResponse) MarshalJSON() ([]byte, error) {
	if !r.HasPayload {
		return json.Marshal([]any{r.Seq})
	}
	return json.Marshal([]any{r.Seq, r.Payload})
}

// Ack returns a payload-less response.
func Ack(seq int64) RemoteResponse {
	return RemoteResponse{Seq: seq}
}

// Reply returns a response carrying payload.
func Reply(seq int64, payload any) RemoteResponse {
	return RemoteResponse{Seq: seq, Payload: payload, HasPayload: true}
}

// ErrorPrefix tags error strings sent as response payloads.
const ErrorPrefix = "error:"

// ErrorReply returns a response carrying err as a tagged string.
func ErrorReply(seq int64, err error) RemoteResponse {
	return Reply(seq, ErrorPrefix+err.Error())
}

// BridgeRequest is an RPC call to the Bitwig extension.
type BridgeRequest struct {
	ID     int64  `json:"id"`
	Method string `json:"method"`
	Params []any  `json:"params,omitempty"`
}

// BridgeError is the error half of a BridgeMessage.
type BridgeError struct {
	Message string `json:"message"`
}

func (e *BridgeError) Error() string {
	return e.Message
}

// Bridge notification events.
const (
	EventListener = "listener"
	EventMIDI     = "midi"
	EventProject  = "project"
)

// BridgeMessage is anything the Bitwig extension sends: a response when ID
// is set, a notification when Event is set.
type BridgeMessage struct {
	ID     int64           `json:"id,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *BridgeError    `json:"error,omitempty"`

	Event string `json:"event,omitempty"`
	// Listener is set for listener events.
	Listener int64 `json:"listener,omitempty"`
	// Value is set for listener events.
	Value json.RawMessage `json:"value,omitempty"`
	// MIDI holds status and data bytes for midi events.
	MIDI []int `json:"midi,omitempty"`
	// Project is set for project events.
	Project string `json:"project,omitempty"`
}

// IsNotification reports whether the message was pushed by the extension.
func (m *BridgeMessage) IsNotification() bool {
	return m.Event != ""
}
