package transport

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// Envelope is the wire shape exchanged with the harness: one JSON object per
// line, with a protocol-specific body kept raw until a handler decodes it.
type Envelope struct {
	Src  string          `json:"src"`
	Dest string          `json:"dest"`
	Body json.RawMessage `json:"body"`
}

// Header carries the fields present in every message body. Marshaled on its
// own it doubles as the body of plain acknowledgments (init_ok, topology_ok,
// broadcast_ok, add_ok).
type Header struct {
	Type      string `json:"type"`
	MsgID     uint64 `json:"msg_id"`
	InReplyTo uint64 `json:"in_reply_to,omitempty"`
}

func (e Envelope) Header() (Header, error) {
	var h Header
	if err := json.Unmarshal(e.Body, &h); err != nil {
		return h, errors.Wrap(err, "failed to decode message body header")
	}
	if h.Type == "" {
		return h, errors.New("message body has no type")
	}
	return h, nil
}

// NewEnvelope marshals the given body once, so the same envelope can be
// retransmitted byte for byte.
func NewEnvelope(src, dest string, body interface{}) (Envelope, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return Envelope{}, errors.Wrap(err, "failed to encode message body")
	}
	return Envelope{Src: src, Dest: dest, Body: raw}, nil
}

type validator interface {
	Validate() error
}

// DecodeBody unmarshals an envelope body into one of the typed message
// variants and runs its shape validation. Handlers only ever see validated
// payloads.
func DecodeBody(e Envelope, v validator) error {
	if err := json.Unmarshal(e.Body, v); err != nil {
		return errors.Wrap(err, "failed to decode message body")
	}
	return v.Validate()
}

// InitBody is the handshake assigning node identity and cluster membership.
type InitBody struct {
	Header
	NodeID  string   `json:"node_id"`
	NodeIDs []string `json:"node_ids"`
}

func (b *InitBody) Validate() error {
	if b.NodeID == "" {
		return errors.New("init: missing node_id")
	}
	if len(b.NodeIDs) == 0 {
		return errors.New("init: missing node_ids")
	}
	return nil
}

// TopologyBody assigns each node its neighbor list.
type TopologyBody struct {
	Header
	Topology map[string][]string `json:"topology"`
}

func (b *TopologyBody) Validate() error {
	if b.Topology == nil {
		return errors.New("topology: missing topology map")
	}
	return nil
}

// BroadcastBody floods one value through the cluster.
type BroadcastBody struct {
	Header
	Message *int64 `json:"message"`
}

func (b *BroadcastBody) Validate() error {
	if b.Message == nil {
		return errors.New("broadcast: missing message")
	}
	return nil
}

// AckBody is a broadcast_ok referencing the message it acknowledges.
type AckBody struct {
	Header
}

func (b *AckBody) Validate() error {
	if b.InReplyTo == 0 {
		return errors.New("ack: missing in_reply_to")
	}
	return nil
}

// ReadBody requests the locally visible state of any workload.
type ReadBody struct {
	Header
}

func (b *ReadBody) Validate() error { return nil }

// DeltaBody increments the grow-only counter.
type DeltaBody struct {
	Header
	Delta *int64 `json:"delta"`
}

func (b *DeltaBody) Validate() error {
	if b.Delta == nil {
		return errors.New("add: missing delta")
	}
	return nil
}

// ElementBody inserts one element into the grow-only set.
type ElementBody struct {
	Header
	Element *int64 `json:"element"`
}

func (b *ElementBody) Validate() error {
	if b.Element == nil {
		return errors.New("add: missing element")
	}
	return nil
}

// CounterStateBody is a full g-counter snapshot gossiped between peers.
type CounterStateBody struct {
	Header
	Value map[string]int64 `json:"value"`
}

func (b *CounterStateBody) Validate() error {
	if b.Value == nil {
		return errors.New("replicate: missing counter state")
	}
	return nil
}

// SetStateBody is a full g-set snapshot gossiped between peers.
type SetStateBody struct {
	Header
	Value []int64 `json:"value"`
}

func (b *SetStateBody) Validate() error {
	if b.Value == nil {
		return errors.New("replicate: missing set state")
	}
	return nil
}

// MessagesBody is the read_ok payload of the broadcast workload.
type MessagesBody struct {
	Header
	Messages []int64 `json:"messages"`
}

// CounterValueBody is the read_ok payload of the counter workload.
type CounterValueBody struct {
	Header
	Value int64 `json:"value"`
}

// SetValueBody is the read_ok payload of the set workload.
type SetValueBody struct {
	Header
	Value []int64 `json:"value"`
}

// EchoBody carries an opaque payload to be echoed back verbatim.
type EchoBody struct {
	Header
	Echo json.RawMessage `json:"echo"`
}

func (b *EchoBody) Validate() error {
	if len(b.Echo) == 0 {
		return errors.New("echo: missing echo payload")
	}
	return nil
}

// TxnBody is a list-append transaction: a sequence of ["r", key, nil] and
// ["append", key, value] operations.
type TxnBody struct {
	Header
	Txn []TxnOp `json:"txn"`
}

func (b *TxnBody) Validate() error {
	if b.Txn == nil {
		return errors.New("txn: missing operation list")
	}
	return nil
}

// TxnResultBody is the txn_ok payload, echoing the operations with read
// results filled in.
type TxnResultBody struct {
	Header
	Txn []TxnResult `json:"txn"`
}

const (
	TxnFuncRead   = "r"
	TxnFuncAppend = "append"
)

// TxnOp is one operation triple of an inbound transaction.
type TxnOp struct {
	Func  string
	Key   int64
	Value *int64
}

func (op *TxnOp) UnmarshalJSON(data []byte) error {
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return errors.Wrap(err, "txn: operation is not an array")
	}
	if len(parts) != 3 {
		return errors.Errorf("txn: operation has %d fields, want 3", len(parts))
	}
	if err := json.Unmarshal(parts[0], &op.Func); err != nil {
		return errors.Wrap(err, "txn: operation function is not a string")
	}
	if op.Func != TxnFuncRead && op.Func != TxnFuncAppend {
		return errors.Errorf("txn: unknown operation function %q", op.Func)
	}
	if err := json.Unmarshal(parts[1], &op.Key); err != nil {
		return errors.Wrap(err, "txn: operation key is not a number")
	}
	op.Value = nil
	if string(parts[2]) != "null" {
		var v int64
		if err := json.Unmarshal(parts[2], &v); err != nil {
			return errors.Wrap(err, "txn: operation value is not a number")
		}
		op.Value = &v
	}
	return nil
}

// TxnResult is one operation triple of a transaction reply. Value is nil for
// a read of an absent key, a []int64 for a read result, and an int64 for an
// append.
type TxnResult struct {
	Func  string
	Key   int64
	Value interface{}
}

func (r TxnResult) MarshalJSON() ([]byte, error) {
	return json.Marshal([]interface{}{r.Func, r.Key, r.Value})
}
