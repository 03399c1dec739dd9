// Package node owns what every workload shares: node identity, message-id
// allocation and envelope construction, plus the runtime that dispatches
// inbound messages to workload handlers.
package node

import (
	"io"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/vx-labs/maelstrom-node/telemetry"
	"github.com/vx-labs/maelstrom-node/transport"
	"go.uber.org/zap"
)

type Node struct {
	logger  *zap.Logger
	decoder *transport.Decoder
	writer  *transport.Writer

	id    string
	peers []string

	msgID uint64

	handlers map[string]Handler
	loops    []loop
}

func New(in io.Reader, out io.Writer, logger *zap.Logger) *Node {
	return &Node{
		logger:   logger,
		decoder:  transport.NewDecoder(in, logger),
		writer:   transport.NewWriter(out, logger),
		handlers: map[string]Handler{},
	}
}

// Init assigns identity and cluster membership. It is called once, by the
// init handshake, before any handler runs.
func (n *Node) Init(id string, peers []string) error {
	if n.id != "" {
		return errors.Errorf("node %s is already initialized", n.id)
	}
	if id == "" {
		return errors.New("node id must not be empty")
	}
	n.id = id
	n.peers = dedupe(peers)
	n.logger = n.logger.WithOptions(zap.Fields(zap.String("node_id", id)))
	return nil
}

func (n *Node) ID() string { return n.id }

func (n *Node) Logger() *zap.Logger { return n.logger }

// Peers returns every other node of the cluster.
func (n *Node) Peers() []string {
	peers := make([]string, 0, len(n.peers))
	for _, p := range n.peers {
		if p != n.id {
			peers = append(peers, p)
		}
	}
	return peers
}

// NextID allocates a fresh message id. Ids are strictly increasing and never
// reused, even under concurrent callers.
func (n *Node) NextID() uint64 {
	return atomic.AddUint64(&n.msgID, 1)
}

// Header starts a new message body of the given type with a fresh id.
func (n *Node) Header(msgType string) transport.Header {
	return transport.Header{Type: msgType, MsgID: n.NextID()}
}

// ResponseHeader starts a response body answering the given request header.
// Building a response on an uninitialized node is a programming error, not a
// recoverable condition.
func (n *Node) ResponseHeader(req transport.Header, msgType string) (transport.Header, error) {
	if n.id == "" {
		return transport.Header{}, errors.New("uninitialized node cannot send responses")
	}
	h := n.Header(msgType)
	h.InReplyTo = req.MsgID
	return h, nil
}

// Send marshals the body and writes one frame addressed to dest.
func (n *Node) Send(dest string, body interface{}) error {
	env, err := transport.NewEnvelope(n.id, dest, body)
	if err != nil {
		return err
	}
	return n.SendEnvelope(env)
}

// SendEnvelope writes an already-built frame. Retransmissions go through here
// so the payload and message id stay identical across attempts.
func (n *Node) SendEnvelope(env transport.Envelope) error {
	telemetry.MessagesSent.Inc()
	return n.writer.Write(env)
}

func dedupe(ids []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
