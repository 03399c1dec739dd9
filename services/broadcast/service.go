// Package broadcast implements topology-aware flood broadcast with
// receiver-side deduplication and retry-until-acknowledged delivery.
package broadcast

import (
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/vx-labs/maelstrom-node/node"
	"github.com/vx-labs/maelstrom-node/telemetry"
	"github.com/vx-labs/maelstrom-node/transport"
	"go.uber.org/zap"
)

type Service struct {
	node   *node.Node
	logger *zap.Logger

	retryInterval time.Duration

	mu        sync.RWMutex
	neighbors []string
	seen      map[int64]struct{}
	pending   map[uint64]transport.Envelope
}

func New(n *node.Node, logger *zap.Logger, retryInterval time.Duration) *Service {
	return &Service{
		node:          n,
		logger:        logger,
		retryInterval: retryInterval,
		seen:          map[int64]struct{}{},
		pending:       map[uint64]transport.Envelope{},
	}
}

func (s *Service) Name() string { return "broadcast" }

func (s *Service) Setup() {
	s.node.Handle("topology", s.handleTopology)
	s.node.Handle("broadcast", s.handleBroadcast)
	s.node.Handle("broadcast_ok", s.handleAck)
	s.node.Handle("read", s.handleRead)
	s.node.Every(s.retryInterval, s.retryPending)
}

func (s *Service) handleTopology(env transport.Envelope) error {
	body := transport.TopologyBody{}
	if err := transport.DecodeBody(env, &body); err != nil {
		return err
	}
	neighbors, ok := body.Topology[s.node.ID()]
	if !ok {
		return errors.Errorf("topology has no entry for node %s", s.node.ID())
	}
	s.mu.Lock()
	s.neighbors = neighbors
	s.mu.Unlock()
	s.logger.Info("topology assigned", zap.Strings("neighbors", neighbors))
	h, err := s.node.ResponseHeader(body.Header, "topology_ok")
	if err != nil {
		return err
	}
	return s.node.Send(env.Src, h)
}

func (s *Service) handleBroadcast(env transport.Envelope) error {
	body := transport.BroadcastBody{}
	if err := transport.DecodeBody(env, &body); err != nil {
		return err
	}
	h, err := s.node.ResponseHeader(body.Header, "broadcast_ok")
	if err != nil {
		return err
	}
	if err := s.node.Send(env.Src, h); err != nil {
		return err
	}

	value := *body.Message
	forwards, err := s.recordAndFanOut(value, env.Src)
	if err != nil {
		return err
	}
	for _, fwd := range forwards {
		if err := s.node.SendEnvelope(fwd); err != nil {
			return err
		}
	}
	return nil
}

// recordAndFanOut inserts the value into the seen set and, if it was new,
// builds one forward per neighbor except the immediate sender. Each forward
// is tracked in pending before it is transmitted, so an ack can never arrive
// for a message id we do not know about.
func (s *Service) recordAndFanOut(value int64, from string) ([]transport.Envelope, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.seen[value]; dup {
		return nil, nil
	}
	s.seen[value] = struct{}{}
	forwards := make([]transport.Envelope, 0, len(s.neighbors))
	for _, neighbor := range s.neighbors {
		if neighbor == from {
			continue
		}
		h := s.node.Header("broadcast")
		fwd, err := transport.NewEnvelope(s.node.ID(), neighbor, transport.BroadcastBody{Header: h, Message: &value})
		if err != nil {
			return nil, err
		}
		s.pending[h.MsgID] = fwd
		forwards = append(forwards, fwd)
	}
	return forwards, nil
}

func (s *Service) handleAck(env transport.Envelope) error {
	body := transport.AckBody{}
	if err := transport.DecodeBody(env, &body); err != nil {
		return err
	}
	s.mu.Lock()
	_, ok := s.pending[body.InReplyTo]
	delete(s.pending, body.InReplyTo)
	s.mu.Unlock()
	if !ok {
		// Duplicate or late ack: the entry is already gone.
		s.logger.Debug("ignored ack for unknown message",
			zap.Uint64("in_reply_to", body.InReplyTo), zap.String("from", env.Src))
	}
	return nil
}

func (s *Service) handleRead(env transport.Envelope) error {
	body := transport.ReadBody{}
	if err := transport.DecodeBody(env, &body); err != nil {
		return err
	}
	s.mu.RLock()
	messages := make([]int64, 0, len(s.seen))
	for v := range s.seen {
		messages = append(messages, v)
	}
	s.mu.RUnlock()
	sort.Slice(messages, func(i, j int) bool { return messages[i] < messages[j] })
	h, err := s.node.ResponseHeader(body.Header, "read_ok")
	if err != nil {
		return err
	}
	return s.node.Send(env.Src, transport.MessagesBody{Header: h, Messages: messages})
}

// retryPending retransmits every unacknowledged broadcast verbatim. The
// message id is preserved so the receiver's dedup makes redundant delivery a
// no-op and a late ack for an earlier attempt still matches.
func (s *Service) retryPending() {
	s.mu.RLock()
	if len(s.pending) == 0 {
		s.mu.RUnlock()
		return
	}
	envelopes := make([]transport.Envelope, 0, len(s.pending))
	for _, env := range s.pending {
		envelopes = append(envelopes, env)
	}
	s.mu.RUnlock()
	for _, env := range envelopes {
		if err := s.node.SendEnvelope(env); err != nil {
			s.logger.Warn("failed to retransmit broadcast", zap.Error(err))
			continue
		}
		telemetry.BroadcastRetries.Inc()
	}
	s.logger.Debug("retransmitted unacknowledged broadcasts", zap.Int("count", len(envelopes)))
}
