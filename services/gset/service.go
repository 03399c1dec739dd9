// Package gset implements the grow-only set workload. Same anti-entropy
// discipline as the counter: immediate local acknowledgment, periodic
// full-state gossip, merge by union.
package gset

import (
	"sync"
	"time"

	"github.com/vx-labs/maelstrom-node/crdt"
	"github.com/vx-labs/maelstrom-node/node"
	"github.com/vx-labs/maelstrom-node/telemetry"
	"github.com/vx-labs/maelstrom-node/transport"
	"go.uber.org/zap"
)

type Service struct {
	node   *node.Node
	logger *zap.Logger

	gossipInterval time.Duration

	mu  sync.RWMutex
	set *crdt.GSet
}

func New(n *node.Node, logger *zap.Logger, gossipInterval time.Duration) *Service {
	return &Service{
		node:           n,
		logger:         logger,
		gossipInterval: gossipInterval,
		set:            crdt.NewGSet(),
	}
}

func (s *Service) Name() string { return "gset" }

func (s *Service) Setup() {
	s.node.Handle("add", s.handleAdd)
	s.node.Handle("read", s.handleRead)
	s.node.Handle("replicate", s.handleReplicate)
	s.node.Every(s.gossipInterval, s.gossip)
}

func (s *Service) handleAdd(env transport.Envelope) error {
	body := transport.ElementBody{}
	if err := transport.DecodeBody(env, &body); err != nil {
		return err
	}
	h, err := s.node.ResponseHeader(body.Header, "add_ok")
	if err != nil {
		return err
	}
	if err := s.node.Send(env.Src, h); err != nil {
		return err
	}
	s.mu.Lock()
	s.set.Add(*body.Element)
	s.mu.Unlock()
	return nil
}

func (s *Service) handleRead(env transport.Envelope) error {
	body := transport.ReadBody{}
	if err := transport.DecodeBody(env, &body); err != nil {
		return err
	}
	s.mu.RLock()
	values := s.set.Values()
	s.mu.RUnlock()
	h, err := s.node.ResponseHeader(body.Header, "read_ok")
	if err != nil {
		return err
	}
	return s.node.Send(env.Src, transport.SetValueBody{Header: h, Value: values})
}

func (s *Service) handleReplicate(env transport.Envelope) error {
	body := transport.SetStateBody{}
	if err := transport.DecodeBody(env, &body); err != nil {
		return err
	}
	s.mu.Lock()
	s.set.Merge(body.Value)
	s.mu.Unlock()
	return nil
}

func (s *Service) gossip() {
	s.mu.RLock()
	snapshot := s.set.Values()
	s.mu.RUnlock()
	for _, peer := range s.node.Peers() {
		h := s.node.Header("replicate")
		if err := s.node.Send(peer, transport.SetStateBody{Header: h, Value: snapshot}); err != nil {
			s.logger.Warn("failed to gossip set state", zap.String("peer", peer), zap.Error(err))
		}
	}
	telemetry.GossipRounds.Inc()
}
