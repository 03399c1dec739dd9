// Package counter implements the grow-only counter workload: local updates
// are acknowledged immediately and full state is gossiped to every peer on a
// fixed interval.
package counter

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

	mu      sync.RWMutex
	counter *crdt.GCounter
}

func New(n *node.Node, logger *zap.Logger, gossipInterval time.Duration) *Service {
	return &Service{
		node:           n,
		logger:         logger,
		gossipInterval: gossipInterval,
		counter:        crdt.NewGCounter(),
	}
}

func (s *Service) Name() string { return "counter" }

func (s *Service) Setup() {
	s.node.Handle("add", s.handleAdd)
	s.node.Handle("read", s.handleRead)
	s.node.Handle("replicate", s.handleReplicate)
	s.node.Every(s.gossipInterval, s.gossip)
}

// handleAdd mutates only this node's own entry. No peer coordination happens
// before the acknowledgment: consistency is deferred to gossip.
func (s *Service) handleAdd(env transport.Envelope) error {
	body := transport.DeltaBody{}
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
	s.counter.Add(s.node.ID(), *body.Delta)
	s.mu.Unlock()
	return nil
}

// handleRead returns the locally visible sum. It may lag behind the true
// global value until more gossip rounds complete.
func (s *Service) handleRead(env transport.Envelope) error {
	body := transport.ReadBody{}
	if err := transport.DecodeBody(env, &body); err != nil {
		return err
	}
	s.mu.RLock()
	sum := s.counter.Sum()
	s.mu.RUnlock()
	h, err := s.node.ResponseHeader(body.Header, "read_ok")
	if err != nil {
		return err
	}
	return s.node.Send(env.Src, transport.CounterValueBody{Header: h, Value: sum})
}

func (s *Service) handleReplicate(env transport.Envelope) error {
	body := transport.CounterStateBody{}
	if err := transport.DecodeBody(env, &body); err != nil {
		return err
	}
	s.mu.Lock()
	s.counter.Merge(body.Value)
	s.mu.Unlock()
	return nil
}

// gossip sends the full local state to every peer. Lost rounds are
// compensated for by the next round; no ack or retry is needed.
func (s *Service) gossip() {
	s.mu.RLock()
	snapshot := s.counter.Snapshot()
	s.mu.RUnlock()
	for _, peer := range s.node.Peers() {
		h := s.node.Header("replicate")
		if err := s.node.Send(peer, transport.CounterStateBody{Header: h, Value: snapshot}); err != nil {
			s.logger.Warn("failed to gossip counter state", zap.String("peer", peer), zap.Error(err))
		}
	}
	telemetry.GossipRounds.Inc()
}
