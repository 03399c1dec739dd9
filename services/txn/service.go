// Package txn implements the single-node list-append transaction workload.
// There is no replication: the store lives in memory and transactions are
// applied atomically under one lock.
package txn

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/vx-labs/maelstrom-node/node"
	"github.com/vx-labs/maelstrom-node/transport"
	"go.uber.org/zap"
)

type Service struct {
	node   *node.Node
	logger *zap.Logger

	mu   sync.Mutex
	data map[int64][]int64
}

func New(n *node.Node, logger *zap.Logger) *Service {
	return &Service{node: n, logger: logger, data: map[int64][]int64{}}
}

func (s *Service) Name() string { return "txn" }

func (s *Service) Setup() {
	s.node.Handle("txn", s.handleTxn)
}

func (s *Service) handleTxn(env transport.Envelope) error {
	body := transport.TxnBody{}
	if err := transport.DecodeBody(env, &body); err != nil {
		return err
	}
	h, err := s.node.ResponseHeader(body.Header, "txn_ok")
	if err != nil {
		return err
	}
	results, err := s.apply(body.Txn)
	if err != nil {
		return err
	}
	return s.node.Send(env.Src, transport.TxnResultBody{Header: h, Txn: results})
}

func (s *Service) apply(ops []transport.TxnOp) ([]transport.TxnResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	results := make([]transport.TxnResult, 0, len(ops))
	for _, op := range ops {
		switch op.Func {
		case transport.TxnFuncRead:
			var value interface{}
			if list, ok := s.data[op.Key]; ok {
				value = append([]int64(nil), list...)
			}
			results = append(results, transport.TxnResult{Func: op.Func, Key: op.Key, Value: value})
		case transport.TxnFuncAppend:
			if op.Value == nil {
				return nil, errors.Errorf("append to key %d has no value", op.Key)
			}
			s.data[op.Key] = append(s.data[op.Key], *op.Value)
			results = append(results, transport.TxnResult{Func: op.Func, Key: op.Key, Value: *op.Value})
		default:
			return nil, errors.Errorf("unknown transaction function %q", op.Func)
		}
	}
	return results, nil
}
