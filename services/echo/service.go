// Package echo implements the trivial echo workload used to validate the
// harness wiring.
package echo

import (
	"github.com/vx-labs/maelstrom-node/node"
	"github.com/vx-labs/maelstrom-node/transport"
	"go.uber.org/zap"
)

type Service struct {
	node   *node.Node
	logger *zap.Logger
}

func New(n *node.Node, logger *zap.Logger) *Service {
	return &Service{node: n, logger: logger}
}

func (s *Service) Name() string { return "echo" }

func (s *Service) Setup() {
	s.node.Handle("echo", s.handleEcho)
}

func (s *Service) handleEcho(env transport.Envelope) error {
	body := transport.EchoBody{}
	if err := transport.DecodeBody(env, &body); err != nil {
		return err
	}
	h, err := s.node.ResponseHeader(body.Header, "echo_ok")
	if err != nil {
		return err
	}
	return s.node.Send(env.Src, transport.EchoBody{Header: h, Echo: body.Echo})
}
