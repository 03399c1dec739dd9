package node

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/pkg/errors"
	"github.com/vx-labs/maelstrom-node/telemetry"
	"github.com/vx-labs/maelstrom-node/transport"
	"go.uber.org/zap"
)

// Handler processes one validated inbound envelope. A returned error is a
// protocol violation and terminates the process.
type Handler func(env transport.Envelope) error

type loop struct {
	interval time.Duration
	fn       func()
}

// Handle registers the handler for one message type. Must be called before
// Run.
func (n *Node) Handle(msgType string, h Handler) {
	n.handlers[msgType] = h
}

// Every registers a background loop run at a fixed interval for the process
// lifetime. Must be called before Run.
func (n *Node) Every(interval time.Duration, fn func()) {
	n.loops = append(n.loops, loop{interval: interval, fn: fn})
}

// Run performs the init handshake, starts the background loops, then
// dispatches every inbound message on its own goroutine so a slow handler
// never blocks reception of the next frame. It returns once the input stream
// closes, after in-flight handlers have drained.
func (n *Node) Run(ctx context.Context) error {
	if err := n.handshake(); err != nil {
		return err
	}

	for _, l := range n.loops {
		go n.runLoop(ctx, l)
	}

	wg := sync.WaitGroup{}
	for {
		env, err := n.decoder.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		wg.Add(1)
		go func(env transport.Envelope) {
			defer wg.Done()
			n.dispatch(env)
		}(env)
	}
	wg.Wait()
	n.logger.Info("input stream closed")
	return nil
}

// handshake consumes the first frame, which the harness guarantees to be
// init, assigns identity from it and acknowledges it.
func (n *Node) handshake() error {
	env, err := n.decoder.Next()
	if err != nil {
		return errors.Wrap(err, "failed to read init message")
	}
	h, err := env.Header()
	if err != nil {
		return err
	}
	if h.Type != "init" {
		return errors.Errorf("expected an init message, got %q", h.Type)
	}
	body := transport.InitBody{}
	if err := transport.DecodeBody(env, &body); err != nil {
		return err
	}
	if err := n.Init(body.NodeID, body.NodeIDs); err != nil {
		return err
	}
	reply, err := n.ResponseHeader(body.Header, "init_ok")
	if err != nil {
		return err
	}
	if err := n.Send(env.Src, reply); err != nil {
		return err
	}
	n.logger.Info("node initialized", zap.Int("cluster_size", len(n.peers)))
	return nil
}

func (n *Node) dispatch(env transport.Envelope) {
	h, err := env.Header()
	if err != nil {
		n.logger.Fatal("received malformed message", zap.Error(err))
	}
	telemetry.MessagesReceived.WithLabelValues(h.Type).Inc()
	if h.Type == "init" {
		n.logger.Fatal("received init on an initialized node", zap.String("from", env.Src))
	}
	handler, ok := n.handlers[h.Type]
	if !ok {
		n.logger.Fatal("received message of unknown type",
			zap.String("message_type", h.Type), zap.String("from", env.Src))
	}
	if err := handler(env); err != nil {
		n.logger.Fatal("failed to handle message",
			zap.String("message_type", h.Type), zap.String("from", env.Src), zap.Error(err))
	}
}

func (n *Node) runLoop(ctx context.Context, l loop) {
	ticker := backoff.NewTicker(backoff.NewConstantBackOff(l.interval))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.fn()
		}
	}
}
