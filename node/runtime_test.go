package node

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vx-labs/maelstrom-node/transport"
	"go.uber.org/zap"
)

const initFrame = `{"src":"c0","dest":"n1","body":{"type":"init","msg_id":1,"node_id":"n1","node_ids":["n1","n2"]}}`

func decodeFrames(t *testing.T, buf *bytes.Buffer) []transport.Envelope {
	frames := []transport.Envelope{}
	for _, line := range strings.Split(strings.TrimRight(buf.String(), "\n"), "\n") {
		if line == "" {
			continue
		}
		env := transport.Envelope{}
		require.NoError(t, json.Unmarshal([]byte(line), &env))
		frames = append(frames, env)
	}
	return frames
}

func TestRunPerformsInitHandshake(t *testing.T) {
	buf := bytes.Buffer{}
	n := New(strings.NewReader(initFrame+"\n"), &buf, zap.NewNop())
	require.NoError(t, n.Run(context.Background()))
	require.Equal(t, "n1", n.ID())

	frames := decodeFrames(t, &buf)
	require.Len(t, frames, 1)
	h, err := frames[0].Header()
	require.NoError(t, err)
	require.Equal(t, "init_ok", h.Type)
	require.Equal(t, uint64(1), h.InReplyTo)
	require.Equal(t, "c0", frames[0].Dest)
}

func TestRunRejectsNonInitHandshake(t *testing.T) {
	input := `{"src":"c0","dest":"n1","body":{"type":"echo","msg_id":1}}` + "\n"
	n := New(strings.NewReader(input), &bytes.Buffer{}, zap.NewNop())
	require.Error(t, n.Run(context.Background()))
}

func TestRunDispatchesToHandlers(t *testing.T) {
	input := initFrame + "\n" +
		`{"src":"c1","dest":"n1","body":{"type":"ping","msg_id":2}}` + "\n"
	buf := bytes.Buffer{}
	n := New(strings.NewReader(input), &buf, zap.NewNop())

	mu := sync.Mutex{}
	received := []transport.Envelope{}
	n.Handle("ping", func(env transport.Envelope) error {
		mu.Lock()
		received = append(received, env)
		mu.Unlock()
		return nil
	})
	require.NoError(t, n.Run(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, 1)
	require.Equal(t, "c1", received[0].Src)
}

func TestRunStartsBackgroundLoops(t *testing.T) {
	buf := bytes.Buffer{}
	n := New(strings.NewReader(initFrame+"\n"), &buf, zap.NewNop())

	ticks := make(chan struct{}, 1)
	n.Every(time.Millisecond, func() {
		select {
		case ticks <- struct{}{}:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- n.Run(ctx) }()

	select {
	case <-ticks:
	case <-time.After(2 * time.Second):
		t.Fatal("background loop never ticked")
	}
	require.NoError(t, <-done)
}
