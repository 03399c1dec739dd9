package node

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vx-labs/maelstrom-node/transport"
	"go.uber.org/zap"
)

func testNode(t *testing.T, out *bytes.Buffer) *Node {
	n := New(strings.NewReader(""), out, zap.NewNop())
	require.NoError(t, n.Init("n1", []string{"n1", "n2", "n3"}))
	return n
}

func TestInit(t *testing.T) {
	n := New(strings.NewReader(""), &bytes.Buffer{}, zap.NewNop())
	require.NoError(t, n.Init("n1", []string{"n1", "n2", "n2", "n3"}))
	require.Equal(t, "n1", n.ID())
	require.Equal(t, []string{"n2", "n3"}, n.Peers())

	t.Run("identity is immutable", func(t *testing.T) {
		require.Error(t, n.Init("n2", []string{"n2"}))
		require.Equal(t, "n1", n.ID())
	})
}

func TestNextIDIsStrictlyIncreasing(t *testing.T) {
	n := testNode(t, &bytes.Buffer{})
	previous := uint64(0)
	for i := 0; i < 1000; i++ {
		id := n.NextID()
		require.True(t, id > previous)
		previous = id
	}
}

func TestNextIDIsUniqueUnderConcurrentCallers(t *testing.T) {
	n := testNode(t, &bytes.Buffer{})
	const workers = 8
	const perWorker = 1000

	mu := sync.Mutex{}
	ids := map[uint64]struct{}{}
	wg := sync.WaitGroup{}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				id := n.NextID()
				mu.Lock()
				ids[id] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	require.Len(t, ids, workers*perWorker)
}

func TestHeaderAllocatesFreshIDs(t *testing.T) {
	n := testNode(t, &bytes.Buffer{})
	first := n.Header("broadcast")
	second := n.Header("broadcast")
	require.Equal(t, "broadcast", first.Type)
	require.True(t, second.MsgID > first.MsgID)
}

func TestResponseHeader(t *testing.T) {
	n := testNode(t, &bytes.Buffer{})
	req := transport.Header{Type: "read", MsgID: 42}
	h, err := n.ResponseHeader(req, "read_ok")
	require.NoError(t, err)
	require.Equal(t, "read_ok", h.Type)
	require.Equal(t, uint64(42), h.InReplyTo)
	require.NotZero(t, h.MsgID)

	t.Run("uninitialized node cannot build responses", func(t *testing.T) {
		bare := New(strings.NewReader(""), &bytes.Buffer{}, zap.NewNop())
		_, err := bare.ResponseHeader(req, "read_ok")
		require.Error(t, err)
	})
}

func TestSend(t *testing.T) {
	buf := bytes.Buffer{}
	n := testNode(t, &buf)
	require.NoError(t, n.Send("n2", n.Header("replicate")))
	require.Contains(t, buf.String(), `"src":"n1"`)
	require.Contains(t, buf.String(), `"dest":"n2"`)
	require.Contains(t, buf.String(), `"type":"replicate"`)
}
