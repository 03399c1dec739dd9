// Package transport frames protocol messages for the simulation harness: one
// JSON envelope per line, inbound on a reader (stdin in production), outbound
// on a writer (stdout). Diagnostics never touch the protocol streams.
package transport

import (
	"bufio"
	"encoding/json"
	"io"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// MaxLineSize bounds a single inbound frame. The harness never comes close,
// but bufio needs an explicit cap above its 64KB default for large read_ok
// payloads echoed back by clients.
const MaxLineSize = 1 << 20

// Decoder reads one envelope per inbound line.
type Decoder struct {
	scanner *bufio.Scanner
	logger  *zap.Logger
}

func NewDecoder(r io.Reader, logger *zap.Logger) *Decoder {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), MaxLineSize)
	return &Decoder{scanner: scanner, logger: logger}
}

// Next blocks until a full line is available and returns its decoded
// envelope. It returns io.EOF once the input stream is closed.
func (d *Decoder) Next() (Envelope, error) {
	if !d.scanner.Scan() {
		if err := d.scanner.Err(); err != nil {
			return Envelope{}, errors.Wrap(err, "failed to read from input stream")
		}
		return Envelope{}, io.EOF
	}
	line := d.scanner.Bytes()
	d.logger.Debug("received frame", zap.ByteString("frame", line))
	var env Envelope
	if err := json.Unmarshal(line, &env); err != nil {
		return Envelope{}, errors.Wrapf(err, "failed to decode frame %q", line)
	}
	if env.Src == "" || env.Dest == "" {
		return Envelope{}, errors.Errorf("frame %q has no src or dest", line)
	}
	if len(env.Body) == 0 {
		return Envelope{}, errors.Errorf("frame %q has no body", line)
	}
	return env, nil
}

// Writer emits one envelope per outbound line. It is safe for concurrent use:
// handlers and background loops all write through the same instance.
type Writer struct {
	mu     sync.Mutex
	out    io.Writer
	logger *zap.Logger
}

func NewWriter(w io.Writer, logger *zap.Logger) *Writer {
	return &Writer{out: w, logger: logger}
}

func (w *Writer) Write(env Envelope) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return errors.Wrap(err, "failed to encode envelope")
	}
	payload = append(payload, '\n')
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.out.Write(payload); err != nil {
		return errors.Wrap(err, "failed to write to output stream")
	}
	w.logger.Debug("sent frame", zap.ByteString("frame", payload[:len(payload)-1]))
	return nil
}
