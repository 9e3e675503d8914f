// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

// syncBuffer is a bytes.Buffer safe for the concurrent writes of the
// instance's loggers.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// queuedSignals is a SignalSource that delivers sigs in order.
func queuedSignals(sigs ...os.Signal) SignalSource {
	return func() (<-chan os.Signal, func()) {
		c := make(chan os.Signal, len(sigs))
		for _, s := range sigs {
			c <- s
		}
		return c, func() {}
	}
}

// delayedSignal is a SignalSource that delivers sig once after d.
func delayedSignal(d time.Duration, sig os.Signal) SignalSource {
	return func() (<-chan os.Signal, func()) {
		c := make(chan os.Signal, 1)
		t := time.AfterFunc(d, func() { c <- sig })
		return c, func() { t.Stop() }
	}
}

func newTestApp(t *testing.T, signals SignalSource) (*App, *syncBuffer, *syncBuffer) {
	t.Helper()

	stdout, stderr := &syncBuffer{}, &syncBuffer{}
	app := NewApp(Dependencies{Stdout: stdout, Stderr: stderr, Signals: signals})
	return app, stdout, stderr
}

// execute runs the CLI with args the way fang would, minus the styling.
func execute(t *testing.T, app *App, args ...string) error {
	t.Helper()

	root := NewRootCommand(app)
	root.SetArgs(args)
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	return root.ExecuteContext(t.Context())
}

func writeTestConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.cue")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}
