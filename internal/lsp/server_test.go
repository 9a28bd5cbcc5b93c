package lsp

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"
)

func pipe() (*io.PipeReader, *io.PipeWriter) { return io.Pipe() }

func frame(t *testing.T, body string) []byte {
	t.Helper()
	return []byte(fmt.Sprintf("Content-Length: %d\r\n\r\n%s", len(body), body))
}

// safeBuffer is a mutex-guarded bytes.Buffer, since the server writes
// responses from its main loop while a test goroutine polls the
// output concurrently.
type safeBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *safeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *safeBuffer) Contains(s string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return bytes.Contains(b.buf.Bytes(), []byte(s))
}

func TestInitializeReturnsCapabilities(t *testing.T) {
	s := NewServer("merlin6502")
	in := bytes.NewBuffer(frame(t, `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`))
	in.Write(frame(t, `{"jsonrpc":"2.0","method":"exit"}`))
	var out safeBuffer
	if err := s.Run(in, &out); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !out.Contains("capabilities") {
		t.Fatalf("expected a capabilities response, got %q", out.buf.String())
	}
	if !out.Contains("hoverProvider") {
		t.Fatalf("expected hoverProvider in capabilities, got %q", out.buf.String())
	}
}

func TestDidOpenPublishesDiagnostics(t *testing.T) {
	s := NewServer("merlin6502")
	pr, pw := pipe()
	var out safeBuffer
	done := make(chan error, 1)
	go func() { done <- s.Run(pr, &out) }()

	open := `{"jsonrpc":"2.0","method":"textDocument/didOpen","params":{"textDocument":{"uri":"file:///a.s","text":" LDA UNDEF\n"}}}`
	if _, err := pw.Write(frame(t, open)); err != nil {
		t.Fatalf("write didOpen: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for !out.Contains("publishDiagnostics") {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for publishDiagnostics")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if _, err := pw.Write(frame(t, `{"jsonrpc":"2.0","method":"exit"}`)); err != nil {
		t.Fatalf("write exit: %v", err)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not return in time")
	}
}

func TestReadMessageRejectsMissingContentLength(t *testing.T) {
	r := bufio.NewReader(bytes.NewBufferString("\r\n{}"))
	if _, err := readMessage(r); err == nil {
		t.Fatalf("expected an error for a message with no Content-Length header")
	}
}
