package lsp

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"a2disk/internal/merlin"
)

// job is one analysis pass queued against a document. Spec §5: jobs
// are enqueued in document-change order and a worker thread ("analysis
// thread") runs each one; the main loop only publishes a job's
// diagnostics once its done channel has fired, and a job at the head
// of the queue blocks publication of every later job for the same
// connection until it completes.
type job struct {
	id   uuid.UUID
	uri  string
	done chan jobResult
}

type jobResult struct {
	scope *merlin.Scope
	diags []merlin.Diagnostic
}

// docSymbols is the "shared immutable ownership" slot spec §5
// describes: each analysis pass produces a fresh *merlin.Scope and
// atomically replaces the slot, so a hover/completion provider that
// cloned the pointer at request start keeps reading a consistent
// snapshot even if a newer pass lands mid-request.
type docSymbols struct {
	mu   sync.Mutex
	byURI map[string]*atomic.Pointer[merlin.Scope]
}

func newDocSymbols() *docSymbols {
	return &docSymbols{byURI: map[string]*atomic.Pointer[merlin.Scope]{}}
}

func (d *docSymbols) slot(uri string) *atomic.Pointer[merlin.Scope] {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.byURI[uri]
	if !ok {
		p = &atomic.Pointer[merlin.Scope]{}
		d.byURI[uri] = p
	}
	return p
}

// Load returns the most recently published Scope for uri, or nil if
// no analysis pass has completed yet.
func (d *docSymbols) Load(uri string) *merlin.Scope {
	return d.slot(uri).Load()
}

func (d *docSymbols) Store(uri string, s *merlin.Scope) {
	d.slot(uri).Store(s)
}
