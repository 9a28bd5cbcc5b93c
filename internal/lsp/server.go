package lsp

import (
	"bufio"
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kr/pretty"
	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"a2disk/internal/a2log"
	"a2disk/internal/merlin"
)

var log = a2log.For("lsp")

// lockedAnalyzer pairs one language's Analyzer with the mutex spec §5
// requires ("only one job touches a given analyzer at a time").
type lockedAnalyzer struct {
	mu sync.Mutex
	a  *merlin.Analyzer
}

// Server runs the cooperative-single-threaded request loop spec §5
// describes: a receiver goroutine reads framed messages off the wire,
// the main loop dispatches them and drains completed analysis jobs in
// document-change order.
type Server struct {
	Lang string // "merlin6502", "applesoft", or "integerbasic"

	out      io.Writer
	outMu    sync.Mutex
	analyzer *lockedAnalyzer
	symbols  *docSymbols
	queue    []*job
	config   *viper.Viper
	debug    bool

	shuttingDown bool
}

// NewServer returns a Server for the named language, ready for Run.
func NewServer(lang string) *Server {
	v := viper.New()
	v.SetDefault("applesoft", map[string]interface{}{})
	v.SetDefault("integerbasic", map[string]interface{}{})
	v.SetDefault("merlin6502", map[string]interface{}{})
	return &Server{
		Lang:     lang,
		analyzer: &lockedAnalyzer{a: merlin.NewAnalyzer()},
		symbols:  newDocSymbols(),
		config:   v,
	}
}

// SetDebug turns on pretty-printed request tracing to the log, useful
// for diagnosing a misbehaving client.
func (s *Server) SetDebug(on bool) { s.debug = on }

// Run drives the server loop over r/w until a shutdown+exit sequence
// or a read error ends it.
func (s *Server) Run(r io.Reader, w io.Writer) error {
	s.out = w
	reader := bufio.NewReader(r)

	reqCh := make(chan *RequestMessage)
	errCh := make(chan error, 1)
	go func() {
		for {
			msg, err := readMessage(reader)
			if err != nil {
				errCh <- err
				return
			}
			reqCh <- msg
		}
	}()

	for {
		s.drainCompletedJobs()
		select {
		case msg := <-reqCh:
			if s.debug {
				log.Debugf("recv %# v", pretty.Formatter(msg))
			}
			if err := s.dispatch(msg); err != nil {
				log.WithError(err).Warn("dispatch failed")
			}
			if msg.Method == "exit" {
				return nil
			}
		case err := <-errCh:
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		case <-time.After(100 * time.Millisecond):
			// spec §5: the receive loop polls with a 100ms timeout so it
			// stays responsive to job completions even with no message
			// traffic.
		}
	}
}

// drainCompletedJobs publishes diagnostics for every job at the front
// of the queue whose worker thread has already finished, stopping at
// the first still-running job so later jobs for the same document
// never publish out of order.
func (s *Server) drainCompletedJobs() {
	for len(s.queue) > 0 {
		j := s.queue[0]
		select {
		case res := <-j.done:
			s.symbols.Store(j.uri, res.scope)
			s.publishDiagnostics(j.uri, res.diags)
			s.publishContext(j.uri)
			s.queue = s.queue[1:]
		default:
			return
		}
	}
}

func (s *Server) dispatch(msg *RequestMessage) error {
	switch msg.Method {
	case "initialize":
		return s.respond(msg.Id, map[string]interface{}{
			"capabilities": CapabilitiesFor(s.Lang),
		}, nil)
	case "initialized":
		return nil
	case "textDocument/didOpen":
		return s.handleDidOpen(msg.Params)
	case "textDocument/didChange":
		return s.handleDidChange(msg.Params)
	case "textDocument/hover":
		return s.handleHover(msg)
	case "workspace/didChangeConfiguration":
		return s.handleConfigChange(msg.Params)
	case "shutdown":
		s.shuttingDown = true
		return s.respond(msg.Id, nil, nil)
	case "exit":
		return nil
	default:
		if msg.Id != nil {
			return s.respond(msg.Id, nil, &ResponseError{Code: MethodNotFound, Message: "method not found: " + msg.Method})
		}
		return nil
	}
}

type textDocumentItem struct {
	URI  string `json:"uri"`
	Text string `json:"text"`
}

type didOpenParams struct {
	TextDocument textDocumentItem `json:"textDocument"`
}

func (s *Server) handleDidOpen(raw json.RawMessage) error {
	var p didOpenParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return errors.Wrap(err, "lsp: malformed didOpen params")
	}
	s.enqueue(p.TextDocument.URI, p.TextDocument.Text)
	return nil
}

type contentChange struct {
	Text string `json:"text"`
}

type didChangeParams struct {
	TextDocument   struct{ URI string `json:"uri"` } `json:"textDocument"`
	ContentChanges []contentChange                   `json:"contentChanges"`
}

func (s *Server) handleDidChange(raw json.RawMessage) error {
	var p didChangeParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return errors.Wrap(err, "lsp: malformed didChange params")
	}
	if len(p.ContentChanges) == 0 {
		return nil
	}
	// textDocumentSync=FULL (spec §6): the last change carries the
	// whole document text, no incremental ranges to apply.
	s.enqueue(p.TextDocument.URI, p.ContentChanges[len(p.ContentChanges)-1].Text)
	return nil
}

// enqueue parses text's lines and spawns the worker goroutine that
// runs the analysis pass, queuing the job so drainCompletedJobs
// publishes it in order.
func (s *Server) enqueue(uri, text string) {
	lines := splitLines(text)
	j := &job{id: uuid.New(), uri: uri, done: make(chan jobResult, 1)}
	s.queue = append(s.queue, j)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				// spec §5: an analysis job panic is isolated to the worker
				// thread and logged; the job completes with an empty scope
				// and no diagnostics, which the main loop publishes in order.
				log.WithField("job", j.id).Errorf("analysis job panicked: %v", r)
				j.done <- jobResult{scope: &merlin.Scope{}, diags: nil}
			}
		}()
		s.analyzer.mu.Lock()
		scope, diags := s.analyzer.a.Analyze(lines)
		s.analyzer.mu.Unlock()
		j.done <- jobResult{scope: scope, diags: diags}
	}()
}

func splitLines(text string) []merlin.Line {
	var lines []merlin.Line
	start := 0
	for i := 0; i <= len(text); i++ {
		if i == len(text) || text[i] == '\n' {
			lines = append(lines, merlin.ParseLine(text[start:i], merlin.DefaultColumnWidths))
			start = i + 1
		}
	}
	return lines
}

type lspDiagnostic struct {
	Range struct {
		Start struct{ Line, Character int } `json:"start"`
		End   struct{ Line, Character int } `json:"end"`
	} `json:"range"`
	Severity int    `json:"severity"`
	Message  string `json:"message"`
}

func (s *Server) publishDiagnostics(uri string, diags []merlin.Diagnostic) {
	out := make([]lspDiagnostic, len(diags))
	for i, d := range diags {
		var ld lspDiagnostic
		ld.Range.Start.Line, ld.Range.End.Line = d.Row, d.Row
		ld.Severity = 2
		if d.Severity == merlin.SeverityError {
			ld.Severity = 1
		}
		ld.Message = d.Message
		out[i] = ld
	}
	s.notify("textDocument/publishDiagnostics", map[string]interface{}{
		"uri":         uri,
		"diagnostics": out,
	})
}

// publishContext sends the merlin6502.context custom notification
// (spec §6) for uri, once its scope has published. The payload carries
// uri and the number of global symbols in that scope; it does not
// report the assembler, processor or file type.
func (s *Server) publishContext(uri string) {
	if s.Lang != "merlin6502" {
		return
	}
	scope := s.symbols.Load(uri)
	globals := 0
	if scope != nil {
		globals = len(scope.Globals)
	}
	s.notify("merlin6502.context", map[string]interface{}{
		"uri":     uri,
		"globals": globals,
	})
}

func (s *Server) handleHover(msg *RequestMessage) error {
	var p struct {
		TextDocument struct{ URI string `json:"uri"` } `json:"textDocument"`
	}
	if err := json.Unmarshal(msg.Params, &p); err != nil {
		return s.respond(msg.Id, nil, &ResponseError{Code: InvalidRequest, Message: err.Error()})
	}
	scope := s.symbols.Load(p.TextDocument.URI)
	if scope == nil {
		return s.respond(msg.Id, nil, nil)
	}
	return s.respond(msg.Id, map[string]interface{}{
		"contents": pretty.Sprintf("%d symbols in scope", len(scope.Globals)),
	}, nil)
}

func (s *Server) handleConfigChange(raw json.RawMessage) error {
	var settings map[string]interface{}
	if err := json.Unmarshal(raw, &settings); err != nil {
		return errors.Wrap(err, "lsp: malformed didChangeConfiguration params")
	}
	if section, ok := settings["settings"].(map[string]interface{}); ok {
		for k, v := range section {
			s.config.Set(k, v)
		}
	}
	return nil
}

func (s *Server) respond(id json.RawMessage, result interface{}, rerr *ResponseError) error {
	if id == nil {
		return nil
	}
	s.outMu.Lock()
	defer s.outMu.Unlock()
	return writeMessage(s.out, &ResponseMessage{JSONRPC: "2.0", Id: id, Result: result, Error: rerr})
}

func (s *Server) notify(method string, params interface{}) {
	s.outMu.Lock()
	defer s.outMu.Unlock()
	_ = writeMessage(s.out, &NotificationMessage{JSONRPC: "2.0", Method: method, Params: params})
}
