// Package lsp implements the language-server glue spec §5-6 describes:
// a content-length-framed JSON-RPC loop over stdio, a worker-thread-
// per-analysis-job dispatch model, and the capability/notification
// surface the CLI's editor integrations expect.
//
// Grounded on internal/merlin's Analyzer/Scope (the thing each job
// runs) and internal/workspace's master-then-include ordering; the
// wire framing itself has no counterpart in original_source/ (the LSP
// server is new surface spec.md adds, not a distillation of existing
// Rust code) and is built directly from the LSP specification's
// Content-Length framing, the same class of public-format reference
// internal/diskfs/fat's BPB layout already draws on.
package lsp

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// RequestMessage is an inbound JSON-RPC request or notification (Id is
// nil for a notification).
type RequestMessage struct {
	JSONRPC string          `json:"jsonrpc"`
	Id      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// ResponseMessage is an outbound JSON-RPC response.
type ResponseMessage struct {
	JSONRPC string          `json:"jsonrpc"`
	Id      json.RawMessage `json:"id,omitempty"`
	Result  interface{}     `json:"result,omitempty"`
	Error   *ResponseError  `json:"error,omitempty"`
}

// NotificationMessage is an outbound JSON-RPC notification (no Id).
type NotificationMessage struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
}

// ResponseError mirrors the JSON-RPC error object.
type ResponseError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

const (
	ParseError     = -32700
	InvalidRequest = -32600
	MethodNotFound = -32601
	InternalError  = -32603
)

// readMessage reads one Content-Length-framed JSON-RPC message from r.
func readMessage(r *bufio.Reader) (*RequestMessage, error) {
	var contentLength int
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return nil, err
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break
		}
		if name, value, ok := strings.Cut(line, ":"); ok && strings.EqualFold(strings.TrimSpace(name), "Content-Length") {
			n, err := strconv.Atoi(strings.TrimSpace(value))
			if err != nil {
				return nil, errors.Wrap(err, "lsp: malformed Content-Length header")
			}
			contentLength = n
		}
	}
	if contentLength <= 0 {
		return nil, errors.New("lsp: missing or zero Content-Length header")
	}
	body := make([]byte, contentLength)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, errors.Wrap(err, "lsp: short read on message body")
	}
	var msg RequestMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return nil, errors.Wrap(err, "lsp: malformed JSON-RPC body")
	}
	return &msg, nil
}

// writeMessage frames and writes msg (a *ResponseMessage or
// *NotificationMessage) to w.
func writeMessage(w io.Writer, msg interface{}) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Content-Length: %d\r\n\r\n", len(body)); err != nil {
		return err
	}
	_, err = w.Write(body)
	return err
}
