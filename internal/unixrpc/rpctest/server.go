// Copyright (c) Edgeless Systems GmbH.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package rpctest provides a fake Access Server RPC daemon listening on a Unix socket.
package rpctest

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/edgelesssys/asinstaller/internal/xmlrpc"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

// Call is a request received by the Server.
type Call struct {
	Method        string
	Params        []any
	RequestURI    string
	Host          string
	Header        http.Header
	ContentLength int64
	Body          []byte
}

// Server records every decoded call and answers with nil or a configured fault.
//
// net/http's server rejects the socket path the client sends as Host,
// so requests are read with http.ReadRequest on raw connections.
type Server struct {
	// Socket is the path the server listens on.
	Socket string

	log      *zap.Logger
	listener net.Listener
	wg       sync.WaitGroup

	mux    sync.Mutex
	calls  []Call
	conns  int
	faults map[int]*xmlrpc.Fault
}

// New starts a Server on a fresh socket. It is stopped when the test finishes.
func New(t testing.TB) *Server {
	t.Helper()

	// Unix socket paths are limited to ~100 bytes, t.TempDir can be longer.
	dir, err := os.MkdirTemp("", "asrpc")
	if err != nil {
		t.Fatal(err)
	}
	socket := filepath.Join(dir, "sagent.sock")

	listener, err := net.Listen("unix", socket)
	if err != nil {
		os.RemoveAll(dir)
		t.Fatal(err)
	}

	s := &Server{
		Socket:   socket,
		log:      zaptest.NewLogger(t),
		listener: listener,
		faults:   map[int]*xmlrpc.Fault{},
	}

	s.wg.Add(1)
	go s.serve()

	t.Cleanup(func() {
		_ = s.listener.Close()
		s.wg.Wait()
		os.RemoveAll(dir)
	})
	return s
}

// FailCall makes the n-th call (counting from 0) answer with fault.
func (s *Server) FailCall(n int, fault *xmlrpc.Fault) {
	s.mux.Lock()
	defer s.mux.Unlock()
	s.faults[n] = fault
}

// Calls returns the calls received so far.
func (s *Server) Calls() []Call {
	s.mux.Lock()
	defer s.mux.Unlock()
	return append([]Call(nil), s.calls...)
}

// Connections returns how many connections the server has accepted.
func (s *Server) Connections() int {
	s.mux.Lock()
	defer s.mux.Unlock()
	return s.conns
}

func (s *Server) serve() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				s.log.Error("Accepting connection failed", zap.Error(err))
			}
			return
		}

		s.mux.Lock()
		s.conns++
		s.mux.Unlock()

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer conn.Close()
			s.handle(conn)
		}()
	}
}

// handle answers exactly one request per connection.
func (s *Server) handle(conn net.Conn) {
	req, err := http.ReadRequest(bufio.NewReader(conn))
	if err != nil {
		s.log.Warn("Reading request failed", zap.Error(err))
		return
	}
	defer req.Body.Close()

	if req.Method != http.MethodPost || req.URL.Path != "/RPC2" {
		writeResponse(conn, http.StatusNotFound, []byte("not found"))
		return
	}

	body, err := io.ReadAll(req.Body)
	if err != nil {
		s.log.Warn("Reading request body failed", zap.Error(err))
		return
	}
	method, params, err := xmlrpc.DecodeCall(bytes.NewReader(body))
	if err != nil {
		s.log.Warn("Invalid call", zap.Error(err))
		writeResponse(conn, http.StatusBadRequest, []byte(err.Error()))
		return
	}

	s.mux.Lock()
	n := len(s.calls)
	s.calls = append(s.calls, Call{
		Method:        method,
		Params:        params,
		RequestURI:    req.RequestURI,
		Host:          req.Host,
		Header:        req.Header.Clone(),
		ContentLength: req.ContentLength,
		Body:          body,
	})
	fault := s.faults[n]
	s.mux.Unlock()

	s.log.Debug("Received call", zap.String("method", method), zap.Int("index", n))

	resp, err := xmlrpc.EncodeResponse(nil)
	if fault != nil {
		resp, err = xmlrpc.EncodeFault(fault)
	}
	if err != nil {
		s.log.Error("Encoding response failed", zap.Error(err))
		writeResponse(conn, http.StatusInternalServerError, []byte(err.Error()))
		return
	}
	writeResponse(conn, http.StatusOK, resp)
}

func writeResponse(w io.Writer, status int, body []byte) {
	resp := &http.Response{
		StatusCode:    status,
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        http.Header{"Content-Type": []string{"text/xml"}},
		ContentLength: int64(len(body)),
		Body:          io.NopCloser(bytes.NewReader(body)),
		Close:         true,
	}
	_ = resp.Write(w)
}
