// Copyright (c) Edgeless Systems GmbH.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package unixrpc performs XML-RPC calls over HTTP on a Unix domain socket.
//
// Every call opens its own connection and closes it once the response has been read.
package unixrpc

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/edgelesssys/asinstaller/internal/xmlrpc"
	"go.uber.org/zap"
)

const (
	// RequestPath is the resource every call is posted to.
	RequestPath = "/RPC2"
	// UserAgent is sent with every request.
	UserAgent = "asinstaller-xmlrpc/1.0"
)

// Client performs XML-RPC calls against a single socket endpoint.
type Client struct {
	endpoint string
	dialer   Dialer
	timeout  time.Duration
	log      *zap.Logger
}

// New returns a Client for endpoint. A zero timeout disables connection deadlines.
func New(endpoint string, dialer Dialer, timeout time.Duration, log *zap.Logger) *Client {
	if dialer == nil {
		dialer = UnixDialer{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		endpoint: endpoint,
		dialer:   dialer,
		timeout:  timeout,
		log:      log,
	}
}

// Endpoint returns the socket path the client is bound to.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Call invokes method with params and returns the decoded result.
// A fault answer is returned as *xmlrpc.Fault.
// The context only bounds connection establishment; once the request is written the call runs to completion.
func (c *Client) Call(ctx context.Context, method string, params ...any) (any, error) {
	body, err := xmlrpc.EncodeCall(method, params...)
	if err != nil {
		return nil, err
	}

	c.log.Debug("Calling RPC method", zap.String("method", method), zap.String("endpoint", c.endpoint), zap.Int("size", len(body)))

	conn, err := c.dialer.Dial(ctx, c.endpoint)
	if err != nil {
		return nil, &ConnectionError{Endpoint: c.endpoint, Err: err}
	}
	defer conn.Close()

	if c.timeout > 0 {
		if err := conn.SetDeadline(time.Now().Add(c.timeout)); err != nil {
			return nil, &TransportError{Method: method, Err: err}
		}
	}

	if _, err := conn.Write(c.frame(body)); err != nil {
		return nil, &TransportError{Method: method, Err: err}
	}

	resp, err := http.ReadResponse(bufio.NewReader(conn), &http.Request{Method: http.MethodPost})
	if err != nil {
		return nil, &TransportError{Method: method, Err: fmt.Errorf("reading response: %w", err)}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Method: method, Err: fmt.Errorf("reading response body: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &ProtocolError{
			Method:     method,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%s: %s", http.StatusText(resp.StatusCode), bytes.TrimSpace(respBody)),
		}
	}

	var payload io.Reader = bytes.NewReader(respBody)
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(payload)
		if err != nil {
			return nil, &ProtocolError{Method: method, Err: fmt.Errorf("decompressing response: %w", err)}
		}
		defer gz.Close()
		payload = gz
	}

	result, err := xmlrpc.DecodeResponse(payload)
	if err != nil {
		var fault *xmlrpc.Fault
		if errors.As(err, &fault) {
			c.log.Debug("RPC method returned fault", zap.String("method", method), zap.Error(err))
			return nil, err
		}
		return nil, &ProtocolError{Method: method, Err: err}
	}
	return result, nil
}

// frame prepends the HTTP request line and headers to body.
// Header order and spelling match what the Access Server RPC daemon expects.
func (c *Client) frame(body []byte) []byte {
	var buf bytes.Buffer
	buf.WriteString("POST " + RequestPath + " HTTP/1.1\r\n")
	buf.WriteString("Host: " + c.endpoint + "\r\n")
	buf.WriteString("Accept-Encoding: gzip\r\n")
	buf.WriteString("Content-Type: text/xml\r\n")
	buf.WriteString("User-Agent: " + UserAgent + "\r\n")
	buf.WriteString("Content-Length: " + strconv.Itoa(len(body)) + "\r\n")
	buf.WriteString("\r\n")
	buf.Write(body)
	return buf.Bytes()
}
