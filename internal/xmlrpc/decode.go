// Copyright (c) Edgeless Systems GmbH.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package xmlrpc

import (
	"encoding/base64"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// ErrMalformed is returned when an envelope is not well-formed XML-RPC.
var ErrMalformed = errors.New("malformed XML-RPC envelope")

const iso8601 = "20060102T15:04:05"

type methodCall struct {
	XMLName    xml.Name `xml:"methodCall"`
	MethodName string   `xml:"methodName"`
	Params     []param  `xml:"params>param"`
}

type methodResponse struct {
	XMLName xml.Name `xml:"methodResponse"`
	Params  []param  `xml:"params>param"`
	Fault   *param   `xml:"fault"`
}

type param struct {
	Value *value `xml:"value"`
}

type value struct {
	String   *string    `xml:"string"`
	Int      *string    `xml:"int"`
	I4       *string    `xml:"i4"`
	I8       *string    `xml:"i8"`
	Boolean  *string    `xml:"boolean"`
	Double   *string    `xml:"double"`
	Base64   *string    `xml:"base64"`
	DateTime *string    `xml:"dateTime.iso8601"`
	Nil      *struct{}  `xml:"nil"`
	Struct   *structVal `xml:"struct"`
	Array    *arrayVal  `xml:"array"`
	Text     string     `xml:",chardata"`
}

type structVal struct {
	Members []member `xml:"member"`
}

type member struct {
	Name  string `xml:"name"`
	Value *value `xml:"value"`
}

type arrayVal struct {
	Data []*value `xml:"data>value"`
}

// DecodeCall decodes a methodCall envelope into its method name and parameters.
func DecodeCall(r io.Reader) (string, []any, error) {
	var call methodCall
	if err := xml.NewDecoder(r).Decode(&call); err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if call.MethodName == "" {
		return "", nil, fmt.Errorf("%w: missing methodName", ErrMalformed)
	}

	params := make([]any, 0, len(call.Params))
	for i, p := range call.Params {
		v, err := p.Value.native()
		if err != nil {
			return "", nil, fmt.Errorf("param %d: %w", i, err)
		}
		params = append(params, v)
	}
	return call.MethodName, params, nil
}

// DecodeResponse decodes a methodResponse envelope.
// A fault envelope is returned as a *Fault error.
func DecodeResponse(r io.Reader) (any, error) {
	var resp methodResponse
	if err := xml.NewDecoder(r).Decode(&resp); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	if resp.Fault != nil {
		v, err := resp.Fault.Value.native()
		if err != nil {
			return nil, fmt.Errorf("fault: %w", err)
		}
		return nil, faultFromValue(v)
	}

	switch len(resp.Params) {
	case 0:
		// Some servers answer a void call with an empty params element.
		return nil, nil
	case 1:
		return resp.Params[0].Value.native()
	default:
		return nil, fmt.Errorf("%w: response has %d params", ErrMalformed, len(resp.Params))
	}
}

func (v *value) native() (any, error) {
	if v == nil {
		return nil, fmt.Errorf("%w: missing value", ErrMalformed)
	}

	switch {
	case v.String != nil:
		return *v.String, nil
	case v.Int != nil:
		return parseInt(*v.Int)
	case v.I4 != nil:
		return parseInt(*v.I4)
	case v.I8 != nil:
		return parseInt(*v.I8)
	case v.Boolean != nil:
		switch strings.TrimSpace(*v.Boolean) {
		case "1":
			return true, nil
		case "0":
			return false, nil
		}
		return nil, fmt.Errorf("%w: invalid boolean %q", ErrMalformed, *v.Boolean)
	case v.Double != nil:
		f, err := strconv.ParseFloat(strings.TrimSpace(*v.Double), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid double: %w", ErrMalformed, err)
		}
		return f, nil
	case v.Base64 != nil:
		b, err := base64.StdEncoding.DecodeString(strings.Join(strings.Fields(*v.Base64), ""))
		if err != nil {
			return nil, fmt.Errorf("%w: invalid base64: %w", ErrMalformed, err)
		}
		return b, nil
	case v.DateTime != nil:
		t, err := time.Parse(iso8601, strings.TrimSpace(*v.DateTime))
		if err != nil {
			return nil, fmt.Errorf("%w: invalid dateTime: %w", ErrMalformed, err)
		}
		return t, nil
	case v.Nil != nil:
		return nil, nil
	case v.Struct != nil:
		m := make(map[string]any, len(v.Struct.Members))
		for _, mem := range v.Struct.Members {
			mv, err := mem.Value.native()
			if err != nil {
				return nil, fmt.Errorf("member %q: %w", mem.Name, err)
			}
			m[mem.Name] = mv
		}
		return m, nil
	case v.Array != nil:
		a := make([]any, 0, len(v.Array.Data))
		for i, e := range v.Array.Data {
			ev, err := e.native()
			if err != nil {
				return nil, fmt.Errorf("array element %d: %w", i, err)
			}
			a = append(a, ev)
		}
		return a, nil
	default:
		// A value without a type element is a string.
		return v.Text, nil
	}
}

func parseInt(s string) (int, error) {
	i, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: invalid int: %w", ErrMalformed, err)
	}
	return i, nil
}
