// Copyright (c) Edgeless Systems GmbH.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package xmlrpc encodes and decodes XML-RPC envelopes.
//
// The encoder produces exactly the bytes Python's xmlrpc.client emits,
// since the Access Server RPC daemon was written against that client and parses strictly.
// Values Python refuses to marshal, integers outside the int32 range, are rejected,
// as are strings that cannot appear in an XML document.
package xmlrpc

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	xmlHeader = "<?xml version='1.0'?>\n"
	// base64LineLen is the line length of Python's base64.encodebytes.
	base64LineLen = 76
)

var (
	// ErrInvalidText is returned for strings that are not valid UTF-8 or contain characters XML does not allow.
	ErrInvalidText = errors.New("string is not valid XML text")
	// ErrIntOverflow is returned for integers that do not fit into an XML-RPC int.
	ErrIntOverflow = errors.New("int exceeds XML-RPC limits")
)

var escaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// Member is a single named field of an XML-RPC struct.
type Member struct {
	Name  string
	Value any
}

// Struct is an XML-RPC struct whose members are encoded in the given order.
type Struct []Member

// EncodeCall encodes a methodCall envelope.
func EncodeCall(method string, params ...any) ([]byte, error) {
	if err := checkText(method); err != nil {
		return nil, fmt.Errorf("encoding method name: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString(xmlHeader)
	buf.WriteString("<methodCall>\n<methodName>")
	buf.WriteString(escaper.Replace(method))
	buf.WriteString("</methodName>\n<params>\n")
	for i, p := range params {
		buf.WriteString("<param>\n")
		if err := encodeValue(&buf, p); err != nil {
			return nil, fmt.Errorf("encoding param %d of %s: %w", i, method, err)
		}
		buf.WriteString("</param>\n")
	}
	buf.WriteString("</params>\n</methodCall>\n")
	return buf.Bytes(), nil
}

// EncodeResponse encodes a successful methodResponse carrying result.
func EncodeResponse(result any) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xmlHeader)
	buf.WriteString("<methodResponse>\n<params>\n<param>\n")
	if err := encodeValue(&buf, result); err != nil {
		return nil, fmt.Errorf("encoding response: %w", err)
	}
	buf.WriteString("</param>\n</params>\n</methodResponse>\n")
	return buf.Bytes(), nil
}

// EncodeFault encodes a fault methodResponse.
func EncodeFault(f *Fault) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xmlHeader)
	buf.WriteString("<methodResponse>\n<fault>\n")
	if err := encodeValue(&buf, Struct{
		{Name: "faultCode", Value: f.Code},
		{Name: "faultString", Value: f.Message},
	}); err != nil {
		return nil, fmt.Errorf("encoding fault: %w", err)
	}
	buf.WriteString("</fault>\n</methodResponse>\n")
	return buf.Bytes(), nil
}

func encodeValue(buf *bytes.Buffer, v any) error {
	buf.WriteString("<value>")
	switch v := v.(type) {
	case nil:
		buf.WriteString("<nil/>")
	case string:
		if err := checkText(v); err != nil {
			return err
		}
		buf.WriteString("<string>")
		buf.WriteString(escaper.Replace(v))
		buf.WriteString("</string>")
	case bool:
		buf.WriteString("<boolean>")
		if v {
			buf.WriteByte('1')
		} else {
			buf.WriteByte('0')
		}
		buf.WriteString("</boolean>")
	case int:
		if err := writeInt(buf, int64(v)); err != nil {
			return err
		}
	case int32:
		if err := writeInt(buf, int64(v)); err != nil {
			return err
		}
	case int64:
		if err := writeInt(buf, v); err != nil {
			return err
		}
	case float64:
		buf.WriteString("<double>")
		buf.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
		buf.WriteString("</double>")
	case []byte:
		buf.WriteString("<base64>\n")
		writeBase64Lines(buf, v)
		buf.WriteString("</base64>")
	case Struct:
		if err := encodeStruct(buf, v); err != nil {
			return err
		}
	case map[string]any:
		if err := encodeStruct(buf, sortedMembers(v)); err != nil {
			return err
		}
	case map[string]string:
		m := make(map[string]any, len(v))
		for k, s := range v {
			m[k] = s
		}
		if err := encodeStruct(buf, sortedMembers(m)); err != nil {
			return err
		}
	case []any:
		buf.WriteString("<array><data>\n")
		for _, e := range v {
			if err := encodeValue(buf, e); err != nil {
				return err
			}
		}
		buf.WriteString("</data></array>")
	default:
		return fmt.Errorf("unsupported value type %T", v)
	}
	buf.WriteString("</value>")
	// Python's marshaller ends every value but nil with a newline.
	if v != nil {
		buf.WriteByte('\n')
	}
	return nil
}

func writeInt(buf *bytes.Buffer, v int64) error {
	if v < math.MinInt32 || v > math.MaxInt32 {
		return fmt.Errorf("%w: %d", ErrIntOverflow, v)
	}
	buf.WriteString("<int>")
	buf.WriteString(strconv.FormatInt(v, 10))
	buf.WriteString("</int>")
	return nil
}

// writeBase64Lines writes b the way base64.encodebytes does: lines of at most
// 76 characters, each terminated by a newline.
func writeBase64Lines(buf *bytes.Buffer, b []byte) {
	encoded := base64.StdEncoding.EncodeToString(b)
	for len(encoded) > 0 {
		n := min(len(encoded), base64LineLen)
		buf.WriteString(encoded[:n])
		buf.WriteByte('\n')
		encoded = encoded[n:]
	}
}

// checkText reports whether s may appear as character data in an XML 1.0 document.
func checkText(s string) error {
	if !utf8.ValidString(s) {
		return fmt.Errorf("%w: invalid UTF-8", ErrInvalidText)
	}
	for i, r := range s {
		if !isXMLChar(r) {
			return fmt.Errorf("%w: character %U at offset %d", ErrInvalidText, r, i)
		}
	}
	return nil
}

func isXMLChar(r rune) bool {
	switch {
	case r == '\t', r == '\n', r == '\r':
		return true
	case r >= 0x20 && r <= 0xD7FF:
		return true
	case r >= 0xE000 && r <= 0xFFFD:
		return true
	case r >= 0x10000 && r <= utf8.MaxRune:
		return true
	}
	return false
}

func encodeStruct(buf *bytes.Buffer, s Struct) error {
	buf.WriteString("<struct>\n")
	for _, m := range s {
		if err := checkText(m.Name); err != nil {
			return fmt.Errorf("member name: %w", err)
		}
		buf.WriteString("<member>\n<name>")
		buf.WriteString(escaper.Replace(m.Name))
		buf.WriteString("</name>\n")
		if err := encodeValue(buf, m.Value); err != nil {
			return fmt.Errorf("member %q: %w", m.Name, err)
		}
		buf.WriteString("</member>\n")
	}
	buf.WriteString("</struct>")
	return nil
}

func sortedMembers(m map[string]any) Struct {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	s := make(Struct, 0, len(names))
	for _, name := range names {
		s = append(s, Member{Name: name, Value: m[name]})
	}
	return s
}
