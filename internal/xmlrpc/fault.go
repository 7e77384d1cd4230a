// Copyright (c) Edgeless Systems GmbH.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package xmlrpc

import "fmt"

// Fault is a server-side error reported through an XML-RPC fault envelope.
type Fault struct {
	Code    int
	Message string
}

func (f *Fault) Error() string {
	return fmt.Sprintf("remote fault %d: %s", f.Code, f.Message)
}

// faultFromValue converts a decoded fault struct into a *Fault.
// Anything that is not a fault struct is reported as malformed.
func faultFromValue(v any) error {
	m, ok := v.(map[string]any)
	if !ok {
		return fmt.Errorf("%w: fault is %T, not a struct", ErrMalformed, v)
	}
	code, ok := m["faultCode"].(int)
	if !ok {
		return fmt.Errorf("%w: fault without integer faultCode", ErrMalformed)
	}
	msg, ok := m["faultString"].(string)
	if !ok {
		return fmt.Errorf("%w: fault without faultString", ErrMalformed)
	}
	return &Fault{Code: code, Message: msg}
}
