// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package internal

import "sync/atomic"

// RequestIDs hands out request identifiers, wrapping around and skipping 0.
// The zero value is ready to use.
type RequestIDs struct{ n atomic.Uint32 }

// Next returns the next identifier.
func (r *RequestIDs) Next() uint16 {
	for {
		if id := uint16(r.n.Add(1)); id != 0 {
			return id
		}
	}
}
