// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package internal

import (
	"strings"

	"github.com/google/uuid"
)

// ClientIDs of at most 23 alphanumeric characters are accepted by every
// compliant server:
// https://docs.oasis-open.org/mqtt/mqtt/v5.0/os/mqtt-v5.0-os.html#_Toc3901059
const maxClientIDLength = 23

// RandomClientID generates a client ID with the given prefix, filled up with
// random hex digits.
func RandomClientID(prefix string) string {
	id := prefix + strings.ReplaceAll(uuid.NewString(), "-", "")
	if len(id) > maxClientIDLength {
		id = id[:maxClientIDLength]
	}
	return id
}
