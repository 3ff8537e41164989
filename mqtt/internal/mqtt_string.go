// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package internal

import "regexp"

// Character ranges that are not valid in MQTT UTF-8 strings:
// https://docs.oasis-open.org/mqtt/mqtt/v5.0/os/mqtt-v5.0-os.html#_Toc3901010
var invalidMqttCharacters = regexp.MustCompile(`[` +
	`\x00-\x1F` + // C0 controls
	`\x7F` + // DEL
	`\x{D800}-\x{DFFF}` + // surrogates
	`\x{FDD0}-\x{FDEF}` + // non-characters
	`\x{FFFE}-\x{FFFF}` +
	`]`)

// SanitizeString drops characters MQTT does not allow in strings. They are
// non-printable, so nothing replaces them.
func SanitizeString(input string) string {
	return invalidMqttCharacters.ReplaceAllString(input, "")
}
