// Package advise maps sanitized failure text to remediation hints by
// substring signature matching. Hints are additive: each signature is
// checked independently and every match contributes its hint.
package advise

import "strings"

// signature pairs a set of lowercase substrings with the hint emitted
// when any of them appears in the failure text.
type signature struct {
	needles []string
	hint    string
}

var signatures = []signature{
	{
		needles: []string{"git is not installed"},
		hint:    "Install git and make sure it is available on PATH.",
	},
	{
		needles: []string{"authentication failed", "permission denied", "could not read username", "403"},
		hint:    "Check your credentials: SSH key path, OAuth token, or credential helper.",
	},
	{
		needles: []string{"is not installed or not in path"},
		hint:    "Install the missing package tool or rerun without automatic dependency installation.",
	},
	{
		needles: []string{"docker is not installed", "cannot connect to the docker daemon"},
		hint:    "Install docker or start the docker daemon before building containers.",
	},
	{
		needles: []string{"timed out"},
		hint:    "Check your network connection, or retry with a faster mirror.",
	},
}

// Hints returns zero or more remediation hints for a sanitized error
// message. Matching is case-insensitive and independent per signature.
func Hints(message string) []string {
	lowered := strings.ToLower(message)

	var hints []string
	for _, sig := range signatures {
		for _, needle := range sig.needles {
			if strings.Contains(lowered, needle) {
				hints = append(hints, sig.hint)
				break
			}
		}
	}
	return hints
}

// Append returns the base message with each hint appended on its own line.
func Append(message string, hints []string) string {
	if len(hints) == 0 {
		return message
	}
	var builder strings.Builder
	builder.WriteString(message)
	for _, hint := range hints {
		builder.WriteString("\n  hint: ")
		builder.WriteString(hint)
	}
	return builder.String()
}
