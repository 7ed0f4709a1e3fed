// Package prompt recognizes the fixed text conventions of a Cisco-style
// device console: the privileged prompt, configuration sub-mode prompts,
// the initial configuration dialog banner and progress-tick lines.
//
// This is protocol parsing: the console offers no structured framing, so
// every decision the readiness and executor packages make rests on these
// string checks. All functions take lines with terminators already removed.
package prompt

import "strings"

// ConfigDialog is the banner an unconfigured device prints at boot.
const ConfigDialog = "Would you like to enter the initial configuration dialog? [yes/no]:"

// configDialogMarker is matched instead of the full banner so that
// leftover echo or wrapping around the banner does not hide it.
const configDialogMarker = "initial configuration dialog?"

// ProgressTick is the marker a device emits while a long operation runs.
const ProgressTick = "!"

// Matcher classifies console lines for one device hostname.
type Matcher struct {
	Hostname string
}

// New creates a Matcher for the given hostname.
func New(hostname string) Matcher {
	return Matcher{Hostname: hostname}
}

// Privileged returns the privileged exec prompt, e.g. "Router#".
func (m Matcher) Privileged() string {
	return m.Hostname + "#"
}

// User returns the user exec prompt, e.g. "Router>".
func (m Matcher) User() string {
	return m.Hostname + ">"
}

// IsPrivileged reports whether line is exactly the privileged prompt.
func (m Matcher) IsPrivileged(line string) bool {
	return line == m.Privileged()
}

// IsBare reports whether line is a bare user or privileged prompt.
func (m Matcher) IsBare(line string) bool {
	line = strings.TrimSpace(line)
	return line == m.Privileged() || line == m.User()
}

// IsElevated reports whether line is a prompt showing a configuration
// sub-mode, e.g. "Router(config)#" or "Router(config-if)#". Such a line
// mentions the hostname and is longer than the bare prompt.
func (m Matcher) IsElevated(line string) bool {
	line = strings.TrimSpace(line)
	if m.Hostname == "" || !strings.Contains(line, m.Hostname) {
		return false
	}
	if len(line) <= len(m.Privileged()) {
		return false
	}
	return strings.Contains(line, m.Hostname+"(config")
}

// IsConfigDialog reports whether line is the initial configuration dialog
// question.
func IsConfigDialog(line string) bool {
	return strings.Contains(line, configDialogMarker)
}

// IsProgressTick reports whether line carries the progress-tick marker.
func IsProgressTick(line string) bool {
	return strings.Contains(line, ProgressTick)
}

// IsBlank reports whether line has no content once whitespace is removed.
func IsBlank(line string) bool {
	return strings.TrimSpace(line) == ""
}
