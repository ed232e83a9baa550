// Package platform resolves per-platform lifecycle scripts. A script set is
// a two-level mapping: phase → command, optionally overridden per platform.
package platform

import (
	"fmt"
	"runtime"
	"strings"
)

// Platform identifies the operating platform a Starterfile script targets.
type Platform string

const (
	Windows Platform = "windows"
	Mac     Platform = "mac"
	Linux   Platform = "linux"
)

// Current maps runtime.GOOS onto the Starterfile platform vocabulary.
// Anything that is neither Windows nor Darwin is treated as linux.
func Current() Platform {
	switch runtime.GOOS {
	case "windows":
		return Windows
	case "darwin":
		return Mac
	default:
		return Linux
	}
}

// Known reports whether name is a recognized platform key.
func Known(name string) bool {
	switch Platform(name) {
	case Windows, Mac, Linux:
		return true
	}
	return false
}

// Phase is a named lifecycle operation.
type Phase string

const (
	PhaseCheck     Phase = "check"
	PhaseInstall   Phase = "install"
	PhaseUninstall Phase = "uninstall"
	PhaseInit      Phase = "init"
	PhaseDestroy   Phase = "destroy"
	PhaseStart     Phase = "start"
)

// ToolPhases are the phases a tool script set may declare.
var ToolPhases = []Phase{PhaseCheck, PhaseInstall, PhaseUninstall}

// ModulePhases are the phases a module script set may declare.
var ModulePhases = []Phase{PhaseInit, PhaseDestroy, PhaseStart}

// Command is a concrete, platform-selected script ready for interpolation
// and execution.
type Command struct {
	Text string
}

// Multiline reports whether the command is a block script. Blocks run as a
// single shell session so directory changes persist across lines.
func (c Command) Multiline() bool {
	return strings.Contains(strings.TrimSpace(c.Text), "\n")
}

// MissingScriptError reports a required phase with no usable command for the
// current platform.
type MissingScriptError struct {
	Phase    Phase
	Platform Platform
}

func (e *MissingScriptError) Error() string {
	return fmt.Sprintf("no %q script for platform %q", e.Phase, e.Platform)
}
