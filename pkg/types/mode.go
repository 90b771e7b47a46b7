package types

import (
	"fmt"
	"strings"
)

// Mode selects the persona that governs a generation request. It has no
// persisted identity.
type Mode string

// Generation modes.
const (
	ModeApp     Mode = "app"
	ModeDaVinci Mode = "davinci"
	ModeFusion  Mode = "fusion"
)

// Modes lists every mode in display order.
var Modes = []Mode{ModeApp, ModeDaVinci, ModeFusion}

var defaultNames = map[Mode]string{
	ModeApp:     "New App",
	ModeDaVinci: "Da Vinci Project",
	ModeFusion:  "Hybrid Artifact",
}

// ParseMode converts user input to a Mode. The empty string selects ModeApp.
func ParseMode(s string) (Mode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ModeApp, nil
	}
	m := Mode(s)
	if !m.Valid() {
		return "", fmt.Errorf("%w: %q (valid: app, davinci, fusion)", ErrUnknownMode, s)
	}
	return m, nil
}

// Valid reports whether m is one of the known modes.
func (m Mode) Valid() bool {
	_, ok := defaultNames[m]
	return ok
}

// DefaultName is the creation name used when no file name is available.
func (m Mode) DefaultName() string {
	if name, ok := defaultNames[m]; ok {
		return name
	}
	return defaultNames[ModeApp]
}

func (m Mode) String() string { return string(m) }
