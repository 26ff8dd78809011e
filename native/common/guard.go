package common

import (
	"fmt"
	"strings"

	coreerrors "stakebank/core/errors"
)

// Module names recognised by the pause guard.
const (
	ModuleInvest = "invest"
	ModuleBank   = "bank"
	ModuleToken  = "token"
)

// PauseView reports whether a module's user entry points are paused.
type PauseView interface {
	IsPaused(module string) bool
}

// Guard returns ErrModulePaused when module is paused in p.
func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return fmt.Errorf("%s: %w", module, coreerrors.ErrModulePaused)
	}
	return nil
}

// Pauses is a static PauseView keyed by module name.
type Pauses map[string]bool

// IsPaused implements PauseView.
func (p Pauses) IsPaused(module string) bool {
	if p == nil {
		return false
	}
	return p[strings.ToLower(strings.TrimSpace(module))]
}

// NewPauses builds a Pauses view from a list of paused module names.
func NewPauses(modules []string) Pauses {
	p := make(Pauses, len(modules))
	for _, m := range modules {
		if name := strings.ToLower(strings.TrimSpace(m)); name != "" {
			p[name] = true
		}
	}
	return p
}
