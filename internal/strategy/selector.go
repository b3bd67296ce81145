package strategy

import "github.com/user/portalwatch/internal/model"

// Selector derives the active context from external UI signals. An error
// screen wins over everything, otherwise an active session selects the
// session context and the login screen is the default.
type Selector struct {
	errorScreen bool
	session     bool
}

// Current returns the active context.
func (s *Selector) Current() model.StrategyContext {
	switch {
	case s.errorScreen:
		return model.ContextErrorScreenVisible
	case s.session:
		return model.ContextSession
	default:
		return model.ContextLoginScreen
	}
}

// SetErrorScreenVisible records whether the error screen is showing and
// reports whether the active context changed.
func (s *Selector) SetErrorScreenVisible(visible bool) bool {
	before := s.Current()
	s.errorScreen = visible
	return before != s.Current()
}

// SetSessionActive records whether a user session is running and reports
// whether the active context changed.
func (s *Selector) SetSessionActive(active bool) bool {
	before := s.Current()
	s.session = active
	return before != s.Current()
}
