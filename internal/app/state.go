package app

import "sync/atomic"

// State is the mutable runtime state shared by the surfaces. It replaces the
// process-wide flags the pipeline, scheduler, bot and console would otherwise
// have to reach for.
type State struct {
	demo            atomic.Bool
	updatesDisabled atomic.Bool
	telegram        atomic.Bool
}

func NewState(demo bool) *State {
	s := &State{}
	s.demo.Store(demo)
	return s
}

func (s *State) DemoMode() bool            { return s.demo.Load() }
func (s *State) SetDemoMode(v bool)        { s.demo.Store(v) }
func (s *State) UpdatesEnabled() bool      { return !s.updatesDisabled.Load() }
func (s *State) SetUpdatesEnabled(v bool)  { s.updatesDisabled.Store(!v) }
func (s *State) TelegramRunning() bool     { return s.telegram.Load() }
func (s *State) SetTelegramRunning(v bool) { s.telegram.Store(v) }
