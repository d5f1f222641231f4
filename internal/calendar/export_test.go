package calendar

var TermMarkerKey = termMarkerKey

// Hold takes the pass guard as a running pass would and returns its release.
func (s *Scheduler) Hold() func() {
	s.running.Lock()
	return s.running.Unlock
}
