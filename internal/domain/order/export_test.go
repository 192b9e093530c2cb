package order

import "time"

// SetClock pins the service clock for tests.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// SetIDGenerator pins generated ids for tests.
func (s *Service) SetIDGenerator(newID func() string) { s.newID = newID }
