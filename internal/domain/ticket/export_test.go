package ticket

import "time"

// SetClock pins the service clock for tests.
func (s *Service) SetClock(now func() time.Time) { s.now = now }
