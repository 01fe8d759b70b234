package message

import "time"

// SetClock replaces the timestamp source used by Send.
func (s *Service) SetClock(now func() time.Time) { s.now = now }
