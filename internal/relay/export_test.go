package relay

import (
	"time"

	"ledgerchat/internal/domain"
)

// SetClock replaces the node clock used for write time checks.
func (s *Server) SetClock(now func() time.Time) { s.now = now }

// SetClock replaces the time a client signs into its writes.
func (c *HTTP) SetClock(now func() time.Time) { c.now = now }

// WriteDigest exposes the signed write message.
func WriteDigest(method, path string, sender domain.Address, ts int64, body []byte) []byte {
	return writeDigest(method, path, sender, ts, body)
}
