package connfactory

import (
	"sync/atomic"
	"time"
)

// Timeouts is the process-wide connect/response timeout pair spec §4.6
// reads from an atomic snapshot so every connection built after a config
// change picks up the new values without synchronizing on a mutex.
type Timeouts struct {
	Connect  time.Duration
	Response time.Duration
}

var defaultTimeouts = Timeouts{Connect: 30 * time.Second, Response: 60 * time.Second}

var currentTimeouts atomic.Pointer[Timeouts]

func init() {
	currentTimeouts.Store(&defaultTimeouts)
}

// SetTimeouts swaps the process-wide timeout snapshot.
func SetTimeouts(t Timeouts) {
	currentTimeouts.Store(&t)
}

// CurrentTimeouts returns the active snapshot.
func CurrentTimeouts() Timeouts {
	return *currentTimeouts.Load()
}
