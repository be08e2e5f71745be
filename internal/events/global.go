package events

import "sync"

var (
	globalBus   EventBus
	globalBusMu sync.RWMutex
)

// SetGlobalEventBus installs the process-wide event bus. Called once during
// server startup before modules initialize.
func SetGlobalEventBus(bus EventBus) {
	globalBusMu.Lock()
	defer globalBusMu.Unlock()
	globalBus = bus
}

// GetGlobalEventBus returns the process-wide event bus, or nil when the bus
// has not been installed yet (some tests run modules without a bus).
func GetGlobalEventBus() EventBus {
	globalBusMu.RLock()
	defer globalBusMu.RUnlock()
	return globalBus
}
