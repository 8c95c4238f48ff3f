package app

import (
	"os"
	"strconv"
	"sync"
	"sync/atomic"
)

// testModeEnv is set by internal/testing/guard when a test imports a binary's package.
const testModeEnv = "BACKOFFICE_TEST_MODE"

var (
	skipServe     atomic.Bool
	skipServeOnce sync.Once
)

func readTestMode() {
	on, err := strconv.ParseBool(os.Getenv(testModeEnv))
	skipServe.Store(err == nil && on)
}

// InTestMode reports whether the backoffice and worker binaries were started
// under tests and must return before dialing Redis or binding the console port.
func InTestMode() bool {
	skipServeOnce.Do(readTestMode)
	return skipServe.Load()
}

// RefreshTestMode re-reads BACKOFFICE_TEST_MODE; tests call it after t.Setenv.
func RefreshTestMode() {
	skipServeOnce.Do(func() {})
	readTestMode()
}
