package app

import (
	"os"
	"sync"
	"sync/atomic"
	"time"
)

const testModeEnv = "BILLFORGE_TEST_MODE"

// defaultRateWindow backs the rate limiter when no window is configured.
const defaultRateWindow = time.Minute

var (
	testModeFlag atomic.Bool
	testModeOnce sync.Once
)

func detectTestMode() {
	testModeFlag.Store(os.Getenv(testModeEnv) == "1")
}

// InTestMode reports whether the application should skip runtime side effects.
func InTestMode() bool {
	testModeOnce.Do(detectTestMode)
	return testModeFlag.Load()
}

// RefreshTestMode updates the cached flag after environment changes.
func RefreshTestMode() {
	detectTestMode()
}
