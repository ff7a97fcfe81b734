// Package guard forces test mode before any runtime side effects fire.
// Import it for side effects from packages whose tests must never start
// servers or workers.
package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("FLEETDESK_TEST_MODE") == "" {
			_ = os.Setenv("FLEETDESK_TEST_MODE", "1")
		}
	})
}
