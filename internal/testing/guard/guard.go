package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("PROTRACK_TEST_MODE") == "" {
			_ = os.Setenv("PROTRACK_TEST_MODE", "1")
		}
	})
}
