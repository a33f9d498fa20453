package padindex

import (
	"time"

	"github.com/grailbio/base/log"
)

// phase logs name, then returns a func that logs its own elapsed time when
// called -- the Go shape of the original's CTitle RAII banner, used with
// `defer phase("...")()` around each build stage.
func phase(name string) func() {
	log.Printf("%s...", name)
	t0 := time.Now()
	return func() {
		log.Printf("%s: done in %s", name, time.Since(t0))
	}
}
