// Package fillerlog provides the tagged *log.Logger construction used by
// every long-running component (scheduler, monitor, canceller, status
// poller). Grounded on the teacher's per-component `log.New(log.Writer(),
// "[Tag] ", log.LstdFlags)` convention, used throughout pkg/server,
// pkg/anchor and pkg/database.
package fillerlog

import (
	"log"
	"os"
)

// New returns a *log.Logger tagged with "[tag] ", writing to os.Stderr
// with standard date/time flags — the same shape every teacher component
// constructs its logger with, just centralized so tag conventions stay
// consistent across the filler's own components.
func New(tag string) *log.Logger {
	return log.New(os.Stderr, "["+tag+"] ", log.LstdFlags)
}
