package uci

import (
	"log"
	"os"
)

// logger is a plain stdlib *log.Logger with a timestamp-only prefix, the
// same construction arena.go uses for its own engine-lifecycle logging
// (log.New(&buf, "", log.Ltime)). It writes to stderr rather than the
// buffer arena.go logs to, since stdout here is the UCI wire itself and
// must never carry anything but protocol output.
var logger = log.New(os.Stderr, "", log.Ltime)
