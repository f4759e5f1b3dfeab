// Package logging provides a process-wide structured logger for storecore.
//
// The package wraps [go.uber.org/zap] and exposes a single global logger
// instance that is initialized once and then retrieved via GetLogger. All
// subsystems obtain a logger through this package rather than constructing
// their own, so that log level and output destination are controlled from a
// single place.
//
// # Initialisation
//
// Call Init once at program startup, before spawning goroutines that log:
//
//	if err := logging.Init(logging.Config{Level: logging.LevelDebug, Format: "json"}); err != nil {
//	    log.Fatal(err)
//	}
//
// If GetLogger is called before Init, an INFO-level console logger writing to
// stderr is created lazily so that packages which log during init are safe.
//
// # Context helpers
//
// Several helpers return child loggers pre-populated with fields:
//
//	log := logging.WithTx(tid)            // adds tx_id
//	log := logging.WithPage(pid)          // adds table_id and page_no
//	log := logging.WithLock(tid, pid)     // adds both
//	log := logging.WithComponent("pool")  // adds component
package logging
