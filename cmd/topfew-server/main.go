// main.go is the entry point for the topfew server. It wires together the
// storage layer and the network server and manages the operational lifecycle.
//
// The server holds named top-16 trackers in memory and exposes them over the
// RESP wire format, so standard Redis tooling (redis-cli, redis-benchmark,
// client libraries) can drive it without a custom driver. State is purely
// in-memory: trackers summarize a stream as it flows past, and a summary
// that is cheap to rebuild is not worth journalling to disk.
//
// Startup Sequence
// ================
//
// We create the empty in-memory Store, register the command table, and start
// accepting client connections. There is no restore phase.
//
// Graceful Shutdown
// =================
//
// On SIGINT/SIGTERM the listener closes, in-flight connections get
// shutdown-timeout to drain, and the process exits. Nothing needs flushing.

package main

import (
	"flag"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"
)

type config struct {
	port            int
	maxConnections  int
	shutdownTimeout time.Duration
	idleTimeout     time.Duration
	defaultCutoff   uint64
}

type application struct {
	config      config
	logger      *slog.Logger
	listener    net.Listener
	store       *Store
	router      *Router
	metrics     *Metrics
	readyCh     chan struct{}
	wg          sync.WaitGroup
	connLimiter chan struct{}
}

func main() {
	var cfg config

	flag.IntVar(&cfg.port, "port", 6479, "TCP server port")
	flag.IntVar(&cfg.maxConnections, "max-conn", 100, "Maximum concurrent connections")
	flag.DurationVar(&cfg.shutdownTimeout, "shutdown-timeout", 5*time.Second, "Graceful shutdown timeout")
	flag.DurationVar(&cfg.idleTimeout, "idle-timeout", 0, "Idle client connection timeout (0 for no timeout)")
	flag.Uint64Var(&cfg.defaultCutoff, "default-cutoff", 0, "Cutoff for trackers auto-created by TOP.SEE")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	app := &application{
		config:      cfg,
		logger:      logger,
		store:       NewStore(),
		metrics:     NewMetrics(),
		connLimiter: make(chan struct{}, cfg.maxConnections),
	}

	app.router = app.commands()

	if err := app.serve(); err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}
}
