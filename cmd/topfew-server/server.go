package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"
)

const (
	writeTimeout              = 5 * time.Second
	rejectionTimeout          = 500 * time.Millisecond
	errMaxConnectionsResponse = "ERR max number of clients reached\n"
)

// serve starts the TCP server and blocks until shutdown.
func (app *application) serve() error {
	//
	// DESIGN
	// ------
	//
	// The main challenge here is coordinating new connections, in-flight
	// requests, and the shutdown signal without losing responses or hanging.
	//
	// 1. CONNECTION LIMITING
	//    A buffered channel (connLimiter) acts as a semaphore capping
	//    concurrent connections. A non-blocking send is a "try-acquire":
	//    if the buffer is full the connection is rejected immediately,
	//    protecting the server from resource exhaustion.
	//
	// 2. GRACEFUL SHUTDOWN
	//    A dedicated goroutine listens for SIGINT/SIGTERM. On a signal it
	//    closes the listener to stop new connections, then waits for the
	//    in-flight handlers (tracked by a WaitGroup) with a context timeout
	//    so a stuck client cannot hang the shutdown forever.
	//
	// 3. ERROR PROPAGATION
	//    The shutdown goroutine reports its result over a channel so main
	//    can exit with an appropriate code.
	//
	addr := fmt.Sprintf(":%d", app.config.port)

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	app.listener = ln

	serverAddr := ln.Addr().String()

	if app.readyCh != nil {
		close(app.readyCh)
	}

	shutdownError := make(chan error)
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		s := <-quit

		app.logger.Info("caught signal", "signal", s.String(), "address", serverAddr)
		app.logger.Info("shutting down server", "address", serverAddr)

		ctx, cancel := context.WithTimeout(context.Background(), app.config.shutdownTimeout)
		defer cancel()

		// Stop accepting new connections.
		if err := ln.Close(); err != nil {
			shutdownError <- err
		}

		wgDone := make(chan struct{})
		go func() {
			app.wg.Wait()
			close(wgDone)
		}()

		select {
		case <-wgDone:
			shutdownError <- nil // clean shutdown
		case <-ctx.Done():
			shutdownError <- ctx.Err() // timeout
		}
	}()

	app.logger.Info("server starting", "address", serverAddr)

	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				break // normal shutdown path
			}
			app.logger.Error("failed to accept connection", "error", err, "address", serverAddr)
			continue
		}

		select {
		case app.connLimiter <- struct{}{}:
			// A slot was available. Launch the handler.
			app.wg.Add(1)
			go app.handleConnection(conn)
		default:
			// No slot available. Reject the connection with a strict
			// deadline so a client that refuses to read cannot block
			// the accept loop.
			app.logger.Info("rejecting connection, limit reached", "remote_addr", conn.RemoteAddr().String())

			_ = conn.SetWriteDeadline(time.Now().Add(rejectionTimeout))

			_ = app.writeResponse(conn, []byte(errMaxConnectionsResponse))
			_ = conn.Close()
		}
	}

	err = <-shutdownError
	if err != nil && !errors.Is(err, context.DeadlineExceeded) {
		app.logger.Error("server stopped with error", "error", err, "address", serverAddr)
		return err
	}

	app.logger.Info("server stopped gracefully", "address", serverAddr)
	return nil
}

// handleConnection manages the lifecycle of a single client connection.
func (app *application) handleConnection(conn net.Conn) {
	//
	// DESIGN
	// ------
	//
	// A request/response loop with buffered I/O and a "smart flush" for
	// pipelined clients.
	//
	// Responses accumulate in a 4KB bufio.Writer instead of going to the
	// socket one syscall at a time. After dispatching a command we check
	// whether the parser still has buffered input: if the client pipelined
	// several commands into one TCP segment, we keep processing and batch
	// the responses into a single write. Only when the input buffer drains
	// do we flush, so a non-pipelining client is never left waiting.
	//
	// The deferred cleanup releases the semaphore slot, decrements the
	// WaitGroup, closes the connection, and flushes whatever responses were
	// produced before a parse error or disconnect ended the loop.
	//
	defer func() { <-app.connLimiter }()
	defer app.wg.Done()
	defer func() { _ = conn.Close() }()

	app.metrics.TotalConnections.Add(1)

	remoteAddr := conn.RemoteAddr().String()
	app.logger.Info("new connection", "remote_addr", remoteAddr)

	parser := NewParser(conn)
	writer := bufio.NewWriterSize(conn, 4096)

	defer func() { _ = writer.Flush() }()

	if app.config.idleTimeout > 0 {
		if err := conn.SetReadDeadline(time.Now().Add(app.config.idleTimeout)); err != nil {
			app.logger.Error("failed to set initial read deadline", "error", err, "remote_addr", remoteAddr)
			return
		}
	}

	for {
		if app.config.idleTimeout > 0 {
			if err := conn.SetReadDeadline(time.Now().Add(app.config.idleTimeout)); err != nil {
				app.logger.Error("failed to set read deadline", "error", err, "remote_addr", remoteAddr)
				return
			}
		}

		parts, err := parser.Parse()
		if err != nil {
			if err == io.EOF {
				app.logger.Info("client disconnected", "remote_addr", remoteAddr)
			} else {
				app.logger.Error("parser error", "error", err, "remote_addr", remoteAddr)
			}
			return
		}

		app.router.Dispatch(app, writer, parts)

		// Smart flush: only flush when the read buffer is empty.
		if parser.Buffered() == 0 {
			if err := writer.Flush(); err != nil {
				app.logger.Error("failed to flush response", "error", err, "remote_addr", remoteAddr)
				return
			}
		}
	}
}
