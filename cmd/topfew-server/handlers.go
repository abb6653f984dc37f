// handlers.go implements general utility commands.
//
// This file provides server-level commands that are not specific to any
// particular tracker: PING, INFO, and DEL.

package main

import (
	"fmt"
	"io"
	"strings"
)

// handlePing handles the PING command.
// Syntax: PING
//
// This is a standard liveness check used by clients to verify that the
// server connection is active and responsive.
func (app *application) handlePing(w io.Writer, args []string) {
	if len(args) != 0 {
		app.wrongNumberOfArgsResponse(w, "PING")
		return
	}

	_ = app.writeSimpleStringResponse(w, "PONG")
}

// handleInfo handles the INFO command.
// Syntax: INFO
//
// This command provides a text-based report of the server's internal state,
// statistics, and metrics. It is primarily used for monitoring and
// debugging purposes.
func (app *application) handleInfo(w io.Writer, args []string) {
	if len(args) > 0 {
		// We do not support sections (e.g. "INFO CPU"), so we strictly
		// require zero arguments.
		app.wrongNumberOfArgsResponse(w, "INFO")
		return
	}

	// Retrieve a snapshot of the server's metrics.
	// Counters use atomic loads; the active connection count is derived from
	// the current length of the semaphore channel, giving an instantaneous
	// view of concurrency. The tracker count walks the shards under their
	// read locks.
	totalConns := app.metrics.TotalConnections.Load()
	totalCmds := app.metrics.TotalCommands.Load()
	totalSeen := app.metrics.TotalValuesSeen.Load()
	activeConns := len(app.connLimiter)
	trackers := app.store.Keys()

	// Construct the report using the standard Redis INFO format: sections
	// denoted by #, then CRLF-terminated "key:value" lines.
	var infoBuilder strings.Builder

	infoBuilder.WriteString("# Server\r\n")
	infoBuilder.WriteString(fmt.Sprintf("connections_total:%d\r\n", totalConns))
	infoBuilder.WriteString(fmt.Sprintf("connections_active:%d\r\n", activeConns))
	infoBuilder.WriteString(fmt.Sprintf("commands_processed_total:%d\r\n", totalCmds))

	infoBuilder.WriteString("# Trackers\r\n")
	infoBuilder.WriteString(fmt.Sprintf("trackers_total:%d\r\n", trackers))
	infoBuilder.WriteString(fmt.Sprintf("values_seen_total:%d\r\n", totalSeen))

	_ = app.writeBulkStringResponse(w, infoBuilder.String())
}

// handleDel handles the DEL command.
// Syntax: DEL key [key ...]
//
// Removes the specified trackers. Keys that do not exist are ignored.
// Returns the number of keys that were actually deleted.
func (app *application) handleDel(w io.Writer, args []string) {
	if len(args) == 0 {
		app.wrongNumberOfArgsResponse(w, "DEL")
		return
	}

	count := 0
	for _, key := range args {
		if app.store.Delete(key) {
			count++
		}
	}

	_ = app.writeIntegerResponse(w, count)
}
