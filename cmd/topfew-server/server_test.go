package main

import (
	"bufio"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"
)

// newTestApp is a helper function that creates a new, valid application instance
// for use in tests. This centralizes the setup logic.
func newTestApp(t *testing.T) *application {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	cfg := config{
		port:           0, // Use a random free port
		maxConnections: 10,
	}

	app := &application{
		config:      cfg,
		logger:      logger,
		store:       NewStore(),
		metrics:     NewMetrics(),
		readyCh:     make(chan struct{}),
		connLimiter: make(chan struct{}, cfg.maxConnections),
	}
	app.router = app.commands()

	return app
}

// TestPingServer ensures the PING command works as expected.
func TestPingServer(t *testing.T) {
	app := newTestApp(t)

	go func() { _ = app.serve() }()
	<-app.readyCh
	defer func() { _ = app.listener.Close() }()

	conn, err := net.Dial("tcp", app.listener.Addr().String())
	if err != nil {
		t.Fatalf("failed to connect to server: %v", err)
	}
	defer func() { _ = conn.Close() }()

	reader := bufio.NewReader(conn)

	if _, err := conn.Write([]byte("PING\r\n")); err != nil {
		t.Fatalf("failed to write PING: %v", err)
	}
	response, err := reader.ReadString('\n')
	if err != nil {
		t.Fatalf("failed to read response: %v", err)
	}
	expected := "+PONG\r\n"
	if response != expected {
		t.Errorf("unexpected response: got %q, want %q", response, expected)
	}
}

// TestConnectionLimiter verifies that the server correctly limits the number
// of concurrent connections.
func TestConnectionLimiter(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config{port: 0, maxConnections: 1}
	app := &application{
		config:      cfg,
		logger:      logger,
		store:       NewStore(),
		metrics:     NewMetrics(),
		readyCh:     make(chan struct{}),
		connLimiter: make(chan struct{}, cfg.maxConnections),
	}
	app.router = app.commands()

	go func() { _ = app.serve() }()
	<-app.readyCh
	defer func() { _ = app.listener.Close() }()
	serverAddr := app.listener.Addr().String()

	// --- Step 1: Use up the single connection slot ---
	hogConn, err := net.Dial("tcp", serverAddr)
	if err != nil {
		t.Fatalf("failed to make the first connection: %v", err)
	}
	defer func() { _ = hogConn.Close() }()

	// Give the server a moment to process the connection.
	time.Sleep(50 * time.Millisecond)

	// --- Step 2: Test that the next connection is REJECTED ---
	secondConn, err := net.Dial("tcp", serverAddr)
	if err != nil {
		t.Fatalf("second connection dial failed unexpectedly: %v", err)
	}
	defer func() { _ = secondConn.Close() }()

	// Read from the rejected connection. We expect to get the error message.
	reader := bufio.NewReader(secondConn)
	response, err := reader.ReadString('\n')
	if err != nil {
		t.Fatalf("failed to read from second connection: %v", err)
	}

	expected := "ERR max number of clients reached\n"
	if response != expected {
		t.Errorf("unexpected response from rejected connection: got %q, want %q", response, expected)
	}

	// --- Step 3: Verify the first connection is still alive ---
	// This proves that rejecting the second connection didn't kill the server.
	if _, err := hogConn.Write([]byte("PING\r\n")); err != nil {
		t.Fatal("first connection is dead after second was rejected")
	}

	hogReader := bufio.NewReader(hogConn)
	_, err = hogReader.ReadString('\n')
	if err != nil {
		t.Fatalf("failed to read PONG from first connection: %v", err)
	}
}

// TestPipelinedCommands verifies that a batch of commands arriving in one
// write produces all responses in order.
func TestPipelinedCommands(t *testing.T) {
	app := newTestApp(t)

	go func() { _ = app.serve() }()
	<-app.readyCh
	defer func() { _ = app.listener.Close() }()

	conn, err := net.Dial("tcp", app.listener.Addr().String())
	if err != nil {
		t.Fatalf("failed to connect to server: %v", err)
	}
	defer func() { _ = conn.Close() }()

	batch := "PING\r\nTOP.NEW pipelined\r\nTOP.SEE pipelined 7\r\n"
	if _, err := conn.Write([]byte(batch)); err != nil {
		t.Fatalf("failed to write batch: %v", err)
	}

	reader := bufio.NewReader(conn)
	expected := []string{"+PONG\r\n", "+OK\r\n", "*1\r\n", ":16\r\n"}
	for i, want := range expected {
		line, err := reader.ReadString('\n')
		if err != nil {
			t.Fatalf("failed to read response %d: %v", i, err)
		}
		if line != want {
			t.Errorf("response %d: got %q, want %q", i, line, want)
		}
	}
}

// TestUnknownCommand verifies the error path for unregistered commands.
func TestUnknownCommand(t *testing.T) {
	app := newTestApp(t)

	go func() { _ = app.serve() }()
	<-app.readyCh
	defer func() { _ = app.listener.Close() }()

	conn, err := net.Dial("tcp", app.listener.Addr().String())
	if err != nil {
		t.Fatalf("failed to connect to server: %v", err)
	}
	defer func() { _ = conn.Close() }()

	reader := bufio.NewReader(conn)

	if _, err := conn.Write([]byte("NOPE arg\r\n")); err != nil {
		t.Fatalf("failed to write command: %v", err)
	}
	response, err := reader.ReadString('\n')
	if err != nil {
		t.Fatalf("failed to read response: %v", err)
	}
	expected := "-ERR unknown command 'NOPE'\r\n"
	if response != expected {
		t.Errorf("unexpected response: got %q, want %q", response, expected)
	}
}
