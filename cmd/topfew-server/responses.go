package main

import (
	"io"
	"strconv"
)

// Pre-allocated response buffers for common cases.
//
// These byte slices are created once at startup and reused for every response.
// This eliminates allocations entirely for the most frequent responses:
// - PONG (from PING command)
// - OK (from successful write commands)
// - 0 (from TOP.SEE, returned for every rejected value)
// - Nil (for missing keys and empty trackers)
var (
	respOK   = []byte("+OK\r\n")
	respPong = []byte("+PONG\r\n")
	respZero = []byte(":0\r\n")
	respOne  = []byte(":1\r\n")
	respNil  = []byte("$-1\r\n")
)

func (app *application) writeSimpleStringResponse(w io.Writer, s string) error {
	// Fast path for common responses.
	if s == "OK" {
		_, err := w.Write(respOK)
		return err
	}
	if s == "PONG" {
		_, err := w.Write(respPong)
		return err
	}

	// Fallback: build the response without fmt.Sprintf.
	// Format: +string\r\n
	buf := make([]byte, 0, 1+len(s)+2)
	buf = append(buf, '+')
	buf = append(buf, s...)
	buf = append(buf, '\r', '\n')
	_, err := w.Write(buf)
	return err
}

func (app *application) writeErrorResponse(w io.Writer, errStr string) error {
	// Format: -string\r\n
	// Errors are not on the hot path, but we still avoid fmt.Sprintf.
	buf := make([]byte, 0, 1+len(errStr)+2)
	buf = append(buf, '-')
	buf = append(buf, errStr...)
	buf = append(buf, '\r', '\n')
	_, err := w.Write(buf)
	return err
}

func (app *application) writeBulkStringResponse(w io.Writer, s string) error {
	// Format: $length\r\nstring\r\n
	// Used for INFO command output. Not a hot path.
	buf := make([]byte, 0, 16+len(s))
	buf = append(buf, '$')
	buf = strconv.AppendInt(buf, int64(len(s)), 10)
	buf = append(buf, '\r', '\n')
	buf = append(buf, s...)
	buf = append(buf, '\r', '\n')
	_, err := w.Write(buf)
	return err
}

func (app *application) writeIntegerResponse(w io.Writer, i int) error {
	// Fast path for 0 and 1. Once a tracker fills up, most TOP.SEE responses
	// are rank 0 (rejected); pre-allocated buffers make those free.
	if i == 0 {
		_, err := w.Write(respZero)
		return err
	}
	if i == 1 {
		_, err := w.Write(respOne)
		return err
	}

	// Fallback: strconv.AppendInt is ~10x faster than fmt.Sprintf.
	// Format: :integer\r\n
	buf := make([]byte, 0, 24)
	buf = append(buf, ':')
	buf = strconv.AppendInt(buf, int64(i), 10)
	buf = append(buf, '\r', '\n')
	_, err := w.Write(buf)
	return err
}

// writeUnsignedResponse writes a RESP integer from a uint64.
//
// Tracked values use the full unsigned range, so they go through AppendUint
// rather than the signed path, which would mangle values above 2^63-1.
func (app *application) writeUnsignedResponse(w io.Writer, v uint64) error {
	buf := make([]byte, 0, 24)
	buf = append(buf, ':')
	buf = strconv.AppendUint(buf, v, 10)
	buf = append(buf, '\r', '\n')
	_, err := w.Write(buf)
	return err
}

func (app *application) writeNilResponse(w io.Writer) error {
	// Format: $-1\r\n (Null Bulk String)
	_, err := w.Write(respNil)
	return err
}

// writeIntegerArrayResponse writes a RESP array of integers.
// Format: *count\r\n:int1\r\n:int2\r\n...:intN\r\n
//
// This carries the ranks from a multi-value TOP.SEE. The entire response is
// built in one buffer and written in a single Write call for atomicity.
func (app *application) writeIntegerArrayResponse(w io.Writer, values []int) error {
	// Estimate buffer size: header (~6 bytes) + per element (~5 bytes,
	// ranks are at most two digits).
	buf := make([]byte, 0, 6+len(values)*5)

	// Write array header: *count\r\n
	buf = append(buf, '*')
	buf = strconv.AppendInt(buf, int64(len(values)), 10)
	buf = append(buf, '\r', '\n')

	for _, v := range values {
		buf = append(buf, ':')
		buf = strconv.AppendInt(buf, int64(v), 10)
		buf = append(buf, '\r', '\n')
	}

	_, err := w.Write(buf)
	return err
}

// writeUnsignedArrayResponse writes a RESP array of uint64 values.
// Format: *count\r\n:v1\r\n:v2\r\n...:vN\r\n
//
// Used by TOP.LIST. At most 16 elements, each up to 20 digits.
func (app *application) writeUnsignedArrayResponse(w io.Writer, values []uint64) error {
	buf := make([]byte, 0, 6+len(values)*24)

	buf = append(buf, '*')
	buf = strconv.AppendInt(buf, int64(len(values)), 10)
	buf = append(buf, '\r', '\n')

	for _, v := range values {
		buf = append(buf, ':')
		buf = strconv.AppendUint(buf, v, 10)
		buf = append(buf, '\r', '\n')
	}

	_, err := w.Write(buf)
	return err
}
