package main

import (
	"fmt"
	"io"
)

// unknownCommandResponse sends an unknown command error to the client.
func (app *application) unknownCommandResponse(w io.Writer, commandName string) {
	msg := fmt.Sprintf("ERR unknown command '%s'", commandName)
	_ = app.writeErrorResponse(w, msg)
}

// wrongNumberOfArgsResponse sends a wrong number of arguments error to the client.
func (app *application) wrongNumberOfArgsResponse(w io.Writer, commandName string) {
	msg := fmt.Sprintf("ERR wrong number of arguments for '%s' command", commandName)
	_ = app.writeErrorResponse(w, msg)
}

// notAnUnsignedIntegerResponse rejects an argument that does not parse as an
// unsigned 64-bit decimal.
func (app *application) notAnUnsignedIntegerResponse(w io.Writer) {
	_ = app.writeErrorResponse(w, "ERR value is not an unsigned integer or out of range")
}
