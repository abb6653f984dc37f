package main

// commands creates a new router and registers all the application's command handlers.
// This is the single source of truth for what commands the server supports.
func (app *application) commands() *Router {
	router := NewRouter()

	// Generic Commands
	router.Handle("PING", app.handlePing)
	router.Handle("DEL", app.handleDel)

	// Metrics
	router.Handle("INFO", app.handleInfo)

	// Trackers
	router.Handle("TOP.NEW", app.handleTopNew)
	router.Handle("TOP.SEE", app.handleTopSee)
	router.Handle("TOP.MAX", app.handleTopMax)
	router.Handle("TOP.CUTOFF", app.handleTopCutoff)
	router.Handle("TOP.SETCUTOFF", app.handleTopSetCutoff)
	router.Handle("TOP.LIST", app.handleTopList)

	return router
}
