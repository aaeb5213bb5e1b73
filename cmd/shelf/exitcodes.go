package main

// Exit codes shared by all shelf commands.
const (
	ExitSuccess     = 0 // Success
	ExitError       = 1 // General error (invalid arguments, runtime failure)
	ExitConfigError = 2 // Configuration error (no collection, invalid config)
	ExitDataError   = 3 // Data error (unknown key, duplicate key, bad input)
	ExitFetchError  = 4 // Enrichment failure for a single-paper add
	ExitAuthError   = 5 // Missing or invalid GitHub token
)
