// Package daemon runs the vault's long-lived process: it enforces
// single-instance execution through a lock file, owns the background reaper
// and inbox watcher, and serves the HTTP API the CLI talks to.
package daemon
