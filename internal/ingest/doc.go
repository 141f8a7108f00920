// Package ingest admits new files into the vault. A payload is streamed to a
// scratch file while its digest accumulates, promoted into the uploads area,
// and only then recorded in the registry. Every failure path removes the
// partial file so an aborted ingest leaves nothing behind but possibly a
// scratch file for the reaper.
package ingest
