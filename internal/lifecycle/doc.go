// Package lifecycle moves assets between stages. Forward transitions copy
// the file to the destination area, verify it against the recorded digest,
// and commit through the registry's compare-and-swap; deletion is a
// soft-delete that keeps the audit row and removes only the bytes. Under
// concurrent requests for the same asset exactly one transition commits.
package lifecycle
