// Package reaper sweeps the temp and logs areas in the background. Temp
// files past their TTL are removed, with an extra grace period for in-flight
// scratch files; the active log is rotated by size and rotated logs are
// pruned by count and age. The reaper never touches asset areas or the
// registry.
package reaper
