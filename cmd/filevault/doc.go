// Command filevault is the CLI companion to filevaultd. Most commands talk
// to the running daemon over its HTTP API; migrate and config work directly
// against the local configuration and database.
package main
