// Package api exposes vault operations as transport-neutral services and
// DTOs. The daemon's HTTP server and the CLI both speak these types, so the
// wire shapes live here rather than in either consumer.
package api
