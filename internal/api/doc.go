// Package api is the service facade behind the HTTP handlers. It owns the
// operation semantics (upload, process, status, results, export, listing)
// while the server layer only translates HTTP.
package api
