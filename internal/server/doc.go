// Package server exposes the analysis service over HTTP. Handlers only
// translate between HTTP and the api service; all operation semantics live
// behind the facade.
package server
