// Package storage persists upload and result payloads on the local
// filesystem, keyed by user and job so one user's files can never shadow
// another's.
package storage
