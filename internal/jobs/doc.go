// Package jobs manages analysis job persistence backed by SQLite.
//
// Every lifecycle transition is a single conditional UPDATE, so concurrent
// callers race in the database and exactly one wins. Ownership is enforced on
// every read and transition: a job belonging to another user is
// indistinguishable from a job that does not exist.
package jobs
