// Package service contains the application use cases: registering and
// authenticating users, and creating, reading, updating, deleting, listing
// and sharing tasks.
//
// Every task operation takes the authenticated caller as an explicit
// *domain.User argument; a nil user fails with ErrUnauthenticated. Access to
// a single task is gated by TaskAccessService in two phases: the task must
// exist (ErrNotFound) and the caller must hold a role on it (ErrForbidden).
// Field-level writes are then checked against domain.CanPerform.
//
// Services depend on the store interfaces and the task cache, never on a
// concrete database. Store mutations of one use case run in a single
// transaction; cache maintenance and event publication happen after commit.
package service
