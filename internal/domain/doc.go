// Package domain contains the task tracker's business entities: users,
// tasks, per-task roles and share grants, together with the role policy
// that decides which task fields a role may change and the parsing rules
// for the enum and date values accepted from clients.
//
// Nothing in this package performs I/O. Services in internal/service
// combine these types with the stores and the cache.
package domain
