// Package api handles incoming HTTP requests, request validation and
// response formatting for the task API. Handlers resolve the caller placed
// in the context by middleware.AuthMiddleware and pass it explicitly to the
// services; service errors are translated to status codes by
// MapErrorToStatusCode.
package api
