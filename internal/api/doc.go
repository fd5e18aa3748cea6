// Package api contains the HTTP handlers, request/response models,
// and error mapping for the coach API. Handlers depend on small
// interfaces over the service layer, decode and validate request
// bodies, and translate service errors into sanitized JSON responses.
//
// Routing and middleware assembly live in cmd/server; authentication
// and trace correlation are provided by the middleware subpackage.
package api
