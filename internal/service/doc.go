// Package service contains the application use cases that sit between
// the HTTP layer and the task/store infrastructure. OperationService
// launches long-latency generation operations as registered tasks and
// persists their results; ViewService reads a view's durable state
// after running the reconciliation pass that resynchronizes it with
// the true outcome of earlier work.
//
// Services receive dependencies through constructor injection and
// depend only on the store and generation interfaces, never on
// concrete infrastructure.
package service
