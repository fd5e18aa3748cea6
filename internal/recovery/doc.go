// Package recovery implements the reconciliation protocol that lets a
// view, upon becoming active again, discover and apply the true
// outcome of work it started earlier. It is the read side of the
// subsystem: the registry and the durable stores hold ground truth,
// and the reconciler folds them into a single verdict for the view.
package recovery
