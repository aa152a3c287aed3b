package actor

import "errors"

// ErrArgument wraps every null/empty-argument violation from a public
// method.
var ErrArgument = errors.New("actor: invalid argument")

// ErrSystemShuttingDown is returned by Tell once the system has started
// (or finished) shutting down.
var ErrSystemShuttingDown = errors.New("actor: system is shutting down")
