package sentry

import (
	"errors"
	"reflect"
)

// defaultMaxErrorDepth is the maximum number of errors reported in a chain of errors.
const defaultMaxErrorDepth = 10

// exceptionsFromError returns the exceptions of the error chain of err,
// ordered from the innermost cause to err itself. At most maxDepth errors are
// reported. The outermost exception falls back to the stack of the caller
// when err carries no stack trace of its own.
func exceptionsFromError(err error, maxDepth int) []Exception {
	if err == nil {
		return nil
	}
	if maxDepth <= 0 {
		maxDepth = defaultMaxErrorDepth
	}

	var exceptions []Exception
	for i := 0; i < maxDepth && err != nil; i++ {
		exceptions = append(exceptions, Exception{
			Value:      err.Error(),
			Type:       reflect.TypeOf(err).String(),
			Stacktrace: ExtractStacktrace(err),
		})
		err = unwrapError(err)
	}

	if exceptions[0].Stacktrace == nil {
		exceptions[0].Stacktrace = NewStacktrace()
	}

	// Sentry expects the chain to start with the oldest error.
	for i, j := 0, len(exceptions)-1; i < j; i, j = i+1, j-1 {
		exceptions[i], exceptions[j] = exceptions[j], exceptions[i]
	}

	return exceptions
}

func unwrapError(err error) error {
	// Attempt to unwrap the error using the standard library's Unwrap method.
	if unwrapped := errors.Unwrap(err); unwrapped != nil {
		return unwrapped
	}
	// The error implements the Cause method, indicating it may have been wrapped
	// using the github.com/pkg/errors package.
	if caused, ok := err.(interface{ Cause() error }); ok {
		if cause := caused.Cause(); cause != err {
			return cause
		}
	}
	return nil
}
