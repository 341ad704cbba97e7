package errors

import (
	stderrors "errors"
	"fmt"
)

var (
	ErrWorkerPanic = fmt.Errorf("worker panic")

	ErrParse                 = fmt.Errorf("malformed command")
	ErrNotLogin              = fmt.Errorf("first message is not a login")
	ErrUnknownClient         = fmt.Errorf("no such client")
	ErrDuplicateRegistration = fmt.Errorf("key already registered")
	ErrRegistryFull          = fmt.Errorf("registry is full")
	ErrFollowTargetMissing   = fmt.Errorf("follow target is not registered")
	ErrFollowLimitReached    = fmt.Errorf("follow set is full")
	ErrUnknownCommand        = fmt.Errorf("unknown command kind")

	ErrTransport     = fmt.Errorf("transport failure")
	ErrFrameTooLarge = fmt.Errorf("frame exceeds maximum size")
)

// Is and As forward to the standard library so callers need a single errors import.
func Is(err, target error) bool { return stderrors.Is(err, target) }

func As(err error, target any) bool { return stderrors.As(err, target) }
