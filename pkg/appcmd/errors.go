package appcmd

import (
	"errors"
	"fmt"
	"net/http"
)

// Declaration errors are returned by the command constructors.
var (
	ErrHandlerSignature   = errors.New("appcmd: handler must be a func taking *InteractionContext and returning error")
	ErrAlreadyCommand     = errors.New("appcmd: handler is already a command")
	ErrMissingName        = errors.New("appcmd: command name is required")
	ErrInvalidName        = errors.New("appcmd: invalid command name")
	ErrMissingDescription = errors.New("appcmd: slash commands need a description")
	ErrInvalidDescription = errors.New("appcmd: invalid command description")
	ErrGroupDepth         = errors.New("appcmd: subcommand groups nest at most two levels")
	ErrContextOptions     = errors.New("appcmd: context menu commands take no options")
	ErrRegistered         = errors.New("appcmd: command is already registered")
)

var (
	// ErrAlreadyInvoked is returned when an InteractionContext is invoked twice.
	ErrAlreadyInvoked = errors.New("appcmd: interaction context already invoked")

	// ErrForbidden matches platform errors caused by missing access, usually
	// a guild that did not grant the applications.commands scope.
	ErrForbidden = errors.New("appcmd: forbidden")

	ErrNoApplicationID = errors.New("appcmd: application id is unknown")
	ErrExtensionExists = errors.New("appcmd: extension already added")
	ErrNoExtension     = errors.New("appcmd: extension not found")
)

// RESTError carries the HTTP status of a failed platform call.
type RESTError struct {
	Status int
	Err    error
}

func (e *RESTError) Error() string {
	return fmt.Sprintf("platform request failed (%d): %v", e.Status, e.Err)
}

func (e *RESTError) Unwrap() error { return e.Err }

// StatusCode lets retrylimit classify the error.
func (e *RESTError) StatusCode() int { return e.Status }

func (e *RESTError) Is(target error) bool {
	return target == ErrForbidden && e.Status == http.StatusForbidden
}
