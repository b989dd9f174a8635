package service

import (
	"errors"
	"fmt"

	"github.com/avakara/ewaste-platform/internal/repository"
	"github.com/avakara/ewaste-platform/internal/workflow"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrPermissionDenied   = errors.New("permission denied")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidMilestone   = errors.New("invalid milestone")
	ErrInvalidTransition  = errors.New("invalid transition")
	ErrInvalidPickupCode  = errors.New("invalid pickup code")
	ErrCapacityExceeded   = errors.New("inventory capacity exceeded")
	ErrInventoryNotSetup  = errors.New("inventory not set up")
	ErrAlreadyExists      = errors.New("already exists")
	ErrVolunteerBusy      = errors.New("volunteer has open assignments")
	ErrInsufficientPoints = errors.New("insufficient points")
	ErrOutOfStock         = errors.New("out of stock")
	ErrModerationRejected = errors.New("rejected by moderation")
	ErrConflict           = errors.New("concurrent update")
	ErrExternalService    = errors.New("external service failure")
)

// workflowError translates state machine errors into the service taxonomy.
func workflowError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, workflow.ErrNotOwner):
		return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	case errors.Is(err, workflow.ErrInvalidMilestone):
		return fmt.Errorf("%w: %v", ErrInvalidMilestone, err)
	case errors.Is(err, workflow.ErrTerminal),
		errors.Is(err, workflow.ErrOutOfOrder),
		errors.Is(err, workflow.ErrRoleNotAllowed):
		return fmt.Errorf("%w: %v", ErrInvalidTransition, err)
	default:
		return err
	}
}

// storeError maps repository sentinels that callers can act on; anything else passes through.
func storeError(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	case errors.Is(err, repository.ErrDuplicate):
		return fmt.Errorf("%w: %s", ErrAlreadyExists, what)
	case errors.Is(err, repository.ErrVersionConflict):
		return fmt.Errorf("%w: %s changed concurrently", ErrConflict, what)
	default:
		return err
	}
}
