package order

import "github.com/pkg/errors"

// Kind is the machine-readable failure category returned at the command boundary.
type Kind string

const (
	KindInvalidTransition       Kind = "invalid_transition"
	KindUnauthorized            Kind = "unauthorized"
	KindSubscriptionRequired    Kind = "subscription_required"
	KindAlreadyEngaged          Kind = "already_engaged"
	KindAlreadyRated            Kind = "already_rated"
	KindNotFound                Kind = "not_found"
	KindCollaboratorUnavailable Kind = "collaborator_unavailable"
	KindValidation              Kind = "validation_error"
)

var (
	ErrInvalidTransition       = errors.New(string(KindInvalidTransition))
	ErrUnauthorized            = errors.New(string(KindUnauthorized))
	ErrSubscriptionRequired    = errors.New(string(KindSubscriptionRequired))
	ErrAlreadyEngaged          = errors.New(string(KindAlreadyEngaged))
	ErrAlreadyRated            = errors.New(string(KindAlreadyRated))
	ErrNotFound                = errors.New(string(KindNotFound))
	ErrCollaboratorUnavailable = errors.New(string(KindCollaboratorUnavailable))
	ErrValidation              = errors.New(string(KindValidation))
)

var kinds = []struct {
	err  error
	kind Kind
}{
	{ErrInvalidTransition, KindInvalidTransition},
	{ErrUnauthorized, KindUnauthorized},
	{ErrSubscriptionRequired, KindSubscriptionRequired},
	{ErrAlreadyEngaged, KindAlreadyEngaged},
	{ErrAlreadyRated, KindAlreadyRated},
	{ErrNotFound, KindNotFound},
	{ErrCollaboratorUnavailable, KindCollaboratorUnavailable},
	{ErrValidation, KindValidation},
}

// KindOf classifies err. Anything outside the taxonomy is a collaborator failure.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindCollaboratorUnavailable
}

func isTyped(err error) bool {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return true
		}
	}
	return false
}

// unavailable wraps an untyped collaborator error (including context deadline) so callers
// always see one of the typed kinds.
func unavailable(err error, op string) error {
	if err == nil || isTyped(err) {
		return err
	}
	return errors.Wrapf(ErrCollaboratorUnavailable, "%s: %v", op, err)
}

func invalid(format string, args ...interface{}) error {
	return errors.Wrapf(ErrValidation, format, args...)
}
