// Package identity resolves external user ids against the accounts service.
//
// Every lookup yields exactly one of three outcomes. NotFound is definitive;
// Unavailable means the service could not answer and callers must not treat
// the user as missing.
package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/Nikita-Hritsay/TeamUp/internal/domain"
)

// Outcome classifies a resolution.
type Outcome int

const (
	Found Outcome = iota + 1
	NotFound
	Unavailable
)

func (o Outcome) String() string {
	switch o {
	case Found:
		return "found"
	case NotFound:
		return "not_found"
	case Unavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// User is the snapshot returned by the accounts service. Only ID is relied upon.
type User struct {
	ID           string `json:"id"`
	FirstName    string `json:"firstName,omitempty"`
	LastName     string `json:"lastName,omitempty"`
	Email        string `json:"email,omitempty"`
	MobileNumber string `json:"mobileNumber,omitempty"`
}

// Resolution is the result of one lookup. User is set only for Found; Err
// carries the cause of Unavailable.
type Resolution struct {
	Outcome Outcome
	User    User
	Err     error
}

// Resolver looks a user up by id.
type Resolver interface {
	ResolveUser(ctx context.Context, userID string) Resolution
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(ctx context.Context, userID string) Resolution

func (f ResolverFunc) ResolveUser(ctx context.Context, userID string) Resolution {
	return f(ctx, userID)
}

// ErrUnavailable is wrapped by every Unavailable cause produced in this package.
var ErrUnavailable = errors.New("identity service unavailable")

func found(u User) Resolution {
	return Resolution{Outcome: Found, User: u}
}

func notFound() Resolution {
	return Resolution{Outcome: NotFound}
}

func unavailable(format string, args ...any) Resolution {
	return Resolution{
		Outcome: Unavailable,
		Err:     fmt.Errorf("%w: %s", ErrUnavailable, fmt.Sprintf(format, args...)),
	}
}

// RequireUser resolves userID and converts the non-Found outcomes into
// domain errors: NotFound("User", "id", userID) or a wrapped domain.ErrUnavailable.
func RequireUser(ctx context.Context, r Resolver, userID string) (User, error) {
	res := r.ResolveUser(ctx, userID)
	switch res.Outcome {
	case Found:
		return res.User, nil
	case NotFound:
		return User{}, domain.NotFound("User", "id", userID)
	default:
		cause := res.Err
		if cause == nil {
			cause = ErrUnavailable
		}
		return User{}, fmt.Errorf("%w: resolve user %s: %v", domain.ErrUnavailable, userID, cause)
	}
}
