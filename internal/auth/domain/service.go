package domain

import (
	"context"
	"time"
)

type Service interface {
	// Authenticate resolves a bearer token into an actor.
	Authenticate(ctx context.Context, token string) (Actor, error)
	IssueToken(actor Actor, ttl time.Duration) (string, error)
}
