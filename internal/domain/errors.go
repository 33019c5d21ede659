package domain

import "errors"

// Error taxonomy for resolution failures. Existence failures (not found,
// rate limited, unauthenticated) always propagate to the caller; enrichment
// failures are absorbed inside the resolvers and never surface here.
var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrNotFound        = errors.New("handle not found")
	ErrRateLimited     = errors.New("upstream rate limit exceeded")
	ErrUnauthenticated = errors.New("session invalid or expired")
	ErrUpstream        = errors.New("upstream error")
	ErrTimeout         = errors.New("operation timed out")
)
