package forge

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/go-github/v60/github"
)

// ErrNotFound marks a file or directory probe that found nothing. Probing
// for manifests is routine (does this repo have a package.json?), so the
// estimator layer treats this as "absent", never as a report failure.
var ErrNotFound = errors.New("not found")

// RateLimitError is the distinguished failure mode for an exhausted API
// quota. It propagates to the caller unchanged so the presentation layer
// can render the reset countdown and suggest supplying a token.
type RateLimitError struct {
	ResetTime time.Time
	Limit     int
	Remaining int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("github rate limit exceeded (limit %d, remaining %d, resets %s)",
		e.Limit, e.Remaining, e.ResetTime.Format(time.RFC1123))
}

// IsRateLimit reports whether err is (or wraps) a RateLimitError.
func IsRateLimit(err error) bool {
	var rl *RateLimitError
	return errors.As(err, &rl)
}

// AuthError is a 401/403 refusal that is not quota exhaustion. On
// privilege-gated endpoints an unauthenticated client degrades this to an
// empty result; with a token present it surfaces as a hard error since it
// indicates a genuine permission problem.
type AuthError struct {
	StatusCode int
	Endpoint   string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("github refused %s with status %d (check token scopes)", e.Endpoint, e.StatusCode)
}

// classify converts go-github transport errors into the forge taxonomy.
// go-github already recognizes 403 bodies that carry a rate-limit message
// and returns RateLimitError/AbuseRateLimitError for them, so any
// quota-exhausted response lands in our RateLimitError regardless of which
// operation triggered it.
func classify(endpoint string, err error) error {
	if err == nil {
		return nil
	}

	var rle *github.RateLimitError
	if errors.As(err, &rle) {
		return &RateLimitError{
			ResetTime: rle.Rate.Reset.Time,
			Limit:     rle.Rate.Limit,
			Remaining: rle.Rate.Remaining,
		}
	}

	var abuse *github.AbuseRateLimitError
	if errors.As(err, &abuse) {
		reset := time.Now()
		if abuse.RetryAfter != nil {
			reset = reset.Add(*abuse.RetryAfter)
		}
		return &RateLimitError{ResetTime: reset}
	}

	var ger *github.ErrorResponse
	if errors.As(err, &ger) && ger.Response != nil {
		switch ger.Response.StatusCode {
		case http.StatusNotFound:
			return fmt.Errorf("%s: %w", endpoint, ErrNotFound)
		case http.StatusUnauthorized, http.StatusForbidden:
			return &AuthError{StatusCode: ger.Response.StatusCode, Endpoint: endpoint}
		}
	}

	return fmt.Errorf("%s: %w", endpoint, err)
}

// isTransient reports whether a failed call is worth retrying: 5xx server
// errors only. Rate-limit and auth failures are never transient.
func isTransient(resp *github.Response, err error) bool {
	if err == nil {
		return false
	}
	var rle *github.RateLimitError
	var abuse *github.AbuseRateLimitError
	if errors.As(err, &rle) || errors.As(err, &abuse) {
		return false
	}
	return resp != nil && resp.StatusCode >= http.StatusInternalServerError
}
