package observability

import (
	"context"
	"time"

	"github.com/getsentry/sentry-go"
)

// InitSentry configures the Sentry client. An empty DSN disables reporting
// and returns a no-op flush.
func InitSentry(dsn, env, release string) (func(), error) {
	if dsn == "" {
		return func() {}, nil
	}
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: env,
		Release:     release,
	}); err != nil {
		return func() {}, err
	}
	return func() { sentry.Flush(2 * time.Second) }, nil
}

// CaptureErr reports an unexpected error. Request scoped hubs are preferred
// when present.
func CaptureErr(ctx context.Context, err error) {
	if err == nil {
		return
	}
	if ctx != nil {
		if hub := sentry.GetHubFromContext(ctx); hub != nil {
			hub.CaptureException(err)
			return
		}
	}
	sentry.CaptureException(err)
}
