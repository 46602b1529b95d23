package rbac

import (
	"github.com/flockwatch/flockwatch/internal/observability"
	"github.com/flockwatch/flockwatch/internal/scope"
	"github.com/flockwatch/flockwatch/internal/shared"
)

// Restrict filters records down to the principal's scope and counts the decision.
func Restrict[T scope.Scoped](p *shared.Principal, records []T) []T {
	auth := p.Auth()
	observability.RecordScopeDecision("list", outcome(scope.Decide(auth)))
	return scope.Restrict(records, auth)
}

// Permits reports whether a single record is visible to the principal.
func Permits(p *shared.Principal, rec scope.Scoped) bool {
	auth := p.Auth()
	ok := scope.Permits(rec, auth)
	switch {
	case !ok:
		observability.RecordScopeDecision("single", observability.ScopeDenied)
	default:
		observability.RecordScopeDecision("single", outcome(scope.Decide(auth)))
	}
	return ok
}

func outcome(d scope.Decision) string {
	switch d {
	case scope.DecisionAll:
		return observability.ScopeAll
	case scope.DecisionDeny:
		return observability.ScopeDenied
	default:
		return observability.ScopeFiltered
	}
}
