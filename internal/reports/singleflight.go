package reports

import "context"

func (s *Service) singleflightBuild(ctx context.Context, key string, fn func(context.Context) (Report, error)) (Report, error, bool) {
	// The build is shared by every waiter on key, so one caller going away
	// must not cancel it for the rest.
	buildCtx := context.WithoutCancel(ctx)
	resultChan := s.group.DoChan(key, func() (interface{}, error) {
		return fn(buildCtx)
	})
	select {
	case <-ctx.Done():
		return Report{}, ctx.Err(), false
	case res := <-resultChan:
		if res.Err != nil {
			return Report{}, res.Err, res.Shared
		}
		return res.Val.(Report), nil, res.Shared
	}
}
