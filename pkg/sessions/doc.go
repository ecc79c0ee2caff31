// Package sessions provides server-side session lifecycle management for the
// SkyCost platform.
//
// A session binds an opaque, cryptographically random token to a subject and
// carries two expiry clocks: an absolute deadline and an idle window measured
// from the last recorded activity. Sessions move from active to inactive
// exactly once - by logout, lazy expiry during validation, an administrative
// invalidate-all, a reaper sweep, or as a side effect of reverting an
// impersonation - and never back.
//
// # Basic Usage
//
//	repo := sessions.NewPostgresRepository(pool)
//	service := sessions.NewService(repo, 15*time.Minute)
//
//	// Login (after credentials are verified elsewhere)
//	session, err := service.CreateSession(ctx, subjectID, ip, userAgent)
//
//	// Per request
//	subjectID, err := service.Validate(ctx, token)
//	if err != nil {
//		// errors.Is(err, sessions.ErrSessionInvalid)
//	}
//	service.Touch(ctx, token) // explicit activity extension
//
//	// Logout
//	err = service.Invalidate(ctx, token)
//
// Validate never extends the activity window by itself; transports that want
// sliding expiry call Touch on each authenticated request.
//
// # Background cleanup
//
//	reaper := sessions.NewReaper(service, time.Hour)
//	reaper.Start(ctx)
//	defer reaper.Stop()
//
// # Related Packages
//
//   - pkg/impersonate - admin "view as" session chains built on this package
//   - pkg/auth - login flow and HTTP bearer-token middleware
package sessions
