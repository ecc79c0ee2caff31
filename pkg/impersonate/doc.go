// Package impersonate implements the admin "view as" flow.
//
// An admin with an active session can open a child session that acts as a
// customer subject. The child records a non-owning reference to the admin
// session's token; chains are exactly one level deep, so an impersonation
// session can never start another one.
//
// Reverting always deactivates the child. If the admin session is still
// valid it is reused with its activity window extended; if it has expired in
// the meantime a fresh session is minted for the admin subject without
// re-authentication - a deliberate tradeoff so an admin is never stranded
// inside an expired impersonation.
//
//	service := impersonate.NewService(sessionService, directoryService)
//
//	child, err := service.Begin(ctx, adminToken, customerID, ip, userAgent)
//	// ... act as the customer using child.Token ...
//	adminSession, err := service.Revert(ctx, child.Token, ip, userAgent)
package impersonate
