package impersonate

import "errors"

// Common errors
var (
	// ErrInvalidAdminSession is returned when the initiating token does not
	// resolve to an active admin session.
	ErrInvalidAdminSession = errors.New("admin session is no longer valid")

	// ErrNotAdmin is returned when the initiating subject is not an admin.
	ErrNotAdmin = errors.New("only admin subjects can impersonate other subjects")

	// ErrNestedImpersonation is returned when an impersonation session
	// tries to start another impersonation. Chains are one level deep.
	ErrNestedImpersonation = errors.New("nested impersonation not allowed")

	// ErrTargetNotCustomer is returned when the target subject is not a
	// customer.
	ErrTargetNotCustomer = errors.New("can only impersonate customer-role subjects")

	// ErrSelfImpersonation is returned when an admin targets themselves.
	ErrSelfImpersonation = errors.New("cannot impersonate self")

	// ErrNotImpersonation is returned when revert is called with a token
	// that is not an impersonation session.
	ErrNotImpersonation = errors.New("not an impersonation session")
)
