package tokenguard

// accountStatusToError maps an account status to its login-gate error.
// Approved and active accounts pass; anything else fails closed with a
// specific, user-facing reason. Status failures are not credential
// failures: they record an attempt row but never feed the lockout counter.
func accountStatusToError(status AccountStatus) error {
	switch status {
	case AccountApproved, AccountActive:
		return nil
	case AccountPending:
		return ErrAccountPending
	case AccountRejected:
		return ErrAccountRejected
	case AccountSuspended:
		return ErrAccountSuspended
	default:
		return ErrAccountSuspended
	}
}
