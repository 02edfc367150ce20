package engine

import "context"

// RequireAuthenticated resolves the caller's session, touches its activity
// time and returns the bound account id.
func (e *Engine) RequireAuthenticated(ctx context.Context, c Call) (int, error) {
	var accountId int
	err := e.run(ctx, e.stamp(c), func(u *unit) error {
		var err error
		accountId, err = u.requireAuthenticated(c.Credential)
		return err
	})
	return accountId, err
}

// IsAuthenticated reports whether the caller has a session. It writes
// nothing.
func (e *Engine) IsAuthenticated(ctx context.Context, c Call) (bool, error) {
	var ok bool
	err := e.run(ctx, e.stamp(c), func(u *unit) error {
		_, err := u.tx.GetSession(c.Credential)
		if isNoRows(err) {
			return nil
		}
		if err != nil {
			return err
		}
		ok = true
		return nil
	})
	return ok, err
}

func (u *unit) requireAuthenticated(credential string) (int, error) {
	s, err := u.tx.GetSession(credential)
	if isNoRows(err) {
		return 0, AuthError("authentication required")
	}
	if err != nil {
		return 0, err
	}

	s.LastActivity = u.now
	if err := u.tx.UpsertSession(s); err != nil {
		return 0, err
	}
	return s.AccountId, nil
}
