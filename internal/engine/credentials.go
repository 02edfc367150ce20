package engine

import (
	"context"
	"encoding/base64"
	"errors"

	"github.com/npezzotti/go-worldstate/internal/database"
	"github.com/npezzotti/go-worldstate/internal/types"
)

const invalidCredentials = "invalid email or password"

type RegisterParams struct {
	LoginId     string
	DisplayName string
	Password    string
}

type LoginParams struct {
	LoginId  string
	Password string
}

// Register creates an account and returns its id.
func (e *Engine) Register(ctx context.Context, c Call, p RegisterParams) (int, error) {
	if err := validateLoginId(p.LoginId); err != nil {
		return 0, err
	}
	if err := validateDisplayName(p.DisplayName); err != nil {
		return 0, err
	}
	if err := validatePassword(p.Password); err != nil {
		return 0, err
	}

	salt, err := generateSalt()
	if err != nil {
		return 0, InternalError(err)
	}
	digest := e.hash(p.Password, salt)

	var account database.Account
	err = e.run(ctx, e.stamp(c), func(u *unit) error {
		if _, err := u.tx.GetAccountByLogin(p.LoginId); err == nil {
			return ConflictError("email already exists")
		} else if !isNoRows(err) {
			return err
		}

		account, err = u.tx.InsertAccount(database.Account{
			LoginId:        p.LoginId,
			DisplayName:    p.DisplayName,
			PasswordDigest: digest,
			PasswordSalt:   base64.StdEncoding.EncodeToString(salt),
			CreatedAt:      u.now,
			LastLogin:      0,
		})
		if errors.Is(err, database.ErrDuplicateKey) {
			return ConflictError("email already exists")
		}
		return err
	})
	if err != nil {
		return 0, err
	}

	e.log.Printf("account registered: %s as %q (id %d)", account.LoginId, account.DisplayName, account.Id)
	return account.Id, nil
}

// Login verifies the password and binds the caller's connection to the
// account. Unknown accounts and wrong passwords fail identically.
func (e *Engine) Login(ctx context.Context, c Call, p LoginParams) (int, error) {
	accountId, err := e.checkPassword(ctx, c, p, func(u *unit, a database.Account) error {
		return e.bindSession(u, c.Credential, a)
	})
	if err != nil {
		return 0, err
	}

	e.log.Printf("account logged in: %s (id %d)", p.LoginId, accountId)
	return accountId, nil
}

// Authenticate verifies the password like Login but binds no session. It
// serves transports that carry identity in their own tokens.
func (e *Engine) Authenticate(ctx context.Context, c Call, p LoginParams) (int, error) {
	accountId, err := e.checkPassword(ctx, c, p, func(u *unit, a database.Account) error {
		a.LastLogin = u.now
		return u.tx.UpdateAccount(a)
	})
	if err != nil {
		return 0, err
	}

	e.log.Printf("account authenticated: %s (id %d)", p.LoginId, accountId)
	return accountId, nil
}

// checkPassword runs then in the unit that confirms the password.
func (e *Engine) checkPassword(ctx context.Context, c Call, p LoginParams, then func(u *unit, a database.Account) error) (int, error) {
	if blank(p.LoginId) || blank(p.Password) {
		return 0, ValidationError("email and password are required")
	}

	// The digest is computed outside the writing unit; the unit re-reads
	// the account and compares against whatever is committed then.
	var salt []byte
	err := e.run(ctx, e.stamp(c), func(u *unit) error {
		a, err := u.tx.GetAccountByLogin(p.LoginId)
		if isNoRows(err) {
			return nil
		}
		if err != nil {
			return err
		}
		salt, err = base64.StdEncoding.DecodeString(a.PasswordSalt)
		return err
	})
	if err != nil {
		return 0, err
	}

	if salt == nil {
		// Spend the same work on unknown accounts.
		if salt, err = generateSalt(); err != nil {
			return 0, InternalError(err)
		}
	}
	digest := e.hash(p.Password, salt)

	var accountId int
	err = e.run(ctx, e.stamp(c), func(u *unit) error {
		a, err := u.tx.GetAccountByLogin(p.LoginId)
		if isNoRows(err) {
			return AuthError(invalidCredentials)
		}
		if err != nil {
			return err
		}
		if !digestsEqual(a.PasswordDigest, digest) {
			return AuthError(invalidCredentials)
		}

		accountId = a.Id
		return then(u, a)
	})
	return accountId, err
}

// BindSession binds the caller's connection to an account whose identity
// was already proven by the transport, such as a signed token presented
// at upgrade time.
func (e *Engine) BindSession(ctx context.Context, c Call, accountId int) error {
	err := e.run(ctx, e.stamp(c), func(u *unit) error {
		a, err := u.tx.GetAccountById(accountId)
		if isNoRows(err) {
			return AuthError("account not found")
		}
		if err != nil {
			return err
		}
		return e.bindSession(u, c.Credential, a)
	})
	if err != nil {
		return err
	}

	e.log.Printf("session bound: account %d", accountId)
	return nil
}

// bindSession points the credential's session at a. A player the
// connection brought into the world under another account goes offline
// first.
func (e *Engine) bindSession(u *unit, credential string, a database.Account) error {
	if blank(credential) {
		return AuthError("connection credential required")
	}

	a.LastLogin = u.now
	if err := u.tx.UpdateAccount(a); err != nil {
		return err
	}

	s, err := u.tx.GetSession(credential)
	if isNoRows(err) {
		s = database.Session{Credential: credential, CreatedAt: u.now}
	} else if err != nil {
		return err
	}

	if s.AccountId != 0 && s.AccountId != a.Id {
		if err := e.takeOffline(u, credential, s.AccountId); err != nil {
			return err
		}
	}

	s.AccountId = a.Id
	s.LastActivity = u.now
	return u.tx.UpsertSession(s)
}

// Logout ends the caller's session. A player this connection brought into
// the world is taken offline in the same unit. Logging out without a
// session is a no-op.
func (e *Engine) Logout(ctx context.Context, c Call) error {
	var accountId int
	err := e.run(ctx, e.stamp(c), func(u *unit) error {
		s, err := u.tx.GetSession(c.Credential)
		if isNoRows(err) {
			return nil
		}
		if err != nil {
			return err
		}

		accountId = s.AccountId
		if err := e.takeOffline(u, c.Credential, s.AccountId); err != nil {
			return err
		}
		return u.tx.DeleteSession(c.Credential)
	})
	if err != nil {
		return err
	}

	if accountId != 0 {
		e.log.Printf("account logged out: %d", accountId)
	}
	return nil
}

// Account returns the public view of an account.
func (e *Engine) Account(ctx context.Context, accountId int) (types.Account, error) {
	var view types.Account
	err := e.run(ctx, e.clock().UnixMicro(), func(u *unit) error {
		a, err := u.tx.GetAccountById(accountId)
		if isNoRows(err) {
			return NotFoundError("account not found")
		}
		if err != nil {
			return err
		}
		view = accountView(a)
		return nil
	})
	return view, err
}
