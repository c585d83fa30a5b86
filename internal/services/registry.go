package services

import (
	"fmt"

	"annuaire/internal/audit"
	"annuaire/internal/auth"
	"annuaire/internal/constants"
	"annuaire/internal/logger"
	"annuaire/internal/recordstore"
	"annuaire/internal/validation"
)

// AccountRegistry owns the user-account table: provisioning, authentication,
// and the account/directory/grant cascade. Account creation and deletion are
// administrator operations; the first admin comes from InitializeAdmin.
type AccountRegistry struct {
	store  *recordstore.Store
	matrix *PermissionMatrix
	logger *logger.Logger
	trail  *audit.Trail
	hasher auth.Hasher

	minPasswordLength int
}

// ModifyAccountOptions carries the optional fields of ModifyAccount.
// Nil fields are left unchanged.
type ModifyAccountOptions struct {
	NewPassword *string
	NewEmail    *string
	NewRole     *auth.Role
}

// IsEmpty reports whether no account exists yet. The caller must force
// InitializeAdmin before any other operation while this returns true.
func (r *AccountRegistry) IsEmpty() (bool, error) {
	rows, err := r.store.Load(usersSchema)
	if err != nil {
		return false, WrapStorageError(err)
	}
	return len(rows) == 0, nil
}

// InitializeAdmin creates the first administrator account. Fails if any
// account already exists; regular provisioning goes through CreateAccount.
func (r *AccountRegistry) InitializeAdmin(username, password, email string) error {
	empty, err := r.IsEmpty()
	if err != nil {
		return err
	}
	if !empty {
		return ErrAlreadyBootstrapped
	}

	if err := r.insertAccount(username, password, email, auth.RoleAdmin); err != nil {
		return err
	}

	r.logger.Info("Registry: bootstrap admin %q created", username)
	r.trail.Record(username, audit.ActionAdminBootstrap, username, "")
	return nil
}

// CreateAccount provisions a new account and its empty directory table.
// Admin-only. The two-step insert is atomic from the caller's perspective:
// a failed directory creation rolls the account row back.
func (r *AccountRegistry) CreateAccount(sess auth.Session, username, password, email string, role auth.Role) error {
	if !sess.IsAdmin() {
		return ErrAdminOnly
	}
	if _, err := auth.ParseRole(string(role)); err != nil {
		return ErrValidation(err.Error())
	}

	if err := r.insertAccount(username, password, email, role); err != nil {
		return err
	}

	r.logger.Info("Registry: account %q created by %q (role=%s)", username, sess.Username, role)
	r.trail.Record(sess.Username, audit.ActionAccountCreated, username, "role="+string(role))
	return nil
}

// insertAccount validates, hashes, and writes a new account row plus its
// directory table. Shared by CreateAccount and InitializeAdmin.
func (r *AccountRegistry) insertAccount(username, password, email string, role auth.Role) error {
	if err := validation.Username(username); err != nil {
		return ErrValidation(err.Error())
	}
	if err := validation.Password(password, r.minPasswordLength); err != nil {
		return ErrValidation(err.Error())
	}
	if err := validation.Email(email); err != nil {
		return ErrValidation(err.Error())
	}

	digest, err := r.hasher.Hash(password)
	if err != nil {
		return WrapServiceError(constants.ErrCodeInternalError, "failed to hash password", err)
	}

	account := auth.Account{
		Username:       username,
		PasswordDigest: digest,
		Role:           role,
		Email:          email,
	}

	err = r.store.Update(usersSchema, func(rows [][]string) ([][]string, error) {
		for _, row := range rows {
			if row[0] == username {
				return nil, ErrDuplicateUsername
			}
			if row[3] == email {
				return nil, ErrDuplicateEmail
			}
		}
		return append(rows, accountToRow(account)), nil
	})
	if err != nil {
		if _, ok := IsServiceError(err); ok {
			return err
		}
		return WrapStorageError(err)
	}

	// Second step of the create transaction: the empty directory table.
	if err := r.store.Create(directorySchema(username)); err != nil {
		r.logger.Error("Registry: directory creation for %q failed, rolling back account row: %v", username, err)
		if rbErr := r.removeAccountRow(username); rbErr != nil {
			return WrapServiceError(constants.ErrCodeStorageError,
				fmt.Sprintf("directory creation failed and account rollback failed (%v)", rbErr), err)
		}
		return WrapStorageError(err)
	}

	return nil
}

// Authenticate verifies credentials and returns a session for the account.
// Before the first administrator exists, authentication is impossible and
// reported as such.
func (r *AccountRegistry) Authenticate(username, password string) (auth.Session, error) {
	rows, err := r.store.Load(usersSchema)
	if err != nil {
		return auth.Session{}, WrapStorageError(err)
	}
	if len(rows) == 0 {
		return auth.Session{}, ErrNotBootstrapped
	}

	account, found, err := r.findAccount(rows, username)
	if err != nil {
		return auth.Session{}, err
	}
	if !found {
		r.logger.Debug("Registry: authentication for unknown user %q", username)
		return auth.Session{}, ErrAccountNotFound
	}

	if err := r.hasher.Verify(password, account.PasswordDigest); err != nil {
		r.logger.Info("Registry: invalid password for user %q", username)
		return auth.Session{}, ErrInvalidCredential
	}

	r.logger.Info("Registry: user %q authenticated (role=%s)", username, account.Role)
	return auth.Session{Username: account.Username, Role: account.Role}, nil
}

// DeleteAccount removes an account, its directory table, and every grant
// naming it as grantor or grantee. Admin-only; admins cannot delete
// themselves (the system must keep at least the acting admin).
func (r *AccountRegistry) DeleteAccount(sess auth.Session, username string) error {
	if !sess.IsAdmin() {
		return ErrAdminOnly
	}
	if sess.Username == username {
		return ErrSelfDelete
	}

	_, found, err := r.getAccount(username)
	if err != nil {
		return err
	}
	if !found {
		return ErrAccountNotFound
	}

	if err := r.removeAccountRow(username); err != nil {
		return err
	}

	// Cascade. Failures here leave no orphaned account row (already removed),
	// but must be reported clearly as a partial cascade.
	if err := r.store.Drop(directorySchema(username)); err != nil {
		return WrapServiceError(constants.ErrCodeStorageError,
			fmt.Sprintf("account %q removed but directory cleanup failed", username), err)
	}
	if err := r.matrix.PurgeAccount(username); err != nil {
		return WrapServiceError(constants.ErrCodeStorageError,
			fmt.Sprintf("account %q removed but grant cleanup failed", username), err)
	}

	r.logger.Info("Registry: account %q deleted by %q", username, sess.Username)
	r.trail.Record(sess.Username, audit.ActionAccountDeleted, username, "")
	return nil
}

// ModifyAccount updates password, email, or role of an account. Admin-only.
func (r *AccountRegistry) ModifyAccount(sess auth.Session, username string, opts ModifyAccountOptions) error {
	if !sess.IsAdmin() {
		return ErrAdminOnly
	}
	if opts.NewPassword == nil && opts.NewEmail == nil && opts.NewRole == nil {
		return ErrValidation("no modification specified")
	}

	var digest string
	if opts.NewPassword != nil {
		if err := validation.Password(*opts.NewPassword, r.minPasswordLength); err != nil {
			return ErrValidation(err.Error())
		}
		var err error
		digest, err = r.hasher.Hash(*opts.NewPassword)
		if err != nil {
			return WrapServiceError(constants.ErrCodeInternalError, "failed to hash password", err)
		}
	}
	if opts.NewEmail != nil {
		if err := validation.Email(*opts.NewEmail); err != nil {
			return ErrValidation(err.Error())
		}
	}
	if opts.NewRole != nil {
		if _, err := auth.ParseRole(string(*opts.NewRole)); err != nil {
			return ErrValidation(err.Error())
		}
	}

	err := r.store.Update(usersSchema, func(rows [][]string) ([][]string, error) {
		idx := -1
		for i, row := range rows {
			if row[0] == username {
				idx = i
			} else if opts.NewEmail != nil && row[3] == *opts.NewEmail {
				return nil, ErrDuplicateEmail
			}
		}
		if idx == -1 {
			return nil, ErrAccountNotFound
		}

		if opts.NewPassword != nil {
			rows[idx][1] = digest
		}
		if opts.NewRole != nil {
			rows[idx][2] = string(*opts.NewRole)
		}
		if opts.NewEmail != nil {
			rows[idx][3] = *opts.NewEmail
		}
		return rows, nil
	})
	if err != nil {
		if _, ok := IsServiceError(err); ok {
			return err
		}
		return WrapStorageError(err)
	}

	r.logger.Info("Registry: account %q modified by %q", username, sess.Username)
	r.trail.Record(sess.Username, audit.ActionAccountModified, username, modifySummary(opts))
	return nil
}

// ChangePassword lets any session change its own password.
func (r *AccountRegistry) ChangePassword(sess auth.Session, newPassword string) error {
	if err := validation.Password(newPassword, r.minPasswordLength); err != nil {
		return ErrValidation(err.Error())
	}

	digest, err := r.hasher.Hash(newPassword)
	if err != nil {
		return WrapServiceError(constants.ErrCodeInternalError, "failed to hash password", err)
	}

	err = r.store.Update(usersSchema, func(rows [][]string) ([][]string, error) {
		for i, row := range rows {
			if row[0] == sess.Username {
				rows[i][1] = digest
				return rows, nil
			}
		}
		return nil, ErrAccountNotFound
	})
	if err != nil {
		if _, ok := IsServiceError(err); ok {
			return err
		}
		return WrapStorageError(err)
	}

	r.logger.Info("Registry: user %q changed their password", sess.Username)
	r.trail.Record(sess.Username, audit.ActionAccountModified, sess.Username, "password")
	return nil
}

// ListAccounts returns all accounts without their digests. Admin-only.
func (r *AccountRegistry) ListAccounts(sess auth.Session) ([]auth.Account, error) {
	if !sess.IsAdmin() {
		return nil, ErrAdminOnly
	}

	rows, err := r.store.Load(usersSchema)
	if err != nil {
		return nil, WrapStorageError(err)
	}

	accounts := make([]auth.Account, 0, len(rows))
	for _, row := range rows {
		account, err := accountFromRow(row)
		if err != nil {
			return nil, WrapStorageError(err)
		}
		account.PasswordDigest = ""
		accounts = append(accounts, account)
	}
	return accounts, nil
}

// Count returns the number of registered accounts.
func (r *AccountRegistry) Count() (int, error) {
	rows, err := r.store.Load(usersSchema)
	if err != nil {
		return 0, WrapStorageError(err)
	}
	return len(rows), nil
}

// Exists reports whether an account with this username is registered.
func (r *AccountRegistry) Exists(username string) (bool, error) {
	_, found, err := r.getAccount(username)
	return found, err
}

// getAccount looks one account up by username.
func (r *AccountRegistry) getAccount(username string) (auth.Account, bool, error) {
	rows, err := r.store.Load(usersSchema)
	if err != nil {
		return auth.Account{}, false, WrapStorageError(err)
	}
	return r.findAccount(rows, username)
}

func (r *AccountRegistry) findAccount(rows [][]string, username string) (auth.Account, bool, error) {
	for _, row := range rows {
		if row[0] == username {
			account, err := accountFromRow(row)
			if err != nil {
				return auth.Account{}, false, WrapStorageError(err)
			}
			return account, true, nil
		}
	}
	return auth.Account{}, false, nil
}

// removeAccountRow deletes the users-table row for username.
func (r *AccountRegistry) removeAccountRow(username string) error {
	err := r.store.Update(usersSchema, func(rows [][]string) ([][]string, error) {
		kept := rows[:0]
		for _, row := range rows {
			if row[0] != username {
				kept = append(kept, row)
			}
		}
		return kept, nil
	})
	if err != nil {
		return WrapStorageError(err)
	}
	return nil
}

func accountToRow(a auth.Account) []string {
	return []string{a.Username, a.PasswordDigest, string(a.Role), a.Email}
}

func accountFromRow(row []string) (auth.Account, error) {
	role, err := auth.ParseRole(row[2])
	if err != nil {
		return auth.Account{}, fmt.Errorf("account %q: %w", row[0], err)
	}
	return auth.Account{
		Username:       row[0],
		PasswordDigest: row[1],
		Role:           role,
		Email:          row[3],
	}, nil
}

func modifySummary(opts ModifyAccountOptions) string {
	summary := ""
	if opts.NewPassword != nil {
		summary += "password,"
	}
	if opts.NewEmail != nil {
		summary += "email,"
	}
	if opts.NewRole != nil {
		summary += "role,"
	}
	if summary != "" {
		summary = summary[:len(summary)-1]
	}
	return summary
}
