package services

import (
	"annuaire/internal/audit"
	"annuaire/internal/auth"
	"annuaire/internal/logger"
	"annuaire/internal/recordstore"
)

// PermissionMatrix stores directory grants: which account may read, write,
// or fully manage another account's directory. Owners always hold full
// access to their own directory without an explicit grant.
type PermissionMatrix struct {
	store    *recordstore.Store
	registry *AccountRegistry
	logger   *logger.Logger
	trail    *audit.Trail
}

// Grant gives grantee the given access level on the session owner's
// directory. An existing grant for the same pair is overwritten. A
// self-grant is accepted but changes nothing: owner access is implicit.
func (m *PermissionMatrix) Grant(sess auth.Session, grantee string, level auth.Level) error {
	if _, err := auth.ParseLevel(string(level)); err != nil {
		return ErrValidation(err.Error())
	}
	if grantee == sess.Username {
		return nil
	}

	found, err := m.registry.Exists(grantee)
	if err != nil {
		return err
	}
	if !found {
		return ErrUnknownAccount
	}

	err = m.store.Update(permissionsSchema, func(rows [][]string) ([][]string, error) {
		for i, row := range rows {
			if row[0] == sess.Username && row[1] == grantee {
				rows[i][2] = string(level)
				return rows, nil
			}
		}
		return append(rows, []string{sess.Username, grantee, string(level)}), nil
	})
	if err != nil {
		return WrapStorageError(err)
	}

	m.logger.Info("Matrix: %q granted %s on their directory to %q", sess.Username, level, grantee)
	m.trail.Record(sess.Username, audit.ActionGrantIssued, grantee, "level="+string(level))
	return nil
}

// Revoke removes the session owner's grant for grantee. Revoking a grant
// that does not exist is a no-op.
func (m *PermissionMatrix) Revoke(sess auth.Session, grantee string) error {
	removed := false
	err := m.store.Update(permissionsSchema, func(rows [][]string) ([][]string, error) {
		kept := rows[:0]
		for _, row := range rows {
			if row[0] == sess.Username && row[1] == grantee {
				removed = true
				continue
			}
			kept = append(kept, row)
		}
		return kept, nil
	})
	if err != nil {
		return WrapStorageError(err)
	}

	if removed {
		m.logger.Info("Matrix: %q revoked %q's access to their directory", sess.Username, grantee)
		m.trail.Record(sess.Username, audit.ActionGrantRevoked, grantee, "")
	}
	return nil
}

// ListGrants returns the grants issued by the session owner.
func (m *PermissionMatrix) ListGrants(sess auth.Session) ([]auth.Grant, error) {
	return m.selectGrants(func(g auth.Grant) bool { return g.Owner == sess.Username })
}

// ListReceived returns the grants where the session owner is the grantee.
func (m *PermissionMatrix) ListReceived(sess auth.Session) ([]auth.Grant, error) {
	return m.selectGrants(func(g auth.Grant) bool { return g.Grantee == sess.Username })
}

// Check reports whether requester holds at least the given level on owner's
// directory. The owner implicitly holds every level on their own directory.
func (m *PermissionMatrix) Check(owner, requester string, level auth.Level) (bool, error) {
	if owner == requester {
		return true, nil
	}

	rows, err := m.store.Load(permissionsSchema)
	if err != nil {
		return false, WrapStorageError(err)
	}
	for _, row := range rows {
		if row[0] != owner || row[1] != requester {
			continue
		}
		held, err := auth.ParseLevel(row[2])
		if err != nil {
			return false, WrapStorageError(err)
		}
		return held.Covers(level), nil
	}
	return false, nil
}

// PurgeAccount removes every grant naming username as grantor or grantee.
// Called by the registry when an account is deleted.
func (m *PermissionMatrix) PurgeAccount(username string) error {
	err := m.store.Update(permissionsSchema, func(rows [][]string) ([][]string, error) {
		kept := rows[:0]
		for _, row := range rows {
			if row[0] == username || row[1] == username {
				continue
			}
			kept = append(kept, row)
		}
		return kept, nil
	})
	if err != nil {
		return WrapStorageError(err)
	}
	return nil
}

func (m *PermissionMatrix) selectGrants(match func(auth.Grant) bool) ([]auth.Grant, error) {
	rows, err := m.store.Load(permissionsSchema)
	if err != nil {
		return nil, WrapStorageError(err)
	}

	grants := make([]auth.Grant, 0, len(rows))
	for _, row := range rows {
		level, err := auth.ParseLevel(row[2])
		if err != nil {
			return nil, WrapStorageError(err)
		}
		grant := auth.Grant{Owner: row[0], Grantee: row[1], Level: level}
		if match(grant) {
			grants = append(grants, grant)
		}
	}
	return grants, nil
}
