// Package services provides the business logic layer for annuaire.
// Services orchestrate operations across the record store, validation, and
// audit packages. Front-ends should delegate to services for all business
// logic and thread an auth.Session through every call.
package services

import (
	"annuaire/internal/audit"
	"annuaire/internal/auth"
	"annuaire/internal/config"
	"annuaire/internal/constants"
	"annuaire/internal/logger"
	"annuaire/internal/recordstore"
)

// Services holds all service instances for the application.
// It acts as a service container that is initialized once at startup.
type Services struct {
	store  *recordstore.Store
	logger *logger.Logger
	trail  *audit.Trail

	Registry  *AccountRegistry
	Matrix    *PermissionMatrix
	Directory *DirectoryService
	Integrity *IntegrityService
}

// NewServices creates a new service container with all services initialized.
func NewServices(store *recordstore.Store, log *logger.Logger, cfg *config.Config) *Services {
	trail := audit.NewTrail(store, log, cfg.Audit.MaxRows)

	registry := &AccountRegistry{
		store:             store,
		logger:            log,
		trail:             trail,
		hasher:            auth.NewBcryptHasher(cfg.Auth.BcryptCost),
		minPasswordLength: cfg.Auth.MinPasswordLength,
	}
	matrix := &PermissionMatrix{
		store:    store,
		registry: registry,
		logger:   log,
		trail:    trail,
	}
	registry.matrix = matrix

	return &Services{
		store:  store,
		logger: log,
		trail:  trail,

		Registry: registry,
		Matrix:   matrix,
		Directory: &DirectoryService{
			store:    store,
			registry: registry,
			matrix:   matrix,
			logger:   log,
			trail:    trail,
		},
		Integrity: &IntegrityService{
			store:    store,
			registry: registry,
			logger:   log,
		},
	}
}

// EnsureTables creates the fixed tables if they do not exist yet. Called
// once at startup; directory tables are created per account.
func (s *Services) EnsureTables() error {
	for _, schema := range []recordstore.Schema{usersSchema, permissionsSchema, audit.Schema} {
		if err := s.store.Create(schema); err != nil {
			return WrapStorageError(err)
		}
	}
	return nil
}

// RecentAudit returns the newest audit entries, most recent first.
// Admin-only.
func (s *Services) RecentAudit(sess auth.Session, limit int) ([]audit.Entry, error) {
	if !sess.IsAdmin() {
		return nil, ErrAdminOnly
	}
	if limit <= 0 {
		limit = constants.AuditDefaultRecentLimit
	}
	return s.trail.Recent(limit)
}
