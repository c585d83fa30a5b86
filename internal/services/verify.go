package services

import (
	"os"
	"path/filepath"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"annuaire/internal/auth"
	"annuaire/internal/constants"
	"annuaire/internal/logger"
	"annuaire/internal/recordstore"
)

// Verification statuses per table.
const (
	IntegrityOK       = "ok"
	IntegrityModified = "modified"
	IntegrityMissing  = "missing"
	IntegrityNew      = "new"
)

// Manifest records the fingerprint of every table at a point in time.
type Manifest struct {
	GeneratedAt string            `yaml:"generated_at"`
	Tables      map[string]string `yaml:"tables"`
}

// TableStatus is the verification outcome for a single table.
type TableStatus struct {
	Table  string
	Status string
}

// IntegrityService detects out-of-band modification of the table files by
// comparing BLAKE3 fingerprints against a recorded manifest. Flat files
// have no transaction log, so this is the operator's tamper check.
type IntegrityService struct {
	store    *recordstore.Store
	registry *AccountRegistry
	logger   *logger.Logger
}

// WriteManifest fingerprints every table and writes the manifest file.
// Admin-only.
func (v *IntegrityService) WriteManifest(sess auth.Session) error {
	if !sess.IsAdmin() {
		return ErrAdminOnly
	}

	schemas, err := v.allSchemas()
	if err != nil {
		return err
	}

	manifest := Manifest{
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Tables:      make(map[string]string, len(schemas)),
	}
	for _, schema := range schemas {
		sum, err := v.store.Fingerprint(schema)
		if err != nil {
			return WrapStorageError(err)
		}
		if sum == "" {
			continue
		}
		manifest.Tables[schema.Filename()] = sum
	}

	data, err := yaml.Marshal(manifest)
	if err != nil {
		return WrapServiceError(constants.ErrCodeInternalError, "failed to encode manifest", err)
	}

	path := v.manifestPath()
	if err := os.MkdirAll(filepath.Dir(path), constants.DirPermissions); err != nil {
		return WrapServiceError(constants.ErrCodeStorageError, "failed to create internal directory", err)
	}
	if err := os.WriteFile(path, data, constants.FilePermissions); err != nil {
		return WrapServiceError(constants.ErrCodeStorageError, "failed to write manifest", err)
	}

	v.logger.Info("Integrity: manifest written by %q covering %d table(s)", sess.Username, len(manifest.Tables))
	return nil
}

// Verify recomputes every fingerprint and compares it against the manifest.
// Results are sorted by table name. Admin-only.
func (v *IntegrityService) Verify(sess auth.Session) ([]TableStatus, error) {
	if !sess.IsAdmin() {
		return nil, ErrAdminOnly
	}

	data, err := os.ReadFile(v.manifestPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, NewServiceError(constants.ErrCodeNotFound, "no manifest recorded yet")
		}
		return nil, WrapServiceError(constants.ErrCodeStorageError, "failed to read manifest", err)
	}

	var manifest Manifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, WrapServiceError(constants.ErrCodeFormatError, "malformed manifest", err)
	}

	schemas, err := v.allSchemas()
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(schemas))
	statuses := make([]TableStatus, 0, len(schemas))
	for _, schema := range schemas {
		name := schema.Filename()
		seen[name] = true

		sum, err := v.store.Fingerprint(schema)
		if err != nil {
			return nil, WrapStorageError(err)
		}

		recorded, known := manifest.Tables[name]
		switch {
		case sum == "" && known:
			statuses = append(statuses, TableStatus{Table: name, Status: IntegrityMissing})
		case sum == "" && !known:
			// Table neither on disk nor in the manifest: nothing to report.
		case !known:
			statuses = append(statuses, TableStatus{Table: name, Status: IntegrityNew})
		case sum != recorded:
			statuses = append(statuses, TableStatus{Table: name, Status: IntegrityModified})
		default:
			statuses = append(statuses, TableStatus{Table: name, Status: IntegrityOK})
		}
	}

	// Tables recorded in the manifest whose account has since disappeared.
	for name := range manifest.Tables {
		if !seen[name] {
			statuses = append(statuses, TableStatus{Table: name, Status: IntegrityMissing})
		}
	}

	sort.Slice(statuses, func(i, j int) bool { return statuses[i].Table < statuses[j].Table })

	for _, st := range statuses {
		if st.Status != IntegrityOK {
			v.logger.Warn("Integrity: table %s is %s", st.Table, st.Status)
		}
	}
	return statuses, nil
}

// allSchemas lists the fixed tables plus one directory table per account.
// The audit trail is excluded: it appends on every operation, so its
// fingerprint is never stable.
func (v *IntegrityService) allSchemas() ([]recordstore.Schema, error) {
	rows, err := v.store.Load(usersSchema)
	if err != nil {
		return nil, WrapStorageError(err)
	}

	schemas := []recordstore.Schema{usersSchema, permissionsSchema}
	for _, row := range rows {
		schemas = append(schemas, directorySchema(row[0]))
	}
	return schemas, nil
}

func (v *IntegrityService) manifestPath() string {
	return filepath.Join(v.store.DataDir(), constants.InternalDir, constants.ManifestFile)
}
