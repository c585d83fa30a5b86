package services

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"annuaire/internal/audit"
	"annuaire/internal/auth"
	"annuaire/internal/constants"
	"annuaire/internal/logger"
	"annuaire/internal/recordstore"
	"annuaire/internal/validation"
)

// Contact is one row of a directory table. Nom, Prenom, and Email are
// mandatory; Telephone and Adresse may be empty.
type Contact struct {
	Nom       string
	Prenom    string
	Telephone string
	Adresse   string
	Email     string
}

// Selector identifies contacts by exact field equality. Empty fields are
// ignored; at least one must be set. It may match several contacts.
type Selector struct {
	Nom    string
	Prenom string
	Email  string
}

// ContactUpdate carries the fields of UpdateContact. Nil fields are left
// unchanged on the matched contacts.
type ContactUpdate struct {
	Nom       *string
	Prenom    *string
	Telephone *string
	Adresse   *string
	Email     *string
}

// DirectoryService manages per-account contact tables. Every operation
// names the directory owner and checks the session against the permission
// matrix: read level for queries and exports, write level for mutations.
type DirectoryService struct {
	store    *recordstore.Store
	registry *AccountRegistry
	matrix   *PermissionMatrix
	logger   *logger.Logger
	trail    *audit.Trail
}

// AddContact appends a contact to owner's directory.
func (d *DirectoryService) AddContact(sess auth.Session, owner string, contact Contact) error {
	if err := d.authorize(sess, owner, auth.LevelWrite); err != nil {
		return err
	}
	if err := validateContact(contact); err != nil {
		return err
	}

	if err := d.store.Append(directorySchema(owner), contactToRow(contact)); err != nil {
		return WrapStorageError(err)
	}

	d.logger.Info("Directory: %q added a contact to %q's directory", sess.Username, owner)
	d.trail.Record(sess.Username, audit.ActionContactAdded, owner, contact.Nom+" "+contact.Prenom)
	return nil
}

// SearchContacts returns the contacts of owner's directory whose nom,
// prenom, or email contains query, case-insensitively, in storage order.
func (d *DirectoryService) SearchContacts(sess auth.Session, owner, query string) ([]Contact, error) {
	contacts, err := d.ListContacts(sess, owner)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(query)
	matches := make([]Contact, 0, len(contacts))
	for _, c := range contacts {
		if strings.Contains(strings.ToLower(c.Nom), needle) ||
			strings.Contains(strings.ToLower(c.Prenom), needle) ||
			strings.Contains(strings.ToLower(c.Email), needle) {
			matches = append(matches, c)
		}
	}
	return matches, nil
}

// ListContacts returns every contact of owner's directory in storage order.
func (d *DirectoryService) ListContacts(sess auth.Session, owner string) ([]Contact, error) {
	if err := d.authorize(sess, owner, auth.LevelRead); err != nil {
		return nil, err
	}

	rows, err := d.store.Load(directorySchema(owner))
	if err != nil {
		return nil, WrapStorageError(err)
	}

	contacts := make([]Contact, 0, len(rows))
	for _, row := range rows {
		contacts = append(contacts, contactFromRow(row))
	}
	return contacts, nil
}

// UpdateContact merges fields into every contact matching selector and
// re-validates the results. Zero matches is NOT_FOUND.
func (d *DirectoryService) UpdateContact(sess auth.Session, owner string, selector Selector, fields ContactUpdate) (int, error) {
	if err := d.authorize(sess, owner, auth.LevelWrite); err != nil {
		return 0, err
	}
	if selector.isEmpty() {
		return 0, ErrValidation("selector must set at least one of nom, prenom, email")
	}
	if fields.isEmpty() {
		return 0, ErrValidation("no field to update")
	}

	updated := 0
	err := d.store.Update(directorySchema(owner), func(rows [][]string) ([][]string, error) {
		updated = 0
		for i, row := range rows {
			contact := contactFromRow(row)
			if !selector.matches(contact) {
				continue
			}
			merged := fields.applyTo(contact)
			if err := validateContact(merged); err != nil {
				return nil, err
			}
			rows[i] = contactToRow(merged)
			updated++
		}
		if updated == 0 {
			return nil, ErrContactNotFound
		}
		return rows, nil
	})
	if err != nil {
		if _, ok := IsServiceError(err); ok {
			return 0, err
		}
		return 0, WrapStorageError(err)
	}

	d.logger.Info("Directory: %q updated %d contact(s) in %q's directory", sess.Username, updated, owner)
	d.trail.Record(sess.Username, audit.ActionContactUpdated, owner, fmt.Sprintf("%d contact(s)", updated))
	return updated, nil
}

// DeleteContact removes every contact matching selector. Zero matches is
// NOT_FOUND.
func (d *DirectoryService) DeleteContact(sess auth.Session, owner string, selector Selector) (int, error) {
	if err := d.authorize(sess, owner, auth.LevelWrite); err != nil {
		return 0, err
	}
	if selector.isEmpty() {
		return 0, ErrValidation("selector must set at least one of nom, prenom, email")
	}

	deleted := 0
	err := d.store.Update(directorySchema(owner), func(rows [][]string) ([][]string, error) {
		kept := rows[:0]
		for _, row := range rows {
			if selector.matches(contactFromRow(row)) {
				deleted++
				continue
			}
			kept = append(kept, row)
		}
		if deleted == 0 {
			return nil, ErrContactNotFound
		}
		return kept, nil
	})
	if err != nil {
		if _, ok := IsServiceError(err); ok {
			return 0, err
		}
		return 0, WrapStorageError(err)
	}

	d.logger.Info("Directory: %q deleted %d contact(s) from %q's directory", sess.Username, deleted, owner)
	d.trail.Record(sess.Username, audit.ActionContactDeleted, owner, fmt.Sprintf("%d contact(s)", deleted))
	return deleted, nil
}

// ExportCSV writes owner's full directory to destPath, header included.
// The destination is written atomically through a temp file.
func (d *DirectoryService) ExportCSV(sess auth.Session, owner, destPath string) (int, error) {
	if err := d.authorize(sess, owner, auth.LevelRead); err != nil {
		return 0, err
	}

	rows, err := d.store.Load(directorySchema(owner))
	if err != nil {
		return 0, WrapStorageError(err)
	}

	if err := writeCSVAtomic(destPath, contactColumns, rows); err != nil {
		return 0, WrapServiceError(constants.ErrCodeStorageError,
			fmt.Sprintf("failed to export directory to %s", destPath), err)
	}

	d.logger.Info("Directory: %q exported %d contact(s) of %q to %s", sess.Username, len(rows), owner, destPath)
	d.trail.Record(sess.Username, audit.ActionDirectoryExport, owner, fmt.Sprintf("%d contact(s)", len(rows)))
	return len(rows), nil
}

// ImportCSV appends the contacts of srcPath to owner's directory. The
// header is matched by column name, case-insensitively, in any order;
// unknown or missing columns fail the import. Every row is validated
// before anything is persisted: one bad row and nothing is appended.
func (d *DirectoryService) ImportCSV(sess auth.Session, owner, srcPath string) (int, error) {
	if err := d.authorize(sess, owner, auth.LevelWrite); err != nil {
		return 0, err
	}

	file, err := os.Open(srcPath)
	if err != nil {
		return 0, WrapServiceError(constants.ErrCodeStorageError,
			fmt.Sprintf("failed to open %s", srcPath), err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	records, err := reader.ReadAll()
	if err != nil {
		return 0, ErrFormat(fmt.Sprintf("malformed CSV in %s: %v", srcPath, err))
	}
	if len(records) == 0 {
		return 0, ErrFormat("file is empty: missing header row")
	}

	order, err := resolveImportHeader(records[0])
	if err != nil {
		return 0, err
	}

	imported := make([][]string, 0, len(records)-1)
	for i, record := range records[1:] {
		row := make([]string, len(contactColumns))
		for dst, src := range order {
			row[dst] = record[src]
		}
		if err := validateContact(contactFromRow(row)); err != nil {
			reason := err.Error()
			if svcErr, ok := err.(*ServiceError); ok {
				reason = svcErr.Message
			}
			return 0, ErrValidationAtRow(i+1, reason)
		}
		imported = append(imported, row)
	}

	err = d.store.Update(directorySchema(owner), func(rows [][]string) ([][]string, error) {
		return append(rows, imported...), nil
	})
	if err != nil {
		return 0, WrapStorageError(err)
	}

	d.logger.Info("Directory: %q imported %d contact(s) into %q's directory from %s",
		sess.Username, len(imported), owner, srcPath)
	d.trail.Record(sess.Username, audit.ActionDirectoryImport, owner, fmt.Sprintf("%d contact(s)", len(imported)))
	return len(imported), nil
}

// authorize verifies that owner exists and that the session holds at least
// the given level on owner's directory.
func (d *DirectoryService) authorize(sess auth.Session, owner string, level auth.Level) error {
	found, err := d.registry.Exists(owner)
	if err != nil {
		return err
	}
	if !found {
		return ErrAccountNotFound
	}

	allowed, err := d.matrix.Check(owner, sess.Username, level)
	if err != nil {
		return err
	}
	if !allowed {
		d.logger.Warn("Directory: %q denied %s access to %q's directory", sess.Username, level, owner)
		return ErrPermissionDenied
	}
	return nil
}

// resolveImportHeader maps each directory column index to its position in
// the import file's header.
func resolveImportHeader(header []string) ([]int, error) {
	positions := make(map[string]int, len(header))
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(name))
		if _, dup := positions[key]; dup {
			return nil, ErrFormat(fmt.Sprintf("duplicate column %q in header", key))
		}
		positions[key] = i
	}

	known := make(map[string]bool, len(contactColumns))
	order := make([]int, len(contactColumns))
	for dst, name := range contactColumns {
		known[name] = true
		src, ok := positions[name]
		if !ok {
			return nil, ErrFormat(fmt.Sprintf("missing column %q in header", name))
		}
		order[dst] = src
	}
	for key := range positions {
		if !known[key] {
			return nil, ErrFormat(fmt.Sprintf("unknown column %q in header", key))
		}
	}
	return order, nil
}

// writeCSVAtomic writes header+rows to a temp file next to path, then
// renames it into place.
func writeCSVAtomic(path string, header []string, rows [][]string) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	writer := csv.NewWriter(tmp)
	if err := writer.Write(header); err != nil {
		tmp.Close()
		return err
	}
	if err := writer.WriteAll(rows); err != nil {
		tmp.Close()
		return err
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpPath, constants.FilePermissions); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}

func validateContact(c Contact) error {
	if err := validation.PersonName("nom", c.Nom); err != nil {
		return ErrValidation(err.Error())
	}
	if err := validation.PersonName("prenom", c.Prenom); err != nil {
		return ErrValidation(err.Error())
	}
	if err := validation.Email(c.Email); err != nil {
		return ErrValidation(err.Error())
	}
	if err := validation.Phone(c.Telephone); err != nil {
		return ErrValidation(err.Error())
	}
	if err := validation.Address(c.Adresse); err != nil {
		return ErrValidation(err.Error())
	}
	return nil
}

func contactToRow(c Contact) []string {
	return []string{c.Nom, c.Prenom, c.Telephone, c.Adresse, c.Email}
}

func contactFromRow(row []string) Contact {
	return Contact{
		Nom:       row[0],
		Prenom:    row[1],
		Telephone: row[2],
		Adresse:   row[3],
		Email:     row[4],
	}
}

func (s Selector) isEmpty() bool {
	return s.Nom == "" && s.Prenom == "" && s.Email == ""
}

func (s Selector) matches(c Contact) bool {
	if s.Nom != "" && s.Nom != c.Nom {
		return false
	}
	if s.Prenom != "" && s.Prenom != c.Prenom {
		return false
	}
	if s.Email != "" && s.Email != c.Email {
		return false
	}
	return true
}

func (u ContactUpdate) isEmpty() bool {
	return u.Nom == nil && u.Prenom == nil && u.Telephone == nil && u.Adresse == nil && u.Email == nil
}

func (u ContactUpdate) applyTo(c Contact) Contact {
	if u.Nom != nil {
		c.Nom = *u.Nom
	}
	if u.Prenom != nil {
		c.Prenom = *u.Prenom
	}
	if u.Telephone != nil {
		c.Telephone = *u.Telephone
	}
	if u.Adresse != nil {
		c.Adresse = *u.Adresse
	}
	if u.Email != nil {
		c.Email = *u.Email
	}
	return c
}
