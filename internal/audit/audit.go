// Package audit records an append-only trail of every mutating operation in a
// flat CSV table. Audit failures are reported to the caller's logger but never
// fail the operation that triggered them.
package audit

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"annuaire/internal/constants"
	"annuaire/internal/logger"
	"annuaire/internal/recordstore"
)

// Audit actions
const (
	ActionAccountCreated  = "account_created"
	ActionAccountModified = "account_modified"
	ActionAccountDeleted  = "account_deleted"
	ActionAdminBootstrap  = "admin_bootstrap"
	ActionGrantIssued     = "grant_issued"
	ActionGrantRevoked    = "grant_revoked"
	ActionContactAdded    = "contact_added"
	ActionContactUpdated  = "contact_updated"
	ActionContactDeleted  = "contact_deleted"
	ActionDirectoryImport = "directory_import"
	ActionDirectoryExport = "directory_export"
)

// Entry is one audit record.
type Entry struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"timestamp"`
	Actor     string `json:"actor"`
	Action    string `json:"action"`
	Target    string `json:"target"`
	Detail    string `json:"detail,omitempty"`
}

// Schema is the audit table layout.
var Schema = recordstore.Schema{
	Name:    constants.AuditTable,
	Columns: []string{"id", "timestamp", "actor", "action", "target", "detail"},
}

// Trail writes audit entries through a record store.
type Trail struct {
	store   *recordstore.Store
	logger  *logger.Logger
	maxRows int
}

// NewTrail creates an audit trail. maxRows bounds the table size; the oldest
// entries are pruned once the bound is exceeded.
func NewTrail(store *recordstore.Store, log *logger.Logger, maxRows int) *Trail {
	if maxRows <= 0 {
		maxRows = constants.AuditMaxRows
	}
	return &Trail{store: store, logger: log, maxRows: maxRows}
}

// Record appends one entry. Errors are logged, not returned: a failed audit
// write must not fail the audited operation.
func (t *Trail) Record(actor, action, target, detail string) {
	entry := Entry{
		ID:        uuid.NewString(),
		Timestamp: time.Now().Unix(),
		Actor:     actor,
		Action:    action,
		Target:    target,
		Detail:    detail,
	}

	err := t.store.Update(Schema, func(rows [][]string) ([][]string, error) {
		rows = append(rows, entry.toRow())
		if len(rows) > t.maxRows {
			rows = rows[len(rows)-t.maxRows:]
		}
		return rows, nil
	})
	if err != nil {
		t.logger.Error("Audit: failed to record %s by %s: %v", action, actor, err)
	}
}

// Recent returns the newest entries, most recent first, up to limit.
func (t *Trail) Recent(limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = constants.AuditDefaultRecentLimit
	}

	rows, err := t.store.Load(Schema)
	if err != nil {
		return nil, fmt.Errorf("failed to load audit table: %w", err)
	}

	if len(rows) > limit {
		rows = rows[len(rows)-limit:]
	}

	entries := make([]Entry, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		entry, err := entryFromRow(rows[i])
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (e Entry) toRow() []string {
	return []string{
		e.ID,
		strconv.FormatInt(e.Timestamp, 10),
		e.Actor,
		e.Action,
		e.Target,
		e.Detail,
	}
}

func entryFromRow(row []string) (Entry, error) {
	ts, err := strconv.ParseInt(row[1], 10, 64)
	if err != nil {
		return Entry{}, fmt.Errorf("malformed audit timestamp %q: %w", row[1], err)
	}
	return Entry{
		ID:        row[0],
		Timestamp: ts,
		Actor:     row[2],
		Action:    row[3],
		Target:    row[4],
		Detail:    row[5],
	}, nil
}
