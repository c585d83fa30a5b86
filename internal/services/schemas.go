package services

import (
	"annuaire/internal/constants"
	"annuaire/internal/recordstore"
)

// Table schemas owned by the services. One directory table exists per
// account; its name derives from the owning username.

var usersSchema = recordstore.Schema{
	Name:    constants.UsersTable,
	Columns: []string{"username", "password_digest", "role", "email"},
}

var permissionsSchema = recordstore.Schema{
	Name:    constants.PermissionsTable,
	Columns: []string{"owner", "grantee", "level"},
}

// contactColumns is the documented directory/import/export layout.
var contactColumns = []string{"nom", "prenom", "telephone", "adresse", "email"}

// directorySchema returns the schema of one account's directory table.
func directorySchema(owner string) recordstore.Schema {
	return recordstore.Schema{
		Name:    constants.DirectoryPrefix + owner,
		Columns: contactColumns,
	}
}
