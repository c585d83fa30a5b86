package constants

import "os"

// Application
const (
	AppName        = "annuaire"
	AppDisplayName = "Annuaire"
)

// Paths
const (
	ConfigDir       = ".config/annuaire"
	ConfigFile      = "config.yaml"
	DefaultDataDir  = "data"
	InternalDir     = ".internal"
	ManifestFile    = "manifest.yaml"
	TableFileExt    = ".csv"
	DirectoryPrefix = "annuaire_" // per-account directory table file prefix
)

// Table names
const (
	UsersTable       = "users"
	PermissionsTable = "permissions"
	AuditTable       = "audit"
)

// File Permissions
const (
	DirPermissions  os.FileMode = 0755
	FilePermissions os.FileMode = 0644
)

// Logging
const (
	DefaultLogLevel    = "INFO"
	LogTimestampFormat = "2006-01-02 15:04:05.000"
	LogFileExtension   = ".log"
	LogsDir            = "logs"
	LogsDirDebug       = "debug"
	LogsDirInfo        = "info"
	LogsDirWarn        = "warn"
	LogsDirError       = "error"
)

// Accounts
const (
	AuthBcryptCost        = 12
	AuthMinPasswordLength = 6
	AuthMaxPasswordLength = 128
	AuthUsernameRegex     = `^[a-z0-9_-]{3,64}$`
	AuthPasswordGenLength = 20
	AuthBootstrapUsername = "admin"
	AuthBootstrapEmail    = "admin@annuaire.local"
)

// Contact validation
const (
	MaxNameLength    = 100
	MaxAddressLength = 255
	PhoneMinDigits   = 8
	PhoneMaxDigits   = 15
)

// Audit
const (
	AuditDefaultRecentLimit = 50
	AuditMaxRows            = 10000 // oldest entries pruned beyond this
)
