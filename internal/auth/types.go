// Package auth defines the identity and permission primitives shared by the
// services: account roles, access levels with their total order, and the
// session context threaded through every service call.
package auth

import "fmt"

// Role is the account role stored in the users table.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// ParseRole validates a stored role string.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAdmin, RoleUser:
		return Role(s), nil
	default:
		return "", fmt.Errorf("unknown role: %q", s)
	}
}

// Level is a directory access level granted by an owner.
// Levels are totally ordered: all covers write covers read.
type Level string

const (
	LevelRead  Level = "read"
	LevelWrite Level = "write"
	LevelAll   Level = "all"
)

var levelRank = map[Level]int{
	LevelRead:  1,
	LevelWrite: 2,
	LevelAll:   3,
}

// ParseLevel validates a stored level string.
func ParseLevel(s string) (Level, error) {
	if _, ok := levelRank[Level(s)]; !ok {
		return "", fmt.Errorf("unknown permission level: %q", s)
	}
	return Level(s), nil
}

// Covers reports whether holding this level satisfies the required level.
func (l Level) Covers(required Level) bool {
	return levelRank[l] >= levelRank[required]
}

// Session is the authenticated identity for one logical session. It is
// produced by the front-end after Authenticate and passed by value into every
// service operation; no process-wide identity exists.
type Session struct {
	Username string
	Role     Role
}

// IsAdmin reports whether the session belongs to an administrator.
func (s Session) IsAdmin() bool {
	return s.Role == RoleAdmin
}

// Account is one row of the users table. PasswordDigest is the opaque output
// of the configured Hasher and must never leave the registry.
type Account struct {
	Username       string `json:"username"`
	PasswordDigest string `json:"-"`
	Role           Role   `json:"role"`
	Email          string `json:"email"`
}

// Grant is one row of the permissions table: Owner shares their directory
// with Grantee at the given level.
type Grant struct {
	Owner   string `json:"owner"`
	Grantee string `json:"grantee"`
	Level   Level  `json:"level"`
}
