package services

import (
	"testing"

	"annuaire/internal/auth"
)

func TestPermissionMatrix_GrantAndCheck(t *testing.T) {
	svcs := newTestServices(t)
	admin := bootstrapAdmin(t, svcs)
	alice := createUser(t, svcs, admin, "alice")
	createUser(t, svcs, admin, "bob")

	if err := svcs.Matrix.Grant(alice, "bob", auth.LevelWrite); err != nil {
		t.Fatalf("Grant failed: %v", err)
	}

	tests := []struct {
		name      string
		owner     string
		requester string
		level     auth.Level
		want      bool
	}{
		{"write covers read", "alice", "bob", auth.LevelRead, true},
		{"write covers write", "alice", "bob", auth.LevelWrite, true},
		{"write does not cover all", "alice", "bob", auth.LevelAll, false},
		{"no reverse grant", "bob", "alice", auth.LevelRead, false},
		{"owner implicit all", "alice", "alice", auth.LevelAll, true},
		{"unrelated requester", "alice", "admin", auth.LevelRead, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svcs.Matrix.Check(tt.owner, tt.requester, tt.level)
			if err != nil {
				t.Fatalf("Check failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Check(%s, %s, %s) = %v, want %v", tt.owner, tt.requester, tt.level, got, tt.want)
			}
		})
	}
}

func TestPermissionMatrix_Grant_Overwrites(t *testing.T) {
	svcs := newTestServices(t)
	admin := bootstrapAdmin(t, svcs)
	alice := createUser(t, svcs, admin, "alice")
	createUser(t, svcs, admin, "bob")

	if err := svcs.Matrix.Grant(alice, "bob", auth.LevelAll); err != nil {
		t.Fatalf("Grant failed: %v", err)
	}
	if err := svcs.Matrix.Grant(alice, "bob", auth.LevelRead); err != nil {
		t.Fatalf("re-Grant failed: %v", err)
	}

	grants, err := svcs.Matrix.ListGrants(alice)
	if err != nil {
		t.Fatalf("ListGrants failed: %v", err)
	}
	if len(grants) != 1 {
		t.Fatalf("expected 1 grant, got %d", len(grants))
	}
	if grants[0].Level != auth.LevelRead {
		t.Errorf("expected level read after overwrite, got %s", grants[0].Level)
	}

	ok, err := svcs.Matrix.Check("alice", "bob", auth.LevelWrite)
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if ok {
		t.Error("downgraded grant should no longer cover write")
	}
}

func TestPermissionMatrix_Grant_Rejections(t *testing.T) {
	svcs := newTestServices(t)
	admin := bootstrapAdmin(t, svcs)
	alice := createUser(t, svcs, admin, "alice")

	err := svcs.Matrix.Grant(alice, "nobody", auth.LevelRead)
	wantCode(t, err, "UNKNOWN_ACCOUNT")

	err = svcs.Matrix.Grant(alice, "admin", auth.Level("owner"))
	wantCode(t, err, "VALIDATION_ERROR")
}

func TestPermissionMatrix_AllCoversEveryLevel(t *testing.T) {
	svcs := newTestServices(t)
	admin := bootstrapAdmin(t, svcs)
	alice := createUser(t, svcs, admin, "alice")
	createUser(t, svcs, admin, "bob")

	if err := svcs.Matrix.Grant(alice, "bob", auth.LevelAll); err != nil {
		t.Fatalf("Grant failed: %v", err)
	}

	for _, level := range []auth.Level{auth.LevelRead, auth.LevelWrite, auth.LevelAll} {
		ok, err := svcs.Matrix.Check("alice", "bob", level)
		if err != nil {
			t.Fatalf("Check failed: %v", err)
		}
		if !ok {
			t.Errorf("all grant should cover %s", level)
		}
	}
}

func TestPermissionMatrix_SelfGrant_NoOp(t *testing.T) {
	svcs := newTestServices(t)
	admin := bootstrapAdmin(t, svcs)
	alice := createUser(t, svcs, admin, "alice")

	if err := svcs.Matrix.Grant(alice, "alice", auth.LevelRead); err != nil {
		t.Fatalf("self-grant should be accepted: %v", err)
	}

	grants, err := svcs.Matrix.ListGrants(alice)
	if err != nil {
		t.Fatalf("ListGrants failed: %v", err)
	}
	if len(grants) != 0 {
		t.Errorf("self-grant should not be stored, got %+v", grants)
	}

	// Owner access stays implicit either way.
	ok, err := svcs.Matrix.Check("alice", "alice", auth.LevelAll)
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if !ok {
		t.Error("owner should hold implicit all")
	}
}

func TestPermissionMatrix_Revoke_Idempotent(t *testing.T) {
	svcs := newTestServices(t)
	admin := bootstrapAdmin(t, svcs)
	alice := createUser(t, svcs, admin, "alice")
	createUser(t, svcs, admin, "bob")

	if err := svcs.Matrix.Grant(alice, "bob", auth.LevelRead); err != nil {
		t.Fatalf("Grant failed: %v", err)
	}

	if err := svcs.Matrix.Revoke(alice, "bob"); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}
	// Second revoke of the same grant is a no-op, not an error.
	if err := svcs.Matrix.Revoke(alice, "bob"); err != nil {
		t.Fatalf("second Revoke failed: %v", err)
	}

	ok, err := svcs.Matrix.Check("alice", "bob", auth.LevelRead)
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if ok {
		t.Error("revoked grant should not pass Check")
	}
}

func TestPermissionMatrix_ListGrantsAndReceived(t *testing.T) {
	svcs := newTestServices(t)
	admin := bootstrapAdmin(t, svcs)
	alice := createUser(t, svcs, admin, "alice")
	bob := createUser(t, svcs, admin, "bob")

	if err := svcs.Matrix.Grant(alice, "bob", auth.LevelRead); err != nil {
		t.Fatalf("Grant failed: %v", err)
	}
	if err := svcs.Matrix.Grant(bob, "alice", auth.LevelAll); err != nil {
		t.Fatalf("Grant failed: %v", err)
	}

	issued, err := svcs.Matrix.ListGrants(alice)
	if err != nil {
		t.Fatalf("ListGrants failed: %v", err)
	}
	if len(issued) != 1 || issued[0].Grantee != "bob" || issued[0].Level != auth.LevelRead {
		t.Errorf("unexpected issued grants: %+v", issued)
	}

	received, err := svcs.Matrix.ListReceived(alice)
	if err != nil {
		t.Fatalf("ListReceived failed: %v", err)
	}
	if len(received) != 1 || received[0].Owner != "bob" || received[0].Level != auth.LevelAll {
		t.Errorf("unexpected received grants: %+v", received)
	}
}
