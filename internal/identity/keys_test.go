package identity_test

import (
	"testing"

	"github.com/vaultline/vaultline/internal/identity"
)

func TestKeyManager_createThenLoad(t *testing.T) {
	dir := t.TempDir()

	km := identity.NewKeyManager(dir)
	if err := km.Create(); err != nil {
		t.Fatalf("create: %v", err)
	}
	created := km.Key()
	if created == nil {
		t.Fatal("expected key after Create")
	}

	reloaded := identity.NewKeyManager(dir)
	if err := reloaded.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}
	if reloaded.Key().N.Cmp(created.N) != 0 {
		t.Error("reloaded key differs from created key")
	}
}

func TestKeyManager_loadOrCreateIsIdempotent(t *testing.T) {
	dir := t.TempDir()

	first := identity.NewKeyManager(dir)
	if err := first.LoadOrCreate(); err != nil {
		t.Fatalf("first LoadOrCreate: %v", err)
	}

	second := identity.NewKeyManager(dir)
	if err := second.LoadOrCreate(); err != nil {
		t.Fatalf("second LoadOrCreate: %v", err)
	}

	if first.Key().N.Cmp(second.Key().N) != 0 {
		t.Error("second LoadOrCreate generated a new key instead of loading")
	}
}

func TestKeyManager_loadMissingDir(t *testing.T) {
	km := identity.NewKeyManager(t.TempDir() + "/nope")
	if err := km.Load(); err == nil {
		t.Fatal("expected error loading from missing directory")
	}
}
