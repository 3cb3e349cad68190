package cli

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/devilmonastery/hrconsole/internal/storage"
)

func TestFileStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "credentials-dev.json")
	store := NewFileStore(path)

	if _, err := store.Get(ctx, storage.KeyAccessToken); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Get on missing file = %v, want ErrNotFound", err)
	}

	err := store.SetMany(ctx, map[string]string{
		storage.KeyAccessToken:  "access-1",
		storage.KeyRefreshToken: "refresh-1",
	})
	if err != nil {
		t.Fatalf("SetMany: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("credentials file not written: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("file mode = %o, want 600", perm)
	}

	// A second store on the same path sees the values
	other := NewFileStore(path)
	got, err := other.Get(ctx, storage.KeyRefreshToken)
	if err != nil || got != "refresh-1" {
		t.Errorf("Get(refreshToken) = %q, %v", got, err)
	}

	if err := store.SetMany(ctx, map[string]string{storage.KeyAccessToken: "access-2"}); err != nil {
		t.Fatalf("SetMany: %v", err)
	}
	got, _ = store.Get(ctx, storage.KeyAccessToken)
	if got != "access-2" {
		t.Errorf("access token = %q, want access-2", got)
	}
	got, _ = store.Get(ctx, storage.KeyRefreshToken)
	if got != "refresh-1" {
		t.Errorf("untouched refresh token = %q, want refresh-1", got)
	}

	if err := store.Delete(ctx, storage.KeyAccessToken, storage.KeyRefreshToken); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("file should be removed once empty, stat err = %v", err)
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 0 {
		t.Errorf("leftover files in credentials dir: %v", entries)
	}
}

func TestFileStoreCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials-dev.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}

	_, err := NewFileStore(path).Get(context.Background(), storage.KeyTenant)
	if err == nil || errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Get on corrupt file = %v, want parse error", err)
	}
}

func TestFileStoreRemoveMissing(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "credentials-dev.json"))
	if err := store.Remove(); err != nil {
		t.Errorf("Remove on missing file: %v", err)
	}
}

func TestCredentialsPath(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HRCONSOLE_HOME", dir)

	got, err := credentialsPath("prod")
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(dir, "credentials-prod.json"); got != want {
		t.Errorf("credentialsPath = %q, want %q", got, want)
	}
}

func TestCredentialsPathRejectsUnsafeNames(t *testing.T) {
	t.Setenv("HRCONSOLE_HOME", t.TempDir())

	for _, name := range []string{"", ".", "..", "../x", "a/b", `a\b`} {
		if _, err := credentialsPath(name); err == nil {
			t.Errorf("credentialsPath(%q) should fail", name)
		}
	}
}
