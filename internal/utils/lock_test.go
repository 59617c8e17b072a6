package utils

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestDBLock(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "claimscope.sqlite")
	l, err := NewDBLock(dbPath)
	if err != nil {
		t.Fatalf("NewDBLock: %v", err)
	}
	if !strings.HasSuffix(l.path, "claimscope.sqlite.lock") {
		t.Fatalf("unexpected lock path %s", l.path)
	}
	if err := l.Lock(); err != nil {
		t.Fatalf("Lock: %v", err)
	}

	other, _ := NewDBLock(dbPath)
	if locked, err := other.lock.TryLock(); err != nil || locked {
		t.Fatalf("second lock should fail while the first is held (locked=%v, err=%v)", locked, err)
	}

	if err := l.Unlock(); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	if locked, err := other.lock.TryLock(); err != nil || !locked {
		t.Fatalf("lock should be free after Unlock (locked=%v, err=%v)", locked, err)
	}
	other.Unlock()
}

func TestGetAbsDBPathDefault(t *testing.T) {
	p, err := GetAbsDBPath("")
	if err != nil {
		t.Fatalf("GetAbsDBPath: %v", err)
	}
	if !strings.HasSuffix(p, filepath.Join(".config", "claimscope", "claimscope.sqlite")) {
		t.Fatalf("unexpected default path %s", p)
	}
}
