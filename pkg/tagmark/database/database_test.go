package database

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestOpenSQLite(t *testing.T) {
	db, err := Open(Options{Driver: DriverSQLite, Path: filepath.Join(t.TempDir(), "test.db")})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	var mode string
	if err := db.Raw("PRAGMA journal_mode").Scan(&mode).Error; err != nil {
		t.Fatalf("Failed to read journal mode: %v", err)
	}
	if strings.ToLower(mode) != "wal" {
		t.Errorf("Expected WAL journal mode, got %s", mode)
	}

	if got := ParamLimit(db); got != 999 {
		t.Errorf("Expected sqlite param limit 999, got %d", got)
	}
}

func TestSQLiteLowerFoldsUnicode(t *testing.T) {
	db, err := Open(Options{Path: filepath.Join(t.TempDir(), "test.db")})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	var got string
	if err := db.Raw("SELECT LOWER(?)", "Éclair ÀÖ").Scan(&got).Error; err != nil {
		t.Fatalf("LOWER failed: %v", err)
	}
	if got != "éclair àö" {
		t.Errorf("Expected unicode lower-casing, got %q", got)
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	if _, err := Open(Options{Driver: "oracle"}); err == nil {
		t.Error("Expected error for unsupported driver")
	}
}

func TestOpenPostgresRequiresDSN(t *testing.T) {
	if _, err := Open(Options{Driver: DriverPostgres}); err == nil {
		t.Error("Expected error when postgres DSN is missing")
	}
}

func TestConnectSetsGlobal(t *testing.T) {
	if err := Connect(Options{Path: filepath.Join(t.TempDir(), "global.db")}); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	if GetDB() == nil {
		t.Error("Expected GetDB to return the connection")
	}
}
