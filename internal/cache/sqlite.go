// Package cache implements the module driver's Cache collaborator on
// top of a SQLite table, keyed on (path, ast hash) so a cache entry
// never needs to cross-reference another file's contents.
package cache

import (
	"bytes"
	"crypto/sha256"
	"database/sql"
	"encoding/gob"
	"encoding/hex"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/rzk-lang/rzk/internal/module"
	"github.com/rzk-lang/rzk/internal/term"
)

func init() {
	gob.Register(term.Var{})
	gob.Register(term.Hole{})
	gob.Register(term.Universe{})
	gob.Register(term.TypedTerm{})
	gob.Register(term.Pi{})
	gob.Register(term.Sigma{})
	gob.Register(term.Lambda{})
	gob.Register(term.App{})
	gob.Register(term.Pair{})
	gob.Register(term.First{})
	gob.Register(term.Second{})
	gob.Register(term.IdType{})
	gob.Register(term.Refl{})
	gob.Register(term.IdJ{})
	gob.Register(term.Cube{})
	gob.Register(term.CubeUnit{})
	gob.Register(term.CubeUnitStar{})
	gob.Register(term.CubeProd{})
	gob.Register(term.Cube2{})
	gob.Register(term.Cube2_0{})
	gob.Register(term.Cube2_1{})
	gob.Register(term.Tope{})
	gob.Register(term.TopeTop{})
	gob.Register(term.TopeBottom{})
	gob.Register(term.TopeOr{})
	gob.Register(term.TopeAnd{})
	gob.Register(term.TopeEQ{})
	gob.Register(term.TopeLEQ{})
	gob.Register(term.RecBottom{})
	gob.Register(term.RecOr{})
	gob.Register(term.ExtensionType{})
}

// SQLiteCache implements module.Cache on top of a pure-Go SQLite
// database (modernc.org/sqlite, no cgo), so the checker CLI builds
// anywhere the Go toolchain does.
type SQLiteCache struct {
	db *sql.DB
}

// Open creates or opens the cache database at path and ensures its
// schema exists.
func Open(path string) (*SQLiteCache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening cache %s: %w", path, err)
	}
	c := &SQLiteCache{db: db}
	if err := c.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

func (c *SQLiteCache) migrate() error {
	_, err := c.db.Exec(`
		CREATE TABLE IF NOT EXISTS checked_decls (
			path TEXT NOT NULL,
			ast_hash TEXT NOT NULL,
			decls BLOB NOT NULL,
			PRIMARY KEY (path, ast_hash)
		);
		CREATE TABLE IF NOT EXISTS config_fingerprint (
			id INTEGER PRIMARY KEY CHECK (id = 0),
			fingerprint TEXT NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("migrating cache schema: %w", err)
	}
	return nil
}

// Close closes the underlying database handle.
func (c *SQLiteCache) Close() error {
	return c.db.Close()
}

// Lookup implements module.Cache.
func (c *SQLiteCache) Lookup(path, astHash string) ([]module.CheckedDecl, bool) {
	var blob []byte
	err := c.db.QueryRow(
		`SELECT decls FROM checked_decls WHERE path = ? AND ast_hash = ?`,
		path, astHash,
	).Scan(&blob)
	if err != nil {
		return nil, false
	}
	var decls []module.CheckedDecl
	if err := gob.NewDecoder(bytes.NewReader(blob)).Decode(&decls); err != nil {
		return nil, false
	}
	return decls, true
}

// Store implements module.Cache.
func (c *SQLiteCache) Store(path, astHash string, decls []module.CheckedDecl) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(decls); err != nil {
		return
	}
	_, _ = c.db.Exec(
		`INSERT OR REPLACE INTO checked_decls (path, ast_hash, decls) VALUES (?, ?, ?)`,
		path, astHash, buf.Bytes(),
	)
}

// CheckConfigFingerprint compares data's hash against the stored
// fingerprint and reports whether it changed. On a mismatch it deletes
// every checked_decls row, since every entry's validity is implicitly
// conditioned on the config that produced it, and stores the new
// fingerprint. When no fingerprint is stored yet it stores one and
// reports a change without deleting any rows.
func (c *SQLiteCache) CheckConfigFingerprint(data []byte) (changed bool, err error) {
	sum := sha256.Sum256(data)
	fingerprint := hex.EncodeToString(sum[:])

	var stored string
	err = c.db.QueryRow(`SELECT fingerprint FROM config_fingerprint WHERE id = 0`).Scan(&stored)
	if err == sql.ErrNoRows {
		return true, c.setFingerprint(fingerprint)
	}
	if err != nil {
		return false, fmt.Errorf("reading config fingerprint: %w", err)
	}
	if stored == fingerprint {
		return false, nil
	}
	if _, err := c.db.Exec(`DELETE FROM checked_decls`); err != nil {
		return false, fmt.Errorf("invalidating cache: %w", err)
	}
	return true, c.setFingerprint(fingerprint)
}

func (c *SQLiteCache) setFingerprint(fingerprint string) error {
	_, err := c.db.Exec(
		`INSERT INTO config_fingerprint (id, fingerprint) VALUES (0, ?)
		 ON CONFLICT(id) DO UPDATE SET fingerprint = excluded.fingerprint`,
		fingerprint,
	)
	if err != nil {
		return fmt.Errorf("writing config fingerprint: %w", err)
	}
	return nil
}
