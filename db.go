package retropal

import (
	"database/sql"
	"fmt"

	"github.com/bodgit/retropal/pal"
	_ "github.com/mattn/go-sqlite3"
)

// PaletteDB caches derived palettes keyed by source image digest, profile
// and engine tuning, so repeated scans skip the expensive derivation.
type PaletteDB struct {
	db *sql.DB
}

func NewPaletteDB(file string) (*PaletteDB, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("%s?_foreign_keys=on", file))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)

	if _, err = db.Exec("CREATE TABLE IF NOT EXISTS palette (id INTEGER PRIMARY KEY NOT NULL, sha1 TEXT NOT NULL, profile TEXT NOT NULL, config TEXT NOT NULL, colors BLOB NOT NULL, UNIQUE (sha1, profile, config))"); err != nil {
		return nil, err
	}

	return &PaletteDB{
		db: db,
	}, nil
}

func (db *PaletteDB) Close() error {
	return db.db.Close()
}

// Find returns the cached palette for the key, or nil without error when
// there is none.
func (db *PaletteDB) Find(sha, profile, config string) (pal.Palette, error) {
	var colors []byte
	switch err := db.db.QueryRow("SELECT colors FROM palette WHERE sha1 = ? AND profile = ? AND config = ?", sha, profile, config).Scan(&colors); err {
	case sql.ErrNoRows:
		return nil, nil
	case nil:
		var p pal.Palette
		if err := p.UnmarshalBinary(colors); err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, err
	}
}

// Store saves a palette, replacing any previous entry for the same key.
func (db *PaletteDB) Store(sha, profile, config string, p pal.Palette) error {
	colors, err := p.MarshalBinary()
	if err != nil {
		return err
	}
	if _, err := db.db.Exec("INSERT OR REPLACE INTO palette (sha1, profile, config, colors) VALUES (?, ?, ?, ?)", sha, profile, config, colors); err != nil {
		return err
	}
	return nil
}
