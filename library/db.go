package library

import (
	"bytes"
	"database/sql"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"sync"

	kif "github.com/bodgit/kif/image"
	xxhash "github.com/cespare/xxhash/v2"
	_ "github.com/mattn/go-sqlite3"
)

// IconDB stores encoded icons by name. Identical source images are only
// encoded and stored once.
type IconDB struct {
	db *sql.DB

	// Serialises writers
	mu sync.Mutex
}

func NewIconDB(file string) (*IconDB, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("%s?_foreign_keys=on&_busy_timeout=5000", file))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)

	if _, err = db.Exec("CREATE TABLE IF NOT EXISTS image (id INTEGER PRIMARY KEY NOT NULL, hash TEXT NOT NULL UNIQUE, width INTEGER NOT NULL, height INTEGER NOT NULL, kif BLOB NOT NULL)"); err != nil {
		db.Close()
		return nil, err
	}

	if _, err = db.Exec("CREATE TABLE IF NOT EXISTS icon (id INTEGER PRIMARY KEY NOT NULL, name TEXT NOT NULL UNIQUE, image_id INTEGER NOT NULL, FOREIGN KEY(image_id) REFERENCES image(id))"); err != nil {
		db.Close()
		return nil, err
	}

	return &IconDB{
		db: db,
	}, nil
}

func (db *IconDB) Close() error {
	return db.db.Close()
}

func decodeSource(r io.Reader) (image.Image, string, error) {
	h := xxhash.New()
	m, _, err := image.Decode(io.TeeReader(r, h))
	if err != nil {
		return nil, "", err
	}
	return m, fmt.Sprintf("%016X", h.Sum64()), nil
}

func encodeIcon(m image.Image) ([]byte, error) {
	b := new(bytes.Buffer)
	if err := kif.Encode(b, m); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

func (db *IconDB) hasImage(hash string) (bool, error) {
	var id int64
	switch err := db.db.QueryRow("SELECT id FROM image WHERE hash = ?", hash).Scan(&id); err {
	case sql.ErrNoRows:
		return false, nil
	case nil:
		return true, nil
	default:
		return false, err
	}
}

func (db *IconDB) addImage(tx *sql.Tx, m image.Image, hash string, encoded []byte) (int64, error) {
	var id int64
	switch err := tx.QueryRow("SELECT id FROM image WHERE hash = ?", hash).Scan(&id); err {
	case sql.ErrNoRows:
		if encoded == nil {
			var err error
			if encoded, err = encodeIcon(m); err != nil {
				return 0, err
			}
		}
		result, err := tx.Exec("INSERT INTO image (hash, width, height, kif) VALUES (?, ?, ?, ?)", hash, m.Bounds().Dx(), m.Bounds().Dy(), encoded)
		if err != nil {
			return 0, err
		}
		return result.LastInsertId()
	case nil:
		return id, nil
	default:
		return 0, err
	}
}

// AddIcon decodes the image in file, which may be any registered format,
// and stores it under name, replacing any existing icon with that name.
func (db *IconDB) AddIcon(name, file string) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	m, hash, err := decodeSource(f)
	if err != nil {
		return fmt.Errorf("%s: %w", file, err)
	}

	// Encode outside of the lock unless it's already stored
	var encoded []byte
	ok, err := db.hasImage(hash)
	if err != nil {
		return err
	}
	if !ok {
		if encoded, err = encodeIcon(m); err != nil {
			return fmt.Errorf("%s: %w", file, err)
		}
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	tx, err := db.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	id, err := db.addImage(tx, m, hash, encoded)
	if err != nil {
		return err
	}

	if _, err = tx.Exec("INSERT INTO icon (name, image_id) VALUES (?, ?) ON CONFLICT(name) DO UPDATE SET image_id = excluded.image_id", name, id); err != nil {
		return err
	}

	if err = prune(tx); err != nil {
		return err
	}

	return tx.Commit()
}

// Remove any images no longer referenced by an icon
func prune(tx *sql.Tx) error {
	_, err := tx.Exec("DELETE FROM image WHERE id NOT IN (SELECT image_id FROM icon)")
	return err
}

// RemoveIcon deletes the named icon. It is not an error if it doesn't exist.
func (db *IconDB) RemoveIcon(name string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	tx, err := db.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM icon WHERE name = ?", name); err != nil {
		return err
	}

	if err := prune(tx); err != nil {
		return err
	}

	return tx.Commit()
}

// FindIcon returns the encoded icon stored under name, or nil if there is
// no such icon.
func (db *IconDB) FindIcon(name string) ([]byte, error) {
	var b []byte
	switch err := db.db.QueryRow("SELECT m.kif FROM icon AS i JOIN image AS m ON i.image_id = m.id WHERE i.name = ?", name).Scan(&b); err {
	case sql.ErrNoRows:
		return nil, nil
	case nil:
		return b, nil
	default:
		return nil, err
	}
}

// Names returns the names of all stored icons in sorted order.
func (db *IconDB) Names() ([]string, error) {
	rows, err := db.db.Query("SELECT name FROM icon ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}

	return names, rows.Err()
}
