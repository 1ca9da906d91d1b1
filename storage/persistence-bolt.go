/*
Copyright (C) 2025-2026  Carl-Philip Hänsch

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.

	You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/
package storage

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"
)

// bbolt layout: bucket "functions", key = function name, value = def form.
const boltBucket = "functions"

type BoltStorage struct {
	path string
}

func NewBoltStorage(path string) *BoltStorage {
	return &BoltStorage{path}
}

// open holds the file lock only for the duration of one operation, so
// several sessions can share a library file.
func (s *BoltStorage) open() (*bolt.DB, error) {
	db, err := bolt.Open(s.path, 0640, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s, err)
	}
	return db, nil
}

func (s *BoltStorage) Load(ctx context.Context) ([]byte, error) {
	// bolt.Open would create the file
	if _, err := os.Stat(s.path); err != nil {
		return nil, fmt.Errorf("%s: %w", s, err)
	}
	db, err := s.open()
	if err != nil {
		return nil, err
	}
	defer db.Close()
	var b strings.Builder
	err = db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(boltBucket))
		if bucket == nil {
			return fs.ErrNotExist
		}
		c := bucket.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			b.Write(v)
			b.WriteString("\n")
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s, err)
	}
	return []byte(b.String()), nil
}

// Store replaces the bucket with the definitions in data.
func (s *BoltStorage) Store(ctx context.Context, data []byte) error {
	lib, err := ParseLibrary(s.String(), data)
	if err != nil {
		return err
	}
	db, err := s.open()
	if err != nil {
		return err
	}
	defer db.Close()
	err = db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket([]byte(boltBucket)) != nil {
			if err := tx.DeleteBucket([]byte(boltBucket)); err != nil {
				return err
			}
		}
		bucket, err := tx.CreateBucket([]byte(boltBucket))
		if err != nil {
			return err
		}
		for _, d := range lib.Definitions() {
			if err := bucket.Put([]byte(d.Name), []byte(d.Source)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s: %w", s, err)
	}
	return nil
}

func (s *BoltStorage) Close() error {
	return nil
}

func (s *BoltStorage) String() string {
	return "bolt://" + s.path
}

func init() {
	BackendRegistry["bolt"] = func(target, rest string) (Backend, error) {
		if rest == "" {
			return nil, fmt.Errorf("expected bolt://<path> but got %q", target)
		}
		return NewBoltStorage(rest), nil
	}
}
