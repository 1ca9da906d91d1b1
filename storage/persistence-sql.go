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
	"database/sql"
	"fmt"
	"io/fs"
	"strings"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
)

// SQL layout: one row per function in nova_functions(name, source).
const sqlTable = "nova_functions"

type SQLStorage struct {
	driver string // mysql or postgres
	dsn    string
	name   string // for messages, without password

	mu sync.Mutex
	db *sql.DB
}

func NewSQLStorage(driver, dsn, name string) *SQLStorage {
	return &SQLStorage{driver: driver, dsn: dsn, name: name}
}

// placeholder returns the n-th bind parameter (1-based) in the driver's syntax.
func (s *SQLStorage) placeholder(n int) string {
	if s.driver == "postgres" {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

func (s *SQLStorage) ensureOpen(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		return nil
	}
	db, err := sql.Open(s.driver, s.dsn)
	if err != nil {
		return fmt.Errorf("%s: %w", s, err)
	}
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetMaxOpenConns(2)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("%s: %w", s, err)
	}
	if _, err := db.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS "+sqlTable+" (name VARCHAR(255) PRIMARY KEY, source TEXT NOT NULL)"); err != nil {
		_ = db.Close()
		return fmt.Errorf("%s: %w", s, err)
	}
	s.db = db
	return nil
}

func (s *SQLStorage) Load(ctx context.Context) ([]byte, error) {
	if err := s.ensureOpen(ctx); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, "SELECT source FROM "+sqlTable+" ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s, err)
	}
	defer rows.Close()
	var b strings.Builder
	count := 0
	for rows.Next() {
		var source string
		if err := rows.Scan(&source); err != nil {
			return nil, fmt.Errorf("%s: %w", s, err)
		}
		b.WriteString(source)
		b.WriteString("\n")
		count++
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", s, err)
	}
	if count == 0 {
		return nil, fmt.Errorf("%s: %w", s, fs.ErrNotExist)
	}
	return []byte(b.String()), nil
}

// Store replaces the table content with the definitions in data.
func (s *SQLStorage) Store(ctx context.Context, data []byte) error {
	lib, err := ParseLibrary(s.String(), data)
	if err != nil {
		return err
	}
	if err := s.ensureOpen(ctx); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", s, err)
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, "DELETE FROM "+sqlTable); err != nil {
		return fmt.Errorf("%s: %w", s, err)
	}
	insert := "INSERT INTO " + sqlTable + " (name, source) VALUES (" + s.placeholder(1) + ", " + s.placeholder(2) + ")"
	for _, d := range lib.Definitions() {
		if _, err := tx.ExecContext(ctx, insert, d.Name, d.Source); err != nil {
			return fmt.Errorf("%s: %s: %w", s, d.Name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: %w", s, err)
	}
	return nil
}

func (s *SQLStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLStorage) String() string {
	return s.name
}

// hidePassword drops the credentials part of user:pw@host.
func hidePassword(scheme, rest string) string {
	if at := strings.LastIndex(rest, "@"); at >= 0 {
		user, _, _ := strings.Cut(rest[:at], ":")
		rest = user + "@" + rest[at+1:]
	}
	return scheme + "://" + rest
}

func init() {
	BackendRegistry["mysql"] = func(target, rest string) (Backend, error) {
		return NewSQLStorage("mysql", rest, hidePassword("mysql", rest)), nil
	}
	postgres := func(target, rest string) (Backend, error) {
		return NewSQLStorage("postgres", target, hidePassword("postgres", rest)), nil
	}
	BackendRegistry["postgres"] = postgres
	BackendRegistry["postgresql"] = postgres
}
