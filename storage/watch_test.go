/*
Copyright (C) 2024-2026  Carl-Philip Hänsch

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
	"path/filepath"
	"testing"
	"time"
)

func TestWatchReimports(t *testing.T) {
	path := filepath.Join(t.TempDir(), "live.nova")
	writeFile(t, path, "(def f (x) x)\n")
	s, _ := newSession(t, "")
	w, err := Watch(context.Background(), path, s)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	if got := evalString(t, s, "(f 5)"); got != "5" {
		t.Fatalf("initial import: expected 5, got %s", got)
	}

	writeFile(t, path, "(def f (x) (succ x))\n(def g (x) x)\n")
	deadline := time.Now().Add(5 * time.Second)
	for {
		found := false
		for _, fn := range s.UserFunctions() {
			if fn.Name() == "g" {
				found = true
			}
		}
		if found {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("file change was not picked up")
		}
		time.Sleep(20 * time.Millisecond)
	}
	if got := evalString(t, s, "(f 5)"); got != "6" {
		t.Fatalf("after reload: expected 6, got %s", got)
	}
}

func TestWatchMissingFile(t *testing.T) {
	s, _ := newSession(t, "")
	if _, err := Watch(context.Background(), filepath.Join(t.TempDir(), "none.nova"), s); err == nil {
		t.Fatal("watching a missing file should fail")
	}
}
