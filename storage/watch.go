/*
Copyright (C) 2023-2026  Carl-Philip Hänsch

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

import "log"
import "time"
import "errors"
import "context"
import "github.com/fsnotify/fsnotify"
import "github.com/jtolds/gls"
import "github.com/launix-de/nova/scm"

// Watcher re-imports a file into a session whenever it changes.
type Watcher struct {
	path    string
	session *scm.Session
	watcher *fsnotify.Watcher
	done    chan struct{}
	// Reloaded is called after every re-import (may be nil)
	Reloaded func(results []scm.Result, err error)
}

// Watch imports path once in sync and then again after each change.
func Watch(ctx context.Context, path string, s *scm.Session) (*Watcher, error) {
	path = ResolveTarget(path)
	if _, err := Import(ctx, path, s); err != nil {
		return nil, err
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(path); err != nil {
		fw.Close()
		return nil, err
	}
	w := &Watcher{path: path, session: s, watcher: fw, done: make(chan struct{})}
	gls.Go(func() { w.loop(ctx) })
	return w, nil
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.done)
	for {
		select {
		case _, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			// flush all other events
		flush:
			for {
				time.Sleep(10 * time.Millisecond) // delay a bit, so we don't read empty files
				select {
				case _, ok := <-w.watcher.Events:
					if !ok {
						return
					}
				default:
					break flush
				}
			}
			w.reread(ctx)
			w.watcher.Add(w.path) // text editors rename, so we have to rewatch
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Println("watch", w.path+":", err)
		case <-ctx.Done():
			return
		}
	}
}

func (w *Watcher) reread(ctx context.Context) {
	var results []scm.Result
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = errors.New("panic during reload")
				log.Println("reload", w.path+":", r)
			}
		}()
		results, err = Import(ctx, w.path, w.session)
		return err
	}()
	if err != nil {
		// error happens during reload: log to console
		log.Println("reload", w.path+":", scm.Render(err))
	}
	if w.Reloaded != nil {
		w.Reloaded(results, err)
	}
}

// Close stops watching and waits for the watch loop to end.
func (w *Watcher) Close() error {
	err := w.watcher.Close()
	<-w.done
	return err
}

func init() {
	scm.DeclareCommand(&scm.Command{Name: "watch", Args: "<file>", Desc: "import a file and re-import it whenever it changes", Run: func(ctx context.Context, s *scm.Session, args string) error {
		if args == "" {
			return errors.New("usage: :watch <file>")
		}
		_, err := Watch(context.Background(), args, s)
		return err
	}})
}
