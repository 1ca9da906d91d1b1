/*
Copyright (C) 2024  Carl-Philip Hänsch

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
package scm

import "io"
import "os"
import "fmt"
import "sync"
import "sync/atomic"
import "time"
import "path/filepath"
import "encoding/json"
import "github.com/google/uuid"

type Tracefile struct {
	isFirst bool
	closed  bool
	file    io.WriteCloser
	m       sync.Mutex
}

var trace atomic.Pointer[Tracefile] // not nil while every top level evaluation is traced
var traceMu sync.Mutex              // serializes SetTrace
var TraceDir string                 // folder for trace files, default: $NOVA_TRACEDIR

// CurrentTrace returns the active trace file or nil.
func CurrentTrace() *Tracefile {
	return trace.Load()
}

// SetTrace closes the current trace file and opens a new one if on.
// Evaluations still holding the old file drop their remaining events.
func SetTrace(on bool) error {
	traceMu.Lock()
	defer traceMu.Unlock()
	if old := trace.Swap(nil); old != nil {
		old.Close()
	}
	if on {
		dir := TraceDir
		if dir == "" {
			dir = os.Getenv("NOVA_TRACEDIR")
		}
		f, err := os.Create(filepath.Join(dir, "trace_"+uuid.NewString()+".json"))
		if err != nil {
			return fmt.Errorf("open trace file: %w", err)
		}
		trace.Store(NewTrace(f))
	}
	return nil
}

func NewTrace(file io.WriteCloser) *Tracefile {
	file.Write([]byte("["))
	return &Tracefile{isFirst: true, file: file}
}

func (t *Tracefile) Close() {
	t.m.Lock()
	defer t.m.Unlock()
	if t.closed {
		return
	}
	t.closed = true
	t.file.Write([]byte("]"))
	t.file.Close()
}

// Duration records f as a begin/end pair.
func (t *Tracefile) Duration(name string, cat string, f func()) {
	t.Event(name, cat, "B")
	defer t.Event(name, cat, "E")
	f()
}

func (t *Tracefile) Event(name string, cat string, typ string) {
	t.EventFull(name, cat, typ, time.Since(start).Microseconds(), 0, 0)
}

// one record of the chrome trace event format
type traceEvent struct {
	Name  string `json:"name"`
	Cat   string `json:"cat"`
	Ph    string `json:"ph"` // B/E for begin/end, X for events
	Ts    int64  `json:"ts"` // microseconds
	Pid   int    `json:"pid"`
	Tid   int    `json:"tid"`
	Scope string `json:"s"`
}

func (t *Tracefile) EventFull(name string, cat string, typ string, ts int64, tid int, pid int) {
	b, _ := json.Marshal(traceEvent{name, cat, typ, ts, pid, tid, "g"})
	t.m.Lock()
	defer t.m.Unlock()
	if t.closed {
		return
	}
	if t.isFirst {
		t.isFirst = false
	} else {
		t.file.Write([]byte(",\n"))
	}
	t.file.Write(b)
}

var start time.Time = time.Now()
