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

import "fmt"
import "sync"
import "unsafe"
import "strings"
import "github.com/docker/go-units"
import "golang.org/x/text/language"
import "golang.org/x/text/message"

// Usage is what one engine run consumed.
type Usage struct {
	Evaluations  uint64
	Iterations   uint64
	MaxCallStack int
	MaxFnStack   int
	MaxResults   int
}

// Stats accumulates the usage of all runs of an engine, nested runs included.
type Stats struct {
	mu sync.Mutex
	u  Usage
}

func (s *Stats) add(u Usage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.u.Evaluations++
	s.u.Iterations += u.Iterations
	s.u.MaxCallStack = max(s.u.MaxCallStack, u.MaxCallStack)
	s.u.MaxFnStack = max(s.u.MaxFnStack, u.MaxFnStack)
	s.u.MaxResults = max(s.u.MaxResults, u.MaxResults)
}

func (s *Stats) Snapshot() Usage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.u
}

func (s *Stats) Reset() {
	s.mu.Lock()
	s.u = Usage{}
	s.mu.Unlock()
}

const (
	callEntrySize   = int64(unsafe.Sizeof(callEntry{}))
	fnEntrySize     = int64(unsafe.Sizeof(fnEntry{}))
	resultEntrySize = int64(unsafe.Sizeof(resultEntry{}))
)

// PeakMemory estimates the largest stack footprint seen, in bytes.
func (u Usage) PeakMemory() int64 {
	return int64(u.MaxCallStack)*callEntrySize + int64(u.MaxFnStack)*fnEntrySize + int64(u.MaxResults)*resultEntrySize
}

var numberPrinter = message.NewPrinter(language.English)

func (u Usage) String() string {
	var b strings.Builder
	b.WriteString(numberPrinter.Sprintf("evaluations:     %d\n", u.Evaluations))
	b.WriteString(numberPrinter.Sprintf("iterations:      %d\n", u.Iterations))
	b.WriteString(numberPrinter.Sprintf("max call stack:  %d\n", u.MaxCallStack))
	b.WriteString(numberPrinter.Sprintf("max fn stack:    %d\n", u.MaxFnStack))
	b.WriteString(numberPrinter.Sprintf("max results:     %d\n", u.MaxResults))
	b.WriteString(fmt.Sprintf("peak stack size: %s", units.HumanSize(float64(u.PeakMemory()))))
	return b.String()
}
