/*
Copyright (C) 2025  Carl-Philip Hänsch

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

import "os"
import "runtime"
import "strconv"
import "strings"
import "github.com/docker/go-units"

// ProcessMemory is the memory picture of the whole process.
type ProcessMemory struct {
	RSS       int64 // 0 where /proc is not available
	HeapAlloc uint64
	NumGC     uint32
}

// readProcessRSS reads the RSS (resident set size) of this process from /proc/self/statm.
func readProcessRSS() int64 {
	data, err := os.ReadFile("/proc/self/statm")
	if err != nil {
		return 0
	}
	fields := strings.Fields(string(data))
	if len(fields) < 2 {
		return 0
	}
	pages, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return 0
	}
	return pages * int64(os.Getpagesize())
}

func ReadProcessMemory() ProcessMemory {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return ProcessMemory{readProcessRSS(), ms.HeapAlloc, ms.NumGC}
}

func (m ProcessMemory) String() string {
	rss := "n/a"
	if m.RSS > 0 {
		rss = units.HumanSize(float64(m.RSS))
	}
	return numberPrinter.Sprintf("process rss:     %s\nheap in use:     %s\ngc cycles:       %d", rss, units.HumanSize(float64(m.HeapAlloc)), m.NumGC)
}
