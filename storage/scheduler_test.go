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
	"sync/atomic"
	"testing"
	"time"
)

func TestSchedulerRunsInOrder(t *testing.T) {
	var s Scheduler
	defer s.Stop()
	order := make(chan int, 3)
	s.ScheduleAfter(30*time.Millisecond, func() { order <- 3 })
	s.ScheduleAfter(10*time.Millisecond, func() { order <- 1 })
	s.ScheduleAfter(20*time.Millisecond, func() { order <- 2 })
	for want := 1; want <= 3; want++ {
		select {
		case got := <-order:
			if got != want {
				t.Fatalf("expected job %d, got %d", want, got)
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("job %d did not run", want)
		}
	}
}

func TestSchedulerClear(t *testing.T) {
	var s Scheduler
	var ran atomic.Int32
	id, ok := s.ScheduleAfter(20*time.Millisecond, func() { ran.Add(1) })
	if !ok {
		t.Fatal("schedule failed")
	}
	s.Clear(id)
	done := make(chan struct{})
	s.ScheduleAfter(50*time.Millisecond, func() { close(done) })
	<-done
	s.Stop()
	if ran.Load() != 0 {
		t.Fatalf("a cleared job must not run")
	}
}

func TestSchedulerSurvivesPanics(t *testing.T) {
	var s Scheduler
	defer s.Stop()
	done := make(chan struct{})
	s.ScheduleAfter(0, func() { panic("boom") })
	s.ScheduleAfter(time.Millisecond, func() { close(done) })
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler died after a panic")
	}
}

func TestSchedulerStop(t *testing.T) {
	var s Scheduler
	var ran atomic.Int32
	s.ScheduleAfter(time.Hour, func() { ran.Add(1) })
	s.Stop()
	if _, ok := s.ScheduleAfter(0, func() { ran.Add(1) }); ok {
		t.Fatalf("a stopped scheduler takes no jobs")
	}
	s.Stop()
	if ran.Load() != 0 {
		t.Fatalf("pending jobs are dropped on stop")
	}
}
