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
	"container/heap"
	"log"
	"runtime/debug"
	"sync"
	"time"
)

type Job func()

type job struct {
	runAt time.Time
	fn    Job
	id    uint64
}

type jobHeap []job

func (h jobHeap) Len() int { return len(h) }

func (h jobHeap) Less(i, j int) bool {
	if h[i].runAt.Equal(h[j].runAt) {
		return h[i].id < h[j].id
	}
	return h[i].runAt.Before(h[j].runAt)
}

func (h jobHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *jobHeap) Push(x any) { *h = append(*h, x.(job)) }

func (h *jobHeap) Pop() any {
	old := *h
	item := old[len(old)-1]
	*h = old[:len(old)-1]
	return item
}

// Scheduler runs jobs at a point in time on one background goroutine.
// The zero value is ready to use.
type Scheduler struct {
	mu       sync.Mutex
	jobs     jobHeap
	cancel   map[uint64]struct{}
	wakeCh   chan struct{}
	stopCh   chan struct{}
	stopped  bool
	nextID   uint64
	initOnce sync.Once
	wg       sync.WaitGroup
}

func (s *Scheduler) init() {
	s.initOnce.Do(func() {
		s.wakeCh = make(chan struct{}, 1)
		s.stopCh = make(chan struct{})
		s.cancel = make(map[uint64]struct{})
		s.wg.Add(1)
		go s.run()
	})
}

// ScheduleAfter queues fn; the id can be passed to Clear.
func (s *Scheduler) ScheduleAfter(delay time.Duration, fn Job) (uint64, bool) {
	s.init()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped || fn == nil {
		return 0, false
	}
	s.nextID++
	heap.Push(&s.jobs, job{time.Now().Add(delay), fn, s.nextID})
	s.wake()
	return s.nextID, true
}

func (s *Scheduler) Clear(id uint64) {
	s.init()
	s.mu.Lock()
	s.cancel[id] = struct{}{}
	s.mu.Unlock()
	s.wake()
}

// Stop drops all pending jobs and waits for the scheduler goroutine.
func (s *Scheduler) Stop() {
	s.init()
	s.mu.Lock()
	if !s.stopped {
		s.stopped = true
		close(s.stopCh)
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Scheduler) wake() {
	select {
	case s.wakeCh <- struct{}{}:
	default:
	}
}

func runJob(fn Job) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("scheduler: job panic: %v\n%s", r, debug.Stack())
		}
	}()
	fn()
}

func (s *Scheduler) run() {
	defer s.wg.Done()
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	for {
		s.mu.Lock()
		var wait <-chan time.Time
		if len(s.jobs) > 0 {
			next := s.jobs[0]
			if _, cancelled := s.cancel[next.id]; cancelled {
				heap.Pop(&s.jobs)
				delete(s.cancel, next.id)
				s.mu.Unlock()
				continue
			}
			if d := time.Until(next.runAt); d <= 0 {
				heap.Pop(&s.jobs)
				s.mu.Unlock()
				runJob(next.fn)
				continue
			} else {
				timer.Reset(d)
				wait = timer.C
			}
		}
		s.mu.Unlock()
		select {
		case <-wait:
		case <-s.wakeCh:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
		case <-s.stopCh:
			timer.Stop()
			return
		}
	}
}
