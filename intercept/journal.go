package intercept

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Entry records what a Router did with one request.
type Entry struct {
	Seq     int64
	Method  string
	URL     string
	Pattern string // empty if no rule matched
	Action  Action
	Err     error
}

// Intercepted reports whether a rule handled the request, as opposed to it passing straight
// through.
func (e Entry) Intercepted() bool {
	return e.Pattern != ""
}

func (e Entry) String() string {
	rule := "no rule"
	if e.Intercepted() {
		rule = fmt.Sprintf("rule %q", e.Pattern)
	}
	s := fmt.Sprintf("#%d %s %s: %s (%s)", e.Seq, e.Method, e.URL, e.Action, rule)
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

// Journal is the ordered history of a router's decisions. Handlers for different requests can
// finish in any order, but entries become visible strictly in the order the requests were
// dispatched: an entry that finishes early is held back until all of its predecessors have
// been recorded.
type Journal struct {
	entries  []Entry
	deferred []Entry
	lastSeq  int64
	changed  chan struct{}
	lock     sync.Mutex
}

func NewJournal() *Journal {
	return &Journal{changed: make(chan struct{})}
}

func (j *Journal) record(e Entry) {
	j.lock.Lock()
	defer j.lock.Unlock()
	if e.Seq > j.lastSeq+1 {
		j.deferred = append(j.deferred, e)
		sort.Slice(j.deferred, func(a, b int) bool { return j.deferred[a].Seq < j.deferred[b].Seq })
		return
	}
	j.release(e)
	for len(j.deferred) > 0 {
		next := j.deferred[0]
		if next.Seq != j.lastSeq+1 {
			break
		}
		j.deferred = j.deferred[1:]
		j.release(next)
	}
}

func (j *Journal) release(e Entry) {
	j.lastSeq = e.Seq
	j.entries = append(j.entries, e)
	close(j.changed)
	j.changed = make(chan struct{})
}

// Entries returns a snapshot of the entries that have been released so far, in order.
func (j *Journal) Entries() []Entry {
	j.lock.Lock()
	defer j.lock.Unlock()
	return append([]Entry(nil), j.entries...)
}

// Pending returns entries that have completed but are still waiting for an earlier request
// to finish. A non-empty result after a test times out usually points at a hung handler.
func (j *Journal) Pending() []Entry {
	j.lock.Lock()
	defer j.lock.Unlock()
	return append([]Entry(nil), j.deferred...)
}

// Await blocks until an entry satisfying the predicate has been released, or the context ends.
// Entries that were released before the call are considered too.
func (j *Journal) Await(ctx context.Context, match func(Entry) bool) (Entry, error) {
	next := 0
	for {
		j.lock.Lock()
		for ; next < len(j.entries); next++ {
			if match(j.entries[next]) {
				e := j.entries[next]
				j.lock.Unlock()
				return e, nil
			}
		}
		changed := j.changed
		j.lock.Unlock()

		select {
		case <-changed:
		case <-ctx.Done():
			return Entry{}, fmt.Errorf("no matching request was intercepted: %w", ctx.Err())
		}
	}
}

// URLMatches returns a predicate for Await that selects entries whose URL matches the pattern.
func URLMatches(p Pattern) func(Entry) bool {
	return func(e Entry) bool { return p.Match(e.URL) }
}
