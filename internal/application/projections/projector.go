package projections

import (
	"sync"

	"rollcall/internal/domain/attendance"
	"rollcall/internal/domain/snapshot"
)

// Projector memoizes projections per snapshot version. A newer version drops
// every cached result. Returned slices are shared between callers and must be
// treated as read-only.
type Projector struct {
	mu       sync.Mutex
	version  uint64
	primed   bool
	today    map[string][]string
	rosters  map[string][]attendance.Record
	overview map[string][]ActivityCompletion
	names    []string
	misses   int
}

// NewProjector creates an empty projector.
func NewProjector() *Projector {
	return &Projector{}
}

// resetLocked clears caches when snap is a different version.
func (p *Projector) resetLocked(snap snapshot.Snapshot) {
	if p.primed && p.version == snap.Version {
		return
	}
	p.primed = true
	p.version = snap.Version
	p.today = make(map[string][]string)
	p.rosters = make(map[string][]attendance.Record)
	p.overview = make(map[string][]ActivityCompletion)
	p.names = nil
}

// TodaysActivities memoizes QueryGetTodaysActivities.
func (p *Projector) TodaysActivities(snap snapshot.Snapshot, today string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resetLocked(snap)
	if v, ok := p.today[today]; ok {
		return v
	}
	p.misses++
	v := QueryGetTodaysActivities(snap.Records, today)
	p.today[today] = v
	return v
}

// Roster memoizes QueryGetRoster.
func (p *Projector) Roster(snap snapshot.Snapshot, activity string) []attendance.Record {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resetLocked(snap)
	if v, ok := p.rosters[activity]; ok {
		return v
	}
	p.misses++
	v := QueryGetRoster(snap.Records, activity)
	p.rosters[activity] = v
	return v
}

// CompletionOverview memoizes QueryGetCompletionOverview.
func (p *Projector) CompletionOverview(snap snapshot.Snapshot, today string) []ActivityCompletion {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resetLocked(snap)
	if v, ok := p.overview[today]; ok {
		return v
	}
	p.misses++
	v := QueryGetCompletionOverview(snap.Records, today)
	p.overview[today] = v
	return v
}

// ActivityNames memoizes QueryGetActivityNames.
func (p *Projector) ActivityNames(snap snapshot.Snapshot) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resetLocked(snap)
	if p.names != nil {
		return p.names
	}
	p.misses++
	p.names = QueryGetActivityNames(snap.Records)
	if p.names == nil {
		p.names = []string{}
	}
	return p.names
}
