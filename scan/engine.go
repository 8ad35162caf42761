// Package scan orchestrates wildcard pattern scans across the memory regions
// of a target process, fanning the work out over a fixed worker pool and
// caching resolved addresses behind an epoch-keyed LRU.
package scan

import (
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"

	"memprobe/pattern"
	"memprobe/probe"
	"memprobe/probe/region"
)

// Match is one resolved pattern occurrence.
type Match struct {
	Address probe.Address // Absolute address of the match
	Region  probe.Address // Base address of the region containing it
}

// Engine runs pattern scans over a process. It owns a worker pool with an
// explicit lifecycle (created with the engine, shut down by Close) and the
// result cache. One engine serves any number of handles.
type Engine struct {
	log     *logger.Logger
	cache   *resultCache
	workers int
	jobs    chan job

	mu     sync.Mutex
	epochs map[probe.ProcessID]uint64
	closed bool
}

type job struct {
	h     probe.Handle
	reg   region.Region
	pat   *pattern.Pattern
	slot  int
	table [][]Match
	wg    *sync.WaitGroup
}

// Option configures an Engine.
type Option func(*Engine)

// WithWorkers sets the worker pool size.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithCacheCapacity sets the result cache capacity.
func WithCacheCapacity(n int) Option {
	return func(e *Engine) {
		e.cache = newResultCache(n)
	}
}

// NewEngine creates an Engine and starts its worker pool. The pool defaults
// to the available hardware parallelism.
func NewEngine(options ...Option) *Engine {
	e := &Engine{
		log:     logger.NewLogger(coloransi.Color(coloransi.ColorTeal, coloransi.ColorOrange, "scan-engine")),
		cache:   newResultCache(DefaultCacheCapacity),
		workers: runtime.GOMAXPROCS(0),
		epochs:  make(map[probe.ProcessID]uint64),
	}

	for _, opt := range options {
		opt(e)
	}

	e.jobs = make(chan job)
	for i := 0; i < e.workers; i++ {
		go e.worker()
	}

	return e
}

// Close shuts down the worker pool. The engine must not be used afterwards.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.mu.Unlock()

	close(e.jobs)
}

// Epoch returns the current identity epoch for a process. Cached results are
// keyed by it, so bumping the epoch makes stale entries unreachable.
func (e *Engine) Epoch(pid probe.ProcessID) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.epochs[pid]
}

// Invalidate bumps the identity epoch for a process, e.g. after the caller
// detects a module reload or reopens the handle.
func (e *Engine) Invalidate(pid probe.ProcessID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.epochs[pid]++
	e.log.Debugln("Epoch for process", pid, "bumped to", e.epochs[pid])
}

// Scan finds all occurrences of the pattern within the scope. Results are
// ordered by ascending address and are deterministic for a fixed region
// snapshot regardless of worker pool size. Regions that fail to read are
// skipped; the scan only fails outright if the process itself is gone.
func (e *Engine) Scan(h probe.Handle, pat *pattern.Pattern, scope Scope) ([]Match, error) {
	key := cacheKey{
		pid:     h.PID(),
		epoch:   e.Epoch(h.PID()),
		pattern: pat.String(),
		scope:   scope.key(),
	}

	if entry, ok := e.cache.get(key); ok {
		e.log.Debugln("Cache hit for pattern", pat.String())
		return entry.matches, nil
	}

	if !h.Alive() {
		return nil, fmt.Errorf("scan process %d: %w", h.PID(), probe.ErrProcessGone)
	}

	regions, err := h.Regions()
	if err != nil {
		if !h.Alive() {
			return nil, fmt.Errorf("scan process %d: %w", h.PID(), probe.ErrProcessGone)
		}
		return nil, fmt.Errorf("failed to enumerate regions: %w", err)
	}

	cat := region.NewCatalog(regions)

	var mods []region.Module
	if scope.Kind == ScopeModule {
		mods, err = h.Modules()
		if err != nil {
			return nil, fmt.Errorf("failed to enumerate modules: %w", err)
		}
	}

	targets := scope.filter(cat, mods)
	e.log.Infoln("Scanning", len(targets), "regions for pattern of length", pat.Len())

	// Each region gets its own slot in the result table, so workers never
	// share mutable state and the merge below is a concatenation in region
	// base address order rather than a sort.
	table := make([][]Match, len(targets))
	var wg sync.WaitGroup

	for i, reg := range targets {
		if !h.Alive() {
			// Dead process: stop assigning work rather than issue doomed reads.
			wg.Wait()
			return nil, fmt.Errorf("scan process %d: %w", h.PID(), probe.ErrProcessGone)
		}
		wg.Add(1)
		e.jobs <- job{h: h, reg: reg, pat: pat, slot: i, table: table, wg: &wg}
	}

	wg.Wait()

	var results []Match
	for _, part := range table {
		results = append(results, part...)
	}

	e.cache.put(key, cacheEntry{matches: results, capturedAt: time.Now()})
	e.log.Infoln("Scan complete, found", len(results), "matches")

	return results, nil
}

// ScanFirst returns the lowest-addressed occurrence of the pattern.
func (e *Engine) ScanFirst(h probe.Handle, pat *pattern.Pattern, scope Scope) (Match, error) {
	results, err := e.Scan(h, pat, scope)
	if err != nil {
		return Match{}, err
	}
	if len(results) == 0 {
		return Match{}, fmt.Errorf("pattern %q: %w", pat.String(), probe.ErrNotFound)
	}
	return results[0], nil
}

func (e *Engine) worker() {
	for j := range e.jobs {
		j.table[j.slot] = e.scanRegion(j.h, j.reg, j.pat)
		j.wg.Done()
	}
}

func (e *Engine) scanRegion(h probe.Handle, reg region.Region, pat *pattern.Pattern) []Match {
	data, err := h.ReadBytes(probe.Address(reg.Base), probe.Size(reg.Size))
	if err != nil {
		// The region may have been freed or reprotected since the snapshot;
		// a partial scan is acceptable.
		e.log.Debugln("Failed to read region at", fmt.Sprintf("%x", reg.Base), err)
		return nil
	}

	offsets := pat.FindAll(data)
	if len(offsets) == 0 {
		return nil
	}

	matches := make([]Match, len(offsets))
	for i, off := range offsets {
		matches[i] = Match{
			Address: probe.Address(reg.Base + uint64(off)),
			Region:  probe.Address(reg.Base),
		}
	}
	return matches
}
