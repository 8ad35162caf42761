// Package session is the caller-facing surface of the engine, consumed by
// the host-language binding layer: attach to a process, scan patterns, read
// typed values and pointer chains, and invalidate cached results.
package session

import (
	"fmt"
	"sync"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
	gops "github.com/shirou/gopsutil/v3/process"

	"memprobe/pattern"
	"memprobe/probe"
	"memprobe/probe/region"
	"memprobe/scan"
	"memprobe/snapshot"
	"memprobe/structview"
)

// Session binds one attached process to a scan engine and a typed reader.
type Session struct {
	log       *logger.Logger
	access    probe.MemoryAccess
	engine    *scan.Engine
	ownEngine bool

	mu      sync.Mutex
	handle  probe.Handle
	reader  *structview.Reader
	modules []region.Module
}

// Option configures a Session.
type Option func(*Session)

// WithEngine supplies a shared scan engine instead of a private one.
func WithEngine(e *scan.Engine) Option {
	return func(s *Session) {
		s.engine = e
	}
}

// New creates a Session over a platform access collaborator.
func New(access probe.MemoryAccess, options ...Option) *Session {
	s := &Session{
		log:    logger.NewLogger(coloransi.Color(coloransi.Red, coloransi.ColorOrange, "session-not-attached")),
		access: access,
	}

	for _, opt := range options {
		opt(s)
	}

	if s.engine == nil {
		s.engine = scan.NewEngine()
		s.ownEngine = true
	}

	return s
}

// Attach opens the process with the given PID. Attaching while already
// attached closes the previous handle and bumps its epoch.
func (s *Session) Attach(pid probe.ProcessID) error {
	h, err := s.access.Open(pid)
	if err != nil {
		return fmt.Errorf("attach to PID %d: %w", pid, err)
	}

	mods, err := h.Modules()
	if err != nil {
		h.Close()
		return fmt.Errorf("attach to PID %d: %w", pid, err)
	}

	s.mu.Lock()
	if s.handle != nil {
		s.handle.Close()
		s.engine.Invalidate(s.handle.PID())
	}
	s.handle = h
	s.reader = structview.NewReader(h)
	s.modules = mods
	s.log = logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, fmt.Sprintf("session-%d", pid)))
	s.mu.Unlock()

	// A reopened handle must never see results cached for a previous
	// incarnation of the same PID.
	s.engine.Invalidate(pid)

	s.log.Infoln("Attached to process", pid)
	return nil
}

// AttachName finds a process by exact name and attaches to the first match.
func (s *Session) AttachName(name string) error {
	procs, err := gops.Processes()
	if err != nil {
		return fmt.Errorf("list processes: %w", err)
	}

	for _, p := range procs {
		procName, err := p.Name()
		if err != nil || procName != name {
			continue
		}
		return s.Attach(probe.ProcessID(p.Pid))
	}

	return fmt.Errorf("process %q: %w", name, probe.ErrNotFound)
}

func (s *Session) current() (probe.Handle, *structview.Reader, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handle == nil {
		return nil, nil, fmt.Errorf("session: %w: no process attached", probe.ErrProcessGone)
	}
	return s.handle, s.reader, nil
}

// Handle returns the attached process handle.
func (s *Session) Handle() (probe.Handle, error) {
	h, _, err := s.current()
	return h, err
}

// ScanPattern finds all occurrences of a pattern string within the scope and
// returns their resolved addresses in ascending order.
func (s *Session) ScanPattern(patternString string, scope scan.Scope) ([]probe.Address, error) {
	h, _, err := s.current()
	if err != nil {
		return nil, err
	}

	pat, err := pattern.Parse(patternString)
	if err != nil {
		return nil, err
	}

	matches, err := s.engine.Scan(h, pat, scope)
	if err != nil {
		return nil, err
	}

	addrs := make([]probe.Address, len(matches))
	for i, m := range matches {
		addrs[i] = m.Address
	}
	return addrs, nil
}

// ReadTyped captures a validated typed view at addr.
func (s *Session) ReadTyped(addr probe.Address, desc structview.Descriptor) (*structview.View, error) {
	_, r, err := s.current()
	if err != nil {
		return nil, err
	}
	return r.Read(addr, desc)
}

// ReadPointerChain walks a pointer chain from base and captures a typed view
// at its end. The chain fails at the first invalid hop.
func (s *Session) ReadPointerChain(base probe.Address, desc structview.Descriptor, offsets ...uint64) (*structview.View, error) {
	_, r, err := s.current()
	if err != nil {
		return nil, err
	}
	return r.ReadChain(base, desc, offsets...)
}

// WriteBytes writes raw bytes into the attached process.
func (s *Session) WriteBytes(addr probe.Address, data []byte) error {
	h, _, err := s.current()
	if err != nil {
		return err
	}
	return h.WriteBytes(addr, data)
}

// Invalidate forces a new identity epoch for the attached process, making all
// cached scan results unreachable.
func (s *Session) Invalidate() {
	s.mu.Lock()
	h := s.handle
	s.mu.Unlock()
	if h != nil {
		s.engine.Invalidate(h.PID())
	}
}

// RefreshModules re-enumerates the module list and bumps the epoch if it
// changed, e.g. after the target loaded or unloaded a library. It reports
// whether a change was detected.
func (s *Session) RefreshModules() (bool, error) {
	h, _, err := s.current()
	if err != nil {
		return false, err
	}

	mods, err := h.Modules()
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	changed := !sameModules(s.modules, mods)
	s.modules = mods
	s.mu.Unlock()

	if changed {
		s.log.Infoln("Module layout changed, invalidating cached results")
		s.engine.Invalidate(h.PID())
	}
	return changed, nil
}

// SaveSnapshot dumps the attached process's readable memory to a directory
// for offline analysis.
func (s *Session) SaveSnapshot(dirname string) error {
	h, _, err := s.current()
	if err != nil {
		return err
	}
	return snapshot.Save(h, dirname)
}

// Close detaches from the process and shuts down a privately owned engine.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.handle != nil {
		s.handle.Close()
		s.engine.Invalidate(s.handle.PID())
		s.handle = nil
		s.reader = nil
	}
	if s.ownEngine {
		s.engine.Close()
	}

	s.log.Infoln("Session closed")
	return nil
}

func sameModules(a, b []region.Module) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Path != b[i].Path || a[i].Base != b[i].Base || a[i].Size != b[i].Size {
			return false
		}
	}
	return true
}
