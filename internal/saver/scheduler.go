package saver

import (
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// Phase is the state of the stable-write detector.
type Phase int

const (
	// PhaseIdle: no watch target.
	PhaseIdle Phase = iota
	// PhaseWatching: waiting for the source mtime to move past lastModified.
	PhaseWatching
	// PhaseWriteSeen: a new mtime was seen; the next tick decides whether the
	// write has finished.
	PhaseWriteSeen
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseWatching:
		return "watching"
	case PhaseWriteSeen:
		return "write in progress"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// pollState is owned by the Service and reset whenever the target changes.
type pollState struct {
	phase Phase
	// lastModified is the last mtime considered settled. It starts at the zero
	// time so the first observation always counts as a change.
	lastModified time.Time
	pending      time.Time
	// limiter enforces the grace window between committed backups; nil when
	// the window is disabled.
	limiter *rate.Limiter
}

func newPollState(grace time.Duration) pollState {
	ps := pollState{phase: PhaseWatching}
	if grace > 0 {
		ps.limiter = rate.NewLimiter(rate.Every(grace), 1)
	}
	return ps
}

func (ps *pollState) settle() {
	ps.phase = PhaseWatching
	ps.pending = time.Time{}
}

// tickLocked runs one step of the detector. Callers hold s.mu.
func (s *Service) tickLocked() error {
	info, err := s.fsys.Stat(s.sourcePath)
	if err == nil && !info.Mode().IsRegular() {
		err = errors.New("not a regular file")
	}
	if err != nil {
		return s.sourceUnavailableLocked(err)
	}
	if s.unavailable {
		s.unavailable = false
		s.logger.Info("source available again", "path", s.sourcePath)
		s.listener.OnLog(fmt.Sprintf("source file %s is available again", s.sourcePath))
	}

	mtime := truncateToSecond(info.ModTime())

	switch s.poll.phase {
	case PhaseWatching:
		if mtime.After(s.poll.lastModified) {
			s.poll.phase = PhaseWriteSeen
			s.poll.pending = mtime
			s.logger.Debug("write detected", "path", s.sourcePath, "mtime", mtime)
		}
		return nil

	case PhaseWriteSeen:
		switch {
		case mtime.Equal(s.poll.pending):
			s.poll.settle()
			return s.commitLocked(mtime)
		case mtime.After(s.poll.lastModified):
			// Still being written.
			s.poll.pending = mtime
			s.logger.Debug("write still in progress", "path", s.sourcePath, "mtime", mtime)
		default:
			s.poll.settle()
		}
		return nil
	}

	return nil
}

func (s *Service) sourceUnavailableLocked(cause error) error {
	if s.poll.phase == PhaseWriteSeen {
		s.poll.settle()
	}

	err := &Error{Kind: ErrSourceUnavailable, Path: s.sourcePath, Err: cause}
	s.metrics.SourceUnavailable()
	if !s.unavailable {
		s.unavailable = true
		s.logger.Warn("source unavailable", "path", s.sourcePath, "error", cause)
		s.record(JournalSourceUnavailable, "", cause.Error())
	}
	s.listener.OnError(err)
	return err
}

// commitLocked handles a stability event for mtime.
func (s *Service) commitLocked(mtime time.Time) error {
	if row, ok := s.store.FindTimestamp(mtime); ok {
		s.poll.lastModified = mtime
		s.logger.Debug("backup already exists", "row", row, "mtime", mtime)
		return nil
	}

	now := s.clock.Now()
	if s.poll.limiter != nil && s.poll.limiter.TokensAt(now) < 1 {
		// lastModified stays put so the write is detected again after the
		// window and the newest state still gets a backup.
		s.metrics.BackupDeferred()
		s.logger.Debug("backup deferred by grace window", "mtime", mtime)
		return nil
	}

	snap, err := s.backupLocked(mtime)
	if err != nil {
		s.metrics.BackupFailed()
		s.logger.Error("backup failed", "path", s.sourcePath, "error", err)
		s.record(JournalBackupFailed, snap.FileName(), err.Error())
		s.listener.OnError(err)
		return err
	}

	s.poll.lastModified = mtime
	if s.poll.limiter != nil {
		s.poll.limiter.AllowN(now, 1)
	}
	row := s.store.Insert(snap)

	s.metrics.BackupCreated()
	s.metrics.SnapshotsKnown(s.store.Len())
	s.logger.Info("backup created", "row", row, "file", snap.FileName(), "turn", snap.Turn)
	s.record(JournalBackup, snap.FileName(), fmt.Sprintf("turn=%d", snap.Turn))
	s.listener.OnLog(fmt.Sprintf("backup created: %s", snap.FileName()))
	s.listener.OnStoreChanged()

	s.mirrorLocked(snap)
	return nil
}

// backupLocked copies the source into a freshly encoded snapshot path.
// The returned snapshot is filled in even on failure, for reporting.
func (s *Service) backupLocked(mtime time.Time) (Snapshot, error) {
	turn := s.sniffTurnLocked(s.sourcePath)
	snap := NewSnapshot(s.store.Dir(), s.store.SourceName(), mtime, turn, "")

	if err := s.fsys.MkdirAll(s.store.Dir()); err != nil {
		return snap, &Error{Kind: ErrCopyFailed, Path: s.store.Dir(), Err: fmt.Errorf("creating destination directory: %w", err)}
	}
	if err := s.fsys.CopyFile(s.sourcePath, snap.Path(), mtime); err != nil {
		return snap, &Error{Kind: ErrCopyFailed, Path: snap.Path(), Err: err}
	}

	// Re-stat to validate the source did not change while it was copied.
	info, err := s.fsys.Stat(s.sourcePath)
	if err != nil {
		return snap, s.discardLocked(snap, fmt.Errorf("re-stat source: %w", err))
	}
	if !truncateToSecond(info.ModTime()).Equal(mtime) {
		return snap, s.discardLocked(snap, errors.New("source changed during copy"))
	}

	return snap, nil
}

// discardLocked removes a copy that cannot be trusted. A failed removal is
// part of the returned error, since the bad copy will show up on the next
// rescan.
func (s *Service) discardLocked(snap Snapshot, cause error) error {
	if err := s.fsys.Remove(snap.Path()); err != nil {
		cause = errors.Join(cause, fmt.Errorf("removing bad copy: %w", err))
	}
	return &Error{Kind: ErrCopyFailed, Path: snap.Path(), Err: cause}
}

func (s *Service) sniffTurnLocked(path string) int {
	f, err := s.fsys.Open(path)
	if err != nil {
		return 0
	}
	defer f.Close()
	return s.sniffer.Sniff(f)
}

func (s *Service) mirrorLocked(snap Snapshot) {
	if s.mirror == nil {
		return
	}

	info, err := s.fsys.Stat(snap.Path())
	if err != nil {
		s.reportMirrorFailure(snap, err)
		return
	}
	f, err := s.fsys.Open(snap.Path())
	if err != nil {
		s.reportMirrorFailure(snap, err)
		return
	}
	defer f.Close()

	if err := s.mirror.Put(snap.FileName(), f, info.Size()); err != nil {
		s.reportMirrorFailure(snap, err)
		return
	}
	s.logger.Debug("snapshot mirrored", "file", snap.FileName())
}

func (s *Service) reportMirrorFailure(snap Snapshot, err error) {
	s.logger.Warn("mirroring snapshot failed", "file", snap.FileName(), "error", err)
	s.listener.OnError(fmt.Errorf("mirroring %s: %w", snap.FileName(), err))
}
