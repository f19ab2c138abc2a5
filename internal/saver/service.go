package saver

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sync"
	"time"
)

// DefaultPollInterval is the delay between two stability checks.
const DefaultPollInterval = time.Second

// Options tunes a Service. The zero value is usable.
type Options struct {
	// PollInterval is the delay between ticks in Run. Defaults to DefaultPollInterval.
	PollInterval time.Duration
	// GraceWindow is the minimum age of the previous committed backup before a
	// new one is created. Zero disables it.
	GraceWindow time.Duration
	// Mirror, when set, receives a copy of each new snapshot.
	Mirror Mirror
	// Metrics defaults to NopMetrics.
	Metrics Metrics
}

// Row is one snapshot as presented to a collaborator.
type Row struct {
	Index    int
	Snapshot Snapshot
	Applied  bool
}

// Service is the backup versioning engine for one watch session. Every
// operation runs under one lock, so a tick and a user-triggered Apply or
// Rename never interleave and at most one stability check is in flight.
type Service struct {
	mu sync.Mutex

	fsys     FilesystemManager
	sniffer  TurnSniffer
	journal  Journal
	mirror   Mirror
	metrics  Metrics
	logger   Logger
	listener Listener
	clock    Clock
	idgen    IDGenerator

	interval time.Duration
	grace    time.Duration

	sourcePath  string
	store       *Store
	poll        pollState
	unavailable bool
}

// NewService creates a Service with the provided dependencies. It is idle until
// SetWatchTarget is called.
func NewService(fsys FilesystemManager, sniffer TurnSniffer, journal Journal, logger Logger, clock Clock, idgen IDGenerator, opts Options) *Service {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.Metrics == nil {
		opts.Metrics = NopMetrics{}
	}
	if sniffer == nil {
		sniffer = NoTurn{}
	}
	if journal == nil {
		journal = NopJournal{}
	}
	return &Service{
		fsys:     fsys,
		sniffer:  sniffer,
		journal:  journal,
		mirror:   opts.Mirror,
		metrics:  opts.Metrics,
		logger:   logger,
		listener: NopListener{},
		clock:    clock,
		idgen:    idgen,
		interval: opts.PollInterval,
		grace:    opts.GraceWindow,
		poll:     pollState{phase: PhaseIdle},
	}
}

// SetListener installs the event listener. nil restores the no-op listener.
func (s *Service) SetListener(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l == nil {
		l = NopListener{}
	}
	s.listener = l
}

// SetWatchTarget starts a new watch session on sourcePath, backing up into
// destDir. The destination is scanned for existing snapshots; it is only
// created by the first backup. Poll state is reset and earlier row indices become invalid.
// The source does not have to exist yet.
func (s *Service) SetWatchTarget(sourcePath, destDir string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sourcePath == "" || destDir == "" {
		return &Error{Kind: ErrNoTarget, Path: sourcePath, Err: errors.New("source and destination are required")}
	}
	sourcePath = filepath.Clean(sourcePath)
	destDir = filepath.Clean(destDir)

	store := NewStore(filepath.Base(sourcePath), destDir)
	if err := store.Rescan(s.fsys); err != nil {
		return fmt.Errorf("scanning destination directory: %w", err)
	}

	s.sourcePath = sourcePath
	s.store = store
	s.poll = newPollState(s.grace)
	s.unavailable = false

	s.metrics.SnapshotsKnown(store.Len())
	s.logger.Info("watch target set", "source", sourcePath, "destination", destDir, "snapshots", store.Len())
	s.record(JournalWatch, "", destDir)
	s.listener.OnLog(fmt.Sprintf("watching %s, %d snapshot(s) in %s", sourcePath, store.Len(), destDir))
	s.listener.OnStoreChanged()
	return nil
}

// Rescan rebuilds the snapshot rows from the destination directory without
// resetting poll state. Earlier row indices become invalid.
func (s *Service) Rescan() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireTargetLocked(); err != nil {
		return err
	}
	if err := s.store.Rescan(s.fsys); err != nil {
		return fmt.Errorf("scanning destination directory: %w", err)
	}
	s.metrics.SnapshotsKnown(s.store.Len())
	s.listener.OnStoreChanged()
	return nil
}

// Tick runs one step of the stable-write detector. Failures are also reported
// through the listener; none of them stop the watch.
func (s *Service) Tick() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireTargetLocked(); err != nil {
		return err
	}
	s.metrics.TickObserved()
	return s.tickLocked()
}

// Run ticks until ctx is cancelled. The timer is re-armed only after a tick
// returns, so a slow copy delays the next check instead of overlapping it.
func (s *Service) Run(ctx context.Context) error {
	timer := time.NewTimer(s.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			// Errors already went to the listener and the log.
			_ = s.Tick()
			timer.Reset(s.interval)
		}
	}
}

// ListSnapshots returns the current rows with their applied state.
func (s *Service) ListSnapshots() ([]Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireTargetLocked(); err != nil {
		return nil, err
	}

	snaps := s.store.All()
	applied := Reconcile(s.liveMtimeLocked(), snaps)
	rows := make([]Row, len(snaps))
	for i, snap := range snaps {
		rows[i] = Row{Index: i, Snapshot: snap, Applied: applied[i]}
	}
	return rows, nil
}

// ApplySnapshot restores the snapshot at row onto the live source path: the
// snapshot is checked to be readable, the live file is removed, then the
// snapshot is copied in with its timestamp as mtime. An unreadable snapshot
// leaves the live file alone. If the copy fails after the removal, the live
// file is left missing. Both return ErrRestoreCopyFailed.
func (s *Service) ApplySnapshot(row int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireTargetLocked(); err != nil {
		return err
	}
	snap, err := s.store.Get(row)
	if err != nil {
		s.listener.OnError(err)
		return err
	}

	// Any half-observed write is void once the file is replaced.
	s.poll.settle()

	f, err := s.fsys.Open(snap.Path())
	if err != nil {
		return s.applyFailedLocked(snap, &Error{Kind: ErrRestoreCopyFailed, Path: snap.Path(), Err: err})
	}
	f.Close()

	if err := s.fsys.Remove(s.sourcePath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return s.applyFailedLocked(snap, &Error{Kind: ErrRemoveFailed, Path: s.sourcePath, Err: err})
	}
	if err := s.fsys.CopyFile(snap.Path(), s.sourcePath, snap.Timestamp); err != nil {
		return s.applyFailedLocked(snap, &Error{Kind: ErrRestoreCopyFailed, Path: s.sourcePath, Err: err})
	}

	s.metrics.SnapshotApplied()
	s.logger.Info("snapshot applied", "row", row, "file", snap.FileName())
	s.record(JournalApply, snap.FileName(), "")
	s.listener.OnLog(fmt.Sprintf("applied %s", snap.FileName()))
	s.listener.OnStoreChanged()
	return nil
}

func (s *Service) applyFailedLocked(snap Snapshot, err error) error {
	s.logger.Error("apply failed", "file", snap.FileName(), "error", err)
	s.record(JournalApplyFailed, snap.FileName(), err.Error())
	s.listener.OnError(err)
	return err
}

// RenameSnapshot changes the label of the snapshot at row, renaming its file.
// On failure the file and the row keep their previous label.
func (s *Service) RenameSnapshot(row int, label string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireTargetLocked(); err != nil {
		return err
	}

	before, _ := s.store.Get(row)
	after, err := s.store.Rename(s.fsys, row, label)
	if err != nil {
		s.logger.Warn("rename failed", "row", row, "label", label, "error", err)
		s.record(JournalRenameFailed, before.FileName(), err.Error())
		s.listener.OnError(err)
		return err
	}
	if after.FileName() == before.FileName() {
		return nil
	}

	s.metrics.SnapshotRenamed()
	s.logger.Info("snapshot renamed", "row", row, "from", before.FileName(), "to", after.FileName())
	s.record(JournalRename, after.FileName(), "from "+before.FileName())
	s.listener.OnStoreChanged()
	return nil
}

// SourcePath returns the watched source path, or "" when idle.
func (s *Service) SourcePath() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sourcePath
}

// DestinationDir returns the backup directory, or "" when idle.
func (s *Service) DestinationDir() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.store == nil {
		return ""
	}
	return s.store.Dir()
}

// Phase returns the detector state.
func (s *Service) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.poll.phase
}

// LastModified returns the last settled source mtime.
func (s *Service) LastModified() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.poll.lastModified
}

func (s *Service) requireTargetLocked() error {
	if s.store == nil {
		return &Error{Kind: ErrNoTarget, Err: errors.New("SetWatchTarget has not been called")}
	}
	return nil
}

// liveMtimeLocked returns the source mtime, or the zero time if the source is
// unavailable.
func (s *Service) liveMtimeLocked() time.Time {
	info, err := s.fsys.Stat(s.sourcePath)
	if err != nil || !info.Mode().IsRegular() {
		return time.Time{}
	}
	return truncateToSecond(info.ModTime())
}

func (s *Service) record(kind, snapshotName, detail string) {
	entry := &JournalEntry{
		ID:           s.idgen.New(),
		OccurredAt:   s.clock.Now(),
		Kind:         kind,
		SourcePath:   s.sourcePath,
		SnapshotName: snapshotName,
		Detail:       detail,
	}
	if err := s.journal.Record(entry); err != nil {
		s.logger.Warn("recording journal entry failed", "kind", kind, "error", err)
	}
}
