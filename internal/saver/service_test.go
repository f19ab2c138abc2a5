package saver_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"autosaver/internal/saver"
	"autosaver/internal/testutil"
)

const sourcePath = "/saves/auto.sav"

var t1 = time.Date(2024, 3, 1, 21, 0, 0, 0, time.Local)

type fixedTurn int

func (f fixedTurn) Sniff(io.Reader) int { return int(f) }

type harness struct {
	svc      *saver.Service
	fsmgr    *testutil.MockFilesystemManager
	clock    *testutil.StubClock
	listener *testutil.RecordingListener
}

func newHarness(t *testing.T, opts saver.Options, journal saver.Journal) *harness {
	t.Helper()
	h := &harness{
		fsmgr:    testutil.NewMockFilesystemManager(),
		clock:    testutil.FixedClock(),
		listener: testutil.NewRecordingListener(),
	}
	h.svc = saver.NewService(h.fsmgr, fixedTurn(42), journal, saver.NewNopLogger(), h.clock, testutil.NewStubIDGenerator(), opts)
	h.svc.SetListener(h.listener)
	return h
}

func (h *harness) watch(t *testing.T) {
	t.Helper()
	if err := h.svc.SetWatchTarget(sourcePath, backupDir); err != nil {
		t.Fatalf("SetWatchTarget() error = %v", err)
	}
}

func (h *harness) tick(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if err := h.svc.Tick(); err != nil {
			t.Fatalf("Tick() error = %v", err)
		}
	}
}

func (h *harness) rows(t *testing.T) []saver.Row {
	t.Helper()
	rows, err := h.svc.ListSnapshots()
	if err != nil {
		t.Fatalf("ListSnapshots() error = %v", err)
	}
	return rows
}

func TestService_NoTarget(t *testing.T) {
	h := newHarness(t, saver.Options{}, nil)

	if err := h.svc.Tick(); !errors.Is(err, saver.ErrNoTarget) {
		t.Errorf("Tick() = %v, want ErrNoTarget", err)
	}
	if _, err := h.svc.ListSnapshots(); !errors.Is(err, saver.ErrNoTarget) {
		t.Errorf("ListSnapshots() = %v, want ErrNoTarget", err)
	}
	if err := h.svc.ApplySnapshot(0); !errors.Is(err, saver.ErrNoTarget) {
		t.Errorf("ApplySnapshot() = %v, want ErrNoTarget", err)
	}
	if err := h.svc.SetWatchTarget("", backupDir); !errors.Is(err, saver.ErrNoTarget) {
		t.Errorf("SetWatchTarget() = %v, want ErrNoTarget", err)
	}
	if h.svc.Phase() != saver.PhaseIdle {
		t.Errorf("Phase() = %v, want idle", h.svc.Phase())
	}
}

func TestService_SetWatchTarget(t *testing.T) {
	h := newHarness(t, saver.Options{}, nil)
	addSnapshot(h.fsmgr, t1.Add(-time.Hour), 0, "")
	addSnapshot(h.fsmgr, t1.Add(-2*time.Hour), 0, "")

	if err := h.svc.SetWatchTarget(sourcePath+"/", backupDir); err != nil {
		t.Fatal(err)
	}
	if h.svc.SourcePath() != sourcePath {
		t.Errorf("SourcePath() = %q", h.svc.SourcePath())
	}
	if h.svc.Phase() != saver.PhaseWatching {
		t.Errorf("Phase() = %v", h.svc.Phase())
	}
	if rows := h.rows(t); len(rows) != 2 {
		t.Errorf("rows = %d, want 2", len(rows))
	}
	if h.listener.StoreChanges != 1 || len(h.listener.Logs) != 1 {
		t.Errorf("listener = %+v", h.listener)
	}

	t.Run("destination is created by the first backup", func(t *testing.T) {
		h := newHarness(t, saver.Options{}, nil)
		h.watch(t)
		if _, err := h.fsmgr.Stat(backupDir); err == nil {
			t.Fatal("destination created before any backup")
		}

		h.fsmgr.AddFile(sourcePath, []byte("v1"), t1)
		h.tick(t, 2)
		if info, err := h.fsmgr.Stat(backupDir); err != nil || !info.IsDir() {
			t.Errorf("destination not created: %v", err)
		}
		if n := len(h.fsmgr.Names(backupDir)); n != 1 {
			t.Errorf("files = %d, want 1", n)
		}
	})
}

func TestService_Tick(t *testing.T) {
	t.Run("backs up only after mtime holds for two ticks", func(t *testing.T) {
		h := newHarness(t, saver.Options{}, nil)
		h.fsmgr.AddFile(sourcePath, []byte("v1"), t1.Add(400*time.Millisecond))
		h.watch(t)

		h.tick(t, 1)
		if h.svc.Phase() != saver.PhaseWriteSeen {
			t.Fatalf("Phase() = %v, want write in progress", h.svc.Phase())
		}
		if n := len(h.fsmgr.Names(backupDir)); n != 0 {
			t.Fatalf("backup created after one tick (%d files)", n)
		}

		h.tick(t, 1)
		rows := h.rows(t)
		if len(rows) != 1 {
			t.Fatalf("rows = %d, want 1", len(rows))
		}
		snap := rows[0].Snapshot
		if !snap.Timestamp.Equal(t1) || snap.Turn != 42 || snap.Label != "" {
			t.Errorf("snapshot = %+v", snap)
		}
		if !rows[0].Applied {
			t.Error("fresh backup should be the applied row")
		}
		f := h.fsmgr.File(snap.Path())
		if f == nil || string(f.Content) != "v1" || !f.ModTime.Equal(t1) {
			t.Errorf("backup file = %+v", f)
		}
		if !h.svc.LastModified().Equal(t1) {
			t.Errorf("LastModified() = %v", h.svc.LastModified())
		}
	})

	t.Run("waits while the write keeps moving", func(t *testing.T) {
		h := newHarness(t, saver.Options{}, nil)
		h.fsmgr.AddFile(sourcePath, []byte("v1"), t1)
		h.watch(t)

		h.tick(t, 1)
		h.fsmgr.Touch(sourcePath, t1.Add(time.Second))
		h.tick(t, 1)
		if n := len(h.fsmgr.Names(backupDir)); n != 0 {
			t.Fatalf("backup created mid-write (%d files)", n)
		}
		h.tick(t, 1)

		rows := h.rows(t)
		if len(rows) != 1 || !rows[0].Snapshot.Timestamp.Equal(t1.Add(time.Second)) {
			t.Errorf("rows = %+v", rows)
		}
	})

	t.Run("existing timestamp is not duplicated", func(t *testing.T) {
		h := newHarness(t, saver.Options{}, nil)
		addSnapshot(h.fsmgr, t1, 0, "manual")
		h.fsmgr.AddFile(sourcePath, []byte("v1"), t1)
		h.watch(t)

		h.tick(t, 4)
		if n := len(h.fsmgr.Names(backupDir)); n != 1 {
			t.Errorf("files = %d, want 1", n)
		}
		if !h.svc.LastModified().Equal(t1) {
			t.Errorf("LastModified() = %v", h.svc.LastModified())
		}
	})

	t.Run("second stable write gets a second backup", func(t *testing.T) {
		h := newHarness(t, saver.Options{}, nil)
		h.fsmgr.AddFile(sourcePath, []byte("v1"), t1)
		h.watch(t)
		h.tick(t, 2)

		h.fsmgr.AddFile(sourcePath, []byte("v2"), t1.Add(time.Minute))
		h.tick(t, 2)

		rows := h.rows(t)
		if len(rows) != 2 {
			t.Fatalf("rows = %d, want 2", len(rows))
		}
		if rows[0].Applied || !rows[1].Applied {
			t.Errorf("applied = %v, %v", rows[0].Applied, rows[1].Applied)
		}
	})
}

func TestService_Tick_CopyFailures(t *testing.T) {
	t.Run("failed copy is retried", func(t *testing.T) {
		h := newHarness(t, saver.Options{}, nil)
		h.fsmgr.AddFile(sourcePath, []byte("v1"), t1)
		h.watch(t)

		fail := true
		h.fsmgr.CopyHook = func(string, string) error {
			if fail {
				fail = false
				return errors.New("disk full")
			}
			return nil
		}

		h.tick(t, 1)
		if err := h.svc.Tick(); !errors.Is(err, saver.ErrCopyFailed) {
			t.Fatalf("Tick() = %v, want ErrCopyFailed", err)
		}
		if len(h.listener.Errors) != 1 {
			t.Errorf("listener errors = %v", h.listener.Errors)
		}
		if !h.svc.LastModified().IsZero() {
			t.Error("LastModified advanced after a failed copy")
		}

		h.tick(t, 2)
		if n := len(h.fsmgr.Names(backupDir)); n != 1 {
			t.Errorf("files = %d, want 1", n)
		}
	})

	t.Run("source changed during copy", func(t *testing.T) {
		h := newHarness(t, saver.Options{}, nil)
		h.fsmgr.AddFile(sourcePath, []byte("v1"), t1)
		h.watch(t)

		touched := false
		h.fsmgr.CopyHook = func(string, string) error {
			if !touched {
				touched = true
				h.fsmgr.AddFile(sourcePath, []byte("v2"), t1.Add(time.Second))
			}
			return nil
		}

		h.tick(t, 1)
		err := h.svc.Tick()
		if !errors.Is(err, saver.ErrCopyFailed) {
			t.Fatalf("Tick() = %v, want ErrCopyFailed", err)
		}
		if n := len(h.fsmgr.Names(backupDir)); n != 0 {
			t.Fatalf("partial backup left behind (%d files)", n)
		}

		h.tick(t, 2)
		rows := h.rows(t)
		if len(rows) != 1 || !rows[0].Snapshot.Timestamp.Equal(t1.Add(time.Second)) {
			t.Fatalf("rows = %+v", rows)
		}
		if f := h.fsmgr.File(rows[0].Snapshot.Path()); string(f.Content) != "v2" {
			t.Errorf("content = %q", f.Content)
		}
	})

	t.Run("failed cleanup is reported", func(t *testing.T) {
		h := newHarness(t, saver.Options{}, nil)
		h.fsmgr.AddFile(sourcePath, []byte("v1"), t1)
		h.watch(t)

		h.fsmgr.CopyHook = func(string, string) error {
			h.fsmgr.Touch(sourcePath, t1.Add(time.Second))
			return nil
		}
		h.fsmgr.RemoveHook = func(string) error { return errors.New("read-only") }

		h.tick(t, 1)
		err := h.svc.Tick()
		if !errors.Is(err, saver.ErrCopyFailed) {
			t.Fatalf("Tick() = %v, want ErrCopyFailed", err)
		}
		if !strings.Contains(err.Error(), "removing bad copy") || !strings.Contains(err.Error(), "read-only") {
			t.Errorf("error does not mention the failed cleanup: %v", err)
		}
	})
}

func TestService_Tick_GraceWindow(t *testing.T) {
	h := newHarness(t, saver.Options{GraceWindow: 10 * time.Second}, nil)
	h.fsmgr.AddFile(sourcePath, []byte("v1"), t1)
	h.watch(t)
	h.tick(t, 2)

	h.fsmgr.AddFile(sourcePath, []byte("v2"), t1.Add(time.Second))
	h.tick(t, 4)
	if n := len(h.fsmgr.Names(backupDir)); n != 1 {
		t.Fatalf("files = %d, want 1 inside the grace window", n)
	}

	h.clock.Advance(11 * time.Second)
	h.tick(t, 2)
	rows := h.rows(t)
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2 after the window", len(rows))
	}
	if !rows[1].Snapshot.Timestamp.Equal(t1.Add(time.Second)) {
		t.Errorf("deferred backup has timestamp %v", rows[1].Snapshot.Timestamp)
	}
}

func TestService_Tick_SourceUnavailable(t *testing.T) {
	j := testutil.NewTestJournal(t)
	h := newHarness(t, saver.Options{}, j)
	h.watch(t)

	for i := 0; i < 3; i++ {
		if err := h.svc.Tick(); !errors.Is(err, saver.ErrSourceUnavailable) {
			t.Fatalf("Tick() = %v, want ErrSourceUnavailable", err)
		}
	}
	if len(h.listener.Errors) != 3 {
		t.Errorf("listener errors = %d, want 3", len(h.listener.Errors))
	}

	entries, err := j.Recent(sourcePath, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 || entries[0].Kind != saver.JournalSourceUnavailable {
		t.Errorf("journal = %+v", entries)
	}

	h.fsmgr.AddFile(sourcePath, []byte("v1"), t1)
	h.listener.Reset()
	h.tick(t, 2)
	if len(h.listener.Logs) == 0 || !strings.Contains(h.listener.Logs[0], "available again") {
		t.Errorf("logs = %v", h.listener.Logs)
	}
	if len(h.rows(t)) != 1 {
		t.Error("no backup after recovery")
	}

	t.Run("directory is not a save file", func(t *testing.T) {
		h := newHarness(t, saver.Options{}, nil)
		h.fsmgr.AddDirectory(sourcePath)
		h.watch(t)
		if err := h.svc.Tick(); !errors.Is(err, saver.ErrSourceUnavailable) {
			t.Errorf("Tick() = %v, want ErrSourceUnavailable", err)
		}
	})
}

func TestService_ApplySnapshot(t *testing.T) {
	setup := func(t *testing.T, journal saver.Journal) *harness {
		t.Helper()
		h := newHarness(t, saver.Options{}, journal)
		h.fsmgr.AddFile(sourcePath, []byte("v1"), t1)
		h.watch(t)
		h.tick(t, 2)
		h.fsmgr.AddFile(sourcePath, []byte("v2"), t1.Add(time.Minute))
		h.tick(t, 2)
		h.listener.Reset()
		return h
	}

	t.Run("restores content and mtime", func(t *testing.T) {
		j := testutil.NewTestJournal(t)
		h := setup(t, j)

		if err := h.svc.ApplySnapshot(0); err != nil {
			t.Fatalf("ApplySnapshot() error = %v", err)
		}
		f := h.fsmgr.File(sourcePath)
		if string(f.Content) != "v1" || !f.ModTime.Equal(t1) {
			t.Errorf("live file = %q at %v", f.Content, f.ModTime)
		}
		rows := h.rows(t)
		if !rows[0].Applied || rows[1].Applied {
			t.Errorf("applied = %v, %v", rows[0].Applied, rows[1].Applied)
		}
		if h.listener.StoreChanges != 1 {
			t.Errorf("StoreChanges = %d", h.listener.StoreChanges)
		}

		h.tick(t, 4)
		if n := len(h.fsmgr.Names(backupDir)); n != 2 {
			t.Errorf("apply triggered a backup: %d files", n)
		}

		entries, _ := j.Recent(sourcePath, 1)
		if len(entries) != 1 || entries[0].Kind != saver.JournalApply {
			t.Errorf("journal = %+v", entries)
		}
	})

	t.Run("out of range", func(t *testing.T) {
		h := setup(t, nil)
		if err := h.svc.ApplySnapshot(5); !errors.Is(err, saver.ErrOutOfRange) {
			t.Errorf("ApplySnapshot() = %v, want ErrOutOfRange", err)
		}
		if string(h.fsmgr.File(sourcePath).Content) != "v2" {
			t.Error("live file changed")
		}
	})

	t.Run("remove failure leaves live file", func(t *testing.T) {
		h := setup(t, nil)
		h.fsmgr.RemoveHook = func(string) error { return errors.New("locked") }

		if err := h.svc.ApplySnapshot(0); !errors.Is(err, saver.ErrRemoveFailed) {
			t.Fatalf("ApplySnapshot() = %v, want ErrRemoveFailed", err)
		}
		if string(h.fsmgr.File(sourcePath).Content) != "v2" {
			t.Error("live file changed")
		}
		if len(h.listener.Errors) != 1 {
			t.Errorf("listener errors = %v", h.listener.Errors)
		}
	})

	t.Run("copy failure after remove", func(t *testing.T) {
		h := setup(t, nil)
		h.fsmgr.CopyHook = func(string, string) error { return errors.New("disk full") }

		if err := h.svc.ApplySnapshot(0); !errors.Is(err, saver.ErrRestoreCopyFailed) {
			t.Fatalf("ApplySnapshot() = %v, want ErrRestoreCopyFailed", err)
		}
		if h.fsmgr.File(sourcePath) != nil {
			t.Error("live file should be missing")
		}
		for _, row := range h.rows(t) {
			if row.Applied {
				t.Errorf("row %d marked applied without a live file", row.Index)
			}
		}
	})

	t.Run("unreadable snapshot leaves live file", func(t *testing.T) {
		h := setup(t, nil)
		h.fsmgr.Delete(h.rows(t)[0].Snapshot.Path())

		if err := h.svc.ApplySnapshot(0); !errors.Is(err, saver.ErrRestoreCopyFailed) {
			t.Fatalf("ApplySnapshot() = %v, want ErrRestoreCopyFailed", err)
		}
		if f := h.fsmgr.File(sourcePath); f == nil || string(f.Content) != "v2" {
			t.Errorf("live file = %+v, want v2 untouched", f)
		}
	})

	t.Run("missing live file is fine", func(t *testing.T) {
		h := setup(t, nil)
		h.fsmgr.Delete(sourcePath)

		if err := h.svc.ApplySnapshot(1); err != nil {
			t.Fatalf("ApplySnapshot() error = %v", err)
		}
		if string(h.fsmgr.File(sourcePath).Content) != "v2" {
			t.Error("live file not restored")
		}
	})
}

func TestService_RenameSnapshot(t *testing.T) {
	setup := func(t *testing.T) *harness {
		t.Helper()
		h := newHarness(t, saver.Options{}, nil)
		h.fsmgr.AddFile(sourcePath, []byte("v1"), t1)
		h.watch(t)
		h.tick(t, 2)
		h.listener.Reset()
		return h
	}

	t.Run("renames and keeps applied state", func(t *testing.T) {
		h := setup(t)
		if err := h.svc.RenameSnapshot(0, "before war"); err != nil {
			t.Fatalf("RenameSnapshot() error = %v", err)
		}
		want := saver.EncodeName("auto.sav", t1, 42, "before war")
		if names := h.fsmgr.Names(backupDir); len(names) != 1 || names[0] != want {
			t.Errorf("names = %v, want [%s]", names, want)
		}
		rows := h.rows(t)
		if rows[0].Snapshot.Label != "before war" || !rows[0].Applied {
			t.Errorf("row = %+v", rows[0])
		}
		if h.listener.StoreChanges != 1 {
			t.Errorf("StoreChanges = %d", h.listener.StoreChanges)
		}
	})

	t.Run("invalid label", func(t *testing.T) {
		h := setup(t)
		if err := h.svc.RenameSnapshot(0, "a.b"); !errors.Is(err, saver.ErrInvalidLabel) {
			t.Errorf("RenameSnapshot() = %v, want ErrInvalidLabel", err)
		}
		if len(h.listener.Errors) != 1 {
			t.Errorf("listener errors = %v", h.listener.Errors)
		}
	})

	t.Run("filesystem failure", func(t *testing.T) {
		h := setup(t)
		before := h.fsmgr.Names(backupDir)
		h.fsmgr.RenameHook = func(string, string) error { return errors.New("read-only") }

		if err := h.svc.RenameSnapshot(0, "x"); !errors.Is(err, saver.ErrRenameFailed) {
			t.Fatalf("RenameSnapshot() = %v, want ErrRenameFailed", err)
		}
		if after := h.fsmgr.Names(backupDir); after[0] != before[0] {
			t.Errorf("file renamed to %q", after[0])
		}
	})
}

func TestService_Mirror(t *testing.T) {
	m := testutil.NewTestMirror()
	h := newHarness(t, saver.Options{Mirror: m}, nil)
	h.fsmgr.AddFile(sourcePath, []byte("v1"), t1)
	h.watch(t)
	h.tick(t, 2)

	names, err := m.List()
	if err != nil {
		t.Fatal(err)
	}
	want := saver.EncodeName("auto.sav", t1, 42, "")
	if len(names) != 1 || names[0] != want {
		t.Errorf("mirror = %v, want [%s]", names, want)
	}

	var buf strings.Builder
	if err := m.Get(want, &buf); err != nil || buf.String() != "v1" {
		t.Errorf("mirror content = %q, %v", buf.String(), err)
	}
}

func TestService_Journal(t *testing.T) {
	j := testutil.NewTestJournal(t)
	h := newHarness(t, saver.Options{}, j)
	h.fsmgr.AddFile(sourcePath, []byte("v1"), t1)
	h.watch(t)
	h.tick(t, 2)
	if err := h.svc.RenameSnapshot(0, "keep"); err != nil {
		t.Fatal(err)
	}

	entries, err := j.Recent(sourcePath, 10)
	if err != nil {
		t.Fatal(err)
	}
	var kinds []string
	for _, e := range entries {
		kinds = append(kinds, e.Kind)
	}
	if got := strings.Join(kinds, ","); got != "rename,backup,watch" {
		t.Errorf("kinds = %s", got)
	}
	if entries[1].Detail != "turn=42" || entries[1].SnapshotName != saver.EncodeName("auto.sav", t1, 42, "") {
		t.Errorf("backup entry = %+v", entries[1])
	}
	if !entries[0].OccurredAt.Equal(h.clock.Now()) {
		t.Errorf("OccurredAt = %v", entries[0].OccurredAt)
	}
}

func TestService_Run(t *testing.T) {
	h := newHarness(t, saver.Options{PollInterval: 5 * time.Millisecond}, nil)
	h.fsmgr.AddFile(sourcePath, []byte("v1"), t1)
	h.watch(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.svc.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for {
		rows, err := h.svc.ListSnapshots()
		if err != nil {
			t.Fatal(err)
		}
		if len(rows) == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("no backup before deadline")
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run() = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}
}

func TestPhase_String(t *testing.T) {
	if saver.PhaseWriteSeen.String() != "write in progress" {
		t.Errorf("got %q", saver.PhaseWriteSeen.String())
	}
	if saver.Phase(9).String() != "Phase(9)" {
		t.Errorf("got %q", saver.Phase(9).String())
	}
}

func TestService_LegacySnapshotNames(t *testing.T) {
	// Names an older writer produced: an explicit zero turn and a padded turn.
	zeroTurn := backupDir + "/2024-03-01 21-00-00.turn0.x.auto.sav"
	paddedTurn := backupDir + "/2024-03-01 22-00-00.turn05..auto.sav"

	setup := func(t *testing.T) *harness {
		t.Helper()
		h := newHarness(t, saver.Options{}, nil)
		h.fsmgr.AddFile(zeroTurn, []byte("zero"), t1)
		h.fsmgr.AddFile(paddedTurn, []byte("padded"), t1.Add(time.Hour))
		h.fsmgr.AddFile(sourcePath, []byte("live"), t1.Add(2*time.Hour))
		h.watch(t)
		return h
	}

	t.Run("rescan keeps the names found on disk", func(t *testing.T) {
		h := setup(t)
		rows := h.rows(t)
		if len(rows) != 2 {
			t.Fatalf("rows = %d, want 2", len(rows))
		}
		if rows[0].Snapshot.Path() != zeroTurn || rows[1].Snapshot.Path() != paddedTurn {
			t.Errorf("paths = %q, %q", rows[0].Snapshot.Path(), rows[1].Snapshot.Path())
		}
		if rows[0].Snapshot.Turn != 0 || rows[0].Snapshot.Label != "x" || rows[1].Snapshot.Turn != 5 {
			t.Errorf("rows = %+v", rows)
		}
	})

	t.Run("apply", func(t *testing.T) {
		for i, want := range []string{"zero", "padded"} {
			h := setup(t)
			if err := h.svc.ApplySnapshot(i); err != nil {
				t.Fatalf("ApplySnapshot(%d) error = %v", i, err)
			}
			if f := h.fsmgr.File(sourcePath); f == nil || string(f.Content) != want {
				t.Errorf("ApplySnapshot(%d): live file = %+v, want %q", i, f, want)
			}
		}
	})

	t.Run("rename", func(t *testing.T) {
		h := setup(t)
		if err := h.svc.RenameSnapshot(0, "kept"); err != nil {
			t.Fatalf("RenameSnapshot(0) error = %v", err)
		}
		if err := h.svc.RenameSnapshot(1, "late"); err != nil {
			t.Fatalf("RenameSnapshot(1) error = %v", err)
		}

		want := []string{
			saver.EncodeName("auto.sav", t1, 0, "kept"),
			saver.EncodeName("auto.sav", t1.Add(time.Hour), 5, "late"),
		}
		names := h.fsmgr.Names(backupDir)
		if len(names) != 2 || names[0] != want[0] || names[1] != want[1] {
			t.Errorf("names = %v, want %v", names, want)
		}
		if f := h.fsmgr.File(backupDir + "/" + want[1]); f == nil || string(f.Content) != "padded" {
			t.Errorf("renamed content = %+v", f)
		}
	})

	t.Run("same label keeps the file", func(t *testing.T) {
		h := setup(t)
		if err := h.svc.RenameSnapshot(0, "x"); err != nil {
			t.Fatalf("RenameSnapshot() error = %v", err)
		}
		if h.fsmgr.File(zeroTurn) == nil {
			t.Error("file moved for an unchanged label")
		}
	})
}
