package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"autosaver/internal/config"
	"autosaver/internal/encryption"
	localfs "autosaver/internal/fs"
	"autosaver/internal/journal"
	"autosaver/internal/metrics"
	"autosaver/internal/mirror"
	"autosaver/internal/saver"
	"autosaver/internal/turn"
)

// ErrNoJournal is returned by History when the journal is disabled.
var ErrNoJournal = errors.New("journal is disabled (journal.type = \"none\")")

// Options adjusts how an App is built.
type Options struct {
	// Console receives a copy of every log line. nil logs to the file only,
	// which the interactive view needs.
	Console io.Writer
	// Clock defaults to saver.RealClock.
	Clock saver.Clock
}

// App is the application layer between the CLI and saver.Service.
// It constructs all dependencies from config, resolves raw paths, and
// releases resources on Close.
type App struct {
	cfg       *config.Config
	cfgPath   string
	clock     saver.Clock
	fsmgr     saver.FilesystemManager
	journal   *journal.SQLiteJournal
	mirror    saver.Mirror
	encryptor saver.Encryptor
	metrics   *metrics.Registry
	service   *saver.Service
	op        *Operation
	log       *slog.Logger
	logFile   *os.File
}

// New creates a fully wired App from the given config. cfgPath is where
// SetTarget and SaveTUI persist changes. operation identifies the CLI command
// being run. The caller must call Close when done.
func New(cfg *config.Config, cfgPath, operation string, opts Options) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	clock := opts.Clock
	if clock == nil {
		clock = saver.RealClock{}
	}

	op := NewOperation(operation, "", clock.Now())
	logger, logFile, err := newLogger(cfg.LogDir, cfg.LogLevel, op.ID, opts.Console)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	a := &App{
		cfg:     cfg,
		cfgPath: cfgPath,
		clock:   clock,
		fsmgr:   localfs.NewOSFilesystemManager(),
		op:      op,
		log:     logger,
		logFile: logFile,
		metrics: metrics.NewRegistry(),
	}

	if err := a.wire(); err != nil {
		a.Close()
		return nil, err
	}
	logger.Debug("operation started", "operation", operation)
	return a, nil
}

func (a *App) wire() error {
	sniffer, err := turn.NewSniffer(a.cfg.Watch.TurnFormats)
	if err != nil {
		return fmt.Errorf("configuring turn formats: %w", err)
	}

	j, err := journal.NewJournalFromConfig(a.cfg.Journal)
	if err != nil {
		return fmt.Errorf("opening journal: %w", err)
	}
	a.journal = j
	var sj saver.Journal = saver.NopJournal{}
	if j != nil {
		sj = j
	}

	enc, err := encryption.NewEncryptorFromConfig(a.cfg.Encryption)
	if err != nil {
		return fmt.Errorf("creating encryptor: %w", err)
	}
	a.encryptor = enc

	m, err := mirror.NewMirrorFromConfig(context.Background(), a.cfg.Mirror, enc)
	if err != nil {
		return fmt.Errorf("creating mirror: %w", err)
	}
	a.mirror = m

	a.service = saver.NewService(a.fsmgr, sniffer, sj, &slogAdapter{l: a.log}, a.clock, saver.UUIDGenerator{}, saver.Options{
		PollInterval: a.cfg.Watch.PollInterval.Duration,
		GraceWindow:  a.cfg.Watch.GraceWindow.Duration,
		Mirror:       m,
		Metrics:      a.metrics,
	})
	return nil
}

// Config returns the loaded configuration.
func (a *App) Config() *config.Config { return a.cfg }

// Service returns the engine.
func (a *App) Service() *saver.Service { return a.service }

// Logger returns the operation logger.
func (a *App) Logger() *slog.Logger { return a.log }

// ResolveTarget turns raw CLI arguments into absolute source and destination
// paths. An empty source falls back to the configured target; an empty
// destination falls back to the configured one for that source, then to
// "<source>-backup".
func (a *App) ResolveTarget(source, dest string) (string, string, error) {
	if source == "" {
		source = a.cfg.Watch.SourcePath
		if dest == "" {
			dest = a.cfg.Watch.DestinationDir
		}
	}
	if source == "" {
		return "", "", errors.New("no save file given and none configured; pass SOURCE or run 'autosaver target set'")
	}

	absSource, err := filepath.Abs(source)
	if err != nil {
		return "", "", fmt.Errorf("resolving source: %w", err)
	}
	if dest == "" {
		dest = config.DefaultDestination(absSource)
	}
	absDest, err := filepath.Abs(dest)
	if err != nil {
		return "", "", fmt.Errorf("resolving destination: %w", err)
	}
	return absSource, absDest, nil
}

// Open resolves the target and points the engine at it.
func (a *App) Open(source, dest string) error {
	src, dst, err := a.ResolveTarget(source, dest)
	if err != nil {
		return err
	}
	a.op.Parameters = src
	return a.service.SetWatchTarget(src, dst)
}

// SetTarget persists a new watch target in the config file. dest may be empty
// to follow the default next to the source.
func (a *App) SetTarget(source, dest string) (string, string, error) {
	src, err := filepath.Abs(source)
	if err != nil {
		return "", "", fmt.Errorf("resolving source: %w", err)
	}
	a.cfg.Watch.SourcePath = src
	a.cfg.Watch.DestinationDir = ""
	if dest != "" {
		dst, err := filepath.Abs(dest)
		if err != nil {
			return "", "", fmt.Errorf("resolving destination: %w", err)
		}
		a.cfg.Watch.DestinationDir = dst
	}

	if err := config.Save(a.cfgPath, a.cfg); err != nil {
		return "", "", err
	}
	a.log.Info("watch target saved", "source", src, "destination", a.cfg.Watch.Destination())
	return src, a.cfg.Watch.Destination(), nil
}

// SaveTUI persists interactive view settings.
func (a *App) SaveTUI(tui config.TUIConfig) error {
	a.cfg.TUI = tui
	return config.Save(a.cfgPath, a.cfg)
}

// Watch runs the engine until ctx is cancelled, serving metrics alongside
// when metrics.addr is configured. Open must have been called.
func (a *App) Watch(ctx context.Context) error {
	if a.service.SourcePath() == "" {
		return errors.New("no watch target")
	}

	if addr := a.cfg.Metrics.Addr; addr != "" {
		go func() {
			a.log.Info("serving metrics", "addr", addr)
			if err := a.metrics.Serve(ctx, addr); err != nil {
				a.log.Error("metrics server stopped", "error", err)
			}
		}()
	}

	a.log.Info("watch started", "source", a.service.SourcePath(), "destination", a.service.DestinationDir())
	err := a.service.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// List returns the snapshot rows of the open target.
func (a *App) List() ([]saver.Row, error) {
	return a.service.ListSnapshots()
}

// Apply restores the snapshot at row.
func (a *App) Apply(row int) error {
	return a.service.ApplySnapshot(row)
}

// Rename relabels the snapshot at row.
func (a *App) Rename(row int, label string) error {
	return a.service.RenameSnapshot(row, label)
}

// Rescan reloads the snapshot rows from the destination directory.
func (a *App) Rescan() error {
	return a.service.Rescan()
}

// History returns the newest journal entries for the open target, or for
// every target when none is open.
func (a *App) History(limit int) ([]saver.JournalEntry, error) {
	if a.journal == nil {
		return nil, ErrNoJournal
	}
	if err := a.journal.CheckMigrations(); err != nil {
		return nil, fmt.Errorf("journal %s: %w", a.journal.Path(), err)
	}
	return a.journal.Recent(a.service.SourcePath(), limit)
}

// InitKeys generates the key pair used by encrypted mirrors.
func (a *App) InitKeys(passphrase string) error {
	if err := a.encryptor.Setup(passphrase); err != nil {
		return fmt.Errorf("generating keys: %w", err)
	}
	a.log.Info("encryption keys created", "public_key", a.cfg.Encryption.PublicKeyPath)
	return nil
}

// MirrorList returns the names stored in the configured mirror.
func (a *App) MirrorList() ([]string, error) {
	if a.mirror == nil {
		return nil, errors.New("no mirror configured")
	}
	return a.mirror.List()
}

// MirrorFetch copies a mirrored snapshot to outPath, which must not exist.
// passphrase is only called for an encrypted mirror.
func (a *App) MirrorFetch(name, outPath string, passphrase func() (string, error)) (err error) {
	if a.mirror == nil {
		return errors.New("no mirror configured")
	}

	out, err := os.OpenFile(outPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("refusing to overwrite %s", outPath)
		}
		return fmt.Errorf("creating %s: %w", outPath, err)
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			os.Remove(outPath)
		}
	}()

	em, encrypted := a.mirror.(*mirror.EncryptingMirror)
	if !encrypted {
		return a.mirror.Get(name, out)
	}

	pw, err := passphrase()
	if err != nil {
		return fmt.Errorf("reading passphrase: %w", err)
	}
	dc, err := a.encryptor.Unlock(pw)
	if err != nil {
		return fmt.Errorf("unlocking keys: %w", err)
	}
	return em.Open(name, dc, out)
}

// Fail marks the current operation as failed; Close logs the outcome.
func (a *App) Fail() {
	a.op.Fail()
}

// Close logs the operation outcome and closes all resources.
func (a *App) Close() error {
	var firstErr error

	if a.journal != nil {
		if err := a.journal.Close(); err != nil {
			firstErr = fmt.Errorf("closing journal: %w", err)
		}
	}

	a.log.Debug("operation finished", "operation", a.op.Name, "status", a.op.Status, "elapsed", a.op.Elapsed(a.clock.Now()))
	if a.logFile != nil {
		a.logFile.Close()
	}
	return firstErr
}
