package saver

// Logger provides structured logging for the engine.
// The args follow slog conventions: alternating key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// NopLogger is a Logger that discards all output. Use in tests.
type NopLogger struct{}

func NewNopLogger() *NopLogger { return &NopLogger{} }

func (*NopLogger) Debug(string, ...any) {}
func (*NopLogger) Info(string, ...any)  {}
func (*NopLogger) Warn(string, ...any)  {}
func (*NopLogger) Error(string, ...any) {}

// Listener receives engine events for presentation. Callbacks run on the
// engine's control thread while the Service lock is held; they must not call
// back into the Service synchronously.
type Listener interface {
	// OnError reports a non-fatal failure. err is usually a *Error.
	OnError(err error)
	// OnLog reports a user-facing progress message.
	OnLog(msg string)
	// OnStoreChanged reports that the snapshot rows changed (rescan, new
	// backup, rename) or that the applied row may have changed.
	OnStoreChanged()
}

// NopListener ignores all events.
type NopListener struct{}

func (NopListener) OnError(error)   {}
func (NopListener) OnLog(string)    {}
func (NopListener) OnStoreChanged() {}

// ListenerFuncs adapts plain functions to a Listener. Nil fields are skipped.
type ListenerFuncs struct {
	Error        func(err error)
	Log          func(msg string)
	StoreChanged func()
}

func (l ListenerFuncs) OnError(err error) {
	if l.Error != nil {
		l.Error(err)
	}
}

func (l ListenerFuncs) OnLog(msg string) {
	if l.Log != nil {
		l.Log(msg)
	}
}

func (l ListenerFuncs) OnStoreChanged() {
	if l.StoreChanged != nil {
		l.StoreChanged()
	}
}
