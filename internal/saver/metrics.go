package saver

// Metrics counts engine activity.
type Metrics interface {
	TickObserved()
	BackupCreated()
	BackupFailed()
	BackupDeferred()
	SnapshotApplied()
	SnapshotRenamed()
	SourceUnavailable()
	SnapshotsKnown(n int)
}

// NopMetrics discards all observations.
type NopMetrics struct{}

func (NopMetrics) TickObserved()      {}
func (NopMetrics) BackupCreated()     {}
func (NopMetrics) BackupFailed()      {}
func (NopMetrics) BackupDeferred()    {}
func (NopMetrics) SnapshotApplied()   {}
func (NopMetrics) SnapshotRenamed()   {}
func (NopMetrics) SourceUnavailable() {}
func (NopMetrics) SnapshotsKnown(int) {}
