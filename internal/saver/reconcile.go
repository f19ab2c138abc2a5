package saver

import "time"

// Reconcile reports, per row, whether that snapshot is the one currently
// applied to the live file. A snapshot is applied when its timestamp equals the
// live mtime at whole-second resolution. Timestamps are unique per store, but
// if several rows match only the most recent one is marked. A zero liveMtime
// (source missing) marks nothing.
func Reconcile(liveMtime time.Time, snapshots []Snapshot) []bool {
	applied := make([]bool, len(snapshots))
	if liveMtime.IsZero() {
		return applied
	}

	live := truncateToSecond(liveMtime)
	for i := len(snapshots) - 1; i >= 0; i-- {
		if snapshots[i].Timestamp.Equal(live) {
			applied[i] = true
			break
		}
	}
	return applied
}
