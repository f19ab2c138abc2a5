package saver

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// TimestampLayout is the timestamp format embedded in backup file names.
// It sorts lexicographically in chronological order.
const TimestampLayout = "2006-01-02 15-04-05"

// FieldSeparator separates the fields of a backup file name.
const FieldSeparator = "."

const turnPrefix = "turn"

// namePrefix matches everything before ".<sourceName>":
// <timestamp>.[turn<digits>.]<label>
var namePrefix = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2} \d{2}-\d{2}-\d{2})\.(?:turn(\d+)\.)?(.*)$`)

// EncodeName composes a backup file name from its fields.
// A zero turn is omitted from the name; any other turn is written as "turn<N>".
// Callers validate the label beforehand with ValidateLabel.
func EncodeName(sourceName string, timestamp time.Time, turn int, label string) string {
	var b strings.Builder
	b.WriteString(timestamp.In(time.Local).Format(TimestampLayout))
	b.WriteString(FieldSeparator)
	if turn > 0 {
		b.WriteString(turnPrefix)
		b.WriteString(strconv.Itoa(turn))
		b.WriteString(FieldSeparator)
	}
	b.WriteString(label)
	b.WriteString(FieldSeparator)
	b.WriteString(sourceName)
	return b.String()
}

// NewSnapshot builds a snapshot for dir, truncating the timestamp to whole seconds.
func NewSnapshot(dir, sourceName string, timestamp time.Time, turn int, label string) Snapshot {
	return Snapshot{
		Dir:        dir,
		SourceName: sourceName,
		Timestamp:  truncateToSecond(timestamp),
		Turn:       turn,
		Label:      label,
	}
}

// DecodeName parses a directory entry back into a Snapshot.
// It reports false for any name that does not follow the backup grammar for
// sourceName; unrelated files in the destination directory are expected and
// are not an error.
func DecodeName(dir, fileName, sourceName string) (Snapshot, bool) {
	if sourceName == "" {
		return Snapshot{}, false
	}
	// The suffix is the last occurrence of the source name, so a label that
	// happens to contain it does not confuse parsing.
	prefix, ok := strings.CutSuffix(fileName, FieldSeparator+sourceName)
	if !ok {
		return Snapshot{}, false
	}

	m := namePrefix.FindStringSubmatch(prefix)
	if m == nil {
		return Snapshot{}, false
	}

	ts, err := time.ParseInLocation(TimestampLayout, m[1], time.Local)
	if err != nil {
		return Snapshot{}, false
	}

	turn := 0
	if m[2] != "" {
		turn, err = strconv.Atoi(m[2])
		if err != nil || turn < 0 {
			return Snapshot{}, false
		}
	}

	return Snapshot{
		Dir:        dir,
		SourceName: sourceName,
		Timestamp:  ts,
		Turn:       turn,
		Label:      m[3],
		name:       fileName,
	}, true
}

// ValidateLabel rejects labels that would break the file name grammar or
// escape the destination directory.
func ValidateLabel(label string) error {
	if strings.Contains(label, FieldSeparator) {
		return &Error{Kind: ErrInvalidLabel, Path: label, Err: fmt.Errorf("label must not contain %q", FieldSeparator)}
	}
	if strings.ContainsAny(label, `/\`) || strings.ContainsRune(label, os.PathSeparator) {
		return &Error{Kind: ErrInvalidLabel, Path: label, Err: fmt.Errorf("label must not contain a path separator")}
	}
	return nil
}

func truncateToSecond(t time.Time) time.Time {
	return t.Truncate(time.Second)
}
