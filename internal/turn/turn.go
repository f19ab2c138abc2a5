// Package turn reads the turn counter that some strategy games store near the
// start of their save files. The value is display metadata only.
package turn

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"autosaver/internal/saver"
)

// PrefixSize is how much of a save file is read. Every known marker lies
// inside it.
const PrefixSize = 100

const (
	// Unknown means the prefix could not be read in full.
	Unknown = 0
	// NoCounter means the file was readable but carries no usable counter.
	NoCounter = 1
)

// Format extracts a turn from a save-file prefix.
type Format interface {
	Name() string
	// Turn returns the counter, NoCounter when the layout does not match, or
	// Unknown when prefix is too short.
	Turn(prefix []byte) int
}

// MarkerFormat is a layout where a sentinel byte appears at three fixed
// offsets, each followed by a copy of the turn counter.
type MarkerFormat struct {
	Tag      string
	Sentinel byte
	Markers  [3]int
}

func (f MarkerFormat) Name() string { return f.Tag }

func (f MarkerFormat) Turn(prefix []byte) int {
	for _, m := range f.Markers {
		if m+1 >= len(prefix) {
			return Unknown
		}
	}
	for _, m := range f.Markers {
		if prefix[m] != f.Sentinel {
			return NoCounter
		}
	}
	v := prefix[f.Markers[0]+1]
	for _, m := range f.Markers[1:] {
		if prefix[m+1] != v {
			return NoCounter
		}
	}
	return int(v)
}

func markersAt(offset int) [3]int {
	return [3]int{offset, offset + 2, offset + 17}
}

var registry = map[string]Format{
	"civ-v2": MarkerFormat{Tag: "civ-v2", Sentinel: 0x16, Markers: markersAt(40)},
	"civ-v1": MarkerFormat{Tag: "civ-v1", Sentinel: 0x16, Markers: markersAt(8)},
}

// DefaultFormats is the evaluation order used when none is configured.
var DefaultFormats = []string{"civ-v2", "civ-v1"}

// Register adds or replaces a format under its name.
func Register(f Format) {
	registry[f.Name()] = f
}

// Lookup returns the registered format for tag.
func Lookup(tag string) (Format, bool) {
	f, ok := registry[tag]
	return f, ok
}

// Names lists the registered tags, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Sniffer tries formats in order. The first result above NoCounter wins;
// otherwise the last format's result is returned.
type Sniffer struct {
	formats []Format
}

var _ saver.TurnSniffer = (*Sniffer)(nil)

// NewSniffer builds a Sniffer from registered tags. An empty list means
// DefaultFormats.
func NewSniffer(tags []string) (*Sniffer, error) {
	if len(tags) == 0 {
		tags = DefaultFormats
	}
	formats := make([]Format, 0, len(tags))
	for _, tag := range tags {
		f, ok := Lookup(tag)
		if !ok {
			return nil, fmt.Errorf("unknown turn format %q (known: %s)", tag, strings.Join(Names(), ", "))
		}
		formats = append(formats, f)
	}
	return &Sniffer{formats: formats}, nil
}

// Sniff reads PrefixSize bytes from r and evaluates them.
func (s *Sniffer) Sniff(r io.Reader) int {
	prefix := make([]byte, PrefixSize)
	if _, err := io.ReadFull(r, prefix); err != nil {
		return Unknown
	}
	return s.Turn(prefix)
}

// Turn evaluates an already-read prefix.
func (s *Sniffer) Turn(prefix []byte) int {
	if len(prefix) < PrefixSize {
		return Unknown
	}
	result := Unknown
	for _, f := range s.formats {
		result = f.Turn(prefix)
		if result > NoCounter {
			return result
		}
	}
	return result
}
