package saver

import "io"

// TurnSniffer extracts a best-effort turn counter from the beginning of a save
// file. It returns 0 when the turn cannot be determined. The result is display
// metadata only.
type TurnSniffer interface {
	Sniff(r io.Reader) int
}

// NoTurn never determines a turn.
type NoTurn struct{}

func (NoTurn) Sniff(io.Reader) int { return 0 }
