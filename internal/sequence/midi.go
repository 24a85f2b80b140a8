package sequence

import (
	"bytes"
	"fmt"
	"math"
	"sort"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

const (
	// ExportDefaultVelocity is stamped onto any note that reaches export
	// without a velocity; a zero-velocity note-on reads as a note-off.
	ExportDefaultVelocity = 80

	exportFallbackTPQ = 220
	exportFallbackQPM = 120
	exportChannel     = 0
)

type midiEvent struct {
	tick  uint32
	off   bool // note-offs sort before note-ons at the same tick
	order int
	msg   midi.Message
}

// ToMIDI serializes the sequence to a standard MIDI (SMF format 1) byte
// stream. Pitch, timing, velocity and tempo survive a round trip through
// the file; program changes are emitted whenever the program of a note
// differs from the previous one.
func ToMIDI(seq *NoteSequence) ([]byte, error) {
	if seq == nil || len(seq.Notes) == 0 {
		return nil, fmt.Errorf("no notes to export")
	}

	tpq := seq.TicksPerQuarter
	if tpq <= 0 {
		tpq = exportFallbackTPQ
	}
	qpm := seq.QPM(exportFallbackQPM)
	ticksPerSecond := float64(tpq) * qpm / 60.0

	toTick := func(seconds float64) uint32 {
		if seconds < 0 {
			return 0
		}
		return uint32(math.Round(seconds * ticksPerSecond))
	}

	events := make([]midiEvent, 0, len(seq.Notes)*2+len(seq.Tempos))
	order := 0
	add := func(tick uint32, off bool, msg midi.Message) {
		events = append(events, midiEvent{tick: tick, off: off, order: order, msg: msg})
		order++
	}

	for _, t := range seq.Tempos {
		if t.QPM > 0 {
			add(toTick(t.Time), false, midi.Message(smf.MetaTempo(t.QPM)))
		}
	}

	program := -1
	for _, n := range seq.Notes {
		vel := n.Velocity
		if vel == 0 {
			vel = ExportDefaultVelocity
		}
		start := toTick(n.StartTime)
		if n.Program != program {
			add(start, false, midi.ProgramChange(exportChannel, uint8(n.Program)))
			program = n.Program
		}
		add(start, false, midi.NoteOn(exportChannel, uint8(n.Pitch), uint8(vel)))
		add(toTick(n.EndTime), true, midi.NoteOff(exportChannel, uint8(n.Pitch)))
	}

	sort.SliceStable(events, func(i, j int) bool {
		if events[i].tick != events[j].tick {
			return events[i].tick < events[j].tick
		}
		if events[i].off != events[j].off {
			return events[i].off
		}
		return events[i].order < events[j].order
	})

	s := smf.New()
	s.TimeFormat = smf.MetricTicks(tpq)

	var tr smf.Track
	last := uint32(0)
	for _, ev := range events {
		tr.Add(ev.tick-last, ev.msg)
		last = ev.tick
	}
	end := toTick(seq.Duration())
	tr.Close(end - last)
	if err := s.Add(tr); err != nil {
		return nil, fmt.Errorf("assemble midi track: %w", err)
	}

	var buf bytes.Buffer
	if _, err := s.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("write midi stream: %w", err)
	}
	return buf.Bytes(), nil
}
