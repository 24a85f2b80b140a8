package playback

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ankits1802/finetune-api/internal/logger"
	"github.com/ankits1802/finetune-api/internal/sequence"
	gomidi "gitlab.com/gomidi/midi/v2"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // Register MIDI driver
)

const (
	midiChannel   = 0
	ccAllNotesOff = 123
)

type transportEvent struct {
	at  float64 // sequence seconds
	msg gomidi.Message
}

// MIDITransport renders a NoteSequence to a MIDI output port. Scheduling
// runs on its own goroutine and follows the transport clock, so pausing
// the clock pauses the render in place.
type MIDITransport struct {
	clock *ClockTransport
	send  func(gomidi.Message) error
	port  string

	mu     sync.Mutex
	events []transportEvent
	stopCh chan struct{}
}

// NewMIDITransport opens the named output port, or the first available
// port when name is empty.
func NewMIDITransport(portName string) (*MIDITransport, error) {
	outs := gomidi.GetOutPorts()
	if len(outs) == 0 {
		return nil, fmt.Errorf("%w: no MIDI output ports available", ErrPlayback)
	}

	for _, port := range outs {
		if portName != "" && port.String() != portName {
			continue
		}
		send, err := gomidi.SendTo(port)
		if err != nil {
			return nil, fmt.Errorf("%w: open port %q: %w", ErrPlayback, port.String(), err)
		}
		logger.Info("MIDI transport ready", logger.Fields{"port": port.String()})
		return &MIDITransport{
			clock: NewClockTransport(),
			send:  send,
			port:  port.String(),
		}, nil
	}
	return nil, fmt.Errorf("%w: MIDI output port %q not found", ErrPlayback, portName)
}

// Port returns the name of the opened output port.
func (t *MIDITransport) Port() string {
	return t.port
}

func (t *MIDITransport) Start(seq *sequence.NoteSequence, offsetSeconds float64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.haltLocked()
	t.events = buildEvents(seq)
	if err := t.clock.Start(seq, offsetSeconds); err != nil {
		return err
	}
	t.runLocked(offsetSeconds)
	return nil
}

func (t *MIDITransport) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.haltLocked()
	t.clock.Stop()
}

func (t *MIDITransport) Pause() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.haltLocked()
	t.clock.Pause()
}

func (t *MIDITransport) Resume() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.clock.Resume(); err != nil {
		return fmt.Errorf("%w: %w", ErrPlayback, err)
	}
	t.runLocked(t.clock.Seconds())
	return nil
}

func (t *MIDITransport) IsPlaying() bool      { return t.clock.IsPlaying() }
func (t *MIDITransport) Seconds() float64     { return t.clock.Seconds() }
func (t *MIDITransport) SetSeconds(s float64) { t.clock.SetSeconds(s) }
func (t *MIDITransport) SetRate(rate float64) { t.clock.SetRate(rate) }

// haltLocked stops the scheduler goroutine and silences hanging notes.
func (t *MIDITransport) haltLocked() {
	if t.stopCh != nil {
		close(t.stopCh)
		t.stopCh = nil
	}
	_ = t.send(gomidi.ControlChange(midiChannel, ccAllNotesOff, 0))
}

// runLocked starts a scheduler goroutine that walks events from the
// given position, timed against the transport clock.
func (t *MIDITransport) runLocked(from float64) {
	stopCh := make(chan struct{})
	t.stopCh = stopCh

	idx := sort.Search(len(t.events), func(i int) bool {
		return t.events[i].at >= from
	})
	events := t.events

	go func() {
		for i := idx; i < len(events); i++ {
			ev := events[i]
			for {
				// Sequence seconds divided by rate gives wall seconds.
				wait := (ev.at - t.clock.Seconds()) / t.clock.Rate()
				if wait <= 0 {
					break
				}
				timer := time.NewTimer(time.Duration(wait * float64(time.Second)))
				select {
				case <-stopCh:
					timer.Stop()
					return
				case <-timer.C:
				}
			}
			select {
			case <-stopCh:
				return
			default:
			}
			if err := t.send(ev.msg); err != nil {
				logger.Warn("MIDI send failed", logger.Fields{"error": err.Error()})
			}
		}
	}()
}

// buildEvents flattens a sequence into time-ordered MIDI messages.
// Note-offs sort before note-ons at the same instant so retriggered
// pitches are not swallowed.
func buildEvents(seq *sequence.NoteSequence) []transportEvent {
	events := make([]transportEvent, 0, len(seq.Notes)*2+1)

	program := -1
	for _, n := range seq.Notes {
		if n.Program != program {
			events = append(events, transportEvent{
				at:  n.StartTime,
				msg: gomidi.ProgramChange(midiChannel, uint8(n.Program)),
			})
			program = n.Program
		}
		vel := n.Velocity
		if vel <= 0 {
			vel = sequence.ExportDefaultVelocity
		}
		events = append(events, transportEvent{at: n.StartTime, msg: gomidi.NoteOn(midiChannel, uint8(n.Pitch), uint8(vel))})
		events = append(events, transportEvent{at: n.EndTime, msg: gomidi.NoteOff(midiChannel, uint8(n.Pitch))})
	}

	sort.SliceStable(events, func(i, j int) bool {
		if events[i].at != events[j].at {
			return events[i].at < events[j].at
		}
		iOff := isNoteOff(events[i].msg)
		jOff := isNoteOff(events[j].msg)
		return iOff && !jOff
	})
	return events
}

func isNoteOff(msg gomidi.Message) bool {
	var ch, key, vel uint8
	return msg.GetNoteOff(&ch, &key, &vel)
}
