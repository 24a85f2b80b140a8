package playback

// Instrument is a General MIDI program the player can substitute in.
type Instrument struct {
	Name    string `json:"name"`
	Program int    `json:"program"`
}

// Instruments is the catalog offered by the instrument picker.
var Instruments = []Instrument{
	{Name: "Piano", Program: 0},
	{Name: "Electric Piano", Program: 4},
	{Name: "Harpsichord", Program: 6},
	{Name: "Music Box", Program: 10},
	{Name: "Marimba", Program: 12},
	{Name: "Acoustic Guitar (Nylon)", Program: 24},
	{Name: "Electric Guitar (Clean)", Program: 27},
	{Name: "Acoustic Bass", Program: 32},
	{Name: "Violin", Program: 40},
	{Name: "Cello", Program: 42},
	{Name: "Trumpet", Program: 56},
	{Name: "Tenor Sax", Program: 66},
	{Name: "Flute", Program: 73},
	{Name: "Synth Pad (Warm)", Program: 89},
	{Name: "Synth Lead (Square)", Program: 80},
}

// InstrumentByProgram looks up a catalog entry by GM program number.
func InstrumentByProgram(program int) (Instrument, bool) {
	for _, inst := range Instruments {
		if inst.Program == program {
			return inst, true
		}
	}
	return Instrument{}, false
}
