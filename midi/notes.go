package midi

import "fmt"

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// NoteName renders a note number as pitch notation, middle C (60) being C4.
func NoteName(note uint8) string {
	octave := int(note)/12 - 1
	return fmt.Sprintf("%s%d", noteNames[note%12], octave)
}
