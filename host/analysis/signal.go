// Package analysis defines the analysis signals that plugins exchange
// sideways within a channel, the per-block track store that carries them,
// and the producer attribution that records which slot owns each signal.
//
// Every handle in this package is bound to the current block window of one
// channel and is used only on the audio goroutine. Reads outside the window
// and reads of signals nobody produced return zero; nothing here panics or
// returns an error on the block path.
package analysis

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownSignal is returned when a signal name cannot be resolved.
var ErrUnknownSignal = errors.New("analysis: unknown signal")

// SignalID identifies an analysis signal. The numeric value is the signal's
// bit position in a [Mask] and is stable.
type SignalID uint8

const (
	SpeechPresence SignalID = iota
	VoicingScore
	VoicingState
	FricativeActivity
	SibilanceEnergy
	OnsetFlux
	PitchHz
	PitchConfidence
	Formant1Hz
	Formant2Hz
	Formant3Hz
	FormantConfidence
	SpectralFlux
	HNR

	// SignalCount is the number of signal ids.
	SignalCount = int(HNR) + 1
)

// Values carried by the VoicingState signal.
const (
	Unvoiced float32 = 0
	Voiced   float32 = 1
	Silence  float32 = 2
)

var signalNames = [SignalCount]string{
	SpeechPresence:    "speech-presence",
	VoicingScore:      "voicing-score",
	VoicingState:      "voicing-state",
	FricativeActivity: "fricative-activity",
	SibilanceEnergy:   "sibilance-energy",
	OnsetFlux:         "onset-flux",
	PitchHz:           "pitch-hz",
	PitchConfidence:   "pitch-confidence",
	Formant1Hz:        "formant1-hz",
	Formant2Hz:        "formant2-hz",
	Formant3Hz:        "formant3-hz",
	FormantConfidence: "formant-confidence",
	SpectralFlux:      "spectral-flux",
	HNR:               "hnr",
}

var signalUnits = [SignalCount]string{
	SpeechPresence:    "0..1",
	VoicingScore:      "0..1",
	VoicingState:      "0 unvoiced, 1 voiced, 2 silence",
	FricativeActivity: "0..1",
	SibilanceEnergy:   "linear energy",
	OnsetFlux:         ">= 0",
	PitchHz:           "Hz, 0 when unvoiced",
	PitchConfidence:   "0..1",
	Formant1Hz:        "Hz",
	Formant2Hz:        "Hz",
	Formant3Hz:        "Hz",
	FormantConfidence: "0..1",
	SpectralFlux:      ">= 0",
	HNR:               "dB",
}

// Valid reports whether id is one of the declared signals.
func (id SignalID) Valid() bool {
	return int(id) < SignalCount
}

// String returns the stable kebab-case name of id.
func (id SignalID) String() string {
	if !id.Valid() {
		return fmt.Sprintf("signal(%d)", int(id))
	}

	return signalNames[id]
}

// Unit describes the value range of id.
func (id SignalID) Unit() string {
	if !id.Valid() {
		return ""
	}

	return signalUnits[id]
}

// Bit returns the single-signal mask of id, or None for invalid ids.
func (id SignalID) Bit() Mask {
	if !id.Valid() {
		return None
	}

	return 1 << id
}

// ParseSignalID resolves a name as printed by [SignalID.String].
func ParseSignalID(name string) (SignalID, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range signalNames {
		if n == name {
			return SignalID(i), nil
		}
	}

	return 0, fmt.Errorf("%w: %q", ErrUnknownSignal, name)
}

// Signals returns every signal id in bit order.
func Signals() []SignalID {
	ids := make([]SignalID, SignalCount)
	for i := range ids {
		ids[i] = SignalID(i)
	}

	return ids
}
