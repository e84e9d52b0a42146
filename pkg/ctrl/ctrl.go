package ctrl

import (
	"fmt"
	"math"
	"time"
)

// ControlID names one physical control on the surface, e.g. "C26" or "F9".
// It is the join key between the controller map, the state store and the
// consumers.
type ControlID string

// Map translates a (status byte, data1 byte) pair into a ControlID.
// The outer key is the status byte, the inner key the controller number.
type Map map[uint8]map[uint8]ControlID

// Lookup returns the ControlID mapped to the given pair. Unmapped pairs
// return ok == false, they never resolve to a zero-valued ControlID.
func (m Map) Lookup(status, data1 uint8) (ControlID, bool) {
	byData1, ok := m[status]
	if !ok {
		return "", false
	}
	id, ok := byData1[data1]
	return id, ok
}

// Add registers a mapping, replacing any previous entry for the pair.
func (m Map) Add(status, data1 uint8, id ControlID) {
	byData1, ok := m[status]
	if !ok {
		byData1 = make(map[uint8]ControlID)
		m[status] = byData1
	}
	byData1[data1] = id
}

// Len returns the total number of mapped (status, data1) pairs.
func (m Map) Len() int {
	result := 0
	for _, byData1 := range m {
		result += len(byData1)
	}
	return result
}

// RawMessage is one incoming MIDI channel message as delivered by the
// hardware subsystem.
type RawMessage struct {
	Status    uint8
	Data1     uint8
	Data2     uint8
	Timestamp time.Time
}

func (m RawMessage) String() string {
	return fmt.Sprintf("(%d, %d, %d)", m.Status, m.Data1, m.Data2)
}

// Normalize maps a MIDI velocity in [0, 127] to [0, 1], quantized to three
// decimal places. Consumers rely on this exact quantization, e.g. 64 -> 0.504.
func Normalize(velocity uint8) float64 {
	return math.Round(float64(velocity)/127.0*1000) / 1000
}
