// Package profile ships the controller map of the supported control surface:
// 8 knobs x 3 rows and 9 faders.
package profile

import (
	"fmt"

	"github.com/AlessandroAnnini/midi-controller/pkg/ctrl"
)

// The knob rows share the controller numbers 13-20 and are told apart by the
// channel nibble of the status byte. The fourth channel carries the eight
// fader bank, the master fader answers on a channel of its own.
const (
	KnobData1First = 13
	KnobData1Last  = 20

	KnobRowTopStatus    = 177 // C10 - C17
	KnobRowMiddleStatus = 178 // C18 - C25
	KnobRowBottomStatus = 176 // C26 - C33

	FaderBankStatus = 179 // F1 - F8, data1 1-8
	MasterStatus    = 180 // F9, data1 9
)

// KnobRows lists the knob identifiers row by row, left to right.
func KnobRows() [3][8]ctrl.ControlID {
	var rows [3][8]ctrl.ControlID
	for i := 0; i < 8; i++ {
		rows[0][i] = ctrl.ControlID(fmt.Sprintf("C%d", 10+i))
		rows[1][i] = ctrl.ControlID(fmt.Sprintf("C%d", 18+i))
		rows[2][i] = ctrl.ControlID(fmt.Sprintf("C%d", 26+i))
	}
	return rows
}

// Faders lists the fader identifiers F1 through F9.
func Faders() [9]ctrl.ControlID {
	var faders [9]ctrl.ControlID
	for i := 0; i < 9; i++ {
		faders[i] = ctrl.ControlID(fmt.Sprintf("F%d", 1+i))
	}
	return faders
}

// Surface returns the controller map of the surface.
func Surface() ctrl.Map {
	result := make(ctrl.Map)

	rows := KnobRows()
	rowStatus := [3]uint8{KnobRowTopStatus, KnobRowMiddleStatus, KnobRowBottomStatus}
	for row, status := range rowStatus {
		for i, id := range rows[row] {
			result.Add(status, uint8(KnobData1First+i), id)
		}
	}

	faders := Faders()
	for i := 0; i < 8; i++ {
		result.Add(FaderBankStatus, uint8(1+i), faders[i])
	}
	result.Add(MasterStatus, 9, faders[8])

	return result
}
