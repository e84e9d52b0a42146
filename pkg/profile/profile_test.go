package profile

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlessandroAnnini/midi-controller/pkg/ctrl"
)

func TestSurface_CoversAllControls(t *testing.T) {
	surface := Surface()
	assert.Equal(t, 3*8+9, surface.Len())
}

func TestSurface_KnobRows(t *testing.T) {
	surface := Surface()

	tt := []struct {
		status uint8
		first  int
	}{
		{KnobRowTopStatus, 10},
		{KnobRowMiddleStatus, 18},
		{KnobRowBottomStatus, 26},
	}
	for _, tc := range tt {
		for i := 0; i < 8; i++ {
			id, ok := surface.Lookup(tc.status, uint8(KnobData1First+i))
			require.True(t, ok, "status %d data1 %d", tc.status, KnobData1First+i)
			assert.Equal(t, ctrl.ControlID(fmt.Sprintf("C%d", tc.first+i)), id)
		}
	}
}

func TestSurface_Faders(t *testing.T) {
	surface := Surface()

	for i := 0; i < 8; i++ {
		id, ok := surface.Lookup(FaderBankStatus, uint8(1+i))
		require.True(t, ok)
		assert.Equal(t, ctrl.ControlID(fmt.Sprintf("F%d", 1+i)), id)
	}

	id, ok := surface.Lookup(MasterStatus, 9)
	require.True(t, ok)
	assert.Equal(t, ctrl.ControlID("F9"), id)
}

func TestSurface_KnownVectors(t *testing.T) {
	surface := Surface()

	id, ok := surface.Lookup(176, 13)
	require.True(t, ok)
	assert.Equal(t, ctrl.ControlID("C26"), id)

	_, ok = surface.Lookup(176, 21)
	assert.False(t, ok)
}

func TestSurface_NoDuplicateIdentifiers(t *testing.T) {
	surface := Surface()

	seen := make(map[ctrl.ControlID]bool)
	for status, byData1 := range surface {
		for data1, id := range byData1 {
			assert.False(t, seen[id], "duplicate %s at (%d, %d)", id, status, data1)
			seen[id] = true
		}
	}
}
