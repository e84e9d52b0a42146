package ctrl

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestSession_EndToEnd(t *testing.T) {
	subsystem := newTestSubsystem(DeviceInfo{ID: "surface", Name: "Test Surface", State: PortOpen})
	session := newTestSession(t, subsystem, nil)
	defer session.Close()

	require.NoError(t, session.Connect())
	assert.Equal(t, StatusConnected, session.Store().Status())

	updates := session.Store().Subscribe()
	subsystem.send(RawMessage{Status: 176, Data1: 13, Data2: 127, Timestamp: time.Now()})

	waitForValue(t, session.Store(), updates, "C26", 1.0)
}

func TestSession_TransformApplied(t *testing.T) {
	subsystem := newTestSubsystem()
	session := newTestSession(t, subsystem, Transformers{
		"C26": {Min: -12, Max: 12},
	})
	defer session.Close()
	require.NoError(t, session.Connect())

	updates := session.Store().Subscribe()
	subsystem.send(RawMessage{Status: 176, Data1: 13, Data2: 127})

	waitForValue(t, session.Store(), updates, "C26", 12.0)
}

func TestSession_InvalidTransformersRejectedAtLoadTime(t *testing.T) {
	subsystem := newTestSubsystem()
	_, err := NewSession(subsystem, testSurface(), Transformers{
		"C26": {Min: 1, Max: 0},
	}, 0, zap.NewNop())
	assert.Error(t, err)
}

func TestSession_UnmappedMessageDroppedWithWarning(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	subsystem := newTestSubsystem()
	session, err := NewSession(subsystem, testSurface(), nil, 0, zap.New(core))
	require.NoError(t, err)
	defer session.Close()
	require.NoError(t, session.Connect())

	subsystem.send(RawMessage{Status: 176, Data1: 99, Data2: 127})

	assert.Eventually(t, func() bool {
		return logs.FilterLevelExact(zapcore.WarnLevel).Len() == 1
	}, time.Second, time.Millisecond)
	assert.Empty(t, session.Store().Snapshot().Values)
	assert.Equal(t, StatusConnected, session.Store().Status())
}

func TestSession_AccessDenialIsTerminal(t *testing.T) {
	subsystem := newTestSubsystem()
	subsystem.accessErr = fmt.Errorf("access denied")
	session := newTestSession(t, subsystem, nil)
	defer session.Close()

	err := session.Connect()
	assert.Error(t, err)
	assert.Equal(t, StatusError, session.Store().Status())
}

func TestSession_HotPlugRebuildsDevices(t *testing.T) {
	surfaceA := DeviceInfo{ID: "a", Name: "Surface A", State: PortOpen}
	surfaceB := DeviceInfo{ID: "b", Name: "Surface B", State: PortOpen}
	subsystem := newTestSubsystem(surfaceA, surfaceB)
	session := newTestSession(t, subsystem, nil)
	defer session.Close()
	require.NoError(t, session.Connect())
	require.Len(t, session.Store().Snapshot().Devices, 2)

	subsystem.unplug("b")

	snapshot := session.Store().Snapshot()
	require.Len(t, snapshot.Devices, 1)
	assert.Equal(t, "a", snapshot.Devices[0].ID)
	assert.Equal(t, StatusConnected, snapshot.Status)
}

func TestSession_CloseIsIdempotent(t *testing.T) {
	subsystem := newTestSubsystem()
	session := newTestSession(t, subsystem, nil)
	require.NoError(t, session.Connect())

	session.Close()
	session.Close()

	assert.Equal(t, 1, subsystem.releaseCount())
	assert.Equal(t, StatusDisconnected, session.Store().Status())
}

func TestSession_NoProcessingAfterClose(t *testing.T) {
	subsystem := newTestSubsystem()
	session := newTestSession(t, subsystem, nil)
	require.NoError(t, session.Connect())
	session.Close()

	// a misbehaving subsystem that still delivers after release
	session.handleMessage(RawMessage{Status: 176, Data1: 13, Data2: 127})

	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, session.Store().Snapshot().Values)
}

func testSurface() Map {
	result := make(Map)
	result.Add(176, 13, "C26")
	result.Add(179, 1, "F1")
	return result
}

func newTestSession(t *testing.T, subsystem *testSubsystem, transformers Transformers) *Session {
	t.Helper()
	session, err := NewSession(subsystem, testSurface(), transformers, 0, zap.NewNop())
	require.NoError(t, err)
	return session
}

func waitForValue(t *testing.T, store *Store, updates <-chan struct{}, id ControlID, expected float64) {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		if value, ok := store.Snapshot().Values[id]; ok {
			assert.Equal(t, expected, value)
			return
		}
		select {
		case <-updates:
		case <-deadline:
			t.Fatalf("no value for %s", id)
		}
	}
}

func newTestSubsystem(devices ...DeviceInfo) *testSubsystem {
	return &testSubsystem{devices: devices}
}

type testSubsystem struct {
	mu        sync.Mutex
	onMessage func(RawMessage)
	onChange  func(DeviceInfo)
	devices   []DeviceInfo
	accessErr error
	releases  int
}

func (s *testSubsystem) RequestAccess(onMessage func(RawMessage), onChange func(DeviceInfo)) error {
	if s.accessErr != nil {
		return s.accessErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onMessage = onMessage
	s.onChange = onChange
	return nil
}

func (s *testSubsystem) Devices() ([]DeviceInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make([]DeviceInfo, len(s.devices))
	copy(result, s.devices)
	return result, nil
}

func (s *testSubsystem) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.releases++
	s.onMessage = nil
	s.onChange = nil
	return nil
}

func (s *testSubsystem) send(msg RawMessage) {
	s.mu.Lock()
	onMessage := s.onMessage
	s.mu.Unlock()
	if onMessage != nil {
		onMessage(msg)
	}
}

func (s *testSubsystem) unplug(id string) {
	s.mu.Lock()
	var removed DeviceInfo
	remaining := s.devices[:0]
	for _, device := range s.devices {
		if device.ID == id {
			removed = device
			continue
		}
		remaining = append(remaining, device)
	}
	s.devices = remaining
	onChange := s.onChange
	s.mu.Unlock()

	if onChange != nil {
		removed.State = PortClosed
		onChange(removed)
	}
}

func (s *testSubsystem) releaseCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.releases
}
