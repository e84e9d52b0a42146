package ctrl

import (
	"sort"
	"sync"
)

// ConnectionStatus is the process-wide status of the hardware subsystem.
type ConnectionStatus string

const (
	StatusDisconnected ConnectionStatus = "disconnected"
	StatusConnecting   ConnectionStatus = "connecting"
	StatusConnected    ConnectionStatus = "connected"
	StatusError        ConnectionStatus = "error"
)

// PortState is the connection sub-state of one input device.
type PortState string

const (
	PortOpen    PortState = "open"
	PortClosed  PortState = "closed"
	PortPending PortState = "pending"
)

// DeviceInfo describes one attached input device.
type DeviceInfo struct {
	ID           string
	Name         string
	Manufacturer string
	State        PortState
}

// Snapshot is an immutable view of the store, safe to read while the
// pipeline keeps writing.
type Snapshot struct {
	Values  map[ControlID]float64
	Status  ConnectionStatus
	Devices []DeviceInfo
}

// Changed returns the first control whose value differs between the two
// snapshots. When several controls changed within one window the pick is
// not deterministic.
func (s Snapshot) Changed(previous Snapshot) (ControlID, bool) {
	for id, value := range s.Values {
		if old, ok := previous.Values[id]; !ok || old != value {
			return id, true
		}
	}
	return "", false
}

// NewStore creates an empty store with status disconnected.
func NewStore() *Store {
	return &Store{
		values: make(map[ControlID]float64),
		status: StatusDisconnected,
	}
}

// Store holds the latest transformed value per control, the connection
// status, and the attached devices. The pipeline is the only writer,
// consumers read snapshots and are notified through Subscribe.
type Store struct {
	mu      sync.RWMutex
	values  map[ControlID]float64
	status  ConnectionStatus
	devices []DeviceInfo
	subs    []chan struct{}
}

// Apply overwrites (or creates) the value of the given control.
func (s *Store) Apply(id ControlID, value float64) {
	s.mu.Lock()
	s.values[id] = value
	s.mu.Unlock()
	s.notify()
}

// SetStatus updates the process-wide connection status.
func (s *Store) SetStatus(status ConnectionStatus) {
	s.mu.Lock()
	s.status = status
	s.mu.Unlock()
	s.notify()
}

// SetDevices replaces the device list in full.
func (s *Store) SetDevices(devices []DeviceInfo) {
	sorted := make([]DeviceInfo, len(devices))
	copy(sorted, devices)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	s.mu.Lock()
	s.devices = sorted
	s.mu.Unlock()
	s.notify()
}

// Status returns the current connection status.
func (s *Store) Status() ConnectionStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Snapshot returns a copy of the current state. The copy is detached from
// the store, later writes do not show through.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	values := make(map[ControlID]float64, len(s.values))
	for id, value := range s.values {
		values[id] = value
	}
	devices := make([]DeviceInfo, len(s.devices))
	copy(devices, s.devices)

	return Snapshot{
		Values:  values,
		Status:  s.status,
		Devices: devices,
	}
}

// Subscribe returns a channel that receives a tick after every store update.
// Pending ticks coalesce: a slow consumer sees at least one tick for any
// number of updates and re-reads the snapshot.
func (s *Store) Subscribe() <-chan struct{} {
	sub := make(chan struct{}, 1)
	s.mu.Lock()
	s.subs = append(s.subs, sub)
	s.mu.Unlock()
	return sub
}

func (s *Store) notify() {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sub := range s.subs {
		select {
		case sub <- struct{}{}:
		default:
		}
	}
}
