// Package hw implements the hardware MIDI subsystem on top of rtmidi.
// rtmidi has no hot-plug notifications, so connect/disconnect events are
// synthesized from a periodic re-enumeration of the input ports.
package hw

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"gitlab.com/gomidi/midi"
	"go.uber.org/zap"

	"github.com/AlessandroAnnini/midi-controller/pkg/ctrl"
)

const DefaultPollInterval = 500 * time.Millisecond

type Option func(*System)

// WithPortName restricts listening to the first input port whose name
// matches, exactly or as a substring. Other ports are still enumerated.
func WithPortName(name string) Option {
	return func(s *System) {
		s.portName = name
	}
}

// WithPortNumber restricts listening to the input port with the given number.
func WithPortNumber(number int) Option {
	return func(s *System) {
		s.portNumber = number
	}
}

// WithPollInterval sets the hot-plug polling interval. An interval of 0
// disables hot-plug detection.
func WithPollInterval(interval time.Duration) Option {
	return func(s *System) {
		s.pollInterval = interval
	}
}

// New creates a subsystem over the given MIDI driver. The driver stays owned
// by the caller and must outlive the subsystem.
func New(drv midi.Driver, log *zap.Logger, options ...Option) *System {
	result := &System{
		drv:          drv,
		log:          log,
		pollInterval: DefaultPollInterval,
		portNumber:   -1,
		open:         make(map[string]midi.In),
		known:        make(map[string]bool),
	}
	for _, option := range options {
		option(result)
	}
	return result
}

// System implements ctrl.Subsystem over a gomidi driver.
type System struct {
	drv          midi.Driver
	log          *zap.Logger
	pollInterval time.Duration
	portName     string
	portNumber   int

	mu        sync.Mutex
	acquired  bool
	released  bool
	onMessage func(ctrl.RawMessage)
	onChange  func(ctrl.DeviceInfo)
	open      map[string]midi.In
	known     map[string]bool

	stopPoll chan struct{}
	pollDone chan struct{}
}

// RequestAccess enumerates the input ports, opens and subscribes the matching
// ones, and starts the hot-plug poller. An enumeration failure denies the
// request.
func (s *System) RequestAccess(onMessage func(ctrl.RawMessage), onChange func(ctrl.DeviceInfo)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.acquired || s.released {
		return fmt.Errorf("the MIDI subsystem was already acquired")
	}

	ins, err := s.drv.Ins()
	if err != nil {
		return fmt.Errorf("cannot enumerate the MIDI input ports: %w", err)
	}

	s.acquired = true
	s.onMessage = onMessage
	s.onChange = onChange

	for _, in := range ins {
		s.known[in.String()] = true
		if !s.matches(in) {
			continue
		}
		if err := s.openPort(in); err != nil {
			s.log.Warn("cannot open input port", zap.String("port", in.String()), zap.Error(err))
		}
	}

	if s.pollInterval > 0 {
		s.stopPoll = make(chan struct{})
		s.pollDone = make(chan struct{})
		go s.poll()
	}

	return nil
}

func (s *System) matches(in midi.In) bool {
	if s.portName != "" {
		return in.String() == s.portName || strings.Contains(in.String(), s.portName)
	}
	if s.portNumber >= 0 {
		return in.Number() == s.portNumber
	}
	return true
}

// openPort must be called with the mutex held.
func (s *System) openPort(in midi.In) error {
	name := in.String()
	if _, ok := s.open[name]; ok {
		return nil
	}
	if err := in.Open(); err != nil {
		return err
	}
	err := in.SetListener(func(data []byte, _ int64) {
		s.deliver(data)
	})
	if err != nil {
		in.Close()
		return err
	}
	s.open[name] = in
	s.log.Info("listening on input port", zap.String("port", name))
	return nil
}

func (s *System) deliver(data []byte) {
	if len(data) < 2 || data[0] >= 0xf0 {
		return
	}
	msg := ctrl.RawMessage{
		Status:    data[0],
		Data1:     data[1] & 0x7f,
		Timestamp: time.Now(),
	}
	if len(data) > 2 {
		msg.Data2 = data[2] & 0x7f
	}

	s.mu.Lock()
	released := s.released
	onMessage := s.onMessage
	s.mu.Unlock()
	if released || onMessage == nil {
		return
	}
	onMessage(msg)
}

func (s *System) poll() {
	defer close(s.pollDone)

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopPoll:
			return
		case <-ticker.C:
			s.rescan()
		}
	}
}

func (s *System) rescan() {
	ins, err := s.drv.Ins()
	if err != nil {
		s.log.Warn("cannot re-enumerate the MIDI input ports", zap.Error(err))
		return
	}

	current := make(map[string]midi.In, len(ins))
	for _, in := range ins {
		current[in.String()] = in
	}

	var changes []ctrl.DeviceInfo

	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		return
	}
	for name, in := range current {
		if s.known[name] {
			continue
		}
		s.known[name] = true
		if s.matches(in) {
			if err := s.openPort(in); err != nil {
				s.log.Warn("cannot open input port", zap.String("port", name), zap.Error(err))
			}
		}
		changes = append(changes, s.describeLocked(in))
	}
	for name := range s.known {
		if _, ok := current[name]; ok {
			continue
		}
		delete(s.known, name)
		if in, ok := s.open[name]; ok {
			in.StopListening()
			in.Close()
			delete(s.open, name)
		}
		changes = append(changes, ctrl.DeviceInfo{
			ID:           name,
			Name:         name,
			Manufacturer: manufacturerOf(name),
			State:        ctrl.PortClosed,
		})
	}
	onChange := s.onChange
	s.mu.Unlock()

	if onChange == nil {
		return
	}
	for _, change := range changes {
		onChange(change)
	}
}

// Devices enumerates the full list of attached input ports.
func (s *System) Devices() ([]ctrl.DeviceInfo, error) {
	ins, err := s.drv.Ins()
	if err != nil {
		return nil, fmt.Errorf("cannot enumerate the MIDI input ports: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]ctrl.DeviceInfo, 0, len(ins))
	for _, in := range ins {
		result = append(result, s.describeLocked(in))
	}
	return result, nil
}

// describeLocked must be called with the mutex held.
func (s *System) describeLocked(in midi.In) ctrl.DeviceInfo {
	name := in.String()
	state := ctrl.PortPending
	if _, ok := s.open[name]; ok {
		state = ctrl.PortOpen
	}
	return ctrl.DeviceInfo{
		ID:           name,
		Name:         name,
		Manufacturer: manufacturerOf(name),
		State:        state,
	}
}

// manufacturerOf guesses the manufacturer from the port name. rtmidi does not
// expose it separately, by convention the name starts with the vendor.
func manufacturerOf(name string) string {
	fields := strings.Fields(name)
	if len(fields) < 2 {
		return ""
	}
	return fields[0]
}

// Release stops the poller and all port listeners. No callback fires after
// Release returned. Releasing twice is a no-op.
func (s *System) Release() error {
	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		return nil
	}
	s.released = true
	stopPoll := s.stopPoll
	pollDone := s.pollDone
	s.mu.Unlock()

	if stopPoll != nil {
		close(stopPoll)
		<-pollDone
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	var firstErr error
	for name, in := range s.open {
		if err := in.StopListening(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("cannot stop listening on %s: %w", name, err)
		}
		if err := in.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("cannot close %s: %w", name, err)
		}
		delete(s.open, name)
	}
	return firstErr
}
