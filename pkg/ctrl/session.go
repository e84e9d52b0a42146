package ctrl

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Subsystem is the hardware MIDI subsystem the session drives. Implementations
// must guarantee that no callback fires after Release returned.
type Subsystem interface {
	// RequestAccess acquires the subsystem and subscribes the given callbacks,
	// onMessage for every incoming message on any attached input port and
	// onChange for every port connect/disconnect. The request has two terminal
	// outcomes: granted (nil) or denied (an error). It may also block
	// indefinitely if the underlying subsystem never answers.
	RequestAccess(onMessage func(RawMessage), onChange func(DeviceInfo)) error

	// Devices enumerates the full list of currently attached input devices.
	Devices() ([]DeviceInfo, error)

	// Release unsubscribes all callbacks and releases the subsystem handle.
	Release() error
}

// NewSession creates a session over the given subsystem. The transformer
// configurations are validated here, before any message is processed. The
// session owns its state store; it starts disconnected until Connect is
// called.
func NewSession(subsystem Subsystem, surface Map, transformers Transformers, window time.Duration, log *zap.Logger) (*Session, error) {
	if err := transformers.Validate(); err != nil {
		return nil, err
	}

	result := &Session{
		subsystem:    subsystem,
		surface:      surface,
		transformers: transformers,
		store:        NewStore(),
		debouncer:    NewDebouncer(window),
		log:          log,
		closed:       make(chan struct{}),
		done:         make(chan struct{}),
	}

	go func() {
		defer close(result.done)
		for msg := range result.debouncer.Messages() {
			result.process(msg)
		}
	}()

	return result, nil
}

// Session drives the controller-input pipeline: it acquires the hardware
// subsystem, feeds incoming messages through debouncing, decoding and value
// transformation into the state store, and keeps the device list and the
// connection status up to date.
type Session struct {
	subsystem    Subsystem
	surface      Map
	transformers Transformers
	store        *Store
	debouncer    *Debouncer
	log          *zap.Logger

	closeOnce sync.Once
	closed    chan struct{}
	done      chan struct{}
}

// Store returns the session's state store.
func (s *Session) Store() *Store {
	return s.store
}

// Connect requests access to the hardware subsystem. Denial is terminal for
// this session: the status becomes error and stays there, a new session must
// be constructed to retry.
func (s *Session) Connect() error {
	s.store.SetStatus(StatusConnecting)
	err := s.subsystem.RequestAccess(s.handleMessage, s.handleChange)
	if err != nil {
		s.store.SetStatus(StatusError)
		return fmt.Errorf("cannot access the MIDI subsystem: %w", err)
	}
	s.store.SetStatus(StatusConnected)
	s.refreshDevices()
	return nil
}

func (s *Session) handleMessage(msg RawMessage) {
	select {
	case <-s.closed:
		return
	default:
	}
	s.debouncer.Put(msg)
}

func (s *Session) handleChange(device DeviceInfo) {
	select {
	case <-s.closed:
		return
	default:
	}
	s.log.Info("input device changed",
		zap.String("device", device.Name),
		zap.String("state", string(device.State)),
	)
	s.refreshDevices()
}

// refreshDevices re-enumerates the full port list instead of patching the
// previous list with the changed port.
func (s *Session) refreshDevices() {
	devices, err := s.subsystem.Devices()
	if err != nil {
		s.log.Error("cannot enumerate the input devices", zap.Error(err))
		s.store.SetStatus(StatusError)
		return
	}
	s.store.SetDevices(devices)
}

func (s *Session) process(msg RawMessage) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("dropping message after processing failure",
				zap.Stringer("message", msg),
				zap.Any("reason", r),
			)
		}
	}()

	id, ok := s.surface.Lookup(msg.Status, msg.Data1)
	if !ok {
		s.log.Warn("no control mapped, dropping message",
			zap.Uint8("status", msg.Status),
			zap.Uint8("data1", msg.Data1),
		)
		return
	}

	value := s.transformers.Transform(id, Normalize(msg.Data2))
	s.store.Apply(id, value)
}

// Close tears the session down: it unsubscribes all message handlers before
// releasing the subsystem handle, drains the pipeline, and sets the status to
// disconnected. Closing twice is a no-op.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.closed)
		if err := s.subsystem.Release(); err != nil {
			s.log.Warn("releasing the MIDI subsystem failed", zap.Error(err))
		}
		s.debouncer.Close()
		<-s.done
		s.store.SetStatus(StatusDisconnected)
	})
}
