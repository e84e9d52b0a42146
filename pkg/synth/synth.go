// Package synth maps control values to the parameter set of a software
// synthesizer with a fixed serial chain: oscillator, filter, distortion,
// delay, reverb.
package synth

import (
	"sync"

	"go.uber.org/zap"

	"github.com/AlessandroAnnini/midi-controller/pkg/ctrl"
)

// Params is the full parameter set of the synthesizer.
type Params struct {
	VolumeDB        float64
	DetuneCents     float64
	CutoffHz        float64
	FilterQ         float64
	FilterGainDB    float64
	LFORateHz       float64
	LFODepth        float64
	Distortion      float64
	DistortionMix   float64
	DelayTimeS      float64
	DelayFeedback   float64
	DelayMix        float64
	ReverbDecayS    float64
	ReverbPreDelayS float64
	ReverbMix       float64
}

// Neutral returns the parameter set that leaves the chain audibly unchanged.
// Controls absent from the state keep their neutral value.
func Neutral() Params {
	return Params{
		CutoffHz: 20000,
		FilterQ:  1,
	}
}

// From computes the parameter set from the given control values. The control
// assignment and the scaling formulas are a fixed contract with the surface's
// bottom knob row and fader bank.
func From(values map[ctrl.ControlID]float64) Params {
	result := Neutral()
	assign := func(id ctrl.ControlID, target *float64, scale func(float64) float64) {
		value, ok := values[id]
		if !ok {
			return
		}
		*target = scale(value)
	}

	assign("C26", &result.VolumeDB, func(v float64) float64 { return v*24 - 12 })
	assign("C27", &result.DetuneCents, func(v float64) float64 { return v*100 - 50 })
	assign("C29", &result.CutoffHz, func(v float64) float64 { return 20 + v*19980 })
	assign("C30", &result.FilterQ, func(v float64) float64 { return v * 10 })
	assign("C31", &result.FilterGainDB, func(v float64) float64 { return v*24 - 12 })
	assign("C32", &result.LFORateHz, func(v float64) float64 { return v * 20 })
	assign("C33", &result.LFODepth, func(v float64) float64 { return v })
	assign("F1", &result.Distortion, func(v float64) float64 { return v })
	assign("F2", &result.DistortionMix, func(v float64) float64 { return v })
	assign("F3", &result.DelayTimeS, func(v float64) float64 { return v })
	assign("F4", &result.DelayFeedback, func(v float64) float64 { return v })
	assign("F5", &result.DelayMix, func(v float64) float64 { return v })
	assign("F6", &result.ReverbDecayS, func(v float64) float64 { return v * 10 })
	assign("F7", &result.ReverbPreDelayS, func(v float64) float64 { return v * 0.1 })
	assign("F8", &result.ReverbMix, func(v float64) float64 { return v })

	return result
}

// NewConsumer starts a consumer that recomputes the parameter set from the
// store on every update. apply may be nil; when set it is called with every
// recomputed parameter set.
func NewConsumer(store *ctrl.Store, apply func(Params), log *zap.Logger) *Consumer {
	result := &Consumer{
		store:   store,
		apply:   apply,
		log:     log,
		current: Neutral(),
		closed:  make(chan struct{}),
		done:    make(chan struct{}),
	}

	go result.run(store.Subscribe())

	return result
}

// Consumer reads the state store and keeps the synthesizer parameters in sync.
type Consumer struct {
	store *ctrl.Store
	apply func(Params)
	log   *zap.Logger

	mu      sync.RWMutex
	current Params

	closeOnce sync.Once
	closed    chan struct{}
	done      chan struct{}
}

func (c *Consumer) run(updates <-chan struct{}) {
	defer close(c.done)
	for {
		select {
		case <-c.closed:
			return
		case <-updates:
			params := From(c.store.Snapshot().Values)

			c.mu.Lock()
			changed := params != c.current
			c.current = params
			c.mu.Unlock()

			if changed {
				c.log.Debug("synthesizer parameters updated")
				if c.apply != nil {
					c.apply(params)
				}
			}
		}
	}
}

// Current returns the last computed parameter set.
func (c *Consumer) Current() Params {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// Close stops the consumer. Closing twice is a no-op.
func (c *Consumer) Close() {
	c.closeOnce.Do(func() {
		close(c.closed)
		<-c.done
	})
}
