package graph

import (
	"sort"
	"sync"
)

type (
	// Param is an automatable value: a timeline of set and linear ramp events
	// on the context clock. Times are absolute seconds.
	Param struct {
		mu     sync.Mutex
		value  float64 // value before the first event
		events []event
	}

	event struct {
		ramp  bool
		time  float64
		value float64
	}
)

func NewParam(value float64) *Param {
	return &Param{value: value}
}

// SetValueAtTime jumps to value at time t.
func (p *Param) SetValueAtTime(value, t float64) {
	p.insert(event{time: t, value: value})
}

// LinearRampToValueAtTime ramps linearly from the previous event to value,
// arriving at time t.
func (p *Param) LinearRampToValueAtTime(value, t float64) {
	p.insert(event{ramp: true, time: t, value: value})
}

// CancelScheduledValues removes all events at or after t.
func (p *Param) CancelScheduledValues(t float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	i := sort.Search(len(p.events), func(i int) bool { return p.events[i].time >= t })
	p.events = p.events[:i]
}

// ValueAt evaluates the timeline at time t.
func (p *Param) ValueAt(t float64) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.valueAt(t)
}

// Fill evaluates the timeline for len(dst) consecutive frames, the first at
// time t0 and each following dt later.
func (p *Param) Fill(dst []float32, t0, dt float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.events) == 0 {
		for i := range dst {
			dst[i] = float32(p.value)
		}
		return
	}
	for i := range dst {
		dst[i] = float32(p.valueAt(t0 + float64(i)*dt))
	}
}

func (p *Param) insert(e event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	// events with equal times keep their insertion order
	i := sort.Search(len(p.events), func(i int) bool { return p.events[i].time > e.time })
	p.events = append(p.events, event{})
	copy(p.events[i+1:], p.events[i:])
	p.events[i] = e
}

func (p *Param) valueAt(t float64) float64 {
	prevTime, prevValue, havePrev := 0.0, p.value, false
	for _, e := range p.events {
		if e.time <= t {
			prevTime, prevValue, havePrev = e.time, e.value, true
			continue
		}
		if !e.ramp || !havePrev || e.time <= prevTime {
			return prevValue
		}
		return prevValue + (e.value-prevValue)*(t-prevTime)/(e.time-prevTime)
	}
	return prevValue
}
