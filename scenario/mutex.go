// Package scenario builds example component pairs for the negotiation
// search, the way dshills-dungo's pkg/dungeon builds example dungeons from
// a small set of YAML-tunable parameters instead of requiring a caller to
// hand-write a Component literal.
//
// Mutex generates the two-process mutual-exclusion contention scenario
// described by original_source/examples/mutex/mutex-generate: two
// processes each counting down a packet quota, a per-write deadline and an
// inter-write period, racing for access to a shared resource neither
// Component models directly (the race is visible only through each side's
// disturbance input, fed by the other's output). mutex-gen.cpp's own
// state_to_output construction has a switch/case fallthrough bug (cases
// without break, silently reusing the previous case's push); this
// generator does not reproduce it — see MutexConfig's doc comment.
package scenario

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/kmallik/agnes-go/component"
	"github.com/kmallik/agnes-go/stateset"
)

// ErrInvalidConfig indicates a scenario configuration has an out-of-range
// parameter.
var ErrInvalidConfig = errors.New("scenario: invalid configuration")

// Mutex control inputs.
const (
	MutexWrite uint32 = 0
	MutexWait  uint32 = 1
)

// Mutex disturbance inputs: the value received is the other process's
// current output.
const (
	MutexOtherWriting uint32 = 0
	MutexOtherIdle    uint32 = 1
)

// Mutex outputs.
const (
	MutexOutputIdle    uint32 = 0
	MutexOutputWriting uint32 = 1
)

// MutexConfig parameterizes Mutex: Packets is the packet quota a process
// must exhaust before reaching "finished", Deadline bounds the ticks a
// process may spend contending for a single write before timing out, and
// Period bounds the ticks it may idle-wait between writes before its
// fairness window expires.
//
// Unlike mutex-gen.cpp, a write attempt resolves in the same tick its
// control is chosen rather than lingering one extra tick in an explicit
// "writing" state that the other side observes late: here, observing
// MutexOtherWriting on a write attempt means the peer's write is already
// in flight this tick (the peer entered its own one-tick writing state on
// an earlier, successful attempt), so the conflict is caught immediately
// instead of a tick later.
type MutexConfig struct {
	Packets  int `yaml:"packets"`
	Deadline int `yaml:"deadline"`
	Period   int `yaml:"period"`
}

// DefaultMutexConfig returns a small, hand-traceable instance: one packet,
// a two-tick deadline and a two-tick period.
func DefaultMutexConfig() MutexConfig {
	return MutexConfig{Packets: 1, Deadline: 2, Period: 2}
}

func (c MutexConfig) validate() error {
	if c.Packets < 1 || c.Deadline < 1 || c.Period < 1 {
		return fmt.Errorf("%w: packets, deadline and period must all be >= 1, got %+v", ErrInvalidConfig, c)
	}
	return nil
}

// mutexLayout precomputes the state-index arithmetic for one process: D*L*P
// idle(j,k,l) states addressed first, then D one-tick writing(j) states,
// then the three sinks timedOut, periodExpired and finished.
type mutexLayout struct {
	d, l, p int
}

func (m mutexLayout) idle(j, k, l int) uint32 {
	return uint32((j*m.l+k)*m.p + l)
}

func (m mutexLayout) numIdle() int { return m.d * m.l * m.p }

func (m mutexLayout) writing(j int) uint32 {
	return uint32(m.numIdle() + j)
}

func (m mutexLayout) timedOut() uint32      { return uint32(m.numIdle() + m.d) }
func (m mutexLayout) periodExpired() uint32 { return uint32(m.numIdle() + m.d + 1) }
func (m mutexLayout) finished() uint32      { return uint32(m.numIdle() + m.d + 2) }
func (m mutexLayout) numStates() uint32     { return uint32(m.numIdle() + m.d + 3) }

// MutexSafe reports the states that keep a mutex process safe: every state
// but the two timeout sinks.
func MutexSafe(cfg MutexConfig) (stateset.Set, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	m := mutexLayout{cfg.Packets, cfg.Deadline, cfg.Period}
	safe := stateset.New()
	for s := uint32(0); s < m.numStates(); s++ {
		if s != m.timedOut() && s != m.periodExpired() {
			safe.Add(s)
		}
	}
	return safe, nil
}

// Mutex builds one mutex-contention process component. Two independent
// calls (with the same or different configs) give the pair negotiate
// expects: each consumes the other's output as its own disturbance input.
func Mutex(cfg MutexConfig) (*component.Component, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	m := mutexLayout{cfg.Packets, cfg.Deadline, cfg.Period}
	n := m.numStates()

	outputs := make([]uint32, n)
	for s := uint32(0); s < uint32(m.numIdle()); s++ {
		outputs[s] = MutexOutputIdle
	}
	for j := 0; j < m.d; j++ {
		outputs[m.writing(j)] = MutexOutputWriting
	}
	outputs[m.timedOut()] = MutexOutputIdle
	outputs[m.periodExpired()] = MutexOutputIdle
	outputs[m.finished()] = MutexOutputIdle

	transitions := make([]stateset.Set, n*2*2)
	addr := func(s, u, d uint32) uint32 { return s*2*2 + u*2 + d }

	for j := 0; j < m.d; j++ {
		for k := 0; k < m.l; k++ {
			for l := 0; l < m.p; l++ {
				s := m.idle(j, k, l)

				// write & conflict: the peer is already mid-write this tick.
				if k == 0 {
					transitions[addr(s, MutexWrite, MutexOtherWriting)] = stateset.New(m.timedOut())
				} else {
					transitions[addr(s, MutexWrite, MutexOtherWriting)] = stateset.New(m.idle(j, k-1, l))
				}
				// write & clear: enter the one-tick writing state.
				transitions[addr(s, MutexWrite, MutexOtherIdle)] = stateset.New(m.writing(uint32(j)))

				// wait: burn deadline and period budget together.
				var waitTarget stateset.Set
				switch {
				case k == 0:
					waitTarget = stateset.New(m.timedOut())
				case l == 0:
					waitTarget = stateset.New(m.periodExpired())
				default:
					waitTarget = stateset.New(m.idle(j, k-1, l-1))
				}
				transitions[addr(s, MutexWait, MutexOtherWriting)] = waitTarget
				transitions[addr(s, MutexWait, MutexOtherIdle)] = waitTarget.Clone()
			}
		}
	}

	for j := 0; j < m.d; j++ {
		s := m.writing(uint32(j))
		var next stateset.Set
		if j == 0 {
			next = stateset.New(m.finished())
		} else {
			next = stateset.New(m.idle(j-1, m.l-1, m.p-1))
		}
		for u := uint32(0); u < 2; u++ {
			for d := uint32(0); d < 2; d++ {
				transitions[addr(s, u, d)] = next.Clone()
			}
		}
	}

	for _, sink := range []uint32{m.timedOut(), m.periodExpired(), m.finished()} {
		for u := uint32(0); u < 2; u++ {
			for d := uint32(0); d < 2; d++ {
				transitions[addr(sink, u, d)] = stateset.New(sink)
			}
		}
	}

	init := stateset.New(m.idle(m.d-1, m.l-1, m.p-1))
	return component.New(n, 2, 2, 2, init, outputs, transitions)
}

// LoadMutexConfig reads a MutexConfig from YAML, the way dshills-dungo's
// dungeon config loader reads a generation config from a file.
func LoadMutexConfig(data []byte) (MutexConfig, error) {
	cfg := DefaultMutexConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return MutexConfig{}, fmt.Errorf("scenario: parsing mutex config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return MutexConfig{}, err
	}
	return cfg, nil
}
