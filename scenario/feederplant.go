package scenario

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/kmallik/agnes-go/component"
	"github.com/kmallik/agnes-go/stateset"
)

// Feeder control inputs.
const (
	FeederPush uint32 = 0
	FeederWait uint32 = 1
)

// Feeder disturbance inputs: the plant's current output.
const (
	PlantOutputIdle         uint32 = 0
	PlantOutputBusy         uint32 = 1
	PlantOutputJustConsumed uint32 = 2
)

// Feeder outputs.
const (
	FeederOutputIdle uint32 = 0
	FeederOutputBusy uint32 = 1
)

// Plant control inputs.
const (
	PlantProcess uint32 = 0
	PlantWait    uint32 = 1
)

// Plant disturbance inputs: the feeder's current output.
const (
	FeederOutputIdleDist uint32 = 0
	FeederOutputBusyDist uint32 = 1
)

// FeederPlantConfig parameterizes Feeder and Plant. FeederWaitCycles bounds
// how long the feeder idles between deliveries before shutting down for
// good; PlantProcessCycles and PlantHibernateCycles bound the plant's busy
// and post-cycle hibernation phases.
type FeederPlantConfig struct {
	FeederWaitCycles     int `yaml:"feederWaitCycles"`
	PlantProcessCycles   int `yaml:"plantProcessCycles"`
	PlantHibernateCycles int `yaml:"plantHibernateCycles"`
}

// DefaultFeederPlantConfig matches the scenario spec.md calls out as
// expected to succeed: a one-cycle process, one-cycle hibernation and a
// three-tick feeder wait budget.
func DefaultFeederPlantConfig() FeederPlantConfig {
	return FeederPlantConfig{FeederWaitCycles: 3, PlantProcessCycles: 1, PlantHibernateCycles: 1}
}

func (c FeederPlantConfig) validate() error {
	if c.FeederWaitCycles < 1 || c.PlantProcessCycles < 1 || c.PlantHibernateCycles < 1 {
		return fmt.Errorf("%w: feederWaitCycles, plantProcessCycles and plantHibernateCycles must all be >= 1, got %+v", ErrInvalidConfig, c)
	}
	return nil
}

// LoadFeederPlantConfig reads a FeederPlantConfig from YAML.
func LoadFeederPlantConfig(data []byte) (FeederPlantConfig, error) {
	cfg := DefaultFeederPlantConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return FeederPlantConfig{}, fmt.Errorf("scenario: parsing feeder/plant config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return FeederPlantConfig{}, err
	}
	return cfg, nil
}

// Feeder builds the feeder component described by
// original_source/examples/factory-parameterized/factory-generate: states
// 0 ("empty"), 1 ("part full"), 2 ("full"), an alternating not-full/full
// idle-wait chain counting down W-1 further ticks, and a final absorbing
// "shutdown". The chain and its boundary transitions are translated
// directly from factory-generate.cpp's post_feeder construction, which
// (unlike mutex-gen.cpp) has no fallthrough bug to work around.
func Feeder(cfg FeederPlantConfig) (*component.Component, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	w := cfg.FeederWaitCycles
	n := uint32(4 + 2*(w-1))
	shutdown := n - 1

	outputs := make([]uint32, n)
	for i := uint32(0); i < n; i++ {
		if i == 1 || i == 2 {
			outputs[i] = FeederOutputBusy
		} else {
			outputs[i] = FeederOutputIdle
		}
	}

	transitions := make([]stateset.Set, n*2*3)
	addr := func(s, u, d uint32) uint32 { return s*2*3 + u*3 + d }

	set := func(s, u, d uint32, to ...uint32) { transitions[addr(s, u, d)] = stateset.New(to...) }

	// state 0: empty.
	for _, d := range []uint32{0, 1, 2} {
		set(0, FeederPush, d, 1)
		set(0, FeederWait, d, 3)
	}

	// state 1: part full.
	set(1, FeederPush, 0, 1, 2)
	set(1, FeederPush, 1, 1, 2)
	set(1, FeederPush, 2, 1)
	for _, d := range []uint32{0, 1, 2} {
		set(1, FeederWait, d, 3)
	}

	// state 2: full.
	if w > 1 {
		set(2, FeederWait, 0, 4)
		set(2, FeederWait, 1, 4)
	} else {
		set(2, FeederWait, 0, 3)
		set(2, FeederWait, 1, 3)
	}
	set(2, FeederWait, 2, 3)

	// idle counter chain, i = 3 .. n-3; i=n-2 is handled specially below.
	for i := uint32(3); i < n-2; i++ {
		if i%2 != 0 {
			set(i, FeederPush, 0, i, 0, 1, 2)
			set(i, FeederPush, 1, i, 0, 1, 2)
			set(i, FeederPush, 2, i, 1)
			for _, d := range []uint32{0, 1, 2} {
				set(i, FeederWait, d, i+2)
			}
		} else {
			set(i, FeederWait, 0, i+2)
			set(i, FeederWait, 1, i+2)
			set(i, FeederWait, 2, i-1)
		}
	}
	if w > 1 {
		last := n - 2
		set(last, FeederWait, 0, shutdown)
		set(last, FeederWait, 1, shutdown)
		set(last, FeederWait, 2, shutdown)
	}

	// shutdown self-loops under every input.
	for u := uint32(0); u < 2; u++ {
		for d := uint32(0); d < 3; d++ {
			set(shutdown, u, d, shutdown)
		}
	}

	init := stateset.New(0)
	return component.New(n, 2, 3, 2, init, outputs, transitions)
}

// plantLayout precomputes the plant's state indices: idle(0), a busy chain
// of PlantProcessCycles states counting a process cycle down, and (when
// PlantHibernateCycles > 1) a further hibernate chain before returning to
// idle. Unlike factory-generate.cpp's plant, which tracks "empty" and
// "non-empty" in parallel through the whole busy/hibernate chain, this
// model folds that bookkeeping into the idle<->busy edge alone: the plant
// only ever starts a cycle in reaction to the feeder's own busy output, so
// a separate empty/non-empty flavor of every busy and hibernate state adds
// bookkeeping original_source tracks but nothing here observes.
type plantLayout struct {
	processCycles, hibernateCycles int
}

func (p plantLayout) busy(s int) uint32 { return uint32(1 + s) } // s in [0, processCycles)
func (p plantLayout) hibernate(t int) uint32 {
	return uint32(1 + p.processCycles + t) // t in [0, hibernateCycles-1)
}
func (p plantLayout) numStates() uint32 {
	extra := 0
	if p.hibernateCycles > 1 {
		extra = p.hibernateCycles - 1
	}
	return uint32(1 + p.processCycles + extra)
}

// Plant builds the plant component: idle until the feeder reports it is
// busy (has stock ready), then a fixed-length busy phase (reporting
// "just consumed" on its first tick, "busy" thereafter) followed by an
// optional hibernation phase before returning to idle.
func Plant(cfg FeederPlantConfig) (*component.Component, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	p := plantLayout{cfg.PlantProcessCycles, cfg.PlantHibernateCycles}
	n := p.numStates()

	outputs := make([]uint32, n)
	outputs[0] = PlantOutputIdle
	for s := 0; s < p.processCycles; s++ {
		if s == 0 {
			outputs[p.busy(s)] = PlantOutputJustConsumed
		} else {
			outputs[p.busy(s)] = PlantOutputBusy
		}
	}
	if p.hibernateCycles > 1 {
		for t := 0; t < p.hibernateCycles-1; t++ {
			outputs[p.hibernate(t)] = PlantOutputIdle
		}
	}

	transitions := make([]stateset.Set, n*2*2)
	addr := func(s, u, d uint32) uint32 { return s*2*2 + u*2 + d }
	set := func(s, u, d uint32, to uint32) { transitions[addr(s, u, d)] = stateset.New(to) }

	for u := uint32(0); u < 2; u++ {
		set(0, u, FeederOutputBusyDist, p.busy(0))
		set(0, u, FeederOutputIdleDist, 0)
	}

	for s := 0; s < p.processCycles; s++ {
		var next uint32
		if s+1 < p.processCycles {
			next = p.busy(s + 1)
		} else if p.hibernateCycles > 1 {
			next = p.hibernate(0)
		} else {
			next = 0
		}
		from := p.busy(s)
		for u := uint32(0); u < 2; u++ {
			for d := uint32(0); d < 2; d++ {
				set(from, u, d, next)
			}
		}
	}

	if p.hibernateCycles > 1 {
		for t := 0; t < p.hibernateCycles-1; t++ {
			var next uint32
			if t+1 < p.hibernateCycles-1 {
				next = p.hibernate(t + 1)
			} else {
				next = 0
			}
			from := p.hibernate(t)
			for u := uint32(0); u < 2; u++ {
				for d := uint32(0); d < 2; d++ {
					set(from, u, d, next)
				}
			}
		}
	}

	init := stateset.New(0)
	return component.New(n, 2, 2, 3, init, outputs, transitions)
}

// FeederPlantSafeAndTarget returns the safe and target sets for the pair:
// original_source's feeder/plant example defines no dedicated "unsafe"
// sink the way mutex-generate's TO/period_TO states do, so both sets are
// every state of the component — the same "any-trace Büchi reduces to safety
// only" shape spec.md's mutex scenario calls out explicitly, applied here
// because nothing in either generator's state space distinguishes a
// preferred subset.
func FeederPlantSafeAndTarget(feeder, plant *component.Component) (safeFeeder, targetFeeder, safePlant, targetPlant stateset.Set) {
	all := func(n uint32) stateset.Set {
		s := stateset.New()
		for i := uint32(0); i < n; i++ {
			s.Add(i)
		}
		return s
	}
	safeFeeder = all(feeder.NumStates())
	targetFeeder = safeFeeder.Clone()
	safePlant = all(plant.NumStates())
	targetPlant = safePlant.Clone()
	return
}
