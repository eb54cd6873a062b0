// Package ioformat reads and writes the line-oriented, named-block text
// format used to persist Components, SafetyAutomata and plain state sets
// across process boundaries.
//
// A file is a sequence of blocks `# NAME` followed by that block's data
// lines; blocks are read by name rather than by position, the way
// core/types.go's constructors validate a graph's declared shape against
// its data rather than assuming a fixed field order.
package ioformat

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/kmallik/agnes-go/component"
	"github.com/kmallik/agnes-go/safetyautomaton"
	"github.com/kmallik/agnes-go/stateset"
)

// ErrMalformed indicates a required block is missing, a numeric field is
// out of range, a row count disagrees with its declared size, or a
// successor index exceeds the state count.
var ErrMalformed = errors.New("ioformat: malformed block file")

// emptyRow is the literal used in place of a space-separated successor
// list when a (state, input) cell has no successors at all.
const emptyRow = "x"

// blockReader scans a sequence of `# NAME` / data-line blocks, the way a
// single forward-only pass suffices for dfs/topological.go's input
// traversal: each block is consumed exactly once, in file order.
type blockReader struct {
	scanner *bufio.Scanner
	blocks  map[string][]string
}

func newBlockReader(r io.Reader) (*blockReader, error) {
	br := &blockReader{scanner: bufio.NewScanner(r), blocks: make(map[string][]string)}
	br.scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var current string
	for br.scanner.Scan() {
		line := strings.TrimRight(br.scanner.Text(), "\r")
		if strings.HasPrefix(line, "# ") {
			current = strings.TrimSpace(strings.TrimPrefix(line, "# "))
			if _, ok := br.blocks[current]; !ok {
				br.blocks[current] = nil
			}
			continue
		}
		if current == "" {
			continue // preamble before the first block header
		}
		br.blocks[current] = append(br.blocks[current], line)
	}
	if err := br.scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return br, nil
}

func (br *blockReader) intBlock(name string) (int, error) {
	lines, ok := br.blocks[name]
	if !ok || len(lines) == 0 {
		return 0, fmt.Errorf("%w: missing block %q", ErrMalformed, name)
	}
	n, err := strconv.Atoi(strings.TrimSpace(lines[0]))
	if err != nil {
		return 0, fmt.Errorf("%w: block %q: %v", ErrMalformed, name, err)
	}
	return n, nil
}

func (br *blockReader) listBlock(name string, want int) ([]string, error) {
	lines, ok := br.blocks[name]
	if !ok {
		return nil, fmt.Errorf("%w: missing block %q", ErrMalformed, name)
	}
	if len(lines) != want {
		return nil, fmt.Errorf("%w: block %q has %d lines, want %d", ErrMalformed, name, len(lines), want)
	}
	return lines, nil
}

func parseRow(line string) (stateset.Set, error) {
	line = strings.TrimSpace(line)
	if line == "" || line == emptyRow {
		return stateset.New(), nil
	}
	fields := strings.Fields(line)
	s := stateset.New()
	for _, f := range fields {
		v, err := strconv.ParseUint(f, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: bad successor index %q: %v", ErrMalformed, f, err)
		}
		s.Add(uint32(v))
	}
	return s, nil
}

func formatRow(s stateset.Set) string {
	if len(s) == 0 {
		return emptyRow
	}
	elems := s.Slice()
	fields := make([]string, len(elems))
	for i, e := range elems {
		fields[i] = strconv.FormatUint(uint64(e), 10)
	}
	return strings.Join(fields, " ")
}

// parseFlagList reads an N-line block of 0/1 flags, one per state, into the
// set of indices whose flag is set — the shape spec.md's table uses for
// INITIAL_STATE_LIST, SET_SAFE_STATES and SET_TARGET_STATES alike.
func parseFlagList(lines []string, n int) (stateset.Set, error) {
	if len(lines) != n {
		return nil, fmt.Errorf("%w: flag list has %d lines, want %d", ErrMalformed, len(lines), n)
	}
	s := stateset.New()
	for i, line := range lines {
		switch strings.TrimSpace(line) {
		case "1":
			s.Add(uint32(i))
		case "0", "":
		default:
			return nil, fmt.Errorf("%w: bad flag %q at row %d", ErrMalformed, line, i)
		}
	}
	return s, nil
}

func writeBlockHeader(w io.Writer, name string) error {
	_, err := fmt.Fprintf(w, "# %s\n", name)
	return err
}

func writeIntBlock(w io.Writer, name string, n int) error {
	if err := writeBlockHeader(w, name); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%d\n", n)
	return err
}

func writeFlagListBlock(w io.Writer, name string, s stateset.Set, n uint32) error {
	if err := writeBlockHeader(w, name); err != nil {
		return err
	}
	for i := uint32(0); i < n; i++ {
		bit := 0
		if s.Has(i) {
			bit = 1
		}
		if _, err := fmt.Fprintf(w, "%d\n", bit); err != nil {
			return err
		}
	}
	return nil
}

// ReadStateSet reads a SET_<NAME>-style block of n 0/1 flag lines, one per
// state, against a declared state count n — the shape SET_SAFE_STATES and
// SET_TARGET_STATES share with INITIAL_STATE_LIST.
func ReadStateSet(r io.Reader, block string, n int) (stateset.Set, error) {
	br, err := newBlockReader(r)
	if err != nil {
		return nil, err
	}
	lines, ok := br.blocks[block]
	if !ok {
		return nil, fmt.Errorf("%w: missing block %q", ErrMalformed, block)
	}
	return parseFlagList(lines, n)
}

// WriteStateSet writes a SET_<NAME> block of n 0/1 flag lines, one per
// state in [0,n).
func WriteStateSet(w io.Writer, block string, s stateset.Set, n uint32) error {
	return writeFlagListBlock(w, block, s, n)
}

// ReadComponent parses a Component from its NO_STATES / NO_CONTROL_INPUTS /
// NO_DIST_INPUTS / NO_OUTPUTS / INITIAL_STATE_LIST / STATE_TO_OUTPUT /
// TRANSITION_POST blocks.
func ReadComponent(r io.Reader) (*component.Component, error) {
	br, err := newBlockReader(r)
	if err != nil {
		return nil, err
	}
	numStates, err := br.intBlock("NO_STATES")
	if err != nil {
		return nil, err
	}
	numControl, err := br.intBlock("NO_CONTROL_INPUTS")
	if err != nil {
		return nil, err
	}
	numDist, err := br.intBlock("NO_DIST_INPUTS")
	if err != nil {
		return nil, err
	}
	numOutputs, err := br.intBlock("NO_OUTPUTS")
	if err != nil {
		return nil, err
	}

	initLines, err := br.listBlock("INITIAL_STATE_LIST", numStates)
	if err != nil {
		return nil, err
	}
	init, err := parseFlagList(initLines, numStates)
	if err != nil {
		return nil, err
	}
	return readComponentBody(br, uint32(numStates), uint32(numControl), uint32(numDist), uint32(numOutputs), init)
}

func readComponentBody(br *blockReader, numStates, numControl, numDist, numOutputs uint32, init stateset.Set) (*component.Component, error) {
	outLines, err := br.listBlock("STATE_TO_OUTPUT", int(numStates))
	if err != nil {
		return nil, err
	}
	outputs := make([]uint32, numStates)
	for i, line := range outLines {
		v, perr := strconv.ParseUint(strings.TrimSpace(line), 10, 32)
		if perr != nil {
			return nil, fmt.Errorf("%w: STATE_TO_OUTPUT row %d: %v", ErrMalformed, i, perr)
		}
		outputs[i] = uint32(v)
	}

	want := int(numStates) * int(numControl) * int(numDist)
	postLines, err := br.listBlock("TRANSITION_POST", want)
	if err != nil {
		return nil, err
	}
	post := make([]stateset.Set, want)
	for i, line := range postLines {
		s, perr := parseRow(line)
		if perr != nil {
			return nil, fmt.Errorf("%w: TRANSITION_POST row %d: %v", ErrMalformed, i, perr)
		}
		post[i] = s
	}

	return component.New(numStates, numControl, numDist, numOutputs, init, outputs, post)
}

// WriteComponent serializes c in the NO_STATES / ... / TRANSITION_POST
// block shape ReadComponent accepts.
func WriteComponent(w io.Writer, c *component.Component) error {
	if err := writeIntBlock(w, "NO_STATES", int(c.NumStates())); err != nil {
		return err
	}
	if err := writeIntBlock(w, "NO_CONTROL_INPUTS", int(c.NumControl())); err != nil {
		return err
	}
	if err := writeIntBlock(w, "NO_DIST_INPUTS", int(c.NumDisturbance())); err != nil {
		return err
	}
	if err := writeIntBlock(w, "NO_OUTPUTS", int(c.NumOutputs())); err != nil {
		return err
	}
	if err := writeBlockHeader(w, "INITIAL_STATE_LIST"); err != nil {
		return err
	}
	for i := uint32(0); i < c.NumStates(); i++ {
		bit := 0
		if c.Init().Has(i) {
			bit = 1
		}
		if _, err := fmt.Fprintf(w, "%d\n", bit); err != nil {
			return err
		}
	}
	if err := writeBlockHeader(w, "STATE_TO_OUTPUT"); err != nil {
		return err
	}
	for i := uint32(0); i < c.NumStates(); i++ {
		if _, err := fmt.Fprintf(w, "%d\n", c.Output(i)); err != nil {
			return err
		}
	}
	if err := writeBlockHeader(w, "TRANSITION_POST"); err != nil {
		return err
	}
	for s := uint32(0); s < c.NumStates(); s++ {
		for u := uint32(0); u < c.NumControl(); u++ {
			for d := uint32(0); d < c.NumDisturbance(); d++ {
				if _, err := fmt.Fprintln(w, formatRow(c.Post(s, u, d))); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// ReadAutomaton parses a SafetyAutomaton from its NO_STATES /
// NO_INPUTS / INITIAL_STATE_LIST / TRANSITION_POST blocks. Per the reject
// state invariant, row 0 of TRANSITION_POST must list only 0 on every
// input; safetyautomaton.New enforces this and ReadAutomaton surfaces its
// error unchanged.
func ReadAutomaton(r io.Reader) (*safetyautomaton.Automaton, error) {
	br, err := newBlockReader(r)
	if err != nil {
		return nil, err
	}
	numStates, err := br.intBlock("NO_STATES")
	if err != nil {
		return nil, err
	}
	numInputs, err := br.intBlock("NO_INPUTS")
	if err != nil {
		return nil, err
	}
	initLines, err := br.listBlock("INITIAL_STATE_LIST", numStates)
	if err != nil {
		return nil, err
	}
	init, err := parseFlagList(initLines, numStates)
	if err != nil {
		return nil, err
	}
	want := numStates * numInputs
	postLines, err := br.listBlock("TRANSITION_POST", want)
	if err != nil {
		return nil, err
	}
	post := make([]stateset.Set, want)
	for i, line := range postLines {
		s, perr := parseRow(line)
		if perr != nil {
			return nil, fmt.Errorf("%w: TRANSITION_POST row %d: %v", ErrMalformed, i, perr)
		}
		post[i] = s
	}
	return safetyautomaton.New(uint32(numStates), uint32(numInputs), init, post)
}

// WriteAutomaton serializes a in the NO_STATES / ... / TRANSITION_POST
// block shape ReadAutomaton accepts.
func WriteAutomaton(w io.Writer, a *safetyautomaton.Automaton) error {
	if err := writeIntBlock(w, "NO_STATES", int(a.NumStates())); err != nil {
		return err
	}
	if err := writeIntBlock(w, "NO_INPUTS", int(a.NumInputs())); err != nil {
		return err
	}
	if err := writeFlagListBlock(w, "INITIAL_STATE_LIST", a.Init(), a.NumStates()); err != nil {
		return err
	}
	if err := writeBlockHeader(w, "TRANSITION_POST"); err != nil {
		return err
	}
	for s := uint32(0); s < a.NumStates(); s++ {
		for j := uint32(0); j < a.NumInputs(); j++ {
			if _, err := fmt.Fprintln(w, formatRow(a.Post(s, j))); err != nil {
				return err
			}
		}
	}
	return nil
}
