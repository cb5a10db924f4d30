package tspsi

import (
	"sync"

	"golang.org/x/exp/slices"
)

// FilterCallback is invoked with a fully reassembled section payload
// when a Filter's predicate matches. pid is the PID the section
// arrived on.
type FilterCallback func(pid uint16, section []byte) error

// maxFilterDepth bounds the byte-pattern predicate. Every table
// specified here needs depth 1 (a single table_id byte with a mask),
// but the predicate is kept general the way
// original_source/src/table.c's filter_param_t is, to support
// extensibility.
const maxFilterDepth = 8

// FilterParams describes the byte-pattern predicate a Filter matches
// against the first Depth bytes of a section: section[i]&Mask[i] must
// equal Coff[i]&Mask[i], or must differ from it where Negate[i] is set.
type FilterParams struct {
	Depth  int
	Coff   [maxFilterDepth]uint8
	Mask   [maxFilterDepth]uint8
	Negate [maxFilterDepth]bool
}

// TableIDFilterParams builds the common case: a single (table_id,
// mask) predicate evaluated against section[0].
func TableIDFilterParams(tableID, mask uint8) FilterParams {
	return FilterParams{
		Depth: 1,
		Coff:  [maxFilterDepth]uint8{tableID},
		Mask:  [maxFilterDepth]uint8{mask},
	}
}

func (p FilterParams) matches(section []byte) bool {
	for i := 0; i < p.Depth; i++ {
		if i >= len(section) {
			return false
		}
		eq := section[i]&p.Mask[i] == p.Coff[i]&p.Mask[i]
		if p.Negate[i] {
			eq = !eq
		}
		if !eq {
			return false
		}
	}
	return true
}

func (p FilterParams) equal(o FilterParams) bool {
	if p.Depth != o.Depth {
		return false
	}
	for i := 0; i < p.Depth; i++ {
		if p.Coff[i] != o.Coff[i] || p.Mask[i] != o.Mask[i] || p.Negate[i] != o.Negate[i] {
			return false
		}
	}
	return true
}

// Filter binds a predicate and a callback to a PID.
type Filter struct {
	pid      uint16
	params   FilterParams
	callback FilterCallback
}

// PID returns the PID this filter was allocated against.
func (f *Filter) PID() uint16 { return f.pid }

// FilterTable is a PID-indexed ordered collection of filters. It's the
// indirection that lets the PAT parser enroll PMT filters at runtime
// without the demuxer knowing PMT PIDs in advance -- the runtime
// equivalent of original_source/src/table.c's
// init_table_filter/filter_lookup/filter_free family.
type FilterTable struct {
	mu      sync.Mutex
	byPID   map[uint16][]*Filter
}

// NewFilterTable creates an empty filter table.
func NewFilterTable() *FilterTable {
	return &FilterTable{byPID: make(map[uint16][]*Filter)}
}

// Alloc creates a new, unconfigured filter bound to pid.
func (t *FilterTable) Alloc(pid uint16) *Filter {
	return &Filter{pid: pid}
}

// Set configures a filter's predicate and callback and registers it
// in the table.
func (t *FilterTable) Set(f *Filter, params FilterParams, cb FilterCallback) {
	f.params = params
	f.callback = cb

	t.mu.Lock()
	defer t.mu.Unlock()
	t.byPID[f.pid] = append(t.byPID[f.pid], f)
}

// Lookup returns the filter registered at pid matching params, if any.
func (t *FilterTable) Lookup(pid uint16, params FilterParams) *Filter {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, f := range t.byPID[pid] {
		if f.params.equal(params) {
			return f
		}
	}
	return nil
}

// Free removes a filter from the table.
func (t *FilterTable) Free(f *Filter) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fs := t.byPID[f.pid]
	if i := slices.Index(fs, f); i >= 0 {
		t.byPID[f.pid] = slices.Delete(fs, i, i+1)
	}
	if len(t.byPID[f.pid]) == 0 {
		delete(t.byPID, f.pid)
	}
}

// HasFilters reports whether any filter is currently registered at
// pid, letting a demultiplexer skip section reassembly work for PIDs
// nothing is listening to.
func (t *FilterTable) HasFilters(pid uint16) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.byPID[pid]) > 0
}

// Dispatch evaluates every filter registered at pid against section,
// in registration order, and invokes the callback of every filter
// whose predicate matches -- multiple filters may match the same
// section (e.g. the NIT actual+other filter's 0xFE mask).
//
// The filter slice for pid is copied before iterating so that a
// callback mutating the table (PAT enrolling a PMT filter) never
// corrupts the in-flight iteration.
func (t *FilterTable) Dispatch(pid uint16, section []byte) error {
	t.mu.Lock()
	fs := make([]*Filter, len(t.byPID[pid]))
	copy(fs, t.byPID[pid])
	t.mu.Unlock()

	var firstErr error
	for _, f := range fs {
		if !f.params.matches(section) {
			continue
		}
		if err := f.callback(pid, section); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
