package tspsi

import (
	"sync"

	"golang.org/x/exp/slices"
)

// Stats counts sections seen per table class, named after
// original_source/src/table.c's psi.stats.*_sections fields.
type Stats struct {
	PATSections       uint64
	CATSections       uint64
	PMTSections       uint64
	NITActualSections uint64
	NITOtherSections  uint64
	BATSections       uint64
	SDTActualSections uint64
	SDTOtherSections  uint64
	EITSections       uint64
	TDTSections       uint64
	TOTSections       uint64
}

// Store is the single owner of every decoded PSI/SI entity: exactly
// one PAT, one CAT, up to 8,192 PMTs keyed by PID, one NIT_actual, one
// NIT_other, one BAT, one SDT_actual, one SDT_other, one EIT summary,
// one TDT, one TOT, and running per-table stats. It mirrors the global
// `psi` instance original_source/src/table.c keeps, minus the
// intrusive-list bookkeeping C needs and Go doesn't.
type Store struct {
	mu sync.Mutex

	PAT       *PATData
	CAT       *CATData
	PMT       map[uint16]*PMTData
	pmtBitmap [128]uint64 // 8192 bits, one per PID

	NITActual *NITData
	NITOther  *NITData
	BAT       *BATData
	SDTActual *SDTData
	SDTOther  *SDTData
	EIT       *EITSummary
	TDT       *TDTData
	TOT       *TOTData

	Stats Stats

	filters *FilterTable

	assemblersMu sync.Mutex
	assemblers   map[assemblerKey]*SectionAssembler
}

// NewStore allocates a store and its filter table and wires the nine
// well-known filters (PAT, CAT, NIT actual+other, EIT, SDT
// actual+other, BAT, TDT, TOT), the Go shape of
// original_source/src/table.c's init_table_ops. PMT filters are NOT
// wired here; they're enrolled dynamically as PAT sections are parsed.
func NewStore() *Store {
	s := &Store{
		PAT:        newPATData(),
		CAT:        &CATData{VersionNumber: versionUnset},
		PMT:        make(map[uint16]*PMTData),
		NITActual:  &NITData{VersionNumber: versionUnset},
		NITOther:   &NITData{VersionNumber: versionUnset},
		BAT:        &BATData{VersionNumber: versionUnset},
		SDTActual:  &SDTData{VersionNumber: versionUnset},
		SDTOther:   &SDTData{VersionNumber: versionUnset},
		EIT:        &EITSummary{VersionNumber: versionUnset},
		TDT:        &TDTData{},
		TOT:        &TOTData{},
		filters:    NewFilterTable(),
		assemblers: make(map[assemblerKey]*SectionAssembler),
	}
	s.PAT.VersionNumber = versionUnset
	s.initTableOps()
	return s
}

// Filters returns the store's filter table, for wiring into a
// demultiplexer's per-PID dispatch.
func (s *Store) Filters() *FilterTable { return s.filters }

func (s *Store) initTableOps() {
	s.addFilter(PIDPAT, TableIDFilterParams(TableIDPAT, 0xFF), s.handlePAT)
	s.addFilter(PIDCAT, TableIDFilterParams(TableIDCAT, 0xFF), s.handleCAT)
	// One filter, mask 0xFE, matches both NIT_ACTUAL_TID (0x40) and
	// NIT_OTHER_TID (0x41) in a single registration.
	s.addFilter(PIDNIT, TableIDFilterParams(TableIDNITActual, 0xFE), s.handleNIT)
	// EIT spans table_id 0x4E..0x6F, a range no single (table_id, mask)
	// AND-predicate can express exactly (unlike NIT's two adjacent
	// IDs). Register with a zero mask -- matches every table_id
	// arriving on PID 0x0012, which in a conformant stream is always
	// an EIT section -- and let handleEIT/parseEIT reject anything
	// genuinely outside the range.
	s.addFilter(PIDEIT, TableIDFilterParams(TableIDEITFirst, 0x00), s.handleEIT)
	s.addFilter(PIDSDT, TableIDFilterParams(TableIDSDTActual, 0xFF), s.handleSDTOrBAT)
	s.addFilter(PIDSDT, TableIDFilterParams(TableIDSDTOther, 0xFF), s.handleSDTOrBAT)
	s.addFilter(PIDBAT, TableIDFilterParams(TableIDBAT, 0xFF), s.handleSDTOrBAT)
	s.addFilter(PIDTDT, TableIDFilterParams(TableIDTDT, 0xFF), s.handleTDTOrTOT)
	s.addFilter(PIDTOT, TableIDFilterParams(TableIDTOT, 0xFF), s.handleTDTOrTOT)
}

func (s *Store) addFilter(pid uint16, params FilterParams, cb FilterCallback) {
	f := s.filters.Alloc(pid)
	s.filters.Set(f, params, cb)
}

// assemblerKey identifies one SectionAssembler within a Store's
// assemblers map: one per (pid, table_id) for every genuinely
// versioned, duplicate-suppressed table -- PAT, CAT, NIT_actual/other,
// SDT_actual/other, BAT, and PMT (one per program_map_PID). EIT
// deliberately bypasses this map; see handleEIT.
type assemblerKey struct {
	pid     uint16
	tableID uint8
}

// assemblerFor returns s's assembler for (pid, tableID), creating it on
// first use. Each Store owns its assemblers independently, so two
// stores processing the same (pid, table_id, version) never collide.
func (s *Store) assemblerFor(pid uint16, tableID uint8) *SectionAssembler {
	s.assemblersMu.Lock()
	defer s.assemblersMu.Unlock()
	key := assemblerKey{pid, tableID}
	a, ok := s.assemblers[key]
	if !ok {
		a = NewSectionAssembler()
		s.assemblers[key] = a
	}
	return a
}

func (s *Store) handlePAT(pid uint16, section []byte) error {
	a := s.assemblerFor(pid, TableIDPAT)
	h, state, payload, err := a.Feed(section)
	if err != nil {
		return err
	}
	if state != SectionComplete {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := parsePAT(h, payload, s.PAT, s.RegisterPMTOps); err != nil {
		return err
	}
	s.Stats.PATSections++
	return nil
}

func (s *Store) handleCAT(pid uint16, section []byte) error {
	a := s.assemblerFor(pid, TableIDCAT)
	h, state, payload, err := a.Feed(section)
	if err != nil {
		return err
	}
	if state != SectionComplete {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := parseCAT(h, payload, s.CAT); err != nil {
		return err
	}
	s.Stats.CATSections++
	return nil
}

// handlePMT is the callback enrolled dynamically by RegisterPMTOps for
// a specific program_map_PID.
func (s *Store) handlePMT(pid uint16, section []byte) error {
	a := s.assemblerFor(pid, TableIDPMT)
	h, state, payload, err := a.Feed(section)
	if err != nil {
		return err
	}
	if state != SectionComplete {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.PMT[pid]
	if !ok {
		d = &PMTData{VersionNumber: versionUnset}
		s.PMT[pid] = d
	}
	if err := parsePMT(h, payload, d); err != nil {
		return err
	}
	s.Stats.PMTSections++
	return nil
}

func (s *Store) handleNIT(pid uint16, section []byte) error {
	tableID := section[0]
	a := s.assemblerFor(pid, tableID)
	h, state, payload, err := a.Feed(section)
	if err != nil {
		return err
	}
	if state != SectionComplete {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	switch tableID {
	case TableIDNITActual:
		if err := parseNIT(h, payload, s.NITActual); err != nil {
			return err
		}
		s.Stats.NITActualSections++
	case TableIDNITOther:
		if err := parseNIT(h, payload, s.NITOther); err != nil {
			return err
		}
		s.Stats.NITOtherSections++
	}
	return nil
}

func (s *Store) handleSDTOrBAT(pid uint16, section []byte) error {
	tableID := section[0]
	a := s.assemblerFor(pid, tableID)
	h, state, payload, err := a.Feed(section)
	if err != nil {
		return err
	}
	if state != SectionComplete {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	switch tableID {
	case TableIDSDTActual:
		if err := parseSDT(h, payload, s.SDTActual); err != nil {
			return err
		}
		s.Stats.SDTActualSections++
	case TableIDSDTOther:
		if err := parseSDT(h, payload, s.SDTOther); err != nil {
			return err
		}
		s.Stats.SDTOtherSections++
	case TableIDBAT:
		if err := parseBAT(h, payload, s.BAT); err != nil {
			return err
		}
		s.Stats.BATSections++
	}
	return nil
}

// handleEIT parses every EIT section independently rather than
// through a SectionAssembler: distinct table_id_extensions (service
// ids) on PID 0x0012 are logically distinct tables, and
// original_source/src/table.c's eit_proc never tracks version_number
// or section completeness for EIT either -- it increments the counter
// and calls parse_eit on each raw section unconditionally.
func (s *Store) handleEIT(pid uint16, section []byte) error {
	h, rest, err := parseSectionHeader(section)
	if err != nil {
		return err
	}
	if len(rest) < 4 {
		return ErrTruncatedInput
	}
	if err := verifyCRC32(section); err != nil {
		return err
	}
	payload := rest[:len(rest)-4]

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := parseEIT(h, payload, s.EIT); err != nil {
		return err
	}
	s.Stats.EITSections++
	return nil
}

func (s *Store) handleTDTOrTOT(pid uint16, section []byte) error {
	tableID := section[0]
	switch tableID {
	case TableIDTDT:
		// TDT is short-form and carries no CRC_32 -- only TOT does.
		h, payload, err := parseSectionHeader(section)
		if err != nil {
			return err
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		if err := parseTDT(h, payload, s.TDT); err != nil {
			return err
		}
		s.Stats.TDTSections++
	case TableIDTOT:
		h, payload, err := parseSectionHeader(section)
		if err != nil {
			return err
		}
		if len(payload) < 4 {
			return ErrTruncatedInput
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		if err := parseTOT(h, payload[:len(payload)-4], s.TOT); err != nil {
			return err
		}
		s.Stats.TOTSections++
	}
	return nil
}

// RegisterPMTOps enrolls a PMT filter on pid, the runtime equivalent of
// original_source/src/table.c's register_pmt_ops. It's a no-op when
// pid == NIT_PID: a malformed PAT pointing a program_map_PID at the
// already-reserved NIT PID must not clobber the NIT filter already
// registered there. It's also a no-op if a PMT filter is already
// registered on pid (a program_map_PID reappearing at the same PID
// across a PAT update).
func (s *Store) RegisterPMTOps(pid uint16) {
	if pid == PIDNIT {
		return
	}
	params := TableIDFilterParams(TableIDPMT, 0xFF)
	if s.filters.Lookup(pid, params) != nil {
		return
	}

	s.mu.Lock()
	bit := pid % 64
	word := pid / 64
	s.pmtBitmap[word] |= uint64(1) << bit
	s.mu.Unlock()

	s.addFilter(pid, params, s.handlePMT)
}

// UnregisterPMTOps clears the PMT presence bit and removes the filter,
// the equivalent of unregister_pmt_ops.
func (s *Store) UnregisterPMTOps(pid uint16) {
	params := TableIDFilterParams(TableIDPMT, 0xFF)
	f := s.filters.Lookup(pid, params)
	if f == nil {
		return
	}
	s.filters.Free(f)

	s.mu.Lock()
	bit := pid % 64
	word := pid / 64
	s.pmtBitmap[word] &^= uint64(1) << bit
	delete(s.PMT, pid)
	s.mu.Unlock()
}

// CheckPMTPID reports whether pid is currently enrolled as a PMT PID,
// the equivalent of check_pmt_pid.
func (s *Store) CheckPMTPID(pid uint16) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pmtBitmap[pid/64]&(uint64(1)<<(pid%64)) != 0
}

// Free releases every filter this store ever registered, the
// equivalent of original_source/src/table.c's uninit_table_ops plus
// free_tables: PMT filters enrolled at runtime are torn down first, in
// program_map_PID order, then the nine well-known filters.
func (s *Store) Free() {
	s.mu.Lock()
	pids := make([]uint16, 0, len(s.PMT))
	for pid := range s.PMT {
		pids = append(pids, pid)
	}
	s.mu.Unlock()

	slices.Sort(pids)
	for _, pid := range pids {
		s.UnregisterPMTOps(pid)
	}

	for _, f := range []struct {
		pid    uint16
		params FilterParams
	}{
		{PIDPAT, TableIDFilterParams(TableIDPAT, 0xFF)},
		{PIDCAT, TableIDFilterParams(TableIDCAT, 0xFF)},
		{PIDNIT, TableIDFilterParams(TableIDNITActual, 0xFE)},
		{PIDEIT, TableIDFilterParams(TableIDEITFirst, 0x00)},
		{PIDSDT, TableIDFilterParams(TableIDSDTActual, 0xFF)},
		{PIDSDT, TableIDFilterParams(TableIDSDTOther, 0xFF)},
		{PIDBAT, TableIDFilterParams(TableIDBAT, 0xFF)},
		{PIDTDT, TableIDFilterParams(TableIDTDT, 0xFF)},
		{PIDTOT, TableIDFilterParams(TableIDTOT, 0xFF)},
	} {
		if filt := s.filters.Lookup(f.pid, f.params); filt != nil {
			s.filters.Free(filt)
		}
	}
}
