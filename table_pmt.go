package tspsi

import "fmt"

// PMTElementaryStream is one component of a program: a stream_type, an
// elementary_PID, and that stream's own descriptor loop.
type PMTElementaryStream struct {
	StreamType    uint8
	ElementaryPID uint16
	Descriptors   []*Descriptor
}

// PMTData is the decoded Program Map Table for one program_map_PID.
type PMTData struct {
	ProgramNumber uint16
	VersionNumber uint8
	PCRPID        uint16
	Descriptors   []*Descriptor
	Streams       []PMTElementaryStream
}

// parsePMT decodes a PMT's private_data_byte payload into d.
//
// Grounded on original_source/src/table.c's parse_pmt, with one
// deliberate deviation: the original short-circuits the shared section
// assembler entirely and hand-parses the first 8 header bytes itself.
// This implementation instead reuses parseSectionHeader/
// SectionAssembler like every other table, so the caller hands
// parsePMT an already-reassembled payload and the already-decoded
// header rather than a raw buffer.
//
// current_next_indicator == 0 is rejected outright (a PMT describing a
// not-yet-active program carries no useful component list). A PMT at
// the same version_number as the last successfully parsed one, with a
// non-empty stream list already present, is treated as a no-op --
// table.c's "version_num == pPMT->version_number && !list_empty(...)"
// guard against needless reparse.
func parsePMT(header TableHeader, payload []byte, d *PMTData) error {
	if payload == nil {
		return ErrNullPointer
	}
	if header.TableID != TableIDPMT {
		return fmt.Errorf("%w: expected 0x%02x, got 0x%02x", ErrInvalidTableID, TableIDPMT, header.TableID)
	}
	if !header.CurrentNextIndicator {
		return fmt.Errorf("%w: PMT current_next_indicator is 0", ErrDuplicateData)
	}
	if header.VersionNumber == d.VersionNumber && len(d.Streams) > 0 {
		return nil
	}

	r := NewBitReader(payload)

	pcrField, err := r.Read16()
	if err != nil {
		return fmt.Errorf("reading PCR_PID failed: %w", err)
	}
	pcrPID := pcrField & 0x1FFF

	programInfoField, err := r.Read16()
	if err != nil {
		return fmt.Errorf("reading program_info_length failed: %w", err)
	}
	programInfoLength := int(programInfoField & 0x0FFF)

	if r.Len() < programInfoLength {
		return ErrTruncatedInput
	}
	programDescriptors, err := parseDescriptors(r, programInfoLength)
	if err != nil {
		return fmt.Errorf("parsing PMT program descriptors failed: %w", err)
	}

	var streams []PMTElementaryStream
	for r.Len() >= 5 {
		streamType, err := r.Read8()
		if err != nil {
			return fmt.Errorf("reading stream_type failed: %w", err)
		}
		pidField, err := r.Read16()
		if err != nil {
			return fmt.Errorf("reading elementary_PID failed: %w", err)
		}
		esInfoField, err := r.Read16()
		if err != nil {
			return fmt.Errorf("reading ES_info_length failed: %w", err)
		}
		esInfoLength := int(esInfoField & 0x0FFF)

		if r.Len() < esInfoLength {
			return ErrTruncatedInput
		}
		esDescriptors, err := parseDescriptors(r, esInfoLength)
		if err != nil {
			return fmt.Errorf("parsing PMT ES descriptors failed: %w", err)
		}

		streams = append(streams, PMTElementaryStream{
			StreamType:    streamType,
			ElementaryPID: pidField & 0x1FFF,
			Descriptors:   esDescriptors,
		})
	}

	d.ProgramNumber = header.TableIDExtension
	d.VersionNumber = header.VersionNumber
	d.PCRPID = pcrPID
	d.Descriptors = programDescriptors
	d.Streams = streams
	return nil
}
