package tspsi

import "fmt"

// PATProgram is one (program_number, program_map_PID) entry of a PAT.
// A program_number of 0 conventionally denotes the network PID rather
// than an actual program, but it's carried through like any other
// entry; callers that care can special-case it.
type PATProgram struct {
	ProgramNumber uint16
	ProgramMapPID uint16
}

// PATData is the decoded Program Association Table: the list of
// programs currently on air, plus a presence set used to distinguish
// newly-seen program_map_PIDs from ones already enrolled.
type PATData struct {
	TransportStreamID uint16
	VersionNumber     uint8
	Programs          []PATProgram

	present map[uint16]int // program_number -> index into Programs
}

func newPATData() *PATData {
	return &PATData{present: make(map[uint16]int)}
}

// parsePAT decodes a PAT's private_data_byte payload (the bytes
// immediately following last_section_number, table_id_extension
// already available as TransportStreamID via header.TableIDExtension)
// into d, enrolling PMT filters for every newly discovered
// program_map_PID via enroll.
//
// Grounded on original_source/src/table.c's parse_pat: repeating
// (program_number:16, reserved:3, program_map_PID:13) until the
// 0xFFFF terminator or payload exhaustion; an existing program_number
// has its PID updated in place rather than duplicated.
func parsePAT(header TableHeader, payload []byte, d *PATData, enroll func(pid uint16)) error {
	if payload == nil {
		return ErrNullPointer
	}
	if header.TableID != TableIDPAT {
		return fmt.Errorf("%w: expected 0x%02x, got 0x%02x", ErrInvalidTableID, TableIDPAT, header.TableID)
	}

	// Caller only ever invokes this once per fully reassembled
	// version (duplicate/incomplete deliveries are filtered upstream
	// by the section assembler), so every call rebuilds the program
	// list from scratch -- matching parse_pat's unconditional
	// list_for_each_safe/free loop at the top of the function.
	d.Programs = nil
	d.present = make(map[uint16]int)
	d.VersionNumber = header.VersionNumber
	d.TransportStreamID = header.TableIDExtension

	r := NewBitReader(payload)
	for r.Len() >= 4 {
		programNumber, err := r.Read16()
		if err != nil {
			return fmt.Errorf("reading program_number failed: %w", err)
		}
		if programNumber == 0xFFFF {
			break
		}

		b, err := r.Read16()
		if err != nil {
			return fmt.Errorf("reading program_map_PID failed: %w", err)
		}
		pid := b & 0x1FFF

		if idx, ok := d.present[programNumber]; ok {
			d.Programs[idx].ProgramMapPID = pid
		} else {
			d.present[programNumber] = len(d.Programs)
			d.Programs = append(d.Programs, PATProgram{
				ProgramNumber: programNumber,
				ProgramMapPID: pid,
			})
			if enroll != nil {
				enroll(pid)
			}
		}
	}
	return nil
}
