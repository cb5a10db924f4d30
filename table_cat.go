package tspsi

import "fmt"

// CATData is the decoded Conditional Access Table: a list of CA
// descriptors (system_id, EMM PID), replaced wholesale on every
// update.
type CATData struct {
	VersionNumber uint8
	Descriptors   []*Descriptor
}

// parseCAT decodes a CAT's private_data_byte payload: nothing but a
// descriptor loop spanning the whole remaining section, per
// original_source/src/table.c's parse_cat (section_length - 9 bytes of
// descriptors).
func parseCAT(header TableHeader, payload []byte, d *CATData) error {
	if payload == nil {
		return ErrNullPointer
	}
	if header.TableID != TableIDCAT {
		return fmt.Errorf("%w: expected 0x%02x, got 0x%02x", ErrInvalidTableID, TableIDCAT, header.TableID)
	}

	descriptors, err := parseDescriptors(NewBitReader(payload), len(payload))
	if err != nil {
		return fmt.Errorf("parsing CAT descriptors failed: %w", err)
	}

	d.VersionNumber = header.VersionNumber
	d.Descriptors = descriptors
	return nil
}
