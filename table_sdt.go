package tspsi

import "fmt"

// SDTService is one entry of an SDT's service loop.
type SDTService struct {
	ServiceID               uint16
	EITScheduleFlag         bool
	EITPresentFollowingFlag bool
	RunningStatus           uint8 // 3 bits.
	FreeCAMode              bool
	Descriptors             []*Descriptor
}

// SDTData is the decoded Service Description Table, actual or other
// (separate instances, as for NIT).
type SDTData struct {
	TransportStreamID uint16
	OriginalNetworkID uint16
	VersionNumber     uint8
	Services          []SDTService
}

// parseSDT decodes an SDT's private_data_byte payload into d.
//
// Grounded on original_source/src/table.c's parse_sdt: two bytes of
// original_network_id, a reserved byte, then a service loop of
// (service_id, EIT_schedule_flag, EIT_present_following_flag,
// running_status, free_CA_mode, descriptors_loop_length, descriptors).
//
// table.c additionally clamps the loop to buf_size-15 bytes, a guard
// against reading past its own raw single-section receive buffer; that
// guard is unneeded here since the assembler hands parsers an exactly
// bounds-checked, already-concatenated payload, so the loop simply
// runs to the end of payload.
func parseSDT(header TableHeader, payload []byte, d *SDTData) error {
	if payload == nil {
		return ErrNullPointer
	}
	if header.TableID != TableIDSDTActual && header.TableID != TableIDSDTOther {
		return fmt.Errorf("%w: expected 0x%02x or 0x%02x, got 0x%02x",
			ErrInvalidTableID, TableIDSDTActual, TableIDSDTOther, header.TableID)
	}

	r := NewBitReader(payload)

	onid, err := r.Read16()
	if err != nil {
		return fmt.Errorf("reading original_network_id failed: %w", err)
	}
	if _, err := r.Read8(); err != nil { // reserved_future_use
		return fmt.Errorf("reading SDT reserved byte failed: %w", err)
	}

	var services []SDTService
	for r.Len() >= 5 {
		serviceID, err := r.Read16()
		if err != nil {
			return fmt.Errorf("reading service_id failed: %w", err)
		}
		flags, err := r.Read8()
		if err != nil {
			return fmt.Errorf("reading SDT flag byte failed: %w", err)
		}
		loopField, err := r.Read16()
		if err != nil {
			return fmt.Errorf("reading descriptors_loop_length failed: %w", err)
		}
		loopLength := int(loopField & 0x0FFF)
		if r.Len() < loopLength {
			return ErrTruncatedInput
		}
		descriptors, err := parseDescriptors(r, loopLength)
		if err != nil {
			return fmt.Errorf("parsing SDT service descriptors failed: %w", err)
		}

		services = append(services, SDTService{
			ServiceID:               serviceID,
			EITScheduleFlag:         flags&0x02 != 0,
			EITPresentFollowingFlag: flags&0x01 != 0,
			RunningStatus:           uint8(loopField>>13) & 0x7,
			FreeCAMode:              loopField&0x1000 != 0,
			Descriptors:             descriptors,
		})
	}

	d.TransportStreamID = header.TableIDExtension
	d.OriginalNetworkID = onid
	d.VersionNumber = header.VersionNumber
	d.Services = services
	return nil
}
