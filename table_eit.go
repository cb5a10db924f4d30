package tspsi

import "fmt"

// EITSummary is the minimal EIT state this package retains: detailed
// event decoding is out of scope, so only the payload length, the
// version_number and the service/stream identifiers are kept, with the
// section counter bumped by the store on every accepted section.
type EITSummary struct {
	ServiceID         uint16
	TransportStreamID uint16
	OriginalNetworkID uint16
	SectionLength     uint16
	VersionNumber     uint8
}

// parseEIT decodes only the section's header fields out of an EIT
// section: the table_id_extension (service_id for EIT), version_number,
// transport_stream_id and original_network_id, plus the payload length
// (section_length less the header and CRC32) as SectionLength. It
// follows original_source/src/table.c's eit_proc, which increments
// stats.eit_sections and calls parse_eit without retaining per-event
// data.
func parseEIT(header TableHeader, payload []byte, d *EITSummary) error {
	if payload == nil {
		return ErrNullPointer
	}
	if header.TableID < TableIDEITFirst || header.TableID > TableIDEITLast {
		return fmt.Errorf("%w: table_id 0x%02x outside EIT range 0x%02x..0x%02x",
			ErrInvalidTableID, header.TableID, TableIDEITFirst, TableIDEITLast)
	}

	d.ServiceID = header.TableIDExtension
	d.SectionLength = uint16(len(payload))
	d.VersionNumber = header.VersionNumber

	if len(payload) >= 4 {
		r := NewBitReader(payload)
		tsid, err := r.Read16()
		if err != nil {
			return err
		}
		onid, err := r.Read16()
		if err != nil {
			return err
		}
		d.TransportStreamID = tsid
		d.OriginalNetworkID = onid
	}
	return nil
}
