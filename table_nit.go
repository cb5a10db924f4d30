package tspsi

import "fmt"

// NITTransportStream is one entry of a NIT's transport_stream loop.
type NITTransportStream struct {
	TransportStreamID  uint16
	OriginalNetworkID  uint16
	Descriptors        []*Descriptor
}

// NITData is the decoded Network Information Table, actual or other
// (kept as two separate instances).
type NITData struct {
	NetworkID       uint16
	VersionNumber   uint8
	Descriptors     []*Descriptor
	TransportStreams []NITTransportStream
}

// parseNIT decodes a NIT's private_data_byte payload into d.
//
// Grounded on original_source/src/table.c's parse_nit:
// network_descriptors_length (12 bits) gates a network-level
// descriptor loop, then transport_stream_loop_length (12 bits) gates a
// repeating (transport_stream_id, original_network_id,
// transport_descriptors_length, descriptors) loop.
//
// This network_descriptors_length/transport_stream_loop block repeats
// once per section, so when the assembler has concatenated several
// sections' bodies into one payload (last_section_number > 0), payload
// holds that block back to back, once per section. parseNIT loops over
// the whole payload decoding one block at a time and unions every
// section's transport_stream entries in order, producing the combined
// TS list Scenario D calls for; the network descriptor loop is kept
// from the first block encountered, since every section of a given NIT
// carries the same network-level descriptors.
func parseNIT(header TableHeader, payload []byte, d *NITData) error {
	if payload == nil {
		return ErrNullPointer
	}
	if header.TableID != TableIDNITActual && header.TableID != TableIDNITOther {
		return fmt.Errorf("%w: expected 0x%02x or 0x%02x, got 0x%02x",
			ErrInvalidTableID, TableIDNITActual, TableIDNITOther, header.TableID)
	}

	r := NewBitReader(payload)

	var networkDescriptors []*Descriptor
	var streams []NITTransportStream
	first := true

	for r.Len() > 0 {
		networkDescLengthField, err := r.Read16()
		if err != nil {
			return fmt.Errorf("reading network_descriptors_length failed: %w", err)
		}
		networkDescLength := int(networkDescLengthField & 0x0FFF)

		if r.Len() < networkDescLength {
			return ErrTruncatedInput
		}
		descriptors, err := parseDescriptors(r, networkDescLength)
		if err != nil {
			return fmt.Errorf("parsing NIT network descriptors failed: %w", err)
		}
		if first {
			networkDescriptors = descriptors
			first = false
		}

		tsLoopLengthField, err := r.Read16()
		if err != nil {
			return fmt.Errorf("reading transport_stream_loop_length failed: %w", err)
		}
		tsLoopLength := int(tsLoopLengthField & 0x0FFF)
		if r.Len() < tsLoopLength {
			return ErrTruncatedInput
		}
		loopEnd := r.Offset() + tsLoopLength

		for r.Offset() < loopEnd {
			tsid, err := r.Read16()
			if err != nil {
				return fmt.Errorf("reading transport_stream_id failed: %w", err)
			}
			onid, err := r.Read16()
			if err != nil {
				return fmt.Errorf("reading original_network_id failed: %w", err)
			}
			descLengthField, err := r.Read16()
			if err != nil {
				return fmt.Errorf("reading transport_descriptors_length failed: %w", err)
			}
			descLength := int(descLengthField & 0x0FFF)
			if r.Len() < descLength {
				return ErrTruncatedInput
			}
			tsDescriptors, err := parseDescriptors(r, descLength)
			if err != nil {
				return fmt.Errorf("parsing NIT transport descriptors failed: %w", err)
			}

			streams = append(streams, NITTransportStream{
				TransportStreamID: tsid,
				OriginalNetworkID: onid,
				Descriptors:       tsDescriptors,
			})
		}
	}

	d.NetworkID = header.TableIDExtension
	d.VersionNumber = header.VersionNumber
	d.Descriptors = networkDescriptors
	d.TransportStreams = streams
	return nil
}
