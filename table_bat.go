package tspsi

import "fmt"

// BATData is the decoded Bouquet Association Table: same transport
// stream loop shape as NIT, with a bouquet_id/bouquet_descriptors_length
// header in place of NIT's network-level fields.
type BATData struct {
	BouquetID         uint16
	VersionNumber     uint8
	Descriptors       []*Descriptor
	TransportStreams  []NITTransportStream
}

// parseBAT decodes a BAT's private_data_byte payload into d, grounded
// on original_source/src/table.c's parse_bat -- structurally identical
// to parse_nit but for the header field names.
func parseBAT(header TableHeader, payload []byte, d *BATData) error {
	if payload == nil {
		return ErrNullPointer
	}
	if header.TableID != TableIDBAT {
		return fmt.Errorf("%w: expected 0x%02x, got 0x%02x", ErrInvalidTableID, TableIDBAT, header.TableID)
	}

	r := NewBitReader(payload)

	bouquetDescLengthField, err := r.Read16()
	if err != nil {
		return fmt.Errorf("reading bouquet_descriptors_length failed: %w", err)
	}
	bouquetDescLength := int(bouquetDescLengthField & 0x0FFF)
	if r.Len() < bouquetDescLength {
		return ErrTruncatedInput
	}
	bouquetDescriptors, err := parseDescriptors(r, bouquetDescLength)
	if err != nil {
		return fmt.Errorf("parsing BAT bouquet descriptors failed: %w", err)
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

	var streams []NITTransportStream
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
		descriptors, err := parseDescriptors(r, descLength)
		if err != nil {
			return fmt.Errorf("parsing BAT transport descriptors failed: %w", err)
		}

		streams = append(streams, NITTransportStream{
			TransportStreamID: tsid,
			OriginalNetworkID: onid,
			Descriptors:       descriptors,
		})
	}

	d.BouquetID = header.TableIDExtension
	d.VersionNumber = header.VersionNumber
	d.Descriptors = bouquetDescriptors
	d.TransportStreams = streams
	return nil
}
