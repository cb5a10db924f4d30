package tspsi

import "fmt"

// MpegTsPacketSize is the size in bytes of a standard MPEG-2 TS packet
// (some transports append 16 bytes of timecode per packet; packetBuffer
// autodetects that case).
const MpegTsPacketSize = 188

// syncByte is the fixed first byte of every TS packet.
const syncByte = 0x47

// Scrambling controls, ISO/IEC 13818-1 table 2-4.
const (
	ScramblingControlNotScrambled         = 0
	ScramblingControlReservedForFutureUse = 1
	ScramblingControlScrambledWithEvenKey = 2
	ScramblingControlScrambledWithOddKey  = 3
)

// Packet is one demultiplexed 188-byte transport stream packet: enough
// of the header to route it by PID and locate its payload.
// Adaptation-field sub-fields beyond its length (PCR, OPCR, splicing
// countdown, private data, the extension field) are out of scope here
// and are not parsed.
type Packet struct {
	AdaptationField *PacketAdaptationField
	Header          PacketHeader
	Payload         []byte // payload content only, adaptation field and header stripped
}

// PacketHeader is a TS packet's fixed 4-byte header.
type PacketHeader struct {
	ContinuityCounter          uint8  // sequence number (0x0-0xF) of payload packets within a PID, except PID 0x1FFF
	HasAdaptationField         bool
	HasPayload                 bool
	PayloadUnitStartIndicator  bool   // set when a PSI/PES section begins in this packet's payload
	PID                        uint16 // packet identifier
	TransportErrorIndicator    bool   // set by a demodulator that could not correct an error via FEC
	TransportPriority          bool
	TransportScramblingControl uint8
}

// PacketAdaptationField carries only the adaptation field's length and
// the stuffing/flag-byte presence needed to compute the payload
// offset; the sub-fields it may carry (PCR, splicing point, private
// data, extension) are not decoded.
type PacketAdaptationField struct {
	Length                 int
	DiscontinuityIndicator bool
	RandomAccessIndicator  bool
}

// parsePacket decodes one raw packet, buf must be exactly
// MpegTsPacketSize bytes (trailing timecode bytes, if any, already
// stripped by the caller).
func parsePacket(buf []byte) (*Packet, error) {
	if len(buf) == 0 || buf[0] != syncByte {
		return nil, ErrPacketSyncByte
	}

	r := NewBitReader(buf)
	r.Skip(1) // sync byte, already checked above
	header, err := parsePacketHeader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing packet header failed: %w", err)
	}

	p := &Packet{Header: header}

	if header.HasAdaptationField {
		p.AdaptationField, err = parsePacketAdaptationField(r)
		if err != nil {
			return nil, fmt.Errorf("parsing adaptation field failed: %w", err)
		}
	}

	if header.HasPayload {
		p.Payload, err = r.ReadBytes(r.Len())
		if err != nil {
			return nil, fmt.Errorf("reading payload failed: %w", err)
		}
	}
	return p, nil
}

// parsePacketHeader decodes the 3 bytes immediately following the sync
// byte: transport_error_indicator through continuity_counter.
func parsePacketHeader(r *BitReader) (PacketHeader, error) {
	b, err := r.ReadBytes(3)
	if err != nil {
		return PacketHeader{}, err
	}
	return PacketHeader{
		TransportErrorIndicator:    b[0]&0x80 != 0,
		PayloadUnitStartIndicator:  b[0]&0x40 != 0,
		TransportPriority:          b[0]&0x20 != 0,
		PID:                        uint16(b[0]&0x1F)<<8 | uint16(b[1]),
		TransportScramblingControl: b[2] >> 6 & 0x3,
		HasAdaptationField:         b[2]&0x20 != 0,
		HasPayload:                b[2]&0x10 != 0,
		ContinuityCounter:          b[2] & 0xF,
	}, nil
}

// parsePacketAdaptationField decodes the adaptation_field_length and
// the two flag bits this package keeps, then advances r to the start
// of the payload regardless of which optional sub-fields the flag
// byte announces -- the cursor is repositioned by Length rather than
// by walking each sub-field, since none of them are decoded.
func parsePacketAdaptationField(r *BitReader) (*PacketAdaptationField, error) {
	start := r.Offset()
	length, err := r.Read8()
	if err != nil {
		return nil, err
	}
	a := &PacketAdaptationField{Length: int(length)}

	if length > 0 {
		flags, err := r.Read8()
		if err != nil {
			return nil, err
		}
		a.DiscontinuityIndicator = flags&0x80 != 0
		a.RandomAccessIndicator = flags&0x40 != 0
	}

	r.Seek(start + 1 + int(length))
	return a, nil
}
