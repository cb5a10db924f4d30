package tspsi

import (
	"bytes"

	"github.com/icza/bitio"
)

// This file builds PAT and PMT sections from their decoded structs,
// the inverse of table_pat.go/table_pmt.go's parsers. It exists only
// to let tests build realistic fixtures without hand-assembling raw
// bytes field by field; nothing in the runtime demux/store path calls
// it -- encoding TS sections is a test-fixture concern only, not a
// first-class operation this package offers callers.

// sectionWriter drives a bitio.Writer directly (WriteBits/WriteByte/
// WriteBool) to assemble a section's private_data_byte body, before
// the common header/CRC32 wrapping is applied by encodeSection.
type sectionWriter struct {
	buf *bytes.Buffer
	w   *bitio.Writer
}

func newSectionWriter() *sectionWriter {
	buf := &bytes.Buffer{}
	return &sectionWriter{buf: buf, w: bitio.NewWriter(buf)}
}

func (s *sectionWriter) writeBits(v uint64, n uint8) { _ = s.w.WriteBits(v, n) }
func (s *sectionWriter) writeByte(b byte)            { _ = s.w.WriteByte(b) }
func (s *sectionWriter) writeBytes(b []byte)         { _, _ = s.w.Write(b) }

func (s *sectionWriter) bytes() []byte {
	_, _ = s.w.Align()
	return s.buf.Bytes()
}

// encodeSection wraps body (the private_data_byte payload) in the
// common long-form section header (table_id through
// last_section_number) and a trailing CRC32, producing one complete,
// single-section table -- every table this package encodes for test
// fixtures fits in one section.
func encodeSection(tableID uint8, tableIDExtension uint16, versionNumber uint8, currentNext bool, body []byte) []byte {
	head := &bytes.Buffer{}
	w := bitio.NewWriter(head)
	_ = w.WriteByte(tableID)

	sectionLength := uint16(5 + len(body) + 4) // table_id_extension..last_section_number + body + CRC32
	_ = w.WriteBool(true)                      // section_syntax_indicator
	_ = w.WriteBool(false)                     // private_bit
	_ = w.WriteBits(0x3, 2)                    // reserved
	_ = w.WriteBits(uint64(sectionLength), 12)

	_ = w.WriteBits(uint64(tableIDExtension), 16)
	_ = w.WriteBits(0x3, 2) // reserved
	_ = w.WriteBits(uint64(versionNumber), 5)
	_ = w.WriteBool(currentNext)
	_ = w.WriteByte(0) // section_number
	_ = w.WriteByte(0) // last_section_number
	_, _ = w.Align()

	out := append(head.Bytes(), body...)
	crc := computeCRC32(out)
	out = append(out, byte(crc>>24), byte(crc>>16), byte(crc>>8), byte(crc))
	return out
}

// EncodePATSection encodes d as a single-section PAT, for building
// test fixtures and round-tripping through parsePAT.
func EncodePATSection(d *PATData) []byte {
	sw := newSectionWriter()
	for _, p := range d.Programs {
		sw.writeBits(uint64(p.ProgramNumber), 16)
		sw.writeBits(0x7, 3) // reserved
		sw.writeBits(uint64(p.ProgramMapPID), 13)
	}
	return encodeSection(TableIDPAT, d.TransportStreamID, d.VersionNumber, true, sw.bytes())
}

// EncodePMTSection encodes d as a single-section PMT, for building
// test fixtures and round-tripping through parsePMT. Descriptor
// encoding isn't implemented (nothing in this package ever needs to
// re-encode a descriptor it decoded), so program_info_length and every
// stream's ES_info_length are always written as 0.
func EncodePMTSection(d *PMTData) []byte {
	sw := newSectionWriter()
	sw.writeBits(0x7, 3) // reserved
	sw.writeBits(uint64(d.PCRPID), 13)
	sw.writeBits(0xF, 4) // reserved
	sw.writeBits(0, 12)  // program_info_length

	for _, es := range d.Streams {
		sw.writeByte(es.StreamType)
		sw.writeBits(0x7, 3) // reserved
		sw.writeBits(uint64(es.ElementaryPID), 13)
		sw.writeBits(0xF, 4) // reserved
		sw.writeBits(0, 12)  // ES_info_length
	}

	return encodeSection(TableIDPMT, d.ProgramNumber, d.VersionNumber, true, sw.bytes())
}
