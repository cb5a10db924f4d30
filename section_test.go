package tspsi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildLongSection assembles one long-form section (table_id through
// CRC32) out of its logical fields, computing the trailing CRC32 for
// the caller so tests don't have to hand-compute it.
func buildLongSection(tableID uint8, tableIDExt uint16, version, sectionNumber, lastSectionNumber uint8, currentNext bool, payload []byte) []byte {
	body := make([]byte, 0, 5+len(payload))
	body = append(body, byte(tableIDExt>>8), byte(tableIDExt))
	vb := (version << 1) & 0x3E
	if currentNext {
		vb |= 0x01
	}
	vb |= 0xC0 // reserved bits conventionally set
	body = append(body, vb, sectionNumber, lastSectionNumber)
	body = append(body, payload...)

	sectionLength := uint16(len(body) + 4)
	buf := make([]byte, 0, 3+len(body)+4)
	buf = append(buf, tableID, 0xB0|byte(sectionLength>>8), byte(sectionLength))
	buf = append(buf, body...)

	crc := computeCRC32(buf)
	buf = append(buf, byte(crc>>24), byte(crc>>16), byte(crc>>8), byte(crc))
	return buf
}

func TestSectionAssemblerSingleSection(t *testing.T) {
	a := NewSectionAssembler()
	buf := buildLongSection(0x00, 0x1234, 1, 0, 0, true, []byte{0xAA, 0xBB})

	h, state, payload, err := a.Feed(buf)
	require.NoError(t, err)
	assert.Equal(t, SectionComplete, state)
	assert.Equal(t, []byte{0xAA, 0xBB}, payload)
	assert.EqualValues(t, 0x1234, h.TableIDExtension)
	assert.EqualValues(t, 1, h.VersionNumber)
	assert.True(t, h.CurrentNextIndicator)
}

func TestSectionAssemblerMultiSectionBuffersThenCompletes(t *testing.T) {
	a := NewSectionAssembler()
	s0 := buildLongSection(0x02, 1, 3, 0, 1, true, []byte{0x01})
	s1 := buildLongSection(0x02, 1, 3, 1, 1, true, []byte{0x02})

	_, state, payload, err := a.Feed(s0)
	require.NoError(t, err)
	assert.Equal(t, SectionBuffering, state)
	assert.Nil(t, payload)

	_, state, payload, err = a.Feed(s1)
	require.NoError(t, err)
	assert.Equal(t, SectionComplete, state)
	assert.Equal(t, []byte{0x01, 0x02}, payload)
}

func TestSectionAssemblerDuplicateSuppressed(t *testing.T) {
	a := NewSectionAssembler()
	s0 := buildLongSection(0x02, 1, 3, 0, 1, true, []byte{0x01})

	_, _, _, err := a.Feed(s0)
	require.NoError(t, err)

	_, state, payload, err := a.Feed(s0)
	require.NoError(t, err)
	assert.Equal(t, SectionDuplicate, state)
	assert.Nil(t, payload)
}

func TestSectionAssemblerVersionBumpRestartsReassembly(t *testing.T) {
	a := NewSectionAssembler()
	s0v1 := buildLongSection(0x02, 1, 3, 0, 1, true, []byte{0x01})
	s1v2 := buildLongSection(0x02, 1, 4, 1, 1, true, []byte{0x99})

	_, state, _, err := a.Feed(s0v1)
	require.NoError(t, err)
	assert.Equal(t, SectionBuffering, state)

	// version bumped before section 1 of the old version ever arrived;
	// the table must restart and wait on section 0 of the new version.
	_, state, payload, err := a.Feed(s1v2)
	require.NoError(t, err)
	assert.Equal(t, SectionBuffering, state)
	assert.Nil(t, payload)

	s0v2 := buildLongSection(0x02, 1, 4, 0, 1, true, []byte{0x98})
	_, state, payload, err = a.Feed(s0v2)
	require.NoError(t, err)
	assert.Equal(t, SectionComplete, state)
	assert.Equal(t, []byte{0x98, 0x99}, payload)
}

func TestSectionAssemblerCRCMismatch(t *testing.T) {
	a := NewSectionAssembler()
	buf := buildLongSection(0x00, 0x1234, 1, 0, 0, true, []byte{0xAA, 0xBB})
	buf[len(buf)-1] ^= 0xFF

	_, _, _, err := a.Feed(buf)
	require.ErrorIs(t, err, ErrCRCMismatch)
}

func TestSectionAssemblerInvalidSectionLengthRejected(t *testing.T) {
	buf := []byte{0x00, 0xBF, 0xFE, 0, 0, 0, 0, 0}
	_, _, _, err := parseSectionHeader(buf)
	require.ErrorIs(t, err, ErrInvalidSectionLength)
}

func TestSectionAssemblerShortForm(t *testing.T) {
	payload := []byte{0x01, 0x02, 0x03}
	sectionLength := uint16(len(payload) + 4)
	buf := []byte{0x70, 0x30 | byte(sectionLength>>8), byte(sectionLength)}
	buf = append(buf, payload...)
	crc := computeCRC32(buf)
	buf = append(buf, byte(crc>>24), byte(crc>>16), byte(crc>>8), byte(crc))

	a := NewSectionAssembler()
	h, state, out, err := a.Feed(buf)
	require.NoError(t, err)
	assert.Equal(t, SectionComplete, state)
	assert.False(t, h.SectionSyntaxIndicator)
	assert.Equal(t, payload, out)
}
