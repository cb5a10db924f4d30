package tspsi

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tsPacket builds one 188-byte packet with a plain (no adaptation
// field) header: PUSI/PID/continuity_counter as given, payload filling
// the rest. payload must be at most 184 bytes; the caller controls
// exact section splitting so no stuffing bytes are needed.
func tsPacket(pusi bool, pid uint16, cc uint8, payload []byte) []byte {
	if len(payload) > 184 {
		panic("payload too long for a single packet")
	}
	b0 := byte(pid>>8) & 0x1F
	if pusi {
		b0 |= 0x40
	}
	buf := []byte{syncByte, b0, byte(pid), 0x10 | (cc & 0xF)}
	buf = append(buf, payload...)
	for len(buf) < MpegTsPacketSize {
		buf = append(buf, 0xFF)
	}
	return buf
}

func captureFilter(pid uint16, tableID uint8) (*FilterTable, *[][]byte) {
	ft := NewFilterTable()
	got := &[][]byte{}
	f := ft.Alloc(pid)
	ft.Set(f, TableIDFilterParams(tableID, 0xFF), func(_ uint16, section []byte) error {
		*got = append(*got, append([]byte(nil), section...))
		return nil
	})
	return ft, got
}

func TestDemuxerDispatchesSingePacketSection(t *testing.T) {
	const pid = 0x0050
	ft, got := captureFilter(pid, 0x00)

	section := buildLongSection(0x00, 0x1234, 1, 0, 0, true, []byte{0xAA, 0xBB})
	payload := append([]byte{0x00}, section...) // pointer_field = 0
	pkt := tsPacket(true, pid, 0, payload)

	d := NewDemuxer(context.Background(), bytes.NewReader(pkt), ft)
	require.NoError(t, d.Run())

	require.Len(t, *got, 1)
	assert.Equal(t, section, (*got)[0])
}

func TestDemuxerReassemblesSectionSplitAcrossPackets(t *testing.T) {
	const pid = 0x0051
	ft, got := captureFilter(pid, 0x00)

	body := bytes.Repeat([]byte{0xAB}, 355) // total section length = 12+355 = 367
	section := buildLongSection(0x00, 1, 2, 0, 0, true, body)
	require.Len(t, section, 367)

	pkt1 := tsPacket(true, pid, 0, append([]byte{0x00}, section[:183]...))
	pkt2 := tsPacket(false, pid, 1, section[183:])

	stream := append(append([]byte{}, pkt1...), pkt2...)
	d := NewDemuxer(context.Background(), bytes.NewReader(stream), ft)
	require.NoError(t, d.Run())

	require.Len(t, *got, 1)
	assert.Equal(t, section, (*got)[0])
}

func TestDemuxerDiscontinuityDropsInFlightSection(t *testing.T) {
	const pid = 0x0052
	ft, got := captureFilter(pid, 0x00)

	body := bytes.Repeat([]byte{0xCD}, 355)
	section := buildLongSection(0x00, 1, 2, 0, 0, true, body)
	require.Len(t, section, 367)

	// First packet starts the section; second packet jumps the
	// continuity counter without signaling a discontinuity via the
	// adaptation field, so the partial section must be dropped instead
	// of silently corrupted with the wrong tail.
	pkt1 := tsPacket(true, pid, 0, append([]byte{0x00}, section[:183]...))
	pkt2 := tsPacket(false, pid, 5, section[183:])

	// A subsequent, self-contained section on the same PID must still
	// dispatch cleanly -- the discontinuity only drops what was
	// in-flight, it doesn't wedge the PID.
	section2 := buildLongSection(0x00, 2, 1, 0, 0, true, []byte{0x01, 0x02})
	pkt3 := tsPacket(true, pid, 6, append([]byte{0x00}, section2...))

	stream := append(append(append([]byte{}, pkt1...), pkt2...), pkt3...)
	d := NewDemuxer(context.Background(), bytes.NewReader(stream), ft)
	require.NoError(t, d.Run())

	require.Len(t, *got, 1)
	assert.Equal(t, section2, (*got)[0])
}

func TestDemuxerSkipsPIDsWithNoFilters(t *testing.T) {
	ft := NewFilterTable()
	section := buildLongSection(0x00, 0x1, 1, 0, 0, true, []byte{0x01})
	payload := append([]byte{0x00}, section...)
	pkt := tsPacket(true, 0x0060, 0, payload)

	d := NewDemuxer(context.Background(), bytes.NewReader(pkt), ft)
	require.NoError(t, d.Run())
}
