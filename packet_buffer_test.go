package tspsi

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAutoDetectPacketSizeRejectsMissingSyncByte(t *testing.T) {
	buf := append([]byte{0x00}, make([]byte, 192)...)
	_, err := autoDetectPacketSize(bytes.NewReader(buf))
	require.ErrorIs(t, err, ErrPacketSyncByte)
}

func TestAutoDetectPacketSize(t *testing.T) {
	var buf []byte
	buf = append(buf, syncByte)
	buf = append(buf, make([]byte, 187)...)
	buf = append(buf, syncByte)
	buf = append(buf, make([]byte, 187)...)
	buf = append(buf, syncByte)
	buf = append(buf, make([]byte, 187)...)
	buf = append(buf, []byte("test")...)

	r := bytes.NewReader(buf)
	p, err := autoDetectPacketSize(r)
	require.NoError(t, err)
	assert.Equal(t, MpegTsPacketSize, p)
}

func TestPacketBufferNext(t *testing.T) {
	var buf []byte
	for i := 0; i < 2; i++ {
		header := []byte{syncByte, 0x00, 0x00, 0x10}
		payload := make([]byte, MpegTsPacketSize-len(header))
		buf = append(buf, header...)
		buf = append(buf, payload...)
	}

	pb, err := newPacketBuffer(bytes.NewReader(buf), MpegTsPacketSize)
	require.NoError(t, err)

	p, err := pb.next()
	require.NoError(t, err)
	assert.True(t, p.Header.HasPayload)

	_, err = pb.next()
	require.NoError(t, err)
}
