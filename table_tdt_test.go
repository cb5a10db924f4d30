package tspsi

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTDTDecodesUTCTime(t *testing.T) {
	// bytes 0xE2 0x09 0x12 0x34 0x56 (MJD 57865) decode to 2017-04-22 12:34:56.
	payload := []byte{0xe2, 0x09, 0x12, 0x34, 0x56}

	d := &TDTData{}
	require.NoError(t, parseTDT(TableHeader{TableID: TableIDTDT}, payload, d))

	want, _ := time.Parse("2006-01-02 15:04:05", "2017-04-22 12:34:56")
	assert.Equal(t, want, d.UTCTime)
}

func TestParseTOTWithDescriptors(t *testing.T) {
	payload := append([]byte{0xdc, 0xa9, 0x12, 0x34, 0x56}, 0x00, 0x00)

	d := &TOTData{}
	require.NoError(t, parseTOT(TableHeader{TableID: TableIDTOT}, payload, d))
	assert.Empty(t, d.Descriptors)
}
