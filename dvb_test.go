package tspsi

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	dvbDurationMinutes      = time.Hour + 45*time.Minute
	dvbDurationMinutesBytes = []byte{0x1, 0x45}
	dvbDurationSeconds      = time.Hour + 45*time.Minute + 30*time.Second
	dvbDurationSecondsBytes = []byte{0x1, 0x45, 0x30}
	dvbTime, _              = time.Parse("2006-01-02 15:04:05", "2017-04-22 12:34:56")
	dvbTimeBytes            = []byte{0xe2, 0x09, 0x12, 0x34, 0x56}
)

func TestParseDVBTime(t *testing.T) {
	d, err := parseDVBTime(NewBitReader(dvbTimeBytes))
	require.NoError(t, err)
	assert.Equal(t, dvbTime, d)
}

func TestParseDVBDurationMinutes(t *testing.T) {
	d, err := parseDVBDurationMinutes(NewBitReader(dvbDurationMinutesBytes))
	require.NoError(t, err)
	assert.Equal(t, dvbDurationMinutes, d)
}

func TestParseDVBDurationSeconds(t *testing.T) {
	d, err := parseDVBDurationSeconds(NewBitReader(dvbDurationSecondsBytes))
	require.NoError(t, err)
	assert.Equal(t, dvbDurationSeconds, d)
}

func TestWriteDVBTime(t *testing.T) {
	assert.Equal(t, dvbTimeBytes, writeDVBTime(dvbTime))
}

func TestWriteDVBDurationMinutes(t *testing.T) {
	assert.Equal(t, dvbDurationMinutesBytes, writeDVBDurationMinutes(dvbDurationMinutes))
}

func TestWriteDVBDurationSeconds(t *testing.T) {
	assert.Equal(t, dvbDurationSecondsBytes, writeDVBDurationSeconds(dvbDurationSeconds))
}
