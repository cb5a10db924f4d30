package tspsi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodePATSectionRoundTrips(t *testing.T) {
	want := &PATData{
		TransportStreamID: 7,
		VersionNumber:     3,
		Programs: []PATProgram{
			{ProgramNumber: 1, ProgramMapPID: 0x100},
			{ProgramNumber: 2, ProgramMapPID: 0x200},
		},
	}

	section := EncodePATSection(want)

	s := NewStore()
	require.NoError(t, s.Filters().Dispatch(PIDPAT, section))
	assert.Equal(t, want.TransportStreamID, s.PAT.TransportStreamID)
	assert.Equal(t, want.VersionNumber, s.PAT.VersionNumber)
	require.Len(t, s.PAT.Programs, 2)
	assert.Equal(t, want.Programs[0], s.PAT.Programs[0])
	assert.Equal(t, want.Programs[1], s.PAT.Programs[1])
	assert.True(t, s.CheckPMTPID(0x100))
	assert.True(t, s.CheckPMTPID(0x200))
}

func TestEncodePMTSectionRoundTrips(t *testing.T) {
	want := &PMTData{
		ProgramNumber: 9,
		VersionNumber: 1,
		PCRPID:        0x150,
		Streams: []PMTElementaryStream{
			{StreamType: 0x1B, ElementaryPID: 0x151},
			{StreamType: 0x0F, ElementaryPID: 0x152},
		},
	}

	section := EncodePMTSection(want)

	d := &PMTData{VersionNumber: versionUnset}
	h, rest, err := parseSectionHeader(section)
	require.NoError(t, err)
	require.NoError(t, verifyCRC32(section))
	require.NoError(t, parsePMT(h, rest[:len(rest)-4], d))

	assert.Equal(t, want.ProgramNumber, d.ProgramNumber)
	assert.Equal(t, want.VersionNumber, d.VersionNumber)
	assert.Equal(t, want.PCRPID, d.PCRPID)
	require.Len(t, d.Streams, 2)
	assert.Equal(t, want.Streams[0].StreamType, d.Streams[0].StreamType)
	assert.Equal(t, want.Streams[0].ElementaryPID, d.Streams[0].ElementaryPID)
	assert.Equal(t, want.Streams[1].StreamType, d.Streams[1].StreamType)
	assert.Equal(t, want.Streams[1].ElementaryPID, d.Streams[1].ElementaryPID)
}
