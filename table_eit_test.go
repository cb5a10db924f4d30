package tspsi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEITSummaryOnly(t *testing.T) {
	body := []byte{0x00, 0x01, 0x00, 0x02, 0xAA, 0xBB}
	buf := buildLongSection(TableIDEITFirst, 0x1000, 1, 0, 0, true, body)

	a := NewSectionAssembler()
	h, _, payload, err := a.Feed(buf)
	require.NoError(t, err)

	d := &EITSummary{}
	require.NoError(t, parseEIT(h, payload, d))
	assert.EqualValues(t, 0x1000, d.ServiceID)
	assert.EqualValues(t, 1, d.TransportStreamID)
	assert.EqualValues(t, 2, d.OriginalNetworkID)
	assert.EqualValues(t, len(body), d.SectionLength)
}

func TestParseEITRejectsOutOfRangeTableID(t *testing.T) {
	d := &EITSummary{}
	err := parseEIT(TableHeader{TableID: 0x80}, []byte{0, 0, 0, 0}, d)
	require.ErrorIs(t, err, ErrInvalidTableID)
}
