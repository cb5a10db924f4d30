package tspsi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sdtServiceBody(serviceID uint16) []byte {
	return []byte{
		0x00, 0x01, // original_network_id
		0xFF,       // reserved
		byte(serviceID >> 8), byte(serviceID), // service_id
		0x02,       // EIT_schedule=1, EIT_present=0
		0x30, 0x00, // running_status=1 (001), free_CA=1, loop_length=0
	}
}

func TestParseSDTVersionBumpReplacesServices(t *testing.T) {
	a := NewSectionAssembler()
	s5 := buildLongSection(TableIDSDTActual, 0x9999, 5, 0, 0, true, sdtServiceBody(0x1000))
	h, _, payload, err := a.Feed(s5)
	require.NoError(t, err)

	d := &SDTData{}
	require.NoError(t, parseSDT(h, payload, d))
	require.Len(t, d.Services, 1)
	assert.EqualValues(t, 0x1000, d.Services[0].ServiceID)

	// duplicate delivery of the same section is suppressed by the
	// assembler before parseSDT is ever called again.
	_, state, _, err := a.Feed(s5)
	require.NoError(t, err)
	assert.Equal(t, SectionDuplicate, state)

	s6 := buildLongSection(TableIDSDTActual, 0x9999, 6, 0, 0, true, sdtServiceBody(0x2000))
	h, _, payload, err = a.Feed(s6)
	require.NoError(t, err)
	require.NoError(t, parseSDT(h, payload, d))
	require.Len(t, d.Services, 1)
	assert.EqualValues(t, 0x2000, d.Services[0].ServiceID)
}

func TestParseSDTFlags(t *testing.T) {
	body := sdtServiceBody(0x42)
	buf := buildLongSection(TableIDSDTOther, 1, 1, 0, 0, true, body)

	a := NewSectionAssembler()
	h, _, payload, err := a.Feed(buf)
	require.NoError(t, err)

	d := &SDTData{}
	require.NoError(t, parseSDT(h, payload, d))
	require.Len(t, d.Services, 1)
	svc := d.Services[0]
	assert.True(t, svc.EITScheduleFlag)
	assert.False(t, svc.EITPresentFollowingFlag)
	assert.EqualValues(t, 1, svc.RunningStatus)
	assert.True(t, svc.FreeCAMode)
}
