package tspsi

import (
	"fmt"
	"time"
)

// parseDVBTime parses a DVB UTC time field: 16 bits giving the MJD
// date, followed by 24 bits coded as 6 BCD digits (HH MM SS). If the
// start time is undefined (e.g. for an event in a NVOD reference
// service) all bits of the field are set to "1".
//
// Page: 160 | Annex C | https://www.dvb.org/resources/public/standards/a38_dvb-si_specification.pdf
func parseDVBTime(r *BitReader) (time.Time, error) {
	mjd, err := r.Read16()
	if err != nil {
		return time.Time{}, fmt.Errorf("reading MJD date failed: %w", err)
	}

	yt := int((float32(mjd) - 15078.2) / 365.25)
	mt := int((float64(mjd) - 14956.1 - float64(uint16(float64(yt)*365.25))) / 30.6001)
	d := int(mjd - 14956 - uint16(float64(yt)*365.25) - uint16(float64(mt)*30.6001))
	var k int
	if mt == 14 || mt == 15 {
		k = 1
	}
	y := yt + k
	m := mt - 1 - k*12

	t := time.Date(1900+y, time.Month(m), d, 0, 0, 0, 0, time.UTC)

	s, err := parseDVBDurationSeconds(r)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing DVB duration seconds failed: %w", err)
	}

	return t.Add(s), nil
}

// parseDVBDurationSeconds parses a 24 bit field containing hours,
// minutes, seconds as 6 BCD digits.
func parseDVBDurationSeconds(r *BitReader) (time.Duration, error) {
	bs, err := r.ReadBytes(3)
	if err != nil {
		return 0, err
	}
	return parseDVBDurationByte(bs[0])*time.Hour +
		parseDVBDurationByte(bs[1])*time.Minute +
		parseDVBDurationByte(bs[2])*time.Second, nil
}

// parseDVBDurationMinutes parses a 16 bit field containing hours and
// minutes as 4 BCD digits.
func parseDVBDurationMinutes(r *BitReader) (time.Duration, error) {
	bs, err := r.ReadBytes(2)
	if err != nil {
		return 0, err
	}
	return parseDVBDurationByte(bs[0])*time.Hour +
		parseDVBDurationByte(bs[1])*time.Minute, nil
}

// parseDVBDurationByte decodes a single BCD duration byte.
func parseDVBDurationByte(i byte) time.Duration {
	return time.Duration(i>>4*10 + i&0xf)
}

// writeDVBTime encodes t as a 5 byte MJD+BCD UTC field.
func writeDVBTime(t time.Time) []byte {
	year := t.Year() - 1900
	month := t.Month()
	day := t.Day()

	l := 0
	if month <= time.February {
		l = 1
	}

	mjd := 14956 + day + int(float64(year-l)*365.25) + int(float64(int(month)+1+l*12)*30.6001)

	d := t.Sub(t.Truncate(24 * time.Hour))

	out := make([]byte, 5)
	out[0] = byte(mjd >> 8)
	out[1] = byte(mjd)
	copy(out[2:], writeDVBDurationSeconds(d))
	return out
}

func writeDVBDurationSeconds(d time.Duration) []byte {
	hours := uint8(d.Hours())
	minutes := uint8(int(d.Minutes()) % 60)
	seconds := uint8(int(d.Seconds()) % 60)
	return []byte{
		dvbDurationByteRepresentation(hours),
		dvbDurationByteRepresentation(minutes),
		dvbDurationByteRepresentation(seconds),
	}
}

func writeDVBDurationMinutes(d time.Duration) []byte {
	hours := uint8(d.Hours())
	minutes := uint8(int(d.Minutes()) % 60)
	return []byte{
		dvbDurationByteRepresentation(hours),
		dvbDurationByteRepresentation(minutes),
	}
}

func dvbDurationByteRepresentation(n uint8) uint8 {
	return (n/10)<<4 | n%10
}
