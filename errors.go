package tspsi

import "errors"

// Errors returned while assembling and parsing PSI/SI sections.
//
// These mirror the five error kinds a reimplementation of
// original_source/src/table.c's error codes (NULL_PTR, INVALID_TID,
// INVALID_SEC_LEN, DUPLICATE_DATA) plus the bit reader's own bounds
// check (TruncatedInput, which the C source never needed because it
// trusted buf_size blindly).
var (
	// ErrNullPointer is returned when an expected buffer or table
	// reference was absent.
	ErrNullPointer = errors.New("tspsi: null pointer")

	// ErrInvalidTableID is returned when the first byte of a section
	// doesn't match the table_id a handler expects.
	ErrInvalidTableID = errors.New("tspsi: invalid table id")

	// ErrInvalidSectionLength is returned when section_length exceeds
	// 0x3FD (long form) or 0xFFD (short form).
	ErrInvalidSectionLength = errors.New("tspsi: invalid section length")

	// ErrDuplicateData is returned by parsePMT for a section whose
	// current_next_indicator is 0. A section_number already seen for
	// the table's current version is not reported with this error:
	// SectionAssembler.Feed returns SectionDuplicate with a nil error.
	ErrDuplicateData = errors.New("tspsi: duplicate section data")

	// ErrTruncatedInput is returned by the bit reader when a read
	// would run past the end of the buffer.
	ErrTruncatedInput = errors.New("tspsi: truncated input")

	// ErrCRCMismatch is returned when a section's trailing CRC32
	// doesn't match the one computed over its bytes. The original
	// analyzer never verified this; this implementation does.
	ErrCRCMismatch = errors.New("tspsi: computed CRC32 doesn't match section CRC32")

	// ErrPacketSyncByte is returned when a TS packet doesn't start
	// with the 0x47 sync byte.
	ErrPacketSyncByte = errors.New("tspsi: packet must start with sync byte")

	// ErrNoMorePackets names a clean end of stream. The demuxer does
	// not return it: Demuxer.NextPacket reports end of stream as
	// io.EOF, and Demuxer.Run returns nil.
	ErrNoMorePackets = errors.New("tspsi: no more packets")
)
