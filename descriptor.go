package tspsi

import "fmt"

// Descriptor tags. Chapter: 6.1 | Link:
// https://www.etsi.org/deliver/etsi_en/300400_300499/300468/01.15.01_60/en_300468v011501p.pdf
const (
	DescriptorTagMaximumBitrate   = 0xe
	DescriptorTagNetworkName      = 0x40
	DescriptorTagService          = 0x48
	DescriptorTagShortEvent       = 0x4d
	DescriptorTagStreamIdentifier = 0x52
	DescriptorTagSubtitling       = 0x59
	DescriptorTagSystemClock      = 0xb
)

// Service types. Chapter: 6.2.33 | Link:
// https://www.etsi.org/deliver/etsi_en/300400_300499/300468/01.15.01_60/en_300468v011501p.pdf
const (
	ServiceTypeDigitalTelevisionService = 0x1
)

// Descriptor represents a single decoded descriptor. The tag set
// decoded in full follows original_source/src/descriptor.c's dump
// coverage (system clock, max bitrate, stream identifier, subtitling,
// network name, service, short event); everything else is retained
// verbatim as tag+payload rather than dropped.
type Descriptor struct {
	Length uint8
	Tag    uint8

	MaximumBitrate   *DescriptorMaximumBitrate
	NetworkName      *DescriptorNetworkName
	Service          *DescriptorService
	ShortEvent       *DescriptorShortEvent
	StreamIdentifier *DescriptorStreamIdentifier
	Subtitling       *DescriptorSubtitling
	SystemClock      *DescriptorSystemClock

	Unknown *DescriptorUnknown
}

// DescriptorMaximumBitrate represents a maximum bitrate descriptor.
// Page: 85 | Chapter 2.6.26 |
// http://ecee.colorado.edu/~ecen5653/ecen5653/papers/iso13818-1.pdf
type DescriptorMaximumBitrate struct {
	Bitrate uint32 // In units of 50 bytes/second. 22 bits.
}

func newDescriptorMaximumBitrate(r *BitReader) (*DescriptorMaximumBitrate, error) {
	b, err := r.Read24()
	if err != nil {
		return nil, err
	}
	return &DescriptorMaximumBitrate{Bitrate: b & 0x3FFFFF}, nil
}

// DescriptorNetworkName represents a network name descriptor. Chapter:
// 6.2.27 |
// https://www.etsi.org/deliver/etsi_en/300400_300499/300468/01.15.01_60/en_300468v011501p.pdf
type DescriptorNetworkName struct {
	Name []byte
}

func newDescriptorNetworkName(r *BitReader, length uint8) (*DescriptorNetworkName, error) {
	b, err := r.ReadBytes(int(length))
	if err != nil {
		return nil, err
	}
	return &DescriptorNetworkName{Name: append([]byte(nil), b...)}, nil
}

// DescriptorService represents a service descriptor. Chapter: 6.2.33 |
// https://www.etsi.org/deliver/etsi_en/300400_300499/300468/01.15.01_60/en_300468v011501p.pdf
type DescriptorService struct {
	Type     uint8
	Provider []byte
	Name     []byte
}

func newDescriptorService(r *BitReader) (*DescriptorService, error) {
	d := &DescriptorService{}

	t, err := r.Read8()
	if err != nil {
		return nil, err
	}
	d.Type = t

	providerLength, err := r.Read8()
	if err != nil {
		return nil, err
	}
	provider, err := r.ReadBytes(int(providerLength))
	if err != nil {
		return nil, err
	}
	d.Provider = append([]byte(nil), provider...)

	nameLength, err := r.Read8()
	if err != nil {
		return nil, err
	}
	name, err := r.ReadBytes(int(nameLength))
	if err != nil {
		return nil, err
	}
	d.Name = append([]byte(nil), name...)

	return d, nil
}

// DescriptorShortEvent represents a short event descriptor. Chapter:
// 6.2.37 |
// https://www.etsi.org/deliver/etsi_en/300400_300499/300468/01.15.01_60/en_300468v011501p.pdf
type DescriptorShortEvent struct {
	Language  []byte // 3 bytes.
	EventName []byte
	Text      []byte
}

func newDescriptorShortEvent(r *BitReader) (*DescriptorShortEvent, error) {
	d := &DescriptorShortEvent{}

	lang, err := r.ReadBytes(3)
	if err != nil {
		return nil, err
	}
	d.Language = append([]byte(nil), lang...)

	eventLength, err := r.Read8()
	if err != nil {
		return nil, err
	}
	eventName, err := r.ReadBytes(int(eventLength))
	if err != nil {
		return nil, err
	}
	d.EventName = append([]byte(nil), eventName...)

	textLength, err := r.Read8()
	if err != nil {
		return nil, err
	}
	text, err := r.ReadBytes(int(textLength))
	if err != nil {
		return nil, err
	}
	d.Text = append([]byte(nil), text...)

	return d, nil
}

// DescriptorStreamIdentifier represents a stream identifier
// descriptor. Chapter: 6.2.39 |
// https://www.etsi.org/deliver/etsi_en/300400_300499/300468/01.15.01_60/en_300468v011501p.pdf
type DescriptorStreamIdentifier struct {
	ComponentTag uint8
}

func newDescriptorStreamIdentifier(r *BitReader) (*DescriptorStreamIdentifier, error) {
	tag, err := r.Read8()
	if err != nil {
		return nil, err
	}
	return &DescriptorStreamIdentifier{ComponentTag: tag}, nil
}

// DescriptorSubtitling represents a subtitling descriptor. Chapter:
// 6.2.41 |
// https://www.etsi.org/deliver/etsi_en/300400_300499/300468/01.15.01_60/en_300468v011501p.pdf
type DescriptorSubtitling struct {
	Items []DescriptorSubtitlingItem
}

// DescriptorSubtitlingItem represents one subtitling descriptor entry.
type DescriptorSubtitlingItem struct {
	Language          []byte // 3 bytes.
	Type              uint8
	CompositionPageID uint16
	AncillaryPageID   uint16
}

func newDescriptorSubtitling(r *BitReader, length uint8) (*DescriptorSubtitling, error) {
	end := r.Offset() + int(length)
	var items []DescriptorSubtitlingItem
	for r.Offset() < end {
		var item DescriptorSubtitlingItem

		lang, err := r.ReadBytes(3)
		if err != nil {
			return nil, err
		}
		item.Language = append([]byte(nil), lang...)

		typ, err := r.Read8()
		if err != nil {
			return nil, err
		}
		item.Type = typ

		comp, err := r.Read16()
		if err != nil {
			return nil, err
		}
		item.CompositionPageID = comp

		anc, err := r.Read16()
		if err != nil {
			return nil, err
		}
		item.AncillaryPageID = anc

		items = append(items, item)
	}
	return &DescriptorSubtitling{Items: items}, nil
}

// DescriptorSystemClock represents a system clock descriptor. Page: 84
// | Chapter 2.6.24 |
// http://ecee.colorado.edu/~ecen5653/ecen5653/papers/iso13818-1.pdf
type DescriptorSystemClock struct {
	ExternalClockReferenceIndicator bool
	ClockAccuracyInteger            uint8 // 6 bits.
	ClockAccuracyExponent           uint8 // 3 bits.
}

func newDescriptorSystemClock(r *BitReader) (*DescriptorSystemClock, error) {
	b, err := r.Read16()
	if err != nil {
		return nil, err
	}
	return &DescriptorSystemClock{
		ExternalClockReferenceIndicator: b&0x8000 != 0,
		ClockAccuracyInteger:            uint8((b >> 8) & 0x3F),
		ClockAccuracyExponent:           uint8((b >> 5) & 0x7),
	}, nil
}

// DescriptorUnknown is the raw tag+payload fallback for every tag this
// package doesn't decode in detail; nothing is ever dropped.
type DescriptorUnknown struct {
	Tag     uint8
	Content []byte
}

func newDescriptorUnknown(r *BitReader, tag, length uint8) (*DescriptorUnknown, error) {
	b, err := r.ReadBytes(int(length))
	if err != nil {
		return nil, err
	}
	return &DescriptorUnknown{Tag: tag, Content: append([]byte(nil), b...)}, nil
}

// parseDescriptors reads a descriptor loop occupying exactly
// loopLength bytes at the cursor.
func parseDescriptors(r *BitReader, loopLength int) ([]*Descriptor, error) {
	end := r.Offset() + loopLength
	var descriptors []*Descriptor
	for r.Offset() < end {
		d, err := parseDescriptor(r)
		if err != nil {
			return nil, fmt.Errorf("parsing descriptor failed: %w", err)
		}
		descriptors = append(descriptors, d)
	}
	return descriptors, nil
}

// parseDescriptor reads one descriptor's tag, length, and payload,
// dispatching to the typed decoder for the tags this package
// understands and DescriptorUnknown for everything else.
func parseDescriptor(r *BitReader) (*Descriptor, error) {
	tag, err := r.Read8()
	if err != nil {
		return nil, fmt.Errorf("reading descriptor tag failed: %w", err)
	}
	length, err := r.Read8()
	if err != nil {
		return nil, fmt.Errorf("reading descriptor length failed: %w", err)
	}
	if r.Len() < int(length) {
		return nil, ErrTruncatedInput
	}
	payloadEnd := r.Offset() + int(length)

	d := &Descriptor{Tag: tag, Length: length}
	var derr error
	switch tag {
	case DescriptorTagMaximumBitrate:
		d.MaximumBitrate, derr = newDescriptorMaximumBitrate(r)
	case DescriptorTagNetworkName:
		d.NetworkName, derr = newDescriptorNetworkName(r, length)
	case DescriptorTagService:
		d.Service, derr = newDescriptorService(r)
	case DescriptorTagShortEvent:
		d.ShortEvent, derr = newDescriptorShortEvent(r)
	case DescriptorTagStreamIdentifier:
		d.StreamIdentifier, derr = newDescriptorStreamIdentifier(r)
	case DescriptorTagSubtitling:
		d.Subtitling, derr = newDescriptorSubtitling(r, length)
	case DescriptorTagSystemClock:
		d.SystemClock, derr = newDescriptorSystemClock(r)
	default:
		logger.Printf("tspsi: unhandled descriptor tag 0x%02x, falling back to raw bytes", tag)
		d.Unknown, derr = newDescriptorUnknown(r, tag, length)
	}
	if derr != nil {
		return nil, derr
	}

	// A decoder that reads more or fewer bytes than length (malformed
	// input, or a field we don't fully decode) never desyncs the
	// caller's loop.
	r.Seek(payloadEnd)
	return d, nil
}
