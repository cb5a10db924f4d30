package tspsi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
)

// sectionAccumulator reassembles the raw section byte stream carried in
// one PID's packet payloads, the equivalent of
// original_source/src/ts.c's per-PID continuity tracking plus pointer
// field handling -- but working directly on accumulated bytes rather
// than holding on to a queue of whole packets, since the section
// assembler only ever needs the bytes.
type sectionAccumulator struct {
	buf    *bytesPoolItem // nil when nothing is buffered for this PID
	n      int            // bytes of buf.s currently holding section data
	haveCC bool
	lastCC uint8
}

func (a *sectionAccumulator) reset() {
	if a.buf != nil {
		bytesPool.put(a.buf)
		a.buf = nil
	}
	a.n = 0
	a.haveCC = false
}

func (a *sectionAccumulator) append(b []byte) {
	if a.buf == nil {
		a.buf = bytesPool.get(0)
	}
	need := a.n + len(b)
	if cap(a.buf.s) < need {
		grown := bytesPool.get(need)
		copy(grown.s, a.buf.s[:a.n])
		bytesPool.put(a.buf)
		a.buf = grown
	} else if len(a.buf.s) < need {
		a.buf.s = a.buf.s[:need]
	}
	copy(a.buf.s[a.n:need], b)
	a.n = need
}

func (a *sectionAccumulator) bytes() []byte {
	if a.buf == nil {
		return nil
	}
	return a.buf.s[:a.n]
}

// discard removes the first n bytes of the buffered section data,
// shifting the remainder down so a second section packed into the same
// packet payload can be parsed next.
func (a *sectionAccumulator) discard(n int) {
	if n >= a.n {
		a.n = 0
		return
	}
	copy(a.buf.s[:a.n-n], a.buf.s[n:a.n])
	a.n -= n
}

// peekSectionLength reports the total byte length of the section
// starting at buf[0] (3-byte header plus section_length), and whether
// enough bytes have been buffered yet to know it.
func peekSectionLength(buf []byte) (total int, ok bool) {
	if len(buf) < 3 {
		return 0, false
	}
	sectionLength := int(buf[1]&0x0F)<<8 | int(buf[2])
	return 3 + sectionLength, true
}

// Demuxer reads a transport stream packet by packet, reassembles each
// PID's section stream, and dispatches completed sections into a
// FilterTable -- a PSI-store-centric design built around filter
// dispatch, rather than a per-section callback union.
type Demuxer struct {
	ctx           context.Context
	r             io.Reader
	filters       *FilterTable
	optPacketSize int

	packetBuffer *packetBuffer

	mu   sync.Mutex
	accs map[uint16]*sectionAccumulator
}

// DemuxerOption configures a Demuxer at construction time.
type DemuxerOption func(*Demuxer)

// DemuxerOptPacketSize fixes the packet size instead of autodetecting
// it from the stream's sync byte spacing.
func DemuxerOptPacketSize(packetSize int) DemuxerOption {
	return func(d *Demuxer) { d.optPacketSize = packetSize }
}

// NewDemuxer creates a demuxer reading from r and dispatching completed
// sections into filters (typically a Store's, via Store.Filters()).
func NewDemuxer(ctx context.Context, r io.Reader, filters *FilterTable, opts ...DemuxerOption) *Demuxer {
	d := &Demuxer{
		ctx:     ctx,
		r:       r,
		filters: filters,
		accs:    make(map[uint16]*sectionAccumulator),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// NextPacket retrieves the next raw TS packet without running it
// through section reassembly, for callers that want packet-level
// access (e.g. a probe tool reporting PID bitrate).
func (d *Demuxer) NextPacket() (*Packet, error) {
	if err := d.ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	if d.packetBuffer == nil {
		pb, err := newPacketBuffer(d.r, d.optPacketSize)
		if err != nil {
			return nil, fmt.Errorf("creating packet buffer failed: %w", err)
		}
		d.packetBuffer = pb
	}

	p, err := d.packetBuffer.next()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("fetching next packet from buffer failed: %w", err)
	}
	return p, nil
}

// Run reads packets until the reader is exhausted or ctx is canceled,
// feeding every one through section reassembly and filter dispatch. It
// returns nil on a clean end of stream.
func (d *Demuxer) Run() error {
	for {
		p, err := d.NextPacket()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if err := d.feed(p); err != nil {
			return fmt.Errorf("dispatching packet on PID %d failed: %w", p.Header.PID, err)
		}
	}
}

// feed runs one packet through continuity tracking, section
// reassembly, and filter dispatch. A packet flagged
// transport_error_indicator or carrying no payload is dropped, as is
// any PID with no filter registered against it -- there's no reason to
// pay for reassembly work nothing will consume.
func (d *Demuxer) feed(p *Packet) error {
	if p.Header.TransportErrorIndicator || !p.Header.HasPayload {
		return nil
	}

	pid := p.Header.PID
	if !d.filters.HasFilters(pid) {
		return nil
	}

	d.mu.Lock()
	acc, ok := d.accs[pid]
	if !ok {
		acc = &sectionAccumulator{}
		d.accs[pid] = acc
	}
	d.mu.Unlock()

	discontinuous := (p.AdaptationField != nil && p.AdaptationField.DiscontinuityIndicator) ||
		(acc.haveCC && p.Header.ContinuityCounter != (acc.lastCC+1)%16)
	if discontinuous {
		acc.reset()
	}
	acc.haveCC = true
	acc.lastCC = p.Header.ContinuityCounter

	payload := p.Payload
	if p.Header.PayloadUnitStartIndicator {
		if len(payload) < 1 {
			return ErrTruncatedInput
		}
		pointerField := int(payload[0])
		if 1+pointerField > len(payload) {
			return ErrTruncatedInput
		}

		if acc.n > 0 {
			acc.append(payload[1 : 1+pointerField])
			if err := d.drain(pid, acc); err != nil {
				return err
			}
		}
		acc.reset()
		payload = payload[1+pointerField:]
	}

	acc.append(payload)
	return d.drain(pid, acc)
}

// drain extracts and dispatches every complete section currently
// sitting in acc, stopping when fewer bytes remain than a section
// header needs, or a stuffing byte (0xFF) marks the rest of the
// payload as padding. A section that fails to dispatch (a CRC
// mismatch, a parser error) is logged and skipped -- it
// never aborts the rest of acc's sections or the demux loop feeding
// every other PID.
func (d *Demuxer) drain(pid uint16, acc *sectionAccumulator) error {
	for {
		buf := acc.bytes()
		if len(buf) == 0 || buf[0] == 0xFF {
			acc.discard(len(buf))
			return nil
		}

		total, ok := peekSectionLength(buf)
		if !ok || len(buf) < total {
			return nil
		}

		section := append([]byte(nil), buf[:total]...)
		acc.discard(total)
		if err := d.filters.Dispatch(pid, section); err != nil {
			logger.Printf("tspsi: dispatching section on PID %d failed: %v", pid, err)
		}
	}
}
