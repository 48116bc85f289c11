package pipeline

import (
	"errors"
	"fmt"

	"github.com/asticode/go-astiav"
)

// Decoder wraps one decode context bound to a single input stream. It
// accepts packets for that stream only and emits a finite sequence of
// frames; once flushed it cannot be restarted.
type Decoder struct {
	stream *astiav.Stream
	cc     *astiav.CodecContext
}

// NewDecoder creates and opens a decoder for the given stream. A nil codec
// is looked up from the stream's codec parameters; an unsupported codec is a
// configuration error.
func NewDecoder(stream *astiav.Stream, codec *astiav.Codec) (*Decoder, error) {
	if codec == nil {
		codec = astiav.FindDecoder(stream.CodecParameters().CodecID())
	}
	if codec == nil {
		return nil, fmt.Errorf("%w: no decoder for stream %d", ErrConfiguration, stream.Index())
	}

	cc := astiav.AllocCodecContext(codec)
	if cc == nil {
		return nil, fmt.Errorf("%w: alloc decode context", ErrConfiguration)
	}

	if err := stream.CodecParameters().ToCodecContext(cc); err != nil {
		cc.Free()
		return nil, fmt.Errorf("%w: apply stream %d parameters: %w", ErrConfiguration, stream.Index(), err)
	}
	cc.SetTimeBase(stream.TimeBase())

	if err := cc.Open(codec, nil); err != nil {
		cc.Free()
		return nil, fmt.Errorf("%w: open decoder for stream %d: %w", ErrConfiguration, stream.Index(), err)
	}

	return &Decoder{stream: stream, cc: cc}, nil
}

// Stream returns the bound input stream.
func (d *Decoder) Stream() *astiav.Stream { return d.stream }

// StreamIndex returns the bound stream's index.
func (d *Decoder) StreamIndex() int { return d.stream.Index() }

// TimeBase returns the time base decoded frame timestamps are expressed in.
func (d *Decoder) TimeBase() astiav.Rational { return d.stream.TimeBase() }

// CodecContext exposes the negotiated decode parameters (geometry, pixel
// format, sample rate, channel layout) for configuring downstream stages.
func (d *Decoder) CodecContext() *astiav.CodecContext { return d.cc }

// Send submits one packet. Packets belonging to other streams are ignored.
// A malformed packet is fatal: the whole job aborts with ErrDecode.
func (d *Decoder) Send(pkt *astiav.Packet) error {
	if pkt != nil && pkt.StreamIndex() != d.stream.Index() {
		return nil
	}
	if err := d.cc.SendPacket(pkt); err != nil && !errors.Is(err, astiav.ErrEof) {
		return fmt.Errorf("%w: stream %d: %w", ErrDecode, d.stream.Index(), err)
	}
	return nil
}

// Receive pulls the next decoded frame into f. It returns false when the
// decoder has no frame to give right now (more input needed, or fully
// drained after Flush).
func (d *Decoder) Receive(f *astiav.Frame) (bool, error) {
	if err := d.cc.ReceiveFrame(f); err != nil {
		if errors.Is(err, astiav.ErrEagain) || errors.Is(err, astiav.ErrEof) {
			return false, nil
		}
		return false, fmt.Errorf("%w: stream %d: %w", ErrDecode, d.stream.Index(), err)
	}
	return true, nil
}

// Flush signals end-of-stream. The caller must keep calling Receive until it
// returns false to drain the decoder's look-ahead buffer.
func (d *Decoder) Flush() error {
	return d.Send(nil)
}

// Close releases the decode context.
func (d *Decoder) Close() {
	d.cc.Free()
}
