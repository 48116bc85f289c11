package pipeline

import (
	"errors"
	"fmt"

	"github.com/asticode/go-astiav"
)

// Encoder wraps one encode context. It is configured exactly once, before
// the first frame is submitted, and must be flushed via Flush before the
// output container is finalized.
type Encoder struct {
	codec *astiav.Codec
	cc    *astiav.CodecContext
}

// VideoEncoderConfig carries the negotiated or job-supplied parameters of a
// video encoder.
type VideoEncoderConfig struct {
	Codec        *astiav.Codec
	Width        int
	Height       int
	PixelFormat  astiav.PixelFormat
	TimeBase     astiav.Rational
	FrameRate    astiav.Rational
	BitRate      int64
	GlobalHeader bool
}

// AudioEncoderConfig carries the negotiated or job-supplied parameters of an
// audio encoder.
type AudioEncoderConfig struct {
	Codec         *astiav.Codec
	SampleRate    int
	ChannelLayout astiav.ChannelLayout
	SampleFormat  astiav.SampleFormat
	TimeBase      astiav.Rational
	BitRate       int64
	GlobalHeader  bool
}

// NewVideoEncoder creates and opens a video encoder. Frames submitted later
// must match the configured geometry and pixel format exactly.
func NewVideoEncoder(cfg VideoEncoderConfig) (*Encoder, error) {
	if cfg.Codec == nil {
		return nil, fmt.Errorf("%w: no video encoder", ErrConfiguration)
	}

	cc := astiav.AllocCodecContext(cfg.Codec)
	if cc == nil {
		return nil, fmt.Errorf("%w: alloc encode context", ErrConfiguration)
	}

	cc.SetWidth(cfg.Width)
	cc.SetHeight(cfg.Height)
	cc.SetPixelFormat(cfg.PixelFormat)
	cc.SetTimeBase(cfg.TimeBase)
	if cfg.FrameRate.Num() > 0 && cfg.FrameRate.Den() > 0 {
		cc.SetFramerate(cfg.FrameRate)
	}
	if cfg.BitRate > 0 {
		cc.SetBitRate(cfg.BitRate)
	}
	if cfg.GlobalHeader {
		cc.SetFlags(cc.Flags().Add(astiav.CodecContextFlagGlobalHeader))
	}

	if err := cc.Open(cfg.Codec, nil); err != nil {
		cc.Free()
		return nil, fmt.Errorf("%w: open %s encoder: %w", ErrConfiguration, cfg.Codec.Name(), err)
	}

	return &Encoder{codec: cfg.Codec, cc: cc}, nil
}

// NewAudioEncoder creates and opens an audio encoder.
func NewAudioEncoder(cfg AudioEncoderConfig) (*Encoder, error) {
	if cfg.Codec == nil {
		return nil, fmt.Errorf("%w: no audio encoder", ErrConfiguration)
	}

	cc := astiav.AllocCodecContext(cfg.Codec)
	if cc == nil {
		return nil, fmt.Errorf("%w: alloc encode context", ErrConfiguration)
	}

	cc.SetSampleRate(cfg.SampleRate)
	cc.SetChannelLayout(cfg.ChannelLayout)
	cc.SetSampleFormat(cfg.SampleFormat)
	cc.SetTimeBase(cfg.TimeBase)
	if cfg.BitRate > 0 {
		cc.SetBitRate(cfg.BitRate)
	}
	if cfg.GlobalHeader {
		cc.SetFlags(cc.Flags().Add(astiav.CodecContextFlagGlobalHeader))
	}

	if err := cc.Open(cfg.Codec, nil); err != nil {
		cc.Free()
		return nil, fmt.Errorf("%w: open %s encoder: %w", ErrConfiguration, cfg.Codec.Name(), err)
	}

	return &Encoder{codec: cfg.Codec, cc: cc}, nil
}

// TimeBase returns the time base of the packets this encoder emits.
func (e *Encoder) TimeBase() astiav.Rational { return e.cc.TimeBase() }

// CodecContext exposes the encoder's negotiated parameters for declaring the
// output stream.
func (e *Encoder) CodecContext() *astiav.CodecContext { return e.cc }

// Send submits one frame for encoding. A nil frame signals end-of-stream.
func (e *Encoder) Send(f *astiav.Frame) error {
	if err := e.cc.SendFrame(f); err != nil && !errors.Is(err, astiav.ErrEof) {
		return fmt.Errorf("%w: %s: %w", ErrEncode, e.codec.Name(), err)
	}
	return nil
}

// Receive pulls the next encoded packet into pkt. It returns false when the
// encoder has nothing to give right now (more input needed, or fully drained
// after Flush).
func (e *Encoder) Receive(pkt *astiav.Packet) (bool, error) {
	if err := e.cc.ReceivePacket(pkt); err != nil {
		if errors.Is(err, astiav.ErrEagain) || errors.Is(err, astiav.ErrEof) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %s: %w", ErrEncode, e.codec.Name(), err)
	}
	return true, nil
}

// Flush signals end-of-stream. The caller must keep calling Receive until it
// returns false to drain reordered packets.
func (e *Encoder) Flush() error {
	return e.Send(nil)
}

// Close releases the encode context.
func (e *Encoder) Close() {
	e.cc.Free()
}
