package pipeline

import (
	"fmt"

	"github.com/asticode/go-astiav"
)

// Sink is the muxer adapter for one output container. All streams must be
// declared before Open/WriteHeader; every packet written is rescaled from
// the encoder's time base into the output stream's time base, and
// per-stream decode timestamps must be non-decreasing.
type Sink struct {
	path string
	fc   *astiav.FormatContext
	io   *astiav.IOContext

	headerWritten  bool
	trailerWritten bool
	lastDTS        map[int]int64
}

// NewSink allocates the output container context for path. No file is
// created until Open; configuration failures after NewSink therefore still
// leave no output behind.
func NewSink(path string) (*Sink, error) {
	fc, err := astiav.AllocOutputFormatContext(nil, "", path)
	if err != nil {
		return nil, fmt.Errorf("%w: alloc output for %q: %w", ErrIO, path, err)
	}
	if fc == nil {
		return nil, fmt.Errorf("%w: alloc output for %q", ErrIO, path)
	}
	return &Sink{path: path, fc: fc, lastDTS: make(map[int]int64)}, nil
}

// NeedsGlobalHeader reports whether encoders feeding this container must
// emit global headers instead of in-band ones.
func (s *Sink) NeedsGlobalHeader() bool {
	return s.fc.OutputFormat().Flags().Has(astiav.IOFormatFlagGlobalheader)
}

// AddStream declares one output stream carrying the encoder's parameters.
// It must be called before WriteHeader.
func (s *Sink) AddStream(enc *Encoder) (*astiav.Stream, error) {
	if s.headerWritten {
		return nil, fmt.Errorf("%w: stream added after header", ErrMux)
	}

	os := s.fc.NewStream(nil)
	if os == nil {
		return nil, fmt.Errorf("%w: new stream on %q", ErrMux, s.path)
	}

	if err := os.CodecParameters().FromCodecContext(enc.CodecContext()); err != nil {
		return nil, fmt.Errorf("%w: copy encoder parameters: %w", ErrConfiguration, err)
	}
	os.SetTimeBase(enc.TimeBase())

	return os, nil
}

// Open creates the output file. This is the first point at which output
// bytes can appear on disk.
func (s *Sink) Open() error {
	if s.fc.OutputFormat().Flags().Has(astiav.IOFormatFlagNofile) {
		return nil
	}

	io, err := astiav.OpenIOContext(s.path, astiav.NewIOContextFlags(astiav.IOContextFlagWrite), nil, nil)
	if err != nil {
		return fmt.Errorf("%w: create %q: %w", ErrIO, s.path, err)
	}
	s.io = io
	s.fc.SetPb(io)

	return nil
}

// WriteHeader writes the container header. It must run exactly once, before
// any packet.
func (s *Sink) WriteHeader() error {
	if s.headerWritten {
		return fmt.Errorf("%w: header written twice", ErrMux)
	}
	if err := s.fc.WriteHeader(nil); err != nil {
		return fmt.Errorf("%w: write header to %q: %w", ErrMux, s.path, err)
	}
	s.headerWritten = true
	return nil
}

// WritePacket rescales pkt from the encoder time base into the output
// stream's time base, retags it with the output stream index and writes it
// interleaved. The muxer takes ownership of the packet's payload; the
// packet itself stays reusable.
func (s *Sink) WritePacket(pkt *astiav.Packet, from astiav.Rational, dst *astiav.Stream) error {
	if !s.headerWritten {
		return fmt.Errorf("%w: packet before header", ErrMux)
	}

	pkt.SetStreamIndex(dst.Index())
	pkt.RescaleTs(from, dst.TimeBase())

	if dts := pkt.Dts(); dts != astiav.NoPtsValue {
		if last, ok := s.lastDTS[dst.Index()]; ok && dts < last {
			return fmt.Errorf("%w: non-monotonic dts %d after %d on stream %d", ErrMux, dts, last, dst.Index())
		}
		s.lastDTS[dst.Index()] = dts
	}

	if err := s.fc.WriteInterleavedFrame(pkt); err != nil {
		return fmt.Errorf("%w: write packet to %q: %w", ErrMux, s.path, err)
	}

	return nil
}

// WriteTrailer finalizes the container. It must run exactly once, only
// after every encoder feeding this sink has been flushed.
func (s *Sink) WriteTrailer() error {
	if !s.headerWritten {
		return fmt.Errorf("%w: trailer before header", ErrMux)
	}
	if s.trailerWritten {
		return fmt.Errorf("%w: trailer written twice", ErrMux)
	}
	if err := s.fc.WriteTrailer(); err != nil {
		return fmt.Errorf("%w: write trailer to %q: %w", ErrMux, s.path, err)
	}
	s.trailerWritten = true
	return nil
}

// Close releases the container and the underlying file handle.
func (s *Sink) Close() {
	if s.io != nil {
		_ = s.io.Close()
		s.io = nil
	}
	s.fc.Free()
}
