package pipeline

import (
	"fmt"

	"github.com/asticode/go-astiav"
)

// microsecond time base of container-level durations and seek positions.
const containerTimeBase = 1_000_000

// Input is an opened, probed input container. It is exclusively owned by one
// pipeline run and closed when the run ends, on success or failure.
type Input struct {
	path string
	fc   *astiav.FormatContext
}

// OpenInput opens the container at path and probes its streams.
func OpenInput(path string) (*Input, error) {
	fc := astiav.AllocFormatContext()
	if fc == nil {
		return nil, fmt.Errorf("%w: alloc format context", ErrIO)
	}

	if err := fc.OpenInput(path, nil, nil); err != nil {
		fc.Free()
		return nil, fmt.Errorf("%w: open %q: %w", ErrIO, path, err)
	}

	if err := fc.FindStreamInfo(nil); err != nil {
		fc.CloseInput()
		fc.Free()
		return nil, fmt.Errorf("%w: probe %q: %w", ErrIO, path, err)
	}

	return &Input{path: path, fc: fc}, nil
}

// Path returns the input path.
func (in *Input) Path() string { return in.path }

// Streams returns all elementary streams discovered at open time.
func (in *Input) Streams() []*astiav.Stream { return in.fc.Streams() }

// BestStream returns the library's preferred stream of the requested kind
// and its decoder. The choice is deterministic for a given input. It returns
// ErrStreamNotFound when the container has no stream of that kind.
func (in *Input) BestStream(mt astiav.MediaType) (*astiav.Stream, *astiav.Codec, error) {
	s, c, err := in.fc.FindBestStream(mt, -1, -1)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s in %q: %w", ErrStreamNotFound, mt, in.path, err)
	}
	return s, c, nil
}

// ReadPacket reads the next packet from the container into pkt. It returns
// astiav.ErrEof at end of input.
func (in *Input) ReadPacket(pkt *astiav.Packet) error {
	return in.fc.ReadFrame(pkt)
}

// Duration returns the container duration in seconds, or 0 when unknown.
func (in *Input) Duration() float64 {
	d := in.fc.Duration()
	if d <= 0 {
		return 0
	}
	return float64(d) / containerTimeBase
}

// FrameRate returns the best guess of the stream's frame rate.
func (in *Input) FrameRate(s *astiav.Stream) astiav.Rational {
	return in.fc.GuessFrameRate(s, nil)
}

// FrameCount estimates the total number of frames in the stream: the
// container's declared count when present, otherwise duration x frame rate.
func (in *Input) FrameCount(s *astiav.Stream) int64 {
	if n := s.NbFrames(); n > 0 {
		return n
	}

	fr := in.FrameRate(s)
	if fr.Den() == 0 {
		return 0
	}
	fps := float64(fr.Num()) / float64(fr.Den())

	return int64(in.Duration() * fps)
}

// SeekSeconds positions the demuxer at the keyframe at or before the given
// time.
func (in *Input) SeekSeconds(seconds float64) error {
	ts := int64(seconds * containerTimeBase)
	if err := in.fc.SeekFrame(-1, ts, astiav.NewSeekFlags(astiav.SeekFlagBackward)); err != nil {
		return fmt.Errorf("%w: seek %q to %.3fs: %w", ErrIO, in.path, seconds, err)
	}
	return nil
}

// Close releases the container. Safe to call once.
func (in *Input) Close() {
	in.fc.CloseInput()
	in.fc.Free()
}
