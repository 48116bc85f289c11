package pipeline

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/asticode/go-astiav"
)

// MediaInfo is the probe report for one container.
type MediaInfo struct {
	Path            string       `json:"path"`
	DurationSeconds float64      `json:"duration_seconds"`
	Streams         []StreamInfo `json:"streams"`
}

// StreamInfo describes one stream of a probed container. Video and audio
// fields are populated for their media type only.
type StreamInfo struct {
	Index      int     `json:"index"`
	Type       string  `json:"type"`
	Codec      string  `json:"codec"`
	Width      int     `json:"width,omitempty"`
	Height     int     `json:"height,omitempty"`
	FrameRate  float64 `json:"frame_rate,omitempty"`
	SampleRate int     `json:"sample_rate,omitempty"`
	Channels   int     `json:"channels,omitempty"`
}

// Probe inspects inputPath without decoding it and writes the report to
// outputPath as JSON. Probing never produces media output, so it bypasses
// the frame pipeline entirely. When require is not MediaTypeUnknown, the
// container must carry at least one stream of that type.
func Probe(logger *slog.Logger, inputPath, outputPath string, require astiav.MediaType) (*MediaInfo, error) {
	in, err := OpenInput(inputPath)
	if err != nil {
		return nil, err
	}
	defer in.Close()

	if require != astiav.MediaTypeUnknown {
		if _, _, err := in.BestStream(require); err != nil {
			return nil, err
		}
	}

	info := &MediaInfo{
		Path:            inputPath,
		DurationSeconds: in.Duration(),
		Streams:         make([]StreamInfo, 0, len(in.Streams())),
	}

	for _, s := range in.Streams() {
		par := s.CodecParameters()

		si := StreamInfo{
			Index: s.Index(),
			Type:  par.MediaType().String(),
		}
		if codec := astiav.FindDecoder(par.CodecID()); codec != nil {
			si.Codec = codec.Name()
		}

		switch par.MediaType() {
		case astiav.MediaTypeVideo:
			si.Width = par.Width()
			si.Height = par.Height()
			if fr := in.FrameRate(s); fr.Den() > 0 {
				si.FrameRate = float64(fr.Num()) / float64(fr.Den())
			}
		case astiav.MediaTypeAudio:
			si.SampleRate = par.SampleRate()
			si.Channels = par.ChannelLayout().Channels()
		}

		info.Streams = append(info.Streams, si)
	}

	logger.Debug("probed media",
		slog.String("path", inputPath),
		slog.Int("streams", len(info.Streams)),
		slog.Float64("duration_seconds", info.DurationSeconds),
	)

	b, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("pipeline: marshal media info: %w", err)
	}
	if err := os.WriteFile(outputPath, b, 0o644); err != nil {
		return nil, fmt.Errorf("%w: write media info: %w", ErrIO, err)
	}

	return info, nil
}
