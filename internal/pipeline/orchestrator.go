// Package pipeline implements the native frame-processing pipeline: it
// opens a media container, selects a stream, decodes packets into frames,
// optionally transforms them, and re-encodes and multiplexes them into an
// output container, sequencing setup, flush and teardown.
//
// One pipeline run is synchronous and single-threaded: encoder and muxer
// ordering invariants require strict sequential submission per stream, so
// there is no parallelism across frames and no cancellation inside a run.
// Killing runaway jobs is the supervisor's business.
package pipeline

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/asticode/go-astiav"
	"github.com/asticode/go-astikit"
)

// errStopDraining is returned by a variant's frame hook to end Draining
// early, e.g. once the requested number of frames has been written. The
// pipeline still runs its regular Flushing and Finalizing states.
var errStopDraining = errors.New("pipeline: stop draining")

// variant is the task-specific behavior slotted into the fixed state
// machine. Variants customize what happens to decoded frames; they never
// change the state order.
type variant interface {
	// bind selects the stream to process in one source container and
	// creates its decoder. Called once per source.
	bind(in *Input) (*Decoder, error)
	// configure builds everything downstream of the decoder (transforms,
	// encoder, output container) from the first source's negotiated
	// parameters. Runs in Configuring; a failure here aborts before any
	// output bytes are written.
	configure(o *Orchestrator, in *Input, dec *Decoder) error
	// frame consumes one decoded frame, both during Draining and while the
	// decoder's look-ahead buffer drains in Flushing. Returning
	// errStopDraining ends Draining early.
	frame(f *astiav.Frame) error
	// flush drains variant-owned state: transform carry-over, then the
	// encoder. Runs in Flushing, after the last decoder has been flushed.
	flush() error
	// finalize writes trailers or reports. Runs in Finalizing.
	finalize() error
}

// Orchestrator drives one pipeline run through
// Opening -> Configuring -> Draining -> Flushing -> Finalizing -> Done,
// with any state able to fail. All libav handles registered with Defer are
// released when the run ends, on success or failure.
type Orchestrator struct {
	logger *slog.Logger
	state  State
	closer *astikit.Closer

	// scratch packet/frame reused across the whole run and Unref'd between
	// iterations, keeping the drain loop allocation-free.
	pkt   *astiav.Packet
	frame *astiav.Frame
}

// Run executes one pipeline over the given source containers. Single-source
// variants pass exactly one path; the audio mix variant passes several and
// has each source drained sequentially into the shared downstream.
func Run(logger *slog.Logger, inputPaths []string, v variant) error {
	if len(inputPaths) == 0 {
		return fmt.Errorf("%w: no input", ErrIO)
	}

	o := &Orchestrator{
		logger: logger,
		state:  StateOpening,
		closer: astikit.NewCloser(),
	}
	defer o.closer.Close()

	if err := o.run(inputPaths, v); err != nil {
		o.state = StateFailed
		logger.Error("pipeline failed",
			slog.String("input", inputPaths[0]),
			slog.String("error", err.Error()),
		)
		return err
	}

	return nil
}

// Defer registers a cleanup to run when the pipeline ends, in reverse
// registration order.
func (o *Orchestrator) Defer(f func()) {
	o.closer.Add(f)
}

// State returns the current pipeline state.
func (o *Orchestrator) State() State { return o.state }

func (o *Orchestrator) transition(to State) error {
	if !canTransition(o.state, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.state, to)
	}
	o.logger.Debug("pipeline state",
		slog.String("from", string(o.state)),
		slog.String("to", string(to)),
	)
	o.state = to
	return nil
}

func (o *Orchestrator) run(inputPaths []string, v variant) error {
	o.pkt = astiav.AllocPacket()
	o.closer.Add(o.pkt.Free)
	o.frame = astiav.AllocFrame()
	o.closer.Add(o.frame.Free)

	// Opening
	in, err := OpenInput(inputPaths[0])
	if err != nil {
		return err
	}
	o.closer.Add(in.Close)

	// Configuring
	if err := o.transition(StateConfiguring); err != nil {
		return err
	}
	dec, err := v.bind(in)
	if err != nil {
		return err
	}
	o.closer.Add(dec.Close)
	if err := v.configure(o, in, dec); err != nil {
		return err
	}

	// Draining
	if err := o.transition(StateDraining); err != nil {
		return err
	}
	stopped := false
	for i := 0; i < len(inputPaths) && !stopped; i++ {
		if i > 0 {
			if in, err = OpenInput(inputPaths[i]); err != nil {
				return err
			}
			o.closer.Add(in.Close)
			if dec, err = v.bind(in); err != nil {
				return err
			}
			o.closer.Add(dec.Close)
		}

		if stopped, err = o.drainSource(in, dec, v); err != nil {
			return err
		}

		// Every source except the last is flushed inline so its buffered
		// frames land before the next source's first frame.
		if !stopped && i < len(inputPaths)-1 {
			if err := o.flushDecoder(dec, v); err != nil {
				return err
			}
		}
	}

	// Flushing
	if err := o.transition(StateFlushing); err != nil {
		return err
	}
	if err := o.flushDecoder(dec, v); err != nil {
		return err
	}
	if err := v.flush(); err != nil {
		return err
	}

	// Finalizing
	if err := o.transition(StateFinalizing); err != nil {
		return err
	}
	if err := v.finalize(); err != nil {
		return err
	}

	return o.transition(StateDone)
}

// drainSource reads packets until end of input, feeding the decoder and
// pushing every decoded frame through the variant, preserving arrival order.
func (o *Orchestrator) drainSource(in *Input, dec *Decoder, v variant) (stopped bool, err error) {
	for {
		if err := in.ReadPacket(o.pkt); err != nil {
			if errors.Is(err, astiav.ErrEof) {
				return false, nil
			}
			return false, fmt.Errorf("%w: read packet from %q: %w", ErrIO, in.Path(), err)
		}

		if o.pkt.StreamIndex() != dec.StreamIndex() {
			o.pkt.Unref()
			continue
		}

		err := dec.Send(o.pkt)
		o.pkt.Unref()
		if err != nil {
			return false, err
		}

		if stopped, err = o.receiveFrames(dec, v); stopped || err != nil {
			return stopped, err
		}
	}
}

// receiveFrames pulls every frame the decoder can currently give and hands
// it to the variant.
func (o *Orchestrator) receiveFrames(dec *Decoder, v variant) (stopped bool, err error) {
	for {
		ok, err := dec.Receive(o.frame)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}

		err = v.frame(o.frame)
		o.frame.Unref()
		if errors.Is(err, errStopDraining) {
			return true, nil
		}
		if err != nil {
			return false, err
		}
	}
}

// flushDecoder signals end-of-stream to the decoder and drains its
// look-ahead buffer through the variant.
func (o *Orchestrator) flushDecoder(dec *Decoder, v variant) error {
	if err := dec.Flush(); err != nil {
		return err
	}
	_, err := o.receiveFrames(dec, v)
	return err
}
