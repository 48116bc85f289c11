package pipeline

import "errors"

// Static errors classifying every way a pipeline run can fail. Any of these
// aborts the whole job; there is no partial success or retry inside the
// pipeline. Callers match with errors.Is.
var (
	// ErrConfiguration is returned for unsupported codecs/formats and other
	// setup failures that abort the job before any output bytes are written.
	ErrConfiguration = errors.New("pipeline: configuration error")
	// ErrStreamNotFound is returned when the input has no stream of the
	// requested kind. It short-circuits the job before the output container
	// is created.
	ErrStreamNotFound = errors.New("pipeline: no stream of requested kind")
	// ErrIO is returned when a container cannot be opened or created.
	ErrIO = errors.New("pipeline: i/o error")
	// ErrDecode is returned for malformed bitstreams.
	ErrDecode = errors.New("pipeline: decode error")
	// ErrEncode is returned when the encoder rejects a frame or format.
	ErrEncode = errors.New("pipeline: encode error")
	// ErrMux is returned when header/trailer sequencing is violated or an
	// output packet would break the non-decreasing timestamp invariant.
	ErrMux = errors.New("pipeline: mux error")
)
