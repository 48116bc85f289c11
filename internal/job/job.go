// Package job defines the single-shot job envelope and executes one job
// against the pipeline: parse and validate the payload, run the task, stamp
// metrics and optionally upload the artifact.
package job

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidPayload is returned when the job envelope is malformed or
// misses a required field.
var ErrInvalidPayload = errors.New("job: invalid payload")

// Payload is the job request envelope, decoded from the supervisor's JSON.
type Payload struct {
	Task       string         `json:"task"`
	InputPath  string         `json:"input_path"`
	OutputPath string         `json:"output_path"`
	Params     map[string]any `json:"params,omitempty"`
}

// Metrics carries the measurements of a successful job.
type Metrics struct {
	DurationMs      int64 `json:"duration_ms"`
	InputSizeBytes  int64 `json:"input_size_bytes"`
	OutputSizeBytes int64 `json:"output_size_bytes"`
}

// Result is the job response envelope, emitted as one JSON document on
// stdout. OutputPath, OutputURL and Metrics are present on success only.
type Result struct {
	Success    bool     `json:"success"`
	Message    string   `json:"message"`
	OutputPath string   `json:"output_path,omitempty"`
	OutputURL  string   `json:"output_url,omitempty"`
	Metrics    *Metrics `json:"metrics,omitempty"`
}

// ParsePayload decodes and validates one job envelope.
func ParsePayload(data []byte) (*Payload, error) {
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}

	if p.Task == "" {
		return nil, fmt.Errorf("%w: missing task", ErrInvalidPayload)
	}
	if p.InputPath == "" {
		return nil, fmt.Errorf("%w: missing input_path", ErrInvalidPayload)
	}
	if p.OutputPath == "" {
		return nil, fmt.Errorf("%w: missing output_path", ErrInvalidPayload)
	}

	return &p, nil
}

// Failure builds an error result. The job's exit status follows Success, so
// failures must never carry metrics that could be mistaken for output.
func Failure(err error) *Result {
	return &Result{Success: false, Message: err.Error()}
}
