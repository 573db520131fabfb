package ciphflow

// ControlFlow is returned by a ProgressFunc to tell the pipeline whether to
// keep going, implementing cooperative cancellation.
type ControlFlow uint8

const (
	// Continue keeps the transform running.
	Continue ControlFlow = iota
	// Stop cancels the transform; Pipeline.Process returns ErrCancelled.
	Stop
)

// ProgressFunc is called once per Pipeline.Process call, after the whole
// buffered message has been transformed and before anything is written to
// output; there are no per-block or per-chunk calls. bytesDone and
// totalBytes are both set to the ciphertext length.
type ProgressFunc func(bytesDone, totalBytes int64) ControlFlow
