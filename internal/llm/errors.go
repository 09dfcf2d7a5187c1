package llm

import "errors"

var (
	// ErrRuntimeUnavailable indicates the model runtime could not be
	// reached or refused the request.
	ErrRuntimeUnavailable = errors.New("llm: runtime unavailable")

	// ErrModelNotFound indicates the requested model is not installed
	// on the runtime.
	ErrModelNotFound = errors.New("llm: model not found")

	// ErrGenerationTimeout indicates generation exceeded its deadline.
	ErrGenerationTimeout = errors.New("llm: generation timed out")
)
