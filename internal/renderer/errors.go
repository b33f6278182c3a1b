package renderer

import "errors"

var (
	// ErrValidation is returned for malformed request bodies and property
	// bags whose recognized keys fail the type check.
	ErrValidation = errors.New("invalid request")

	// ErrUnknownComposition is returned when a compositionId does not match
	// any registry entry.
	ErrUnknownComposition = errors.New("unknown composition")

	// ErrInvalidImageEncoding is returned when an uploaded payload is not a
	// well-formed base64 image data URI.
	ErrInvalidImageEncoding = errors.New("invalid base64 image format")

	// ErrBundleBuildFailed is returned when compiling the composition bundle
	// fails. The failure is not memoized; a later request retries the build.
	ErrBundleBuildFailed = errors.New("bundle build failed")

	// ErrRenderFailed is returned when the external renderer reports an error.
	ErrRenderFailed = errors.New("render failed")

	// ErrRenderTimeout is returned when a render exceeds the configured
	// deadline. Distinct from ErrRenderFailed so callers can tell a slow
	// render from a broken one.
	ErrRenderTimeout = errors.New("render timed out")

	// ErrArtifactNotFound is returned when deleting a file that does not
	// exist in the artifact store.
	ErrArtifactNotFound = errors.New("artifact not found")
)
