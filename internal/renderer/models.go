package renderer

import "time"

// CompositionID uniquely identifies a registered composition or still.
type CompositionID string

// Kind distinguishes time-varying compositions from single-frame stills.
type Kind string

const (
	KindStill       Kind = "still"
	KindComposition Kind = "composition"
)

// Extension returns the artifact file extension for the kind, with leading dot.
func (k Kind) Extension() string {
	if k == KindStill {
		return ".png"
	}
	return ".mp4"
}

// ArtifactType returns the listing label for artifacts of this kind.
func (k Kind) ArtifactType() string {
	if k == KindStill {
		return "still"
	}
	return "video"
}

// Codec selects the video encoder for media renders.
type Codec string

const (
	CodecH264   Codec = "h264"
	CodecH265   Codec = "h265"
	CodecProRes Codec = "prores"
)

// Valid reports whether c is a supported codec.
func (c Codec) Valid() bool {
	switch c {
	case CodecH264, CodecH265, CodecProRes:
		return true
	}
	return false
}

// Props is a free-form property bag supplied to a composition.
type Props map[string]any

// CompositionEntry describes one renderable composition or still. Entries are
// built once at startup and never mutated.
type CompositionEntry struct {
	ID     CompositionID
	Kind   Kind
	Width  int
	Height int

	// FPS and DurationInFrames are set only for Kind == KindComposition.
	FPS              int
	DurationInFrames int

	DefaultProps Props
}

// RenderRequest is the input payload for video and still render calls.
// This also matches the JSON body of POST /render/video and /render/still.
type RenderRequest struct {
	CompositionID string `json:"compositionId"`
	InputProps    Props  `json:"inputProps"`
	UseCache      bool   `json:"compositionCache"`
	Codec         Codec  `json:"codec"`
}

// RenderOutcome reports the artifact produced (or reused) for a render request.
type RenderOutcome struct {
	Filename string
	Cached   bool
}

// ArtifactRecord describes one file in the artifact store. All fields are
// derived from the filename and filesystem metadata.
type ArtifactRecord struct {
	CompositionID CompositionID `json:"-"`
	Filename      string        `json:"filename"`
	SizeBytes     int64         `json:"size"`
	CreatedAt     time.Time     `json:"created"`
	ModifiedAt    time.Time     `json:"modified"`
	Type          string        `json:"type"`
}
