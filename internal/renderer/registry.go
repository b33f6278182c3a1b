package renderer

import (
	"fmt"
	"reflect"
)

// Registry holds the static table of renderable compositions, indexed by ID.
// It is built once at startup and read-only afterwards.
type Registry struct {
	entries map[CompositionID]*CompositionEntry
	order   []CompositionID
}

// NewRegistry builds a registry from the given entries. Duplicate IDs are a
// programming error and panic at construction time.
func NewRegistry(entries []CompositionEntry) *Registry {
	r := &Registry{entries: make(map[CompositionID]*CompositionEntry, len(entries))}
	for i := range entries {
		e := entries[i]
		if _, exists := r.entries[e.ID]; exists {
			panic(fmt.Sprintf("renderer: duplicate composition id %q", e.ID))
		}
		r.entries[e.ID] = &e
		r.order = append(r.order, e.ID)
	}
	return r
}

// CompositionInfo is the listing view of a registry entry.
type CompositionInfo struct {
	ID           CompositionID `json:"id"`
	DefaultProps Props         `json:"defaultProps"`
}

// List returns all entries in registration order.
func (r *Registry) List() []CompositionInfo {
	out := make([]CompositionInfo, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, CompositionInfo{ID: id, DefaultProps: r.entries[id].DefaultProps})
	}
	return out
}

// Resolve looks up a composition by ID and merges the supplied props over its
// defaults. Caller-supplied keys win. Keys not present in the defaults are
// passed through unchanged; keys that are present must match the default
// value's type or the request is rejected.
func (r *Registry) Resolve(id string, input Props) (*CompositionEntry, Props, error) {
	entry, ok := r.entries[CompositionID(id)]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownComposition, id)
	}

	effective := make(Props, len(entry.DefaultProps)+len(input))
	for k, v := range entry.DefaultProps {
		effective[k] = v
	}
	for k, v := range input {
		if def, known := entry.DefaultProps[k]; known {
			want, got := propKind(def), propKind(v)
			if want != "unknown" && got != want {
				return nil, nil, fmt.Errorf("%w: prop %q expects %s, got %s", ErrValidation, k, want, got)
			}
		}
		effective[k] = v
	}
	return entry, effective, nil
}

// propKind maps a property value to the coarse type vocabulary used for
// partial validation. JSON numbers always decode to float64, but defaults
// declared as Go ints must compare equal to them.
func propKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case int, int64, float32, float64:
		return "number"
	}
	switch reflect.ValueOf(v).Kind() {
	case reflect.Slice, reflect.Array:
		return "array"
	case reflect.Map:
		return "object"
	}
	return "unknown"
}

// DefaultRegistry returns the process-wide composition table.
func DefaultRegistry() *Registry {
	return NewRegistry([]CompositionEntry{
		{
			ID:     "TitleScreenStill",
			Kind:   KindStill,
			Width:  1920,
			Height: 1080,
			DefaultProps: Props{
				"titleText":  "Title Screen",
				"titleColor": "#000000",
			},
		},
		{
			ID:     "ImageScreen",
			Kind:   KindStill,
			Width:  1920,
			Height: 1080,
			DefaultProps: Props{
				"titleText":   "Image Screen",
				"imageSource": "https://picsum.photos/seed/imagescreen/1200/800",
			},
		},
		{
			ID:     "AvatarScreen",
			Kind:   KindStill,
			Width:  1920,
			Height: 1080,
			DefaultProps: Props{
				"titleText":   "Avatar Screen Left Alignment",
				"imageSource": "avatars/avatar-hand-fold.png",
				"alignment":   "left",
			},
		},
		{
			ID:               "HelloWorld",
			Kind:             KindComposition,
			Width:            1920,
			Height:           1080,
			FPS:              30,
			DurationInFrames: 150,
			DefaultProps: Props{
				"titleText":  "Hello World",
				"titleColor": "#000000",
				"logoColor1": "#91EAE4",
				"logoColor2": "#86A8E7",
			},
		},
		{
			ID:               "OnlyLogo",
			Kind:             KindComposition,
			Width:            1920,
			Height:           1080,
			FPS:              30,
			DurationInFrames: 150,
			DefaultProps: Props{
				"logoColor1": "#91dAE2",
				"logoColor2": "#86A8E7",
			},
		},
		{
			ID:               "TypewriterText",
			Kind:             KindComposition,
			Width:            1920,
			Height:           1080,
			FPS:              30,
			DurationInFrames: 120,
			DefaultProps: Props{
				"text":  "Typewriter Effect",
				"speed": 3,
			},
		},
		{
			ID:               "MasterSequence",
			Kind:             KindComposition,
			Width:            1920,
			Height:           1080,
			FPS:              30,
			DurationInFrames: 130,
			DefaultProps: Props{
				"shots": []any{
					map[string]any{
						"compositionId": "ImageScreen",
						"compositionProps": map[string]any{
							"titleText":   "First Image",
							"imageSource": "https://picsum.photos/seed/first/1200/800",
						},
						"fromFrame":        0,
						"durationInFrames": 40,
					},
					map[string]any{
						"compositionId": "ImageScreen",
						"compositionProps": map[string]any{
							"titleText":   "Second Image",
							"imageSource": "https://picsum.photos/seed/second/1200/800",
						},
						"fromFrame":        0,
						"durationInFrames": 20,
					},
					map[string]any{
						"compositionId": "TitleScreenStill",
						"compositionProps": map[string]any{
							"titleText":  "The End",
							"titleColor": "#000000",
						},
						"fromFrame":        0,
						"durationInFrames": 70,
					},
				},
			},
		},
		{
			ID:               "TitleScreenDotBg",
			Kind:             KindComposition,
			Width:            1920,
			Height:           1080,
			FPS:              30,
			DurationInFrames: 120,
			DefaultProps: Props{
				"titleText":  "Title with Animated Dots",
				"titleColor": "#000000",
			},
		},
		{
			ID:     "TextScreen",
			Kind:   KindStill,
			Width:  1920,
			Height: 1080,
			DefaultProps: Props{
				"titleText":         "Text Screen",
				"longMultiLineText": "This is a start of a paragraph or a bullet list.\n\n- Item 1\n\n- Item 2\n\n- Item 3",
			},
		},
		{
			ID:     "CodeSnippet",
			Kind:   KindStill,
			Width:  1920,
			Height: 1080,
			DefaultProps: Props{
				"titleText": "Code Snippet",
				"code":      "print(\"Hello, World!\")\ndef greet(name):\n    return f\"Hello, {name}!\"\n\nresult = greet(\"Developer\")\nprint(result)",
			},
		},
	})
}
