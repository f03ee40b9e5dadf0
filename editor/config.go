package editor

import (
	"log/slog"

	"github.com/iw2rmb/desync/buffer"
)

// Config configures an Editor and its Model.
type Config struct {
	// Text seeds the buffer when no document is bound.
	Text string

	// ClampMode decides how remote offsets outside the local document are
	// handled. The zero value is buffer.OffsetError; DefaultConfig clamps.
	ClampMode buffer.OffsetClampMode

	Hooks  Hooks
	Logger *slog.Logger

	// Rendering options.
	ShowLineNums bool
	Style        Style
	KeyMap       KeyMap
}

// DefaultConfig clamps out-of-range remote offsets, shows line numbers and
// uses the default style and key map.
func DefaultConfig() Config {
	return Config{
		ClampMode:    buffer.OffsetClamp,
		ShowLineNums: true,
		Style:        DefaultStyle(),
		KeyMap:       DefaultKeyMap(),
	}
}
