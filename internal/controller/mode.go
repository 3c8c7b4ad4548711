package controller

import (
	"errors"
	"fmt"
)

// Mode is the interaction discipline governing map clicks.
type Mode string

const (
	ModeDraw        Mode = "draw"
	ModePlaceMarker Mode = "placeMarker"
)

// ErrInvalidMode is returned for an unknown mode name.
var ErrInvalidMode = errors.New("invalid mode")

// Modes lists every mode in display order.
var Modes = []Mode{ModeDraw, ModePlaceMarker}

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeDraw, ModePlaceMarker:
		return m, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
}

// Label is the button caption for m.
func (m Mode) Label() string {
	switch m {
	case ModeDraw:
		return "Draw Polygon"
	case ModePlaceMarker:
		return "Place Marker"
	}
	return string(m)
}

// interaction is the name of the only interaction attached in mode m.
func (m Mode) interaction() string {
	if m == ModePlaceMarker {
		return "translate"
	}
	return "draw"
}
