package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Color is a 24-bit RGB colour.
type Color struct {
	R uint8
	G uint8
	B uint8
}

var (
	ColorBlack = Color{}
	ColorWhite = Color{R: 255, G: 255, B: 255}
	ColorGreen = Color{G: 255}
)

// DefaultPalette is the ordered slot palette. Slot n gets DefaultPalette[n-1].
var DefaultPalette = []Color{
	{R: 255, G: 0, B: 0},
	{R: 0, G: 0, B: 255},
	{R: 0, G: 255, B: 0},
	{R: 255, G: 255, B: 0},
	{R: 255, G: 0, B: 255},
	{R: 0, G: 255, B: 255},
	{R: 255, G: 128, B: 0},
	{R: 128, G: 0, B: 255},
	{R: 255, G: 192, B: 203},
	{R: 255, G: 255, B: 255},
}

// Hex formats the colour as #RRGGBB.
func (c Color) Hex() string {
	return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
}

// Scale returns the colour dimmed to level/255.
func (c Color) Scale(level uint8) Color {
	return Color{
		R: uint8(uint16(c.R) * uint16(level) / 255),
		G: uint8(uint16(c.G) * uint16(level) / 255),
		B: uint8(uint16(c.B) * uint16(level) / 255),
	}
}

// ParseColor parses #RRGGBB (the leading # is optional).
func ParseColor(s string) (Color, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) != 6 {
		return Color{}, fmt.Errorf("invalid colour %q: want #RRGGBB", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("invalid colour %q: %w", s, err)
	}
	return Color{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, nil
}

func (c Color) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Hex())
}

func (c *Color) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseColor(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
