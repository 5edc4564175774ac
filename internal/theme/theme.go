// Package theme serves the named color palette and fonts shared by the screens.
package theme

import (
	"fmt"
	"maps"
	"os"

	"gopkg.in/yaml.v3"
)

// Theme is a palette of named colors plus named fonts.
type Theme struct {
	Colors map[string]string `json:"colors" yaml:"colors"`
	Fonts  map[string]string `json:"fonts"  yaml:"fonts"`
}

// Default returns the built-in palette.
func Default() Theme {
	return Theme{
		Colors: map[string]string{
			"white":                "#fff",
			"lightYellow":          "#FFFFE0",
			"yellow":               "#FFD992",
			"red":                  "#faa3b4ff",
			"purple":               "#c795c3",
			"green":                "#B7E1A1",
			"lightblue":            "#edf6f9ff",
			"blue":                 "#0a84ff",
			"lightGray":            "#F2F2F2",
			"antiqueBronze":        "#8B4000",
			"rust":                 "#B7410E",
			"lightRust":            "#F7F2F1",
			"copper":               "#AD6F69",
			"gray":                 "#D3D3D3",
			"deepGray":             "#9d9898ff",
			"black":                "#000",
			"semiTransparentLight": "rgba(0,0,0,0.3)",
			"semiTransparentDark":  "rgba(0,0,0,0.7)",
		},
		Fonts: map[string]string{
			"anton":     "Anton_400Regular",
			"bangers":   "Bangers_400Regular",
			"lato":      "Lato_400Regular",
			"latoBlack": "Lato_900Black",
		},
	}
}

// Load reads a YAML theme file and lays it over the default palette.
// An empty path returns the default.
func Load(path string) (Theme, error) {
	base := Default()
	if path == "" {
		return base, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Theme{}, fmt.Errorf("failed to read theme file: %w", err)
	}

	var override Theme
	if err = yaml.Unmarshal(data, &override); err != nil {
		return Theme{}, fmt.Errorf("failed to parse theme file: %w", err)
	}

	maps.Copy(base.Colors, override.Colors)
	maps.Copy(base.Fonts, override.Fonts)

	return base, nil
}

// Color returns the named color, or "" when the palette has no such entry.
func (t Theme) Color(name string) string {
	return t.Colors[name]
}
