// Package theme resolves the visitor's light/dark preference into a palette.
package theme

import (
	"context"
	"fmt"

	"github.com/Zachkp/folio/internal/storage"
)

// PreferenceKey is the storage key for the visitor's preference.
const PreferenceKey = "theme"

// Preference is what the visitor chose.
type Preference string

const (
	PreferenceLight  Preference = "light"
	PreferenceDark   Preference = "dark"
	PreferenceSystem Preference = "system"
)

// ParsePreference maps unknown values to PreferenceSystem.
func ParsePreference(s string) Preference {
	switch Preference(s) {
	case PreferenceLight, PreferenceDark:
		return Preference(s)
	default:
		return PreferenceSystem
	}
}

// Next cycles light -> dark -> system -> light.
func (p Preference) Next() Preference {
	switch p {
	case PreferenceLight:
		return PreferenceDark
	case PreferenceDark:
		return PreferenceSystem
	default:
		return PreferenceLight
	}
}

// Resolved is the concrete theme after evaluating preference and system settings.
type Resolved string

const (
	Light Resolved = "light"
	Dark  Resolved = "dark"
)

// Resolve picks the concrete theme. systemDark is the visitor's OS setting.
func Resolve(p Preference, systemDark bool) Resolved {
	switch p {
	case PreferenceLight:
		return Light
	case PreferenceDark:
		return Dark
	}
	if systemDark {
		return Dark
	}
	return Light
}

// Palette maps color token names to CSS colors.
type Palette map[string]string

var palettes = map[Resolved]Palette{
	Light: {
		"background": "#f8fafc",
		"surface":    "#ffffff",
		"text":       "#0f172a",
		"muted":      "#64748b",
		"accent":     "#6366f1",
		"accentText": "#ffffff",
		"border":     "#e2e8f0",
		"userBubble": "#6366f1",
		"botBubble":  "#f1f5f9",
	},
	Dark: {
		"background": "#0b1120",
		"surface":    "#111827",
		"text":       "#e2e8f0",
		"muted":      "#94a3b8",
		"accent":     "#818cf8",
		"accentText": "#0b1120",
		"border":     "#1f2937",
		"userBubble": "#818cf8",
		"botBubble":  "#1e293b",
	},
}

// PaletteFor returns a copy of the palette for r.
func PaletteFor(r Resolved) Palette {
	src, ok := palettes[r]
	if !ok {
		src = palettes[Light]
	}
	out := make(Palette, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

// Provider exposes one resolved theme read-only. It is built per request and
// handed to whatever renders the page.
type Provider struct {
	preference Preference
	resolved   Resolved
	palette    Palette
}

// NewProvider resolves p against the system setting.
func NewProvider(p Preference, systemDark bool) Provider {
	r := Resolve(p, systemDark)
	return Provider{preference: p, resolved: r, palette: PaletteFor(r)}
}

// Name returns the resolved theme.
func (p Provider) Name() Resolved { return p.resolved }

// Preference returns what the visitor chose.
func (p Provider) Preference() Preference { return p.preference }

// IsDark reports whether the dark palette is in use.
func (p Provider) IsDark() bool { return p.resolved == Dark }

// Color returns a token's color, or "" for an unknown token.
func (p Provider) Color(token string) string { return p.palette[token] }

// Palette returns a copy of all tokens.
func (p Provider) Palette() Palette {
	out := make(Palette, len(p.palette))
	for k, v := range p.palette {
		out[k] = v
	}
	return out
}

// LoadPreference reads the stored preference, defaulting to system.
func LoadPreference(ctx context.Context, kv storage.Store) (Preference, error) {
	raw, ok, err := kv.Get(ctx, PreferenceKey)
	if err != nil {
		return PreferenceSystem, fmt.Errorf("reading theme preference: %w", err)
	}
	if !ok {
		return PreferenceSystem, nil
	}
	return ParsePreference(raw), nil
}

// SavePreference stores p.
func SavePreference(ctx context.Context, kv storage.Store, p Preference) error {
	if err := kv.Set(ctx, PreferenceKey, string(p)); err != nil {
		return fmt.Errorf("saving theme preference: %w", err)
	}
	return nil
}
