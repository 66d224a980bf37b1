package theme

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zachkp/folio/internal/storage"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		pref       Preference
		systemDark bool
		want       Resolved
	}{
		{PreferenceLight, true, Light},
		{PreferenceDark, false, Dark},
		{PreferenceSystem, true, Dark},
		{PreferenceSystem, false, Light},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Resolve(tt.pref, tt.systemDark), "%s/%v", tt.pref, tt.systemDark)
	}
}

func TestPreferenceCycle(t *testing.T) {
	assert.Equal(t, PreferenceDark, PreferenceLight.Next())
	assert.Equal(t, PreferenceSystem, PreferenceDark.Next())
	assert.Equal(t, PreferenceLight, PreferenceSystem.Next())
	assert.Equal(t, PreferenceSystem, ParsePreference("purple"))
}

func TestProviderIsReadOnly(t *testing.T) {
	p := NewProvider(PreferenceDark, false)
	assert.True(t, p.IsDark())
	assert.Equal(t, "#818cf8", p.Color("accent"))
	assert.Empty(t, p.Color("nope"))

	palette := p.Palette()
	palette["accent"] = "#000000"
	assert.Equal(t, "#818cf8", p.Color("accent"))
	assert.Equal(t, "#818cf8", PaletteFor(Dark)["accent"])
}

func TestPreferencePersistence(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryStore()

	pref, err := LoadPreference(ctx, kv)
	require.NoError(t, err)
	assert.Equal(t, PreferenceSystem, pref)

	require.NoError(t, SavePreference(ctx, kv, PreferenceDark))
	pref, err = LoadPreference(ctx, kv)
	require.NoError(t, err)
	assert.Equal(t, PreferenceDark, pref)
}
