package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	d := Default()
	require.NoError(t, d.Validate())
	assert.Equal(t, []float64{100, 250, 500, 1000}, d.Skills.Curve)
	assert.Equal(t, 3, d.Actions.MaxReplans)
	assert.Equal(t, 0.25, d.Invention.PenaltyFraction)
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	got, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), got)
}

func TestParseOverlaysDefaults(t *testing.T) {
	got, err := Parse([]byte(`
needs:
  hunger_decay: 0.01
decision:
  weights:
    wander: 2.0
world:
  radius: 6
`))
	require.NoError(t, err)

	assert.Equal(t, 0.01, got.Needs.HungerDecay)
	assert.Equal(t, Default().Needs.ThirstDecay, got.Needs.ThirstDecay)
	assert.Equal(t, 2.0, got.Decision.Weight("wander"))
	assert.Equal(t, Default().Decision.Weight("eat"), got.Decision.Weight("eat"))
	assert.Equal(t, 6, got.World.Radius)
}

func TestParseRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"negative tick", "tick_seconds: -1"},
		{"flat curve", "skills: {curve: [100, 100]}"},
		{"penalty destroys stock", "invention: {penalty_fraction: 1.0}"},
		{"critical out of range", "needs: {critical: 1.5}"},
		{"malformed yaml", "needs: [nope"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	require.NoError(t, os.WriteFile(path, []byte("season_length: 1200\n"), 0o644))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1200.0, got.SeasonLength)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestSeasonWraps(t *testing.T) {
	d := Default()
	assert.Equal(t, "spring", d.Season(0).Name)
	assert.Equal(t, "winter", d.Season(3).Name)
	assert.Equal(t, "spring", d.Season(4).Name)
}

func TestGenConfigCarriesWorldTuning(t *testing.T) {
	d := Default()
	cfg := d.GenConfig(7)
	assert.Equal(t, int64(7), cfg.Seed)
	assert.Equal(t, d.World.Radius, cfg.Radius)
	assert.Equal(t, d.World.Food, cfg.Food)
}
