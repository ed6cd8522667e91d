package persistence

import (
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/homestead/internal/agents"
	"github.com/talgya/homestead/internal/catalog"
	"github.com/talgya/homestead/internal/config"
	"github.com/talgya/homestead/internal/engine"
	"github.com/talgya/homestead/internal/entropy"
)

func smallTuning() config.Tuning {
	t := config.Default()
	t.World.Radius = 6
	t.World.InitialAgents = 5
	t.World.MinPopulation = 2
	t.World.Food.Count = 10
	t.World.Wood.Count = 6
	t.World.Stone.Count = 4
	return t
}

func engineConfig(t config.Tuning, seed int64) engine.Config {
	return engine.Config{Tuning: t, Catalog: catalog.MustDefault(), Rand: entropy.NewSeeded(seed)}
}

func runWorld(t *testing.T, ticks uint64) *engine.Simulation {
	t.Helper()
	sim, err := engine.Generate(engineConfig(smallTuning(), 3), 3)
	require.NoError(t, err)
	for tick := uint64(1); tick <= ticks; tick++ {
		sim.Step(tick)
	}
	return sim
}

// ---------------------------------------------------------------------------
// Snapshots
// ---------------------------------------------------------------------------

func TestSnapshotRoundTrip(t *testing.T) {
	sim := runWorld(t, 400)
	before := sim.Export()
	path := filepath.Join(t.TempDir(), "world.snap")
	require.NoError(t, Save(path, sim))

	tuning := smallTuning()
	tuning.World.MinPopulation = 100
	loaded, err := Load(path, engineConfig(tuning, 99))
	require.NoError(t, err)

	after := loaded.Export()
	assert.Equal(t, before.ID, after.ID)
	assert.Equal(t, before.Tick, after.Tick)
	assert.Equal(t, before.Season, after.Season)
	assert.Equal(t, before.SeasonTimer, after.SeasonTimer)
	assert.Equal(t, before.NextAgentID, after.NextAgentID)
	assert.Equal(t, before.Agents, after.Agents)
	assert.Equal(t, before.Nodes, after.Nodes)
	assert.Equal(t, before.Counts, after.Counts)

	for _, a := range loaded.Agents() {
		assert.Equal(t, "idle", a.State, "agent %d", a.ID)
	}

	known := map[agents.AgentID]bool{}
	for _, r := range before.Agents {
		known[r.ID] = true
	}
	loaded.TickDay(before.Tick + 1)
	for _, a := range loaded.Agents() {
		if !known[a.ID] {
			assert.GreaterOrEqual(t, a.ID, before.NextAgentID)
			return
		}
	}
	t.Fatal("no immigrant spawned after load")
}

func TestTruncatedSnapshotIsCorrupted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "world.snap")
	require.NoError(t, Save(path, runWorld(t, 10)))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, raw[:len(raw)/2], 0o644))

	_, err = ReadSnapshot(path)
	assert.ErrorIs(t, err, ErrCorruptedSaveState)

	require.NoError(t, os.WriteFile(path, []byte("not a snapshot"), 0o644))
	_, err = Load(path, engineConfig(smallTuning(), 1))
	assert.ErrorIs(t, err, ErrCorruptedSaveState)
}

func TestMissingSnapshotIsNotCorrupted(t *testing.T) {
	_, err := ReadSnapshot(filepath.Join(t.TempDir(), "absent.snap"))
	assert.ErrorIs(t, err, fs.ErrNotExist)
	assert.NotErrorIs(t, err, ErrCorruptedSaveState)
}

func TestFailedWriteKeepsPreviousSnapshot(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "world.snap")
	rec := Capture(runWorld(t, 10))
	_, err := WriteSnapshot(path, rec)
	require.NoError(t, err)

	bad := rec
	bad.SeasonTimer = math.NaN()
	_, err = WriteSnapshot(path, bad)
	require.Error(t, err)

	got, err := ReadSnapshot(path)
	require.NoError(t, err)
	assert.Equal(t, rec.Tick, got.Tick)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file left behind")
}

func TestRestoreRejectsInvalidRecords(t *testing.T) {
	rec := Capture(runWorld(t, 5))
	cfg := engineConfig(smallTuning(), 1)

	cases := map[string]func(r *WorldRecord){
		"season out of range": func(r *WorldRecord) { r.Season = 9 },
		"negative timer":      func(r *WorldRecord) { r.SeasonTimer = -1 },
		"id counter behind":   func(r *WorldRecord) { r.NextAgentID = r.Agents[0].ID },
		"overfull node":       func(r *WorldRecord) { r.Nodes[0].Quantity = r.Nodes[0].Max + 1 },
		"need out of range":   func(r *WorldRecord) { r.Agents[0].Needs.Hunger = 2 },
		"unknown recipe":      func(r *WorldRecord) { r.Agents[0].Recipes = []catalog.RecipeID{"perpetual_motion"} },
		"zero radius":         func(r *WorldRecord) { r.Gen.Radius = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			r := rec
			r.Nodes = append(r.Nodes[:0:0], rec.Nodes...)
			r.Agents = append(r.Agents[:0:0], rec.Agents...)
			mutate(&r)
			_, err := Restore(r, cfg)
			assert.ErrorIs(t, err, ErrCorruptedSaveState)
		})
	}
}

// ---------------------------------------------------------------------------
// Archive
// ---------------------------------------------------------------------------

func openDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "archive.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestEventArchive(t *testing.T) {
	db := openDB(t)
	events := []engine.Event{
		{ID: "01A", Tick: 5, Kind: agents.EventBorn, Category: "birth", Agent: 1, Description: "Ada arrived"},
		{ID: "01B", Tick: 9, Kind: agents.EventTraded, Category: "trade", Agent: 2, Other: 1, Description: "traded"},
		{ID: "01C", Tick: 12, Kind: agents.EventCrafted, Category: "craft", Agent: 3, Description: "crafted"},
	}
	require.NoError(t, db.SaveEvents(events))
	require.NoError(t, db.SaveEvents(events[:1]), "re-archiving is a no-op")

	got, err := db.RecentEvents(2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, events[2], got[0])
	assert.Equal(t, events[1], got[1])

	mine, err := db.AgentEvents(1, 10)
	require.NoError(t, err)
	assert.Len(t, mine, 2)
}

func TestMetaAndStatsHistory(t *testing.T) {
	db := openDB(t)
	require.NoError(t, db.SaveMeta("last_tick", "3000"))
	require.NoError(t, db.SaveMeta("last_tick", "4000"))
	v, err := db.GetMeta("last_tick")
	require.NoError(t, err)
	assert.Equal(t, "4000", v)

	for day := uint64(1); day <= 4; day++ {
		require.NoError(t, db.SaveDailyStats(engine.Stats{
			Tick: day * engine.TicksPerSimDay, Day: day, Season: "spring",
			Population: int(day), AvgHealth: 0.5, KnownRecipes: 2,
		}))
	}
	hist, err := db.StatsHistory(3)
	require.NoError(t, err)
	require.Len(t, hist, 3)
	assert.Equal(t, uint64(2), hist[0].Day)
	assert.Equal(t, uint64(4), hist[2].Day)
	assert.Equal(t, 2, hist[2].KnownRecipes)
	assert.Equal(t, 4, hist[2].Population)
}
