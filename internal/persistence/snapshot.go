package persistence

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"

	"github.com/talgya/homestead/internal/agents"
	"github.com/talgya/homestead/internal/engine"
	"github.com/talgya/homestead/internal/world"
)

// SnapshotVersion is the on-disk format version.
const SnapshotVersion = 1

// ErrCorruptedSaveState means a snapshot could not be read back into a
// valid world. Callers fall back to generating a fresh one.
var ErrCorruptedSaveState = errors.New("corrupted save state")

// Header identifies a snapshot without decoding the world.
type Header struct {
	Version int       `json:"version"`
	WorldID string    `json:"world_id"`
	Tick    uint64    `json:"tick"`
	Created time.Time `json:"created"`
}

// WorldRecord is the persisted world. Terrain is not stored: it is
// regenerated from Gen.
type WorldRecord struct {
	ID          uuid.UUID                `json:"id"`
	Gen         world.GenConfig          `json:"gen"`
	Tick        uint64                   `json:"tick"`
	Season      int                      `json:"season"`
	SeasonTimer float64                  `json:"season_timer"`
	Nodes       []world.ResourceNode     `json:"nodes"`
	Structures  []world.Structure        `json:"structures"`
	Agents      []agents.Record          `json:"agents"`
	NextAgentID agents.AgentID           `json:"next_agent_id"`
	SpawnPoints []world.HexCoord         `json:"spawn_points"`
	Counts      map[agents.EventKind]int `json:"event_counts"`
}

type snapshotFile struct {
	Header Header      `json:"header"`
	World  WorldRecord `json:"world"`
}

// Capture copies the persistent state of sim.
func Capture(sim *engine.Simulation) WorldRecord {
	ex := sim.Export()
	return WorldRecord{
		ID:          ex.ID,
		Gen:         ex.Gen,
		Tick:        ex.Tick,
		Season:      ex.Season,
		SeasonTimer: ex.SeasonTimer,
		Nodes:       ex.Nodes,
		Structures:  ex.Structures,
		Agents:      ex.Agents,
		NextAgentID: ex.NextAgentID,
		SpawnPoints: ex.SpawnPoints,
		Counts:      ex.Counts,
	}
}

// Restore rebuilds a simulation from rec. Every agent resumes Idle and is
// re-linked to the rebuilt world. Nothing is built unless the whole record
// is valid.
func Restore(rec WorldRecord, cfg engine.Config) (*engine.Simulation, error) {
	if err := validateRecord(rec, cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptedSaveState, err)
	}
	rules := agents.NewRules(cfg.Tuning, cfg.Catalog)

	st := engine.State{
		ID:          rec.ID,
		Gen:         rec.Gen,
		Tick:        rec.Tick,
		Season:      rec.Season,
		SeasonTimer: rec.SeasonTimer,
		Structures:  rec.Structures,
		NextAgentID: rec.NextAgentID,
		SpawnPoints: rec.SpawnPoints,
		Counts:      rec.Counts,
	}
	for i := range rec.Nodes {
		n := rec.Nodes[i]
		st.Nodes = append(st.Nodes, &n)
	}
	for _, r := range rec.Agents {
		a, err := agents.FromRecord(r, rules)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorruptedSaveState, err)
		}
		st.Agents = append(st.Agents, a)
	}

	sim, err := engine.New(cfg, st)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptedSaveState, err)
	}
	return sim, nil
}

func validateRecord(rec WorldRecord, cfg engine.Config) error {
	if cfg.Catalog == nil {
		return errors.New("no catalog")
	}
	if rec.Gen.Radius <= 0 {
		return fmt.Errorf("world radius %d", rec.Gen.Radius)
	}
	if n := len(cfg.Tuning.Seasons); n > 0 && (rec.Season < 0 || rec.Season >= n) {
		return fmt.Errorf("season index %d of %d", rec.Season, n)
	}
	if rec.SeasonTimer < 0 {
		return fmt.Errorf("season timer %v", rec.SeasonTimer)
	}
	if rec.NextAgentID < 1 {
		return fmt.Errorf("next agent id %d", rec.NextAgentID)
	}
	for _, n := range rec.Nodes {
		if n.Quantity < 0 || n.Quantity > n.Max || n.Regen < 0 {
			return fmt.Errorf("resource node %d quantity %v of %v", n.ID, n.Quantity, n.Max)
		}
	}
	for _, r := range rec.Agents {
		if r.ID >= rec.NextAgentID {
			return fmt.Errorf("agent %d not below next id %d", r.ID, rec.NextAgentID)
		}
	}
	return nil
}

// WriteSnapshot saves rec to path. The file is written beside path and
// renamed into place, so a reader sees either the old snapshot or the new
// one. Returns the compressed size.
func WriteSnapshot(path string, rec WorldRecord) (int64, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, err
	}
	f, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return 0, err
	}
	tmp := f.Name()
	committed := false
	defer func() {
		if !committed {
			f.Close()
			os.Remove(tmp)
		}
	}()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return 0, err
	}
	bw := bufio.NewWriterSize(enc, 256*1024)
	doc := snapshotFile{
		Header: Header{
			Version: SnapshotVersion,
			WorldID: rec.ID.String(),
			Tick:    rec.Tick,
			Created: time.Now().UTC(),
		},
		World: rec,
	}
	if err := json.NewEncoder(bw).Encode(&doc); err != nil {
		enc.Close()
		return 0, fmt.Errorf("encode snapshot: %w", err)
	}
	if err := bw.Flush(); err != nil {
		enc.Close()
		return 0, err
	}
	if err := enc.Close(); err != nil {
		return 0, err
	}
	if err := f.Sync(); err != nil {
		return 0, err
	}
	info, err := f.Stat()
	if err != nil {
		return 0, err
	}
	if err := f.Close(); err != nil {
		return 0, err
	}
	if err := os.Rename(tmp, path); err != nil {
		return 0, err
	}
	committed = true
	return info.Size(), nil
}

// ReadSnapshot loads the world record at path. A missing file is reported
// as fs.ErrNotExist; anything unreadable is ErrCorruptedSaveState.
func ReadSnapshot(path string) (WorldRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return WorldRecord{}, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return WorldRecord{}, fmt.Errorf("%w: %w", ErrCorruptedSaveState, err)
	}
	defer dec.Close()

	var doc snapshotFile
	if err := json.NewDecoder(bufio.NewReaderSize(dec, 256*1024)).Decode(&doc); err != nil {
		return WorldRecord{}, fmt.Errorf("%w: decode: %w", ErrCorruptedSaveState, err)
	}
	if doc.Header.Version != SnapshotVersion {
		return WorldRecord{}, fmt.Errorf("%w: format version %d", ErrCorruptedSaveState, doc.Header.Version)
	}
	if doc.Header.WorldID != doc.World.ID.String() || doc.Header.Tick != doc.World.Tick {
		return WorldRecord{}, fmt.Errorf("%w: header does not match world", ErrCorruptedSaveState)
	}
	return doc.World, nil
}

// Save captures sim and writes it to path.
func Save(path string, sim *engine.Simulation) error {
	rec := Capture(sim)
	size, err := WriteSnapshot(path, rec)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	slog.Info("world saved",
		"path", path,
		"tick", rec.Tick,
		"agents", len(rec.Agents),
		"size", humanize.Bytes(uint64(size)),
	)
	return nil
}

// Load reads and restores the snapshot at path.
func Load(path string, cfg engine.Config) (*engine.Simulation, error) {
	rec, err := ReadSnapshot(path)
	if err != nil {
		return nil, err
	}
	sim, err := Restore(rec, cfg)
	if err != nil {
		return nil, err
	}
	slog.Info("world loaded",
		"path", path,
		"id", rec.ID,
		"tick", rec.Tick,
		"time", engine.SimTime(rec.Tick),
		"agents", humanize.Comma(int64(len(rec.Agents))),
	)
	return sim, nil
}
