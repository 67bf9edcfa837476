package store

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/san-kum/pinnlab/internal/dataset"
	"github.com/san-kum/pinnlab/internal/decay"
	"github.com/san-kum/pinnlab/internal/evaluate"
	"github.com/san-kum/pinnlab/internal/nn"
	"github.com/san-kum/pinnlab/internal/train"
)

var ErrNotFound = errors.New("run not found")

const (
	metadataFile     = "metadata.json"
	predictionsFile  = "predictions.csv"
	observationsFile = "observations.csv"
	catalogFile      = "catalog.db"
)

// Store keeps one directory per run under baseDir and indexes the runs in a
// SQLite catalog next to them.
type Store struct {
	baseDir string
	catalog *Catalog
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	if err := os.MkdirAll(s.baseDir, 0755); err != nil {
		return err
	}
	if s.catalog != nil {
		return nil
	}
	c, err := OpenCatalog(filepath.Join(s.baseDir, catalogFile))
	if err != nil {
		return err
	}
	s.catalog = c
	return nil
}

func (s *Store) Close() error {
	if s.catalog == nil {
		return nil
	}
	err := s.catalog.Close()
	s.catalog = nil
	return err
}

func (s *Store) Catalog() *Catalog { return s.catalog }

type RunMetadata struct {
	ID         string             `json:"id"`
	Preset     string             `json:"preset"`
	Timestamp  time.Time          `json:"timestamp"`
	Seed       int64              `json:"seed"`
	Law        decay.Law          `json:"law"`
	Data       dataset.Config     `json:"data"`
	Train      train.Config       `json:"train"`
	Integrator string             `json:"integrator"`
	Output     string             `json:"output,omitempty"`
	Elapsed    map[string]float64 `json:"elapsed_seconds"`
	Metrics    map[string]float64 `json:"metrics"`
	// Diverged lists models whose parameters were non-finite; they have no
	// checkpoint.
	Diverged []train.Kind `json:"diverged,omitempty"`
}

// Run is everything a finished comparison produces.
type Run struct {
	Meta         RunMetadata
	Report       *evaluate.Report
	Observations []dataset.Observation
	Plain        *nn.Network
	PINN         *nn.Network
	History      map[train.Kind][]train.Loss
}

// NewRunID builds ids of the form <preset>_<unix>_<uuid8>.
func NewRunID(preset string, now time.Time) string {
	if preset == "" {
		preset = "run"
	}
	return fmt.Sprintf("%s_%d_%s", preset, now.Unix(), uuid.NewString()[:8])
}

// Save writes the run directory and records the run in the catalog. It
// assigns an id and timestamp when the metadata has none. The catalog is
// written last; on any failure the run directory is removed, so a run is
// either fully stored or absent.
func (s *Store) Save(ctx context.Context, run *Run) (string, error) {
	if err := s.Init(); err != nil {
		return "", err
	}

	meta := run.Meta
	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now()
	}
	if meta.ID == "" {
		meta.ID = NewRunID(meta.Preset, meta.Timestamp)
	}
	meta.Metrics = finite(meta.Metrics)
	meta.Diverged = nil
	nets := make(map[train.Kind]*nn.Network, 2)
	for kind, net := range map[train.Kind]*nn.Network{train.Plain: run.Plain, train.Physics: run.PINN} {
		if net == nil {
			continue
		}
		if !net.IsFinite() {
			meta.Diverged = append(meta.Diverged, kind)
			continue
		}
		nets[kind] = net
	}
	sort.Slice(meta.Diverged, func(i, j int) bool { return meta.Diverged[i] < meta.Diverged[j] })

	runDir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}
	if err := s.writeRun(ctx, runDir, meta, run, nets); err != nil {
		_ = os.RemoveAll(runDir)
		return "", err
	}

	run.Meta = meta
	return meta.ID, nil
}

func (s *Store) writeRun(ctx context.Context, runDir string, meta RunMetadata, run *Run, nets map[train.Kind]*nn.Network) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if run.Report != nil {
		if err := writePredictions(filepath.Join(runDir, predictionsFile), run.Report); err != nil {
			return err
		}
	}
	if err := writeObservations(filepath.Join(runDir, observationsFile), run.Observations); err != nil {
		return err
	}
	for kind, net := range nets {
		if err := nn.SaveFile(filepath.Join(runDir, string(kind)+".json"), net); err != nil {
			return fmt.Errorf("checkpoint %s: %w", kind, err)
		}
	}
	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return err
	}
	return s.catalog.Record(ctx, meta, run.History)
}

// List reads every run directory, newest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.After(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, runID)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("decode %s: %w", runID, err)
	}
	return &meta, nil
}

// LoadPredictions rebuilds the evaluation report of a stored run.
func (s *Store) LoadPredictions(runID string) (*evaluate.Report, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, err
	}
	rows, err := readCSV(filepath.Join(s.baseDir, runID, predictionsFile), 4)
	if err != nil {
		return nil, err
	}

	r := &evaluate.Report{Cutoff: meta.Data.Cutoff}
	for _, row := range rows {
		r.Grid = append(r.Grid, row[0])
		r.Truth = append(r.Truth, row[1])
		r.Plain = append(r.Plain, row[2])
		r.PINN = append(r.PINN, row[3])
	}
	return r, nil
}

func (s *Store) LoadObservations(runID string) ([]dataset.Observation, error) {
	rows, err := readCSV(filepath.Join(s.baseDir, runID, observationsFile), 2)
	if err != nil {
		return nil, err
	}
	obs := make([]dataset.Observation, len(rows))
	for i, row := range rows {
		obs[i] = dataset.Observation{T: row[0], A: row[1]}
	}
	return obs, nil
}

// LoadNetwork reads the checkpoint of one model.
func (s *Store) LoadNetwork(runID string, kind train.Kind) (*nn.Network, error) {
	path := filepath.Join(s.baseDir, runID, string(kind)+".json")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s has no %s checkpoint", ErrNotFound, runID, kind)
	}
	return nn.LoadFile(path)
}

// History returns the recorded loss curve of one model of a run.
func (s *Store) History(ctx context.Context, runID string, kind train.Kind) ([]train.Loss, error) {
	if err := s.Init(); err != nil {
		return nil, err
	}
	return s.catalog.History(ctx, runID, kind)
}

// finite drops values JSON cannot encode.
func finite(m map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out[k] = v
		}
	}
	return out
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func writePredictions(path string, r *evaluate.Report) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return WritePredictionsCSV(f, r)
}

func writeObservations(path string, obs []dataset.Observation) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"t", "a"}); err != nil {
		return err
	}
	for _, o := range obs {
		if err := w.Write([]string{formatFloat(o.T), formatFloat(o.A)}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func readCSV(path string, cols int) ([][]float64, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, filepath.Base(filepath.Dir(path)))
		}
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = cols
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return [][]float64{}, nil
	}

	rows := make([][]float64, 0, len(records)-1)
	for i, record := range records[1:] {
		row := make([]float64, cols)
		for j, field := range record {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("%s line %d: %w", filepath.Base(path), i+2, err)
			}
			row[j] = v
		}
		rows = append(rows, row)
	}
	return rows, nil
}
