// Package storage reads and writes the per-run diagnostics directories.
//
// Each run lives in <base>/<run-id>/ and holds metadata.json plus the CSV
// files appended while the simulation steps.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"
)

const (
	MetadataFile  = "metadata.json"
	ParticlesFile = "particles.csv"
	SpectrumFile  = "spectrum.csv"
)

var ErrNoData = errors.New("storage: no data")

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) RunDir(runID string) string {
	return filepath.Join(s.baseDir, runID)
}

type RunMetadata struct {
	ID           string    `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	TimeStep     float64   `json:"timeStep"`
	Duration     float64   `json:"duration"`
	Solver       string    `json:"solver"`
	Relativistic bool      `json:"relativistic"`
	Boundary     string    `json:"boundary"`
	Particles    int       `json:"particles"`
	GridCells    [3]int    `json:"gridCells"`
	SampleStep   int       `json:"sampleStep,omitempty"`
	SpectrumStep int       `json:"spectrumStep,omitempty"`
}

// WriteMetadata creates the run directory and writes meta into it.
func (s *Store) WriteMetadata(meta RunMetadata) error {
	dir := s.RunDir(meta.ID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	f, err := os.Create(filepath.Join(dir, MetadataFile))
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// List returns the metadata of every run, oldest first. Directories
// without readable metadata are skipped.
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
	slices.SortFunc(runs, func(a, b RunMetadata) int { return a.Timestamp.Compare(b.Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.RunDir(runID), MetadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("storage: %s: %w", runID, err)
	}
	return &meta, nil
}

// Sample is one particle row of particles.csv.
type Sample struct {
	Step int
	Time float64
	ID   int
	Pos  [3]float64
	Vel  [3]float64
}

// LoadSamples reads every particle sample of a run.
func (s *Store) LoadSamples(runID string) ([]Sample, error) {
	records, err := s.records(runID, ParticlesFile)
	if err != nil {
		return nil, err
	}
	out := make([]Sample, 0, len(records))
	for _, rec := range records {
		if len(rec) < 9 {
			continue
		}
		v, err := parseFloats(rec)
		if err != nil {
			return nil, fmt.Errorf("storage: %s: %w", ParticlesFile, err)
		}
		out = append(out, Sample{
			Step: int(v[0]),
			Time: v[1],
			ID:   int(v[2]),
			Pos:  [3]float64{v[3], v[4], v[5]},
			Vel:  [3]float64{v[6], v[7], v[8]},
		})
	}
	return out, nil
}

// Spectrum holds the charge power spectra of a run, one row per sampled
// step indexed by wave number.
type Spectrum struct {
	Times []float64
	Power [][]float64
}

// Mode returns the power of wave number k over time.
func (sp *Spectrum) Mode(k int) []float64 {
	out := make([]float64, 0, len(sp.Power))
	for _, row := range sp.Power {
		if k < len(row) {
			out = append(out, row[k])
		}
	}
	return out
}

func (s *Store) LoadSpectrum(runID string) (*Spectrum, error) {
	records, err := s.records(runID, SpectrumFile)
	if err != nil {
		return nil, err
	}
	sp := &Spectrum{}
	lastStep := -1
	for _, rec := range records {
		if len(rec) < 4 {
			continue
		}
		v, err := parseFloats(rec)
		if err != nil {
			return nil, fmt.Errorf("storage: %s: %w", SpectrumFile, err)
		}
		if step := int(v[0]); step != lastStep {
			lastStep = step
			sp.Times = append(sp.Times, v[1])
			sp.Power = append(sp.Power, nil)
		}
		last := len(sp.Power) - 1
		sp.Power[last] = append(sp.Power[last], v[3])
	}
	return sp, nil
}

// records returns the rows of a run file without its header.
func (s *Store) records(runID, name string) ([][]string, error) {
	file, err := os.Open(filepath.Join(s.RunDir(runID), name))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1
	if _, err := r.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: %s", ErrNoData, name)
		}
		return nil, err
	}
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoData, name)
	}
	return records, nil
}

func parseFloats(rec []string) ([]float64, error) {
	out := make([]float64, len(rec))
	for i, f := range rec {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
