package store

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"

	"github.com/san-kum/pinnlab/internal/dataset"
	"github.com/san-kum/pinnlab/internal/evaluate"
)

type ExportData struct {
	Run          RunMetadata           `json:"run"`
	Cutoff       float64               `json:"cutoff"`
	Times        []float64             `json:"times"`
	Truth        Series                `json:"truth"`
	Plain        Series                `json:"plain"`
	PINN         Series                `json:"pinn"`
	Observations []dataset.Observation `json:"observations"`
}

// Series is a prediction column. NaN and infinities encode as null, which
// decodes back to NaN.
type Series []float64

func (s Series) MarshalJSON() ([]byte, error) {
	out := make([]*float64, len(s))
	for i := range s {
		if !math.IsNaN(s[i]) && !math.IsInf(s[i], 0) {
			out[i] = &s[i]
		}
	}
	return json.Marshal(out)
}

func (s *Series) UnmarshalJSON(data []byte) error {
	var in []*float64
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*s = make(Series, len(in))
	for i, v := range in {
		if v == nil {
			(*s)[i] = math.NaN()
			continue
		}
		(*s)[i] = *v
	}
	return nil
}

// WritePredictionsCSV writes t, truth, plain, pinn rows with a header.
func WritePredictionsCSV(w io.Writer, r *evaluate.Report) error {
	if len(r.Truth) != len(r.Grid) || len(r.Plain) != len(r.Grid) || len(r.PINN) != len(r.Grid) {
		return fmt.Errorf("report columns disagree: grid %d truth %d plain %d pinn %d",
			len(r.Grid), len(r.Truth), len(r.Plain), len(r.PINN))
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"t", "truth", "plain", "pinn"}); err != nil {
		return err
	}
	for i, t := range r.Grid {
		row := []string{formatFloat(t), formatFloat(r.Truth[i]), formatFloat(r.Plain[i]), formatFloat(r.PINN[i])}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportJSON writes a stored run with its predictions as indented JSON.
func (s *Store) ExportJSON(w io.Writer, runID string) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	r, err := s.LoadPredictions(runID)
	if err != nil {
		return err
	}
	obs, err := s.LoadObservations(runID)
	if err != nil {
		return err
	}

	data := ExportData{
		Run:          *meta,
		Cutoff:       r.Cutoff,
		Times:        r.Grid,
		Truth:        r.Truth,
		Plain:        r.Plain,
		PINN:         r.PINN,
		Observations: obs,
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

// ExportCSV writes the predictions of a stored run.
func (s *Store) ExportCSV(w io.Writer, runID string) error {
	r, err := s.LoadPredictions(runID)
	if err != nil {
		return err
	}
	return WritePredictionsCSV(w, r)
}
