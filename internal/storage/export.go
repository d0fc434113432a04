package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/tcompa/Laughlin-Metropolis/internal/metrics"
	"github.com/tcompa/Laughlin-Metropolis/internal/plasma"
	"gopkg.in/yaml.v3"
)

type ExportData struct {
	ID            string                 `json:"id" yaml:"id"`
	N             int                    `json:"n" yaml:"n"`
	Configuration [][2]float64           `json:"configuration" yaml:"configuration"`
	RSq           []float64              `json:"rsq" yaml:"rsq"`
	Histogram     *metrics.HistogramMeta `json:"histogram,omitempty" yaml:"histogram,omitempty"`
	HistCounts    [][]int64              `json:"histogram_counts,omitempty" yaml:"histogram_counts,omitempty"`
	Sessions      []Session              `json:"sessions" yaml:"sessions"`
}

// Collect gathers everything persisted under id.
func Collect(ctx context.Context, st Store, id plasma.RunID) (*ExportData, error) {
	conf, ok, err := st.LoadConfiguration(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", plasma.ErrNoPriorRun, id)
	}

	rsq, err := st.LoadRSq(ctx, id)
	if err != nil {
		return nil, err
	}

	sessions, err := st.Sessions(ctx, id)
	if err != nil {
		return nil, err
	}

	data := &ExportData{
		ID:            string(id),
		N:             len(conf),
		Configuration: make([][2]float64, len(conf)),
		RSq:           rsq,
		Sessions:      sessions,
	}
	for i, z := range conf {
		data.Configuration[i] = [2]float64{real(z), imag(z)}
	}

	h, ok, err := st.LoadHistogram(ctx, id)
	if err != nil {
		return nil, err
	}
	if ok {
		meta := h.Meta
		data.Histogram = &meta
		data.HistCounts = h.Counts
	}
	return data, nil
}

// Export writes the run in the given format ("json" or "yaml").
func Export(ctx context.Context, w io.Writer, st Store, id plasma.RunID, format string) error {
	data, err := Collect(ctx, st, id)
	if err != nil {
		return err
	}

	switch format {
	case "", "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(data); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported export format: %s", format)
	}
}
