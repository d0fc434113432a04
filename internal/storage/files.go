package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/tcompa/Laughlin-Metropolis/internal/metrics"
	"github.com/tcompa/Laughlin-Metropolis/internal/plasma"
)

const (
	suffixConfig     = "_config.dat"
	suffixRSq        = "_rsq.dat"
	suffixHist       = "_xy_hist.dat"
	suffixHistParams = "_xy_hist_params.json"
	suffixSessions   = "_sessions.json"
)

var allSuffixes = []string{suffixConfig, suffixRSq, suffixHist, suffixHistParams, suffixSessions}

// FileStore keeps each run as a family of plain-text files named
// data_<id>_<record> inside baseDir, readable by numpy.loadtxt.
type FileStore struct {
	baseDir string
	mu      sync.Mutex
}

func NewFileStore(baseDir string) *FileStore {
	return &FileStore{baseDir: baseDir}
}

func (s *FileStore) Init(_ context.Context) error {
	return os.MkdirAll(s.baseDir, 0755)
}

func (s *FileStore) path(id plasma.RunID, suffix string) string {
	return filepath.Join(s.baseDir, "data_"+string(id)+suffix)
}

func (s *FileStore) Exists(_ context.Context, id plasma.RunID) (bool, error) {
	_, err := os.Stat(s.path(id, suffixConfig))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}

func (s *FileStore) Reset(_ context.Context, id plasma.RunID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, suffix := range allSuffixes {
		if err := os.Remove(s.path(id, suffix)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("reset %s: %w", id, err)
		}
	}
	return nil
}

func (s *FileStore) SaveConfiguration(_ context.Context, id plasma.RunID, c plasma.Configuration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return writeFileAtomic(s.path(id, suffixConfig), func(w io.Writer) error {
		bw := bufio.NewWriter(w)
		for _, z := range c {
			line := formatFloat(real(z)) + " " + formatFloat(imag(z)) + "\n"
			if _, err := bw.WriteString(line); err != nil {
				return err
			}
		}
		return bw.Flush()
	})
}

func (s *FileStore) LoadConfiguration(_ context.Context, id plasma.RunID) (plasma.Configuration, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := readRows(s.path(id, suffixConfig))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}

	c := make(plasma.Configuration, 0, len(rows))
	for k, row := range rows {
		if len(row) != 2 {
			return nil, false, fmt.Errorf("%s line %d: expected 2 columns, got %d", suffixConfig, k+1, len(row))
		}
		x, err := strconv.ParseFloat(row[0], 64)
		if err != nil {
			return nil, false, fmt.Errorf("%s line %d: %w", suffixConfig, k+1, err)
		}
		y, err := strconv.ParseFloat(row[1], 64)
		if err != nil {
			return nil, false, fmt.Errorf("%s line %d: %w", suffixConfig, k+1, err)
		}
		c = append(c, complex(x, y))
	}
	return c, true, nil
}

func (s *FileStore) AppendRSq(_ context.Context, id plasma.RunID, values []float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path(id, suffixRSq), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	for _, v := range values {
		if _, err := bw.WriteString(formatFloat(v) + "\n"); err != nil {
			return err
		}
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	return f.Close()
}

func (s *FileStore) LoadRSq(_ context.Context, id plasma.RunID) ([]float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := readRows(s.path(id, suffixRSq))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []float64{}, nil
		}
		return nil, err
	}

	values := make([]float64, 0, len(rows))
	for k, row := range rows {
		v, err := strconv.ParseFloat(row[0], 64)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", suffixRSq, k+1, err)
		}
		values = append(values, v)
	}
	return values, nil
}

func (s *FileStore) SaveHistogram(_ context.Context, id plasma.RunID, h *metrics.Histogram) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := writeFileAtomic(s.path(id, suffixHist), func(w io.Writer) error {
		bw := bufio.NewWriter(w)
		for _, row := range h.Counts {
			fields := make([]string, len(row))
			for j, v := range row {
				fields[j] = strconv.FormatInt(v, 10)
			}
			if _, err := bw.WriteString(strings.Join(fields, " ") + "\n"); err != nil {
				return err
			}
		}
		return bw.Flush()
	})
	if err != nil {
		return err
	}

	return writeFileAtomic(s.path(id, suffixHistParams), func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(h.Meta)
	})
}

func (s *FileStore) LoadHistogram(_ context.Context, id plasma.RunID) (*metrics.Histogram, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path(id, suffixHistParams))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}

	var meta metrics.HistogramMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, false, fmt.Errorf("%s: %w", suffixHistParams, err)
	}

	rows, err := readRows(s.path(id, suffixHist))
	if err != nil {
		return nil, false, err
	}
	if len(rows) != meta.NBins {
		return nil, false, fmt.Errorf("%s: expected %d rows, got %d", suffixHist, meta.NBins, len(rows))
	}

	h := metrics.NewHistogram(meta)
	for i, row := range rows {
		if len(row) != meta.NBins {
			return nil, false, fmt.Errorf("%s line %d: expected %d columns, got %d", suffixHist, i+1, meta.NBins, len(row))
		}
		for j, field := range row {
			v, err := strconv.ParseInt(field, 10, 64)
			if err != nil {
				return nil, false, fmt.Errorf("%s line %d: %w", suffixHist, i+1, err)
			}
			h.Counts[i][j] = v
		}
	}
	return h, true, nil
}

func (s *FileStore) AppendSession(_ context.Context, id plasma.RunID, session Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions, err := s.readSessions(id)
	if err != nil {
		return err
	}
	sessions = append(sessions, session)

	return writeFileAtomic(s.path(id, suffixSessions), func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(sessions)
	})
}

func (s *FileStore) Sessions(_ context.Context, id plasma.RunID) ([]Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readSessions(id)
}

func (s *FileStore) readSessions(id plasma.RunID) ([]Session, error) {
	data, err := os.ReadFile(s.path(id, suffixSessions))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []Session{}, nil
		}
		return nil, err
	}

	var sessions []Session
	if err := json.Unmarshal(data, &sessions); err != nil {
		return nil, fmt.Errorf("%s: %w", suffixSessions, err)
	}
	return sessions, nil
}

func (s *FileStore) List(_ context.Context) ([]plasma.RunID, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []plasma.RunID{}, nil
		}
		return nil, err
	}

	ids := make([]plasma.RunID, 0)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, "data_") || !strings.HasSuffix(name, suffixConfig) {
			continue
		}
		ids = append(ids, plasma.RunID(strings.TrimSuffix(strings.TrimPrefix(name, "data_"), suffixConfig)))
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', 17, 64)
}

// readRows splits a whitespace-separated text file into fields, skipping
// blank lines and '#' comments.
func readRows(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows := make([][]string, 0)
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		rows = append(rows, strings.Fields(line))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	return rows, nil
}

// writeFileAtomic writes through a temporary file in the same directory so a
// failed write never leaves a truncated record behind.
func writeFileAtomic(path string, write func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
