package server

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"opsdashboard/consolidation"
)

// Dataset kinds accepted by the upload endpoints.
const (
	DatasetProduction = "production"
	DatasetShipping   = "shipping"
)

var (
	ErrDatasetNotFound = errors.New("dataset not found")
	ErrRunNotFound     = errors.New("consolidation run not found")
	ErrDatasetKind     = errors.New("dataset kind mismatch")
)

// Dataset is an uploaded raw table held in memory for the session.
type Dataset struct {
	ID         string                  `json:"id"`
	Kind       string                  `json:"kind"`
	FileName   string                  `json:"file_name"`
	Rows       []consolidation.RawRow  `json:"-"`
	RowCount   int                     `json:"row_count"`
	UploadedAt time.Time               `json:"uploaded_at"`
}

// Run is one consolidation run and its output tables.
type Run struct {
	ID             string                `json:"id"`
	Result         *consolidation.Result `json:"-"`
	IncludeFlagged bool                  `json:"include_flagged"`
	CreatedAt      time.Time             `json:"created_at"`
}

// Store keeps session datasets and consolidation runs in memory, keyed by
// UUID. There is deliberately no persistence: state lives for the process
// lifetime only.
type Store struct {
	mu       sync.RWMutex
	datasets map[string]*Dataset
	runs     map[string]*Run
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		datasets: make(map[string]*Dataset),
		runs:     make(map[string]*Run),
	}
}

// PutDataset registers an uploaded dataset and returns it with a fresh ID.
func (s *Store) PutDataset(kind, fileName string, rows []consolidation.RawRow) *Dataset {
	dataset := &Dataset{
		ID:         uuid.New().String(),
		Kind:       kind,
		FileName:   fileName,
		Rows:       rows,
		RowCount:   len(rows),
		UploadedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	s.datasets[dataset.ID] = dataset
	s.mu.Unlock()

	return dataset
}

// Dataset returns a stored dataset, checking its kind.
func (s *Store) Dataset(id, kind string) (*Dataset, error) {
	s.mu.RLock()
	dataset, ok := s.datasets[id]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrDatasetNotFound
	}
	if dataset.Kind != kind {
		return nil, ErrDatasetKind
	}
	return dataset, nil
}

// PutRun registers a consolidation run and returns it with a fresh ID.
func (s *Store) PutRun(result *consolidation.Result, includeFlagged bool) *Run {
	run := &Run{
		ID:             uuid.New().String(),
		Result:         result,
		IncludeFlagged: includeFlagged,
		CreatedAt:      time.Now().UTC(),
	}

	s.mu.Lock()
	s.runs[run.ID] = run
	s.mu.Unlock()

	return run
}

// Run returns a stored consolidation run.
func (s *Store) Run(id string) (*Run, error) {
	s.mu.RLock()
	run, ok := s.runs[id]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrRunNotFound
	}
	return run, nil
}
