package task

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/carousel-api/internal/store"
)

// MockTaskStore implements the TaskStore interface in memory for testing
type MockTaskStore struct {
	mutex   sync.RWMutex
	records map[uuid.UUID]*TaskRecord
	history map[uuid.UUID][]TaskStatus
	SaveErr error
}

// NewMockTaskStore creates an empty MockTaskStore
func NewMockTaskStore() *MockTaskStore {
	return &MockTaskStore{
		records: make(map[uuid.UUID]*TaskRecord),
		history: make(map[uuid.UUID][]TaskStatus),
	}
}

// SaveTask stores a record built from task
func (s *MockTaskStore) SaveTask(_ context.Context, task Task) error {
	if s.SaveErr != nil {
		return s.SaveErr
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	now := time.Now().UTC()
	s.records[task.ID()] = &TaskRecord{
		ID:        task.ID(),
		Type:      task.Type(),
		Payload:   task.Payload(),
		Status:    task.Status(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.history[task.ID()] = append(s.history[task.ID()], task.Status())
	return nil
}

// Put inserts a record directly, as if left behind by an earlier process
func (s *MockTaskStore) Put(rec TaskRecord) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	r := rec
	s.records[rec.ID] = &r
}

// UpdateTaskStatus updates the status of a stored record
func (s *MockTaskStore) UpdateTaskStatus(
	_ context.Context,
	taskID uuid.UUID,
	status TaskStatus,
	errorMsg string,
) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	rec, ok := s.records[taskID]
	if !ok {
		return store.ErrTaskNotFound
	}
	rec.Status = status
	rec.ErrorMessage = errorMsg
	rec.UpdatedAt = time.Now().UTC()
	s.history[taskID] = append(s.history[taskID], status)
	return nil
}

// GetPendingTasks returns records in pending state
func (s *MockTaskStore) GetPendingTasks(_ context.Context) ([]TaskRecord, error) {
	return s.byStatus(TaskStatusPending, 0), nil
}

// GetProcessingTasks returns records in processing state older than olderThan
func (s *MockTaskStore) GetProcessingTasks(_ context.Context, olderThan time.Duration) ([]TaskRecord, error) {
	return s.byStatus(TaskStatusProcessing, olderThan), nil
}

func (s *MockTaskStore) byStatus(status TaskStatus, olderThan time.Duration) []TaskRecord {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var out []TaskRecord
	cutoff := time.Now().UTC().Add(-olderThan)
	for _, rec := range s.records {
		if rec.Status != status {
			continue
		}
		if olderThan > 0 && !rec.UpdatedAt.Before(cutoff) {
			continue
		}
		out = append(out, *rec)
	}
	return out
}

// Status returns the stored status of a task
func (s *MockTaskStore) Status(id uuid.UUID) TaskStatus {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	if rec, ok := s.records[id]; ok {
		return rec.Status
	}
	return ""
}

// History returns every status a task has been stored with
func (s *MockTaskStore) History(id uuid.UUID) []TaskStatus {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return append([]TaskStatus(nil), s.history[id]...)
}

// WithTx returns the same store
func (s *MockTaskStore) WithTx(_ *sql.Tx) TaskStore {
	return s
}
