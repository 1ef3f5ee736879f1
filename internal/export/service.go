package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/carousel-api/internal/domain"
	"github.com/phrazzld/carousel-api/internal/redact"
)

// ErrNotOwned is returned when a user polls another user's export.
var ErrNotOwned = fmt.Errorf("%w: export is owned by another user", domain.ErrUnauthorized)

// RunTimeout bounds one background export.
const RunTimeout = 10 * time.Minute

// Status is the lifecycle state of an export.
type Status string

// Export statuses
const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Snapshot is the latest known state of an export.
type Snapshot struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"userId"`
	ProjectID uuid.UUID `json:"projectId"`
	Request   Request   `json:"request"`
	Status    Status    `json:"status"`
	Phase     Phase     `json:"phase"`
	Progress  int       `json:"progress"`
	Message   string    `json:"message,omitempty"`
	Result    *Result   `json:"result,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ProgressStore keeps export snapshots for polling.
type ProgressStore interface {
	Save(ctx context.Context, snap *Snapshot) error
	// Get returns ErrExportNotFound when the snapshot is missing or expired.
	Get(ctx context.Context, id uuid.UUID) (*Snapshot, error)
}

// CanvasLister lists the canvases of a project in slide order.
type CanvasLister interface {
	ListProjectCanvases(ctx context.Context, userID, projectID uuid.UUID) ([]*domain.Canvas, error)
}

// Service starts exports in the background and answers progress queries.
type Service struct {
	pipeline *Pipeline
	canvases CanvasLister
	store    ProgressStore
	logger   *slog.Logger
	now      func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewService creates an export Service.
func NewService(pipeline *Pipeline, canvases CanvasLister, store ProgressStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		pipeline: pipeline,
		canvases: canvases,
		store:    store,
		logger:   logger.With("component", "export_service"),
		now:      time.Now,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start validates req, records a pending snapshot and runs the export in
// the background. The returned snapshot can be polled through Get.
func (s *Service) Start(ctx context.Context, userID, projectID uuid.UUID, req Request) (*Snapshot, error) {
	req = req.WithDefaults()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	canvases, err := s.canvases.ListProjectCanvases(ctx, userID, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to load canvases: %w", err)
	}
	if len(canvases) == 0 {
		return nil, ErrNoCanvases
	}

	now := s.now().UTC()
	snap := &Snapshot{
		ID:        uuid.New(),
		UserID:    userID,
		ProjectID: projectID,
		Request:   req,
		Status:    StatusPending,
		Phase:     PhasePreparing,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Save(ctx, snap); err != nil {
		return nil, fmt.Errorf("failed to record export: %w", err)
	}

	initial := *snap
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(initial, canvases)
	}()

	s.logger.InfoContext(ctx, "export started",
		"export_id", snap.ID,
		"project_id", projectID,
		"export_type", req.Type,
		"slides", len(canvases))
	return snap, nil
}

// Get returns the snapshot of an export owned by userID.
func (s *Service) Get(ctx context.Context, userID, id uuid.UUID) (*Snapshot, error) {
	snap, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if snap.UserID != userID {
		return nil, ErrNotOwned
	}
	return snap, nil
}

// Shutdown cancels running exports and waits for them to record their
// final state, or for ctx to end.
func (s *Service) Shutdown(ctx context.Context) error {
	s.cancel()
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) run(snap Snapshot, canvases []*domain.Canvas) {
	ctx, cancel := context.WithTimeout(s.ctx, RunTimeout)
	defer cancel()

	log := s.logger.With("export_id", snap.ID)
	progress := make(chan Progress, 8)
	consumed := make(chan struct{})

	go func() {
		defer close(consumed)
		for p := range progress {
			snap.Status = StatusRunning
			snap.Phase = p.Phase
			snap.Progress = p.Percent
			snap.Message = p.Message
			s.save(&snap, log)
		}
	}()

	result, err := s.pipeline.Export(ctx, snap.ID, snap.Request, canvases, progress)
	close(progress)
	<-consumed

	if err != nil {
		snap.Status = StatusFailed
		snap.Error = redact.Error(err)
		if errors.Is(err, context.Canceled) {
			snap.Error = "export cancelled"
		}
		log.Error("export failed", "error", redact.Error(err))
	} else {
		snap.Status = StatusCompleted
		snap.Phase = PhaseComplete
		snap.Progress = 100
		snap.Result = result
	}
	s.save(&snap, log)
}

// save stores the snapshot with a context detached from cancellation so the
// final state is recorded even during shutdown.
func (s *Service) save(snap *Snapshot, log *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(s.ctx), 5*time.Second)
	defer cancel()
	snap.UpdatedAt = s.now().UTC()
	if err := s.store.Save(ctx, snap); err != nil {
		log.Warn("failed to save export snapshot", "error", err, "status", snap.Status)
	}
}

// MemoryProgressStore keeps snapshots in process memory.
type MemoryProgressStore struct {
	mu    sync.RWMutex
	snaps map[uuid.UUID]Snapshot
}

// NewMemoryProgressStore creates an empty MemoryProgressStore.
func NewMemoryProgressStore() *MemoryProgressStore {
	return &MemoryProgressStore{snaps: make(map[uuid.UUID]Snapshot)}
}

// Save implements ProgressStore.
func (m *MemoryProgressStore) Save(_ context.Context, snap *Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snaps[snap.ID] = *snap
	return nil
}

// Get implements ProgressStore.
func (m *MemoryProgressStore) Get(_ context.Context, id uuid.UUID) (*Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap, ok := m.snaps[id]
	if !ok {
		return nil, ErrExportNotFound
	}
	return &snap, nil
}
