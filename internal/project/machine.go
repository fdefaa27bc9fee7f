package project

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"reelsmith/internal/logging"
)

// Machine is the pipeline state machine. Every operation takes an explicit
// project id; there is no process-wide current project. State-mutating
// operations on one project are mutually exclusive.
type Machine struct {
	store  *Store
	logger *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewMachine constructs a state machine over the given store.
func NewMachine(store *Store, logger *slog.Logger) *Machine {
	return &Machine{
		store:  store,
		logger: logging.NewComponentLogger(logger, "pipeline"),
		locks:  make(map[string]*sync.Mutex),
	}
}

// lockProject returns the unlock func for the per-project mutex, creating
// the mutex on first use.
func (m *Machine) lockProject(id string) func() {
	m.mu.Lock()
	lock, ok := m.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[id] = lock
	}
	m.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

func (m *Machine) load(ctx context.Context, id string) (*Project, error) {
	p, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("project %s: %w", id, ErrNoActiveProject)
	}
	return p, nil
}

// Create makes a new project at the initial stage and persists it.
func (m *Machine) Create(ctx context.Context, name string) (*Project, error) {
	if name == "" {
		name = "New Project"
	}
	p := New(name)
	if err := m.store.Put(ctx, p); err != nil {
		return nil, err
	}
	m.logger.Info("created project",
		logging.String(logging.FieldProjectID, p.ID),
		logging.String("name", p.Name),
	)
	return p, nil
}

// Get loads a project by id.
func (m *Machine) Get(ctx context.Context, id string) (*Project, error) {
	return m.load(ctx, id)
}

// Advance moves the project to the next stage in the fixed order, provided
// every stage in the target's transitive prerequisite chain satisfies its
// completion predicate. On failure the persisted state is untouched.
func (m *Machine) Advance(ctx context.Context, id string) (Stage, error) {
	defer m.lockProject(id)()

	p, err := m.load(ctx, id)
	if err != nil {
		return "", err
	}
	if p.CurrentStage.Terminal() {
		return "", fmt.Errorf("project %s: %w", id, ErrAtTerminalStage)
	}

	next := stageOrder[stageIndex(p.CurrentStage)+1]
	if missing := p.MissingPrerequisites(next); len(missing) > 0 {
		return "", &PrerequisiteError{Target: next, Missing: missing}
	}

	p.CurrentStage = next
	p.UpdatedAt = time.Now().UTC()
	if err := m.store.Put(ctx, p); err != nil {
		return "", err
	}
	m.logger.Info("advanced stage",
		logging.String(logging.FieldProjectID, id),
		logging.String(logging.FieldStage, string(next)),
	)
	return next, nil
}

// Retreat moves the project to the immediately preceding stage. Going
// backward never needs a prerequisite check.
func (m *Machine) Retreat(ctx context.Context, id string) (Stage, error) {
	defer m.lockProject(id)()

	p, err := m.load(ctx, id)
	if err != nil {
		return "", err
	}
	idx := stageIndex(p.CurrentStage)
	if idx <= 0 {
		return "", fmt.Errorf("project %s: %w", id, ErrAtInitialStage)
	}

	p.CurrentStage = stageOrder[idx-1]
	p.UpdatedAt = time.Now().UTC()
	if err := m.store.Put(ctx, p); err != nil {
		return "", err
	}
	m.logger.Info("retreated stage",
		logging.String(logging.FieldProjectID, id),
		logging.String(logging.FieldStage, string(p.CurrentStage)),
	)
	return p.CurrentStage, nil
}

// UpdateStage merges patch into the stage's attribute bag, last write wins
// per key. Untouched keys survive.
func (m *Machine) UpdateStage(ctx context.Context, id string, stage Stage, patch map[string]any) (*Project, error) {
	parsed, ok := ParseStage(string(stage))
	if !ok || parsed.Terminal() {
		return nil, fmt.Errorf("stage %q: %w", stage, ErrUnknownStage)
	}

	defer m.lockProject(id)()

	p, err := m.load(ctx, id)
	if err != nil {
		return nil, err
	}

	bag := p.Bag(parsed)
	for key, value := range patch {
		bag[key] = value
	}
	p.UpdatedAt = time.Now().UTC()
	if err := m.store.Put(ctx, p); err != nil {
		return nil, err
	}
	m.logger.Debug("updated stage data",
		logging.String(logging.FieldProjectID, id),
		logging.String(logging.FieldStage, string(parsed)),
		logging.Int("keys", len(patch)),
	)
	return p, nil
}

// Reset returns the project to the initial stage with empty bags,
// preserving identity and creation time.
func (m *Machine) Reset(ctx context.Context, id string) (*Project, error) {
	defer m.lockProject(id)()

	p, err := m.load(ctx, id)
	if err != nil {
		return nil, err
	}

	fresh := New(p.Name)
	fresh.ID = p.ID
	fresh.CreatedAt = p.CreatedAt
	if err := m.store.Put(ctx, fresh); err != nil {
		return nil, err
	}
	m.logger.Info("reset project", logging.String(logging.FieldProjectID, id))
	return fresh, nil
}

// Progress computes the read-only completion projection: a 0-100 percent
// derived from the current stage index plus a status tag per non-terminal
// stage. Pure; calling it never mutates state.
func (m *Machine) Progress(ctx context.Context, id string) (*Report, error) {
	p, err := m.load(ctx, id)
	if err != nil {
		return nil, err
	}

	currentIdx := stageIndex(p.CurrentStage)
	report := &Report{
		ProjectID:    p.ID,
		Name:         p.Name,
		Percent:      float64(currentIdx) / float64(len(stageOrder)-1) * 100,
		CurrentStage: p.CurrentStage,
	}
	for i, stage := range NonTerminalStages() {
		status := StatusPending
		switch {
		case stage == p.CurrentStage:
			status = StatusActive
		case i < currentIdx && p.StageComplete(stage):
			status = StatusCompleted
		}
		report.Stages = append(report.Stages, StageReport{
			Stage:       stage,
			Description: stage.Description(),
			Number:      i + 1,
			Status:      status,
		})
	}
	return report, nil
}
