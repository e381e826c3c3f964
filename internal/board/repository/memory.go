package repository

import (
	"context"
	"sync"

	"github.com/goitProjects/SBC-backend/internal/board"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryRepo is an in-memory Repository used with STORAGE_DRIVER=memory and
// in unit tests. Records are copied on the way in and out.
type MemoryRepo struct {
	mu       sync.RWMutex
	projects map[primitive.ObjectID]*board.Project
	sprints  map[primitive.ObjectID]*board.Sprint
	tasks    map[primitive.ObjectID]*board.Task
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		projects: make(map[primitive.ObjectID]*board.Project),
		sprints:  make(map[primitive.ObjectID]*board.Sprint),
		tasks:    make(map[primitive.ObjectID]*board.Task),
	}
}

func pick[T any](store map[primitive.ObjectID]*T, ids []primitive.ObjectID, clone func(*T) *T) []*T {
	out := make([]*T, 0, len(ids))
	for _, id := range ids {
		if v, ok := store[id]; ok {
			out = append(out, clone(v))
		}
	}
	return out
}

func without(ids []primitive.ObjectID, drop primitive.ObjectID) []primitive.ObjectID {
	out := ids[:0]
	for _, id := range ids {
		if id != drop {
			out = append(out, id)
		}
	}
	return out
}

func (m *MemoryRepo) CreateProject(_ context.Context, p *board.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	m.projects[p.ID] = p.Clone()
	return nil
}

func (m *MemoryRepo) GetProject(_ context.Context, id primitive.ObjectID) (*board.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if p, ok := m.projects[id]; ok {
		return p.Clone(), nil
	}
	return nil, nil
}

func (m *MemoryRepo) ProjectsByIDs(_ context.Context, ids []primitive.ObjectID) ([]*board.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return pick(m.projects, ids, (*board.Project).Clone), nil
}

func (m *MemoryRepo) ProjectsByMember(_ context.Context, email string) ([]*board.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []*board.Project{}
	for _, p := range m.projects {
		if p.HasMember(email) {
			out = append(out, p.Clone())
		}
	}
	return out, nil
}

func (m *MemoryRepo) AddMember(_ context.Context, projectID primitive.ObjectID, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.projects[projectID]; ok && !p.HasMember(email) {
		p.Members = append(p.Members, email)
	}
	return nil
}

func (m *MemoryRepo) SetProjectTitle(_ context.Context, id primitive.ObjectID, title string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.projects[id]; ok {
		p.Title = title
	}
	return nil
}

func (m *MemoryRepo) LinkSprint(_ context.Context, projectID, sprintID primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.projects[projectID]; ok {
		p.Sprints = append(p.Sprints, sprintID)
	}
	return nil
}

func (m *MemoryRepo) UnlinkSprint(_ context.Context, projectID, sprintID primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.projects[projectID]; ok {
		p.Sprints = without(p.Sprints, sprintID)
	}
	return nil
}

func (m *MemoryRepo) DeleteProject(_ context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.projects, id)
	return nil
}

func (m *MemoryRepo) CreateSprint(_ context.Context, s *board.Sprint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.ID.IsZero() {
		s.ID = primitive.NewObjectID()
	}
	m.sprints[s.ID] = s.Clone()
	return nil
}

func (m *MemoryRepo) GetSprint(_ context.Context, id primitive.ObjectID) (*board.Sprint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.sprints[id]; ok {
		return s.Clone(), nil
	}
	return nil, nil
}

func (m *MemoryRepo) SprintsByIDs(_ context.Context, ids []primitive.ObjectID) ([]*board.Sprint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return pick(m.sprints, ids, (*board.Sprint).Clone), nil
}

func (m *MemoryRepo) SetSprintTitle(_ context.Context, id primitive.ObjectID, title string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sprints[id]; ok {
		s.Title = title
	}
	return nil
}

func (m *MemoryRepo) LinkTask(_ context.Context, sprintID, taskID primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sprints[sprintID]; ok {
		s.Tasks = append(s.Tasks, taskID)
	}
	return nil
}

func (m *MemoryRepo) UnlinkTask(_ context.Context, sprintID, taskID primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sprints[sprintID]; ok {
		s.Tasks = without(s.Tasks, taskID)
	}
	return nil
}

func (m *MemoryRepo) DeleteSprints(_ context.Context, ids []primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		delete(m.sprints, id)
	}
	return nil
}

func (m *MemoryRepo) CreateTask(_ context.Context, t *board.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.ID.IsZero() {
		t.ID = primitive.NewObjectID()
	}
	m.tasks[t.ID] = t.Clone()
	return nil
}

func (m *MemoryRepo) GetTask(_ context.Context, id primitive.ObjectID) (*board.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if t, ok := m.tasks[id]; ok {
		return t.Clone(), nil
	}
	return nil, nil
}

func (m *MemoryRepo) TasksByIDs(_ context.Context, ids []primitive.ObjectID) ([]*board.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return pick(m.tasks, ids, (*board.Task).Clone), nil
}

func (m *MemoryRepo) SetDayHours(_ context.Context, id primitive.ObjectID, day string, hours, total float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return nil
	}
	if d := t.Day(day); d != nil {
		d.SingleHoursWasted = hours
		t.HoursWasted = total
	}
	return nil
}

func (m *MemoryRepo) SetTaskStatus(_ context.Context, id primitive.ObjectID, status board.TaskStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.tasks[id]; ok {
		t.Status = status
	}
	return nil
}

func (m *MemoryRepo) DeleteTasks(_ context.Context, ids []primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		delete(m.tasks, id)
	}
	return nil
}
