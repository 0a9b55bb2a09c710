package repository

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/okian/connecthub/internal/domain/model"
)

// MemoryStore keeps every record in process memory. Lists preserve
// insertion order.
type MemoryStore struct {
	settings

	mu sync.RWMutex

	employees     map[string]model.Employee
	employeeOrder []string
	emailIndex    map[string]string

	projects     map[string]model.Project
	projectOrder []string

	contributors     map[string]model.Contributor
	contributorOrder []string
	contributorEmail map[string]string

	features     []model.Feature
	featureHash  map[string]struct{}
	featureFiles map[string][]model.FeatureFile
	fileCount    int
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		settings:         defaultSettings(),
		employees:        make(map[string]model.Employee),
		emailIndex:       make(map[string]string),
		projects:         make(map[string]model.Project),
		contributors:     make(map[string]model.Contributor),
		contributorEmail: make(map[string]string),
		featureHash:      make(map[string]struct{}),
		featureFiles:     make(map[string][]model.FeatureFile),
	}
	for _, opt := range opts {
		opt(&s.settings)
	}
	return s
}

func (s *MemoryStore) ListEmployees(_ context.Context) ([]model.Employee, error) {
	defer observe(driverMemory, "list_employees", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Employee, 0, len(s.employeeOrder))
	for _, id := range s.employeeOrder {
		out = append(out, cloneEmployee(s.employees[id]))
	}
	return out, nil
}

func (s *MemoryStore) GetEmployee(_ context.Context, id string) (model.Employee, error) {
	defer observe(driverMemory, "get_employee", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.employees[id]
	if !ok {
		return model.Employee{}, fmt.Errorf("employee %q: %w", id, ErrNotFound)
	}
	return cloneEmployee(e), nil
}

func (s *MemoryStore) GetEmployeeByEmail(_ context.Context, email string) (model.Employee, error) {
	defer observe(driverMemory, "get_employee_by_email", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.emailIndex[emailKey(email)]
	if !ok {
		return model.Employee{}, fmt.Errorf("employee with email %q: %w", email, ErrNotFound)
	}
	return cloneEmployee(s.employees[id]), nil
}

func (s *MemoryStore) PutEmployee(_ context.Context, e model.Employee) (model.Employee, error) {
	defer observe(driverMemory, "put_employee", time.Now())
	key := emailKey(e.Email)
	if key == "" {
		return model.Employee{}, fmt.Errorf("employee email is required: %w", ErrInvalid)
	}
	e.Email = strings.TrimSpace(e.Email)

	s.mu.Lock()
	defer s.mu.Unlock()

	if e.ID == "" {
		e.ID = s.newID()
	}
	if owner, ok := s.emailIndex[key]; ok && owner != e.ID {
		return model.Employee{}, fmt.Errorf("email %q: %w", e.Email, ErrConflict)
	}

	now := s.now().UnixMilli()
	if prev, ok := s.employees[e.ID]; ok {
		delete(s.emailIndex, emailKey(prev.Email))
		if e.CreatedAt == 0 {
			e.CreatedAt = prev.CreatedAt
		}
		if e.PasswordHash == "" {
			e.PasswordHash = prev.PasswordHash
		}
	} else {
		s.employeeOrder = append(s.employeeOrder, e.ID)
	}
	if e.CreatedAt == 0 {
		e.CreatedAt = now
	}
	e.UpdatedAt = now

	s.employees[e.ID] = cloneEmployee(e)
	s.emailIndex[key] = e.ID
	return cloneEmployee(e), nil
}

func (s *MemoryStore) ListProjects(_ context.Context) ([]model.Project, error) {
	defer observe(driverMemory, "list_projects", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Project, 0, len(s.projectOrder))
	for _, id := range s.projectOrder {
		out = append(out, cloneProject(s.projects[id]))
	}
	return out, nil
}

func (s *MemoryStore) GetProject(_ context.Context, id string) (model.Project, error) {
	defer observe(driverMemory, "get_project", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.projects[id]
	if !ok {
		return model.Project{}, fmt.Errorf("project %q: %w", id, ErrNotFound)
	}
	return cloneProject(p), nil
}

func (s *MemoryStore) PutProject(_ context.Context, p model.Project) (model.Project, error) {
	defer observe(driverMemory, "put_project", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == "" {
		p.ID = s.newID()
	}
	now := s.now().UnixMilli()
	if prev, ok := s.projects[p.ID]; ok {
		if p.CreatedAt == 0 {
			p.CreatedAt = prev.CreatedAt
		}
	} else {
		s.projectOrder = append(s.projectOrder, p.ID)
	}
	if p.CreatedAt == 0 {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	s.projects[p.ID] = cloneProject(p)
	return cloneProject(p), nil
}

func (s *MemoryStore) UpsertContributor(_ context.Context, name, email string, ts int64) (model.Contributor, error) {
	defer observe(driverMemory, "upsert_contributor", time.Now())
	key := emailKey(email)
	if key == "" {
		return model.Contributor{}, fmt.Errorf("contributor email is required: %w", ErrInvalid)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.contributorEmail[key]; ok {
		c := s.contributors[id]
		if ts > c.LastSeen {
			c.LastSeen = ts
		}
		if ts < c.FirstSeen {
			c.FirstSeen = ts
		}
		s.contributors[id] = c
		return c, nil
	}

	c := model.Contributor{
		ID:        s.newID(),
		Name:      name,
		Email:     strings.TrimSpace(email),
		FirstSeen: ts,
		LastSeen:  ts,
	}
	s.contributors[c.ID] = c
	s.contributorOrder = append(s.contributorOrder, c.ID)
	s.contributorEmail[key] = c.ID
	return c, nil
}

func (s *MemoryStore) GetContributor(_ context.Context, id string) (model.Contributor, error) {
	defer observe(driverMemory, "get_contributor", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.contributors[id]
	if !ok {
		return model.Contributor{}, fmt.Errorf("contributor %q: %w", id, ErrNotFound)
	}
	return c, nil
}

func (s *MemoryStore) ListContributors(_ context.Context) ([]model.Contributor, error) {
	defer observe(driverMemory, "list_contributors", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Contributor, 0, len(s.contributorOrder))
	for _, id := range s.contributorOrder {
		out = append(out, s.contributors[id])
	}
	return out, nil
}

func (s *MemoryStore) AddFeature(_ context.Context, f model.Feature, files []model.FileStat) (bool, error) {
	defer observe(driverMemory, "add_feature", time.Now())
	if f.Hash == "" {
		return false, fmt.Errorf("feature hash is required: %w", ErrInvalid)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, dup := s.featureHash[f.Hash]; dup {
		return false, nil
	}
	if f.ID == "" {
		f.ID = s.newID()
	}
	rows := make([]model.FeatureFile, 0, len(files))
	for _, fs := range files {
		rows = append(rows, model.FeatureFile{
			ID:           s.newID(),
			FeatureID:    f.ID,
			FilePath:     fs.FilePath,
			LinesAdded:   fs.LinesAdded,
			LinesDeleted: fs.LinesDeleted,
		})
	}
	s.features = append(s.features, f)
	s.featureHash[f.Hash] = struct{}{}
	s.featureFiles[f.ID] = rows
	s.fileCount += len(rows)
	return true, nil
}

func (s *MemoryStore) ListFeatures(_ context.Context, contributorID string) ([]model.FeatureWithFiles, error) {
	defer observe(driverMemory, "list_features", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.FeatureWithFiles, 0, len(s.features))
	for _, f := range s.features {
		if contributorID != "" && f.ContributorID != contributorID {
			continue
		}
		files := append([]model.FeatureFile(nil), s.featureFiles[f.ID]...)
		if files == nil {
			files = []model.FeatureFile{}
		}
		out = append(out, model.FeatureWithFiles{Feature: f, Files: files})
	}
	return out, nil
}

func (s *MemoryStore) FeatureCounts(_ context.Context) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int, len(s.contributors))
	for _, f := range s.features {
		counts[f.ContributorID]++
	}
	return counts, nil
}

func (s *MemoryStore) FeatureHashes(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.features))
	for _, f := range s.features {
		out = append(out, f.Hash)
	}
	return out, nil
}

func (s *MemoryStore) Totals(_ context.Context) (model.Totals, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return model.Totals{
		Features:     len(s.features),
		Contributors: len(s.contributors),
		Files:        s.fileCount,
	}, nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }
