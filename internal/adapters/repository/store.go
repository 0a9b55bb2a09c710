// Package repository persists employees, projects and ingested commit
// history.
package repository

import (
	"context"

	"github.com/okian/connecthub/internal/domain/model"
)

// Store provides read/write access to the service's records.
// Implementations are safe for concurrent use.
type Store interface {
	// ListEmployees returns every employee in insertion order.
	ListEmployees(ctx context.Context) ([]model.Employee, error)
	// GetEmployee returns ErrNotFound when id is unknown.
	GetEmployee(ctx context.Context, id string) (model.Employee, error)
	// GetEmployeeByEmail looks an employee up by email, case-insensitively.
	GetEmployeeByEmail(ctx context.Context, email string) (model.Employee, error)
	// PutEmployee inserts or replaces an employee. A blank ID is assigned.
	// ErrConflict is returned when another employee already owns the email.
	PutEmployee(ctx context.Context, e model.Employee) (model.Employee, error)

	ListProjects(ctx context.Context) ([]model.Project, error)
	GetProject(ctx context.Context, id string) (model.Project, error)
	PutProject(ctx context.Context, p model.Project) (model.Project, error)

	// UpsertContributor finds the contributor by email or creates it, and
	// widens its FirstSeen/LastSeen window to include ts.
	UpsertContributor(ctx context.Context, name, email string, ts int64) (model.Contributor, error)
	GetContributor(ctx context.Context, id string) (model.Contributor, error)
	ListContributors(ctx context.Context) ([]model.Contributor, error)

	// AddFeature stores a feature and its files. It returns false without
	// writing anything when a feature with the same hash already exists.
	AddFeature(ctx context.Context, f model.Feature, files []model.FileStat) (bool, error)
	// ListFeatures returns features with their files, restricted to one
	// contributor when contributorID is not blank.
	ListFeatures(ctx context.Context, contributorID string) ([]model.FeatureWithFiles, error)
	// FeatureCounts maps contributor id to number of features.
	FeatureCounts(ctx context.Context) (map[string]int, error)
	// FeatureHashes lists the hash of every stored feature.
	FeatureHashes(ctx context.Context) ([]string, error)
	Totals(ctx context.Context) (model.Totals, error)

	Close() error
}
