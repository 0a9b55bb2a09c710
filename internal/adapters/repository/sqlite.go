package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/okian/connecthub/internal/domain/model"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS employees (
	id            TEXT PRIMARY KEY,
	email         TEXT NOT NULL UNIQUE COLLATE NOCASE,
	password_hash TEXT NOT NULL DEFAULT '',
	doc           TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS projects (
	id  TEXT PRIMARY KEY,
	doc TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS contributors (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	email      TEXT NOT NULL UNIQUE COLLATE NOCASE,
	first_seen INTEGER NOT NULL,
	last_seen  INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS features (
	id             TEXT PRIMARY KEY,
	title          TEXT NOT NULL,
	description    TEXT NOT NULL,
	hash           TEXT NOT NULL UNIQUE,
	timestamp      INTEGER NOT NULL,
	contributor_id TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS features_by_contributor ON features(contributor_id);
CREATE TABLE IF NOT EXISTS feature_files (
	id            TEXT PRIMARY KEY,
	feature_id    TEXT NOT NULL,
	file_path     TEXT NOT NULL,
	lines_added   INTEGER NOT NULL,
	lines_deleted INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS feature_files_by_feature ON feature_files(feature_id);
`

// SQLiteStore persists records in a single SQLite file. Employees and
// projects are stored as JSON documents; commit history is relational.
// Email columns compare case-insensitively.
type SQLiteStore struct {
	settings
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLite opens (or creates) the database at path and applies the schema.
func OpenSQLite(ctx context.Context, path string, opts ...Option) (*SQLiteStore, error) {
	s := &SQLiteStore{settings: defaultSettings()}
	for _, opt := range opts {
		opt(&s.settings)
	}

	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("sqlite: mkdir %s: %w", dir, err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1) // single writer

	pragma := fmt.Sprintf("PRAGMA busy_timeout = %d", s.busyTimeout.Milliseconds())
	if _, err := db.ExecContext(ctx, pragma); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: %s: %w", pragma, err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: init schema: %w", err)
	}
	s.db = db
	return s, nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEmployee(row rowScanner) (model.Employee, error) {
	var (
		doc  string
		hash string
		e    model.Employee
	)
	if err := row.Scan(&doc, &hash); err != nil {
		return model.Employee{}, err
	}
	if err := json.Unmarshal([]byte(doc), &e); err != nil {
		return model.Employee{}, fmt.Errorf("decode employee: %w", err)
	}
	e.PasswordHash = hash
	return e, nil
}

func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return fmt.Errorf("%s: %w", what, err)
}

func (s *SQLiteStore) ListEmployees(ctx context.Context) ([]model.Employee, error) {
	defer observe(driverSQLite, "list_employees", time.Now())
	rows, err := s.db.QueryContext(ctx, `SELECT doc, password_hash FROM employees ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("list employees: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := []model.Employee{}
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, fmt.Errorf("list employees: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) GetEmployee(ctx context.Context, id string) (model.Employee, error) {
	defer observe(driverSQLite, "get_employee", time.Now())
	row := s.db.QueryRowContext(ctx, `SELECT doc, password_hash FROM employees WHERE id = ?`, id)
	e, err := scanEmployee(row)
	if err != nil {
		return model.Employee{}, notFound(err, fmt.Sprintf("employee %q", id))
	}
	return e, nil
}

func (s *SQLiteStore) GetEmployeeByEmail(ctx context.Context, email string) (model.Employee, error) {
	defer observe(driverSQLite, "get_employee_by_email", time.Now())
	row := s.db.QueryRowContext(ctx, `SELECT doc, password_hash FROM employees WHERE email = ?`, strings.TrimSpace(email))
	e, err := scanEmployee(row)
	if err != nil {
		return model.Employee{}, notFound(err, fmt.Sprintf("employee with email %q", email))
	}
	return e, nil
}

func (s *SQLiteStore) PutEmployee(ctx context.Context, e model.Employee) (model.Employee, error) {
	defer observe(driverSQLite, "put_employee", time.Now())
	key := strings.TrimSpace(e.Email)
	if key == "" {
		return model.Employee{}, fmt.Errorf("employee email is required: %w", ErrInvalid)
	}
	e.Email = key
	if e.ID == "" {
		e.ID = s.newID()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Employee{}, fmt.Errorf("put employee: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var owner string
	err = tx.QueryRowContext(ctx, `SELECT id FROM employees WHERE email = ?`, key).Scan(&owner)
	switch {
	case err == nil && owner != e.ID:
		return model.Employee{}, fmt.Errorf("email %q: %w", e.Email, ErrConflict)
	case err != nil && !errors.Is(err, sql.ErrNoRows):
		return model.Employee{}, fmt.Errorf("put employee: %w", err)
	}

	prev, err := scanEmployee(tx.QueryRowContext(ctx, `SELECT doc, password_hash FROM employees WHERE id = ?`, e.ID))
	switch {
	case err == nil:
		if e.CreatedAt == 0 {
			e.CreatedAt = prev.CreatedAt
		}
		if e.PasswordHash == "" {
			e.PasswordHash = prev.PasswordHash
		}
	case !errors.Is(err, sql.ErrNoRows):
		return model.Employee{}, fmt.Errorf("put employee: %w", err)
	}

	now := s.now().UnixMilli()
	if e.CreatedAt == 0 {
		e.CreatedAt = now
	}
	e.UpdatedAt = now

	doc, err := json.Marshal(e)
	if err != nil {
		return model.Employee{}, fmt.Errorf("put employee: encode: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO employees (id, email, password_hash, doc) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET email = excluded.email,
			password_hash = excluded.password_hash, doc = excluded.doc`,
		e.ID, key, e.PasswordHash, string(doc))
	if err != nil {
		return model.Employee{}, fmt.Errorf("put employee: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return model.Employee{}, fmt.Errorf("put employee: commit: %w", err)
	}
	return e, nil
}

func (s *SQLiteStore) ListProjects(ctx context.Context) ([]model.Project, error) {
	defer observe(driverSQLite, "list_projects", time.Now())
	rows, err := s.db.QueryContext(ctx, `SELECT doc FROM projects ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := []model.Project{}
	for rows.Next() {
		var (
			doc string
			p   model.Project
		)
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("list projects: %w", err)
		}
		if err := json.Unmarshal([]byte(doc), &p); err != nil {
			return nil, fmt.Errorf("list projects: decode: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) GetProject(ctx context.Context, id string) (model.Project, error) {
	defer observe(driverSQLite, "get_project", time.Now())
	var doc string
	if err := s.db.QueryRowContext(ctx, `SELECT doc FROM projects WHERE id = ?`, id).Scan(&doc); err != nil {
		return model.Project{}, notFound(err, fmt.Sprintf("project %q", id))
	}
	var p model.Project
	if err := json.Unmarshal([]byte(doc), &p); err != nil {
		return model.Project{}, fmt.Errorf("project %q: decode: %w", id, err)
	}
	return p, nil
}

func (s *SQLiteStore) PutProject(ctx context.Context, p model.Project) (model.Project, error) {
	defer observe(driverSQLite, "put_project", time.Now())
	if p.ID == "" {
		p.ID = s.newID()
	}
	if p.CreatedAt == 0 {
		if prev, err := s.GetProject(ctx, p.ID); err == nil {
			p.CreatedAt = prev.CreatedAt
		}
	}
	now := s.now().UnixMilli()
	if p.CreatedAt == 0 {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	doc, err := json.Marshal(p)
	if err != nil {
		return model.Project{}, fmt.Errorf("put project: encode: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO projects (id, doc) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET doc = excluded.doc`, p.ID, string(doc))
	if err != nil {
		return model.Project{}, fmt.Errorf("put project: %w", err)
	}
	return p, nil
}

const contributorColumns = `id, name, email, first_seen, last_seen`

func scanContributor(row rowScanner) (model.Contributor, error) {
	var c model.Contributor
	err := row.Scan(&c.ID, &c.Name, &c.Email, &c.FirstSeen, &c.LastSeen)
	return c, err
}

func (s *SQLiteStore) UpsertContributor(ctx context.Context, name, email string, ts int64) (model.Contributor, error) {
	defer observe(driverSQLite, "upsert_contributor", time.Now())
	key := strings.TrimSpace(email)
	if key == "" {
		return model.Contributor{}, fmt.Errorf("contributor email is required: %w", ErrInvalid)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Contributor{}, fmt.Errorf("upsert contributor: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO contributors (id, name, email, first_seen, last_seen) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(email) DO UPDATE SET
			first_seen = min(first_seen, excluded.first_seen),
			last_seen  = max(last_seen, excluded.last_seen)`,
		s.newID(), name, key, ts, ts)
	if err != nil {
		return model.Contributor{}, fmt.Errorf("upsert contributor: %w", err)
	}
	c, err := scanContributor(tx.QueryRowContext(ctx,
		`SELECT `+contributorColumns+` FROM contributors WHERE email = ?`, key))
	if err != nil {
		return model.Contributor{}, fmt.Errorf("upsert contributor: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return model.Contributor{}, fmt.Errorf("upsert contributor: commit: %w", err)
	}
	return c, nil
}

func (s *SQLiteStore) GetContributor(ctx context.Context, id string) (model.Contributor, error) {
	defer observe(driverSQLite, "get_contributor", time.Now())
	c, err := scanContributor(s.db.QueryRowContext(ctx,
		`SELECT `+contributorColumns+` FROM contributors WHERE id = ?`, id))
	if err != nil {
		return model.Contributor{}, notFound(err, fmt.Sprintf("contributor %q", id))
	}
	return c, nil
}

func (s *SQLiteStore) ListContributors(ctx context.Context) ([]model.Contributor, error) {
	defer observe(driverSQLite, "list_contributors", time.Now())
	rows, err := s.db.QueryContext(ctx, `SELECT `+contributorColumns+` FROM contributors ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("list contributors: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := []model.Contributor{}
	for rows.Next() {
		c, err := scanContributor(rows)
		if err != nil {
			return nil, fmt.Errorf("list contributors: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) AddFeature(ctx context.Context, f model.Feature, files []model.FileStat) (bool, error) {
	defer observe(driverSQLite, "add_feature", time.Now())
	if f.Hash == "" {
		return false, fmt.Errorf("feature hash is required: %w", ErrInvalid)
	}
	if f.ID == "" {
		f.ID = s.newID()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("add feature: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO features (id, title, description, hash, timestamp, contributor_id)
		VALUES (?, ?, ?, ?, ?, ?) ON CONFLICT(hash) DO NOTHING`,
		f.ID, f.Title, f.Description, f.Hash, f.Timestamp, f.ContributorID)
	if err != nil {
		return false, fmt.Errorf("add feature: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil || n == 0 {
		return false, err
	}

	for _, fs := range files {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO feature_files (id, feature_id, file_path, lines_added, lines_deleted)
			VALUES (?, ?, ?, ?, ?)`,
			s.newID(), f.ID, fs.FilePath, fs.LinesAdded, fs.LinesDeleted)
		if err != nil {
			return false, fmt.Errorf("add feature file %s: %w", fs.FilePath, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("add feature: commit: %w", err)
	}
	return true, nil
}

func (s *SQLiteStore) ListFeatures(ctx context.Context, contributorID string) ([]model.FeatureWithFiles, error) {
	defer observe(driverSQLite, "list_features", time.Now())
	query := `SELECT id, title, description, hash, timestamp, contributor_id FROM features`
	args := []any{}
	if contributorID != "" {
		query += ` WHERE contributor_id = ?`
		args = append(args, contributorID)
	}
	query += ` ORDER BY rowid`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list features: %w", err)
	}
	out := []model.FeatureWithFiles{}
	index := make(map[string]int)
	for rows.Next() {
		var f model.Feature
		if err := rows.Scan(&f.ID, &f.Title, &f.Description, &f.Hash, &f.Timestamp, &f.ContributorID); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("list features: %w", err)
		}
		index[f.ID] = len(out)
		out = append(out, model.FeatureWithFiles{Feature: f, Files: []model.FeatureFile{}})
	}
	if err := rows.Close(); err != nil {
		return nil, fmt.Errorf("list features: %w", err)
	}
	if len(out) == 0 {
		return out, nil
	}

	fileRows, err := s.db.QueryContext(ctx, `
		SELECT id, feature_id, file_path, lines_added, lines_deleted
		FROM feature_files ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("list feature files: %w", err)
	}
	defer func() { _ = fileRows.Close() }()
	for fileRows.Next() {
		var ff model.FeatureFile
		if err := fileRows.Scan(&ff.ID, &ff.FeatureID, &ff.FilePath, &ff.LinesAdded, &ff.LinesDeleted); err != nil {
			return nil, fmt.Errorf("list feature files: %w", err)
		}
		if i, ok := index[ff.FeatureID]; ok {
			out[i].Files = append(out[i].Files, ff)
		}
	}
	return out, fileRows.Err()
}

func (s *SQLiteStore) FeatureCounts(ctx context.Context) (map[string]int, error) {
	defer observe(driverSQLite, "feature_counts", time.Now())
	rows, err := s.db.QueryContext(ctx, `SELECT contributor_id, COUNT(*) FROM features GROUP BY contributor_id`)
	if err != nil {
		return nil, fmt.Errorf("feature counts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			id string
			n  int
		)
		if err := rows.Scan(&id, &n); err != nil {
			return nil, fmt.Errorf("feature counts: %w", err)
		}
		counts[id] = n
	}
	return counts, rows.Err()
}

func (s *SQLiteStore) FeatureHashes(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT hash FROM features ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("feature hashes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := []string{}
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, fmt.Errorf("feature hashes: %w", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Totals(ctx context.Context) (model.Totals, error) {
	defer observe(driverSQLite, "totals", time.Now())
	var t model.Totals
	err := s.db.QueryRowContext(ctx, `
		SELECT (SELECT COUNT(*) FROM features),
		       (SELECT COUNT(*) FROM contributors),
		       (SELECT COUNT(*) FROM feature_files)`).Scan(&t.Features, &t.Contributors, &t.Files)
	if err != nil {
		return model.Totals{}, fmt.Errorf("totals: %w", err)
	}
	return t, nil
}
