package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/connecthub/internal/auth"
	"github.com/okian/connecthub/internal/domain/model"
	"github.com/okian/connecthub/pkg/logger"
	"github.com/okian/connecthub/pkg/metrics"
)

// EmployeeInput is an employee record plus an optional plaintext password.
// The password is hashed before it reaches the store.
type EmployeeInput struct {
	model.Employee `json:",squash"`

	Password string `json:"password,omitempty"`
}

// Session is the result of a successful login.
type Session struct {
	Employee  model.Employee `json:"employee"`
	Token     string         `json:"token,omitempty"`
	ExpiresAt *time.Time     `json:"expiresAt,omitempty"`
}

// ListEmployees returns every employee.
func (s *Service) ListEmployees(ctx context.Context) ([]model.Employee, error) {
	c, err := s.running()
	if err != nil {
		return nil, err
	}
	return c.store.ListEmployees(ctx)
}

// GetEmployee returns one employee by id.
func (s *Service) GetEmployee(ctx context.Context, id string) (model.Employee, error) {
	c, err := s.running()
	if err != nil {
		return model.Employee{}, err
	}
	return c.store.GetEmployee(ctx, id)
}

// SaveEmployee creates or updates an employee. An empty password keeps the
// stored hash.
func (s *Service) SaveEmployee(ctx context.Context, in EmployeeInput) (model.Employee, error) {
	c, err := s.running()
	if err != nil {
		return model.Employee{}, err
	}
	e := in.Employee
	e.PasswordHash = ""
	if in.Password != "" {
		if e.PasswordHash, err = s.hasher.Hash(in.Password); err != nil {
			return model.Employee{}, err
		}
	}
	return c.store.PutEmployee(ctx, e)
}

// ListProjects returns every project.
func (s *Service) ListProjects(ctx context.Context) ([]model.Project, error) {
	c, err := s.running()
	if err != nil {
		return nil, err
	}
	return c.store.ListProjects(ctx)
}

// GetProject returns one project by id.
func (s *Service) GetProject(ctx context.Context, id string) (model.Project, error) {
	c, err := s.running()
	if err != nil {
		return model.Project{}, err
	}
	return c.store.GetProject(ctx, id)
}

// SaveProject creates or updates a project.
func (s *Service) SaveProject(ctx context.Context, p model.Project) (model.Project, error) {
	c, err := s.running()
	if err != nil {
		return model.Project{}, err
	}
	return c.store.PutProject(ctx, p)
}

// Login checks an employee's password. An unknown email and a wrong password
// both yield ErrInvalidCredentials. A token is issued when auth is enabled.
func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	c, err := s.running()
	if err != nil {
		return Session{}, err
	}

	e, err := c.store.GetEmployeeByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		metrics.RecordAuthFailure("unknown_email")
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, err
	}
	if err := s.hasher.Verify(password, e.PasswordHash); err != nil {
		metrics.RecordAuthFailure("bad_password")
		s.logger.Info(ctx, "login rejected", logger.String("employeeId", e.ID))
		return Session{}, err
	}

	session := Session{Employee: e}
	if s.tokens.Enabled() {
		token, expiresAt, err := s.tokens.Issue(e.ID)
		if err != nil {
			return Session{}, fmt.Errorf("issue token: %w", err)
		}
		session.Token = token
		session.ExpiresAt = &expiresAt
	}
	return session, nil
}

// AuthEnabled reports whether mutating routes require a session token.
func (s *Service) AuthEnabled() bool {
	return s.tokens.Enabled()
}

// Authenticate validates a session token and returns its claims.
func (s *Service) Authenticate(token string) (*auth.Claims, error) {
	if !s.tokens.Enabled() {
		return nil, ErrAuthDisabled
	}
	return s.tokens.Validate(token)
}
