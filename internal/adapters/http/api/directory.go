package api

import (
	"context"
	"net/http"

	service "github.com/okian/connecthub/internal/app"
	"github.com/okian/connecthub/internal/domain/model"
)

// DirectoryDependencies reads and writes employees and projects.
type DirectoryDependencies interface {
	ListEmployees(ctx context.Context) ([]model.Employee, error)
	GetEmployee(ctx context.Context, id string) (model.Employee, error)
	SaveEmployee(ctx context.Context, in service.EmployeeInput) (model.Employee, error)
	ListProjects(ctx context.Context) ([]model.Project, error)
	GetProject(ctx context.Context, id string) (model.Project, error)
	SaveProject(ctx context.Context, p model.Project) (model.Project, error)
}

// employeeRequest is the body of POST /employees.
type employeeRequest struct {
	service.EmployeeInput

	Email string `json:"email" validate:"required,email"`
}

// EmployeesHandler handles employee requests.
type EmployeesHandler struct {
	deps DirectoryDependencies
}

// NewEmployeesHandler creates a new employees handler.
func NewEmployeesHandler(deps DirectoryDependencies) *EmployeesHandler {
	return &EmployeesHandler{deps: deps}
}

// HandleCollection handles GET and POST /employees.
func (h *EmployeesHandler) HandleCollection(w http.ResponseWriter, r *http.Request) {
	const op = "api.employees"
	switch r.Method {
	case http.MethodGet:
		list, err := h.deps.ListEmployees(r.Context())
		if err != nil {
			writeFailure(w, Wrap(op, err))
			return
		}
		writeJSON(w, http.StatusOK, list)
	case http.MethodPost:
		var req employeeRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeFailure(w, WrapKind(op, ErrBadRequest, err))
			return
		}
		in := req.EmployeeInput
		in.Employee.Email = req.Email
		saved, err := h.deps.SaveEmployee(r.Context(), in)
		if err != nil {
			writeFailure(w, Wrap(op, err))
			return
		}
		writeJSON(w, http.StatusOK, saved)
	default:
		http.NotFound(w, r)
	}
}

// HandleGet handles GET /employees/{id}.
func (h *EmployeesHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_employee"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	id := pathID(r, "/employees/")
	if id == "" {
		writeFailure(w, NewKind(op, ErrBadRequest))
		return
	}
	e, err := h.deps.GetEmployee(r.Context(), id)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// projectRequest is the body of POST /projects.
type projectRequest struct {
	model.Project

	Name string `json:"name" validate:"required"`
}

// ProjectsHandler handles project requests.
type ProjectsHandler struct {
	deps DirectoryDependencies
}

// NewProjectsHandler creates a new projects handler.
func NewProjectsHandler(deps DirectoryDependencies) *ProjectsHandler {
	return &ProjectsHandler{deps: deps}
}

// HandleCollection handles GET and POST /projects.
func (h *ProjectsHandler) HandleCollection(w http.ResponseWriter, r *http.Request) {
	const op = "api.projects"
	switch r.Method {
	case http.MethodGet:
		list, err := h.deps.ListProjects(r.Context())
		if err != nil {
			writeFailure(w, Wrap(op, err))
			return
		}
		writeJSON(w, http.StatusOK, list)
	case http.MethodPost:
		var req projectRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeFailure(w, WrapKind(op, ErrBadRequest, err))
			return
		}
		p := req.Project
		p.Name = req.Name
		saved, err := h.deps.SaveProject(r.Context(), p)
		if err != nil {
			writeFailure(w, Wrap(op, err))
			return
		}
		writeJSON(w, http.StatusOK, saved)
	default:
		http.NotFound(w, r)
	}
}

// HandleGet handles GET /projects/{id}.
func (h *ProjectsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_project"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	id := pathID(r, "/projects/")
	if id == "" {
		writeFailure(w, NewKind(op, ErrBadRequest))
		return
	}
	p, err := h.deps.GetProject(r.Context(), id)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, p)
}
