package model

// MissingRole is an open seat on a project team.
type MissingRole struct {
	Role     string   `json:"role"`
	Count    int      `json:"count"`
	Skills   []string `json:"skills,omitempty"`
	Priority string   `json:"priority,omitempty"`
}

// TeamCapacity tracks staffing for a project.
type TeamCapacity struct {
	RequiredSize int           `json:"requiredSize"`
	CurrentSize  int           `json:"currentSize"`
	MissingRoles []MissingRole `json:"missingRoles"`
}

// Project is a unit of work employees can be staffed on.
type Project struct {
	ID             string        `json:"id"`
	ProjectCode    string        `json:"projectCode,omitempty"`
	Name           string        `json:"name,omitempty"`
	Description    string        `json:"description,omitempty"`
	Status         string        `json:"status,omitempty"`   // planning, active, on_hold, completed, cancelled
	Priority       string        `json:"priority,omitempty"` // low, medium, high, critical
	Domain         string        `json:"domain,omitempty"`
	Location       string        `json:"location,omitempty"`
	Technologies   []string      `json:"technologies,omitempty"`
	RequiredSkills []string      `json:"requiredSkills,omitempty"`
	TeamCapacity   *TeamCapacity `json:"teamCapacity,omitempty"`
	TeamLead       string        `json:"teamLead,omitempty"`
	TeamMembers    []string      `json:"teamMembers,omitempty"`
	RepositoryURL  string        `json:"repositoryUrl,omitempty"`
	IsActive       bool          `json:"isActive"`
	CreatedAt      int64         `json:"createdAt,omitempty"`
	UpdatedAt      int64         `json:"updatedAt,omitempty"`
}

// DisplayNames returns the non-empty identifiers a person might have
// recorded the project under: its name and its project code.
func (p Project) DisplayNames() []string {
	names := make([]string, 0, 2)
	if p.Name != "" {
		names = append(names, p.Name)
	}
	if p.ProjectCode != "" {
		names = append(names, p.ProjectCode)
	}
	return names
}
