// Package model contains domain models passed between layers.
package model

// Skill is a single technical skill on an employee profile.
type Skill struct {
	Name              string  `json:"name"`
	Category          string  `json:"category,omitempty"`
	ProficiencyLevel  string  `json:"proficiencyLevel,omitempty"`
	YearsOfExperience float64 `json:"yearsOfExperience,omitempty"`
}

// Availability describes how much an employee can take on.
type Availability struct {
	Status        string  `json:"status"` // available, partially_available, busy, on_leave
	HoursPerWeek  float64 `json:"hoursPerWeek"`
	AvailableFrom string  `json:"availableFrom,omitempty"`
	Notes         string  `json:"notes,omitempty"`
}

// Employee is a person that can be matched against project roles.
type Employee struct {
	ID                string        `json:"id"`
	EmployeeCode      string        `json:"employeeCode,omitempty"`
	FirstName         string        `json:"firstName"`
	LastName          string        `json:"lastName"`
	Email             string        `json:"email"`
	Avatar            string        `json:"avatar,omitempty"`
	Location          string        `json:"location,omitempty"`
	Languages         []string      `json:"languages,omitempty"`
	BusinessUnitID    string        `json:"businessUnitId,omitempty"`
	BusinessUnitName  string        `json:"businessUnitName,omitempty"`
	Department        string        `json:"department,omitempty"`
	Role              string        `json:"role"`
	Skills            []Skill       `json:"skills"`
	Interests         []string      `json:"interests,omitempty"`
	YearsOfExperience float64       `json:"yearsOfExperience"`
	CurrentProjects   []string      `json:"currentProjects"`
	PastProjects      []string      `json:"pastProjects"`
	Availability      *Availability `json:"availability,omitempty"`
	TotalCommits      int           `json:"totalCommits"`
	IsActive          bool          `json:"isActive"`
	CreatedAt         int64         `json:"createdAt,omitempty"` // unix millis
	UpdatedAt         int64         `json:"updatedAt,omitempty"` // unix millis

	// PasswordHash is a bcrypt hash. It never leaves the process.
	PasswordHash string `json:"-"`
}

// FullName joins first and last name.
func (e Employee) FullName() string {
	switch {
	case e.FirstName == "":
		return e.LastName
	case e.LastName == "":
		return e.FirstName
	}
	return e.FirstName + " " + e.LastName
}
