package repository

import (
	"slices"

	"github.com/okian/connecthub/internal/domain/model"
)

// cloneEmployee detaches e from caller-owned slices.
func cloneEmployee(e model.Employee) model.Employee {
	e.Skills = slices.Clone(e.Skills)
	e.Languages = slices.Clone(e.Languages)
	e.Interests = slices.Clone(e.Interests)
	e.CurrentProjects = slices.Clone(e.CurrentProjects)
	e.PastProjects = slices.Clone(e.PastProjects)
	if e.Availability != nil {
		a := *e.Availability
		e.Availability = &a
	}
	return e
}

func cloneProject(p model.Project) model.Project {
	p.Technologies = slices.Clone(p.Technologies)
	p.RequiredSkills = slices.Clone(p.RequiredSkills)
	p.TeamMembers = slices.Clone(p.TeamMembers)
	if p.TeamCapacity != nil {
		tc := *p.TeamCapacity
		tc.MissingRoles = make([]model.MissingRole, len(p.TeamCapacity.MissingRoles))
		for i, r := range p.TeamCapacity.MissingRoles {
			r.Skills = slices.Clone(r.Skills)
			tc.MissingRoles[i] = r
		}
		p.TeamCapacity = &tc
	}
	return p
}
