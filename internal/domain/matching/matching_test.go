package matching_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/okian/connecthub/internal/domain/matching"
	"github.com/okian/connecthub/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func employee(id, role string, years float64, skillNames ...string) model.Employee {
	e := model.Employee{ID: id, FirstName: id, Role: role, YearsOfExperience: years}
	for _, n := range skillNames {
		e.Skills = append(e.Skills, model.Skill{Name: n})
	}
	return e
}

func ids(results []matching.Result) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.EmployeeID
	}
	return out
}

func TestScorer_ConcreteScenario(t *testing.T) {
	Convey("Given a React frontend developer with 8 years", t, func() {
		scorer := matching.NewScorer()
		pool := []model.Employee{employee("e1", "Frontend Developer", 8, "React")}

		Convey("When matching a Frontend Developer role on react", func() {
			res := scorer.Score(pool, matching.Query{MissingRole: "Frontend Developer", Keywords: "react"})

			Convey("Then the score is 69", func() {
				So(res, ShouldHaveLength, 1)
				So(res[0].MatchScore, ShouldEqual, 69)
				So(res[0].Breakdown, ShouldResemble, matching.Breakdown{
					Primary: 50, Role: 10, Tokens: 5, Experience: 4,
				})
				So(res[0].Skills, ShouldResemble, []matching.AnnotatedSkill{{Name: "React", Match: true}})
			})
		})
	})
}

func TestScorer_HardGate(t *testing.T) {
	Convey("Given a pool where one employee knows React", t, func() {
		scorer := matching.NewScorer()
		pool := []model.Employee{
			employee("angular", "Frontend Developer", 20, "Angular", "TypeScript"),
			employee("react", "Backend Developer", 0, "React.js"),
			employee("vue", "Frontend Developer", 12, "Vue"),
		}

		Convey("When the primary keyword is react", func() {
			res := scorer.Score(pool, matching.Query{
				MissingRole:         "Frontend Developer",
				Keywords:            "REACT, typescript",
				ProjectTechnologies: []string{"TypeScript", "Angular"},
			})

			Convey("Then only that employee is returned", func() {
				So(ids(res), ShouldResemble, []string{"react"})
			})
		})

		Convey("When keywords are blank but the role names a skill", func() {
			res := scorer.Score(pool, matching.Query{MissingRole: "vue"})

			Convey("Then the role is used as the keyword source", func() {
				So(ids(res), ShouldResemble, []string{"vue"})
				So(res[0].Breakdown.Primary, ShouldEqual, 50)
			})
		})

		Convey("When the primary keyword matches nobody", func() {
			res := scorer.Score(pool, matching.Query{Keywords: "cobol"})

			Convey("Then the result is empty", func() {
				So(res, ShouldBeEmpty)
			})
		})
	})
}

func TestScorer_Components(t *testing.T) {
	Convey("Given a scorer", t, func() {
		scorer := matching.NewScorer()

		Convey("When project technologies overlap the skills", func() {
			e := employee("e", "Engineer", 0, "Go", "Kubernetes", "PostgreSQL", "Redis")
			res := scorer.Score([]model.Employee{e}, matching.Query{
				MissingRole:         "engineer",
				Keywords:            "golang",
				ProjectTechnologies: []string{"Go", "K8s", "PostgreSQL", "Redis", "Kafka"},
			})

			Convey("Then secondary excludes the primary and both caps apply", func() {
				So(res, ShouldHaveLength, 1)
				b := res[0].Breakdown
				So(b.Primary, ShouldEqual, 50)
				So(b.Secondary, ShouldEqual, 20) // 3 hits, capped
				So(b.Overlap, ShouldEqual, 20)   // 4 hits
				So(b.Role, ShouldEqual, 10)
				So(b.Tokens, ShouldEqual, 5)
				So(res[0].MatchScore, ShouldEqual, 100)
				So(b.Primary+b.Secondary+b.Overlap+b.Role+b.Tokens, ShouldBeGreaterThan, 100)
			})
		})

		Convey("When tokens hit interests and languages", func() {
			e := employee("e", "Designer", 0, "Figma")
			e.Interests = []string{"Electronic Music"}
			e.Languages = []string{"Italian", "English"}
			res := scorer.Score([]model.Employee{e}, matching.Query{Keywords: "figma music italian"})

			Convey("Then token hits are capped at 10", func() {
				So(res[0].Breakdown.Tokens, ShouldEqual, 10)
			})
		})

		Convey("When there are no keyword tokens", func() {
			e := employee("e", "Designer", 0)
			e.Interests = []string{"Photography"}
			res := scorer.Score([]model.Employee{e}, matching.Query{ProjectTechnologies: []string{"photo"}})

			Convey("Then no token points are awarded", func() {
				So(res[0].Breakdown.Tokens, ShouldEqual, 0)
			})
		})

		Convey("When the employee worked on the project before", func() {
			e := employee("e", "Engineer", 0)
			e.PastProjects = []string{"Legacy APOLLO migration"}
			q := matching.QueryForProject(model.Project{Name: "Apollo", ProjectCode: "APL-7"}, "", "")
			res := scorer.Score([]model.Employee{e}, q)

			Convey("Then project affinity is awarded", func() {
				So(res[0].Breakdown.Affinity, ShouldEqual, 15)
			})
		})

		Convey("When the project has no display names", func() {
			e := employee("e", "Engineer", 0)
			e.CurrentProjects = []string{"Apollo"}
			res := scorer.Score([]model.Employee{e}, matching.QueryForProject(model.Project{}, "", ""))

			Convey("Then no affinity is awarded", func() {
				So(res[0].Breakdown.Affinity, ShouldEqual, 0)
			})
		})

		Convey("When experience varies", func() {
			pool := []model.Employee{
				employee("neg", "x", -4),
				employee("one", "x", 1.9),
				employee("seven", "x", 7),
				employee("forty", "x", 40),
			}
			res := matching.NewScorer(matching.WithLimit(10)).Score(pool, matching.Query{})
			byID := map[string]int{}
			for _, r := range res {
				byID[r.EmployeeID] = r.Breakdown.Experience
			}

			Convey("Then it is floor(years/2) clamped to [0,10]", func() {
				So(byID["neg"], ShouldEqual, 0)
				So(byID["one"], ShouldEqual, 0)
				So(byID["seven"], ShouldEqual, 3)
				So(byID["forty"], ShouldEqual, 10)
			})
		})

		Convey("When the role does not contain the missing role", func() {
			res := scorer.Score([]model.Employee{employee("e", "QA Engineer", 0, "Python")}, matching.Query{MissingRole: "Data Scientist", Keywords: "python"})

			Convey("Then no role points are awarded", func() {
				So(res, ShouldHaveLength, 1)
				So(res[0].Breakdown.Role, ShouldEqual, 0)
				So(res[0].MatchScore, ShouldEqual, 55)
			})
		})
	})
}

func TestScorer_NoFilter(t *testing.T) {
	Convey("Given a pool and an empty query", t, func() {
		pool := []model.Employee{
			employee("a", "Engineer", 2, "Go"),
			employee("b", "Engineer", 10),
			employee("c", "Engineer", 6, "Rust"),
		}
		res := matching.NewScorer().Score(pool, matching.Query{ProjectTechnologies: []string{"Go"}})

		Convey("Then everyone is returned ranked by overlap and experience", func() {
			So(ids(res), ShouldResemble, []string{"a", "b", "c"})
			for _, r := range res {
				So(r.Breakdown.Role, ShouldEqual, 10)
				So(r.Breakdown.Tokens, ShouldEqual, 0)
				So(r.Breakdown.Primary, ShouldEqual, 0)
			}
			So(res[0].MatchScore, ShouldEqual, 26)
			So(res[1].MatchScore, ShouldEqual, 15)
			So(res[2].MatchScore, ShouldEqual, 13)
		})
	})
}

func TestScorer_EdgeCases(t *testing.T) {
	Convey("Given edge-case inputs", t, func() {
		scorer := matching.NewScorer()

		Convey("When the pool is empty", func() {
			Convey("Then the result is empty", func() {
				So(scorer.Score(nil, matching.Query{MissingRole: "Backend", Keywords: "node"}), ShouldBeEmpty)
				So(scorer.Score([]model.Employee{}, matching.Query{}), ShouldBeEmpty)
			})
		})

		Convey("When the primary keyword has no alphanumerics", func() {
			pool := []model.Employee{
				employee("a", "Dev", 4, "Python"),
				employee("b", "Dev", 4, "React"),
			}

			Convey("Then the result is empty", func() {
				So(scorer.Score(pool, matching.Query{Keywords: "!!! react"}), ShouldBeEmpty)
				So(scorer.Score(pool, matching.Query{MissingRole: "++"}), ShouldBeEmpty)
			})
		})

		Convey("When an employee has no skills and there is no gate", func() {
			res := scorer.Score([]model.Employee{employee("e", "Dev", 0)}, matching.Query{ProjectTechnologies: []string{"Go"}})

			Convey("Then it appears with zero technology points", func() {
				So(res, ShouldHaveLength, 1)
				So(res[0].Breakdown.Primary+res[0].Breakdown.Secondary+res[0].Breakdown.Overlap, ShouldEqual, 0)
				So(res[0].Skills, ShouldBeEmpty)
			})
		})

		Convey("When a skill has an empty name", func() {
			e := employee("e", "Dev", 0, "", "Go")
			res := scorer.Score([]model.Employee{e}, matching.Query{ProjectTechnologies: []string{"", "Go"}})

			Convey("Then it never matches", func() {
				So(res[0].Skills, ShouldResemble, []matching.AnnotatedSkill{
					{Name: "Go", Match: true},
					{Name: "", Match: false},
				})
				So(res[0].Breakdown.Overlap, ShouldEqual, 5)
			})
		})

		Convey("When scores tie", func() {
			pool := []model.Employee{
				employee("first", "Dev", 4, "Go"),
				employee("second", "Dev", 4, "Go"),
				employee("third", "Dev", 4, "Go"),
			}
			res := scorer.Score(pool, matching.Query{Keywords: "go"})

			Convey("Then input order is kept", func() {
				So(ids(res), ShouldResemble, []string{"first", "second", "third"})
			})
		})
	})
}

func TestScorer_Annotation(t *testing.T) {
	Convey("Given an employee with several skills", t, func() {
		e := employee("e", "Dev", 0, "CSS", "React", "Tailwind", "TypeScript")
		res := matching.NewScorer().Score([]model.Employee{e}, matching.Query{
			Keywords:            "react",
			ProjectTechnologies: []string{"typescript"},
		})

		Convey("Then all skills are listed with matches first", func() {
			So(res[0].Skills, ShouldResemble, []matching.AnnotatedSkill{
				{Name: "React", Match: true},
				{Name: "TypeScript", Match: true},
				{Name: "CSS", Match: false},
				{Name: "Tailwind", Match: false},
			})
		})
	})
}

func TestScorer_TopN(t *testing.T) {
	Convey("Given 20 eligible employees with distinct scores", t, func() {
		techs := []string{"t1", "t2", "t3", "t4"}
		pool := make([]model.Employee, 0, 20)
		for i := 0; i < 20; i++ {
			hits := i / 4
			e := employee(fmt.Sprintf("e%d", i), "Dev", float64(2*(i%4)), techs[:hits]...)
			pool = append(pool, e)
		}
		q := matching.Query{ProjectTechnologies: techs}

		Convey("When scoring with the default limit", func() {
			res := matching.NewScorer().Score(pool, q)
			all := matching.NewScorer(matching.WithLimit(100)).Score(pool, q)

			Convey("Then exactly the five highest are returned in order", func() {
				So(res, ShouldHaveLength, 5)
				So(ids(res), ShouldResemble, []string{"e19", "e18", "e17", "e16", "e15"})
				So(res, ShouldResemble, all[:5])
				for i := 1; i < len(all); i++ {
					So(all[i-1].MatchScore, ShouldBeGreaterThan, all[i].MatchScore)
				}
			})
		})

		Convey("When a custom limit is set", func() {
			s := matching.NewScorer(matching.WithLimit(3), matching.WithLimit(0))

			Convey("Then it is honored and invalid values are ignored", func() {
				So(s.Limit(), ShouldEqual, 3)
				So(s.Score(pool, q), ShouldHaveLength, 3)
			})
		})
	})
}

func TestScorer_Bounds(t *testing.T) {
	Convey("Given a large mixed pool", t, func() {
		pool := make([]model.Employee, 0, 50)
		names := []string{"Go", "React", "Node.js", "C#", ".NET", "K8s", "Python"}
		for i := 0; i < 50; i++ {
			e := employee(fmt.Sprintf("e%d", i), "Senior Developer", float64(i), names[:i%len(names)+1]...)
			e.Interests = []string{"python tooling"}
			e.CurrentProjects = []string{"Apollo"}
			pool = append(pool, e)
		}
		s := matching.NewScorer(matching.WithLimit(50))

		Convey("When scoring concurrently", func() {
			q := matching.Query{
				MissingRole:         "developer",
				Keywords:            "go react node python",
				ProjectTechnologies: names,
				ProjectNames:        []string{"apollo"},
			}
			var wg sync.WaitGroup
			out := make([][]matching.Result, 8)
			for g := range out {
				wg.Add(1)
				go func(g int) {
					defer wg.Done()
					out[g] = s.Score(pool, q)
				}(g)
			}
			wg.Wait()

			Convey("Then every score is within [0,100] and runs agree", func() {
				for _, r := range out[0] {
					So(r.MatchScore, ShouldBeBetweenOrEqual, 0, 100)
				}
				for g := 1; g < len(out); g++ {
					So(out[g], ShouldResemble, out[0])
				}
			})
		})
	})
}
