package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/okian/connecthub/internal/adapters/http/api"
	service "github.com/okian/connecthub/internal/app"
	"github.com/okian/connecthub/internal/auth"
	"github.com/okian/connecthub/internal/domain/model"
	"github.com/okian/connecthub/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	_ = logger.SetLevelString("error")
}

// newMux starts a memory-backed service and registers the API on a mux.
func newMux(svcOpts []service.Option, srvOpts ...api.ServerOption) (*http.ServeMux, *service.Service) {
	opts := append([]service.Option{
		service.WithWorkerCount(2),
		service.WithHasher(auth.NewHasher(auth.WithCost(bcrypt.MinCost))),
	}, svcOpts...)
	svc := service.New(opts...)
	So(svc.Start(context.Background()), ShouldBeNil)

	mux := http.NewServeMux()
	api.NewServer(svc, svc, srvOpts...).Register(context.Background(), mux, svc)
	return mux, svc
}

func do(mux http.Handler, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if s, ok := body.(string); ok {
		buf.WriteString(s)
	} else if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decode[T any](w *httptest.ResponseRecorder) T {
	var v T
	So(json.Unmarshal(w.Body.Bytes(), &v), ShouldBeNil)
	return v
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func TestServer_Basics(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		mux, svc := newMux(nil)
		defer svc.Stop()

		Convey("Then /healthz serves Prometheus metrics", func() {
			w := do(mux, http.MethodGet, "/healthz", nil)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "connecthub_")
		})

		Convey("Then /stats reports a started service", func() {
			w := do(mux, http.MethodGet, "/stats", nil)
			So(w.Code, ShouldEqual, http.StatusOK)
			stats := decode[map[string]any](w)
			So(stats["started"], ShouldEqual, true)
		})

		Convey("Then wrong methods are not found", func() {
			So(do(mux, http.MethodGet, "/match", nil).Code, ShouldEqual, http.StatusNotFound)
			So(do(mux, http.MethodPost, "/stats", nil).Code, ShouldEqual, http.StatusNotFound)
			So(do(mux, http.MethodDelete, "/employees", nil).Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestServer_Directory(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		mux, svc := newMux(nil)
		defer svc.Stop()

		Convey("When an employee is posted", func() {
			w := do(mux, http.MethodPost, "/employees", map[string]any{
				"firstName": "Ada",
				"lastName":  "Lovelace",
				"email":     "ada@example.com",
				"role":      "Frontend Developer",
				"password":  "s3cret",
				"skills":    []map[string]any{{"name": "React"}},
			})
			So(w.Code, ShouldEqual, http.StatusOK)
			saved := decode[model.Employee](w)

			Convey("Then it can be fetched without its password", func() {
				get := do(mux, http.MethodGet, "/employees/"+saved.ID, nil)
				So(get.Code, ShouldEqual, http.StatusOK)
				So(get.Body.String(), ShouldNotContainSubstring, "password")
				So(decode[model.Employee](get).Email, ShouldEqual, "ada@example.com")

				list := do(mux, http.MethodGet, "/employees", nil)
				So(decode[[]model.Employee](list), ShouldHaveLength, 1)
			})

			Convey("And a second employee with the same email conflicts", func() {
				dup := do(mux, http.MethodPost, "/employees", map[string]any{"email": "ADA@example.com"})
				So(dup.Code, ShouldEqual, http.StatusConflict)
				So(decode[errorBody](dup).Code, ShouldEqual, "conflict")
			})
		})

		Convey("When an employee has no valid email", func() {
			w := do(mux, http.MethodPost, "/employees", map[string]any{"firstName": "Nope"})

			Convey("Then it is rejected", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decode[errorBody](w).Message, ShouldContainSubstring, "Email")
			})
		})

		Convey("When unknown ids are requested", func() {
			So(do(mux, http.MethodGet, "/employees/missing", nil).Code, ShouldEqual, http.StatusNotFound)
			So(do(mux, http.MethodGet, "/projects/missing", nil).Code, ShouldEqual, http.StatusNotFound)
			So(do(mux, http.MethodGet, "/projects/a/b", nil).Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When a project is posted", func() {
			w := do(mux, http.MethodPost, "/projects", map[string]any{
				"name": "Apollo", "projectCode": "APL", "technologies": []string{"React"},
			})
			So(w.Code, ShouldEqual, http.StatusOK)
			p := decode[model.Project](w)

			Convey("Then it is listed and fetchable", func() {
				So(decode[[]model.Project](do(mux, http.MethodGet, "/projects", nil)), ShouldHaveLength, 1)
				got := decode[model.Project](do(mux, http.MethodGet, "/projects/"+p.ID, nil))
				So(got.Name, ShouldEqual, "Apollo")
			})
		})
	})
}

func TestServer_Match(t *testing.T) {
	Convey("Given employees and a project", t, func() {
		mux, svc := newMux(nil)
		defer svc.Stop()

		for i, skill := range []string{"React", "Go", "ReactJS"} {
			w := do(mux, http.MethodPost, "/employees", map[string]any{
				"firstName": fmt.Sprintf("E%d", i),
				"email":     fmt.Sprintf("e%d@example.com", i),
				"role":      "Developer",
				"skills":    []map[string]any{{"name": skill}},
			})
			So(w.Code, ShouldEqual, http.StatusOK)
		}
		p := decode[model.Project](do(mux, http.MethodPost, "/projects", map[string]any{
			"name": "Apollo", "technologies": []string{"React"},
		}))

		Convey("When matching for a React developer on the project", func() {
			w := do(mux, http.MethodPost, "/match", map[string]any{
				"project_id": p.ID, "missing_role": "Developer", "keywords": "react", "limit": 1,
			})

			Convey("Then the best React candidate is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				res := decode[service.MatchResponse](w)
				So(res.Eligible, ShouldEqual, 2)
				So(res.Candidates, ShouldHaveLength, 1)
				So(res.Candidates[0].Name, ShouldEqual, "E0")
				So(res.Candidates[0].Skills[0].Match, ShouldBeTrue)
			})
		})

		Convey("When the project is unknown", func() {
			w := do(mux, http.MethodPost, "/match", map[string]any{"project_id": "nope", "keywords": "react"})

			Convey("Then 404 is returned", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
				So(decode[errorBody](w).Code, ShouldEqual, "not_found")
			})
		})

		Convey("When the body is malformed or invalid", func() {
			So(do(mux, http.MethodPost, "/match", "{").Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, http.MethodPost, "/match", map[string]any{"limit": -1}).Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestServer_IngestAndAnalysis(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		mux, svc := newMux(nil)
		defer svc.Stop()

		body := map[string]any{"commits": []map[string]any{
			{
				"hash": "c1", "message": "add login", "timestamp": 1_000,
				"contributor": map[string]any{"name": "Ann", "email": "ann@example.com"},
				"files":       []map[string]any{{"filePath": "login.go", "linesAdded": 10}},
			},
			{
				"hash": "c2", "message": "add logout", "timestamp": 2_000,
				"contributor": map[string]any{"name": "Ann", "email": "ann@example.com"},
			},
			{
				"hash": "c1", "message": "add login", "timestamp": 1_000,
				"contributor": map[string]any{"name": "Ann", "email": "ann@example.com"},
			},
		}}

		Convey("When a batch is ingested", func() {
			w := do(mux, http.MethodPost, "/ingest", body)
			So(w.Code, ShouldEqual, http.StatusAccepted)
			res := decode[service.IngestResult](w)
			So(res.Accepted, ShouldEqual, 2)
			So(res.Duplicates, ShouldEqual, 1)
			So(waitFor(func() bool { return svc.Processed() == 2 }), ShouldBeTrue)

			Convey("Then contributors and features are readable", func() {
				contributors := decode[[]model.Contributor](do(mux, http.MethodGet, "/contributors", nil))
				So(contributors, ShouldHaveLength, 1)

				features := decode[[]model.FeatureWithFiles](do(mux, http.MethodGet, "/features?contributor_id="+contributors[0].ID, nil))
				So(features, ShouldHaveLength, 2)

				rank := do(mux, http.MethodGet, "/contributors/rank/"+contributors[0].ID, nil)
				So(rank.Code, ShouldEqual, http.StatusOK)
				So(rank.Body.String(), ShouldContainSubstring, `"featureCount":2`)
			})

			Convey("And the summary has the fixed shape", func() {
				w := do(mux, http.MethodGet, "/analysis/summary", nil)
				So(w.Code, ShouldEqual, http.StatusOK)
				sum := decode[map[string]any](w)
				totals := sum["summary"].(map[string]any)
				So(totals["totalCommitsAnalyzed"], ShouldEqual, 2)
				So(totals["totalContributors"], ShouldEqual, 1)
				So(totals["totalFilesChanged"], ShouldEqual, 1)
				So(sum["topContributors"], ShouldHaveLength, 1)
				So(sum["recentFeatures"], ShouldHaveLength, 2)
			})
		})

		Convey("When commits are invalid", func() {
			bad := do(mux, http.MethodPost, "/ingest", map[string]any{"commits": []map[string]any{
				{"hash": "x", "contributor": map[string]any{"name": "A", "email": "not-an-email"}},
			}})
			empty := do(mux, http.MethodPost, "/ingest", map[string]any{"commits": []any{}})

			Convey("Then they are rejected", func() {
				So(bad.Code, ShouldEqual, http.StatusBadRequest)
				So(empty.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When an unranked contributor is requested", func() {
			So(do(mux, http.MethodGet, "/contributors/rank/ghost", nil).Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

type stuckIngest struct{}

func (stuckIngest) Ingest(context.Context, []model.Commit) (service.IngestResult, error) {
	return service.IngestResult{Accepted: 1, Rejected: 2}, fmt.Errorf("%w: queue is full", service.ErrBackpressure)
}

func TestIngestHandler_Backpressure(t *testing.T) {
	Convey("Given an ingest handler whose queue is full", t, func() {
		h := api.NewIngestHandler(stuckIngest{})
		body := `{"commits":[{"hash":"a","contributor":{"name":"A","email":"a@example.com"}}]}`
		req := httptest.NewRequest(http.MethodPost, "/ingest", bytes.NewBufferString(body))
		w := httptest.NewRecorder()

		h.HandleIngest(w, req)

		Convey("Then 429 carries the partial counts", func() {
			So(w.Code, ShouldEqual, http.StatusTooManyRequests)
			got := decode[map[string]any](w)
			So(got["code"], ShouldEqual, "backpressure")
			So(got["accepted"], ShouldEqual, 1)
			So(got["rejected"], ShouldEqual, 2)
		})
	})
}

func TestServer_Auth(t *testing.T) {
	Convey("Given a server with authentication enabled", t, func() {
		mux, svc := newMux([]service.Option{service.WithAuth("test-secret", time.Hour)})
		defer svc.Stop()

		_, err := svc.SaveEmployee(context.Background(), service.EmployeeInput{
			Employee: model.Employee{FirstName: "Root", Email: "root@example.com"},
			Password: "pa55word",
		})
		So(err, ShouldBeNil)

		Convey("When posting without a token", func() {
			w := do(mux, http.MethodPost, "/projects", map[string]any{"name": "X"})

			Convey("Then it is unauthorized", func() {
				So(w.Code, ShouldEqual, http.StatusUnauthorized)
			})
		})

		Convey("When posting with a bad token", func() {
			w := do(mux, http.MethodPost, "/ingest", map[string]any{}, "Authorization", "Bearer nope")
			So(w.Code, ShouldEqual, http.StatusUnauthorized)
		})

		Convey("When reading without a token", func() {
			So(do(mux, http.MethodGet, "/projects", nil).Code, ShouldEqual, http.StatusOK)
		})

		Convey("When logging in", func() {
			w := do(mux, http.MethodPost, "/login", map[string]any{"email": "root@example.com", "password": "pa55word"})
			So(w.Code, ShouldEqual, http.StatusOK)
			session := decode[service.Session](w)
			So(session.Token, ShouldNotBeEmpty)

			Convey("Then the token authorizes writes", func() {
				post := do(mux, http.MethodPost, "/projects", map[string]any{"name": "X"},
					"Authorization", "Bearer "+session.Token)
				So(post.Code, ShouldEqual, http.StatusOK)
			})
		})

		Convey("When the password is wrong", func() {
			w := do(mux, http.MethodPost, "/login", map[string]any{"email": "root@example.com", "password": "guess"})

			Convey("Then the credentials are invalid", func() {
				So(w.Code, ShouldEqual, http.StatusUnauthorized)
				So(decode[errorBody](w).Code, ShouldEqual, "invalid_credentials")
			})
		})
	})
}

func TestServer_RateLimit(t *testing.T) {
	Convey("Given a server allowing one match per long interval", t, func() {
		mux, svc := newMux(nil, api.WithRateLimit(0.001, 1))
		defer svc.Stop()

		Convey("When two matches arrive back to back", func() {
			first := do(mux, http.MethodPost, "/match", map[string]any{})
			second := do(mux, http.MethodPost, "/match", map[string]any{})

			Convey("Then the second is rejected", func() {
				So(first.Code, ShouldEqual, http.StatusOK)
				So(second.Code, ShouldEqual, http.StatusTooManyRequests)
				So(second.Header().Get("Retry-After"), ShouldEqual, "1")
				So(decode[errorBody](second).Code, ShouldEqual, "rate_limited")
			})
		})
	})
}
