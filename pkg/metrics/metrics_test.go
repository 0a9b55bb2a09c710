package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	. "github.com/smartystreets/goconvey/convey"
)

func TestManagerCreation(t *testing.T) {
	Convey("Given a private registry", t, func() {
		registry := prometheus.NewRegistry()

		Convey("When a manager is created with custom options", func() {
			m := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithHistogramBuckets([]float64{1, 2, 3}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then collectors are registered under the namespace", func() {
				So(m, ShouldNotBeNil)
				m.matchRequests.Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)

				found := false
				for _, f := range families {
					if f.GetName() == "test_unit_match_requests_total" {
						found = true
					}
				}
				So(found, ShouldBeTrue)
			})
		})
	})
}

func TestGlobalRecorders(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When commits are recorded", func() {
			before := value("connecthub_ingest_commits_accepted_total")
			RecordCommitsAccepted(3)
			RecordCommitsDuplicate(1)
			RecordCommitsRejected(0)

			Convey("Then the counters move", func() {
				So(value("connecthub_ingest_commits_accepted_total"), ShouldEqual, before+3)
			})
		})

		Convey("When a match is recorded", func() {
			before := value("connecthub_match_requests_total")
			RecordMatch(0.3, 12, 5)

			Convey("Then the request counter increments", func() {
				So(value("connecthub_match_requests_total"), ShouldEqual, before+1)
			})
		})

		Convey("When gauges are updated", func() {
			UpdateQueueSize(7)
			UpdateQueueCapacity(100)
			UpdateWorkerCount(4)
			UpdateContributorCount(9)

			Convey("Then they hold the latest values", func() {
				So(value("connecthub_ingest_queue_size"), ShouldEqual, 7)
				So(value("connecthub_ingest_queue_capacity"), ShouldEqual, 100)
				So(value("connecthub_ingest_worker_count"), ShouldEqual, 4)
				So(value("connecthub_contributors_total"), ShouldEqual, 9)
			})
		})

		Convey("When system gauges are updated", func() {
			UpdateSystemMemoryUsage(2048)
			UpdateSystemGoroutineCount(12)
			RecordSystemGCPauseTime(0.5)

			Convey("Then they hold the latest values", func() {
				So(value("connecthub_system_memory_bytes"), ShouldEqual, 2048)
				So(value("connecthub_system_goroutines"), ShouldEqual, 12)
				So(value("connecthub_system_gc_pause_milliseconds"), ShouldEqual, 0.5)
			})
		})

		Convey("When labelled recorders are used", func() {
			RecordHTTPRequest("match", "POST", "200")
			RecordHTTPRequestDuration("match", "POST", "200", 1.5)
			RecordRateLimited("match")
			RecordWorkerError("store")
			RecordStoreLatency("memory", "list_employees", 0.1)
			RecordAuthFailure("bad_password")
			RecordMatchError()
			RecordWorkerProcessed()

			Convey("Then the registry exposes them", func() {
				families, err := GetRegistry().Gather()
				So(err, ShouldBeNil)
				names := make([]string, 0, len(families))
				for _, f := range families {
					names = append(names, f.GetName())
				}
				joined := strings.Join(names, ",")
				So(joined, ShouldContainSubstring, "connecthub_http_requests_total")
				So(joined, ShouldContainSubstring, "connecthub_auth_failures_total")
				So(joined, ShouldContainSubstring, "connecthub_store_operation_latency_milliseconds")
			})
		})
	})
}

// value reads an unlabelled counter or gauge from the global registry.
func value(name string) float64 {
	families, err := GetRegistry().Gather()
	if err != nil {
		return -1
	}
	for _, f := range families {
		if f.GetName() != name || len(f.GetMetric()) == 0 {
			continue
		}
		m := f.GetMetric()[0]
		if m.GetCounter() != nil {
			return m.GetCounter().GetValue()
		}
		return m.GetGauge().GetValue()
	}
	return 0
}
