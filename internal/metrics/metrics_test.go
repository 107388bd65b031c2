package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mattjoyce/overviewd/internal/command"
)

func TestMetricsExposition(t *testing.T) {
	m := New()

	m.Submitted(command.TypeShow)
	m.Submitted(command.TypeShow)
	m.Dropped(command.TypeToggle)
	m.Finished(command.TypeShow, command.StatusCompleted, false)
	m.Finished(command.TypeHome, command.StatusCanceled, true)
	m.Suppressed()
	m.Depth(2)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Result().Body)
	if err != nil {
		t.Fatal(err)
	}
	out := string(body)

	for _, want := range []string{
		`overviewd_commands_submitted_total{type="show"} 2`,
		`overviewd_commands_dropped_total{type="toggle"} 1`,
		`overviewd_commands_finished_total{status="completed",type="show"} 1`,
		`overviewd_commands_finished_total{status="canceled",type="home"} 1`,
		`overviewd_commands_timed_out_total{type="home"} 1`,
		`overviewd_toggles_suppressed_total 1`,
		`overviewd_queue_depth 2`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
