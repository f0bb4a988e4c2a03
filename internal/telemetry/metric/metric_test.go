package metric

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	if r.registry == nil || r.BoardsLoaded == nil || r.Flushes == nil || r.RequestDuration == nil {
		t.Fatal("registry fields not initialized")
	}
}

func TestGlobal(t *testing.T) {
	if Global() != Global() {
		t.Error("Global() should return the same instance")
	}
}

func TestHandler_ServesApplicationMetrics(t *testing.T) {
	r := NewRegistry()
	r.Flushes.WithLabelValues("ok").Inc()
	r.BoardsLoaded.Set(3)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	for _, want := range []string{
		`boardmesh_storage_flushes_total{result="ok"} 1`,
		"boardmesh_boards_loaded 3",
		"go_goroutines",
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

type staticSource []BoardStat

func (s staticSource) BoardStats() []BoardStat { return s }

func TestBoardCollector(t *testing.T) {
	r := NewRegistry()
	r.Registerer().MustRegister(NewBoardCollector(staticSource{
		{Name: "demo", Elements: 12, Participants: 2},
	}))

	families, err := r.Gatherer().Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	found := map[string]float64{}
	for _, f := range families {
		for _, m := range f.GetMetric() {
			if m.GetGauge() != nil && len(m.GetLabel()) == 1 && m.GetLabel()[0].GetValue() == "demo" {
				found[f.GetName()] = m.GetGauge().GetValue()
			}
		}
	}
	if found["boardmesh_board_elements"] != 12 || found["boardmesh_board_participants"] != 2 {
		t.Fatalf("collected = %v", found)
	}
}
