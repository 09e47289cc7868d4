package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHandlerExposesCollectors(t *testing.T) {
	SessionOutcomes.WithLabelValues("generation", "ready").Inc()
	if err := RegisterCache("test", func() CacheStats { return CacheStats{Hits: 3, Misses: 1, Entries: 1} }); err != nil {
		t.Fatalf("RegisterCache: %v", err)
	}
	if err := RegisterCache("test", func() CacheStats { return CacheStats{} }); err != nil {
		t.Fatalf("second registration should be ignored: %v", err)
	}

	srv := httptest.NewServer(Handler())
	defer srv.Close()
	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	for _, want := range []string{
		`shadowcast_session_outcomes_total{kind="generation",state="ready"}`,
		`shadowcast_cache_hits_total{cache="test"} 3`,
		`shadowcast_cache_entries{cache="test"} 1`,
		`go_goroutines`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
