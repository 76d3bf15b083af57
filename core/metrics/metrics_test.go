package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/gaurav-prasanna/structmark/core"
)

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(documentsTotal.WithLabelValues("pdf", "ok"))
	Document("pdf", "ok")
	if got := testutil.ToFloat64(documentsTotal.WithLabelValues("pdf", "ok")); got != before+1 {
		t.Errorf("documents = %v, want %v", got, before+1)
	}

	dropped := testutil.ToFloat64(spansTotal.WithLabelValues("dropped"))
	Spans(3, 1, 2)
	if got := testutil.ToFloat64(spansTotal.WithLabelValues("dropped")); got != dropped+2 {
		t.Errorf("dropped = %v, want %v", got, dropped+2)
	}

	h5 := testutil.ToFloat64(recordsTotal.WithLabelValues("header_level_5"))
	Records([]core.Record{{Kind: core.KindHeaderLevel, Level: 5}, {Kind: core.KindTitle}})
	if got := testutil.ToFloat64(recordsTotal.WithLabelValues("header_level_5")); got != h5+1 {
		t.Errorf("header_level_5 = %v, want %v", got, h5+1)
	}

	failed := testutil.ToFloat64(labelerRequestsTotal.WithLabelValues("error"))
	LabelerRequest(errors.New("boom"))
	if got := testutil.ToFloat64(labelerRequestsTotal.WithLabelValues("error")); got != failed+1 {
		t.Errorf("labeler errors = %v, want %v", got, failed+1)
	}
}

func TestHandler(t *testing.T) {
	Stage("parse", time.Now())
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"structmark_stage_duration_seconds", "go_goroutines"} {
		if !strings.Contains(body, want) {
			t.Errorf("exposition lacks %s", want)
		}
	}
}
