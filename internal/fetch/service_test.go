package fetch

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// stubTransport serves the listing fixture for listing URLs and the
// article fixture for everything else, without touching the network.
type stubTransport struct{}

func (stubTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	body := articleHTML
	if strings.Contains(req.URL.Path, "/news/") {
		body = listingHTML
	}
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
		Request:    req,
	}, nil
}

func TestRunStopsAtNormalizedAnchor(t *testing.T) {
	t.Parallel()

	service := &Service{
		client: NewClientWithHTTP(&http.Client{Transport: stubTransport{}}),
		loc:    time.UTC,
		log:    zerolog.Nop(),
	}

	// The anchor carries www, a tracking param, and a fragment; the walk
	// must still stop at the matching card on the listing page.
	summary, err := service.Run(context.Background(), Options{
		AnchorURL: "https://www.championat.com/hockey/news-5000.html?utm_source=tg#top",
		Smoke:     true,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if summary.PagesWalked != 1 {
		t.Fatalf("expected 1 page walked, got %d", summary.PagesWalked)
	}
	if summary.Processed != 1 {
		t.Fatalf("expected 1 card before the anchor, got %d", summary.Processed)
	}
	if summary.Failed != 0 {
		t.Fatalf("expected no failures, got %d", summary.Failed)
	}
	if summary.Inserted != 0 {
		t.Fatalf("smoke run must not write, got %d inserts", summary.Inserted)
	}
}
