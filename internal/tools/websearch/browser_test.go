package websearch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// fakeHeadlessExtractor lets the fallback-wiring tests avoid driving a real
// Chrome instance; it records whether it was invoked and returns a scripted
// result.
type fakeHeadlessExtractor struct {
	called  bool
	content string
	err     error
}

func (f *fakeHeadlessExtractor) Extract(ctx context.Context, targetURL string) (string, error) {
	f.called = true
	if f.err != nil {
		return "", f.err
	}
	return f.content, nil
}

func TestContentExtractor_FallsBackToHeadlessOnThinContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body><main>Short</main></body></html>`))
	}))
	defer server.Close()

	fake := &fakeHeadlessExtractor{content: strings.Repeat("rendered content ", 20)}
	extractor := NewContentExtractorForTesting().WithHeadlessFallback(fake)

	content, err := extractor.Extract(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if !fake.called {
		t.Fatal("expected headless fallback to be invoked for thin primary-tier content")
	}
	if !strings.Contains(content, "rendered content") {
		t.Errorf("expected rendered content from headless tier, got: %s", content)
	}
}

func TestContentExtractor_DoesNotFallBackWhenPrimaryContentIsSubstantial(t *testing.T) {
	longParagraph := strings.Repeat("Substantial article content. ", 20)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body><main><p>` + longParagraph + `</p></main></body></html>`))
	}))
	defer server.Close()

	fake := &fakeHeadlessExtractor{content: "should not be used"}
	extractor := NewContentExtractorForTesting().WithHeadlessFallback(fake)

	content, err := extractor.Extract(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if fake.called {
		t.Error("headless fallback should not run when the primary tier already returned substantial content")
	}
	if strings.Contains(content, "should not be used") {
		t.Error("content should come from the primary tier, not the headless fallback")
	}
}

func TestContentExtractor_HeadlessFailureFallsBackToThinPrimaryContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body><main>Short</main></body></html>`))
	}))
	defer server.Close()

	fake := &fakeHeadlessExtractor{err: errors.New("navigation failed")}
	extractor := NewContentExtractorForTesting().WithHeadlessFallback(fake)

	content, err := extractor.Extract(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("expected thin primary content to be returned rather than an error, got: %v", err)
	}
	if !fake.called {
		t.Fatal("expected headless fallback to have been attempted")
	}
	if content == "" {
		t.Error("expected the thin primary-tier content as a last resort")
	}
}

func TestContentExtractor_NoHeadlessConfiguredReturnsThinContentAsIs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body><main>Short</main></body></html>`))
	}))
	defer server.Close()

	extractor := NewContentExtractorForTesting()
	content, err := extractor.Extract(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if content == "" {
		t.Error("expected some (thin) content when no headless fallback is configured")
	}
}
