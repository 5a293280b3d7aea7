package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strings"
	"sync"
	"testing"

	"github.com/complytics/memegen/internal/domain"
	"github.com/complytics/memegen/internal/logger"
	"github.com/complytics/memegen/internal/storage"
)

// fakeGenerator satisfies Generator with scripted responses.
type fakeGenerator struct {
	mu         sync.Mutex
	textOut    string
	textErr    error
	imageFn    func(prompt string) ([]byte, string, error)
	textCalls  int
	imageCalls int
}

func (g *fakeGenerator) GenerateText(ctx context.Context, prompt string) (string, error) {
	g.mu.Lock()
	g.textCalls++
	g.mu.Unlock()
	return g.textOut, g.textErr
}

func (g *fakeGenerator) GenerateImage(ctx context.Context, prompt string) ([]byte, string, error) {
	g.mu.Lock()
	g.imageCalls++
	g.mu.Unlock()
	if g.imageFn != nil {
		return g.imageFn(prompt)
	}
	return testPNG(), "image/png", nil
}

// testPNG returns a valid 2x2 PNG so dimension sniffing and workbook
// embedding operate on real image data.
func testPNG() []byte {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

func makeTable(n int) domain.IdeaTable {
	table := make(domain.IdeaTable, n)
	for i := range table {
		table[i] = domain.IdeaRow{
			MemeTemplate:      fmt.Sprintf("template-%d", i),
			Prompt:            "office chaos",
			CompanyBackground: "compliance automation",
			MarketingMessage:  "audits without the pain",
			CallToAction:      "book a demo",
			TargetAudience:    "compliance officers",
			Platform:          "LinkedIn",
			Theme:             "work humor",
		}
	}
	return table
}

func newTestBatch(t *testing.T, gen Generator, cfg *BatchConfig) (*BatchProcessor, *storage.LocalStore) {
	t.Helper()
	store, err := storage.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	builder := NewPromptBuilder(nil)
	return NewBatchProcessor(gen, builder, store, logger.GetDefault(), cfg), store
}

func TestProcessBatchPartialFailure(t *testing.T) {
	gen := &fakeGenerator{
		imageFn: func(prompt string) ([]byte, string, error) {
			if strings.Contains(prompt, "template-2") {
				return nil, "", &domain.EmptyResultError{Op: "generate_image"}
			}
			return testPNG(), "image/png", nil
		},
	}
	proc, store := newTestBatch(t, gen, nil)

	results := proc.ProcessBatch(context.Background(), makeTable(3), []int{0, 2})

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if _, ok := results[1]; ok {
		t.Error("unselected row must not appear in results")
	}

	r0 := results[0]
	if r0.Err != nil {
		t.Fatalf("row 0 should succeed, got %v", r0.Err)
	}
	if r0.Artifact == nil {
		t.Fatal("row 0 missing artifact")
	}
	if r0.Artifact.Width != 2 || r0.Artifact.Height != 2 {
		t.Errorf("row 0 dimensions = %dx%d, want 2x2", r0.Artifact.Width, r0.Artifact.Height)
	}
	if ok, _ := store.Exists("meme_0.png"); !ok {
		t.Error("row 0 image not persisted")
	}

	r2 := results[2]
	var emptyErr *domain.EmptyResultError
	if !errors.As(r2.Err, &emptyErr) {
		t.Errorf("row 2 expected EmptyResultError, got %v", r2.Err)
	}
	if r2.Artifact != nil {
		t.Error("failed row must not carry an artifact")
	}
}

func TestProcessBatchEmptySelection(t *testing.T) {
	gen := &fakeGenerator{}
	proc, _ := newTestBatch(t, gen, nil)

	results := proc.ProcessBatch(context.Background(), makeTable(3), nil)
	if len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
	if gen.imageCalls != 0 {
		t.Errorf("expected 0 generator calls, got %d", gen.imageCalls)
	}
}

func TestProcessBatchDedupesIndices(t *testing.T) {
	gen := &fakeGenerator{}
	proc, _ := newTestBatch(t, gen, nil)

	results := proc.ProcessBatch(context.Background(), makeTable(3), []int{1, 1, 1})
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if gen.imageCalls != 1 {
		t.Errorf("expected 1 generator call, got %d", gen.imageCalls)
	}
}

func TestProcessBatchOutOfRangeIndex(t *testing.T) {
	gen := &fakeGenerator{}
	proc, _ := newTestBatch(t, gen, nil)

	results := proc.ProcessBatch(context.Background(), makeTable(3), []int{7})
	var validationErr *domain.ValidationError
	if !errors.As(results[7].Err, &validationErr) {
		t.Errorf("expected ValidationError, got %v", results[7].Err)
	}
	if gen.imageCalls != 0 {
		t.Errorf("out-of-range row must not reach the generator, got %d calls", gen.imageCalls)
	}
}

func TestProcessBatchRetriesRemoteFailures(t *testing.T) {
	attempts := 0
	gen := &fakeGenerator{
		imageFn: func(prompt string) ([]byte, string, error) {
			attempts++
			if attempts == 1 {
				return nil, "", &domain.RemoteError{Kind: domain.RemoteNetwork, Op: "generate_image", Err: errors.New("connection reset")}
			}
			return testPNG(), "image/png", nil
		},
	}
	proc, _ := newTestBatch(t, gen, &BatchConfig{RetryCount: 1})

	results := proc.ProcessBatch(context.Background(), makeTable(1), []int{0})
	if results[0].Err != nil {
		t.Fatalf("expected retry to recover, got %v", results[0].Err)
	}
	if attempts != 2 {
		t.Errorf("expected 2 attempts, got %d", attempts)
	}
}

func TestProcessBatchDoesNotRetryRefusals(t *testing.T) {
	gen := &fakeGenerator{
		imageFn: func(prompt string) ([]byte, string, error) {
			return nil, "", &domain.EmptyResultError{Op: "generate_image"}
		},
	}
	proc, _ := newTestBatch(t, gen, &BatchConfig{RetryCount: 3})

	results := proc.ProcessBatch(context.Background(), makeTable(1), []int{0})
	var emptyErr *domain.EmptyResultError
	if !errors.As(results[0].Err, &emptyErr) {
		t.Fatalf("expected EmptyResultError, got %v", results[0].Err)
	}
	if gen.imageCalls != 1 {
		t.Errorf("refusal must not be retried, got %d calls", gen.imageCalls)
	}
}

func TestProcessBatchConcurrentWorkers(t *testing.T) {
	gen := &fakeGenerator{}
	proc, store := newTestBatch(t, gen, &BatchConfig{Workers: 4})

	table := makeTable(6)
	results := proc.ProcessBatch(context.Background(), table, []int{0, 1, 2, 3, 4, 5})

	if len(results) != 6 {
		t.Fatalf("expected 6 results, got %d", len(results))
	}
	for idx, r := range results {
		if r.Err != nil {
			t.Errorf("row %d failed: %v", idx, r.Err)
			continue
		}
		if ok, _ := store.Exists(fmt.Sprintf("meme_%d.png", idx)); !ok {
			t.Errorf("row %d image not persisted", idx)
		}
	}
}

func TestProcessBatchLogsThroughInjectedLogger(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(&logger.Config{
		Level:       "info",
		Format:      "json",
		Output:      &buf,
		ServiceName: "batch-test",
	})

	store, err := storage.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	proc := NewBatchProcessor(&fakeGenerator{}, NewPromptBuilder(nil), store, log, nil)

	ctx := logger.SetSessionID(context.Background(), "sess-42")
	proc.ProcessBatch(ctx, makeTable(1), []int{0})

	out := buf.String()
	if !strings.Contains(out, "Starting meme batch") {
		t.Errorf("injected logger bypassed:\n%s", out)
	}
	if !strings.Contains(out, "sess-42") {
		t.Errorf("context session id missing from injected logger output:\n%s", out)
	}
	if !strings.Contains(out, "batch-test") {
		t.Errorf("injected service name missing:\n%s", out)
	}
}

func TestProcessBatchCancelledContext(t *testing.T) {
	gen := &fakeGenerator{}
	proc, _ := newTestBatch(t, gen, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := proc.ProcessBatch(ctx, makeTable(3), []int{0, 1, 2})
	if len(results) != 0 {
		t.Errorf("cancelled batch must not issue rows, got %d results", len(results))
	}
	if gen.imageCalls != 0 {
		t.Errorf("cancelled batch reached the generator %d times", gen.imageCalls)
	}
}
