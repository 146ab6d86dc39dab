package handlers_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/morgath/linkcutter/internal/handlers"
	"github.com/morgath/linkcutter/internal/model"
	"github.com/morgath/linkcutter/internal/repositories"
	"github.com/morgath/linkcutter/internal/service"
	"github.com/morgath/linkcutter/internal/shortcode"
	"github.com/morgath/linkcutter/internal/tasks"
)

// stubRepo — простое хранилище в памяти для бенчмарков и интеграционных
// проверок; уникальность short_code соблюдает так же, как индекс БД.
type stubRepo struct {
	mu           sync.Mutex
	links        map[string]*model.Link
	clicks       map[string]int64
	incDelay     time.Duration
	incCompleted atomic.Int64
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		links:  make(map[string]*model.Link),
		clicks: make(map[string]int64),
	}
}

func (s *stubRepo) SaveLink(ctx context.Context, link *model.Link) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.links[link.ShortCode]; ok {
		return repositories.ErrCodeTaken
	}
	link.CreatedAt = time.Now()
	s.links[link.ShortCode] = link
	return nil
}

func (s *stubRepo) GetLinkByCode(ctx context.Context, code string) (*model.Link, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	link, ok := s.links[code]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return link, nil
}

func (s *stubRepo) IncrementClicks(ctx context.Context, code string) error {
	if s.incDelay > 0 {
		time.Sleep(s.incDelay)
	}
	s.mu.Lock()
	s.clicks[code]++
	s.mu.Unlock()
	s.incCompleted.Add(1)
	return nil
}

func (s *stubRepo) ListRecent(ctx context.Context, limit int) ([]*model.Link, error) {
	return nil, nil
}

func (s *stubRepo) Ping(ctx context.Context) error { return nil }

func setupTestHandler(repo *stubRepo, runner service.TaskRunner) *handlers.Handler {
	logger := zap.NewNop()
	svc := service.NewShortenerService(repo, nil, shortcode.NewGenerator(), runner, logger, time.Second)
	return handlers.NewHandler(svc, logger)
}

type inlineRunner struct{}

func (inlineRunner) Submit(name string, fn func(ctx context.Context) error) bool {
	_ = fn(context.Background())
	return true
}

// TestRedirectNotDelayedBySlowIncrement: искусственно медленная запись
// счётчика не задерживает ответ редиректа; после остановки раннера
// инкремент всё же выполнен.
func TestRedirectNotDelayedBySlowIncrement(t *testing.T) {
	repo := newStubRepo()
	repo.incDelay = 300 * time.Millisecond

	runner := tasks.NewRunner(2, 16, zap.NewNop())
	h := setupTestHandler(repo, runner)

	exp := time.Now().Add(time.Hour)
	require.NoError(t, repo.SaveLink(context.Background(), &model.Link{
		ShortCode: "AbC123",
		TargetURL: "https://example.com",
		ExpiresAt: &exp,
	}))

	req := httptest.NewRequest(http.MethodGet, "/AbC123", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("code", "AbC123")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	start := time.Now()
	rec := httptest.NewRecorder()
	h.ResponseURL(rec, req)
	elapsed := time.Since(start)

	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Less(t, elapsed, repo.incDelay, "response must not wait for the deferred increment")
	assert.Equal(t, int64(0), repo.incCompleted.Load())

	// Раннер дорабатывает очередь — клик учтён
	runner.Stop()
	assert.Equal(t, int64(1), repo.incCompleted.Load())
}

// TestConcurrentRedirectsCountEveryClick: M параллельных редиректов
// дают clicks == M после завершения отложенных задач.
func TestConcurrentRedirectsCountEveryClick(t *testing.T) {
	repo := newStubRepo()
	runner := tasks.NewRunner(4, 256, zap.NewNop())
	h := setupTestHandler(repo, runner)

	exp := time.Now().Add(time.Hour)
	require.NoError(t, repo.SaveLink(context.Background(), &model.Link{
		ShortCode: "AbC123",
		TargetURL: "https://example.com",
		ExpiresAt: &exp,
	}))

	const m = 50
	var wg sync.WaitGroup
	for i := 0; i < m; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodGet, "/AbC123", nil)
			rctx := chi.NewRouteContext()
			rctx.URLParams.Add("code", "AbC123")
			req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

			rec := httptest.NewRecorder()
			h.ResponseURL(rec, req)
		}()
	}
	wg.Wait()
	runner.Stop()

	repo.mu.Lock()
	defer repo.mu.Unlock()
	assert.Equal(t, int64(m), repo.clicks["AbC123"])
}

func BenchmarkReceiveShorten(b *testing.B) {
	h := setupTestHandler(newStubRepo(), inlineRunner{})
	body := `{"url": "https://example.com/benchmark"}`

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/shorten", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		h.ReceiveShorten(rec, req)
	}
}

func BenchmarkResponseURL(b *testing.B) {
	repo := newStubRepo()
	h := setupTestHandler(repo, inlineRunner{})

	exp := time.Now().Add(time.Hour)
	_ = repo.SaveLink(context.Background(), &model.Link{
		ShortCode: "AbC123",
		TargetURL: "https://example.com",
		ExpiresAt: &exp,
	})

	req := httptest.NewRequest(http.MethodGet, "/AbC123", nil)
	// Добавляем chi-параметр вручную
	ctx := chi.NewRouteContext()
	ctx.URLParams.Add("code", "AbC123")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, ctx))

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		rec := httptest.NewRecorder()
		h.ResponseURL(rec, req.Clone(context.Background()))
	}
}

func ExampleHandler_ReceiveShorten() {
	h := setupTestHandler(newStubRepo(), inlineRunner{})
	body := `{"url": "https://example.com"}`
	req := httptest.NewRequest(http.MethodPost, "/api/shorten", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	h.ReceiveShorten(rec, req)

	fmt.Println(rec.Code == http.StatusCreated)

	// Output:
	// true
}
