package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"github.com/morgath/linkcutter/internal/mocks"
	"github.com/morgath/linkcutter/internal/model"
	"github.com/morgath/linkcutter/internal/repositories"
	"github.com/morgath/linkcutter/internal/service"
)

// noopRunner мгновенно выполняет отложенные задачи — для проверки
// статусов ответа порядок фона не важен.
type noopRunner struct{}

func (noopRunner) Submit(name string, fn func(ctx context.Context) error) bool {
	_ = fn(context.Background())
	return true
}

func newTestHandler(t *testing.T) (*Handler, *mocks.MockRepository, *mocks.MockCodeGenerator) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockRepository(ctrl)
	gen := mocks.NewMockCodeGenerator(ctrl)

	// Кэш не задан: обработчик должен работать и без него
	svc := service.NewShortenerService(repo, nil, gen, noopRunner{}, zap.NewNop(), time.Second)
	return NewHandler(svc, zap.NewNop()), repo, gen
}

func TestReceiveShorten(t *testing.T) {
	h, repo, gen := newTestHandler(t)

	gen.EXPECT().Generate().Return("AbC123")
	repo.EXPECT().SaveLink(gomock.Any(), gomock.Any()).Return(nil)

	body := `{"url": "https://example.com/a/b/c"}`
	req := httptest.NewRequest(http.MethodPost, "/api/shorten", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	h.ReceiveShorten(w, req)

	resp := w.Result()
	defer resp.Body.Close()

	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var out model.ShortenResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.True(t, out.Success)
	require.NotNil(t, out.Link)
	assert.Equal(t, "AbC123", out.Link.ShortCode)
	assert.Equal(t, "https://example.com/a/b/c", out.Link.TargetURL)
	assert.Equal(t, int64(0), out.Link.Clicks)
}

func TestReceiveShorten_InvalidJSON(t *testing.T) {
	h, _, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/shorten", strings.NewReader("{not json"))
	w := httptest.NewRecorder()
	h.ReceiveShorten(w, req)

	resp := w.Result()
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestReceiveShorten_InvalidURL(t *testing.T) {
	h, _, _ := newTestHandler(t)

	body := `{"url": "ftp://example.com/file"}`
	req := httptest.NewRequest(http.MethodPost, "/api/shorten", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.ReceiveShorten(w, req)

	resp := w.Result()
	defer resp.Body.Close()

	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var out model.ShortenResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.False(t, out.Success)
	assert.NotEmpty(t, out.Error)
}

func TestReceiveShorten_CollisionExhausted(t *testing.T) {
	h, repo, gen := newTestHandler(t)

	gen.EXPECT().Generate().Return("SaMeOn").Times(5)
	repo.EXPECT().SaveLink(gomock.Any(), gomock.Any()).Return(repositories.ErrCodeTaken).Times(5)

	body := `{"url": "https://example.com"}`
	req := httptest.NewRequest(http.MethodPost, "/api/shorten", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.ReceiveShorten(w, req)

	resp := w.Result()
	defer resp.Body.Close()

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func redirectRequest(code string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/"+code, nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("code", code)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

// TestResponseURL проверяет редирект на оригинальный URL
func TestResponseURL(t *testing.T) {
	h, repo, _ := newTestHandler(t)

	exp := time.Now().Add(time.Hour)
	link := &model.Link{ShortCode: "AbC123", TargetURL: "https://example.com", ExpiresAt: &exp}

	repo.EXPECT().GetLinkByCode(gomock.Any(), "AbC123").Return(link, nil)
	// noopRunner выполняет инкремент сразу
	repo.EXPECT().IncrementClicks(gomock.Any(), "AbC123").Return(nil)

	w := httptest.NewRecorder()
	h.ResponseURL(w, redirectRequest("AbC123"))

	resp := w.Result()
	defer resp.Body.Close()

	assert.Equal(t, http.StatusTemporaryRedirect, resp.StatusCode)
	assert.Equal(t, "https://example.com", resp.Header.Get("Location"))
}

func TestResponseURL_NotFound(t *testing.T) {
	h, repo, _ := newTestHandler(t)

	repo.EXPECT().GetLinkByCode(gomock.Any(), "zzzzzz").Return(nil, repositories.ErrNotFound)

	w := httptest.NewRecorder()
	h.ResponseURL(w, redirectRequest("zzzzzz"))

	resp := w.Result()
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestResponseURL_Gone(t *testing.T) {
	h, repo, _ := newTestHandler(t)

	exp := time.Now().Add(-time.Second)
	link := &model.Link{ShortCode: "AbC123", TargetURL: "https://example.com", ExpiresAt: &exp}

	repo.EXPECT().GetLinkByCode(gomock.Any(), "AbC123").Return(link, nil)

	w := httptest.NewRecorder()
	h.ResponseURL(w, redirectRequest("AbC123"))

	resp := w.Result()
	defer resp.Body.Close()

	assert.Equal(t, http.StatusGone, resp.StatusCode)
}

func TestResponseURL_StoreError(t *testing.T) {
	h, repo, _ := newTestHandler(t)

	repo.EXPECT().GetLinkByCode(gomock.Any(), "AbC123").Return(nil, errors.New("connection refused"))

	w := httptest.NewRecorder()
	h.ResponseURL(w, redirectRequest("AbC123"))

	resp := w.Result()
	defer resp.Body.Close()

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestRecentLinks(t *testing.T) {
	h, repo, _ := newTestHandler(t)

	repo.EXPECT().ListRecent(gomock.Any(), 10).Return([]*model.Link{
		{ShortCode: "new123", TargetURL: "https://example.com/2"},
		{ShortCode: "old456", TargetURL: "https://example.com/1"},
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/links", nil)
	w := httptest.NewRecorder()
	h.RecentLinks(w, req)

	resp := w.Result()
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out model.RecentLinksResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Len(t, out.Links, 2)
	assert.Equal(t, "new123", out.Links[0].ShortCode)
}

func TestPingHandler(t *testing.T) {
	h, repo, _ := newTestHandler(t)

	repo.EXPECT().Ping(gomock.Any()).Return(nil)

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	w := httptest.NewRecorder()
	h.PingHandler(w, req)

	resp := w.Result()
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
