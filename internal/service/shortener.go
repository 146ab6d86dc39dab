// Package service содержит координатор создания ссылок и резолвер
// редиректов — два потока управления, разделяющие только хранилище.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/morgath/linkcutter/internal/cache"
	"github.com/morgath/linkcutter/internal/model"
	"github.com/morgath/linkcutter/internal/repositories"
)

const (
	// maxCreateAttempts — потолок повторных попыток при коллизиях кода.
	// Это прагматичное ограничение, а не источник корректности:
	// уникальность обеспечивает атомарная проверка в хранилище.
	maxCreateAttempts = 5

	// maxURLLength ограничивает длину исходного URL.
	maxURLLength = 2048

	// linkTTL — срок действия создаваемой ссылки.
	linkTTL = 7 * 24 * time.Hour
)

var (
	// ErrInvalidURL — исходный URL пуст, не абсолютен, не http(s) или слишком длинный.
	ErrInvalidURL = errors.New("invalid url")
	// ErrCollisionExhausted — все попытки создания упёрлись в коллизии кода.
	ErrCollisionExhausted = errors.New("short code collisions exhausted")
	// ErrGone — срок действия ссылки истёк.
	ErrGone = errors.New("link expired")
)

//go:generate mockgen -source=shortener.go -destination=../mocks/mocks.go -package=mocks

// Repository определяет контракт хранилища ссылок.
type Repository interface {
	SaveLink(ctx context.Context, link *model.Link) error
	GetLinkByCode(ctx context.Context, code string) (*model.Link, error)
	IncrementClicks(ctx context.Context, code string) error
	ListRecent(ctx context.Context, limit int) ([]*model.Link, error)
	Ping(ctx context.Context) error
}

// Cache определяет контракт кэширующего слоя.
type Cache interface {
	Get(ctx context.Context, code string) (*cache.Entry, error)
	Set(ctx context.Context, code, url string, expiresAt *time.Time) error
	Delete(ctx context.Context, code string) error
}

// CodeGenerator выдаёт кандидатов коротких кодов.
type CodeGenerator interface {
	Generate() string
}

// TaskRunner принимает отложенную работу, выполняемую вне пути ответа.
type TaskRunner interface {
	Submit(name string, fn func(ctx context.Context) error) bool
}

// ShortenerService реализует бизнес-логику ядра.
type ShortenerService struct {
	Repo         Repository
	Cache        Cache // nil, если сервис работает без кэша
	Generator    CodeGenerator
	Runner       TaskRunner
	Logger       *zap.Logger
	StoreTimeout time.Duration
}

// NewShortenerService создаёт сервис с разделяемыми, потокобезопасными
// зависимостями; они конструируются один раз на процесс.
func NewShortenerService(repo Repository, c Cache, gen CodeGenerator, runner TaskRunner, logger *zap.Logger, storeTimeout time.Duration) *ShortenerService {
	if storeTimeout <= 0 {
		storeTimeout = 2 * time.Second
	}
	return &ShortenerService{
		Repo:         repo,
		Cache:        c,
		Generator:    gen,
		Runner:       runner,
		Logger:       logger,
		StoreTimeout: storeTimeout,
	}
}

// CreateLink проверяет URL и создаёт ссылку по схеме
// "вставить и обработать конфликт": никакой предварительной проверки
// существования кода нет, арбитром коллизии выступает сама БД.
func (s *ShortenerService) CreateLink(ctx context.Context, rawURL string) (*model.Link, error) {
	if err := validateURL(rawURL); err != nil {
		return nil, err
	}

	expiresAt := time.Now().Add(linkTTL)

	for attempt := 1; attempt <= maxCreateAttempts; attempt++ {
		link := &model.Link{
			ID:        uuid.New(),
			ShortCode: s.Generator.Generate(),
			TargetURL: rawURL,
			ExpiresAt: &expiresAt,
		}

		saveCtx, cancel := context.WithTimeout(ctx, s.StoreTimeout)
		err := s.Repo.SaveLink(saveCtx, link)
		cancel()

		if err == nil {
			return link, nil
		}
		if errors.Is(err, repositories.ErrCodeTaken) {
			// Ожидаемый сигнал, а не сбой: отбрасываем кандидата
			// и пробуем со свежим кодом
			s.Logger.Info("Коллизия короткого кода, повторная попытка",
				zap.String("code", link.ShortCode),
				zap.Int("attempt", attempt),
			)
			continue
		}
		return nil, fmt.Errorf("save link: %w", err)
	}

	return nil, ErrCollisionExhausted
}

// Resolve отвечает на вопрос "куда ведёт этот код": сначала кэш,
// при промахе — хранилище. Инкремент счётчика и заполнение кэша
// уходят в фон и ответа не задерживают.
func (s *ShortenerService) Resolve(ctx context.Context, code string) (string, error) {
	now := time.Now()

	if s.Cache != nil {
		entry, err := s.Cache.Get(ctx, code)
		if err != nil {
			// Недоступность кэша деградирует до промаха,
			// в ошибку запроса не превращается
			s.Logger.Warn("Кэш недоступен, читаем из БД", zap.Error(err))
		} else if entry != nil {
			if entry.Expired(now) {
				s.scheduleEvict(code)
				return "", ErrGone
			}
			s.scheduleIncrement(code)
			return entry.URL, nil
		}
	}

	lookupCtx, cancel := context.WithTimeout(ctx, s.StoreTimeout)
	defer cancel()

	link, err := s.Repo.GetLinkByCode(lookupCtx, code)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return "", repositories.ErrNotFound
		}
		return "", fmt.Errorf("link lookup: %w", err)
	}
	if link.IsExpired(now) {
		return "", ErrGone
	}

	if s.Cache != nil {
		s.schedulePopulate(code, link.TargetURL, link.ExpiresAt)
	}
	s.scheduleIncrement(code)

	return link.TargetURL, nil
}

// RecentLinks возвращает limit последних созданных ссылок.
func (s *ShortenerService) RecentLinks(ctx context.Context, limit int) ([]*model.Link, error) {
	ctx, cancel := context.WithTimeout(ctx, s.StoreTimeout)
	defer cancel()

	links, err := s.Repo.ListRecent(ctx, limit)
	if err != nil {
		s.Logger.Error("Не удалось получить список ссылок", zap.Error(err))
		return nil, err
	}
	return links, nil
}

// Ping проверяет доступность хранилища.
func (s *ShortenerService) Ping(ctx context.Context) error {
	return s.Repo.Ping(ctx)
}

func (s *ShortenerService) scheduleIncrement(code string) {
	s.Runner.Submit("increment-clicks", func(ctx context.Context) error {
		return s.Repo.IncrementClicks(ctx, code)
	})
}

func (s *ShortenerService) schedulePopulate(code, target string, expiresAt *time.Time) {
	s.Runner.Submit("cache-populate", func(ctx context.Context) error {
		return s.Cache.Set(ctx, code, target, expiresAt)
	})
}

func (s *ShortenerService) scheduleEvict(code string) {
	s.Runner.Submit("cache-evict", func(ctx context.Context) error {
		return s.Cache.Delete(ctx, code)
	})
}

// validateURL проверяет исходный URL: непустой, абсолютный,
// схема http/https, длина в пределах maxURLLength.
func validateURL(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("%w: empty", ErrInvalidURL)
	}
	if len(rawURL) > maxURLLength {
		return fmt.Errorf("%w: longer than %d characters", ErrInvalidURL, maxURLLength)
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%w: scheme must be http or https", ErrInvalidURL)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%w: missing host", ErrInvalidURL)
	}
	return nil
}
