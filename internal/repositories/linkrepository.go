package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/morgath/linkcutter/internal/database"
	"github.com/morgath/linkcutter/internal/model"
)

var (
	// ErrCodeTaken сигнализирует о конфликте уникальности короткого кода.
	// Потребляется циклом повторных попыток координатора создания,
	// наружу никогда не отдаётся.
	ErrCodeTaken = errors.New("short code already taken")
	// ErrNotFound означает, что ссылка с таким кодом не существует.
	ErrNotFound = errors.New("link not found")
)

// LinkRepositoryInterface определяет методы репозитория ссылок.
type LinkRepositoryInterface interface {
	SaveLink(ctx context.Context, link *model.Link) error
	GetLinkByCode(ctx context.Context, code string) (*model.Link, error)
	IncrementClicks(ctx context.Context, code string) error
	ListRecent(ctx context.Context, limit int) ([]*model.Link, error)
	Ping(ctx context.Context) error
}

// LinkRepository реализует LinkRepositoryInterface с использованием PostgreSQL.
type LinkRepository struct {
	DB database.DBInterface
}

// NewLinkRepository создаёт новый экземпляр LinkRepository.
func NewLinkRepository(db database.DBInterface) *LinkRepository {
	return &LinkRepository{DB: db}
}

// SaveLink сохраняет ссылку в базу данных.
// Проверка уникальности short_code выполняется атомарно самой БД:
// при конфликте вставка не происходит и возвращается ErrCodeTaken.
func (r *LinkRepository) SaveLink(ctx context.Context, link *model.Link) error {
	query := `INSERT INTO links (id, short_code, target_url, clicks, created_at, expires_at)
              VALUES ($1, $2, $3, 0, now(), $4)
              ON CONFLICT (short_code) DO NOTHING
              RETURNING created_at`

	err := r.DB.(*database.DB).Pool.QueryRow(ctx, query,
		link.ID, link.ShortCode, link.TargetURL, link.ExpiresAt,
	).Scan(&link.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Конфликт: строка с таким short_code уже существует
			return ErrCodeTaken
		}
		return fmt.Errorf("database insert error: %w", err)
	}
	return nil
}

// GetLinkByCode извлекает ссылку по короткому коду.
func (r *LinkRepository) GetLinkByCode(ctx context.Context, code string) (*model.Link, error) {
	query := `SELECT id, short_code, target_url, clicks, created_at, expires_at
              FROM links WHERE short_code = $1`
	link := &model.Link{}
	err := r.DB.(*database.DB).Pool.QueryRow(ctx, query, code).Scan(
		&link.ID, &link.ShortCode, &link.TargetURL, &link.Clicks, &link.CreatedAt, &link.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return link, nil
}

// IncrementClicks атомарно увеличивает счётчик переходов на единицу.
// Инкремент выполняется одним UPDATE на стороне БД, без чтения-записи,
// поэтому параллельные редиректы не теряют обновления.
func (r *LinkRepository) IncrementClicks(ctx context.Context, code string) error {
	query := `UPDATE links SET clicks = clicks + 1 WHERE short_code = $1`
	tag, err := r.DB.(*database.DB).Pool.Exec(ctx, query, code)
	if err != nil {
		return fmt.Errorf("database update error: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListRecent возвращает limit последних созданных ссылок, новые первыми.
func (r *LinkRepository) ListRecent(ctx context.Context, limit int) ([]*model.Link, error) {
	query := `SELECT id, short_code, target_url, clicks, created_at, expires_at
              FROM links ORDER BY created_at DESC LIMIT $1`
	rows, err := r.DB.(*database.DB).Pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent links: %w", err)
	}
	defer rows.Close()

	var results []*model.Link
	for rows.Next() {
		link := &model.Link{}
		err := rows.Scan(&link.ID, &link.ShortCode, &link.TargetURL, &link.Clicks, &link.CreatedAt, &link.ExpiresAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		results = append(results, link)
	}

	return results, rows.Err()
}

// Ping проверяет доступность базы данных.
func (r *LinkRepository) Ping(ctx context.Context) error {
	_, err := r.DB.(*database.DB).Pool.Exec(ctx, "SELECT 1")
	return err
}
