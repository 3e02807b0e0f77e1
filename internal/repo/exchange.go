package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"CodeDrop/internal/model"

	"gorm.io/gorm"
)

// ExchangeRepository определяет контракт доступа к записям обмена для слоя сервиса.
type ExchangeRepository interface {
	// Create вставляет запись вместе с её элементами одной транзакцией.
	// Если код уже занят — возвращает ErrCodeTaken, ничего не сохранив.
	Create(ctx context.Context, ex *model.Exchange) error

	// GetByCode возвращает запись с элементами, упорядоченными по позиции.
	GetByCode(ctx context.Context, code string) (*model.Exchange, error)

	// MarkVerified выставляет verified=true и перезаписывает verified_at.
	MarkVerified(ctx context.Context, code string, at time.Time) error

	// ConsumeItem атомарно переводит элемент из unconsumed в consumed.
	// Возвращает true ровно для одного вызова на элемент; false — если
	// элемент уже потреблён или не существует.
	ConsumeItem(ctx context.Context, code string, position int, at time.Time) (bool, error)

	// DeleteByCode удаляет запись и все её элементы одной транзакцией.
	// Отсутствующий код — ErrNotFound, а не тихий no-op.
	DeleteByCode(ctx context.Context, code string) error
}

type exchangeRepo struct {
	db *gorm.DB
}

// NewExchangeRepository создаёт реализацию репозитория поверх gorm.
func NewExchangeRepository(db *gorm.DB) ExchangeRepository {
	return &exchangeRepo{db: db}
}

func (r *exchangeRepo) Create(ctx context.Context, ex *model.Exchange) error {
	// gorm вставляет ассоциации Items в той же транзакции, что и родителя,
	// поэтому либо сохраняется вся запись, либо ничего.
	err := r.db.WithContext(ctx).Create(ex).Error
	if isDuplicate(err) {
		return ErrCodeTaken
	}
	return err
}

// isDuplicate распознаёт нарушение уникального ключа. TranslateError покрывает
// postgres, но ошибки modernc-драйвера sqlite gorm не переводит,
// поэтому дополнительно смотрим на текст.
func isDuplicate(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint") || strings.Contains(msg, "duplicate key")
}

func (r *exchangeRepo) GetByCode(ctx context.Context, code string) (*model.Exchange, error) {
	var ex model.Exchange
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		First(&ex, "code = ?", code).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ex, nil
}

func (r *exchangeRepo) MarkVerified(ctx context.Context, code string, at time.Time) error {
	tx := r.db.WithContext(ctx).Model(&model.Exchange{}).
		Where("code = ?", code).
		Updates(map[string]any{"verified": true, "verified_at": at})
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *exchangeRepo) ConsumeItem(ctx context.Context, code string, position int, at time.Time) (bool, error) {
	// Одно условное обновление: consumed=false в WHERE гарантирует,
	// что из N конкурентных вызовов ровно один получит RowsAffected=1.
	tx := r.db.WithContext(ctx).Model(&model.Item{}).
		Where("exchange_code = ? AND position = ? AND consumed = ?", code, position, false).
		Updates(map[string]any{"consumed": true, "consumed_at": at})
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected == 1, nil
}

func (r *exchangeRepo) DeleteByCode(ctx context.Context, code string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("exchange_code = ?", code).Delete(&model.Item{}).Error; err != nil {
			return err
		}
		res := tx.Where("code = ?", code).Delete(&model.Exchange{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}
