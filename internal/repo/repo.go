package repo

import (
	"errors"

	"CodeDrop/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Ошибки слоя репозитория. Сервис проверяет их через errors.Is.
var (
	// ErrNotFound — запись с таким кодом не существует.
	ErrNotFound = errors.New("exchange not found")
	// ErrCodeTaken — нарушение уникальности кода при вставке.
	// Сервис ловит её и повторяет с новым кодом.
	ErrCodeTaken = errors.New("code already taken")
)

// InitDB открывает подключение к Postgres и выполняет миграции моделей.
// TranslateError нужен, чтобы дубликат ключа приходил как gorm.ErrDuplicatedKey
// независимо от драйвера.
func InitDB(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&model.Exchange{}, &model.Item{}); err != nil {
		return nil, err
	}
	return db, nil
}
