package model

import "time"

// Item — один элемент обмена: либо произвольное JSON-значение,
// либо бинарный файл. Дискриминатор — IsFile; заполняется ровно
// одно из полей Data/Blob.
type Item struct {
	ID           int64  `gorm:"primaryKey;autoIncrement"`
	ExchangeCode string `gorm:"not null;index;uniqueIndex:idx_exchange_position,priority:1"`

	// Позиция внутри записи: элементы адресуются по индексу, не по ID.
	Position int `gorm:"not null;uniqueIndex:idx_exchange_position,priority:2"`

	IsFile bool `gorm:"not null;default:false"`

	// Data — сырое JSON-значение для структурных элементов (IsFile=false).
	Data []byte

	// Blob и файловые атрибуты заполняются только при IsFile=true.
	Blob      []byte
	FileName  string
	MediaType string
	ByteSize  int64

	Consumed   bool `gorm:"not null;default:false"`
	ConsumedAt *time.Time
}
