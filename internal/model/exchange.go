package model

import "time"

// Exchange — запись обмена, адресуемая 6-значным числовым кодом.
// Код уникален только среди существующих записей: после удаления
// код может быть выдан заново.
type Exchange struct {
	Code string `gorm:"primaryKey;size:6"`

	Verified   bool `gorm:"not null;default:false"`
	VerifiedAt *time.Time

	// Связи: Exchange владеет своими Item, удаление каскадное.
	Items []Item `gorm:"foreignKey:ExchangeCode;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
}
