package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Game — игра в каталоге витрины.
type Game struct {
	ID         string // Внутренний идентификатор backend
	Slug       string // Код игры, ключ таблицы требований
	Name       string
	Category   string
	Icon       string
	IsActive   bool
	IsFeatured bool
	SortOrder  int

	// Profile вычисляется один раз при загрузке каталога.
	Profile RequirementProfile
}

// PackageStatus — статус пакета.
type PackageStatus string

const (
	PackageStatusActive   PackageStatus = "active"
	PackageStatusInactive PackageStatus = "inactive"
)

// Package — пакет игровой валюты.
type Package struct {
	ID          string
	GameID      string
	ProductID   string
	Name        string
	Description string
	Price       decimal.Decimal // В целых единицах валюты
	Status      PackageStatus
	Category    string
	Logo        string

	// Окно доступности. Оба nil — пакет не ограничен по времени.
	StartTime *time.Time
	EndTime   *time.Time

	// Synthetic — пакет добавлен из таблицы акций, а не пришёл от backend.
	Synthetic bool
}

// IsTimeLimited возвращает true, если у пакета задано окно доступности.
func (p Package) IsTimeLimited() bool {
	return p.StartTime != nil || p.EndTime != nil
}

// InWindow проверяет, что now попадает в [StartTime, EndTime):
// в момент EndTime пакет уже недоступен.
// Открытая граница окна не ограничивает.
func (p Package) InWindow(now time.Time) bool {
	if p.StartTime != nil && now.Before(*p.StartTime) {
		return false
	}
	if p.EndTime != nil && !now.Before(*p.EndTime) {
		return false
	}
	return true
}

// IsPurchasable — пакет активен и текущий момент внутри окна (если оно есть).
func (p Package) IsPurchasable(now time.Time) bool {
	return p.Status == PackageStatusActive && p.InWindow(now)
}
