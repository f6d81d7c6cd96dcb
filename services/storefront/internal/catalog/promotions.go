package catalog

import (
	"time"

	"github.com/shopspring/decimal"

	"example.com/topup-storefront/services/storefront/internal/domain"
)

// Promotion — временная акция, которая добавляет пакет в каталог игры.
type Promotion struct {
	PackageID   string // Пакет backend, который оформляется по акции
	ProductID   string
	Name        string
	Description string
	Price       decimal.Decimal
	Category    string
	Logo        string
	Games       []string // slug игр, где акция показывается
	Start       time.Time
	End         time.Time
}

// appliesTo — акция относится к игре и now внутри окна [Start, End).
func (p Promotion) appliesTo(slug string, now time.Time) bool {
	if now.Before(p.Start) || !now.Before(p.End) {
		return false
	}
	for _, g := range p.Games {
		if g == slug {
			return true
		}
	}
	return false
}

// toPackage собирает синтетический пакет акции.
func (p Promotion) toPackage(gameID string) domain.Package {
	id := p.PackageID
	if id == "" {
		id = "promo-" + p.ProductID
	}
	start, end := p.Start, p.End

	return domain.Package{
		ID:          id,
		GameID:      gameID,
		ProductID:   p.ProductID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Status:      domain.PackageStatusActive,
		Category:    p.Category,
		Logo:        p.Logo,
		StartTime:   &start,
		EndTime:     &end,
		Synthetic:   true,
	}
}

func mustTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

// DefaultPromotions — текущие акции витрины.
var DefaultPromotions = []Promotion{
	{
		PackageID:   "ml-weekly-diwali",
		ProductID:   "ML_WEEKLY_DIWALI",
		Name:        "Weekly Diamond Pass (Diwali)",
		Description: "Недельный пропуск по праздничной цене",
		Price:       decimal.NewFromInt(129),
		Category:    "pass",
		Games:       []string{"mobile-legends", "mobile-legends-ph"},
		Start:       mustTime("2026-10-18T00:00:00+05:30"),
		End:         mustTime("2026-11-10T23:59:59+05:30"),
	},
	{
		PackageID:   "ff-double-newyear",
		ProductID:   "FF_DOUBLE_NY",
		Name:        "Double Diamonds 310 (New Year)",
		Description: "Двойные алмазы при первом пополнении",
		Price:       decimal.NewFromInt(249),
		Category:    "bonus",
		Games:       []string{"free-fire"},
		Start:       mustTime("2026-12-25T00:00:00+05:30"),
		End:         mustTime("2027-01-05T23:59:59+05:30"),
	},
}
