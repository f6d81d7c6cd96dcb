package catalog

import (
	"sort"
	"strings"

	"example.com/topup-storefront/services/storefront/internal/domain"
)

// Категории пакетов для группировки на странице игры.
const (
	CategoryPass     = "pass"
	CategoryBonus    = "bonus"
	CategoryCurrency = "currency"
	CategoryOther    = "other"
)

// categoryRules проверяются по порядку, выигрывает первое совпадение.
var categoryRules = []struct {
	category string
	keywords []string
}{
	{CategoryPass, []string{"weekly", "monthly", "pass", "membership", "twilight", "starlight", "subscription"}},
	{CategoryBonus, []string{"double", "bonus", "first top", "first_top", "x2", "2x"}},
	{CategoryCurrency, []string{"diamond", "gem", "uc", "crystal", "primogem", "genesis", "shard", "coin"}},
}

// Categorize определяет категорию по названию и productId.
// Чистая функция: одинаковый вход всегда даёт одинаковую категорию.
func Categorize(name, productID string) string {
	text := strings.ToLower(name + " " + strings.ReplaceAll(productID, "_", " "))
	for _, rule := range categoryRules {
		for _, kw := range rule.keywords {
			if containsWord(text, kw) {
				return rule.category
			}
		}
	}
	return CategoryOther
}

// containsWord ищет ключевое слово; короткие (до 2 букв) — только целым словом,
// чтобы "uc" не совпадал с "bucket".
func containsWord(text, kw string) bool {
	if len(kw) > 2 {
		return strings.Contains(text, kw)
	}
	for _, f := range strings.FieldsFunc(text, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	}) {
		if f == kw {
			return true
		}
	}
	return false
}

// sortPackages упорядочивает пакеты: категории в порядке первого появления,
// внутри категории сначала активные ограниченные по времени, затем по цене.
// Сортировка стабильная.
func sortPackages(pkgs []domain.Package) {
	order := make(map[string]int)
	for _, p := range pkgs {
		if _, ok := order[p.Category]; !ok {
			order[p.Category] = len(order)
		}
	}

	sort.SliceStable(pkgs, func(i, j int) bool {
		a, b := pkgs[i], pkgs[j]
		if order[a.Category] != order[b.Category] {
			return order[a.Category] < order[b.Category]
		}
		if a.IsTimeLimited() != b.IsTimeLimited() {
			return a.IsTimeLimited()
		}
		return a.Price.LessThan(b.Price)
	})
}
