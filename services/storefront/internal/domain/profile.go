package domain

import "strings"

// RequirementProfile описывает, какие поля игрового аккаунта нужны для покупки.
type RequirementProfile struct {
	RequiresZoneID  bool
	RequiresServer  bool
	HasVerification bool // Перед оформлением аккаунт должен подтвердить backend

	// RegionFamily — семейство региональных вариантов одной игры ("" — нет вариантов).
	RegionFamily string
	// Region — регион текущего варианта внутри семейства.
	Region string

	// Servers — допустимые значения server (пусто — любое непустое).
	Servers []string
}

// Семейства и регионы.
const (
	FamilyMobileLegends = "mobile-legends"

	RegionDefault     = "default"
	RegionPhilippines = "philippines"
)

var genshinServers = []string{"asia", "america", "europe", "tw_hk_mo"}

// requirementProfiles — требования к аккаунту по slug игры.
var requirementProfiles = map[string]RequirementProfile{
	"mobile-legends": {
		RequiresZoneID:  true,
		HasVerification: true,
		RegionFamily:    FamilyMobileLegends,
		Region:          RegionDefault,
	},
	"mobile-legends-ph": {
		RequiresZoneID:  true,
		HasVerification: true,
		RegionFamily:    FamilyMobileLegends,
		Region:          RegionPhilippines,
	},
	"genshin-impact": {
		RequiresServer: true,
		Servers:        genshinServers,
	},
	"honkai-star-rail": {
		RequiresServer: true,
		Servers:        genshinServers,
	},
	"zenless-zone-zero": {
		RequiresServer: true,
		Servers:        genshinServers,
	},
	"free-fire":   {},
	"pubg-mobile": {},
}

// regionVariants — slug варианта игры по семейству и региону.
var regionVariants = map[string]map[string]string{
	FamilyMobileLegends: {
		RegionDefault:     "mobile-legends",
		RegionPhilippines: "mobile-legends-ph",
	},
}

// ProfileFor возвращает профиль требований для slug.
// Неизвестные игры требуют только идентификатор игрока.
func ProfileFor(slug string) RequirementProfile {
	return requirementProfiles[strings.ToLower(strings.TrimSpace(slug))]
}

// RegionVariant возвращает slug варианта игры для региона аккаунта.
// Регионы без собственного варианта отображаются на вариант по умолчанию.
// ok == false, если семейство неизвестно или регион пустой.
func RegionVariant(family, region string) (string, bool) {
	variants, found := regionVariants[family]
	if !found {
		return "", false
	}

	region = NormalizeRegion(region)
	if region == "" {
		return "", false
	}

	if slug, found := variants[region]; found {
		return slug, true
	}
	return variants[RegionDefault], true
}

// NormalizeRegion приводит регион из ответа backend к ключу таблицы ("PH" → "philippines").
func NormalizeRegion(region string) string {
	r := strings.ToLower(strings.TrimSpace(region))
	switch r {
	case "ph", "phl", "philippines", "philippine":
		return RegionPhilippines
	}
	return r
}

// AllowsServer проверяет значение server по списку профиля.
func (p RequirementProfile) AllowsServer(server string) bool {
	if len(p.Servers) == 0 {
		return server != ""
	}
	for _, s := range p.Servers {
		if s == server {
			return true
		}
	}
	return false
}
