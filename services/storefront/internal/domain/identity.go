package domain

import (
	"regexp"
	"strings"
	"time"
)

// PlayerIdentity — игровой аккаунт, на который зачисляется пакет.
type PlayerIdentity struct {
	PlayerID string `json:"playerId"`
	ZoneID   string `json:"zoneId,omitempty"`
	Server   string `json:"server,omitempty"`

	// Заполняются только после подтверждения backend.
	Verified bool   `json:"verified"`
	IGN      string `json:"ign,omitempty"`
}

// combinedIDPattern — "12345678 (1234)": player id и zone id в одной строке.
var combinedIDPattern = regexp.MustCompile(`^\s*(\d+)\s*\(\s*(\d+)\s*\)\s*$`)

// ParseCombinedID разбирает строку вида "<digits> (<digits>)".
func ParseCombinedID(input string) (playerID, zoneID string, ok bool) {
	m := combinedIDPattern.FindStringSubmatch(input)
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

// Normalize обрезает пробелы и раскладывает комбинированный ввод по полям.
// Флаг Verified сбрасывается: подтверждение хранится отдельно от ввода.
func (p PlayerIdentity) Normalize() PlayerIdentity {
	out := PlayerIdentity{
		PlayerID: strings.TrimSpace(p.PlayerID),
		ZoneID:   strings.TrimSpace(p.ZoneID),
		Server:   strings.TrimSpace(p.Server),
	}

	if playerID, zoneID, ok := ParseCombinedID(out.PlayerID); ok {
		out.PlayerID = playerID
		if out.ZoneID == "" {
			out.ZoneID = zoneID
		}
	}

	return out
}

// ServerParam возвращает значение поля server для backend:
// для игр с зоной туда уходит zone id.
func (p PlayerIdentity) ServerParam(profile RequirementProfile) string {
	if profile.RequiresZoneID {
		return p.ZoneID
	}
	return p.Server
}

// CheckComplete проверяет наличие обязательных полей по профилю.
// Подтверждение backend здесь не проверяется.
func (p PlayerIdentity) CheckComplete(profile RequirementProfile) error {
	if p.PlayerID == "" {
		return NewUserError(ErrIdentityIncomplete, "Укажите ID игрока")
	}
	if profile.RequiresZoneID && p.ZoneID == "" {
		return NewUserError(ErrIdentityIncomplete, "Укажите Zone ID")
	}
	if profile.RequiresServer && !profile.AllowsServer(p.Server) {
		return NewUserError(ErrIdentityIncomplete, "Выберите сервер")
	}
	return nil
}

// SavedAccount — подтверждённый игровой аккаунт, сохранённый за покупателем.
type SavedAccount struct {
	UserID     string    `json:"-"`
	GameID     string    `json:"gameId"`
	PlayerID   string    `json:"playerId"`
	ZoneID     string    `json:"zoneId,omitempty"`
	Server     string    `json:"server,omitempty"`
	IGN        string    `json:"ign,omitempty"`
	LastUsedAt time.Time `json:"lastUsedAt"`
}
