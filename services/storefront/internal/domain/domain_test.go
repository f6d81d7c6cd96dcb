// Package domain содержит unit тесты для доменных сущностей витрины.
package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =====================================
// Тесты PlayerIdentity
// =====================================

func TestParseCombinedID(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantPlayer string
		wantZone   string
		wantOK     bool
	}{
		{name: "стандартный формат", input: "12345678 (1234)", wantPlayer: "12345678", wantZone: "1234", wantOK: true},
		{name: "без пробела", input: "12345678(1234)", wantPlayer: "12345678", wantZone: "1234", wantOK: true},
		{name: "пробелы внутри скобок", input: " 111 ( 22 ) ", wantPlayer: "111", wantZone: "22", wantOK: true},
		{name: "только id", input: "12345678", wantOK: false},
		{name: "буквы", input: "abc (12)", wantOK: false},
		{name: "пустая строка", input: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			player, zone, ok := ParseCombinedID(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantPlayer, player)
			assert.Equal(t, tt.wantZone, zone)
		})
	}
}

func TestPlayerIdentity_Normalize(t *testing.T) {
	t.Run("комбинированный ввод раскладывается", func(t *testing.T) {
		id := PlayerIdentity{PlayerID: "12345678 (1234)", Verified: true}.Normalize()
		assert.Equal(t, "12345678", id.PlayerID)
		assert.Equal(t, "1234", id.ZoneID)
		assert.False(t, id.Verified, "подтверждение не переносится из ввода")
	})

	t.Run("явный zone id не перетирается", func(t *testing.T) {
		id := PlayerIdentity{PlayerID: "1 (2)", ZoneID: "9"}.Normalize()
		assert.Equal(t, "1", id.PlayerID)
		assert.Equal(t, "9", id.ZoneID)
	})
}

func TestPlayerIdentity_CheckComplete(t *testing.T) {
	ml := ProfileFor("mobile-legends")
	genshin := ProfileFor("genshin-impact")
	bare := ProfileFor("free-fire")

	tests := []struct {
		name     string
		identity PlayerIdentity
		profile  RequirementProfile
		wantErr  bool
	}{
		{name: "только id — заполнен", identity: PlayerIdentity{PlayerID: "1"}, profile: bare},
		{name: "только id — пусто", identity: PlayerIdentity{}, profile: bare, wantErr: true},
		{name: "зона обязательна", identity: PlayerIdentity{PlayerID: "1"}, profile: ml, wantErr: true},
		{name: "зона указана", identity: PlayerIdentity{PlayerID: "1", ZoneID: "2"}, profile: ml},
		{name: "сервер не выбран", identity: PlayerIdentity{PlayerID: "1"}, profile: genshin, wantErr: true},
		{name: "неизвестный сервер", identity: PlayerIdentity{PlayerID: "1", Server: "mars"}, profile: genshin, wantErr: true},
		{name: "сервер выбран", identity: PlayerIdentity{PlayerID: "1", Server: "asia"}, profile: genshin},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.identity.CheckComplete(tt.profile)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrIdentityIncomplete))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestPlayerIdentity_ServerParam(t *testing.T) {
	id := PlayerIdentity{PlayerID: "1", ZoneID: "2", Server: "asia"}
	assert.Equal(t, "2", id.ServerParam(ProfileFor("mobile-legends")))
	assert.Equal(t, "asia", id.ServerParam(ProfileFor("genshin-impact")))
}

// =====================================
// Тесты профилей и регионов
// =====================================

func TestProfileFor(t *testing.T) {
	ml := ProfileFor("Mobile-Legends")
	assert.True(t, ml.RequiresZoneID)
	assert.True(t, ml.HasVerification)
	assert.Equal(t, FamilyMobileLegends, ml.RegionFamily)

	unknown := ProfileFor("some-new-game")
	assert.Equal(t, RequirementProfile{}, unknown)
}

func TestRegionVariant(t *testing.T) {
	slug, ok := RegionVariant(FamilyMobileLegends, "Philippines")
	require.True(t, ok)
	assert.Equal(t, "mobile-legends-ph", slug)

	slug, ok = RegionVariant(FamilyMobileLegends, "PH")
	require.True(t, ok)
	assert.Equal(t, "mobile-legends-ph", slug)

	slug, ok = RegionVariant(FamilyMobileLegends, "indonesia")
	require.True(t, ok)
	assert.Equal(t, "mobile-legends", slug)

	_, ok = RegionVariant(FamilyMobileLegends, "")
	assert.False(t, ok)

	_, ok = RegionVariant("unknown", "philippines")
	assert.False(t, ok)
}

// =====================================
// Тесты Package
// =====================================

func timeAt(t time.Time) *time.Time { return &t }

func TestPackage_IsPurchasable(t *testing.T) {
	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	start := now.Add(-time.Hour)
	end := now.Add(time.Hour)
	future := now.Add(time.Minute)

	tests := []struct {
		name string
		pkg  Package
		want bool
	}{
		{name: "активный без окна", pkg: Package{Status: PackageStatusActive}, want: true},
		{name: "неактивный", pkg: Package{Status: PackageStatusInactive}, want: false},
		{name: "внутри окна", pkg: Package{Status: PackageStatusActive, StartTime: &start, EndTime: &end}, want: true},
		{name: "окно ещё не началось", pkg: Package{Status: PackageStatusActive, StartTime: &future}, want: false},
		{name: "граница начала включена", pkg: Package{Status: PackageStatusActive, StartTime: &now}, want: true},
		{name: "в момент конца окна недоступен", pkg: Package{Status: PackageStatusActive, EndTime: &now}, want: false},
		{name: "за наносекунду до конца доступен", pkg: Package{Status: PackageStatusActive, EndTime: timeAt(now.Add(time.Nanosecond))}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.pkg.IsPurchasable(now))
		})
	}
}

// =====================================
// Тесты UIState
// =====================================

func TestUIState_IsTerminal(t *testing.T) {
	assert.False(t, UIStateVerifying.IsTerminal())
	assert.False(t, UIStateProcessing.IsTerminal())

	for _, s := range []UIState{
		UIStateNotInitiated, UIStateCompleted, UIStatePaidButFulfillmentFailed,
		UIStateFailed, UIStateRefunded, UIStateCancelled,
	} {
		assert.True(t, s.IsTerminal(), s)
	}
}

func TestUIState_Regresses(t *testing.T) {
	assert.True(t, UIStateProcessing.Regresses(UIStateVerifying))
	assert.False(t, UIStateVerifying.Regresses(UIStateProcessing))
	assert.False(t, UIStateProcessing.Regresses(UIStateCompleted))
	assert.False(t, UIStateProcessing.Regresses(UIStateProcessing))
}

// =====================================
// Тесты UserError
// =====================================

func TestUserError(t *testing.T) {
	err := NewUserError(ErrInvalidIdentity, "Player not found")
	wrapped := errors.Join(errors.New("context"), err)

	assert.True(t, errors.Is(wrapped, ErrInvalidIdentity))
	assert.Equal(t, "Player not found", UserMessage(wrapped, "fallback"))
	assert.Equal(t, "fallback", UserMessage(errors.New("plain"), "fallback"))

	empty := NewUserError(ErrNetwork, "")
	assert.Equal(t, ErrNetwork.Error(), empty.Message)
}
