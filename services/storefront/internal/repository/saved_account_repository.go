// Package repository содержит доступ к данным storefront gateway.
package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"example.com/topup-storefront/services/storefront/internal/domain"
)

// SavedAccountRepository — сохранённые игровые аккаунты покупателя.
type SavedAccountRepository interface {
	// Upsert сохраняет аккаунт; повторное сохранение обновляет ник и время.
	Upsert(ctx context.Context, acc *domain.SavedAccount) error

	// ListByUserGame возвращает аккаунты пользователя по игре, свежие первыми.
	ListByUserGame(ctx context.Context, userID, gameID string, limit int) ([]domain.SavedAccount, error)
}

// SavedAccountModel — GORM модель таблицы saved_accounts.
type SavedAccountModel struct {
	ID        uint64    `gorm:"column:id;primaryKey;autoIncrement"`
	UserID    string    `gorm:"column:user_id;type:varchar(64);not null;uniqueIndex:idx_saved_account,priority:1"`
	GameID    string    `gorm:"column:game_id;type:varchar(64);not null;uniqueIndex:idx_saved_account,priority:2"`
	PlayerID  string    `gorm:"column:player_id;type:varchar(64);not null;uniqueIndex:idx_saved_account,priority:3"`
	ZoneID    string    `gorm:"column:zone_id;type:varchar(32);not null;default:'';uniqueIndex:idx_saved_account,priority:4"`
	Server    string    `gorm:"column:server;type:varchar(32);not null;default:''"`
	IGN       string    `gorm:"column:ign;type:varchar(128)"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName возвращает имя таблицы в БД.
func (SavedAccountModel) TableName() string {
	return "saved_accounts"
}

func (m *SavedAccountModel) toDomain() domain.SavedAccount {
	return domain.SavedAccount{
		UserID:     m.UserID,
		GameID:     m.GameID,
		PlayerID:   m.PlayerID,
		ZoneID:     m.ZoneID,
		Server:     m.Server,
		IGN:        m.IGN,
		LastUsedAt: m.UpdatedAt,
	}
}

type savedAccountRepository struct {
	db *gorm.DB
}

// NewSavedAccountRepository создаёт репозиторий сохранённых аккаунтов.
func NewSavedAccountRepository(db *gorm.DB) SavedAccountRepository {
	return &savedAccountRepository{db: db}
}

// Upsert — INSERT ... ON DUPLICATE KEY UPDATE по (user, game, player, zone).
func (r *savedAccountRepository) Upsert(ctx context.Context, acc *domain.SavedAccount) error {
	model := &SavedAccountModel{
		UserID:   acc.UserID,
		GameID:   acc.GameID,
		PlayerID: acc.PlayerID,
		ZoneID:   acc.ZoneID,
		Server:   acc.Server,
		IGN:      acc.IGN,
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			DoUpdates: clause.AssignmentColumns([]string{"server", "ign", "updated_at"}),
		}).
		Create(model).Error
	if err != nil {
		return err
	}

	acc.LastUsedAt = model.UpdatedAt
	return nil
}

// ListByUserGame возвращает до limit аккаунтов (limit <= 0 — 10).
func (r *savedAccountRepository) ListByUserGame(ctx context.Context, userID, gameID string, limit int) ([]domain.SavedAccount, error) {
	if limit <= 0 {
		limit = 10
	}

	var models []SavedAccountModel
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND game_id = ?", userID, gameID).
		Order("updated_at DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	accounts := make([]domain.SavedAccount, 0, len(models))
	for i := range models {
		accounts = append(accounts, models[i].toDomain())
	}
	return accounts, nil
}
