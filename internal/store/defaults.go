package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"rayzum/internal/database"
)

// defaultable 列出参与单默认项约束的四个实体类别。
type defaultable interface {
	database.Name | database.Phone | database.Email | database.EducationItem
}

// SetDefault 将 owner 在 entityType 类别下的默认项指向 id。
// 语义为 last-writer-wins：重复调用同一 id 结果不变，不是开关切换。
// 目标记录不存在时返回 ErrNotFound，且不改动现有映射。
func SetDefault[T defaultable](ctx context.Context, s *Store, ownerID uint, entityType string, id uint) error {
	ok, err := recordExists[T](s.db.WithContext(ctx), ownerID, id)
	if err != nil {
		return fmt.Errorf("lookup %s %d: %w", entityType, id, err)
	}
	if !ok {
		return ErrNotFound
	}

	selection := database.DefaultSelection{
		OwnerID:    ownerID,
		EntityType: entityType,
		EntityID:   id,
	}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "owner_id"}, {Name: "entity_type"}},
		DoUpdates: clause.Assignments(map[string]any{
			"entity_id":  id,
			"updated_at": time.Now().UTC(),
		}),
	}).Create(&selection).Error
	if err != nil {
		return fmt.Errorf("upsert default %s: %w", entityType, err)
	}
	return nil
}

// DefaultEntityID 返回类别当前默认项的 ID，未设置时返回 0。
func (s *Store) DefaultEntityID(ctx context.Context, ownerID uint, entityType string) (uint, error) {
	var selection database.DefaultSelection
	err := s.db.WithContext(ctx).
		Where("owner_id = ? AND entity_type = ?", ownerID, entityType).
		First(&selection).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("query default %s: %w", entityType, err)
	}
	return selection.EntityID, nil
}

// clearDefaultIfPointsTo 在被默认项引用的实体删除时移除映射行，
// 保证映射不会指向不存在的记录。
func clearDefaultIfPointsTo(tx *gorm.DB, ownerID uint, entityType string, id uint) error {
	return tx.
		Where("owner_id = ? AND entity_type = ? AND entity_id = ?", ownerID, entityType, id).
		Delete(&database.DefaultSelection{}).Error
}
