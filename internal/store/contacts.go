package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"rayzum/internal/database"
)

// contactRecord 约束三类联系信息实体。
type contactRecord interface {
	database.Name | database.Phone | database.Email
}

// ContactKind 描述一个联系信息类别：默认项映射用的类别名与值所在的列名。
type ContactKind struct {
	EntityType string
	Column     string
}

var (
	KindName  = ContactKind{EntityType: database.EntityName, Column: "name"}
	KindPhone = ContactKind{EntityType: database.EntityPhone, Column: "phone"}
	KindEmail = ContactKind{EntityType: database.EntityEmail, Column: "email"}
)

// ContactView 是联系信息的统一读取形态，is_default 由映射表推导。
type ContactView struct {
	ID        uint      `json:"id"`
	Value     string    `json:"value"`
	IsDefault bool      `json:"is_default"`
	CreatedAt time.Time `json:"created_at"`
}

func contactFields(rec any) (id uint, value string, createdAt time.Time) {
	switch v := rec.(type) {
	case database.Name:
		return v.ID, v.Value, v.CreatedAt
	case database.Phone:
		return v.ID, v.Value, v.CreatedAt
	case database.Email:
		return v.ID, v.Value, v.CreatedAt
	}
	return 0, "", time.Time{}
}

// ListContacts 返回 owner 的全部记录，按创建时间倒序。
func ListContacts[T contactRecord](ctx context.Context, s *Store, ownerID uint, kind ContactKind) ([]ContactView, error) {
	var records []T
	if err := s.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC, id DESC").
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("list %s: %w", kind.EntityType, err)
	}

	defaultID, err := s.DefaultEntityID(ctx, ownerID, kind.EntityType)
	if err != nil {
		return nil, err
	}

	views := make([]ContactView, 0, len(records))
	for _, rec := range records {
		id, value, createdAt := contactFields(rec)
		views = append(views, ContactView{
			ID:        id,
			Value:     value,
			IsDefault: defaultID != 0 && id == defaultID,
			CreatedAt: createdAt,
		})
	}
	return views, nil
}

// CreateContact 插入一条新记录。值为空返回 ErrValidation，
// 同一 owner 下值重复返回 ErrConflict。record 的值字段由调用方填好。
func CreateContact[T contactRecord](ctx context.Context, s *Store, ownerID uint, kind ContactKind, value string) (*ContactView, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, ErrValidation
	}

	taken, err := contactValueTaken[T](s.db.WithContext(ctx), ownerID, kind, value, 0)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrConflict
	}

	record := newContact[T](ownerID, value)
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return nil, fmt.Errorf("create %s: %w", kind.EntityType, err)
	}

	id, v, createdAt := contactFields(record)
	return &ContactView{ID: id, Value: v, CreatedAt: createdAt}, nil
}

// UpdateContact 修改记录的值。目标不存在返回 ErrNotFound，
// 新值与其他记录冲突返回 ErrConflict。
func UpdateContact[T contactRecord](ctx context.Context, s *Store, ownerID uint, kind ContactKind, id uint, value string) (*ContactView, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, ErrValidation
	}

	var record T
	err := s.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, ownerID).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load %s %d: %w", kind.EntityType, id, err)
	}

	taken, err := contactValueTaken[T](s.db.WithContext(ctx), ownerID, kind, value, id)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrConflict
	}

	if err := s.db.WithContext(ctx).Model(&record).Update(kind.Column, value).Error; err != nil {
		return nil, fmt.Errorf("update %s %d: %w", kind.EntityType, id, err)
	}

	defaultID, err := s.DefaultEntityID(ctx, ownerID, kind.EntityType)
	if err != nil {
		return nil, err
	}

	recID, _, createdAt := contactFields(record)
	return &ContactView{
		ID:        recID,
		Value:     value,
		IsDefault: defaultID != 0 && recID == defaultID,
		CreatedAt: createdAt,
	}, nil
}

// DeleteContact 删除记录，并在其恰为默认项时一并移除映射。
// 简历上指向它的弱引用保持原样，读取时解析为 null。
func DeleteContact[T contactRecord](ctx context.Context, s *Store, ownerID uint, kind ContactKind, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := recordExists[T](tx, ownerID, id)
		if err != nil {
			return fmt.Errorf("lookup %s %d: %w", kind.EntityType, id, err)
		}
		if !ok {
			return ErrNotFound
		}

		if err := clearDefaultIfPointsTo(tx, ownerID, kind.EntityType, id); err != nil {
			return fmt.Errorf("clear default %s: %w", kind.EntityType, err)
		}
		if err := tx.Where("id = ? AND owner_id = ?", id, ownerID).Delete(new(T)).Error; err != nil {
			return fmt.Errorf("delete %s %d: %w", kind.EntityType, id, err)
		}
		return nil
	})
}

func contactValueTaken[T contactRecord](db *gorm.DB, ownerID uint, kind ContactKind, value string, excludeID uint) (bool, error) {
	query := db.Model(new(T)).
		Where("owner_id = ? AND "+kind.Column+" = ?", ownerID, value)
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, fmt.Errorf("check %s uniqueness: %w", kind.EntityType, err)
	}
	return count > 0, nil
}

func newContact[T contactRecord](ownerID uint, value string) T {
	var record T
	switch v := any(&record).(type) {
	case *database.Name:
		v.OwnerID, v.Value = ownerID, value
	case *database.Phone:
		v.OwnerID, v.Value = ownerID, value
	case *database.Email:
		v.OwnerID, v.Value = ownerID, value
	}
	return record
}
