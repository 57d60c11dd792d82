package store

import (
	"errors"

	"gorm.io/gorm"
)

// 错误分类与 API 层的 400/404/409 一一对应。
var (
	ErrNotFound   = errors.New("record not found")
	ErrConflict   = errors.New("duplicate record")
	ErrValidation = errors.New("invalid input")
)

// Store 封装全部实体的持久化操作。通过构造函数注入数据库句柄，
// 测试可以各自持有独立的内存库实例。
type Store struct {
	db *gorm.DB
}

// New 构造 Store。
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// recordExists 判断 owner 名下是否存在指定 ID 的记录。
func recordExists[T any](db *gorm.DB, ownerID, id uint) (bool, error) {
	var count int64
	if err := db.Model(new(T)).
		Where("id = ? AND owner_id = ?", id, ownerID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
