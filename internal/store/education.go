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

// EducationView 是教育经历的读取形态。
type EducationView struct {
	ID        uint      `json:"id"`
	School    string    `json:"school"`
	Degree    string    `json:"degree"`
	Year      string    `json:"year"`
	IsDefault bool      `json:"is_default"`
	CreatedAt time.Time `json:"created_at"`
}

// EducationPatch 描述一次部分更新，nil 字段保持原值。
type EducationPatch struct {
	School *string
	Degree *string
	Year   *string
}

func educationView(item database.EducationItem, defaultID uint) EducationView {
	return EducationView{
		ID:        item.ID,
		School:    item.School,
		Degree:    item.Degree,
		Year:      item.Year,
		IsDefault: defaultID != 0 && item.ID == defaultID,
		CreatedAt: item.CreatedAt,
	}
}

// ListEducationItems 返回 owner 的全部教育经历，按创建时间倒序。
func (s *Store) ListEducationItems(ctx context.Context, ownerID uint) ([]EducationView, error) {
	var items []database.EducationItem
	if err := s.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC, id DESC").
		Find(&items).Error; err != nil {
		return nil, fmt.Errorf("list education items: %w", err)
	}

	defaultID, err := s.DefaultEntityID(ctx, ownerID, database.EntityEducation)
	if err != nil {
		return nil, err
	}

	views := make([]EducationView, 0, len(items))
	for _, item := range items {
		views = append(views, educationView(item, defaultID))
	}
	return views, nil
}

// CreateEducationItem 插入一条教育经历。(school, degree, year) 组合重复返回 ErrConflict。
func (s *Store) CreateEducationItem(ctx context.Context, ownerID uint, school, degree, year string) (*EducationView, error) {
	school = strings.TrimSpace(school)
	degree = strings.TrimSpace(degree)
	year = strings.TrimSpace(year)
	if school == "" || degree == "" || year == "" {
		return nil, ErrValidation
	}

	taken, err := s.educationTupleTaken(ctx, ownerID, school, degree, year, 0)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrConflict
	}

	item := database.EducationItem{
		OwnerID: ownerID,
		School:  school,
		Degree:  degree,
		Year:    year,
	}
	if err := s.db.WithContext(ctx).Create(&item).Error; err != nil {
		return nil, fmt.Errorf("create education item: %w", err)
	}

	view := educationView(item, 0)
	return &view, nil
}

// UpdateEducationItem 部分更新教育经历，更新后的组合与其他记录冲突返回 ErrConflict。
func (s *Store) UpdateEducationItem(ctx context.Context, ownerID, id uint, patch EducationPatch) (*EducationView, error) {
	var item database.EducationItem
	err := s.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, ownerID).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load education item %d: %w", id, err)
	}

	school, degree, year := item.School, item.Degree, item.Year
	if patch.School != nil {
		school = strings.TrimSpace(*patch.School)
	}
	if patch.Degree != nil {
		degree = strings.TrimSpace(*patch.Degree)
	}
	if patch.Year != nil {
		year = strings.TrimSpace(*patch.Year)
	}
	if school == "" || degree == "" || year == "" {
		return nil, ErrValidation
	}

	taken, err := s.educationTupleTaken(ctx, ownerID, school, degree, year, id)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrConflict
	}

	updates := map[string]any{"school": school, "degree": degree, "year": year}
	if err := s.db.WithContext(ctx).Model(&item).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("update education item %d: %w", id, err)
	}

	defaultID, err := s.DefaultEntityID(ctx, ownerID, database.EntityEducation)
	if err != nil {
		return nil, err
	}
	view := educationView(item, defaultID)
	return &view, nil
}

// DeleteEducationItem 级联删除所有简历对它的关联行，再删除条目本身。
func (s *Store) DeleteEducationItem(ctx context.Context, ownerID, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := recordExists[database.EducationItem](tx, ownerID, id)
		if err != nil {
			return fmt.Errorf("lookup education item %d: %w", id, err)
		}
		if !ok {
			return ErrNotFound
		}

		if err := tx.Where("education_item_id = ?", id).
			Delete(&database.ResumeEducation{}).Error; err != nil {
			return fmt.Errorf("delete resume education links: %w", err)
		}
		if err := clearDefaultIfPointsTo(tx, ownerID, database.EntityEducation, id); err != nil {
			return fmt.Errorf("clear default education item: %w", err)
		}
		if err := tx.Where("id = ? AND owner_id = ?", id, ownerID).
			Delete(&database.EducationItem{}).Error; err != nil {
			return fmt.Errorf("delete education item %d: %w", id, err)
		}
		return nil
	})
}

func (s *Store) educationTupleTaken(ctx context.Context, ownerID uint, school, degree, year string, excludeID uint) (bool, error) {
	query := s.db.WithContext(ctx).Model(&database.EducationItem{}).
		Where("owner_id = ? AND school = ? AND degree = ? AND year = ?", ownerID, school, degree, year)
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, fmt.Errorf("check education uniqueness: %w", err)
	}
	return count > 0, nil
}
