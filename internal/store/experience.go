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

// HighlightView 是要点在聚合视图中的形态。
type HighlightView struct {
	ID        uint      `json:"id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// ExperienceView 是经历模板连同其全部要点的只读聚合。
type ExperienceView struct {
	ID          uint            `json:"id"`
	JobTitle    string          `json:"job_title"`
	CompanyName string          `json:"company_name"`
	StartDate   string          `json:"start_date"`
	EndDate     *string         `json:"end_date"`
	Highlights  []HighlightView `json:"highlights"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// ExperiencePatch 描述一次部分更新。EndDateSet 区分“未提供”与“显式清空”；
// Highlights 非 nil 时整体替换现有要点。
type ExperiencePatch struct {
	JobTitle    *string
	CompanyName *string
	StartDate   *string
	EndDate     *string
	EndDateSet  bool
	Highlights  *[]string
}

// CreateExperience 创建经历模板及其要点，空白要点文本被跳过。
func (s *Store) CreateExperience(ctx context.Context, ownerID uint, jobTitle, companyName, startDate string, endDate *string, highlights []string) (*ExperienceView, error) {
	jobTitle = strings.TrimSpace(jobTitle)
	companyName = strings.TrimSpace(companyName)
	startDate = strings.TrimSpace(startDate)
	if jobTitle == "" || companyName == "" || startDate == "" {
		return nil, ErrValidation
	}

	template := database.ExperienceTemplate{
		OwnerID:     ownerID,
		JobTitle:    jobTitle,
		CompanyName: companyName,
		StartDate:   startDate,
		EndDate:     normalizeEndDate(endDate),
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&template).Error; err != nil {
			return fmt.Errorf("create experience template: %w", err)
		}
		return insertHighlights(tx, template.ID, highlights)
	})
	if err != nil {
		return nil, err
	}

	return s.GetExperienceWithHighlights(ctx, ownerID, template.ID)
}

// UpdateExperience 部分更新模板字段；patch.Highlights 非 nil 时
// 以删除重建方式替换全部要点。
func (s *Store) UpdateExperience(ctx context.Context, ownerID, id uint, patch ExperiencePatch) (*ExperienceView, error) {
	var template database.ExperienceTemplate
	err := s.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, ownerID).
		First(&template).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load experience template %d: %w", id, err)
	}

	updates := map[string]any{}
	if patch.JobTitle != nil && strings.TrimSpace(*patch.JobTitle) != "" {
		updates["job_title"] = strings.TrimSpace(*patch.JobTitle)
	}
	if patch.CompanyName != nil && strings.TrimSpace(*patch.CompanyName) != "" {
		updates["company_name"] = strings.TrimSpace(*patch.CompanyName)
	}
	if patch.StartDate != nil && strings.TrimSpace(*patch.StartDate) != "" {
		updates["start_date"] = strings.TrimSpace(*patch.StartDate)
	}
	if patch.EndDateSet {
		updates["end_date"] = normalizeEndDate(patch.EndDate)
	}
	updates["updated_at"] = time.Now().UTC()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&template).Updates(updates).Error; err != nil {
			return fmt.Errorf("update experience template %d: %w", id, err)
		}
		if patch.Highlights != nil {
			if err := tx.Where("experience_template_id = ?", id).
				Delete(&database.Highlight{}).Error; err != nil {
				return fmt.Errorf("delete highlights: %w", err)
			}
			if err := insertHighlights(tx, id, *patch.Highlights); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.GetExperienceWithHighlights(ctx, ownerID, id)
}

// DeleteExperience 先级联删除要点与全部简历实例行，再删除模板本身。
// 每一步都幂等，父记录缺失时整体返回 ErrNotFound 且无副作用。
func (s *Store) DeleteExperience(ctx context.Context, ownerID, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := recordExists[database.ExperienceTemplate](tx, ownerID, id)
		if err != nil {
			return fmt.Errorf("lookup experience template %d: %w", id, err)
		}
		if !ok {
			return ErrNotFound
		}

		if err := tx.Where("experience_template_id = ?", id).
			Delete(&database.Highlight{}).Error; err != nil {
			return fmt.Errorf("delete highlights: %w", err)
		}
		if err := tx.Where("experience_template_id = ?", id).
			Delete(&database.ResumeExperienceInstance{}).Error; err != nil {
			return fmt.Errorf("delete resume experience instances: %w", err)
		}
		if err := tx.Where("id = ? AND owner_id = ?", id, ownerID).
			Delete(&database.ExperienceTemplate{}).Error; err != nil {
			return fmt.Errorf("delete experience template %d: %w", id, err)
		}
		return nil
	})
}

// GetExperienceWithHighlights 返回单个模板的聚合视图，不存在时返回 ErrNotFound。
func (s *Store) GetExperienceWithHighlights(ctx context.Context, ownerID, id uint) (*ExperienceView, error) {
	var template database.ExperienceTemplate
	err := s.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, ownerID).
		First(&template).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load experience template %d: %w", id, err)
	}

	highlights, err := s.highlightsByTemplate(ctx, []uint{id})
	if err != nil {
		return nil, err
	}

	view := experienceView(template, highlights[id])
	return &view, nil
}

// ListExperiencesWithHighlights 返回 owner 的全部模板聚合视图，
// 按开始日期倒序、创建时间倒序。
func (s *Store) ListExperiencesWithHighlights(ctx context.Context, ownerID uint) ([]ExperienceView, error) {
	var templates []database.ExperienceTemplate
	if err := s.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("start_date DESC, created_at DESC, id DESC").
		Find(&templates).Error; err != nil {
		return nil, fmt.Errorf("list experience templates: %w", err)
	}

	ids := make([]uint, 0, len(templates))
	for _, t := range templates {
		ids = append(ids, t.ID)
	}
	highlights, err := s.highlightsByTemplate(ctx, ids)
	if err != nil {
		return nil, err
	}

	views := make([]ExperienceView, 0, len(templates))
	for _, t := range templates {
		views = append(views, experienceView(t, highlights[t.ID]))
	}
	return views, nil
}

// highlightsByTemplate 一次性加载多个模板的要点，按创建顺序分组返回。
func (s *Store) highlightsByTemplate(ctx context.Context, templateIDs []uint) (map[uint][]HighlightView, error) {
	grouped := make(map[uint][]HighlightView, len(templateIDs))
	if len(templateIDs) == 0 {
		return grouped, nil
	}

	var highlights []database.Highlight
	if err := s.db.WithContext(ctx).
		Where("experience_template_id IN ?", templateIDs).
		Order("created_at ASC, id ASC").
		Find(&highlights).Error; err != nil {
		return nil, fmt.Errorf("list highlights: %w", err)
	}

	for _, h := range highlights {
		grouped[h.ExperienceTemplateID] = append(grouped[h.ExperienceTemplateID], HighlightView{
			ID:        h.ID,
			Text:      h.Text,
			CreatedAt: h.CreatedAt,
		})
	}
	return grouped, nil
}

func experienceView(template database.ExperienceTemplate, highlights []HighlightView) ExperienceView {
	if highlights == nil {
		highlights = []HighlightView{}
	}
	return ExperienceView{
		ID:          template.ID,
		JobTitle:    template.JobTitle,
		CompanyName: template.CompanyName,
		StartDate:   template.StartDate,
		EndDate:     template.EndDate,
		Highlights:  highlights,
		CreatedAt:   template.CreatedAt,
		UpdatedAt:   template.UpdatedAt,
	}
}

func insertHighlights(tx *gorm.DB, templateID uint, texts []string) error {
	for _, text := range texts {
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		highlight := database.Highlight{
			ExperienceTemplateID: templateID,
			Text:                 text,
		}
		if err := tx.Create(&highlight).Error; err != nil {
			return fmt.Errorf("create highlight: %w", err)
		}
	}
	return nil
}

func normalizeEndDate(endDate *string) *string {
	if endDate == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*endDate)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
