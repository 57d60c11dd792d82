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

// ExperienceRef 是简历视图中对一个经历实例的引用。
// SelectedHighlightIDs 按存储原样返回，不做与现存要点的交集
// （交集在渲染视图中完成）。
type ExperienceRef struct {
	ID                   uint   `json:"id"`
	TemplateID           uint   `json:"template_id"`
	SelectedHighlightIDs []uint `json:"selected_highlight_ids"`
	DisplayOrder         int    `json:"display_order"`
}

// EducationRef 是简历视图中对一条教育经历的引用，ID 为 education_item_id。
type EducationRef struct {
	ID           uint `json:"id"`
	DisplayOrder int  `json:"display_order"`
}

// ResumeView 是一份简历的全量反范式视图：基础字段、已解析的联系信息值、
// 以及两个按 display_order 升序排列的引用列表。
type ResumeView struct {
	ID            uint            `json:"id"`
	Title         string          `json:"title"`
	NameID        *uint           `json:"name_id"`
	PhoneID       *uint           `json:"phone_id"`
	EmailID       *uint           `json:"email_id"`
	NameValue     *string         `json:"name_value"`
	PhoneValue    *string         `json:"phone_value"`
	EmailValue    *string         `json:"email_value"`
	ExperienceIDs []ExperienceRef `json:"experience_ids"`
	EducationIDs  []EducationRef  `json:"education_ids"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// ExperienceInstanceInput 描述创建/更新简历时选择的一个经历模板
// 及其要点子集。
type ExperienceInstanceInput struct {
	TemplateID           uint
	SelectedHighlightIDs []uint
}

// ResumePatch 描述简历的部分更新。三个联系信息引用为三态：
// Set 为 false 保持原值，为 true 时写入指针值（可为 nil 即清空）。
// Experience/Education 非 nil 时整体替换关联列表（删除重建，非增量）。
type ResumePatch struct {
	Title      *string
	NameID     *uint
	NameIDSet  bool
	PhoneID    *uint
	PhoneIDSet bool
	EmailID    *uint
	EmailIDSet bool
	Experience *[]ExperienceInstanceInput
	Education  *[]uint
}

// CreateResume 创建简历及其关联列表。标题重复返回 ErrConflict；
// 列表中重复的 (resume, template) 或 (resume, education_item) 对被跳过。
func (s *Store) CreateResume(ctx context.Context, ownerID uint, title string, nameID, phoneID, emailID *uint, instances []ExperienceInstanceInput, educationIDs []uint) (*ResumeView, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrValidation
	}

	taken, err := s.resumeTitleTaken(ctx, ownerID, title, 0)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrConflict
	}

	resume := database.Resume{
		OwnerID: ownerID,
		Title:   title,
		NameID:  nameID,
		PhoneID: phoneID,
		EmailID: emailID,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&resume).Error; err != nil {
			return fmt.Errorf("create resume: %w", err)
		}
		if err := insertExperienceInstances(tx, resume.ID, instances); err != nil {
			return err
		}
		return insertEducationLinks(tx, resume.ID, educationIDs)
	})
	if err != nil {
		return nil, err
	}

	return s.GetResumeWithDetails(ctx, ownerID, resume.ID)
}

// UpdateResume 部分更新简历。关联列表在 patch 中出现时以
// 删除重建方式整体替换，无论之前有多少行。
func (s *Store) UpdateResume(ctx context.Context, ownerID, id uint, patch ResumePatch) (*ResumeView, error) {
	var resume database.Resume
	err := s.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, ownerID).
		First(&resume).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load resume %d: %w", id, err)
	}

	updates := map[string]any{"updated_at": time.Now().UTC()}
	if patch.Title != nil && strings.TrimSpace(*patch.Title) != "" {
		title := strings.TrimSpace(*patch.Title)
		if title != resume.Title {
			taken, err := s.resumeTitleTaken(ctx, ownerID, title, id)
			if err != nil {
				return nil, err
			}
			if taken {
				return nil, ErrConflict
			}
		}
		updates["title"] = title
	}
	if patch.NameIDSet {
		updates["name_id"] = patch.NameID
	}
	if patch.PhoneIDSet {
		updates["phone_id"] = patch.PhoneID
	}
	if patch.EmailIDSet {
		updates["email_id"] = patch.EmailID
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&resume).Updates(updates).Error; err != nil {
			return fmt.Errorf("update resume %d: %w", id, err)
		}
		if patch.Experience != nil {
			if err := tx.Where("resume_id = ?", id).
				Delete(&database.ResumeExperienceInstance{}).Error; err != nil {
				return fmt.Errorf("delete resume experience instances: %w", err)
			}
			if err := insertExperienceInstances(tx, id, *patch.Experience); err != nil {
				return err
			}
		}
		if patch.Education != nil {
			if err := tx.Where("resume_id = ?", id).
				Delete(&database.ResumeEducation{}).Error; err != nil {
				return fmt.Errorf("delete resume education links: %w", err)
			}
			if err := insertEducationLinks(tx, id, *patch.Education); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.GetResumeWithDetails(ctx, ownerID, id)
}

// DeleteResume 先删除两类关联行再删除简历本身。
func (s *Store) DeleteResume(ctx context.Context, ownerID, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := recordExists[database.Resume](tx, ownerID, id)
		if err != nil {
			return fmt.Errorf("lookup resume %d: %w", id, err)
		}
		if !ok {
			return ErrNotFound
		}

		if err := tx.Where("resume_id = ?", id).
			Delete(&database.ResumeExperienceInstance{}).Error; err != nil {
			return fmt.Errorf("delete resume experience instances: %w", err)
		}
		if err := tx.Where("resume_id = ?", id).
			Delete(&database.ResumeEducation{}).Error; err != nil {
			return fmt.Errorf("delete resume education links: %w", err)
		}
		if err := tx.Where("id = ? AND owner_id = ?", id, ownerID).
			Delete(&database.Resume{}).Error; err != nil {
			return fmt.Errorf("delete resume %d: %w", id, err)
		}
		return nil
	})
}

// GetResumeWithDetails 组装单份简历的反范式视图。
// 悬空的联系信息引用解析为 null，从不视作错误。
func (s *Store) GetResumeWithDetails(ctx context.Context, ownerID, id uint) (*ResumeView, error) {
	var resume database.Resume
	err := s.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, ownerID).
		First(&resume).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load resume %d: %w", id, err)
	}

	view := ResumeView{
		ID:            resume.ID,
		Title:         resume.Title,
		NameID:        resume.NameID,
		PhoneID:       resume.PhoneID,
		EmailID:       resume.EmailID,
		ExperienceIDs: []ExperienceRef{},
		EducationIDs:  []EducationRef{},
		CreatedAt:     resume.CreatedAt,
		UpdatedAt:     resume.UpdatedAt,
	}

	view.NameValue, err = resolveContactValue[database.Name](ctx, s, ownerID, resume.NameID)
	if err != nil {
		return nil, err
	}
	view.PhoneValue, err = resolveContactValue[database.Phone](ctx, s, ownerID, resume.PhoneID)
	if err != nil {
		return nil, err
	}
	view.EmailValue, err = resolveContactValue[database.Email](ctx, s, ownerID, resume.EmailID)
	if err != nil {
		return nil, err
	}

	var instances []database.ResumeExperienceInstance
	if err := s.db.WithContext(ctx).
		Where("resume_id = ?", id).
		Order("display_order ASC, id ASC").
		Find(&instances).Error; err != nil {
		return nil, fmt.Errorf("list resume experience instances: %w", err)
	}
	for _, inst := range instances {
		view.ExperienceIDs = append(view.ExperienceIDs, ExperienceRef{
			ID:                   inst.ID,
			TemplateID:           inst.ExperienceTemplateID,
			SelectedHighlightIDs: inst.SelectedHighlightIDs,
			DisplayOrder:         inst.DisplayOrder,
		})
	}

	var links []database.ResumeEducation
	if err := s.db.WithContext(ctx).
		Where("resume_id = ?", id).
		Order("display_order ASC, id ASC").
		Find(&links).Error; err != nil {
		return nil, fmt.Errorf("list resume education links: %w", err)
	}
	for _, link := range links {
		view.EducationIDs = append(view.EducationIDs, EducationRef{
			ID:           link.EducationItemID,
			DisplayOrder: link.DisplayOrder,
		})
	}

	return &view, nil
}

// ListResumesWithDetails 返回 owner 的全部简历视图，按更新时间倒序。
func (s *Store) ListResumesWithDetails(ctx context.Context, ownerID uint) ([]ResumeView, error) {
	var resumes []database.Resume
	if err := s.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("updated_at DESC, id DESC").
		Find(&resumes).Error; err != nil {
		return nil, fmt.Errorf("list resumes: %w", err)
	}

	views := make([]ResumeView, 0, len(resumes))
	for _, r := range resumes {
		view, err := s.GetResumeWithDetails(ctx, ownerID, r.ID)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		views = append(views, *view)
	}
	return views, nil
}

func (s *Store) resumeTitleTaken(ctx context.Context, ownerID uint, title string, excludeID uint) (bool, error) {
	query := s.db.WithContext(ctx).Model(&database.Resume{}).
		Where("owner_id = ? AND title = ?", ownerID, title)
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, fmt.Errorf("check resume title uniqueness: %w", err)
	}
	return count > 0, nil
}

func resolveContactValue[T contactRecord](ctx context.Context, s *Store, ownerID uint, id *uint) (*string, error) {
	if id == nil {
		return nil, nil
	}
	var record T
	err := s.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", *id, ownerID).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// 弱引用悬空：被引用记录已删除，视图中呈现 null。
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve contact %d: %w", *id, err)
	}
	_, value, _ := contactFields(record)
	return &value, nil
}

func insertExperienceInstances(tx *gorm.DB, resumeID uint, instances []ExperienceInstanceInput) error {
	seen := make(map[uint]bool, len(instances))
	order := 0
	for _, input := range instances {
		if input.TemplateID == 0 || seen[input.TemplateID] {
			order++
			continue
		}
		seen[input.TemplateID] = true

		selected := input.SelectedHighlightIDs
		if selected == nil {
			selected = []uint{}
		}
		instance := database.ResumeExperienceInstance{
			ResumeID:             resumeID,
			ExperienceTemplateID: input.TemplateID,
			SelectedHighlightIDs: selected,
			DisplayOrder:         order,
		}
		if err := tx.Create(&instance).Error; err != nil {
			return fmt.Errorf("create resume experience instance: %w", err)
		}
		order++
	}
	return nil
}

func insertEducationLinks(tx *gorm.DB, resumeID uint, educationIDs []uint) error {
	seen := make(map[uint]bool, len(educationIDs))
	order := 0
	for _, eduID := range educationIDs {
		if eduID == 0 || seen[eduID] {
			order++
			continue
		}
		seen[eduID] = true

		link := database.ResumeEducation{
			ResumeID:        resumeID,
			EducationItemID: eduID,
			DisplayOrder:    order,
		}
		if err := tx.Create(&link).Error; err != nil {
			return fmt.Errorf("create resume education link: %w", err)
		}
		order++
	}
	return nil
}
