package store

import (
	"context"
	"fmt"

	"rayzum/internal/database"
)

// IntegrityReport 汇总一个用户名下各类“可接受但不干净”的引用状态。
// 悬空联系信息引用与陈旧要点子集是既有产品行为（删除不回写引用方），
// 巡检只统计不修复。
type IntegrityReport struct {
	DanglingNameRefs     int `json:"dangling_name_refs"`
	DanglingPhoneRefs    int `json:"dangling_phone_refs"`
	DanglingEmailRefs    int `json:"dangling_email_refs"`
	StaleHighlightRefs   int `json:"stale_highlight_refs"`
	OrphanInstances      int `json:"orphan_instances"`
	OrphanEducationLinks int `json:"orphan_education_links"`
}

// IntegrityReport 扫描 owner 的全部简历并统计悬空/陈旧引用。只读。
func (s *Store) IntegrityReport(ctx context.Context, ownerID uint) (*IntegrityReport, error) {
	report := &IntegrityReport{}

	var resumes []database.Resume
	if err := s.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Find(&resumes).Error; err != nil {
		return nil, fmt.Errorf("list resumes: %w", err)
	}
	if len(resumes) == 0 {
		return report, nil
	}

	nameIDs, err := collectIDs[database.Name](ctx, s, ownerID)
	if err != nil {
		return nil, err
	}
	phoneIDs, err := collectIDs[database.Phone](ctx, s, ownerID)
	if err != nil {
		return nil, err
	}
	emailIDs, err := collectIDs[database.Email](ctx, s, ownerID)
	if err != nil {
		return nil, err
	}

	resumeIDs := make([]uint, 0, len(resumes))
	for _, r := range resumes {
		resumeIDs = append(resumeIDs, r.ID)
		if r.NameID != nil && !nameIDs[*r.NameID] {
			report.DanglingNameRefs++
		}
		if r.PhoneID != nil && !phoneIDs[*r.PhoneID] {
			report.DanglingPhoneRefs++
		}
		if r.EmailID != nil && !emailIDs[*r.EmailID] {
			report.DanglingEmailRefs++
		}
	}

	templateIDs, err := collectIDs[database.ExperienceTemplate](ctx, s, ownerID)
	if err != nil {
		return nil, err
	}
	educationIDs, err := collectIDs[database.EducationItem](ctx, s, ownerID)
	if err != nil {
		return nil, err
	}

	// 子集校验以各自模板现存要点为准，属于其他模板的 id 同样视作陈旧。
	var highlights []database.Highlight
	if err := s.db.WithContext(ctx).Find(&highlights).Error; err != nil {
		return nil, fmt.Errorf("list highlights: %w", err)
	}
	liveByTemplate := make(map[uint]map[uint]bool)
	for _, h := range highlights {
		set := liveByTemplate[h.ExperienceTemplateID]
		if set == nil {
			set = make(map[uint]bool)
			liveByTemplate[h.ExperienceTemplateID] = set
		}
		set[h.ID] = true
	}

	var instances []database.ResumeExperienceInstance
	if err := s.db.WithContext(ctx).
		Where("resume_id IN ?", resumeIDs).
		Find(&instances).Error; err != nil {
		return nil, fmt.Errorf("list resume experience instances: %w", err)
	}
	for _, inst := range instances {
		if !templateIDs[inst.ExperienceTemplateID] {
			report.OrphanInstances++
			continue
		}
		live := liveByTemplate[inst.ExperienceTemplateID]
		for _, id := range inst.SelectedHighlightIDs {
			if !live[id] {
				report.StaleHighlightRefs++
			}
		}
	}

	var links []database.ResumeEducation
	if err := s.db.WithContext(ctx).
		Where("resume_id IN ?", resumeIDs).
		Find(&links).Error; err != nil {
		return nil, fmt.Errorf("list resume education links: %w", err)
	}
	for _, link := range links {
		if !educationIDs[link.EducationItemID] {
			report.OrphanEducationLinks++
		}
	}

	return report, nil
}

func collectIDs[T any](ctx context.Context, s *Store, ownerID uint) (map[uint]bool, error) {
	var ids []uint
	if err := s.db.WithContext(ctx).Model(new(T)).
		Where("owner_id = ?", ownerID).
		Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("collect ids: %w", err)
	}
	set := make(map[uint]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}
