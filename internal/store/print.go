package store

import (
	"context"
)

// PrintExperience 是渲染视图中的一段经历：模板字段加上按简历选择
// 过滤后的要点。
type PrintExperience struct {
	TemplateID   uint            `json:"template_id"`
	JobTitle     string          `json:"job_title"`
	CompanyName  string          `json:"company_name"`
	StartDate    string          `json:"start_date"`
	EndDate      *string         `json:"end_date"`
	Highlights   []HighlightView `json:"highlights"`
	DisplayOrder int             `json:"display_order"`
}

// PrintEducation 是渲染视图中的一条教育经历。
type PrintEducation struct {
	EducationItemID uint   `json:"education_item_id"`
	School          string `json:"school"`
	Degree          string `json:"degree"`
	Year            string `json:"year"`
	DisplayOrder    int    `json:"display_order"`
}

// PrintView 是打印/导出界面消费的最终渲染数据。
type PrintView struct {
	ResumeID   uint              `json:"resume_id"`
	Title      string            `json:"title"`
	Name       *string           `json:"name"`
	Phone      *string           `json:"phone"`
	Email      *string           `json:"email"`
	Experience []PrintExperience `json:"experience"`
	Education  []PrintEducation  `json:"education"`
}

// BuildPrintView 在读取时完成渲染期连接：
//   - 模板已删除的经历引用被整体丢弃；
//   - selected_highlight_ids 与模板现存要点求交集，陈旧 id 静默忽略；
//   - 已删除的教育条目同样被丢弃。
//
// 两个列表均按 display_order 升序。简历不存在返回 ErrNotFound。
func (s *Store) BuildPrintView(ctx context.Context, ownerID, resumeID uint) (*PrintView, error) {
	resume, err := s.GetResumeWithDetails(ctx, ownerID, resumeID)
	if err != nil {
		return nil, err
	}

	view := PrintView{
		ResumeID:   resume.ID,
		Title:      resume.Title,
		Name:       resume.NameValue,
		Phone:      resume.PhoneValue,
		Email:      resume.EmailValue,
		Experience: []PrintExperience{},
		Education:  []PrintEducation{},
	}

	for _, ref := range resume.ExperienceIDs {
		template, err := s.GetExperienceWithHighlights(ctx, ownerID, ref.TemplateID)
		if err == ErrNotFound {
			continue
		}
		if err != nil {
			return nil, err
		}

		selected := make(map[uint]bool, len(ref.SelectedHighlightIDs))
		for _, id := range ref.SelectedHighlightIDs {
			selected[id] = true
		}
		highlights := make([]HighlightView, 0, len(ref.SelectedHighlightIDs))
		for _, h := range template.Highlights {
			if selected[h.ID] {
				highlights = append(highlights, h)
			}
		}

		view.Experience = append(view.Experience, PrintExperience{
			TemplateID:   template.ID,
			JobTitle:     template.JobTitle,
			CompanyName:  template.CompanyName,
			StartDate:    template.StartDate,
			EndDate:      template.EndDate,
			Highlights:   highlights,
			DisplayOrder: ref.DisplayOrder,
		})
	}

	if len(resume.EducationIDs) > 0 {
		items, err := s.ListEducationItems(ctx, ownerID)
		if err != nil {
			return nil, err
		}
		byID := make(map[uint]EducationView, len(items))
		for _, item := range items {
			byID[item.ID] = item
		}
		for _, ref := range resume.EducationIDs {
			item, ok := byID[ref.ID]
			if !ok {
				continue
			}
			view.Education = append(view.Education, PrintEducation{
				EducationItemID: item.ID,
				School:          item.School,
				Degree:          item.Degree,
				Year:            item.Year,
				DisplayOrder:    ref.DisplayOrder,
			})
		}
	}

	return &view, nil
}
