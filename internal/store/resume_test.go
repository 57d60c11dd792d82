package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rayzum/internal/database"
)

func TestCreateResumeRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	name := mustCreateName(t, s, 1, "Ada Lovelace")
	exp := mustCreateExperience(t, s, 1, "Engineer", "First", "Second")
	edu := mustCreateEducation(t, s, 1, "MIT", "BSc", "1999")

	view, err := s.CreateResume(ctx, 1, "Backend", &name.ID, nil, nil,
		[]ExperienceInstanceInput{{TemplateID: exp.ID, SelectedHighlightIDs: []uint{exp.Highlights[0].ID}}},
		[]uint{edu.ID})
	require.NoError(t, err)

	assert.Equal(t, "Backend", view.Title)
	require.NotNil(t, view.NameValue)
	assert.Equal(t, "Ada Lovelace", *view.NameValue)
	assert.Nil(t, view.PhoneValue)

	require.Len(t, view.ExperienceIDs, 1)
	assert.Equal(t, exp.ID, view.ExperienceIDs[0].TemplateID)
	assert.Equal(t, []uint{exp.Highlights[0].ID}, view.ExperienceIDs[0].SelectedHighlightIDs)
	assert.Equal(t, 0, view.ExperienceIDs[0].DisplayOrder)

	require.Len(t, view.EducationIDs, 1)
	assert.Equal(t, edu.ID, view.EducationIDs[0].ID)
}

func TestCreateResumeTitleConflictPerOwner(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateResume(ctx, 1, "Backend", nil, nil, nil, nil, nil)
	require.NoError(t, err)

	_, err = s.CreateResume(ctx, 1, "Backend", nil, nil, nil, nil, nil)
	assert.ErrorIs(t, err, ErrConflict)

	// 标题唯一性按用户隔离
	_, err = s.CreateResume(ctx, 2, "Backend", nil, nil, nil, nil, nil)
	assert.NoError(t, err)

	_, err = s.CreateResume(ctx, 1, "   ", nil, nil, nil, nil, nil)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCreateResumeSkipsDuplicatePairs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	exp := mustCreateExperience(t, s, 1, "Engineer")

	view, err := s.CreateResume(ctx, 1, "Backend", nil, nil, nil,
		[]ExperienceInstanceInput{{TemplateID: exp.ID}, {TemplateID: exp.ID}}, nil)
	require.NoError(t, err)
	assert.Len(t, view.ExperienceIDs, 1)
}

func TestUpdateResumeReplacesAssociationLists(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	e1 := mustCreateExperience(t, s, 1, "Engineer")
	e2 := mustCreateExperience(t, s, 1, "Manager")

	view, err := s.CreateResume(ctx, 1, "Backend", nil, nil, nil,
		[]ExperienceInstanceInput{{TemplateID: e1.ID}, {TemplateID: e2.ID}}, nil)
	require.NoError(t, err)
	require.Len(t, view.ExperienceIDs, 2)

	// [e1, e2] -> [e2]：整体替换，display_order 重排
	updated, err := s.UpdateResume(ctx, 1, view.ID, ResumePatch{
		Experience: &[]ExperienceInstanceInput{{TemplateID: e2.ID}},
	})
	require.NoError(t, err)
	require.Len(t, updated.ExperienceIDs, 1)
	assert.Equal(t, e2.ID, updated.ExperienceIDs[0].TemplateID)
	assert.Equal(t, 0, updated.ExperienceIDs[0].DisplayOrder)

	// 空列表清空全部关联
	updated, err = s.UpdateResume(ctx, 1, view.ID, ResumePatch{
		Experience: &[]ExperienceInstanceInput{},
	})
	require.NoError(t, err)
	assert.Empty(t, updated.ExperienceIDs)
}

func TestUpdateResumeContactTriState(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	name := mustCreateName(t, s, 1, "Ada Lovelace")
	view, err := s.CreateResume(ctx, 1, "Backend", &name.ID, nil, nil, nil, nil)
	require.NoError(t, err)

	// 不携带 name_id 时保持原引用
	updated, err := s.UpdateResume(ctx, 1, view.ID, ResumePatch{Title: ptr("Platform")})
	require.NoError(t, err)
	require.NotNil(t, updated.NameID)
	assert.Equal(t, name.ID, *updated.NameID)
	assert.Equal(t, "Platform", updated.Title)

	// 显式清空
	updated, err = s.UpdateResume(ctx, 1, view.ID, ResumePatch{NameIDSet: true})
	require.NoError(t, err)
	assert.Nil(t, updated.NameID)
	assert.Nil(t, updated.NameValue)
}

func TestUpdateResumeTitleConflict(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateResume(ctx, 1, "Backend", nil, nil, nil, nil, nil)
	require.NoError(t, err)
	other, err := s.CreateResume(ctx, 1, "Frontend", nil, nil, nil, nil, nil)
	require.NoError(t, err)

	_, err = s.UpdateResume(ctx, 1, other.ID, ResumePatch{Title: ptr("Backend")})
	assert.ErrorIs(t, err, ErrConflict)

	// 标题不变不算冲突
	_, err = s.UpdateResume(ctx, 1, other.ID, ResumePatch{Title: ptr("Frontend")})
	assert.NoError(t, err)

	_, err = s.UpdateResume(ctx, 1, 999, ResumePatch{Title: ptr("X")})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResumeDanglingContactResolvesNull(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	name := mustCreateName(t, s, 1, "Ada Lovelace")
	view, err := s.CreateResume(ctx, 1, "Backend", &name.ID, nil, nil, nil, nil)
	require.NoError(t, err)

	require.NoError(t, DeleteContact[database.Name](ctx, s, 1, KindName, name.ID))

	// 弱引用保留，值解析为 null
	after, err := s.GetResumeWithDetails(ctx, 1, view.ID)
	require.NoError(t, err)
	require.NotNil(t, after.NameID)
	assert.Equal(t, name.ID, *after.NameID)
	assert.Nil(t, after.NameValue)
}

func TestDeleteResumeCascades(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	exp := mustCreateExperience(t, s, 1, "Engineer")
	edu := mustCreateEducation(t, s, 1, "MIT", "BSc", "1999")

	view, err := s.CreateResume(ctx, 1, "Backend", nil, nil, nil,
		[]ExperienceInstanceInput{{TemplateID: exp.ID}}, []uint{edu.ID})
	require.NoError(t, err)

	require.NoError(t, s.DeleteResume(ctx, 1, view.ID))

	_, err = s.GetResumeWithDetails(ctx, 1, view.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	var instanceCount, linkCount int64
	require.NoError(t, s.db.Model(&database.ResumeExperienceInstance{}).Where("resume_id = ?", view.ID).Count(&instanceCount).Error)
	require.NoError(t, s.db.Model(&database.ResumeEducation{}).Where("resume_id = ?", view.ID).Count(&linkCount).Error)
	assert.Zero(t, instanceCount)
	assert.Zero(t, linkCount)

	err = s.DeleteResume(ctx, 1, view.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListResumesScopedToOwner(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateResume(ctx, 1, "Backend", nil, nil, nil, nil, nil)
	require.NoError(t, err)
	_, err = s.CreateResume(ctx, 2, "Other", nil, nil, nil, nil, nil)
	require.NoError(t, err)

	views, err := s.ListResumesWithDetails(ctx, 1)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "Backend", views[0].Title)

	// 跨用户读取单条同样不可见
	_, err = s.GetResumeWithDetails(ctx, 1, views[0].ID+1)
	assert.ErrorIs(t, err, ErrNotFound)
}
