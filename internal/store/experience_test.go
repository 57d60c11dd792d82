package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateExperienceSkipsBlankHighlights(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	view, err := s.CreateExperience(ctx, 1, "Engineer", "Acme Corp", "2023-01", nil,
		[]string{"Shipped the thing", "   ", "Fixed the other thing"})
	require.NoError(t, err)

	require.Len(t, view.Highlights, 2)
	assert.Equal(t, "Shipped the thing", view.Highlights[0].Text)
	assert.Equal(t, "Fixed the other thing", view.Highlights[1].Text)

	_, err = s.CreateExperience(ctx, 1, "", "Acme Corp", "2023-01", nil, nil)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCreateExperienceNormalizesEndDate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	view, err := s.CreateExperience(ctx, 1, "Engineer", "Acme Corp", "2023-01", ptr("  "), nil)
	require.NoError(t, err)
	assert.Nil(t, view.EndDate)

	view, err = s.CreateExperience(ctx, 1, "Manager", "Acme Corp", "2023-01", ptr("2024-06"), nil)
	require.NoError(t, err)
	require.NotNil(t, view.EndDate)
	assert.Equal(t, "2024-06", *view.EndDate)
}

func TestListExperiencesOrdersByStartDateDesc(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	older, err := s.CreateExperience(ctx, 1, "Junior", "Acme Corp", "2019-01", nil, nil)
	require.NoError(t, err)
	newer, err := s.CreateExperience(ctx, 1, "Senior", "Acme Corp", "2023-06", nil, nil)
	require.NoError(t, err)

	views, err := s.ListExperiencesWithHighlights(ctx, 1)
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, newer.ID, views[0].ID)
	assert.Equal(t, older.ID, views[1].ID)
}

func TestUpdateExperienceReplacesHighlights(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	view := mustCreateExperience(t, s, 1, "Engineer", "First", "Second")
	oldIDs := []uint{view.Highlights[0].ID, view.Highlights[1].ID}

	updated, err := s.UpdateExperience(ctx, 1, view.ID, ExperiencePatch{
		Highlights: &[]string{"Replacement"},
	})
	require.NoError(t, err)

	require.Len(t, updated.Highlights, 1)
	assert.Equal(t, "Replacement", updated.Highlights[0].Text)
	// 替换是删除重建，新要点拿到新 id
	assert.NotContains(t, oldIDs, updated.Highlights[0].ID)
}

func TestUpdateExperienceEndDateTriState(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	view, err := s.CreateExperience(ctx, 1, "Engineer", "Acme Corp", "2023-01", ptr("2024-06"), nil)
	require.NoError(t, err)

	// 未携带 end_date 字段时保持原值
	updated, err := s.UpdateExperience(ctx, 1, view.ID, ExperiencePatch{JobTitle: ptr("Staff Engineer")})
	require.NoError(t, err)
	require.NotNil(t, updated.EndDate)
	assert.Equal(t, "2024-06", *updated.EndDate)
	assert.Equal(t, "Staff Engineer", updated.JobTitle)

	// 显式清空
	updated, err = s.UpdateExperience(ctx, 1, view.ID, ExperiencePatch{EndDateSet: true})
	require.NoError(t, err)
	assert.Nil(t, updated.EndDate)
}

func TestDeleteExperienceCascades(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	view := mustCreateExperience(t, s, 1, "Engineer", "First")
	keep := mustCreateExperience(t, s, 1, "Manager", "Other")

	resume, err := s.CreateResume(ctx, 1, "Backend", nil, nil, nil, []ExperienceInstanceInput{
		{TemplateID: view.ID, SelectedHighlightIDs: []uint{view.Highlights[0].ID}},
		{TemplateID: keep.ID},
	}, nil)
	require.NoError(t, err)
	require.Len(t, resume.ExperienceIDs, 2)

	require.NoError(t, s.DeleteExperience(ctx, 1, view.ID))

	_, err = s.GetExperienceWithHighlights(ctx, 1, view.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	// 简历上的实例行被级联删除
	after, err := s.GetResumeWithDetails(ctx, 1, resume.ID)
	require.NoError(t, err)
	require.Len(t, after.ExperienceIDs, 1)
	assert.Equal(t, keep.ID, after.ExperienceIDs[0].TemplateID)

	err = s.DeleteExperience(ctx, 1, view.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
