package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rayzum/internal/database"
)

func TestBuildPrintViewIntersectsSelectedHighlights(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	exp := mustCreateExperience(t, s, 1, "Engineer", "First", "Second", "Third")
	selected := []uint{exp.Highlights[0].ID, exp.Highlights[2].ID}

	resume, err := s.CreateResume(ctx, 1, "Backend", nil, nil, nil,
		[]ExperienceInstanceInput{{TemplateID: exp.ID, SelectedHighlightIDs: selected}}, nil)
	require.NoError(t, err)

	view, err := s.BuildPrintView(ctx, 1, resume.ID)
	require.NoError(t, err)

	require.Len(t, view.Experience, 1)
	require.Len(t, view.Experience[0].Highlights, 2)
	assert.Equal(t, "First", view.Experience[0].Highlights[0].Text)
	assert.Equal(t, "Third", view.Experience[0].Highlights[1].Text)
}

func TestBuildPrintViewIgnoresStaleHighlightIDs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	exp := mustCreateExperience(t, s, 1, "Engineer", "First", "Second")
	resume, err := s.CreateResume(ctx, 1, "Backend", nil, nil, nil,
		[]ExperienceInstanceInput{{TemplateID: exp.ID, SelectedHighlightIDs: []uint{exp.Highlights[0].ID, exp.Highlights[1].ID}}}, nil)
	require.NoError(t, err)

	// 替换要点后简历上的旧 id 变陈旧
	_, err = s.UpdateExperience(ctx, 1, exp.ID, ExperiencePatch{Highlights: &[]string{"Replacement"}})
	require.NoError(t, err)

	view, err := s.BuildPrintView(ctx, 1, resume.ID)
	require.NoError(t, err)

	require.Len(t, view.Experience, 1)
	assert.Empty(t, view.Experience[0].Highlights)
}

func TestBuildPrintViewDropsDeadReferences(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	name := mustCreateName(t, s, 1, "Ada Lovelace")
	exp := mustCreateExperience(t, s, 1, "Engineer", "First")
	edu := mustCreateEducation(t, s, 1, "MIT", "BSc", "1999")

	resume, err := s.CreateResume(ctx, 1, "Backend", &name.ID, nil, nil,
		[]ExperienceInstanceInput{{TemplateID: exp.ID}}, []uint{edu.ID})
	require.NoError(t, err)

	require.NoError(t, DeleteContact[database.Name](ctx, s, 1, KindName, name.ID))
	// 经历与教育通过各自的级联删除，简历侧关联行消失
	require.NoError(t, s.DeleteExperience(ctx, 1, exp.ID))
	require.NoError(t, s.DeleteEducationItem(ctx, 1, edu.ID))

	view, err := s.BuildPrintView(ctx, 1, resume.ID)
	require.NoError(t, err)

	assert.Nil(t, view.Name)
	assert.Empty(t, view.Experience)
	assert.Empty(t, view.Education)
	assert.Equal(t, "Backend", view.Title)
}

func TestBuildPrintViewMissingResume(t *testing.T) {
	s := newTestStore(t)

	_, err := s.BuildPrintView(context.Background(), 1, 42)
	assert.ErrorIs(t, err, ErrNotFound)
}
