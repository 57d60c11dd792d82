package store

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"rayzum/internal/database"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err, "open sqlite")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(database.AllModels()...), "migrate")
	return New(db)
}

func mustCreateName(t *testing.T, s *Store, ownerID uint, value string) *ContactView {
	t.Helper()
	view, err := CreateContact[database.Name](context.Background(), s, ownerID, KindName, value)
	require.NoError(t, err)
	return view
}

func mustCreateEducation(t *testing.T, s *Store, ownerID uint, school, degree, year string) *EducationView {
	t.Helper()
	view, err := s.CreateEducationItem(context.Background(), ownerID, school, degree, year)
	require.NoError(t, err)
	return view
}

func mustCreateExperience(t *testing.T, s *Store, ownerID uint, jobTitle string, highlights ...string) *ExperienceView {
	t.Helper()
	view, err := s.CreateExperience(context.Background(), ownerID, jobTitle, "Acme Corp", "2023-01", nil, highlights)
	require.NoError(t, err)
	return view
}

func ptr[T any](v T) *T { return &v }
