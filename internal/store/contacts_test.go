package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rayzum/internal/database"
)

func TestCreateContactTrimsAndRejectsDuplicates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	view, err := CreateContact[database.Name](ctx, s, 1, KindName, "  Ada Lovelace  ")
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", view.Value)

	_, err = CreateContact[database.Name](ctx, s, 1, KindName, "Ada Lovelace")
	assert.ErrorIs(t, err, ErrConflict)

	// 其他用户不受影响
	_, err = CreateContact[database.Name](ctx, s, 2, KindName, "Ada Lovelace")
	assert.NoError(t, err)

	_, err = CreateContact[database.Name](ctx, s, 1, KindName, "   ")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestListContactsOrderAndDefaultFlag(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ada := mustCreateName(t, s, 1, "Ada Lovelace")
	grace := mustCreateName(t, s, 1, "Grace Hopper")

	require.NoError(t, SetDefault[database.Name](ctx, s, 1, database.EntityName, ada.ID))

	views, err := ListContacts[database.Name](ctx, s, 1, KindName)
	require.NoError(t, err)
	require.Len(t, views, 2)

	// 创建时间倒序，后插入的在前
	assert.Equal(t, grace.ID, views[0].ID)
	assert.Equal(t, ada.ID, views[1].ID)
	assert.False(t, views[0].IsDefault)
	assert.True(t, views[1].IsDefault)
}

func TestSetDefaultIsLastWriterWins(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ada := mustCreateName(t, s, 1, "Ada Lovelace")
	grace := mustCreateName(t, s, 1, "Grace Hopper")

	require.NoError(t, SetDefault[database.Name](ctx, s, 1, database.EntityName, ada.ID))
	require.NoError(t, SetDefault[database.Name](ctx, s, 1, database.EntityName, grace.ID))

	defaultID, err := s.DefaultEntityID(ctx, 1, database.EntityName)
	require.NoError(t, err)
	assert.Equal(t, grace.ID, defaultID)

	// 同一 id 重复设置不是开关，仍保持默认
	require.NoError(t, SetDefault[database.Name](ctx, s, 1, database.EntityName, grace.ID))
	defaultID, err = s.DefaultEntityID(ctx, 1, database.EntityName)
	require.NoError(t, err)
	assert.Equal(t, grace.ID, defaultID)
}

func TestSetDefaultMissingRecord(t *testing.T) {
	s := newTestStore(t)

	err := SetDefault[database.Name](context.Background(), s, 1, database.EntityName, 999)
	assert.ErrorIs(t, err, ErrNotFound)

	defaultID, err := s.DefaultEntityID(context.Background(), 1, database.EntityName)
	require.NoError(t, err)
	assert.Zero(t, defaultID)
}

func TestUpdateContactConflictAndNotFound(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ada := mustCreateName(t, s, 1, "Ada Lovelace")
	mustCreateName(t, s, 1, "Grace Hopper")

	_, err := UpdateContact[database.Name](ctx, s, 1, KindName, ada.ID, "Grace Hopper")
	assert.ErrorIs(t, err, ErrConflict)

	// 改回自己的值不算冲突
	view, err := UpdateContact[database.Name](ctx, s, 1, KindName, ada.ID, "Ada Lovelace")
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", view.Value)

	_, err = UpdateContact[database.Name](ctx, s, 1, KindName, 999, "Nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteContactClearsDefaultMapping(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ada := mustCreateName(t, s, 1, "Ada Lovelace")
	require.NoError(t, SetDefault[database.Name](ctx, s, 1, database.EntityName, ada.ID))

	require.NoError(t, DeleteContact[database.Name](ctx, s, 1, KindName, ada.ID))

	defaultID, err := s.DefaultEntityID(ctx, 1, database.EntityName)
	require.NoError(t, err)
	assert.Zero(t, defaultID)

	err = DeleteContact[database.Name](ctx, s, 1, KindName, ada.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestContactKindsAreIndependent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	name := mustCreateName(t, s, 1, "Ada Lovelace")
	phone, err := CreateContact[database.Phone](ctx, s, 1, KindPhone, "555-0100")
	require.NoError(t, err)

	require.NoError(t, SetDefault[database.Name](ctx, s, 1, database.EntityName, name.ID))
	require.NoError(t, SetDefault[database.Phone](ctx, s, 1, database.EntityPhone, phone.ID))

	nameDefault, err := s.DefaultEntityID(ctx, 1, database.EntityName)
	require.NoError(t, err)
	phoneDefault, err := s.DefaultEntityID(ctx, 1, database.EntityPhone)
	require.NoError(t, err)
	assert.Equal(t, name.ID, nameDefault)
	assert.Equal(t, phone.ID, phoneDefault)
}
