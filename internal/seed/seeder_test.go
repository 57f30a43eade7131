package seed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zfogg/unify/internal/database"
	"github.com/zfogg/unify/internal/friends"
	"github.com/zfogg/unify/internal/models"
)

func TestSeedDevBuildsSocialGraph(t *testing.T) {
	db, err := database.OpenInMemory("seed_dev")
	require.NoError(t, err)
	ctx := context.Background()

	opts := Options{Users: 12, Groups: 2, Pages: 2, Posts: 20, Stories: 5}
	sum, err := NewSeeder(db, 42).SeedDev(ctx, opts)
	require.NoError(t, err)

	assert.Equal(t, 12, sum.Users)
	assert.Equal(t, 20, sum.Posts)
	assert.Equal(t, 5, sum.Stories)
	assert.Positive(t, sum.Friendships)

	var users int64
	db.Model(&models.User{}).Count(&users)
	assert.EqualValues(t, 12, users)

	var admins int64
	db.Model(&models.GroupMember{}).Where("role = ?", models.GroupRoleAdmin).Count(&admins)
	assert.EqualValues(t, 2, admins)

	// users sit on a ring of neighbours, so friends of friends exist
	var all []models.User
	require.NoError(t, db.Find(&all).Error)
	service := friends.NewService(db, nil)
	suggested := 0
	for _, u := range all {
		page, err := service.Suggestions(ctx, u.ID, 10, 0)
		require.NoError(t, err)
		suggested += page.Total
	}
	assert.Positive(t, suggested)
}

func TestCleanEmptiesEveryTable(t *testing.T) {
	db, err := database.OpenInMemory("seed_clean")
	require.NoError(t, err)
	ctx := context.Background()

	s := NewSeeder(db, 7)
	_, err = s.SeedDev(ctx, Options{Users: 6, Groups: 1, Pages: 1, Posts: 5, Stories: 2})
	require.NoError(t, err)
	require.NoError(t, s.Clean(ctx))

	for _, m := range models.All() {
		var n int64
		require.NoError(t, db.Model(m).Unscoped().Count(&n).Error)
		assert.Zero(t, n, "%T", m)
	}
}

func TestToSlug(t *testing.T) {
	assert.Equal(t, "anne", toSlug("Anne"))
	assert.Equal(t, "jeanluc", toSlug("Jean-Luc"))
	assert.Equal(t, "user", toSlug("Éé"))
}
