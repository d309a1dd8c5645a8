package users_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datamesh-labs/catalogd/domain/entity"
	"github.com/datamesh-labs/catalogd/domain/services"
	"github.com/datamesh-labs/catalogd/domain/users"
	"github.com/datamesh-labs/catalogd/internal/testutil"
	"github.com/datamesh-labs/catalogd/pkg/apperror"
)

func newUser(name string) *users.User {
	u := &users.User{Email: name + "@example.com"}
	u.Name = name
	return u
}

func TestFollowerIdempotence(t *testing.T) {
	c := testutil.NewCatalog(t, "followers")
	ctx := context.Background()

	alice, err := c.Users.Create(ctx, newUser("alice"), "admin")
	require.NoError(t, err)

	svc := &services.DatabaseService{ServiceType: "postgres"}
	svc.Name = "warehouse"
	created, err := c.Services.Create(ctx, svc, "admin")
	require.NoError(t, err)

	added, err := c.Services.AddFollower(ctx, created.ID, alice.ID)
	require.NoError(t, err)
	assert.True(t, added)

	// Following twice reports the edge already existed.
	added, err = c.Services.AddFollower(ctx, created.ID, alice.ID)
	require.NoError(t, err)
	assert.False(t, added)

	got, err := c.Services.Get(ctx, created.ID, entity.NewFields(entity.FieldFollowers), entity.IncludeNonDeleted)
	require.NoError(t, err)
	require.Len(t, got.Followers, 1)
	assert.Equal(t, alice.ID, got.Followers[0].ID)

	require.NoError(t, c.Services.DeleteFollower(ctx, created.ID, alice.ID))
	err = c.Services.DeleteFollower(ctx, created.ID, alice.ID)
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
}

func TestDeactivatedUserCannotFollow(t *testing.T) {
	c := testutil.NewCatalog(t, "follower_deactivated")
	ctx := context.Background()

	bot := newUser("bot")
	bot.Deactivated = true
	deactivated, err := c.Users.Create(ctx, bot, "admin")
	require.NoError(t, err)

	svc := &services.DatabaseService{ServiceType: "postgres"}
	svc.Name = "warehouse"
	created, err := c.Services.Create(ctx, svc, "admin")
	require.NoError(t, err)

	_, err = c.Services.AddFollower(ctx, created.ID, deactivated.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrBadRequest))
}

func TestTeamMembership(t *testing.T) {
	c := testutil.NewCatalog(t, "teams")
	ctx := context.Background()

	alice, err := c.Users.Create(ctx, newUser("alice"), "admin")
	require.NoError(t, err)
	bob, err := c.Users.Create(ctx, newUser("bob"), "admin")
	require.NoError(t, err)

	team := &users.Team{
		Users: []entity.Reference{{ID: alice.ID, Type: "user"}, {ID: bob.ID, Type: "user"}},
	}
	team.Name = "data-platform"
	created, err := c.Teams.Create(ctx, team, "admin")
	require.NoError(t, err)

	got, err := c.Teams.Get(ctx, created.ID, entity.NewFields(users.FieldUsers), entity.IncludeNonDeleted)
	require.NoError(t, err)
	require.Len(t, got.Users, 2)

	// Membership shows up from the user side too.
	member, err := c.Users.Get(ctx, alice.ID, entity.NewFields(users.FieldTeams), entity.IncludeNonDeleted)
	require.NoError(t, err)
	require.Len(t, member.Teams, 1)
	assert.Equal(t, "data-platform", member.Teams[0].Name)

	// Dropping bob from the roster rewrites the membership edges and bumps
	// the team version.
	update := &users.Team{
		Users: []entity.Reference{{ID: alice.ID, Type: "user"}},
	}
	update.Name = "data-platform"
	updated, isNew, err := c.Teams.CreateOrUpdate(ctx, update, "admin", nil)
	require.NoError(t, err)
	assert.False(t, isNew)
	assert.Greater(t, updated.Version, created.Version)

	got, err = c.Teams.Get(ctx, created.ID, entity.NewFields(users.FieldUsers), entity.IncludeNonDeleted)
	require.NoError(t, err)
	require.Len(t, got.Users, 1)
	assert.Equal(t, alice.ID, got.Users[0].ID)

	// Deleting the team leaves its members alone.
	require.NoError(t, c.Teams.Delete(ctx, created.ID, false, true, "admin"))
	_, err = c.Users.Get(ctx, bob.ID, nil, entity.IncludeNonDeleted)
	require.NoError(t, err)
}
