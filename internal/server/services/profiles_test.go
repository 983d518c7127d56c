package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/gallerist/internal/common"
	"github.com/dmitrijs2005/gallerist/internal/server/access"
	"github.com/dmitrijs2005/gallerist/internal/server/assets"
	"github.com/dmitrijs2005/gallerist/internal/server/models"
)

func TestProfileService_Get(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	ann := e.w.addUser("ann")
	bob := e.w.addUser("bob")
	e.expectTx(4)

	_, err := e.posts().Create(ctx, as(ann), PostInput{Title: "pub", Images: []string{e.upload(ann, "p.png")}})
	require.NoError(t, err)
	_, err = e.posts().Create(ctx, as(ann), PostInput{Title: "fans", Visibility: "FOLLOWERS"})
	require.NoError(t, err)
	_, err = e.collections().Create(ctx, as(ann), CollectionInput{Name: "fans", Visibility: "FOLLOWERS"})
	require.NoError(t, err)
	_, err = e.profiles().UpdateAvatar(ctx, as(ann), e.upload(ann, "me.png"))
	require.NoError(t, err)

	v, err := e.profiles().Get(ctx, as(bob), ann, models.Page{})
	require.NoError(t, err)
	assert.False(t, v.IsSelf)
	assert.False(t, v.IsFollowing)
	assert.Len(t, v.Posts, 1)
	assert.Empty(t, v.Collections)
	assert.Contains(t, v.AvatarURL, "X-Signature=")
	assert.Contains(t, v.Posts[0].CoverURL, "X-Signature=")

	require.NoError(t, e.follows().Follow(ctx, as(bob), ann))
	e.w.followLookups = 0

	v, err = e.profiles().Get(ctx, as(bob), ann, models.Page{})
	require.NoError(t, err)
	assert.True(t, v.IsFollowing)
	assert.Len(t, v.Posts, 2)
	assert.Len(t, v.Collections, 1)
	assert.Equal(t, 1, v.Stats.Followers)
	assert.Equal(t, 1, e.w.followLookups, "one follow-set load per page")

	v, err = e.profiles().Get(ctx, as(ann), ann, models.Page{})
	require.NoError(t, err)
	assert.True(t, v.IsSelf)

	_, err = e.profiles().Get(ctx, access.Anonymous, "7d4f6c2e-0000-4000-8000-000000000000", models.Page{})
	assert.True(t, common.IsKind(err, common.KindNotFound), "got %v", err)
}

func TestProfileService_UpdateAvatar(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	ann := e.w.addUser("ann")
	e.expectTx(2)

	v, err := e.profiles().UpdateAvatar(ctx, as(ann), e.upload(ann, "one.png"))
	require.NoError(t, err)
	first := v.Profile.AvatarURL
	assert.Equal(t, assets.StatePermanent, assets.StateOf(keyOf(t, first)))

	v, err = e.profiles().UpdateAvatar(ctx, as(ann), "")
	require.NoError(t, err)
	e.drain(t)
	assert.Empty(t, v.Profile.AvatarURL)
	assert.Empty(t, v.AvatarURL)
	assert.False(t, e.store.Has(keyOf(t, first)))

	_, err = e.profiles().UpdateAvatar(ctx, access.Anonymous, "")
	assert.True(t, common.IsKind(err, common.KindUnauthorized))
}

func TestProfileService_UpdateProfile(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	ann := e.w.addUser("ann")

	v, err := e.profiles().UpdateProfile(ctx, as(ann), "  Ann  ", "hi")
	require.NoError(t, err)
	assert.Equal(t, "Ann", v.Profile.DisplayName)
	assert.Equal(t, "hi", v.Profile.Bio)

	_, err = e.profiles().UpdateProfile(ctx, as(ann), "Ann", string(make([]byte, MaxBioLen+1)))
	assert.Equal(t, "bio", common.FieldOf(err))
}

func TestProfileService_RepeatedAvatarUpdate(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	ann := e.w.addUser("ann")
	e.expectTx(2)

	staged := e.upload(ann, "me.png")
	first, err := e.profiles().UpdateAvatar(ctx, as(ann), staged)
	require.NoError(t, err)
	second, err := e.profiles().UpdateAvatar(ctx, as(ann), staged)
	require.NoError(t, err)
	e.drain(t)

	assert.Equal(t, first.Profile.AvatarURL, second.Profile.AvatarURL)
	assert.True(t, e.store.Has(keyOf(t, second.Profile.AvatarURL)))
}
