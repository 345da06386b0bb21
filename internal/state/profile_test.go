package state

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pders01/blogify/internal/api"
)

func TestProfile_GetProfile(t *testing.T) {
	fake := &fakeAPI{
		getProfile: func(_ context.Context, username string) (*api.Profile, error) {
			return &api.Profile{Username: username, Bio: "bio"}, nil
		},
	}
	s := NewProfileStore(fake, 10)

	_, err := s.GetProfile(context.Background(), "jake")
	require.NoError(t, err)

	st := s.Snapshot()
	assert.Equal(t, Succeeded, st.Status)
	assert.Equal(t, api.Profile{Username: "jake", Bio: "bio"}, *st.Profile)
	assert.Equal(t, TabArticles, st.ActiveTab)
}

func TestProfile_FollowReplacesProfile(t *testing.T) {
	fake := &fakeAPI{
		getProfile: func(_ context.Context, username string) (*api.Profile, error) {
			return &api.Profile{Username: username}, nil
		},
		follow: func(_ context.Context, username string) (*api.Profile, error) {
			return &api.Profile{Username: username, Following: true}, nil
		},
		unfollow: func(_ context.Context, username string) (*api.Profile, error) {
			return &api.Profile{Username: username, Following: false}, nil
		},
	}
	s := NewProfileStore(fake, 10)
	_, err := s.GetProfile(context.Background(), "jake")
	require.NoError(t, err)

	_, err = s.FollowUser(context.Background(), "jake")
	require.NoError(t, err)
	assert.True(t, s.Snapshot().Profile.Following)

	_, err = s.UnfollowUser(context.Background(), "jake")
	require.NoError(t, err)
	assert.False(t, s.Snapshot().Profile.Following)
}

func TestProfile_FollowFailure(t *testing.T) {
	fake := &fakeAPI{
		follow: func(context.Context, string) (*api.Profile, error) {
			return nil, errors.New("boom")
		},
	}
	s := NewProfileStore(fake, 10)

	_, err := s.FollowUser(context.Background(), "jake")
	require.Error(t, err)
	assert.Equal(t, "Failed to follow user", s.Snapshot().Err.Message)
}

func TestProfile_ArticleQueries(t *testing.T) {
	var queries []api.ListQuery
	fake := &fakeAPI{
		listArticles: func(_ context.Context, q api.ListQuery) (*api.ArticleList, error) {
			queries = append(queries, q)
			return listOf(1, 1, "p"), nil
		},
	}
	s := NewProfileStore(fake, 5)

	_, err := s.GetProfileArticles(context.Background(), "jake", 5, 0)
	require.NoError(t, err)
	_, err = s.GetFavoritedArticles(context.Background(), "jake", 5, 10)
	require.NoError(t, err)

	assert.Equal(t, []api.ListQuery{
		{Limit: 5, Offset: 0, Author: "jake"},
		{Limit: 5, Offset: 10, Favorited: "jake"},
	}, queries)
	assert.Equal(t, Succeeded, s.Snapshot().ArticlesStatus)
}

func TestProfile_FavoritedFailureFallback(t *testing.T) {
	fake := &fakeAPI{
		listArticles: func(context.Context, api.ListQuery) (*api.ArticleList, error) {
			return nil, errors.New("boom")
		},
	}
	s := NewProfileStore(fake, 10)

	_, err := s.GetFavoritedArticles(context.Background(), "jake", 10, 0)
	require.Error(t, err)
	st := s.Snapshot()
	assert.Equal(t, Failed, st.ArticlesStatus)
	assert.Equal(t, "Failed to get favorited articles", st.Err.Message)
}

func TestProfile_TabAndPage(t *testing.T) {
	s := NewProfileStore(&fakeAPI{}, 10)

	q := s.SetCurrentPage(3)
	assert.Equal(t, ProfileQuery{Tab: TabArticles, Page: 3, Limit: 10, Offset: 30}, q)

	q = s.SetActiveTab(TabFavorited)
	assert.Equal(t, ProfileQuery{Tab: TabFavorited, Page: 0, Limit: 10, Offset: 0}, q)
	assert.Equal(t, q, s.Query())
}

func TestProfile_TabSwitchDiscardsOlderList(t *testing.T) {
	slow := newGate()
	fake := &fakeAPI{
		listArticles: func(_ context.Context, q api.ListQuery) (*api.ArticleList, error) {
			if q.Author != "" {
				slow.wait()
				return listOf(3, 3, "authored"), nil
			}
			return listOf(1, 1, "favorited"), nil
		},
	}
	s := NewProfileStore(fake, 10)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = s.GetProfileArticles(context.Background(), "jake", 10, 0)
	}()
	<-slow.entered

	q := s.SetActiveTab(TabFavorited)
	_, err := s.GetFavoritedArticles(context.Background(), "jake", q.Limit, q.Offset)
	require.NoError(t, err)

	close(slow.release)
	<-done

	st := s.Snapshot()
	require.Len(t, st.Articles, 1)
	assert.Equal(t, "favorited-0", st.Articles[0].Slug)
	assert.Equal(t, Succeeded, st.ArticlesStatus)
}

func TestProfile_ResetDiscardsInFlight(t *testing.T) {
	slow := newGate()
	fake := &fakeAPI{
		getProfile: func(_ context.Context, username string) (*api.Profile, error) {
			slow.wait()
			return &api.Profile{Username: username}, nil
		},
	}
	s := NewProfileStore(fake, 10)
	s.SetActiveTab(TabFavorited)
	s.SetCurrentPage(2)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = s.GetProfile(context.Background(), "jake")
	}()
	<-slow.entered

	s.ResetProfileState()
	close(slow.release)
	<-done

	st := s.Snapshot()
	assert.Nil(t, st.Profile)
	assert.Equal(t, Idle, st.Status)
	assert.Equal(t, TabFavorited, st.ActiveTab, "reset keeps the tab")
	assert.Equal(t, 2, st.CurrentPage, "reset keeps the page")
}
