package engagement

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/sujalbistaa/murmur/internal/apperr"
	"github.com/sujalbistaa/murmur/internal/db"
	"github.com/sujalbistaa/murmur/internal/identity"
	"github.com/sujalbistaa/murmur/internal/models"
)

func seedPost(t *testing.T, gdb *gorm.DB, status models.Status) *models.Post {
	t.Helper()
	p := &models.Post{
		Content:     "Nunca le dije a nadie que deje la facultad hace un anio.",
		Category:    "estudio",
		City:        "Rosario",
		Intention:   "story",
		Status:      status,
		Fingerprint: identity.Derive("10.0.0.1", "seed"),
	}
	require.NoError(t, gdb.Create(p).Error)
	return p
}

func TestReactIsIdempotentPerKind(t *testing.T) {
	gdb := db.OpenTemp(t)
	s := &Service{DB: gdb}
	ctx := context.Background()
	p := seedPost(t, gdb, models.StatusApproved)

	a := identity.Derive("1.1.1.1", "firefox")
	b := identity.Derive("2.2.2.2", "firefox")

	c, err := s.React(ctx, p.ID, a, models.ReactionLike)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Likes)

	c, err = s.React(ctx, p.ID, a, models.ReactionLike)
	require.NoError(t, err)
	assert.Equal(t, Counts{Likes: 1}, c)

	c, err = s.React(ctx, p.ID, a, models.ReactionWow)
	require.NoError(t, err)
	assert.Equal(t, Counts{Likes: 1, Wow: 1}, c)

	c, err = s.React(ctx, p.ID, b, models.ReactionLike)
	require.NoError(t, err)
	assert.Equal(t, Counts{Likes: 2, Wow: 1}, c)

	var rows int64
	require.NoError(t, gdb.Model(&models.Reaction{}).Where("post_id = ?", p.ID).Count(&rows).Error)
	assert.Equal(t, int64(3), rows)
}

func TestReactConcurrent(t *testing.T) {
	gdb := db.OpenTemp(t)
	s := &Service{DB: gdb}
	p := seedPost(t, gdb, models.StatusApproved)

	const visitors = 10
	var wg sync.WaitGroup
	for i := 0; i < visitors; i++ {
		token := identity.Derive("10.0.0.2", string(rune('a'+i)))
		for j := 0; j < 2; j++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := s.React(context.Background(), p.ID, token, models.ReactionHaha)
				assert.NoError(t, err)
			}()
		}
	}
	wg.Wait()

	var stored models.Post
	require.NoError(t, gdb.First(&stored, "id = ?", p.ID).Error)
	assert.Equal(t, visitors, stored.HahaCount)
}

func TestReactRejects(t *testing.T) {
	gdb := db.OpenTemp(t)
	s := &Service{DB: gdb}
	ctx := context.Background()
	token := identity.Derive("1.1.1.1", "firefox")

	approved := seedPost(t, gdb, models.StatusApproved)
	pending := seedPost(t, gdb, models.StatusPending)

	_, err := s.React(ctx, approved.ID, token, models.ReactionKind("love"))
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = s.React(ctx, approved.ID, "", models.ReactionLike)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = s.React(ctx, pending.ID, token, models.ReactionLike)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	_, err = s.React(ctx, "missing", token, models.ReactionLike)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestVoteIsMutable(t *testing.T) {
	gdb := db.OpenTemp(t)
	s := &Service{DB: gdb}
	ctx := context.Background()
	p := seedPost(t, gdb, models.StatusApproved)

	a := identity.Derive("1.1.1.1", "firefox")
	b := identity.Derive("2.2.2.2", "chrome")

	tally, err := s.Vote(ctx, p.ID, a, models.VoteTruth)
	require.NoError(t, err)
	assert.Equal(t, Tally{TruthVotes: 1, UserVote: "truth"}, tally)

	tally, err = s.Vote(ctx, p.ID, a, models.VoteFake)
	require.NoError(t, err)
	assert.Equal(t, Tally{FakeVotes: 1, UserVote: "fake"}, tally)

	tally, err = s.Vote(ctx, p.ID, a, models.VoteFake)
	require.NoError(t, err)
	assert.Equal(t, Tally{FakeVotes: 1, UserVote: "fake"}, tally)

	tally, err = s.Vote(ctx, p.ID, b, models.VoteTruth)
	require.NoError(t, err)
	assert.Equal(t, Tally{TruthVotes: 1, FakeVotes: 1, UserVote: "truth"}, tally)

	var stored models.Post
	require.NoError(t, gdb.First(&stored, "id = ?", p.ID).Error)
	assert.Equal(t, 1, stored.TruthVotes)
	assert.Equal(t, 1, stored.FakeVotes)

	var rows int64
	require.NoError(t, gdb.Model(&models.Vote{}).Where("post_id = ?", p.ID).Count(&rows).Error)
	assert.Equal(t, int64(2), rows)

	v, err := s.CurrentVote(ctx, p.ID, a)
	require.NoError(t, err)
	assert.Equal(t, "fake", v)

	v, err = s.CurrentVote(ctx, p.ID, identity.Derive("3.3.3.3", "curl"))
	require.NoError(t, err)
	assert.Empty(t, v)
}

func TestVoteRejects(t *testing.T) {
	gdb := db.OpenTemp(t)
	s := &Service{DB: gdb}
	ctx := context.Background()
	token := identity.Derive("1.1.1.1", "firefox")
	p := seedPost(t, gdb, models.StatusApproved)
	rejected := seedPost(t, gdb, models.StatusRejected)

	_, err := s.Vote(ctx, p.ID, token, models.VoteChoice("maybe"))
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = s.Vote(ctx, p.ID, "not-a-token", models.VoteTruth)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = s.Vote(ctx, rejected.ID, token, models.VoteTruth)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestReplyLikes(t *testing.T) {
	gdb := db.OpenTemp(t)
	s := &Service{DB: gdb}
	ctx := context.Background()
	p := seedPost(t, gdb, models.StatusApproved)
	r := &models.Reply{PostID: p.ID, Content: "animo!", Status: models.StatusApproved, Fingerprint: "x"}
	require.NoError(t, gdb.Create(r).Error)

	a := identity.Derive("1.1.1.1", "firefox")
	b := identity.Derive("2.2.2.2", "chrome")

	rc, err := s.LikeReply(ctx, r.ID, a)
	require.NoError(t, err)
	assert.Equal(t, 1, rc.LikesCount)

	rc, err = s.LikeReply(ctx, r.ID, a)
	require.NoError(t, err)
	assert.Equal(t, 1, rc.LikesCount)

	rc, err = s.LikeReply(ctx, r.ID, b)
	require.NoError(t, err)
	assert.Equal(t, 2, rc.LikesCount)

	rc, err = s.UnlikeReply(ctx, r.ID, a)
	require.NoError(t, err)
	assert.Equal(t, 1, rc.LikesCount)
	assert.False(t, rc.Liked)

	// unliking something you never liked changes nothing
	rc, err = s.UnlikeReply(ctx, r.ID, a)
	require.NoError(t, err)
	assert.Equal(t, 1, rc.LikesCount)

	_, err = s.LikeReply(ctx, "missing", a)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}
