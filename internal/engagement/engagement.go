// Package engagement keeps reaction, vote and reply-like counters in step
// with the rows behind them. Each operation runs in a single transaction and
// relies on unique keys for idempotency, so retries and concurrent requests
// from the same visitor never double count.
package engagement

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sujalbistaa/murmur/internal/apperr"
	"github.com/sujalbistaa/murmur/internal/identity"
	. "github.com/sujalbistaa/murmur/internal/log"
	"github.com/sujalbistaa/murmur/internal/models"
)

type Service struct {
	DB *gorm.DB
}

type Counts struct {
	Likes int `json:"likes_count"`
	Wow   int `json:"wow_count"`
	Haha  int `json:"haha_count"`
}

type Tally struct {
	TruthVotes int    `json:"truth_votes"`
	FakeVotes  int    `json:"fake_votes"`
	UserVote   string `json:"userVote"`
}

type ReplyCounts struct {
	ID         string `json:"id"`
	LikesCount int    `json:"likes_count"`
	Liked      bool   `json:"liked"`
}

// React records one reaction of kind from token. Repeating the same reaction
// succeeds without touching the counter.
func (s *Service) React(ctx context.Context, postID, token string, kind models.ReactionKind) (Counts, error) {
	var counts Counts
	column, ok := kind.Column()
	if !ok {
		return counts, apperr.Validation("Invalid reaction type.")
	}
	if !identity.Valid(token) {
		return counts, apperr.Validation("Could not identify the request.")
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		post, err := approvedPost(tx, postID, false)
		if err != nil {
			return err
		}

		res := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.Reaction{PostID: postID, Fingerprint: token, Kind: kind})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 1 {
			err := tx.Model(&models.Post{}).Where("id = ?", postID).
				UpdateColumn(column, gorm.Expr(column+" + ?", 1)).Error
			if err != nil {
				return err
			}
			if err := tx.Select("likes_count", "wow_count", "haha_count").First(post, "id = ?", postID).Error; err != nil {
				return err
			}
		}
		counts = Counts{Likes: post.LikesCount, Wow: post.WowCount, Haha: post.HahaCount}
		return nil
	})
	if err != nil {
		return Counts{}, storeError(err, "react")
	}
	return counts, nil
}

// Vote sets token's truth-or-fake choice on a post and recounts both totals
// from the vote rows.
func (s *Service) Vote(ctx context.Context, postID, token string, choice models.VoteChoice) (Tally, error) {
	if !choice.Valid() {
		return Tally{}, apperr.Validation("Invalid vote.")
	}
	if !identity.Valid(token) {
		return Tally{}, apperr.Validation("Could not identify the request.")
	}

	var tally Tally
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := approvedPost(tx, postID, true); err != nil {
			return err
		}

		var existing models.Vote
		err := tx.Where("post_id = ? AND fingerprint = ?", postID, token).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := tx.Create(&models.Vote{PostID: postID, Fingerprint: token, Choice: choice}).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		case existing.Choice != choice:
			if err := tx.Model(&existing).Update("choice", choice).Error; err != nil {
				return err
			}
		}

		truth, fake, err := recount(tx, postID)
		if err != nil {
			return err
		}
		err = tx.Model(&models.Post{}).Where("id = ?", postID).
			UpdateColumns(map[string]interface{}{"truth_votes": truth, "fake_votes": fake}).Error
		if err != nil {
			return err
		}
		tally = Tally{TruthVotes: truth, FakeVotes: fake, UserVote: string(choice)}
		return nil
	})
	if err != nil {
		return Tally{}, storeError(err, "vote")
	}
	Log.WithFields(logrus.Fields{"post_id": postID, "truth": tally.TruthVotes, "fake": tally.FakeVotes}).Debug("vote recorded")
	return tally, nil
}

// CurrentVote returns token's choice on a post, or "" if it hasn't voted.
func (s *Service) CurrentVote(ctx context.Context, postID, token string) (string, error) {
	if !identity.Valid(token) {
		return "", nil
	}
	var v models.Vote
	err := s.DB.WithContext(ctx).Where("post_id = ? AND fingerprint = ?", postID, token).First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", storeError(err, "load vote")
	}
	return string(v.Choice), nil
}

func (s *Service) LikeReply(ctx context.Context, replyID, token string) (ReplyCounts, error) {
	return s.toggleReplyLike(ctx, replyID, token, true)
}

func (s *Service) UnlikeReply(ctx context.Context, replyID, token string) (ReplyCounts, error) {
	return s.toggleReplyLike(ctx, replyID, token, false)
}

func (s *Service) toggleReplyLike(ctx context.Context, replyID, token string, like bool) (ReplyCounts, error) {
	if !identity.Valid(token) {
		return ReplyCounts{}, apperr.Validation("Could not identify the request.")
	}

	var out ReplyCounts
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var reply models.Reply
		err := tx.Where("id = ? AND status = ?", replyID, models.StatusApproved).First(&reply).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("Comment not found.")
		}
		if err != nil {
			return err
		}

		var changed int64
		if like {
			res := tx.Clauses(clause.OnConflict{DoNothing: true}).
				Create(&models.ReplyLike{ReplyID: replyID, Fingerprint: token})
			if res.Error != nil {
				return res.Error
			}
			changed = res.RowsAffected
			if changed == 1 {
				err = tx.Model(&models.Reply{}).Where("id = ?", replyID).
					UpdateColumn("likes_count", gorm.Expr("likes_count + ?", 1)).Error
			}
		} else {
			res := tx.Where("reply_id = ? AND fingerprint = ?", replyID, token).Delete(&models.ReplyLike{})
			if res.Error != nil {
				return res.Error
			}
			changed = res.RowsAffected
			if changed == 1 {
				err = tx.Model(&models.Reply{}).Where("id = ? AND likes_count > 0", replyID).
					UpdateColumn("likes_count", gorm.Expr("likes_count - ?", 1)).Error
			}
		}
		if err != nil {
			return err
		}

		if err := tx.Select("likes_count").First(&reply, "id = ?", replyID).Error; err != nil {
			return err
		}
		out = ReplyCounts{ID: replyID, LikesCount: reply.LikesCount, Liked: like}
		return nil
	})
	if err != nil {
		return ReplyCounts{}, storeError(err, "reply like")
	}
	return out, nil
}

// approvedPost loads the post, optionally FOR UPDATE.
func approvedPost(tx *gorm.DB, id string, lock bool) (*models.Post, error) {
	q := tx
	if lock {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var post models.Post
	err := q.Where("id = ? AND status = ?", id, models.StatusApproved).First(&post).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("Confession not found.")
	}
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func recount(tx *gorm.DB, postID string) (truth, fake int, err error) {
	type row struct {
		Choice models.VoteChoice
		N      int
	}
	var rows []row
	err = tx.Model(&models.Vote{}).Select("choice, count(*) as n").
		Where("post_id = ?", postID).Group("choice").Scan(&rows).Error
	if err != nil {
		return 0, 0, err
	}
	for _, r := range rows {
		switch r.Choice {
		case models.VoteTruth:
			truth = r.N
		case models.VoteFake:
			fake = r.N
		}
	}
	return truth, fake, nil
}

func storeError(err error, op string) error {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	Log.WithError(err).WithField("op", op).Error("store operation failed")
	return apperr.Dependency(err, op)
}
