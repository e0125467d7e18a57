// Package content owns the lifecycle of posts and replies: submission
// through moderation, human review transitions, the truth-or-fake flag and
// cascading deletion. It is also the only place that answers public reads,
// so the "approved only" rule lives in one spot.
package content

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sujalbistaa/murmur/internal/apperr"
	. "github.com/sujalbistaa/murmur/internal/log"
	"github.com/sujalbistaa/murmur/internal/models"
	"github.com/sujalbistaa/murmur/internal/moderation"
	"github.com/sujalbistaa/murmur/internal/quota"
)

const (
	quotaWindow   = 24 * time.Hour
	maxCityLength = 64
	maxSubTagLen  = 128
)

var DefaultCategories = []string{"amor", "estudio", "familia", "trabajo", "plata", "random"}

var intentions = []string{"advice", "vent", "story"}

const defaultIntention = "advice"

// Moderator is the part of the moderation engine the manager needs.
type Moderator interface {
	Classify(ctx context.Context, kind moderation.Kind, text string) moderation.Decision
}

// Notifier hears about replies that became publicly visible.
type Notifier interface {
	ReplyPublished(reply models.Reply)
}

type Config struct {
	// AutoPublish approves clean posts right away instead of queueing them.
	AutoPublish bool
	// DailyPostQuota caps posts per visitor per 24h; 0 disables the cap.
	DailyPostQuota int
	Categories     []string
}

type Manager struct {
	DB        *gorm.DB
	Moderator Moderator
	Notifier  Notifier
	Quota     quota.Store
	Config    Config
}

type PostInput struct {
	City        string
	University  string
	Category    string
	Content     string
	Intention   string
	PromptID    string
	Fingerprint string
}

type ReplyInput struct {
	PostID      string
	Content     string
	Fingerprint string
}

// SubmitPost validates, moderates and stores a new post. A hard moderation
// verdict returns an apperr Blocked error and stores nothing.
func (m *Manager) SubmitPost(ctx context.Context, in PostInput) (*models.Post, moderation.Decision, error) {
	var none moderation.Decision

	city := strings.TrimSpace(in.City)
	if city == "" {
		return nil, none, apperr.Validation("City is required.")
	}
	if utf8.RuneCountInString(city) > maxCityLength {
		return nil, none, apperr.Validation("City is too long.")
	}
	if strings.TrimSpace(in.Category) == "" {
		return nil, none, apperr.Validation("Category is required.")
	}
	if !m.validCategory(in.Category) {
		return nil, none, apperr.Validation("Category not allowed.")
	}
	university := strings.TrimSpace(in.University)
	if utf8.RuneCountInString(university) > maxSubTagLen {
		return nil, none, apperr.Validation("University is too long.")
	}

	promptID := strings.TrimSpace(in.PromptID)
	if promptID != "" {
		var n int64
		if err := m.DB.WithContext(ctx).Model(&models.Prompt{}).Where("id = ?", promptID).Count(&n).Error; err != nil {
			return nil, none, apperr.Dependency(err, "lookup prompt")
		}
		if n == 0 {
			return nil, none, apperr.Validation("Unknown prompt.")
		}
	}

	text := strings.TrimSpace(in.Content)
	decision := m.Moderator.Classify(ctx, moderation.KindPost, text)
	if decision.Hard() {
		Log.WithFields(logrus.Fields{"reason": decision.Reason, "detail": decision.Detail}).Info("post blocked by moderation")
		return nil, decision, apperr.Blocked(decision.Message)
	}

	// only posts that will be stored count against the daily quota
	if err := m.checkQuota(ctx, in.Fingerprint); err != nil {
		return nil, decision, err
	}

	post := &models.Post{
		Content:          text,
		Category:         in.Category,
		City:             city,
		Intention:        normalizeIntention(in.Intention),
		Status:           models.StatusPending,
		Fingerprint:      in.Fingerprint,
		ModerationReason: decision.Reason,
	}
	if university != "" {
		post.University = &university
	}
	if promptID != "" {
		post.PromptID = &promptID
	}
	if m.Config.AutoPublish && decision.Severity == moderation.SeverityNone {
		post.Status = models.StatusApproved
	}

	if err := m.DB.WithContext(ctx).Create(post).Error; err != nil {
		Log.WithError(err).Error("error creating post")
		return nil, decision, apperr.Dependency(err, "insert post")
	}
	Log.WithFields(logrus.Fields{"post_id": post.ID, "status": post.Status, "reason": decision.Reason}).Info("post submitted")
	return post, decision, nil
}

// SubmitReply stores a reply to an approved post. Replies that pass
// moderation are published immediately.
func (m *Manager) SubmitReply(ctx context.Context, in ReplyInput) (*models.Reply, moderation.Decision, error) {
	var none moderation.Decision

	if strings.TrimSpace(in.PostID) == "" {
		return nil, none, apperr.Validation("Missing confession id.")
	}
	text := strings.TrimSpace(in.Content)
	if text == "" {
		return nil, none, apperr.Validation("The comment can't be empty.")
	}
	if _, err := m.approvedPost(ctx, m.DB, in.PostID); err != nil {
		return nil, none, err
	}

	decision := m.Moderator.Classify(ctx, moderation.KindReply, text)
	if decision.Hard() {
		Log.WithFields(logrus.Fields{"post_id": in.PostID, "reason": decision.Reason, "detail": decision.Detail}).Info("reply blocked by moderation")
		return nil, decision, apperr.Blocked(decision.Message)
	}

	reply := &models.Reply{
		PostID:           in.PostID,
		Content:          text,
		Status:           models.StatusApproved,
		Fingerprint:      in.Fingerprint,
		ModerationReason: decision.Reason,
	}
	err := m.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// the post may have been removed while the classifier was running
		if _, err := m.approvedPost(ctx, tx, in.PostID); err != nil {
			return err
		}
		return tx.Create(reply).Error
	})
	if err != nil {
		return nil, decision, storeError(err, "insert reply")
	}

	if m.Notifier != nil {
		m.Notifier.ReplyPublished(*reply)
	}
	return reply, decision, nil
}

func (m *Manager) Approve(ctx context.Context, id string) (*models.Post, error) {
	return m.setStatus(ctx, id, models.StatusApproved)
}

func (m *Manager) Reject(ctx context.Context, id string) (*models.Post, error) {
	return m.setStatus(ctx, id, models.StatusRejected)
}

// setStatus moves a post between pending, approved and rejected. Leaving
// approved also takes the post out of the truth-or-fake rotation, in the
// same statement.
func (m *Manager) setStatus(ctx context.Context, id string, to models.Status) (*models.Post, error) {
	var post models.Post
	err := m.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockPost(tx, id, &post); err != nil {
			return err
		}
		if post.Status == to {
			return nil
		}
		updates := map[string]interface{}{"status": to}
		if to != models.StatusApproved {
			updates["is_truth_or_fake"] = false
		}
		if err := tx.Model(&models.Post{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return err
		}
		post.Status = to
		if to != models.StatusApproved {
			post.IsTruthOrFake = false
		}
		return nil
	})
	if err != nil {
		return nil, storeError(err, "update post status")
	}
	Log.WithFields(logrus.Fields{"post_id": id, "status": to}).Info("post status changed")
	return &post, nil
}

// SetTruthOrFake adds or removes a post from the truth-or-fake rotation.
// Only approved posts can be added.
func (m *Manager) SetTruthOrFake(ctx context.Context, id string, on bool) (*models.Post, error) {
	var post models.Post
	err := m.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockPost(tx, id, &post); err != nil {
			return err
		}
		if on && post.Status != models.StatusApproved {
			return apperr.Conflict("Only approved confessions can join truth or fake.")
		}
		if post.IsTruthOrFake == on {
			return nil
		}
		if err := tx.Model(&models.Post{}).Where("id = ?", id).Update("is_truth_or_fake", on).Error; err != nil {
			return err
		}
		post.IsTruthOrFake = on
		return nil
	})
	if err != nil {
		return nil, storeError(err, "update truth or fake flag")
	}
	return &post, nil
}

// Delete removes a post and everything hanging off it in one transaction.
// Foreign keys cascade too, but sqlite doesn't enforce them unless asked,
// so the fan-out is explicit.
func (m *Manager) Delete(ctx context.Context, id string) error {
	err := m.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := lockPost(tx, id, &post); err != nil {
			return err
		}

		var replyIDs []string
		if err := tx.Model(&models.Reply{}).Where("post_id = ?", id).Pluck("id", &replyIDs).Error; err != nil {
			return err
		}
		if len(replyIDs) > 0 {
			if err := tx.Where("reply_id IN ?", replyIDs).Delete(&models.ReplyLike{}).Error; err != nil {
				return err
			}
		}
		for _, child := range []interface{}{&models.Reply{}, &models.Reaction{}, &models.Vote{}, &models.Report{}} {
			if err := tx.Where("post_id = ?", id).Delete(child).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&post).Error
	})
	if err != nil {
		return storeError(err, "delete post")
	}
	Log.WithField("post_id", id).Info("post deleted")
	return nil
}

func (m *Manager) validCategory(c string) bool {
	cats := m.Config.Categories
	if len(cats) == 0 {
		cats = DefaultCategories
	}
	for _, v := range cats {
		if v == c {
			return true
		}
	}
	return false
}

func (m *Manager) checkQuota(ctx context.Context, fingerprint string) error {
	if m.Config.DailyPostQuota <= 0 || m.Quota == nil {
		return nil
	}
	n, err := m.Quota.Hit(ctx, "posts/"+fingerprint, quotaWindow)
	if err != nil {
		// the quota is a deterrent; an outage of its store shouldn't take
		// submissions down with it
		Log.WithError(err).Warn("quota store unavailable, skipping daily quota")
		return nil
	}
	if n > int64(m.Config.DailyPostQuota) {
		return apperr.RateLimited("Daily confession limit reached from this device. Try again tomorrow.")
	}
	return nil
}

func (m *Manager) approvedPost(ctx context.Context, db *gorm.DB, id string) (*models.Post, error) {
	var post models.Post
	err := db.WithContext(ctx).Where("id = ? AND status = ?", id, models.StatusApproved).First(&post).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("Confession not found.")
	}
	if err != nil {
		return nil, apperr.Dependency(err, "load post")
	}
	return &post, nil
}

func normalizeIntention(raw string) string {
	v := strings.TrimSpace(raw)
	for _, i := range intentions {
		if v == i {
			return v
		}
	}
	return defaultIntention
}

// lockPost loads a post FOR UPDATE. sqlite ignores the locking clause; it
// serializes writers anyway.
func lockPost(tx *gorm.DB, id string, post *models.Post) error {
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(post).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound("Confession not found.")
	}
	return err
}

// storeError keeps taxonomy errors as they are and wraps anything else as a
// dependency failure.
func storeError(err error, op string) error {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	Log.WithError(err).WithField("op", op).Error("store operation failed")
	return apperr.Dependency(err, op)
}
