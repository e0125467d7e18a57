// Package reports handles visitor complaints about posts and the admin
// queue built on them.
package reports

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/sujalbistaa/murmur/internal/apperr"
	. "github.com/sujalbistaa/murmur/internal/log"
	"github.com/sujalbistaa/murmur/internal/models"
)

const (
	minReasonLength = 5
	maxReasonLength = 500
	defaultLimit    = 100
)

// Deleter removes a post with everything attached to it.
type Deleter interface {
	Delete(ctx context.Context, id string) error
}

type Manager struct {
	DB      *gorm.DB
	Content Deleter
}

// Entry is one row of the admin queue. Post is nil and Orphaned is set when
// the report outlived its post.
type Entry struct {
	models.Report
	Post     *models.Post `json:"confession"`
	Orphaned bool         `json:"orphaned"`
}

// Report files a complaint about an approved post. Every call inserts a
// row; duplicates are kept.
func (m *Manager) Report(ctx context.Context, postID, reason string) (*models.Report, error) {
	reason = strings.TrimSpace(reason)
	n := utf8.RuneCountInString(reason)
	if n < minReasonLength {
		return nil, apperr.Validation("Tell us briefly why you are reporting this confession.")
	}
	if n > maxReasonLength {
		return nil, apperr.Validation("The reason is too long.")
	}

	var exists int64
	err := m.DB.WithContext(ctx).Model(&models.Post{}).
		Where("id = ? AND status = ?", postID, models.StatusApproved).Count(&exists).Error
	if err != nil {
		return nil, storeError(err, "lookup reported post")
	}
	if exists == 0 {
		return nil, apperr.NotFound("Confession not found.")
	}

	r := &models.Report{PostID: postID, Reason: reason}
	if err := m.DB.WithContext(ctx).Create(r).Error; err != nil {
		return nil, storeError(err, "insert report")
	}
	Log.WithFields(logrus.Fields{"report_id": r.ID, "post_id": postID}).Info("post reported")
	return r, nil
}

// Queue lists reports newest first, optionally filtered by handled.
func (m *Manager) Queue(ctx context.Context, handled *bool, limit int) ([]Entry, error) {
	if limit <= 0 || limit > defaultLimit {
		limit = defaultLimit
	}
	q := m.DB.WithContext(ctx).Order("created_at desc").Limit(limit)
	if handled != nil {
		q = q.Where("handled = ?", *handled)
	}
	var rows []models.Report
	if err := q.Find(&rows).Error; err != nil {
		return nil, storeError(err, "list reports")
	}

	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.PostID)
	}
	posts := map[string]*models.Post{}
	if len(ids) > 0 {
		var found []models.Post
		if err := m.DB.WithContext(ctx).Where("id IN ?", ids).Find(&found).Error; err != nil {
			return nil, storeError(err, "load reported posts")
		}
		for i := range found {
			posts[found[i].ID] = &found[i]
		}
	}

	entries := make([]Entry, 0, len(rows))
	for _, r := range rows {
		p := posts[r.PostID]
		entries = append(entries, Entry{Report: r, Post: p, Orphaned: p == nil})
	}
	return entries, nil
}

func (m *Manager) MarkHandled(ctx context.Context, reportID string) error {
	return m.setHandled(ctx, reportID, true)
}

func (m *Manager) MarkUnhandled(ctx context.Context, reportID string) error {
	return m.setHandled(ctx, reportID, false)
}

func (m *Manager) setHandled(ctx context.Context, reportID string, handled bool) error {
	if _, err := m.load(ctx, reportID); err != nil {
		return err
	}
	err := m.DB.WithContext(ctx).Model(&models.Report{}).Where("id = ?", reportID).
		Update("handled", handled).Error
	if err != nil {
		return storeError(err, "update report")
	}
	return nil
}

// DeleteConfession removes the reported post, which takes every report on
// it along. postID falls back to the report's own post when empty.
func (m *Manager) DeleteConfession(ctx context.Context, reportID, postID string) error {
	if postID == "" {
		if reportID == "" {
			return apperr.Validation("Missing confession id.")
		}
		r, err := m.load(ctx, reportID)
		if err != nil {
			return err
		}
		postID = r.PostID
	}
	if err := m.Content.Delete(ctx, postID); err != nil {
		return err
	}
	Log.WithFields(logrus.Fields{"report_id": reportID, "post_id": postID}).Info("reported post deleted")
	return nil
}

func (m *Manager) load(ctx context.Context, reportID string) (*models.Report, error) {
	var r models.Report
	err := m.DB.WithContext(ctx).First(&r, "id = ?", reportID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("Report not found.")
	}
	if err != nil {
		return nil, storeError(err, "load report")
	}
	return &r, nil
}

func storeError(err error, op string) error {
	Log.WithError(err).WithField("op", op).Error("store operation failed")
	return apperr.Dependency(err, op)
}
