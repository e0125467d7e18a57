package content

import (
	"context"
	"math/rand"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/sujalbistaa/murmur/internal/apperr"
	"github.com/sujalbistaa/murmur/internal/models"
)

const (
	PageSize          = 10
	adminListLimit    = 200
	maxByIDs          = 100
	maxRandom         = 3
	quoteCandidates   = 10
	truthOrFakeWindow = 50

	// "todos" is the frontend's "no filter" value
	allFilter = "todos"
)

type ListFilter struct {
	City     string
	Category string
	PromptID string
	// Sort is "new" (default) or "top"
	Sort string
	Page int
}

type Page struct {
	Items   []models.Post `json:"items"`
	Total   int64         `json:"total"`
	HasMore bool          `json:"hasMore"`
	Page    int           `json:"page"`
}

// approved is the base of every public query.
func (m *Manager) approved(ctx context.Context) *gorm.DB {
	return m.DB.WithContext(ctx).Model(&models.Post{}).Where("status = ?", models.StatusApproved)
}

// List returns one page of approved posts.
func (m *Manager) List(ctx context.Context, f ListFilter) (*Page, error) {
	page := f.Page
	if page < 1 {
		page = 1
	}

	q := m.approved(ctx)
	if f.City != "" && f.City != allFilter {
		q = q.Where("city = ?", f.City)
	}
	if f.Category != "" && f.Category != allFilter {
		q = q.Where("category = ?", f.Category)
	}
	if f.PromptID != "" {
		q = q.Where("prompt_id = ?", f.PromptID)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, storeError(err, "count posts")
	}

	order := "created_at desc"
	if f.Sort == "top" {
		order = "likes_count desc, created_at desc"
	}
	offset := (page - 1) * PageSize
	items := []models.Post{}
	if err := q.Order(order).Offset(offset).Limit(PageSize).Find(&items).Error; err != nil {
		return nil, storeError(err, "list posts")
	}

	return &Page{
		Items:   items,
		Total:   total,
		HasMore: int64(offset+PageSize) < total,
		Page:    page,
	}, nil
}

func (m *Manager) Get(ctx context.Context, id string) (*models.Post, error) {
	return m.approvedPost(ctx, m.DB, id)
}

// ByIDs returns the approved posts among ids, in the order given. Unknown
// or hidden ids are skipped.
func (m *Manager) ByIDs(ctx context.Context, ids []string) ([]models.Post, error) {
	seen := make(map[string]int, len(ids))
	unique := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = len(unique)
		unique = append(unique, id)
	}
	if len(unique) == 0 {
		return nil, apperr.Validation("No ids received.")
	}
	if len(unique) > maxByIDs {
		return nil, apperr.Validation("Too many ids.")
	}

	var found []models.Post
	if err := m.approved(ctx).Where("id IN ?", unique).Find(&found).Error; err != nil {
		return nil, storeError(err, "load posts by id")
	}
	out := make([]models.Post, len(unique))
	present := make([]bool, len(unique))
	for _, p := range found {
		idx := seen[p.ID]
		out[idx] = p
		present[idx] = true
	}
	items := make([]models.Post, 0, len(found))
	for i, ok := range present {
		if ok {
			items = append(items, out[i])
		}
	}
	return items, nil
}

// Random returns up to n (max 3) random approved posts.
func (m *Manager) Random(ctx context.Context, n int) ([]models.Post, error) {
	if n < 1 {
		n = 1
	}
	if n > maxRandom {
		n = maxRandom
	}
	items := []models.Post{}
	if err := m.approved(ctx).Order("RANDOM()").Limit(n).Find(&items).Error; err != nil {
		return nil, storeError(err, "random posts")
	}
	return items, nil
}

// QuoteOfDay picks one of the latest approved posts, or nil if there are none.
func (m *Manager) QuoteOfDay(ctx context.Context) (*models.Post, error) {
	var latest []models.Post
	if err := m.approved(ctx).Order("created_at desc").Limit(quoteCandidates).Find(&latest).Error; err != nil {
		return nil, storeError(err, "quote of the day")
	}
	return pick(latest), nil
}

// NextTruthOrFake picks a random post from the recent truth-or-fake rotation.
func (m *Manager) NextTruthOrFake(ctx context.Context) (*models.Post, error) {
	var latest []models.Post
	err := m.approved(ctx).Where("is_truth_or_fake = ?", true).
		Order("created_at desc").Limit(truthOrFakeWindow).Find(&latest).Error
	if err != nil {
		return nil, storeError(err, "truth or fake candidates")
	}
	return pick(latest), nil
}

// Replies lists the published replies of a post, oldest first. A missing
// post simply has no replies.
func (m *Manager) Replies(ctx context.Context, postID string) ([]models.Reply, error) {
	items := []models.Reply{}
	err := m.DB.WithContext(ctx).
		Where("post_id = ? AND status = ?", postID, models.StatusApproved).
		Order("created_at asc").Find(&items).Error
	if err != nil {
		return nil, storeError(err, "list replies")
	}
	return items, nil
}

// TodayPrompt returns the active prompt at now, or nil.
func (m *Manager) TodayPrompt(ctx context.Context, now time.Time) (*models.Prompt, error) {
	var p models.Prompt
	err := m.DB.WithContext(ctx).
		Where("is_active = ? AND active_from <= ?", true, now).
		Where("active_to IS NULL OR active_to > ?", now).
		Order("active_from desc").First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storeError(err, "today prompt")
	}
	return &p, nil
}

// ListByStatus is the admin review view, newest first.
func (m *Manager) ListByStatus(ctx context.Context, status models.Status, limit int) ([]models.Post, error) {
	if !status.Valid() {
		return nil, apperr.Validation("Invalid status.")
	}
	if limit <= 0 || limit > adminListLimit {
		limit = adminListLimit
	}
	items := []models.Post{}
	err := m.DB.WithContext(ctx).Where("status = ?", status).
		Order("created_at desc").Limit(limit).Find(&items).Error
	if err != nil {
		return nil, storeError(err, "list posts by status")
	}
	return items, nil
}

func pick(posts []models.Post) *models.Post {
	if len(posts) == 0 {
		return nil
	}
	p := posts[rand.Intn(len(posts))]
	return &p
}
