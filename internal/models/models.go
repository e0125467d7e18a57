package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Post represents a single anonymous confession.
type Post struct {
	ID               string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Content          string    `gorm:"not null" json:"content"`
	Category         string    `gorm:"type:varchar(32);not null;index" json:"category"`
	City             string    `gorm:"type:varchar(64);not null;index" json:"city"`
	University       *string   `gorm:"type:varchar(128)" json:"university"`
	Intention        string    `gorm:"type:varchar(16);not null;default:advice" json:"intention"`
	PromptID         *string   `gorm:"type:varchar(36);index" json:"prompt_id"`
	Status           Status    `gorm:"type:varchar(16);not null;default:pending;index" json:"status"`
	Fingerprint      string    `gorm:"type:varchar(64);not null;index" json:"-"`
	ModerationReason string    `gorm:"type:varchar(32)" json:"-"`
	LikesCount       int       `gorm:"not null;default:0" json:"likes_count"`
	WowCount         int       `gorm:"not null;default:0" json:"wow_count"`
	HahaCount        int       `gorm:"not null;default:0" json:"haha_count"`
	IsTruthOrFake    bool      `gorm:"not null;default:false;index" json:"is_truth_or_fake"`
	TruthVotes       int       `gorm:"not null;default:0" json:"truth_votes"`
	FakeVotes        int       `gorm:"not null;default:0" json:"fake_votes"`
	CreatedAt        time.Time `gorm:"index" json:"created_at"`
	UpdatedAt        time.Time `json:"-"`

	Replies   []Reply    `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"-"`
	Reactions []Reaction `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"-"`
	Votes     []Vote     `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"-"`
	Reports   []Report   `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"-"`
}

// Reply is a comment on a post.
type Reply struct {
	ID               string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	PostID           string    `gorm:"type:varchar(36);not null;index" json:"confession_id"`
	Content          string    `gorm:"not null" json:"content"`
	Status           Status    `gorm:"type:varchar(16);not null;default:pending;index" json:"status"`
	Fingerprint      string    `gorm:"type:varchar(64);not null" json:"-"`
	ModerationReason string    `gorm:"type:varchar(32)" json:"-"`
	LikesCount       int       `gorm:"not null;default:0" json:"likes_count"`
	CreatedAt        time.Time `gorm:"index" json:"created_at"`

	Likes []ReplyLike `gorm:"foreignKey:ReplyID;constraint:OnDelete:CASCADE" json:"-"`
}

type ReactionKind string

const (
	ReactionLike ReactionKind = "like"
	ReactionWow  ReactionKind = "wow"
	ReactionHaha ReactionKind = "haha"
)

// Column is the counter on posts that tracks this kind.
func (k ReactionKind) Column() (string, bool) {
	switch k {
	case ReactionLike:
		return "likes_count", true
	case ReactionWow:
		return "wow_count", true
	case ReactionHaha:
		return "haha_count", true
	}
	return "", false
}

// Reaction is one (post, visitor, kind) triple. The composite primary key is
// what makes reacting idempotent.
type Reaction struct {
	PostID      string       `gorm:"type:varchar(36);primaryKey" json:"confession_id"`
	Fingerprint string       `gorm:"type:varchar(64);primaryKey" json:"-"`
	Kind        ReactionKind `gorm:"type:varchar(8);primaryKey" json:"reaction_type"`
	CreatedAt   time.Time    `json:"created_at"`
}

type VoteChoice string

const (
	VoteTruth VoteChoice = "truth"
	VoteFake  VoteChoice = "fake"
)

func (c VoteChoice) Valid() bool {
	return c == VoteTruth || c == VoteFake
}

// Vote is a truth-or-fake vote. One row per (post, visitor); changing your
// mind updates the row.
type Vote struct {
	ID          uint       `gorm:"primarykey" json:"id"`
	PostID      string     `gorm:"type:varchar(36);not null;uniqueIndex:idx_vote_post_fingerprint" json:"confession_id"`
	Fingerprint string     `gorm:"type:varchar(64);not null;uniqueIndex:idx_vote_post_fingerprint" json:"-"`
	Choice      VoteChoice `gorm:"type:varchar(8);not null;index" json:"vote"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type ReplyLike struct {
	ReplyID     string    `gorm:"type:varchar(36);primaryKey"`
	Fingerprint string    `gorm:"type:varchar(64);primaryKey"`
	CreatedAt   time.Time
}

// Report is a visitor complaint about a post. Reports are evidence, so
// duplicates are kept.
type Report struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	PostID    string    `gorm:"type:varchar(36);not null;index" json:"confession_id"`
	Reason    string    `gorm:"not null" json:"reason"`
	Handled   bool      `gorm:"not null;default:false;index" json:"handled"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// Prompt is a "question of the day" posts can answer.
type Prompt struct {
	ID         string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	Text       string     `gorm:"not null" json:"text"`
	IsActive   bool       `gorm:"not null;default:true" json:"is_active"`
	ActiveFrom time.Time  `gorm:"not null;index" json:"active_from"`
	ActiveTo   *time.Time `json:"active_to"`
	CreatedAt  time.Time  `json:"created_at"`
}

func (p *Post) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

func (r *Reply) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

func (r *Report) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

func (p *Prompt) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// All lists every model, in migration order.
func All() []interface{} {
	return []interface{}{&Prompt{}, &Post{}, &Reply{}, &ReplyLike{}, &Reaction{}, &Vote{}, &Report{}}
}
