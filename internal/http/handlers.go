package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/sujalbistaa/murmur/internal/apperr"
	"github.com/sujalbistaa/murmur/internal/content"
	"github.com/sujalbistaa/murmur/internal/engagement"
	"github.com/sujalbistaa/murmur/internal/identity"
	. "github.com/sujalbistaa/murmur/internal/log"
	"github.com/sujalbistaa/murmur/internal/models"
	"github.com/sujalbistaa/murmur/internal/reports"
	"github.com/sujalbistaa/murmur/internal/ws"
)

// --- Structs for request binding ---
type CreatePostInput struct {
	City       string `json:"city"`
	University string `json:"university"`
	Category   string `json:"category"`
	Content    string `json:"content"`
	Intention  string `json:"intention"`
	PromptID   string `json:"prompt_id"`
}

type ByIDsInput struct {
	IDs []string `json:"ids"`
}

type ReactInput struct {
	Type string `json:"type" binding:"required"`
}

type ReportInput struct {
	Reason string `json:"reason"`
}

type ReplyInput struct {
	Content string `json:"content"`
}

type ReplyLikeInput struct {
	Action string `json:"action" binding:"required,oneof=like unlike"`
}

type VoteInput struct {
	ID   string `json:"id" binding:"required"`
	Vote string `json:"vote" binding:"required"`
}

// --- Handlers ---
type Env struct {
	DB         *gorm.DB
	Content    *content.Manager
	Engagement *engagement.Service
	Reports    *reports.Manager
	Hub        *ws.Hub
	// Now is overridable for tests.
	Now func() time.Time
}

func (e *Env) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// fail writes an apperr as {"message": ...} with the matching status.
func fail(c *gin.Context, err error) {
	status := apperr.Status(err)
	if status >= http.StatusInternalServerError {
		Log.WithError(err).WithField("path", c.FullPath()).Error("request failed")
	}
	c.AbortWithStatusJSON(status, gin.H{"message": apperr.Public(err)})
}

func badRequest(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "Invalid data."})
}

// visitor derives the anonymous token for the request. It answers 400 and
// returns false when the request carries no origin and no user agent.
func visitor(c *gin.Context) (string, bool) {
	token, ok := identity.FromRequest(c.Request)
	if !ok {
		fail(c, apperr.Validation("Could not identify the request."))
	}
	return token, ok
}

// fingerprint is the quota key for submissions; anonymous placeholders are
// accepted here and share one quota bucket.
func fingerprint(c *gin.Context) string {
	token, _ := identity.FromRequest(c.Request)
	return token
}

func (e *Env) CreatePost(c *gin.Context) {
	var input CreatePostInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c)
		return
	}
	post, _, err := e.Content.SubmitPost(c.Request.Context(), content.PostInput{
		City:        input.City,
		University:  input.University,
		Category:    input.Category,
		Content:     input.Content,
		Intention:   input.Intention,
		PromptID:    input.PromptID,
		Fingerprint: fingerprint(c),
	})
	if err != nil {
		fail(c, err)
		return
	}

	msg := "Confession sent for review."
	if post.Status == models.StatusApproved {
		msg = "Confession published."
	}
	c.JSON(http.StatusCreated, gin.H{"message": msg, "id": post.ID, "status": post.Status})
}

func (e *Env) ListPosts(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	p, err := e.Content.List(c.Request.Context(), content.ListFilter{
		City:     c.Query("city"),
		Category: c.Query("category"),
		PromptID: c.Query("prompt_id"),
		Sort:     c.DefaultQuery("sort", "new"),
		Page:     page,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (e *Env) GetPost(c *gin.Context) {
	post, err := e.Content.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"item": post})
}

func (e *Env) PostsByIDs(c *gin.Context) {
	var input ByIDsInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c)
		return
	}
	items, err := e.Content.ByIDs(c.Request.Context(), input.IDs)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (e *Env) RandomPosts(c *gin.Context) {
	n, _ := strconv.Atoi(c.DefaultQuery("limit", "1"))
	items, err := e.Content.Random(c.Request.Context(), n)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (e *Env) QuoteOfDay(c *gin.Context) {
	item, err := e.Content.QuoteOfDay(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"item": item})
}

func (e *Env) React(c *gin.Context) {
	var input ReactInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c)
		return
	}
	token, ok := visitor(c)
	if !ok {
		return
	}
	counts, err := e.Engagement.React(c.Request.Context(), c.Param("id"), token, models.ReactionKind(input.Type))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updatedCounts": counts})
}

func (e *Env) ReportPost(c *gin.Context) {
	var input ReportInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c)
		return
	}
	if _, err := e.Reports.Report(c.Request.Context(), c.Param("id"), input.Reason); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Report sent."})
}

func (e *Env) ListReplies(c *gin.Context) {
	items, err := e.Content.Replies(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (e *Env) CreateReply(c *gin.Context) {
	var input ReplyInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c)
		return
	}
	reply, _, err := e.Content.SubmitReply(c.Request.Context(), content.ReplyInput{
		PostID:      c.Param("id"),
		Content:     input.Content,
		Fingerprint: fingerprint(c),
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Comment published.", "item": reply})
}

func (e *Env) LikeReply(c *gin.Context) {
	var input ReplyLikeInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c)
		return
	}
	token, ok := visitor(c)
	if !ok {
		return
	}
	ctx, id := c.Request.Context(), c.Param("id")

	var (
		rc  engagement.ReplyCounts
		err error
		msg string
	)
	if input.Action == "like" {
		rc, err = e.Engagement.LikeReply(ctx, id, token)
		msg = "You liked this comment."
	} else {
		rc, err = e.Engagement.UnlikeReply(ctx, id, token)
		msg = "Your like was removed."
	}
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": msg, "item": rc})
}

func (e *Env) NextTruthOrFake(c *gin.Context) {
	ctx := c.Request.Context()
	item, err := e.Content.NextTruthOrFake(ctx)
	if err != nil {
		fail(c, err)
		return
	}
	if item == nil {
		c.JSON(http.StatusOK, gin.H{"item": nil, "userVote": nil})
		return
	}
	var userVote interface{}
	if token, ok := identity.FromRequest(c.Request); ok {
		vote, err := e.Engagement.CurrentVote(ctx, item.ID, token)
		if err != nil {
			fail(c, err)
			return
		}
		if vote != "" {
			userVote = vote
		}
	}
	c.JSON(http.StatusOK, gin.H{"item": item, "userVote": userVote})
}

func (e *Env) VoteTruthOrFake(c *gin.Context) {
	var input VoteInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c)
		return
	}
	token, ok := visitor(c)
	if !ok {
		return
	}
	tally, err := e.Engagement.Vote(c.Request.Context(), input.ID, token, models.VoteChoice(input.Vote))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": tally, "userVote": tally.UserVote})
}

func (e *Env) TodayPrompt(c *gin.Context) {
	p, err := e.Content.TodayPrompt(c.Request.Context(), e.now())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"prompt": p})
}

func (e *Env) Healthz(c *gin.Context) {
	sqlDB, err := e.DB.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		Log.WithError(err).Warn("health check failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (e *Env) ServeWs(c *gin.Context) {
	ws.ServeWs(e.Hub, c.Writer, c.Request, c.Query("confession_id"))
}
