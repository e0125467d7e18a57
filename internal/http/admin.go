package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/sujalbistaa/murmur/internal/apperr"
	. "github.com/sujalbistaa/murmur/internal/log"
	"github.com/sujalbistaa/murmur/internal/models"
)

type AdminPostAction struct {
	ID     string `json:"id" binding:"required"`
	Action string `json:"action" binding:"required,oneof=approve reject delete feature unfeature"`
}

type AdminReportAction struct {
	ReportID     string `json:"reportId"`
	Action       string `json:"action" binding:"required,oneof=mark_handled mark_unhandled delete_confession"`
	ConfessionID string `json:"confessionId"`
}

func (e *Env) AdminListPosts(c *gin.Context) {
	status := models.Status(c.DefaultQuery("status", string(models.StatusPending)))
	limit, _ := strconv.Atoi(c.Query("limit"))
	items, err := e.Content.ListByStatus(c.Request.Context(), status, limit)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (e *Env) AdminUpdatePost(c *gin.Context) {
	var input AdminPostAction
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c)
		return
	}
	ctx := c.Request.Context()

	var (
		post *models.Post
		err  error
	)
	switch input.Action {
	case "approve":
		post, err = e.Content.Approve(ctx, input.ID)
	case "reject":
		post, err = e.Content.Reject(ctx, input.ID)
	case "feature":
		post, err = e.Content.SetTruthOrFake(ctx, input.ID, true)
	case "unfeature":
		post, err = e.Content.SetTruthOrFake(ctx, input.ID, false)
	case "delete":
		err = e.Content.Delete(ctx, input.ID)
	}
	if err != nil {
		fail(c, err)
		return
	}
	Log.WithFields(logrus.Fields{"post_id": input.ID, "action": input.Action}).Info("admin post action")
	if post == nil {
		c.JSON(http.StatusOK, gin.H{"message": "Confession deleted."})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Confession updated.", "item": post})
}

func (e *Env) AdminListReports(c *gin.Context) {
	var handled *bool
	if raw := c.Query("handled"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			fail(c, apperr.Validation("Invalid handled filter."))
			return
		}
		handled = &v
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	items, err := e.Reports.Queue(c.Request.Context(), handled, limit)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (e *Env) AdminUpdateReport(c *gin.Context) {
	var input AdminReportAction
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c)
		return
	}
	ctx := c.Request.Context()

	var err error
	switch input.Action {
	case "mark_handled":
		err = e.Reports.MarkHandled(ctx, input.ReportID)
	case "mark_unhandled":
		err = e.Reports.MarkUnhandled(ctx, input.ReportID)
	case "delete_confession":
		err = e.Reports.DeleteConfession(ctx, input.ReportID, input.ConfessionID)
	}
	if err != nil {
		fail(c, err)
		return
	}
	Log.WithFields(logrus.Fields{"report_id": input.ReportID, "action": input.Action}).Info("admin report action")
	c.JSON(http.StatusOK, gin.H{"message": "Report updated."})
}
