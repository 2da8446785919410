package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/laithharzallah/Laithstool-sub001/internal/screen"
)

// StartScreening accepts a company screening job and returns a task id
// immediately. Progress is polled through TaskStatus; the report is
// collected through TaskResult once the task completes.
func (h *Handler) StartScreening(c *gin.Context) {
	var req companyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
		return
	}

	parsed, err := parseCompanyRequest(req)
	if err != nil {
		h.abortWithError(c, err)
		return
	}

	task := h.screener.StartTask(h.tasks, parsed)
	c.JSON(http.StatusAccepted, gin.H{
		"task_id": task.ID,
		"status":  task.Status,
		"message": "Screening task created and started",
	})
}

// TaskStatus reports progress for a screening task.
func (h *Handler) TaskStatus(c *gin.Context) {
	task, ok := h.tasks.Get(c.Param("task_id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
		return
	}
	c.JSON(http.StatusOK, task)
}

// TaskResult returns the finished report. Asking before the task has
// completed is a conflict, not a failure.
func (h *Handler) TaskResult(c *gin.Context) {
	task, ok := h.tasks.Get(c.Param("task_id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
		return
	}
	if task.Status != screen.TaskCompleted || task.Result == nil {
		c.JSON(http.StatusConflict, gin.H{
			"error":  "Task not completed yet",
			"status": task.Status,
		})
		return
	}
	c.JSON(http.StatusOK, task.Result)
}
