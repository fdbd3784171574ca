package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nordvale/planline-backend/internal/data/repos"
	"github.com/nordvale/planline-backend/internal/domain"
	"github.com/nordvale/planline-backend/internal/engine"
	"github.com/nordvale/planline-backend/internal/pkg/dbctx"
	"github.com/nordvale/planline-backend/internal/pkg/logger"
	"github.com/nordvale/planline-backend/internal/services"
)

type TaskHandler struct {
	log      *logger.Logger
	eng      engine.Engine
	tasks    repos.TaskRepo
	progress services.ProgressService
}

func NewTaskHandler(
	log *logger.Logger,
	eng engine.Engine,
	tasks repos.TaskRepo,
	progress services.ProgressService,
) *TaskHandler {
	return &TaskHandler{
		log:      log.With("handler", "TaskHandler"),
		eng:      eng,
		tasks:    tasks,
		progress: progress,
	}
}

func (h *TaskHandler) invalidate(c *gin.Context, tenantID uuid.UUID, cascade engine.CascadeResult) {
	if cascade.ProjectID != uuid.Nil {
		h.progress.Invalidate(c.Request.Context(), tenantID, cascade.ProjectID)
	}
}

func (h *TaskHandler) Get(c *gin.Context) {
	rd, ok := requestScope(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	task, err := h.tasks.GetByID(dbctx.Context{Ctx: c.Request.Context()}, rd.TenantID, id)
	if err != nil {
		if isNotFound(err) {
			RespondError(c, http.StatusNotFound, "task_not_found", err)
			return
		}
		RespondError(c, http.StatusInternalServerError, "load_task_failed", err)
		return
	}
	RespondOK(c, gin.H{"task": task})
}

// Backlog lists tasks not assigned to any sprint.
func (h *TaskHandler) Backlog(c *gin.Context) {
	rd, ok := requestScope(c)
	if !ok {
		return
	}
	tasks, err := h.tasks.ListBacklog(dbctx.Context{Ctx: c.Request.Context()}, rd.TenantID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "list_backlog_failed", err)
		return
	}
	RespondOK(c, gin.H{"tasks": tasks})
}

type taskCreateRequest struct {
	MilestoneID    uuid.UUID  `json:"milestone_id" binding:"required"`
	SprintID       *uuid.UUID `json:"sprint_id"`
	AssigneeID     *uuid.UUID `json:"assignee_id"`
	Title          string     `json:"title" binding:"required"`
	Description    string     `json:"description"`
	Status         string     `json:"status"`
	StartDate      string     `json:"start_date"`
	EndDate        string     `json:"end_date"`
	EstimatedHours *int       `json:"estimated_hours"`
}

func (h *TaskHandler) Create(c *gin.Context) {
	rd, ok := requestScope(c)
	if !ok {
		return
	}
	var req taskCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	startDate, err := parseDate(req.StartDate)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_date", err)
		return
	}
	endDate, err := parseDate(req.EndDate)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_date", err)
		return
	}
	task := &domain.Task{
		TenantID:       rd.TenantID,
		MilestoneID:    req.MilestoneID,
		SprintID:       req.SprintID,
		AssigneeID:     req.AssigneeID,
		Title:          req.Title,
		Description:    req.Description,
		Status:         req.Status,
		StartDate:      startDate,
		EndDate:        endDate,
		EstimatedHours: req.EstimatedHours,
	}
	res, err := h.eng.CreateTask(c.Request.Context(), task)
	if err != nil {
		RespondEngineError(c, err)
		return
	}
	h.invalidate(c, rd.TenantID, res.Cascade)
	RespondCreated(c, gin.H{"task": res.Task, "cascade": res.Cascade})
}

type taskUpdateRequest struct {
	Title          *string    `json:"title"`
	Description    *string    `json:"description"`
	Status         *string    `json:"status"`
	StartDate      *string    `json:"start_date"`
	EndDate        *string    `json:"end_date"`
	EstimatedHours *int       `json:"estimated_hours"`
	SprintID       *uuid.UUID `json:"sprint_id"`
	ClearSprint    bool       `json:"clear_sprint"`
	AssigneeID     *uuid.UUID `json:"assignee_id"`
	ClearAssignee  bool       `json:"clear_assignee"`
}

func (h *TaskHandler) Update(c *gin.Context) {
	rd, ok := requestScope(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req taskUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	change := engine.TaskChange{
		Title:          req.Title,
		Description:    req.Description,
		Status:         req.Status,
		EstimatedHours: req.EstimatedHours,
		SprintID:       req.SprintID,
		ClearSprint:    req.ClearSprint,
		AssigneeID:     req.AssigneeID,
		ClearAssignee:  req.ClearAssignee,
	}
	if req.StartDate != nil {
		d, err := parseDate(*req.StartDate)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "invalid_date", err)
			return
		}
		change.StartDate = d
	}
	if req.EndDate != nil {
		d, err := parseDate(*req.EndDate)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "invalid_date", err)
			return
		}
		change.EndDate = d
	}
	res, err := h.eng.ApplyTaskChange(c.Request.Context(), rd.TenantID, id, change)
	if err != nil {
		RespondEngineError(c, err)
		return
	}
	h.invalidate(c, rd.TenantID, res.Cascade)
	RespondOK(c, gin.H{"task": res.Task, "cascade": res.Cascade})
}

func (h *TaskHandler) Delete(c *gin.Context) {
	rd, ok := requestScope(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	res, err := h.eng.DeleteTask(c.Request.Context(), rd.TenantID, id)
	if err != nil {
		RespondEngineError(c, err)
		return
	}
	h.invalidate(c, rd.TenantID, *res)
	RespondOK(c, gin.H{"cascade": res})
}
