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

type MilestoneHandler struct {
	log        *logger.Logger
	eng        engine.Engine
	milestones repos.MilestoneRepo
	sprints    repos.SprintRepo
	tasks      repos.TaskRepo
	progress   services.ProgressService
}

func NewMilestoneHandler(
	log *logger.Logger,
	eng engine.Engine,
	milestones repos.MilestoneRepo,
	sprints repos.SprintRepo,
	tasks repos.TaskRepo,
	progress services.ProgressService,
) *MilestoneHandler {
	return &MilestoneHandler{
		log:        log.With("handler", "MilestoneHandler"),
		eng:        eng,
		milestones: milestones,
		sprints:    sprints,
		tasks:      tasks,
		progress:   progress,
	}
}

func (h *MilestoneHandler) Get(c *gin.Context) {
	rd, ok := requestScope(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	milestone, err := h.milestones.GetByID(dbctx.Context{Ctx: c.Request.Context()}, rd.TenantID, id)
	if err != nil {
		if isNotFound(err) {
			RespondError(c, http.StatusNotFound, "milestone_not_found", err)
			return
		}
		RespondError(c, http.StatusInternalServerError, "load_milestone_failed", err)
		return
	}
	RespondOK(c, gin.H{"milestone": milestone})
}

type milestoneCreateRequest struct {
	ProjectID    uuid.UUID  `json:"project_id" binding:"required"`
	Name         string     `json:"name" binding:"required"`
	Description  string     `json:"description"`
	Status       string     `json:"status"`
	PlannedStart string     `json:"planned_start"`
	ActualStart  string     `json:"actual_start"`
	DueDate      string     `json:"due_date"`
	AssigneeID   *uuid.UUID `json:"assignee_id"`
}

func (h *MilestoneHandler) Create(c *gin.Context) {
	rd, ok := requestScope(c)
	if !ok {
		return
	}
	var req milestoneCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	plannedStart, err := parseDate(req.PlannedStart)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_date", err)
		return
	}
	actualStart, err := parseDate(req.ActualStart)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_date", err)
		return
	}
	dueDate, err := parseDate(req.DueDate)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_date", err)
		return
	}
	milestone := &domain.Milestone{
		TenantID:     rd.TenantID,
		ProjectID:    req.ProjectID,
		Name:         req.Name,
		Description:  req.Description,
		Status:       req.Status,
		PlannedStart: plannedStart,
		ActualStart:  actualStart,
		DueDate:      dueDate,
		AssigneeID:   req.AssigneeID,
	}
	res, err := h.eng.CreateMilestone(c.Request.Context(), milestone)
	if err != nil {
		RespondEngineError(c, err)
		return
	}
	h.progress.Invalidate(c.Request.Context(), rd.TenantID, milestone.ProjectID)
	RespondCreated(c, gin.H{"milestone": res.Milestone, "cascade": res.Cascade})
}

type milestoneUpdateRequest struct {
	Name          *string    `json:"name"`
	Description   *string    `json:"description"`
	Status        *string    `json:"status"`
	PlannedStart  *string    `json:"planned_start"`
	ActualStart   *string    `json:"actual_start"`
	DueDate       *string    `json:"due_date"`
	AssigneeID    *uuid.UUID `json:"assignee_id"`
	ClearAssignee bool       `json:"clear_assignee"`
}

func (h *MilestoneHandler) Update(c *gin.Context) {
	rd, ok := requestScope(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req milestoneUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	change := engine.MilestoneChange{
		Name:          req.Name,
		Description:   req.Description,
		Status:        req.Status,
		AssigneeID:    req.AssigneeID,
		ClearAssignee: req.ClearAssignee,
	}
	if req.PlannedStart != nil {
		d, err := parseDate(*req.PlannedStart)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "invalid_date", err)
			return
		}
		change.PlannedStart = d
	}
	if req.ActualStart != nil {
		d, err := parseDate(*req.ActualStart)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "invalid_date", err)
			return
		}
		change.ActualStart = d
	}
	if req.DueDate != nil {
		d, err := parseDate(*req.DueDate)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "invalid_date", err)
			return
		}
		change.DueDate = d
	}
	res, err := h.eng.ApplyMilestoneChange(c.Request.Context(), rd.TenantID, id, change)
	if err != nil {
		RespondEngineError(c, err)
		return
	}
	h.progress.Invalidate(c.Request.Context(), rd.TenantID, res.Milestone.ProjectID)
	RespondOK(c, gin.H{"milestone": res.Milestone, "cascade": res.Cascade})
}

func (h *MilestoneHandler) Delete(c *gin.Context) {
	rd, ok := requestScope(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	res, err := h.eng.DeleteMilestone(c.Request.Context(), rd.TenantID, id)
	if err != nil {
		RespondEngineError(c, err)
		return
	}
	if res.ProjectID != uuid.Nil {
		h.progress.Invalidate(c.Request.Context(), rd.TenantID, res.ProjectID)
	}
	RespondOK(c, gin.H{"cascade": res})
}

func (h *MilestoneHandler) Sprints(c *gin.Context) {
	rd, ok := requestScope(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	if _, err := h.milestones.GetByID(dbc, rd.TenantID, id); err != nil {
		if isNotFound(err) {
			RespondError(c, http.StatusNotFound, "milestone_not_found", err)
			return
		}
		RespondError(c, http.StatusInternalServerError, "load_milestone_failed", err)
		return
	}
	sprints, err := h.sprints.ListByMilestone(dbc, id)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "list_sprints_failed", err)
		return
	}
	RespondOK(c, gin.H{"sprints": sprints})
}

func (h *MilestoneHandler) Tasks(c *gin.Context) {
	rd, ok := requestScope(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	if _, err := h.milestones.GetByID(dbc, rd.TenantID, id); err != nil {
		if isNotFound(err) {
			RespondError(c, http.StatusNotFound, "milestone_not_found", err)
			return
		}
		RespondError(c, http.StatusInternalServerError, "load_milestone_failed", err)
		return
	}
	tasks, err := h.tasks.ListByMilestone(dbc, id)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "list_tasks_failed", err)
		return
	}
	RespondOK(c, gin.H{"tasks": tasks})
}
