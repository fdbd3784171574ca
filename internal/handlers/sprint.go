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

type SprintHandler struct {
	log      *logger.Logger
	eng      engine.Engine
	sprints  repos.SprintRepo
	tasks    repos.TaskRepo
	progress services.ProgressService
}

func NewSprintHandler(
	log *logger.Logger,
	eng engine.Engine,
	sprints repos.SprintRepo,
	tasks repos.TaskRepo,
	progress services.ProgressService,
) *SprintHandler {
	return &SprintHandler{
		log:      log.With("handler", "SprintHandler"),
		eng:      eng,
		sprints:  sprints,
		tasks:    tasks,
		progress: progress,
	}
}

func (h *SprintHandler) invalidate(c *gin.Context, tenantID uuid.UUID, cascade engine.CascadeResult) {
	if cascade.ProjectID != uuid.Nil {
		h.progress.Invalidate(c.Request.Context(), tenantID, cascade.ProjectID)
	}
}

func (h *SprintHandler) Get(c *gin.Context) {
	rd, ok := requestScope(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	sprint, err := h.sprints.GetByID(dbctx.Context{Ctx: c.Request.Context()}, rd.TenantID, id)
	if err != nil {
		if isNotFound(err) {
			RespondError(c, http.StatusNotFound, "sprint_not_found", err)
			return
		}
		RespondError(c, http.StatusInternalServerError, "load_sprint_failed", err)
		return
	}
	RespondOK(c, gin.H{"sprint": sprint})
}

type sprintCreateRequest struct {
	MilestoneID uuid.UUID `json:"milestone_id" binding:"required"`
	Name        string    `json:"name" binding:"required"`
	Status      string    `json:"status"`
	StartDate   string    `json:"start_date"`
	EndDate     string    `json:"end_date"`
}

func (h *SprintHandler) Create(c *gin.Context) {
	rd, ok := requestScope(c)
	if !ok {
		return
	}
	var req sprintCreateRequest
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
	sprint := &domain.Sprint{
		TenantID:    rd.TenantID,
		MilestoneID: req.MilestoneID,
		Name:        req.Name,
		Status:      req.Status,
		StartDate:   startDate,
		EndDate:     endDate,
	}
	res, err := h.eng.CreateSprint(c.Request.Context(), sprint)
	if err != nil {
		RespondEngineError(c, err)
		return
	}
	h.invalidate(c, rd.TenantID, res.Cascade)
	RespondCreated(c, gin.H{"sprint": res.Sprint, "cascade": res.Cascade})
}

type sprintUpdateRequest struct {
	Name      *string `json:"name"`
	Status    *string `json:"status"`
	StartDate *string `json:"start_date"`
	EndDate   *string `json:"end_date"`
}

func (h *SprintHandler) Update(c *gin.Context) {
	rd, ok := requestScope(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req sprintUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	change := engine.SprintChange{
		Name:   req.Name,
		Status: req.Status,
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
	res, err := h.eng.ApplySprintChange(c.Request.Context(), rd.TenantID, id, change)
	if err != nil {
		RespondEngineError(c, err)
		return
	}
	h.invalidate(c, rd.TenantID, res.Cascade)
	RespondOK(c, gin.H{"sprint": res.Sprint, "cascade": res.Cascade})
}

func (h *SprintHandler) Delete(c *gin.Context) {
	rd, ok := requestScope(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	res, err := h.eng.DeleteSprint(c.Request.Context(), rd.TenantID, id)
	if err != nil {
		RespondEngineError(c, err)
		return
	}
	h.invalidate(c, rd.TenantID, *res)
	RespondOK(c, gin.H{"cascade": res})
}

func (h *SprintHandler) Tasks(c *gin.Context) {
	rd, ok := requestScope(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	if _, err := h.sprints.GetByID(dbc, rd.TenantID, id); err != nil {
		if isNotFound(err) {
			RespondError(c, http.StatusNotFound, "sprint_not_found", err)
			return
		}
		RespondError(c, http.StatusInternalServerError, "load_sprint_failed", err)
		return
	}
	tasks, err := h.tasks.ListBySprint(dbc, id)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "list_tasks_failed", err)
		return
	}
	RespondOK(c, gin.H{"tasks": tasks})
}

type sprintTaskCreateRequest struct {
	Title          string     `json:"title" binding:"required"`
	Description    string     `json:"description"`
	Status         string     `json:"status"`
	AssigneeID     *uuid.UUID `json:"assignee_id"`
	StartDate      string     `json:"start_date"`
	EndDate        string     `json:"end_date"`
	EstimatedHours *int       `json:"estimated_hours"`
}

// CreateTask creates a task directly inside the sprint. The milestone is
// inherited from the sprint, so the caller cannot misfile the task.
func (h *SprintHandler) CreateTask(c *gin.Context) {
	rd, ok := requestScope(c)
	if !ok {
		return
	}
	sprintID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req sprintTaskCreateRequest
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
	sprint, err := h.sprints.GetByID(dbctx.Context{Ctx: c.Request.Context()}, rd.TenantID, sprintID)
	if err != nil {
		if isNotFound(err) {
			RespondError(c, http.StatusNotFound, "sprint_not_found", err)
			return
		}
		RespondError(c, http.StatusInternalServerError, "load_sprint_failed", err)
		return
	}
	task := &domain.Task{
		TenantID:       rd.TenantID,
		MilestoneID:    sprint.MilestoneID,
		SprintID:       &sprint.ID,
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

// AssignTask moves a backlog task into the sprint. The move is validated and
// propagated by the engine like any other task change.
func (h *SprintHandler) AssignTask(c *gin.Context) {
	rd, ok := requestScope(c)
	if !ok {
		return
	}
	sprintID, ok := pathID(c, "id")
	if !ok {
		return
	}
	taskID, ok := pathID(c, "taskId")
	if !ok {
		return
	}
	res, err := h.eng.ApplyTaskChange(c.Request.Context(), rd.TenantID, taskID, engine.TaskChange{
		SprintID: &sprintID,
	})
	if err != nil {
		RespondEngineError(c, err)
		return
	}
	h.invalidate(c, rd.TenantID, res.Cascade)
	RespondOK(c, gin.H{"task": res.Task, "cascade": res.Cascade})
}

// UnassignTask returns a task to the milestone backlog.
func (h *SprintHandler) UnassignTask(c *gin.Context) {
	rd, ok := requestScope(c)
	if !ok {
		return
	}
	if _, ok := pathID(c, "id"); !ok {
		return
	}
	taskID, ok := pathID(c, "taskId")
	if !ok {
		return
	}
	res, err := h.eng.ApplyTaskChange(c.Request.Context(), rd.TenantID, taskID, engine.TaskChange{
		ClearSprint: true,
	})
	if err != nil {
		RespondEngineError(c, err)
		return
	}
	h.invalidate(c, rd.TenantID, res.Cascade)
	RespondOK(c, gin.H{"task": res.Task, "cascade": res.Cascade})
}
