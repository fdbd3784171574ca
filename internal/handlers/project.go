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

type ProjectHandler struct {
	log        *logger.Logger
	eng        engine.Engine
	projects   repos.ProjectRepo
	milestones repos.MilestoneRepo
	events     repos.EngineEventRepo
	progress   services.ProgressService
}

func NewProjectHandler(
	log *logger.Logger,
	eng engine.Engine,
	projects repos.ProjectRepo,
	milestones repos.MilestoneRepo,
	events repos.EngineEventRepo,
	progress services.ProgressService,
) *ProjectHandler {
	return &ProjectHandler{
		log:        log.With("handler", "ProjectHandler"),
		eng:        eng,
		projects:   projects,
		milestones: milestones,
		events:     events,
		progress:   progress,
	}
}

func (h *ProjectHandler) List(c *gin.Context) {
	rd, ok := requestScope(c)
	if !ok {
		return
	}
	projects, err := h.projects.List(dbctx.Context{Ctx: c.Request.Context()}, rd.TenantID)
	if err != nil {
		h.log.Error("List projects failed", "error", err)
		RespondError(c, http.StatusInternalServerError, "list_projects_failed", err)
		return
	}
	RespondOK(c, gin.H{"projects": projects})
}

func (h *ProjectHandler) Get(c *gin.Context) {
	rd, ok := requestScope(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	project, err := h.projects.GetByID(dbctx.Context{Ctx: c.Request.Context()}, rd.TenantID, id)
	if err != nil {
		if isNotFound(err) {
			RespondError(c, http.StatusNotFound, "project_not_found", err)
			return
		}
		RespondError(c, http.StatusInternalServerError, "load_project_failed", err)
		return
	}
	RespondOK(c, gin.H{"project": project})
}

type projectCreateRequest struct {
	ClientID    uuid.UUID `json:"client_id" binding:"required"`
	Name        string    `json:"name" binding:"required"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	Priority    string    `json:"priority"`
	StartDate   string    `json:"start_date"`
	EndDate     string    `json:"end_date"`
	Budget      float64   `json:"budget"`
	Tags        string    `json:"tags"`
}

func (h *ProjectHandler) Create(c *gin.Context) {
	rd, ok := requestScope(c)
	if !ok {
		return
	}
	var req projectCreateRequest
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
	project := &domain.Project{
		TenantID:    rd.TenantID,
		ClientID:    req.ClientID,
		Name:        req.Name,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		StartDate:   startDate,
		EndDate:     endDate,
		Budget:      req.Budget,
		Tags:        req.Tags,
	}
	res, err := h.eng.CreateProject(c.Request.Context(), project)
	if err != nil {
		RespondEngineError(c, err)
		return
	}
	RespondCreated(c, gin.H{"project": res.Project})
}

type projectUpdateRequest struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Status      *string  `json:"status"`
	Priority    *string  `json:"priority"`
	StartDate   *string  `json:"start_date"`
	EndDate     *string  `json:"end_date"`
	Budget      *float64 `json:"budget"`
	Tags        *string  `json:"tags"`
}

func (h *ProjectHandler) Update(c *gin.Context) {
	rd, ok := requestScope(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req projectUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	change := engine.ProjectChange{
		Name:        req.Name,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		Budget:      req.Budget,
		Tags:        req.Tags,
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
	res, err := h.eng.ApplyProjectChange(c.Request.Context(), rd.TenantID, id, change)
	if err != nil {
		RespondEngineError(c, err)
		return
	}
	h.progress.Invalidate(c.Request.Context(), rd.TenantID, id)
	RespondOK(c, gin.H{"project": res.Project})
}

func (h *ProjectHandler) Delete(c *gin.Context) {
	rd, ok := requestScope(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	if _, err := h.projects.GetByID(dbc, rd.TenantID, id); err != nil {
		if isNotFound(err) {
			RespondError(c, http.StatusNotFound, "project_not_found", err)
			return
		}
		RespondError(c, http.StatusInternalServerError, "load_project_failed", err)
		return
	}
	if err := h.projects.Delete(dbc, rd.TenantID, id); err != nil {
		RespondError(c, http.StatusInternalServerError, "delete_project_failed", err)
		return
	}
	h.progress.Invalidate(c.Request.Context(), rd.TenantID, id)
	c.Status(http.StatusNoContent)
}

func (h *ProjectHandler) Milestones(c *gin.Context) {
	rd, ok := requestScope(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	if _, err := h.projects.GetByID(dbc, rd.TenantID, id); err != nil {
		if isNotFound(err) {
			RespondError(c, http.StatusNotFound, "project_not_found", err)
			return
		}
		RespondError(c, http.StatusInternalServerError, "load_project_failed", err)
		return
	}
	milestones, err := h.milestones.ListByProject(dbc, id)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "list_milestones_failed", err)
		return
	}
	RespondOK(c, gin.H{"milestones": milestones})
}

// Progress serves the cached roll-up snapshot for dashboards.
func (h *ProjectHandler) Progress(c *gin.Context) {
	rd, ok := requestScope(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	snap, err := h.progress.ProjectSnapshot(c.Request.Context(), rd.TenantID, id)
	if err != nil {
		if isNotFound(err) {
			RespondError(c, http.StatusNotFound, "project_not_found", err)
			return
		}
		RespondError(c, http.StatusInternalServerError, "load_progress_failed", err)
		return
	}
	RespondOK(c, gin.H{"progress": snap})
}

// Recompute rebuilds every stored progress value under the project.
func (h *ProjectHandler) Recompute(c *gin.Context) {
	rd, ok := requestScope(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	res, err := h.eng.RecomputeProjectProgress(c.Request.Context(), rd.TenantID, id)
	if err != nil {
		RespondEngineError(c, err)
		return
	}
	h.progress.Invalidate(c.Request.Context(), rd.TenantID, id)
	RespondOK(c, gin.H{"recompute": res})
}

// RecomputeAll sweeps every project of the tenant.
func (h *ProjectHandler) RecomputeAll(c *gin.Context) {
	rd, ok := requestScope(c)
	if !ok {
		return
	}
	count, err := h.progress.RecomputeAll(c.Request.Context(), rd.TenantID)
	if err != nil {
		h.log.Error("Recompute sweep failed", "error", err)
		RespondError(c, http.StatusInternalServerError, "recompute_failed", err)
		return
	}
	RespondOK(c, gin.H{"projects_swept": count})
}

// Events returns the engine audit trail for the project.
func (h *ProjectHandler) Events(c *gin.Context) {
	rd, ok := requestScope(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	events, err := h.events.ListByEntity(dbctx.Context{Ctx: c.Request.Context()}, rd.TenantID, id)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "list_events_failed", err)
		return
	}
	RespondOK(c, gin.H{"events": events})
}
