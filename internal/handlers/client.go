package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nordvale/planline-backend/internal/data/repos"
	"github.com/nordvale/planline-backend/internal/domain"
	"github.com/nordvale/planline-backend/internal/pkg/dbctx"
	"github.com/nordvale/planline-backend/internal/pkg/logger"
)

type ClientHandler struct {
	log      *logger.Logger
	clients  repos.ClientRepo
	projects repos.ProjectRepo
}

func NewClientHandler(log *logger.Logger, clients repos.ClientRepo, projects repos.ProjectRepo) *ClientHandler {
	return &ClientHandler{
		log:      log.With("handler", "ClientHandler"),
		clients:  clients,
		projects: projects,
	}
}

func (h *ClientHandler) List(c *gin.Context) {
	rd, ok := requestScope(c)
	if !ok {
		return
	}
	clients, err := h.clients.List(dbctx.Context{Ctx: c.Request.Context()}, rd.TenantID)
	if err != nil {
		h.log.Error("List clients failed", "error", err)
		RespondError(c, http.StatusInternalServerError, "list_clients_failed", err)
		return
	}
	RespondOK(c, gin.H{"clients": clients})
}

func (h *ClientHandler) Get(c *gin.Context) {
	rd, ok := requestScope(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	client, err := h.clients.GetByID(dbctx.Context{Ctx: c.Request.Context()}, rd.TenantID, id)
	if err != nil {
		if isNotFound(err) {
			RespondError(c, http.StatusNotFound, "client_not_found", err)
			return
		}
		RespondError(c, http.StatusInternalServerError, "load_client_failed", err)
		return
	}
	RespondOK(c, gin.H{"client": client})
}

type clientRequest struct {
	Name   string `json:"name" binding:"required"`
	Email  string `json:"email" binding:"required"`
	Phone  string `json:"phone"`
	Status string `json:"status"`
}

func (h *ClientHandler) Create(c *gin.Context) {
	rd, ok := requestScope(c)
	if !ok {
		return
	}
	var req clientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if req.Status == "" {
		req.Status = domain.ClientStatusProspect
	}
	client := &domain.Client{
		TenantID: rd.TenantID,
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Status:   req.Status,
	}
	if err := h.clients.Create(dbctx.Context{Ctx: c.Request.Context()}, client); err != nil {
		h.log.Error("Create client failed", "error", err)
		RespondError(c, http.StatusInternalServerError, "create_client_failed", err)
		return
	}
	RespondCreated(c, gin.H{"client": client})
}

type clientUpdateRequest struct {
	Name   *string `json:"name"`
	Email  *string `json:"email"`
	Phone  *string `json:"phone"`
	Status *string `json:"status"`
}

func (h *ClientHandler) Update(c *gin.Context) {
	rd, ok := requestScope(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req clientUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	client, err := h.clients.GetByID(dbc, rd.TenantID, id)
	if err != nil {
		if isNotFound(err) {
			RespondError(c, http.StatusNotFound, "client_not_found", err)
			return
		}
		RespondError(c, http.StatusInternalServerError, "load_client_failed", err)
		return
	}
	updates := map[string]any{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Email != nil {
		updates["email"] = *req.Email
	}
	if req.Phone != nil {
		updates["phone"] = *req.Phone
	}
	if req.Status != nil {
		updates["status"] = *req.Status
	}
	if len(updates) > 0 {
		updates["updated_at"] = time.Now().UTC()
		if err := h.clients.UpdateFields(dbc, id, updates); err != nil {
			RespondError(c, http.StatusInternalServerError, "update_client_failed", err)
			return
		}
		client, err = h.clients.GetByID(dbc, rd.TenantID, id)
		if err != nil {
			RespondError(c, http.StatusInternalServerError, "load_client_failed", err)
			return
		}
	}
	RespondOK(c, gin.H{"client": client})
}

func (h *ClientHandler) Delete(c *gin.Context) {
	rd, ok := requestScope(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	projects, err := h.projects.ListByClient(dbc, rd.TenantID, id)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "load_client_projects_failed", err)
		return
	}
	if len(projects) > 0 {
		RespondError(c, http.StatusConflict, "client_has_projects", errors.New("client still has projects"))
		return
	}
	if err := h.clients.Delete(dbc, rd.TenantID, id); err != nil {
		RespondError(c, http.StatusInternalServerError, "delete_client_failed", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ClientHandler) Projects(c *gin.Context) {
	rd, ok := requestScope(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	projects, err := h.projects.ListByClient(dbctx.Context{Ctx: c.Request.Context()}, rd.TenantID, id)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "list_client_projects_failed", err)
		return
	}
	RespondOK(c, gin.H{"projects": projects})
}
