package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nordvale/planline-backend/internal/data/repos"
	"github.com/nordvale/planline-backend/internal/domain"
	"github.com/nordvale/planline-backend/internal/engine"
	"github.com/nordvale/planline-backend/internal/pkg/dbctx"
	"github.com/nordvale/planline-backend/internal/pkg/logger"
	"github.com/nordvale/planline-backend/internal/requestdata"
	"github.com/nordvale/planline-backend/internal/services"
)

// The embedded interfaces stay nil; only the overridden methods may be called.
type stubEngine struct {
	engine.Engine
	createdTask *domain.Task
}

func (e *stubEngine) CreateTask(_ context.Context, task *domain.Task) (*engine.TaskResult, error) {
	e.createdTask = task
	return &engine.TaskResult{Task: task, Cascade: engine.CascadeResult{}}, nil
}

type stubSprintRepo struct {
	repos.SprintRepo
	sprint *domain.Sprint
}

func (r *stubSprintRepo) GetByID(_ dbctx.Context, tenantID, id uuid.UUID) (*domain.Sprint, error) {
	if r.sprint == nil || r.sprint.ID != id || r.sprint.TenantID != tenantID {
		return nil, gorm.ErrRecordNotFound
	}
	return r.sprint, nil
}

type stubProgress struct {
	services.ProgressService
}

func (stubProgress) Invalidate(context.Context, uuid.UUID, uuid.UUID) {}

func sprintTestRouter(rd *requestdata.RequestData, h *SprintHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/sprints/:id/tasks", func(c *gin.Context) {
		c.Request = c.Request.WithContext(requestdata.WithRequestData(c.Request.Context(), rd))
		h.CreateTask(c)
	})
	return r
}

func TestSprintCreateTaskInheritsMilestone(t *testing.T) {
	tenantID := uuid.New()
	sprint := &domain.Sprint{
		ID:          uuid.New(),
		TenantID:    tenantID,
		MilestoneID: uuid.New(),
		Name:        "Sprint 1",
		Status:      domain.SprintStatusActive,
	}
	eng := &stubEngine{}
	h := NewSprintHandler(logger.NewNop(), eng, &stubSprintRepo{sprint: sprint}, nil, stubProgress{})
	rd := &requestdata.RequestData{UserID: uuid.New(), TenantID: tenantID}
	router := sprintTestRouter(rd, h)

	body := `{"title":"Wire webhook","status":"in_progress"}`
	req := httptest.NewRequest(http.MethodPost, "/sprints/"+sprint.ID.String()+"/tasks",
		strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status: want=201 got=%d body=%s", w.Code, w.Body.String())
	}
	created := eng.createdTask
	if created == nil {
		t.Fatal("expected task to reach the engine")
	}
	if created.SprintID == nil || *created.SprintID != sprint.ID {
		t.Fatalf("task sprint id: want=%s got=%v", sprint.ID, created.SprintID)
	}
	if created.MilestoneID != sprint.MilestoneID {
		t.Fatalf("task milestone id: want=%s got=%s", sprint.MilestoneID, created.MilestoneID)
	}
	if created.TenantID != tenantID {
		t.Fatalf("task tenant id: want=%s got=%s", tenantID, created.TenantID)
	}
	if created.Status != domain.TaskStatusInProgress {
		t.Fatalf("task status: want=in_progress got=%q", created.Status)
	}
}

func TestSprintCreateTaskUnknownSprint(t *testing.T) {
	eng := &stubEngine{}
	h := NewSprintHandler(logger.NewNop(), eng, &stubSprintRepo{}, nil, stubProgress{})
	rd := &requestdata.RequestData{UserID: uuid.New(), TenantID: uuid.New()}
	router := sprintTestRouter(rd, h)

	req := httptest.NewRequest(http.MethodPost, "/sprints/"+uuid.NewString()+"/tasks",
		strings.NewReader(`{"title":"Orphan"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status: want=404 got=%d body=%s", w.Code, w.Body.String())
	}
	if eng.createdTask != nil {
		t.Fatalf("engine must not be reached for an unknown sprint, got=%+v", eng.createdTask)
	}
}
