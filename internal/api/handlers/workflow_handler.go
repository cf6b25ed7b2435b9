package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/BuildFund/New-Main-sub000/internal/service"
	"github.com/BuildFund/New-Main-sub000/internal/tracing"
)

// WorkflowHandler handles stage progression and task HTTP requests
type WorkflowHandler struct {
	stages *service.StageService
	tracer tracing.Tracer
}

// NewWorkflowHandler creates a new workflow handler
func NewWorkflowHandler(stages *service.StageService, tracer tracing.Tracer) *WorkflowHandler {
	return &WorkflowHandler{stages: stages, tracer: tracer}
}

// RegisterRoutes registers the workflow routes
func (h *WorkflowHandler) RegisterRoutes(router gin.IRouter) {
	deals := router.Group("/deals/:id")
	{
		deals.GET("/stages", h.ListStages)
		deals.GET("/stages/check-exit", h.CheckExit)
		deals.POST("/advance", h.Advance)
		deals.GET("/tasks", h.ListTasks)
	}

	tasks := router.Group("/tasks")
	{
		tasks.POST("/:id/start", h.StartTask)
		tasks.POST("/:id/complete", h.CompleteTask)
		tasks.POST("/:id/dependencies", h.AddDependency)
	}
}

// ListStages returns a deal's stages in order
func (h *WorkflowHandler) ListStages(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, err)
		return
	}

	stages, err := h.stages.ListStages(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stages": stages})
}

// CheckExit evaluates the current stage's exit criteria without moving
func (h *WorkflowHandler) CheckExit(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, err)
		return
	}

	met, unmet, err := h.stages.CheckExit(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"met": met, "unmet": unmet})
}

// Advance moves the deal forward one stage
func (h *WorkflowHandler) Advance(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-advance-stage")
	defer h.tracer.EndTransaction(txn)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, err)
		return
	}

	var req struct {
		ActorRef string `json:"actor_ref"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	result, err := h.stages.Advance(c.Request.Context(), id, actorRef(c, req.ActorRef))
	if err != nil {
		h.tracer.RecordError(txn, err)
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ListTasks returns a deal's tasks
func (h *WorkflowHandler) ListTasks(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, err)
		return
	}

	tasks, err := h.stages.ListTasks(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": tasks})
}

// StartTask moves a pending task to in progress
func (h *WorkflowHandler) StartTask(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, err)
		return
	}

	var req struct {
		AssigneeID *uuid.UUID `json:"assignee_id"`
		ActorRef   string     `json:"actor_ref"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	task, err := h.stages.StartTask(c.Request.Context(), id, req.AssigneeID, actorRef(c, req.ActorRef))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// CompleteTask completes a task, subject to its dependencies
func (h *WorkflowHandler) CompleteTask(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, err)
		return
	}

	var req struct {
		ActorRef string `json:"actor_ref"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	task, err := h.stages.CompleteTask(c.Request.Context(), id, actorRef(c, req.ActorRef))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// AddDependency adds a dependency edge between two tasks
func (h *WorkflowHandler) AddDependency(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, err)
		return
	}

	var req struct {
		DependsOnID uuid.UUID `json:"depends_on_id" binding:"required"`
		ActorRef    string    `json:"actor_ref"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	dep, err := h.stages.AddTaskDependency(c.Request.Context(), id, req.DependsOnID, actorRef(c, req.ActorRef))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dep)
}
