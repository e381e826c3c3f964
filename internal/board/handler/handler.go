// Package handler exposes the project, sprint and task routes.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/goitProjects/SBC-backend/internal/board/service"
	"github.com/goitProjects/SBC-backend/pkg/apperr"
	"github.com/goitProjects/SBC-backend/pkg/logger"
	"github.com/goitProjects/SBC-backend/pkg/middleware"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type projectURI struct {
	ProjectID string `uri:"projectId" binding:"required,objectid"`
}

type sprintURI struct {
	SprintID string `uri:"sprintId" binding:"required,objectid"`
}

type taskURI struct {
	TaskID string `uri:"taskId" binding:"required,objectid"`
}

type addProjectRequest struct {
	Title       string `json:"title" binding:"required,min=2,max=64"`
	Description string `json:"description" binding:"required,min=2,max=500"`
}

type contributorRequest struct {
	Email string `json:"email" binding:"required,min=3,max=254"`
}

type titleRequest struct {
	Title string `json:"title" binding:"required,min=2,max=64"`
}

type addSprintRequest struct {
	Title    string `json:"title" binding:"required"`
	EndDate  string `json:"endDate" binding:"required,isodate"`
	Duration int    `json:"duration" binding:"required,min=1"`
}

type addTaskRequest struct {
	Title        string  `json:"title" binding:"required,min=2,max=64"`
	HoursPlanned float64 `json:"hoursPlanned" binding:"required,min=1,max=8"`
}

type taskQuery struct {
	Search string `form:"search" binding:"omitempty,min=2,max=64"`
}

type hoursRequest struct {
	Date  string   `json:"date" binding:"required,isodate"`
	Hours *float64 `json:"hours" binding:"required,min=0,max=8"`
}

type Handler struct {
	svc *service.Service
}

func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Register mounts the routes on rg. guards run before every handler,
// Authorize first.
func (h *Handler) Register(rg *gin.RouterGroup, guards ...gin.HandlerFunc) {
	p := rg.Group("/project", guards...)
	p.POST("", h.AddProject)
	p.GET("", h.ListProjects)
	p.PATCH("/contributor/:projectId", h.AddContributor)
	p.PATCH("/title/:projectId", h.RenameProject)
	p.DELETE("/:projectId", h.DeleteProject)

	s := rg.Group("/sprint", guards...)
	s.POST("/:projectId", h.AddSprint)
	s.GET("/:projectId", h.ListSprints)
	s.PATCH("/title/:sprintId", h.RenameSprint)
	s.DELETE("/:sprintId", h.DeleteSprint)

	t := rg.Group("/task", guards...)
	t.POST("/:sprintId", h.AddTask)
	t.GET("/:sprintId", h.ListTasks)
	t.PATCH("/:taskId", h.SetWastedHours)
	t.PATCH("/changeStatus/:taskId", h.ToggleStatus)
	t.DELETE("/:taskId", h.DeleteTask)
}

func fail(c *gin.Context, err error) {
	if apperr.KindOf(err) == apperr.KindInternal {
		logger.Errorf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	middleware.Abort(c, err)
}

// bindID binds the path parameter struct and returns its ObjectId.
func bindID[T projectURI | sprintURI | taskURI](c *gin.Context) (primitive.ObjectID, bool) {
	var uri T
	if err := c.ShouldBindUri(&uri); err != nil {
		middleware.AbortInvalid(c, err)
		return primitive.NilObjectID, false
	}
	var hex string
	switch v := any(uri).(type) {
	case projectURI:
		hex = v.ProjectID
	case sprintURI:
		hex = v.SprintID
	case taskURI:
		hex = v.TaskID
	}
	id, _ := primitive.ObjectIDFromHex(hex)
	return id, true
}

func bindBody(c *gin.Context, v interface{}) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		middleware.AbortInvalid(c, err)
		return false
	}
	return true
}

func (h *Handler) AddProject(c *gin.Context) {
	var req addProjectRequest
	if !bindBody(c, &req) {
		return
	}
	p, err := h.svc.AddProject(c.Request.Context(), middleware.CurrentUser(c), req.Title, req.Description)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"title":       p.Title,
		"description": p.Description,
		"members":     p.Members,
		"id":          p.ID,
	})
}

func (h *Handler) ListProjects(c *gin.Context) {
	projects, err := h.svc.ListProjects(c.Request.Context(), middleware.CurrentUser(c))
	if err != nil {
		fail(c, err)
		return
	}
	if len(projects) == 0 {
		c.JSON(http.StatusOK, gin.H{"message": "No projects found"})
		return
	}
	c.JSON(http.StatusOK, projects)
}

func (h *Handler) AddContributor(c *gin.Context) {
	id, ok := bindID[projectURI](c)
	if !ok {
		return
	}
	var req contributorRequest
	if !bindBody(c, &req) {
		return
	}
	members, err := h.svc.AddContributor(c.Request.Context(), middleware.CurrentUser(c), id, req.Email)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"newMembers": members})
}

func (h *Handler) RenameProject(c *gin.Context) {
	id, ok := bindID[projectURI](c)
	if !ok {
		return
	}
	var req titleRequest
	if !bindBody(c, &req) {
		return
	}
	title, err := h.svc.RenameProject(c.Request.Context(), middleware.CurrentUser(c), id, req.Title)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"newTitle": title})
}

func (h *Handler) DeleteProject(c *gin.Context) {
	id, ok := bindID[projectURI](c)
	if !ok {
		return
	}
	if err := h.svc.DeleteProject(c.Request.Context(), middleware.CurrentUser(c), id); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) AddSprint(c *gin.Context) {
	id, ok := bindID[projectURI](c)
	if !ok {
		return
	}
	var req addSprintRequest
	if !bindBody(c, &req) {
		return
	}
	sp, err := h.svc.AddSprint(c.Request.Context(), middleware.CurrentUser(c), id, req.Title, req.EndDate, req.Duration)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"title":     sp.Title,
		"startDate": sp.StartDate,
		"endDate":   sp.EndDate,
		"duration":  sp.Duration,
		"id":        sp.ID,
	})
}

func (h *Handler) ListSprints(c *gin.Context) {
	id, ok := bindID[projectURI](c)
	if !ok {
		return
	}
	sprints, err := h.svc.ListSprints(c.Request.Context(), middleware.CurrentUser(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	if len(sprints) == 0 {
		c.JSON(http.StatusOK, gin.H{"message": "No sprints found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"sprints": sprints})
}

func (h *Handler) RenameSprint(c *gin.Context) {
	id, ok := bindID[sprintURI](c)
	if !ok {
		return
	}
	var req titleRequest
	if !bindBody(c, &req) {
		return
	}
	title, err := h.svc.RenameSprint(c.Request.Context(), middleware.CurrentUser(c), id, req.Title)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"newTitle": title})
}

func (h *Handler) DeleteSprint(c *gin.Context) {
	id, ok := bindID[sprintURI](c)
	if !ok {
		return
	}
	if err := h.svc.DeleteSprint(c.Request.Context(), middleware.CurrentUser(c), id); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) AddTask(c *gin.Context) {
	id, ok := bindID[sprintURI](c)
	if !ok {
		return
	}
	var req addTaskRequest
	if !bindBody(c, &req) {
		return
	}
	t, err := h.svc.AddTask(c.Request.Context(), middleware.CurrentUser(c), id, req.Title, req.HoursPlanned)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"title":             t.Title,
		"hoursPlanned":      t.HoursPlanned,
		"hoursWasted":       t.HoursWasted,
		"id":                t.ID,
		"hoursWastedPerDay": t.HoursWastedPerDay,
	})
}

func (h *Handler) ListTasks(c *gin.Context) {
	id, ok := bindID[sprintURI](c)
	if !ok {
		return
	}
	var q taskQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		middleware.AbortInvalid(c, err)
		return
	}
	tasks, err := h.svc.ListTasks(c.Request.Context(), middleware.CurrentUser(c), id, q.Search)
	if err != nil {
		fail(c, err)
		return
	}
	if len(tasks) == 0 {
		c.JSON(http.StatusOK, gin.H{"message": "No tasks found"})
		return
	}
	c.JSON(http.StatusOK, tasks)
}

func (h *Handler) SetWastedHours(c *gin.Context) {
	id, ok := bindID[taskURI](c)
	if !ok {
		return
	}
	var req hoursRequest
	if !bindBody(c, &req) {
		return
	}
	ch, err := h.svc.SetWastedHours(c.Request.Context(), middleware.CurrentUser(c), id, req.Date, *req.Hours)
	if err != nil {
		fail(c, err)
		return
	}
	if ch.Unchanged {
		c.JSON(http.StatusOK, gin.H{"message": "You can't set the same hours"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"day": ch.Day, "newWastedHours": ch.NewWastedHours})
}

func (h *Handler) ToggleStatus(c *gin.Context) {
	id, ok := bindID[taskURI](c)
	if !ok {
		return
	}
	status, err := h.svc.ToggleStatus(c.Request.Context(), middleware.CurrentUser(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": status})
}

func (h *Handler) DeleteTask(c *gin.Context) {
	id, ok := bindID[taskURI](c)
	if !ok {
		return
	}
	if err := h.svc.DeleteTask(c.Request.Context(), middleware.CurrentUser(c), id); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
