package controller

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"tasklist/internal/apperr"
	"tasklist/internal/hub"
	"tasklist/internal/models"
	"tasklist/internal/schema"
	"tasklist/internal/service"
	"tasklist/pkg/logger"
)

// Procedure names of the RPC surface.
const (
	ProcList      = "tasks.list"
	ProcCreate    = "tasks.create"
	ProcUpdate    = "tasks.update"
	ProcDelete    = "tasks.delete"
	ProcSubscribe = "tasks.subscribe"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) PingContext(ctx context.Context) error { return f(ctx) }

// Tasks serves the tasks.* procedures.
type Tasks struct {
	svc      *service.TaskService
	hub      *hub.Hub
	upgrader websocket.Upgrader
	ready    map[string]Pinger
}

// NewTasks builds the controller. checkOrigin guards the subscription socket.
func NewTasks(svc *service.TaskService, h *hub.Hub, checkOrigin func(r *http.Request) bool, ready map[string]Pinger) *Tasks {
	return &Tasks{
		svc:      svc,
		hub:      h,
		upgrader: websocket.Upgrader{CheckOrigin: checkOrigin},
		ready:    ready,
	}
}

// List returns the authoritative list as JSON (cache-first as raw bytes).
func (t *Tasks) List(c *gin.Context) {
	ctx := c.Request.Context()
	b, err := t.svc.ListJSON(ctx)
	if err != nil {
		if ctx.Err() != nil || isContextErr(err) {
			return
		}
		t.fail(c, ProcList, err)
		return
	}
	c.Data(http.StatusOK, "application/json", b)
}

// Create handles tasks.create.
func (t *Tasks) Create(c *gin.Context) {
	var in models.CreateTaskInput
	if !bind(c, &in) {
		return
	}
	if err := t.svc.Create(c.Request.Context(), in); err != nil {
		t.fail(c, ProcCreate, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Update handles tasks.update. A pending marker in the body is ignored.
func (t *Tasks) Update(c *gin.Context) {
	var in models.UpdateTaskInput
	if !bind(c, &in) {
		return
	}
	if err := t.svc.Update(c.Request.Context(), in); err != nil {
		t.fail(c, ProcUpdate, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Delete handles tasks.delete.
func (t *Tasks) Delete(c *gin.Context) {
	var in models.DeleteTaskInput
	if !bind(c, &in) {
		return
	}
	if err := t.svc.Delete(c.Request.Context(), in); err != nil {
		t.fail(c, ProcDelete, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Subscribe upgrades to a websocket that receives revalidation events.
func (t *Tasks) Subscribe(c *gin.Context) {
	ctx := c.Request.Context()
	conn, err := t.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Debug(ctx, "Websocket upgrade failed", "error", err)
		return
	}
	// The request context ends with the handler; the client lives until it disconnects.
	client, err := t.hub.Attach(context.WithoutCancel(ctx), conn)
	if err != nil {
		logger.Debug(ctx, "Subscriber rejected", "error", err)
		return
	}
	logger.Info(ctx, "Subscriber attached", "client_id", client.ID)
}

// Health returns 200 if the process is alive. Used by load balancers.
func (t *Tasks) Health(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}

// Ready returns 200 if every dependency answers a ping.
func (t *Tasks) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	for name, p := range t.ready {
		if p == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": name + " unavailable"})
			return
		}
		if err := p.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": name + " ping failed"})
			return
		}
	}
	c.String(http.StatusOK, "OK")
}

func bind(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		c.JSON(http.StatusBadRequest, apperr.Envelope{Error: apperr.Wire{
			Code:    apperr.CodeValidation,
			Message: "invalid request body",
			Fields:  map[string]string{"": schema.MsgInvalid},
		}})
		return false
	}
	return true
}

func (t *Tasks) fail(c *gin.Context, proc string, err error) {
	ctx := c.Request.Context()
	status := http.StatusInternalServerError
	switch {
	case apperr.IsValidation(err):
		status = http.StatusBadRequest
	case apperr.IsNotFound(err):
		status = http.StatusNotFound
	default:
		logger.Error(ctx, "Procedure failed", "procedure", proc, "error", err)
	}
	c.JSON(status, apperr.Envelope{Error: apperr.ToWire(err)})
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
