package handler

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"

	"spaceapps-board/internal/domain"
	"spaceapps-board/internal/usecase"
)

const defaultRequestTimeout = 5 * time.Second

// RecordService is the use-case surface the HTTP layer drives.
type RecordService interface {
	List(ctx context.Context) ([]domain.Record, error)
	Create(ctx context.Context, in usecase.CreateInput) (domain.Record, error)
	Get(ctx context.Context, id string) (domain.Record, error)
	Delete(ctx context.Context, id string) error
}

// Handler serves the record API and the web client over HTTP.
type Handler struct {
	svc            RecordService
	log            *slog.Logger
	requestTimeout time.Duration
	allowOrigins   string
	accessLog      io.Writer
	static         fs.FS
	now            func() time.Time
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the logger used for request failures. nil keeps slog.Default.
func WithLogger(log *slog.Logger) Option {
	return func(h *Handler) {
		if log != nil {
			h.log = log
		}
	}
}

// WithRequestTimeout bounds each use-case call. Non-positive values are ignored.
func WithRequestTimeout(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.requestTimeout = d
		}
	}
}

// WithAllowOrigins sets the CORS allow list, comma separated.
func WithAllowOrigins(origins string) Option {
	return func(h *Handler) {
		if o := strings.TrimSpace(origins); o != "" {
			h.allowOrigins = o
		}
	}
}

// WithAccessLog enables per-request access logging to w.
func WithAccessLog(w io.Writer) Option {
	return func(h *Handler) {
		h.accessLog = w
	}
}

// WithStatic serves the web client from fsys at the root path.
func WithStatic(fsys fs.FS) Option {
	return func(h *Handler) {
		h.static = fsys
	}
}

// WithClock overrides the time source for the health timestamp.
func WithClock(now func() time.Time) Option {
	return func(h *Handler) {
		if now != nil {
			h.now = now
		}
	}
}

// NewHandler validates dependencies and applies options over the defaults.
func NewHandler(svc RecordService, opts ...Option) (*Handler, error) {
	if svc == nil {
		return nil, errors.New("handler: record service must not be nil")
	}
	h := &Handler{
		svc:            svc,
		log:            slog.Default(),
		requestTimeout: defaultRequestTimeout,
		allowOrigins:   "*",
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// App builds the fiber application. Route order matters: API routes, then the
// static client, then the catch-all 404. Errors escaping any handler end up in
// errorHandler.
func (h *Handler) App() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "spaceapps-board",
		DisableStartupMessage: true,
		ErrorHandler:          h.errorHandler,
	})

	app.Use(recover.New())
	app.Use(h.correlationID)
	if h.accessLog != nil {
		app.Use(logger.New(logger.Config{
			Output: h.accessLog,
			Format: "${time} ${locals:" + localsCorrID + "} ${status} - ${latency} ${method} ${path}\n",
		}))
	}
	app.Use(cors.New(cors.Config{AllowOrigins: h.allowOrigins}))

	app.Get("/health", h.health)

	api := app.Group("/api")
	api.Get("/message", h.probe)
	api.Get("/data", h.listRecords)
	api.Post("/data", h.createRecord)
	api.Get("/data/:id", h.getRecord)
	api.Delete("/data/:id", h.deleteRecord)

	if h.static != nil {
		app.Use("/", filesystem.New(filesystem.Config{
			Root:  http.FS(h.static),
			Index: "index.html",
		}))
	}

	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(errorResponse{Error: msgRouteNotFound})
	})
	return app
}

func (h *Handler) correlationID(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Get(headerCorrID))
	if id == "" {
		id = uuid.NewString()
	}
	c.Locals(localsCorrID, id)
	c.Set(headerCorrID, id)
	return c.Next()
}

func (h *Handler) health(c *fiber.Ctx) error {
	return c.JSON(healthResponse{
		Status:    healthStatus,
		Message:   healthMessage,
		Timestamp: h.now().UTC().Format(timestampISO),
	})
}

func (h *Handler) probe(c *fiber.Ctx) error {
	return c.JSON(messageResponse{Message: probeMessage})
}

func (h *Handler) listRecords(c *fiber.Ctx) error {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	recs, err := h.svc.List(ctx)
	if err != nil {
		return h.fail(c, err, msgFetchFailed)
	}
	return c.JSON(toRecordResponses(recs))
}

func (h *Handler) createRecord(c *fiber.Ctx) error {
	req, err := decodeCreateRequest(c.Body())
	if errors.Is(err, errMissingFields) {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: msgFieldsRequired})
	}
	if err != nil {
		h.log.Info("rejected create request", "correlation_id", correlationIDOf(c), "err", err)
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: msgInvalidBody})
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	rec, err := h.svc.Create(ctx, usecase.CreateInput{Name: req.Name, Message: req.Message})
	if err != nil {
		return h.fail(c, err, msgSaveFailed)
	}
	return c.Status(fiber.StatusCreated).JSON(toRecordResponse(rec))
}

func (h *Handler) getRecord(c *fiber.Ctx) error {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	rec, err := h.svc.Get(ctx, c.Params("id"))
	if err != nil {
		return h.fail(c, err, msgFetchFailed)
	}
	return c.JSON(toRecordResponse(rec))
}

func (h *Handler) deleteRecord(c *fiber.Ctx) error {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	if err := h.svc.Delete(ctx, c.Params("id")); err != nil {
		return h.fail(c, err, msgDeleteFailed)
	}
	return c.JSON(messageResponse{Message: msgDeleted})
}

func (h *Handler) requestContext(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.UserContext(), h.requestTimeout)
}

func correlationIDOf(c *fiber.Ctx) string {
	id, _ := c.Locals(localsCorrID).(string)
	return id
}
