// Package server exposes the board repository over a JSON REST API under /api.
package server

import (
	"context"
	"errors"
	"io"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/h0rv/kanban/internal/domain"
	"github.com/h0rv/kanban/internal/sqlite"
	"github.com/sirupsen/logrus"
)

// Repository is the storage behind the API.
type Repository interface {
	ListBoards(ctx context.Context) ([]domain.Board, error)
	GetBoard(ctx context.Context, boardID string) (domain.BoardState, error)
	CreateBoard(ctx context.Context, req domain.CreateBoardRequest) (domain.Board, error)
	UpdateBoard(ctx context.Context, boardID string, req domain.UpdateBoardRequest) (domain.Board, error)
	DeleteBoard(ctx context.Context, boardID string) error

	GetList(ctx context.Context, listID string) (domain.List, error)
	CreateList(ctx context.Context, req domain.CreateListRequest) (domain.List, error)
	UpdateList(ctx context.Context, listID string, req domain.UpdateListRequest) (domain.List, error)
	DeleteList(ctx context.Context, listID string) error
	ReorderLists(ctx context.Context, order []domain.ListPosition) error

	GetCard(ctx context.Context, cardID string) (domain.Card, error)
	CreateCard(ctx context.Context, req domain.CreateCardRequest) (domain.Card, error)
	UpdateCard(ctx context.Context, cardID string, patch domain.CardPatch) (domain.Card, error)
	DeleteCard(ctx context.Context, cardID string) error
	MoveCard(ctx context.Context, cardID string, move domain.CardMove) (domain.Card, error)
}

// Options configures the HTTP server.
type Options struct {
	AllowOrigins string    // CORS origins, "*" if empty
	AccessLog    io.Writer // Request log destination; nil disables it
}

// FiberServer is the persistence service.
type FiberServer struct {
	*fiber.App

	repo Repository
	log  logrus.FieldLogger
}

// New creates the server with middleware and routes registered.
func New(repo Repository, opts Options, log logrus.FieldLogger) *FiberServer {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if opts.AllowOrigins == "" {
		opts.AllowOrigins = "*"
	}

	s := &FiberServer{
		App: fiber.New(fiber.Config{
			ServerHeader:          "kanban",
			AppName:               "kanban",
			DisableStartupMessage: true,
			ErrorHandler:          errorHandler(log),
		}),
		repo: repo,
		log:  log,
	}

	s.App.Use(recover.New())
	s.App.Use(cors.New(cors.Config{
		AllowOrigins: opts.AllowOrigins,
		AllowHeaders: "Origin, Content-Type, Accept",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		MaxAge:       3600,
	}))
	if opts.AccessLog != nil {
		s.App.Use(logger.New(logger.Config{Output: opts.AccessLog}))
	}

	s.RegisterFiberRoutes()
	return s
}

// errorHandler renders every error as {"detail": "..."}. Repository errors
// map to 404 and 400; anything unrecognised is a 500.
func errorHandler(log logrus.FieldLogger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		detail := "internal server error"

		var fe *fiber.Error
		switch {
		case errors.As(err, &fe):
			code, detail = fe.Code, fe.Message
		case errors.Is(err, sqlite.ErrNotFound):
			code, detail = fiber.StatusNotFound, err.Error()
		case errors.Is(err, sqlite.ErrInvalid):
			code, detail = fiber.StatusBadRequest, err.Error()
		}

		if code >= fiber.StatusInternalServerError {
			log.WithError(err).WithFields(logrus.Fields{
				"method": c.Method(),
				"path":   c.Path(),
			}).Error("request failed")
		}
		return c.Status(code).JSON(domain.ErrorResponse{Detail: detail})
	}
}
