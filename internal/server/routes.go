package server

import (
	"github.com/gofiber/fiber/v2"
	"github.com/h0rv/kanban/internal/domain"
)

// RegisterFiberRoutes mounts the API under /api.
func (s *FiberServer) RegisterFiberRoutes() {
	api := s.App.Group("/api")
	api.Get("/health", s.healthHandler)

	api.Get("/boards", s.listBoards)
	api.Post("/boards", s.createBoard)
	api.Get("/boards/:id", s.getBoard)
	api.Put("/boards/:id", s.updateBoard)
	api.Delete("/boards/:id", s.deleteBoard)

	// Registered before /lists/:id so "reorder" is not taken as an id
	api.Put("/lists/reorder", s.reorderLists)
	api.Post("/lists", s.createList)
	api.Get("/lists/:id", s.getList)
	api.Put("/lists/:id", s.updateList)
	api.Delete("/lists/:id", s.deleteList)

	api.Post("/cards", s.createCard)
	api.Get("/cards/:id", s.getCard)
	api.Put("/cards/:id", s.updateCard)
	api.Put("/cards/:id/move", s.moveCard)
	api.Delete("/cards/:id", s.deleteCard)
}

func (s *FiberServer) healthHandler(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *FiberServer) listBoards(c *fiber.Ctx) error {
	boards, err := s.repo.ListBoards(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(boards)
}

func (s *FiberServer) createBoard(c *fiber.Ctx) error {
	var req domain.CreateBoardRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	board, err := s.repo.CreateBoard(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(board)
}

func (s *FiberServer) getBoard(c *fiber.Ctx) error {
	state, err := s.repo.GetBoard(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(state)
}

func (s *FiberServer) updateBoard(c *fiber.Ctx) error {
	var req domain.UpdateBoardRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	board, err := s.repo.UpdateBoard(c.UserContext(), c.Params("id"), req)
	if err != nil {
		return err
	}
	return c.JSON(board)
}

func (s *FiberServer) deleteBoard(c *fiber.Ctx) error {
	if err := s.repo.DeleteBoard(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Board deleted successfully"})
}

func (s *FiberServer) createList(c *fiber.Ctx) error {
	var req domain.CreateListRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	list, err := s.repo.CreateList(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(list)
}

func (s *FiberServer) getList(c *fiber.Ctx) error {
	list, err := s.repo.GetList(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(list)
}

func (s *FiberServer) updateList(c *fiber.Ctx) error {
	var req domain.UpdateListRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	list, err := s.repo.UpdateList(c.UserContext(), c.Params("id"), req)
	if err != nil {
		return err
	}
	return c.JSON(list)
}

func (s *FiberServer) deleteList(c *fiber.Ctx) error {
	if err := s.repo.DeleteList(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "List deleted successfully"})
}

func (s *FiberServer) reorderLists(c *fiber.Ctx) error {
	var req domain.ReorderListsRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := s.repo.ReorderLists(c.UserContext(), req.Lists); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Lists reordered successfully"})
}

func (s *FiberServer) createCard(c *fiber.Ctx) error {
	var req domain.CreateCardRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	card, err := s.repo.CreateCard(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(card)
}

func (s *FiberServer) getCard(c *fiber.Ctx) error {
	card, err := s.repo.GetCard(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(card)
}

func (s *FiberServer) updateCard(c *fiber.Ctx) error {
	var patch domain.CardPatch
	if err := parseBody(c, &patch); err != nil {
		return err
	}
	card, err := s.repo.UpdateCard(c.UserContext(), c.Params("id"), patch)
	if err != nil {
		return err
	}
	return c.JSON(card)
}

func (s *FiberServer) moveCard(c *fiber.Ctx) error {
	var move domain.CardMove
	if err := parseBody(c, &move); err != nil {
		return err
	}
	if move.ListID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "listId is required")
	}
	card, err := s.repo.MoveCard(c.UserContext(), c.Params("id"), move)
	if err != nil {
		return err
	}
	return c.JSON(card)
}

func (s *FiberServer) deleteCard(c *fiber.Ctx) error {
	if err := s.repo.DeleteCard(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Card deleted successfully"})
}

func parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body: "+err.Error())
	}
	return nil
}
