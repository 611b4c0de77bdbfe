package threads

import (
	"github.com/gofiber/fiber/v2"

	"github.com/kickback/api/threads/handlers"
)

// ThreadsHandlers holds all the handlers this router needs.
type ThreadsHandlers struct {
	ThreadHandler *handlers.ThreadHandler
}

// RegisterRoutes mounts the optimistic thread routes. auth guards every route;
// createLimiter additionally guards comment and reply creation.
func RegisterRoutes(app fiber.Router, h *ThreadsHandlers, auth, createLimiter fiber.Handler) {
	group := app.Group("/threads", auth)

	group.Get("/notifications", h.ThreadHandler.Notifications)

	group.Get("/:eventId/comments", h.ThreadHandler.GetComments)
	group.Get("/:eventId/flat", h.ThreadHandler.GetFlat)
	group.Get("/:eventId/comments/:commentId/replies", h.ThreadHandler.GetReplies)
	group.Post("/:eventId/refresh", h.ThreadHandler.Refresh)

	group.Post("/:eventId/comments", createLimiter, h.ThreadHandler.CreateComment)
	group.Post("/:eventId/comments/:commentId/replies", createLimiter, h.ThreadHandler.CreateReply)
	group.Put("/:eventId/comments/:commentId", h.ThreadHandler.EditComment)
	group.Delete("/:eventId/comments/:commentId", h.ThreadHandler.DeleteComment)
	group.Post("/:eventId/comments/:commentId/undo", h.ThreadHandler.UndoDelete)
	group.Post("/:eventId/comments/:commentId/reactions", h.ThreadHandler.ToggleReaction)
}
