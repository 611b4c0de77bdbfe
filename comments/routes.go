package comments

import (
	"github.com/gofiber/fiber/v2"

	"github.com/kickback/api/comments/handlers"
)

// CommentsHandlers holds all the handlers this router needs.
type CommentsHandlers struct {
	CommentHandler *handlers.CommentHandler
}

// RegisterRoutes mounts the comment routes. auth guards every route; createLimiter
// additionally guards comment and reply creation.
func RegisterRoutes(app fiber.Router, h *CommentsHandlers, auth, createLimiter fiber.Handler) {
	group := app.Group("/comments", auth)

	group.Get("/events/:eventId", h.CommentHandler.ListComments)
	group.Get("/events/:eventId/flat", h.CommentHandler.ListFlat)
	group.Get("/events/:eventId/replies/:parentId", h.CommentHandler.ListReplies)

	group.Post("/", createLimiter, h.CommentHandler.CreateComment)
	group.Get("/:commentId", h.CommentHandler.GetComment)
	group.Put("/:commentId", h.CommentHandler.EditComment)
	group.Delete("/:commentId", h.CommentHandler.DeleteComment)
	group.Post("/:commentId/replies", createLimiter, h.CommentHandler.CreateReply)
	group.Post("/:commentId/reactions", h.CommentHandler.ToggleReaction)
}
