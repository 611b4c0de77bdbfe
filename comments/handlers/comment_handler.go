package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/kickback/api/comments/errors"
	"github.com/kickback/api/comments/models"
	"github.com/kickback/api/comments/services"
	"github.com/kickback/api/internal/middleware/authjwt"
	"github.com/kickback/api/internal/pkg/query"
)

// CommentHandler handles all comment-related HTTP requests
type CommentHandler struct {
	commentService services.CommentService
}

// NewCommentHandler creates a new CommentHandler with injected dependencies
func NewCommentHandler(commentService services.CommentService) *CommentHandler {
	return &CommentHandler{commentService: commentService}
}

type listParams struct {
	Sort   string `query:"sort"`
	Cursor string `query:"cursor"`
	Limit  int    `query:"limit"`
}

func (p listParams) toQuery() models.ListQuery {
	return models.ListQuery{Sort: models.ParseSortOrder(p.Sort), Cursor: p.Cursor, Limit: p.Limit}
}

// CreateComment handles top-level comment creation
func (h *CommentHandler) CreateComment(c *fiber.Ctx) error {
	var req models.CreateCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return errors.HandleValidationError(c, "Invalid request body")
	}

	user, ok := authjwt.UserFromCtx(c)
	if !ok {
		return errors.HandleUserContextError(c, "Invalid user context")
	}

	created, err := h.commentService.CreateComment(c.UserContext(), &req, &user)
	if err != nil {
		return errors.HandleServiceError(c, err)
	}
	return c.Status(http.StatusCreated).JSON(models.ActionResult{Success: true, Comment: created})
}

// CreateReply handles replies; the parent comes from the path
func (h *CommentHandler) CreateReply(c *fiber.Ctx) error {
	var req models.CreateCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return errors.HandleValidationError(c, "Invalid request body")
	}
	parentID := c.Params("commentId")
	req.ParentID = &parentID

	user, ok := authjwt.UserFromCtx(c)
	if !ok {
		return errors.HandleUserContextError(c, "Invalid user context")
	}

	created, err := h.commentService.CreateReply(c.UserContext(), &req, &user)
	if err != nil {
		return errors.HandleServiceError(c, err)
	}
	return c.Status(http.StatusCreated).JSON(models.ActionResult{Success: true, Comment: created})
}

// EditComment handles content edits
func (h *CommentHandler) EditComment(c *fiber.Ctx) error {
	var req models.EditCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return errors.HandleValidationError(c, "Invalid request body")
	}
	req.CommentID = c.Params("commentId")

	user, ok := authjwt.UserFromCtx(c)
	if !ok {
		return errors.HandleUserContextError(c, "Invalid user context")
	}

	edited, err := h.commentService.EditComment(c.UserContext(), &req, &user)
	if err != nil {
		return errors.HandleServiceError(c, err)
	}
	return c.JSON(models.ActionResult{Success: true, Comment: edited})
}

// DeleteComment handles comment deletion
func (h *CommentHandler) DeleteComment(c *fiber.Ctx) error {
	user, ok := authjwt.UserFromCtx(c)
	if !ok {
		return errors.HandleUserContextError(c, "Invalid user context")
	}

	if err := h.commentService.DeleteComment(c.UserContext(), c.Params("commentId"), &user); err != nil {
		return errors.HandleServiceError(c, err)
	}
	return c.JSON(models.ActionResult{Success: true})
}

// ToggleReaction flips the caller's emoji on a comment
func (h *CommentHandler) ToggleReaction(c *fiber.Ctx) error {
	var req models.ToggleReactionRequest
	if err := c.BodyParser(&req); err != nil {
		return errors.HandleValidationError(c, "Invalid request body")
	}
	req.CommentID = c.Params("commentId")

	user, ok := authjwt.UserFromCtx(c)
	if !ok {
		return errors.HandleUserContextError(c, "Invalid user context")
	}

	reacted, err := h.commentService.ToggleReaction(c.UserContext(), &req, &user)
	if err != nil {
		return errors.HandleServiceError(c, err)
	}
	return c.JSON(models.ActionResult{Success: true, Reacted: &reacted})
}

// GetComment returns a single comment
func (h *CommentHandler) GetComment(c *fiber.Ctx) error {
	comment, err := h.commentService.GetComment(c.UserContext(), c.Params("commentId"))
	if err != nil {
		return errors.HandleServiceError(c, err)
	}
	return c.JSON(comment)
}

// ListComments returns a page of an event's top-level comments
func (h *CommentHandler) ListComments(c *fiber.Ctx) error {
	var params listParams
	if err := query.Decode(c, &params); err != nil {
		return errors.HandleValidationError(c, "Invalid query parameters", err.Error())
	}

	page, err := h.commentService.ListComments(c.UserContext(), c.Params("eventId"), params.toQuery())
	if err != nil {
		return errors.HandleServiceError(c, err)
	}
	return c.JSON(page)
}

// ListFlat returns an event's top-level comments with the total count
func (h *CommentHandler) ListFlat(c *fiber.Ctx) error {
	var params listParams
	if err := query.Decode(c, &params); err != nil {
		return errors.HandleValidationError(c, "Invalid query parameters", err.Error())
	}

	flat, err := h.commentService.ListFlat(c.UserContext(), c.Params("eventId"), models.ParseSortOrder(params.Sort), params.Limit)
	if err != nil {
		return errors.HandleServiceError(c, err)
	}
	return c.JSON(flat)
}

// ListReplies returns a page of a comment's direct replies
func (h *CommentHandler) ListReplies(c *fiber.Ctx) error {
	var params listParams
	if err := query.Decode(c, &params); err != nil {
		return errors.HandleValidationError(c, "Invalid query parameters", err.Error())
	}

	page, err := h.commentService.ListReplies(c.UserContext(), c.Params("eventId"), c.Params("parentId"), params.toQuery())
	if err != nil {
		return errors.HandleServiceError(c, err)
	}
	return c.JSON(page)
}
