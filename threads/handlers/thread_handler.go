package handlers

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	commentsErrors "github.com/kickback/api/comments/errors"
	"github.com/kickback/api/comments/models"
	"github.com/kickback/api/internal/middleware/authjwt"
	"github.com/kickback/api/internal/pkg/log"
	"github.com/kickback/api/internal/pkg/query"
	"github.com/kickback/api/threads/optimistic"
)

// Error codes specific to the optimistic thread surface
const (
	CodeNoPendingDeletion  = "NO_PENDING_DELETION"
	CodeDeletePending      = "DELETE_PENDING"
	CodeCommentNotCached   = "COMMENT_NOT_CACHED"
	CodeCommentUnconfirmed = "COMMENT_UNCONFIRMED"
	CodeActionFailed       = "ACTION_FAILED"
)

// ThreadHandler serves the per-user optimistic comment views
type ThreadHandler struct {
	sessions *optimistic.SessionStore
}

// NewThreadHandler creates a ThreadHandler backed by sessions
func NewThreadHandler(sessions *optimistic.SessionStore) *ThreadHandler {
	return &ThreadHandler{sessions: sessions}
}

type viewParams struct {
	Sort string `query:"sort"`
	// Cursor asks for the page after the last cached one
	Cursor string `query:"cursor"`
	Poll   bool   `query:"poll"`
}

type createBody struct {
	Content  string  `json:"content"`
	ParentID *string `json:"parentId"`
	ImageURL *string `json:"imageUrl"`
}

type editBody struct {
	Content string `json:"content"`
}

type reactionBody struct {
	Emoji string `json:"emoji"`
}

func (h *ThreadHandler) session(c *fiber.Ctx) (*optimistic.Session, bool) {
	user, ok := authjwt.UserFromCtx(c)
	if !ok {
		return nil, false
	}
	return h.sessions.Get(user), true
}

// handleError maps session errors to the JSON error envelope
func handleError(c *fiber.Ctx, err error) error {
	var serverErr *optimistic.ServerError
	switch {
	case errors.Is(err, optimistic.ErrNoPendingDeletion):
		return c.Status(http.StatusConflict).JSON(commentsErrors.ErrorResponse{Code: CodeNoPendingDeletion, Message: "No pending deletion to undo"})
	case errors.Is(err, optimistic.ErrDeletePending):
		return c.Status(http.StatusConflict).JSON(commentsErrors.ErrorResponse{Code: CodeDeletePending, Message: "Comment is already being deleted"})
	case errors.Is(err, optimistic.ErrCommentUnconfirmed):
		return c.Status(http.StatusConflict).JSON(commentsErrors.ErrorResponse{Code: CodeCommentUnconfirmed, Message: "Comment is still being saved"})
	case errors.Is(err, optimistic.ErrCommentNotCached):
		return c.Status(http.StatusNotFound).JSON(commentsErrors.ErrorResponse{Code: CodeCommentNotCached, Message: "Comment is not loaded in this thread"})
	case errors.Is(err, optimistic.ErrSessionClosed):
		return c.Status(http.StatusServiceUnavailable).JSON(commentsErrors.ErrorResponse{Code: commentsErrors.CodeServiceUnavailable, Message: "Session closed, retry"})
	case errors.As(err, &serverErr):
		return c.Status(statusForCode(serverErr.Code)).JSON(commentsErrors.ErrorResponse{Code: codeOrDefault(serverErr.Code), Message: serverErr.Message})
	}
	return commentsErrors.HandleServiceError(c, err)
}

func statusForCode(code string) int {
	switch code {
	case commentsErrors.CodeValidationFailed, commentsErrors.CodeInvalidCursor:
		return http.StatusBadRequest
	case commentsErrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case commentsErrors.CodePermissionDenied:
		return http.StatusForbidden
	case commentsErrors.CodeCommentNotFound:
		return http.StatusNotFound
	case commentsErrors.CodeDatabaseOperation, commentsErrors.CodeServiceUnavailable:
		return http.StatusServiceUnavailable
	}
	return http.StatusBadGateway
}

func codeOrDefault(code string) string {
	if code == "" {
		return CodeActionFailed
	}
	return code
}

func (h *ThreadHandler) view(c *fiber.Ctx, key optimistic.QueryKey, params viewParams) error {
	s, ok := h.session(c)
	if !ok {
		return commentsErrors.HandleUserContextError(c, "Invalid user context")
	}

	var (
		data optimistic.Data
		err  error
	)
	switch {
	case params.Cursor != "" && key.Paged():
		data, err = s.LoadMore(c.UserContext(), key)
	case params.Poll:
		var refetched bool
		data, refetched, err = s.Poll(c.UserContext(), key)
		if err == nil && !refetched {
			c.Set("X-Cache-Suppressed", "true")
		}
	default:
		data, err = s.View(c.UserContext(), key)
	}
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(optimistic.View(key, data))
}

// GetComments returns the cached paginated view of an event
func (h *ThreadHandler) GetComments(c *fiber.Ctx) error {
	var params viewParams
	if err := query.Decode(c, &params); err != nil {
		return commentsErrors.HandleValidationError(c, "Invalid query parameters", err.Error())
	}
	return h.view(c, optimistic.CommentsKey(c.Params("eventId"), models.ParseSortOrder(params.Sort)), params)
}

// GetFlat returns the cached flat view of an event
func (h *ThreadHandler) GetFlat(c *fiber.Ctx) error {
	var params viewParams
	if err := query.Decode(c, &params); err != nil {
		return commentsErrors.HandleValidationError(c, "Invalid query parameters", err.Error())
	}
	return h.view(c, optimistic.FlatKey(c.Params("eventId"), models.ParseSortOrder(params.Sort)), params)
}

// GetReplies returns the cached replies view of a comment
func (h *ThreadHandler) GetReplies(c *fiber.Ctx) error {
	var params viewParams
	if err := query.Decode(c, &params); err != nil {
		return commentsErrors.HandleValidationError(c, "Invalid query parameters", err.Error())
	}
	return h.view(c, optimistic.RepliesKey(c.Params("eventId"), c.Params("commentId")), params)
}

// CreateComment applies a comment optimistically and persists it in the background
func (h *ThreadHandler) CreateComment(c *fiber.Ctx) error {
	var body createBody
	if err := c.BodyParser(&body); err != nil {
		return commentsErrors.HandleValidationError(c, "Invalid request body")
	}
	s, ok := h.session(c)
	if !ok {
		return commentsErrors.HandleUserContextError(c, "Invalid user context")
	}

	m, err := s.CreateComment(c.UserContext(), models.CreateCommentRequest{
		Content:  body.Content,
		EventID:  c.Params("eventId"),
		ParentID: body.ParentID,
		ImageURL: body.ImageURL,
	})
	if err != nil {
		return handleError(c, err)
	}
	status := http.StatusAccepted
	if m.State() == optimistic.StateReconciled {
		status = http.StatusCreated
	}
	return c.Status(status).JSON(models.ActionResult{Success: true, Comment: m.Result()})
}

// CreateReply applies a reply optimistically; by default it waits for the server
func (h *ThreadHandler) CreateReply(c *fiber.Ctx) error {
	var body createBody
	if err := c.BodyParser(&body); err != nil {
		return commentsErrors.HandleValidationError(c, "Invalid request body")
	}
	s, ok := h.session(c)
	if !ok {
		return commentsErrors.HandleUserContextError(c, "Invalid user context")
	}

	parentID := c.Params("commentId")
	m, err := s.CreateReply(c.UserContext(), models.CreateCommentRequest{
		Content:  body.Content,
		EventID:  c.Params("eventId"),
		ParentID: &parentID,
		ImageURL: body.ImageURL,
	})
	if err != nil {
		return handleError(c, err)
	}
	status := http.StatusCreated
	if m.State() != optimistic.StateReconciled {
		status = http.StatusAccepted
	}
	return c.Status(status).JSON(models.ActionResult{Success: true, Comment: m.Result()})
}

// EditComment saves new content and refreshes every cached view
func (h *ThreadHandler) EditComment(c *fiber.Ctx) error {
	var body editBody
	if err := c.BodyParser(&body); err != nil {
		return commentsErrors.HandleValidationError(c, "Invalid request body")
	}
	s, ok := h.session(c)
	if !ok {
		return commentsErrors.HandleUserContextError(c, "Invalid user context")
	}

	edited, err := s.EditComment(c.UserContext(), c.Params("eventId"), models.EditCommentRequest{
		CommentID: c.Params("commentId"),
		Content:   body.Content,
	})
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(models.ActionResult{Success: true, Comment: edited})
}

// DeleteComment hides a comment now and deletes it after the undo grace period
func (h *ThreadHandler) DeleteComment(c *fiber.Ctx) error {
	s, ok := h.session(c)
	if !ok {
		return commentsErrors.HandleUserContextError(c, "Invalid user context")
	}

	commentID := c.Params("commentId")
	if _, err := s.DeleteComment(c.UserContext(), c.Params("eventId"), commentID); err != nil {
		return handleError(c, err)
	}
	return c.Status(http.StatusAccepted).JSON(fiber.Map{
		"success":   true,
		"commentId": commentID,
		"undoable":  true,
	})
}

// UndoDelete cancels a pending deletion
func (h *ThreadHandler) UndoDelete(c *fiber.Ctx) error {
	s, ok := h.session(c)
	if !ok {
		return commentsErrors.HandleUserContextError(c, "Invalid user context")
	}

	commentID := c.Params("commentId")
	if err := s.Undo(c.UserContext(), commentID); err != nil {
		log.WarnWithContext(c.UserContext(), "[Threads] Undo of %s failed: %v", commentID, err)
		return handleError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "undone": true})
}

// ToggleReaction flips the caller's emoji on a comment
func (h *ThreadHandler) ToggleReaction(c *fiber.Ctx) error {
	var body reactionBody
	if err := c.BodyParser(&body); err != nil {
		return commentsErrors.HandleValidationError(c, "Invalid request body")
	}
	s, ok := h.session(c)
	if !ok {
		return commentsErrors.HandleUserContextError(c, "Invalid user context")
	}

	_, reacted, err := s.ToggleReaction(c.UserContext(), c.Params("eventId"), c.Params("commentId"), body.Emoji)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(models.ActionResult{Success: true, Reacted: &reacted})
}

// Refresh refetches every cached view of an event
func (h *ThreadHandler) Refresh(c *fiber.Ctx) error {
	s, ok := h.session(c)
	if !ok {
		return commentsErrors.HandleUserContextError(c, "Invalid user context")
	}
	if err := s.Refresh(c.UserContext(), c.Params("eventId")); err != nil {
		return handleError(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}

// Notifications drains the caller's feedback toasts
func (h *ThreadHandler) Notifications(c *fiber.Ctx) error {
	s, ok := h.session(c)
	if !ok {
		return commentsErrors.HandleUserContextError(c, "Invalid user context")
	}
	return c.JSON(fiber.Map{"notifications": s.Notifications()})
}
