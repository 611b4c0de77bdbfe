package validation

import (
	"net/url"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/gofrs/uuid"

	commentsErrors "github.com/kickback/api/comments/errors"
	"github.com/kickback/api/comments/models"
	"github.com/kickback/api/internal/pkg/content"
)

const (
	MaxContentLength = 2000
	MaxEmojiBytes    = 16
	MaxImageURLBytes = 2048
)

// IsValidUUID reports whether s parses as a UUID
func IsValidUUID(s string) bool {
	_, err := uuid.FromString(s)
	return err == nil
}

// NormalizeCreateRequest validates a create request and sanitises its content in place
func NormalizeCreateRequest(req *models.CreateCommentRequest) error {
	if req == nil {
		return commentsErrors.NewValidationError("request is required")
	}
	if !IsValidUUID(req.EventID) {
		return commentsErrors.NewValidationError("eventId must be a valid UUID")
	}
	if req.ParentID != nil {
		if *req.ParentID == "" {
			req.ParentID = nil
		} else if !IsValidUUID(*req.ParentID) {
			return commentsErrors.NewValidationError("parentId, if provided, must be a valid UUID")
		}
	}
	if req.ImageURL != nil {
		if strings.TrimSpace(*req.ImageURL) == "" {
			req.ImageURL = nil
		} else if err := validateImageURL(*req.ImageURL); err != nil {
			return err
		}
	}

	text, err := normalizeContent(req.Content)
	if err != nil {
		return err
	}
	req.Content = text
	return nil
}

// NormalizeEditRequest validates an edit request and sanitises its content in place
func NormalizeEditRequest(req *models.EditCommentRequest) error {
	if req == nil {
		return commentsErrors.NewValidationError("request is required")
	}
	if !IsValidUUID(req.CommentID) {
		return commentsErrors.NewValidationError("commentId must be a valid UUID")
	}
	text, err := normalizeContent(req.Content)
	if err != nil {
		return err
	}
	req.Content = text
	return nil
}

// ValidateReactionRequest checks the comment id and that emoji is a short symbol
func ValidateReactionRequest(req *models.ToggleReactionRequest) error {
	if req == nil {
		return commentsErrors.NewValidationError("request is required")
	}
	if !IsValidUUID(req.CommentID) {
		return commentsErrors.NewValidationError("commentId must be a valid UUID")
	}
	return ValidateEmoji(req.Emoji)
}

// ValidateEmoji accepts 1-16 bytes of non-space, non-letter runes
func ValidateEmoji(emoji string) error {
	if emoji == "" || len(emoji) > MaxEmojiBytes || !utf8.ValidString(emoji) {
		return commentsErrors.NewValidationError("emoji must be between 1 and 16 bytes")
	}
	for _, r := range emoji {
		if unicode.IsSpace(r) || unicode.IsLetter(r) || unicode.IsDigit(r) {
			return commentsErrors.NewValidationError("emoji must not contain letters, digits or spaces")
		}
	}
	return nil
}

func normalizeContent(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", commentsErrors.NewValidationError("content is required")
	}
	text := content.Sanitize(raw)
	if text == "" {
		return "", commentsErrors.NewValidationError("content cannot be empty after removing markup")
	}
	if utf8.RuneCountInString(text) > MaxContentLength {
		return "", commentsErrors.NewValidationError("content must be at most 2000 characters")
	}
	return text, nil
}

func validateImageURL(raw string) error {
	if len(raw) > MaxImageURLBytes {
		return commentsErrors.NewValidationError("imageUrl is too long")
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return commentsErrors.NewValidationError("imageUrl must be an http(s) URL")
	}
	return nil
}
