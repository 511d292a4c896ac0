package validation

import "github.com/hyperengineering/quill/internal/types"

// Maximum lengths in runes.
const (
	MaxContentLength = 20000
	MaxNameLength    = 80
	MaxMessageLength = 2000
)

// ValidateTitleRequest validates the body of a title generation request.
func ValidateTitleRequest(req types.TitleRequest) []ValidationError {
	var c Collector
	c.ValidateText("content", req.Content, MaxContentLength)
	return c.Errors()
}

// ValidateVisitorRequest validates a visitor name and message before moderation.
func ValidateVisitorRequest(req types.VisitorRequest) []ValidationError {
	var c Collector
	c.ValidateText("name", req.Name, MaxNameLength)
	c.ValidateText("message", req.Message, MaxMessageLength)
	return c.Errors()
}
