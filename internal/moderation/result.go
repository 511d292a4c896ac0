package moderation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/hyperengineering/quill/internal/validation"
)

// Reason classifies a moderation decision.
type Reason string

const (
	ReasonToxicity  Reason = "toxicity"
	ReasonOffTopic  Reason = "off_topic"
	ReasonInjection Reason = "injection"
	ReasonApproved  Reason = "approved"
)

// Sentiment is the tone the model assigns to a message.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

var (
	validReasons    = []string{string(ReasonToxicity), string(ReasonOffTopic), string(ReasonInjection), string(ReasonApproved)}
	validSentiments = []string{string(SentimentPositive), string(SentimentNeutral), string(SentimentNegative)}
)

// Result is a moderation decision.
type Result struct {
	Allowed   bool      `json:"allowed"`
	Reason    Reason    `json:"reason"`
	Sentiment Sentiment `json:"sentiment"`
}

// FailClosed is returned for every failure or ambiguity.
var FailClosed = Result{
	Allowed:   false,
	Reason:    ReasonOffTopic,
	Sentiment: SentimentNeutral,
}

var (
	// ErrNoJSONObject is returned when the reply contains no {...} span.
	ErrNoJSONObject = errors.New("no JSON object in reply")
	// ErrSchema is returned when the decoded object does not match the schema.
	ErrSchema = errors.New("reply does not match moderation schema")
)

// rawResult keeps each field raw so type mismatches are detected per field.
type rawResult struct {
	Allowed   json.RawMessage `json:"allowed"`
	Reason    json.RawMessage `json:"reason"`
	Sentiment json.RawMessage `json:"sentiment"`
}

// Parse extracts and strictly validates a moderation result from model output.
// The span from the first '{' to the last '}' is decoded; unknown fields are ignored.
func Parse(content string) (Result, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end < start {
		return FailClosed, ErrNoJSONObject
	}

	var raw rawResult
	if err := json.Unmarshal([]byte(content[start:end+1]), &raw); err != nil {
		return FailClosed, fmt.Errorf("decode reply: %w", err)
	}

	var c validation.Collector
	allowed, err := decodeBool(raw.Allowed)
	if err != nil {
		c.Add(&validation.ValidationError{Field: "allowed", Message: err.Error()})
	}
	reason, verr := decodeEnum("reason", raw.Reason, validReasons)
	c.Add(verr)
	sentiment, verr := decodeEnum("sentiment", raw.Sentiment, validSentiments)
	c.Add(verr)

	if c.HasErrors() {
		return FailClosed, fmt.Errorf("%w: %s", ErrSchema, describe(c.Errors()))
	}

	return Result{
		Allowed:   allowed,
		Reason:    Reason(reason),
		Sentiment: Sentiment(sentiment),
	}, nil
}

// decodeBool accepts only a JSON boolean literal.
func decodeBool(raw json.RawMessage) (bool, error) {
	switch string(bytes.TrimSpace(raw)) {
	case "true":
		return true, nil
	case "false":
		return false, nil
	case "":
		return false, errors.New("is required")
	default:
		return false, errors.New("must be a boolean")
	}
}

// decodeEnum accepts only a JSON string that exactly matches one of allowed.
func decodeEnum(field string, raw json.RawMessage, allowed []string) (string, *validation.ValidationError) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return "", &validation.ValidationError{Field: field, Message: "is required"}
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", &validation.ValidationError{Field: field, Message: "must be a string"}
	}
	if verr := validation.ValidateEnum(field, s, allowed); verr != nil {
		return "", verr
	}
	return s, nil
}

func describe(errs []validation.ValidationError) string {
	parts := make([]string, len(errs))
	for i, e := range errs {
		parts[i] = e.Field + " " + e.Message
	}
	return strings.Join(parts, "; ")
}
