package service

import (
	"strings"
	"unicode/utf8"

	apperrors "github.com/reynard/nlweb/internal/errors"
	"github.com/reynard/nlweb/pkg/protocol"
)

// ValidateRequest checks a suggestion request against the protocol limits.
// A zero MaxSuggestions selects the default.
func ValidateRequest(req protocol.SuggestionRequest) error {
	switch n := utf8.RuneCountInString(req.Query); {
	case strings.TrimSpace(req.Query) == "":
		return invalidRequest("query must not be empty", "query")
	case n > protocol.MaxQueryLength:
		return invalidRequest("query exceeds 1000 characters", "query").WithContext("length", n)
	}

	if req.MaxSuggestions < 0 || req.MaxSuggestions > protocol.MaxMaxSuggestions {
		return invalidRequest("max_suggestions must be between 1 and 20", "max_suggestions").
			WithContext("value", req.MaxSuggestions)
	}
	if req.MinScore < 0 || req.MinScore > protocol.MaxMinScore {
		return invalidRequest("min_score must be between 0 and 100", "min_score").
			WithContext("value", req.MinScore)
	}
	return nil
}

func invalidRequest(message, field string) *apperrors.AppError {
	return apperrors.User(apperrors.CodeInvalidRequest, message).WithContext("field", field)
}
