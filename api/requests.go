package api

import (
	"github.com/gin-gonic/gin"

	apperrors "github.com/AmareGatie/phase4/errors"
	"github.com/AmareGatie/phase4/server"
	"github.com/AmareGatie/phase4/validation"
)

type counterRequest struct {
	Type string `json:"type" validate:"required"`
}

type languageRequest struct {
	Language string `json:"language" validate:"required,bcp47_language_tag"`
}

type themeRequest struct {
	Theme string `json:"theme" validate:"required,oneof=light dark"`
}

// bind decodes the JSON body into dst and validates it. On failure it writes
// the error response and returns false.
func bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		server.RespondWithError(c, apperrors.InvalidInput("body", "request body must be valid JSON"))
		return false
	}
	if err := validation.Validate(dst); err != nil {
		server.RespondWithError(c, err)
		return false
	}
	return true
}
