package handler

import (
	"agriconnect/internal/apperr"
	"agriconnect/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// respondError writes err using its kind's status. Internal causes are logged, never sent.
func respondError(c *gin.Context, log zerolog.Logger, err error) {
	kind := apperr.KindOf(err)
	if kind == apperr.KindInternal {
		log.Error().Err(err).
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Str("request_id", c.GetString(middleware.RequestIDHeader)).
			Msg("request failed")
	}
	c.JSON(apperr.HTTPStatus(kind), gin.H{"error": apperr.PublicMessage(err)})
}
