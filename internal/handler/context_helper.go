package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/campusops/claimflow/internal/middleware"
	"github.com/campusops/claimflow/internal/models"
)

func identityFromContext(c *gin.Context) (models.Identity, bool) {
	return middleware.CurrentIdentity(c)
}

func provenanceFromContext(c *gin.Context) models.Provenance {
	return models.Provenance{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
}
