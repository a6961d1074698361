package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/labstockhq/labstock_backend/models"
	"github.com/labstockhq/labstock_backend/utils"
)

// respondError maps the typed domain errors onto HTTP statuses. Validation
// failures are conflicts (409): the request was understood but the current
// state refuses it, and the message tells the caller what to do instead.
func respondError(c *gin.Context, err error) {
	var (
		notFound     *models.NotFoundError
		emptyReceive *models.EmptyReceiveError
		invalidEdge  *models.InvalidTransitionError
		exceeds      *models.ExceedsOrderedError
		negative     *models.NegativeResultError
		slipInUse    *models.SlipInUseError
		notReceived  *models.NotReceivedError
		forbidden    *models.UnauthorizedError
		partial      *models.PartialFailureError
	)
	switch {
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.As(err, &emptyReceive):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &invalidEdge),
		errors.As(err, &exceeds),
		errors.As(err, &negative),
		errors.As(err, &slipInUse),
		errors.As(err, &notReceived):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.As(err, &forbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.As(err, &partial):
		// Already logged with the touched inventory keys where it happened.
		c.JSON(http.StatusInternalServerError, gin.H{"error": "the operation could not be completed; contact support"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// respondBindingError turns gin/validator binding failures into 400s with
// per-field messages.
func respondBindingError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "fields": utils.ProcessValidationErrors(err)})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
