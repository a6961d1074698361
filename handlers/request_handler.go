package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/labstockhq/labstock_backend/models"
)

// RequestHandler serves the procurement request lifecycle endpoints.
type RequestHandler struct{}

func requestIdParam(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request id"})
		return 0, false
	}
	return id, true
}

func (h *RequestHandler) CreateRequest(c *gin.Context) {
	var input models.NewRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindingError(c, err)
		return
	}
	request, err := models.CreateRequest(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, request)
}

func (h *RequestHandler) GetRequest(c *gin.Context) {
	id, ok := requestIdParam(c)
	if !ok {
		return
	}
	request, err := models.GetRequest(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, request)
}

func (h *RequestHandler) GetRequests(c *gin.Context) {
	var status *models.RequestStatus
	if raw := c.Query("status"); raw != "" {
		parsed, err := models.ParseRequestStatus(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		status = &parsed
	}
	requests, err := models.GetRequests(c.Request.Context(), status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, requests)
}

func (h *RequestHandler) UpdateRequest(c *gin.Context) {
	id, ok := requestIdParam(c)
	if !ok {
		return
	}
	var input models.UpdateRequestMetadata
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindingError(c, err)
		return
	}
	request, err := models.UpdateRequest(c.Request.Context(), id, &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, request)
}

type transitionRequest struct {
	Target   string `json:"target" binding:"required"`
	Override bool   `json:"override"`
}

func (h *RequestHandler) TransitionStatus(c *gin.Context) {
	id, ok := requestIdParam(c)
	if !ok {
		return
	}
	var input transitionRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindingError(c, err)
		return
	}
	target, err := models.ParseRequestStatus(input.Target)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	request, err := models.TransitionRequestStatus(c.Request.Context(), id, target, input.Override)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, request)
}

type attachQuoteRequest struct {
	DocumentRef string `json:"document_ref" binding:"required"`
}

func (h *RequestHandler) AttachQuote(c *gin.Context) {
	id, ok := requestIdParam(c)
	if !ok {
		return
	}
	var input attachQuoteRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindingError(c, err)
		return
	}
	request, err := models.AttachQuoteDocument(c.Request.Context(), id, input.DocumentRef)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, request)
}

type recordPORequest struct {
	PONumber    string `json:"po_number" binding:"required"`
	DocumentRef string `json:"document_ref"`
}

func (h *RequestHandler) RecordPurchaseOrder(c *gin.Context) {
	id, ok := requestIdParam(c)
	if !ok {
		return
	}
	var input recordPORequest
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindingError(c, err)
		return
	}
	request, err := models.RecordPurchaseOrder(c.Request.Context(), id, input.PONumber, input.DocumentRef)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, request)
}

func (h *RequestHandler) GetHistories(c *gin.Context) {
	id, ok := requestIdParam(c)
	if !ok {
		return
	}
	histories, err := models.GetRequestHistories(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, histories)
}
