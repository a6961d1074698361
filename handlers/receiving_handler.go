package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/labstockhq/labstock_backend/models"
)

// ReceivingHandler serves the packing-slip / reconciliation endpoints.
type ReceivingHandler struct{}

func (h *ReceivingHandler) Receive(c *gin.Context) {
	id, ok := requestIdParam(c)
	if !ok {
		return
	}
	var input models.ReceiveInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindingError(c, err)
		return
	}
	slip, err := models.Receive(c.Request.Context(), id, &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, slip)
}

func (h *ReceivingHandler) AggregatedReceived(c *gin.Context) {
	id, ok := requestIdParam(c)
	if !ok {
		return
	}
	receipts, err := models.AggregatedReceived(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, receipts)
}

func (h *ReceivingHandler) GetPackingSlips(c *gin.Context) {
	id, ok := requestIdParam(c)
	if !ok {
		return
	}
	slips, err := models.GetPackingSlips(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, slips)
}

func (h *ReceivingHandler) DeletePackingSlip(c *gin.Context) {
	slipId, err := strconv.Atoi(c.Param("slipId"))
	if err != nil || slipId <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid packing slip id"})
		return
	}
	if err := models.DeletePackingSlip(c.Request.Context(), slipId); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": slipId})
}

type correctionRequest struct {
	NewQuantity *int `json:"new_quantity" binding:"required"`
}

func (h *ReceivingHandler) CorrectReceivedItem(c *gin.Context) {
	itemId, err := strconv.Atoi(c.Param("itemId"))
	if err != nil || itemId <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid received item id"})
		return
	}
	var input correctionRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindingError(c, err)
		return
	}
	correction, err := models.CorrectReceivedItem(c.Request.Context(), itemId, *input.NewQuantity)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, correction)
}

func (h *ReceivingHandler) RevertReception(c *gin.Context) {
	id, ok := requestIdParam(c)
	if !ok {
		return
	}
	request, err := models.RevertReception(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, request)
}

func (h *ReceivingHandler) GetInventory(c *gin.Context) {
	records, err := models.GetInventoryRecords(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}
