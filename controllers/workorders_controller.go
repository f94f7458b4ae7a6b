package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	services "github.com/plantavida/treefund-go/services"
	utils "github.com/plantavida/treefund-go/utils"
)

// ---------------- CREATE ----------------
func CreateWorkOrder(svc *services.WorkOrderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input services.WorkOrderInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "validation_error", "message": err.Error()})
			return
		}

		workOrder, err := svc.Create(c.Request.Context(), input)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{"work_order": workOrder})
	}
}

// ---------------- GET ----------------
func GetWorkOrder(svc *services.WorkOrderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "validation_error", "message": "invalid work order id"})
			return
		}

		workOrder, steps, err := svc.Timeline(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}

		etag := utils.GenerateETag(workOrder.ID, workOrder.UpdatedAt)
		if match := c.GetHeader("If-None-Match"); match != "" && match == etag {
			c.Status(http.StatusNotModified)
			return
		}
		c.Header("ETag", etag)

		c.JSON(http.StatusOK, gin.H{
			"work_order":  workOrder,
			"steps":       steps,
			"coordinates": workOrder.DisplayCoordinates(),
		})
	}
}

// ---------------- ADVANCE ----------------
func AdvanceWorkOrder(svc *services.WorkOrderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "validation_error", "message": "invalid work order id"})
			return
		}

		var input struct {
			Status    string   `json:"status" binding:"required"`
			ActualLat *float64 `json:"actual_latitude"`
			ActualLng *float64 `json:"actual_longitude"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "validation_error", "message": err.Error()})
			return
		}

		workOrder, entry, err := svc.Advance(c.Request.Context(), id, input.Status, &services.AdvanceContext{
			ActualLat: input.ActualLat,
			ActualLng: input.ActualLng,
		})
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"work_order":    workOrder,
			"history_entry": entry,
		})
	}
}

// ---------------- CANCEL ----------------
func CancelWorkOrder(svc *services.WorkOrderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "validation_error", "message": "invalid work order id"})
			return
		}

		workOrder, err := svc.Cancel(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"work_order": workOrder})
	}
}

// ---------------- HISTORY ----------------
func GetWorkOrderHistory(svc *services.WorkOrderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "validation_error", "message": "invalid work order id"})
			return
		}

		entries, err := svc.History(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, entries)
	}
}
