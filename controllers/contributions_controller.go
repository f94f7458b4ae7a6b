package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	services "github.com/plantavida/treefund-go/services"
)

// ---------------- CREATE ----------------
func Contribute(ledger *services.LedgerService) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := actorFrom(c)
		if !ok {
			return
		}

		projectID, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "validation_error", "message": "invalid project id"})
			return
		}

		var input services.ContributionInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "validation_error", "message": err.Error()})
			return
		}

		result, err := ledger.RecordContribution(c.Request.Context(), projectID, actor.ID, actor.Name, input)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusCreated, result)
	}
}

// ---------------- LIST ----------------
func ListContributors(svc *services.ProjectService) gin.HandlerFunc {
	return func(c *gin.Context) {
		projectID, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "validation_error", "message": "invalid project id"})
			return
		}

		contributors, err := svc.ListContributors(c.Request.Context(), projectID)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, contributors)
	}
}
