package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	models "github.com/plantavida/treefund-go/models"
	services "github.com/plantavida/treefund-go/services"
	utils "github.com/plantavida/treefund-go/utils"
)

// ---------------- CREATE ----------------
func CreateProject(svc *services.ProjectService) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := actorFrom(c)
		if !ok {
			return
		}

		var input services.ProjectInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "validation_error", "message": err.Error()})
			return
		}

		result, err := svc.CreateProject(c.Request.Context(), actor.ID, actor.Type, actor.Name, actor.Email, input)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusCreated, result)
	}
}

// ---------------- LIST ----------------
func ListProjects(svc *services.ProjectService) gin.HandlerFunc {
	return func(c *gin.Context) {
		projects, err := svc.ListProjects(c.Request.Context(), c.Query("status"))
		if err != nil {
			respondError(c, err)
			return
		}

		if len(projects) == 0 {
			c.JSON(http.StatusOK, []models.CollaborativeProject{})
			return
		}

		// --- Pick the most recently updated project ---
		latest := projects[0]
		for _, p := range projects {
			if p.UpdatedAt.After(latest.UpdatedAt) {
				latest = p
			}
		}

		// --- Conditional read headers from the latest project ---
		etag := utils.GenerateETag(latest.ID, latest.UpdatedAt)
		if match := c.GetHeader("If-None-Match"); match != "" && match == etag {
			c.Status(http.StatusNotModified)
			return
		}
		c.Header("ETag", etag)
		c.Header("Last-Modified", latest.UpdatedAt.UTC().Format(http.TimeFormat))

		c.JSON(http.StatusOK, projects)
	}
}

// ---------------- GET ----------------
func GetProject(svc *services.ProjectService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "validation_error", "message": "invalid project id"})
			return
		}

		snapshot, err := svc.GetProject(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}

		etag := utils.GenerateETag(snapshot.Project.ID, snapshot.Project.UpdatedAt)
		if match := c.GetHeader("If-None-Match"); match != "" && match == etag {
			c.Status(http.StatusNotModified)
			return
		}
		c.Header("ETag", etag)

		c.JSON(http.StatusOK, snapshot)
	}
}

// ---------------- CANCEL ----------------
func CancelProject(svc *services.ProjectService) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := actorFrom(c)
		if !ok {
			return
		}

		id, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "validation_error", "message": "invalid project id"})
			return
		}

		project, err := svc.CancelProject(c.Request.Context(), id, actor.ID)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"project": project})
	}
}
