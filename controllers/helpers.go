package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	services "github.com/plantavida/treefund-go/services"
)

// statusFor maps service error kinds to HTTP statuses.
func statusFor(kind string) int {
	switch kind {
	case services.KindValidation:
		return http.StatusBadRequest
	case services.KindPermission:
		return http.StatusForbidden
	case services.KindConflict:
		return http.StatusConflict
	case services.KindNotFound:
		return http.StatusNotFound
	case services.KindState:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	var svcErr *services.Error
	if errors.As(err, &svcErr) {
		c.JSON(statusFor(svcErr.Kind), gin.H{"error": svcErr.Kind, "message": svcErr.Message})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "internal server error"})
}

// actor is the authenticated identity set by the auth middleware.
type actor struct {
	ID    primitive.ObjectID
	Type  string
	Name  string
	Email string
}

func actorFrom(c *gin.Context) (*actor, bool) {
	uid := c.GetString("user_id")
	id, err := primitive.ObjectIDFromHex(uid)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "invalid user id"})
		return nil, false
	}
	return &actor{
		ID:    id,
		Type:  c.GetString("user_type"),
		Name:  c.GetString("user_name"),
		Email: c.GetString("user_email"),
	}, true
}
