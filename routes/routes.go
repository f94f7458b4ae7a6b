package routes

import (
	"github.com/gin-gonic/gin"

	config "github.com/plantavida/treefund-go/config"
	controllers "github.com/plantavida/treefund-go/controllers"
	middleware "github.com/plantavida/treefund-go/middleware"
	services "github.com/plantavida/treefund-go/services"
)

// Deps bundles the services the routes dispatch to.
type Deps struct {
	Projects   *services.ProjectService
	Ledger     *services.LedgerService
	WorkOrders *services.WorkOrderService
}

func SetupRoutes(r *gin.Engine, cfg *config.Config, d Deps) {
	auth := middleware.AuthMiddleware(cfg)

	// public reads
	r.GET("/projects", controllers.ListProjects(d.Projects))
	r.GET("/projects/:id", controllers.GetProject(d.Projects))
	r.GET("/projects/:id/contributors", controllers.ListContributors(d.Projects))

	projects := r.Group("/projects")
	projects.Use(auth)
	{
		projects.POST("", controllers.CreateProject(d.Projects))
		projects.POST("/:id/cancel", controllers.CancelProject(d.Projects))
		projects.POST("/:id/contributions", controllers.Contribute(d.Ledger))
	}

	workorders := r.Group("/workorders")
	workorders.Use(auth)
	{
		workorders.POST("", controllers.CreateWorkOrder(d.WorkOrders))
		workorders.GET("/:id", controllers.GetWorkOrder(d.WorkOrders))
		workorders.PATCH("/:id/status", controllers.AdvanceWorkOrder(d.WorkOrders))
		workorders.POST("/:id/cancel", controllers.CancelWorkOrder(d.WorkOrders))
		workorders.GET("/:id/history", controllers.GetWorkOrderHistory(d.WorkOrders))
	}
}
