package main

import (
	"context"
	"log"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	config "github.com/plantavida/treefund-go/config"
	models "github.com/plantavida/treefund-go/models"
	routes "github.com/plantavida/treefund-go/routes"
	services "github.com/plantavida/treefund-go/services"
	store "github.com/plantavida/treefund-go/store"
	utils "github.com/plantavida/treefund-go/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	st := store.NewMongo(cfg.MongoClient, cfg.DBName)

	idxCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := st.EnsureIndexes(idxCtx); err != nil {
		log.Fatalf("indexes: %v", err)
	}
	cancel()

	policy := services.NewProjectPermissionPolicy(st)
	ledger := services.NewLedgerService(st)
	ledger.OnCompleted = func(p *models.CollaborativeProject) {
		go func() {
			if err := utils.SendProjectFundedEmail(p.CreatorEmail, p.CreatorName, p.TreeName, p.TargetAmount); err != nil {
				log.Printf("funded email for project %s: %v", p.ID.Hex(), err)
			}
		}()
	}
	projects := services.NewProjectService(st, policy, ledger)
	workorders := services.NewWorkOrderService(st)

	corsCfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "If-None-Match"},
		ExposeHeaders: []string{"ETag", "Last-Modified"},
		MaxAge:        12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
		corsCfg.AllowCredentials = true
	}

	r := gin.Default()
	r.Use(cors.New(corsCfg))

	routes.SetupRoutes(r, cfg, routes.Deps{
		Projects:   projects,
		Ledger:     ledger,
		WorkOrders: workorders,
	})

	log.Printf("listening on :%s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server: %v", err)
	}
}
