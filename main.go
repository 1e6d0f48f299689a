package main

import (
	"context"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/sirupsen/logrus"

	"github.com/RohUkJin/HOTDEAL-SCRAPER/config"
	"github.com/RohUkJin/HOTDEAL-SCRAPER/crawlers"
	"github.com/RohUkJin/HOTDEAL-SCRAPER/database"
	"github.com/RohUkJin/HOTDEAL-SCRAPER/handlers"
	"github.com/RohUkJin/HOTDEAL-SCRAPER/jobs"
	"github.com/RohUkJin/HOTDEAL-SCRAPER/services"
	"github.com/RohUkJin/HOTDEAL-SCRAPER/shared"
)

func main() {
	// Load config
	cfg := config.LoadConfig()

	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logrus.SetLevel(level)
	}

	// Connect to database
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	store := database.NewStore(db)
	migrateCtx, cancelMigrate := context.WithTimeout(context.Background(), 30*time.Second)
	if err := store.Migrate(migrateCtx); err != nil {
		log.Printf("Migration warning: %v", err)
	}
	cancelMigrate()

	// Initialize services
	policy := config.DefaultFilterPolicy()
	httpFactory := shared.NewHTTPClientFactory(10 * time.Second)

	naverService := services.NewNaverShoppingService(cfg.NaverClientID, cfg.NaverClientSecret, httpFactory)
	filterService := services.NewFilterService(policy, naverService)
	analyzerService := services.NewAnalyzerService(cfg.GeminiAPIKey, httpFactory)
	verdictCache := services.NewVerdictCache(cfg.CacheFile)

	// The early hard filter saves a detail fetch per rejected listing.
	preFilter := crawlers.PreFilter(filterService.ApplyHardFilter)
	boardCrawlers := []services.DealCrawler{
		crawlers.NewPpomppuCrawler(cfg.UserAgent, preFilter),
		crawlers.NewFMKoreaCrawler(cfg.UserAgent, preFilter),
		crawlers.NewArcaCrawler(cfg.UserAgent, preFilter),
	}

	pipeline := services.NewPipelineService(boardCrawlers, verdictCache, filterService, analyzerService, store)

	// Initialize jobs
	crawlJob := jobs.NewCrawlJob(pipeline)
	cleanupJob := jobs.NewCleanupJob(store)

	// Initialize handlers
	hotdealHandler := handlers.NewHotdealHandler(store)
	statsHandler := handlers.NewStatsHandler(store, naverService.Metrics(), analyzerService.Metrics())
	cacheHandler := handlers.NewCacheHandler(verdictCache)
	adminHandler := handlers.NewAdminHandler(crawlJob, cfg.AdminToken)

	// Start background jobs
	go func() {
		// Run immediately on startup
		go crawlJob.Run()

		crawlTicker := time.NewTicker(cfg.GetCrawlInterval())
		cleanupTicker := time.NewTicker(24 * time.Hour)

		for {
			select {
			case <-crawlTicker.C:
				crawlJob.Run()
			case <-cleanupTicker.C:
				cleanupJob.Run()
			}
		}
	}()

	// Setup Fiber
	app := fiber.New()

	// Middleware
	app.Use(logger.New())
	app.Use(cors.New())

	// Health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":    "ok",
			"timestamp": time.Now().Unix(),
		})
	})

	// Routes
	api := app.Group("/api/v1")

	api.Get("/hotdeals", hotdealHandler.GetHotdeals)
	api.Get("/hotdeals/:id", hotdealHandler.GetHotdealByID)
	api.Get("/stats", statsHandler.GetStats)
	api.Get("/cache/status", cacheHandler.GetStatus)
	api.Delete("/cache", cacheHandler.Clear)

	admin := api.Group("/admin")
	admin.Post("/crawl", adminHandler.TriggerCrawl)

	// Start server
	log.Printf("Server starting on port %s", cfg.ServerPort)
	if err := app.Listen(":" + cfg.ServerPort); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
