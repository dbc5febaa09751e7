package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/segmentio/kafka-go"

	"bakehouse/server/internal/api"
	"bakehouse/server/internal/config"
	"bakehouse/server/internal/database"
	"bakehouse/server/internal/models"
	"bakehouse/server/internal/repositories"
	"bakehouse/server/internal/services"
	"bakehouse/server/internal/utils"
)

func main() {
	// Загружаем .env файл (если есть)
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ .env файл не найден, используем переменные окружения")
	}

	cfg := config.Load()

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// PostgreSQL — основное хранилище; без него поднимается только health,
	// маршруты движка не монтируются
	var schedulingService *services.SchedulingService
	var consumptionService *services.ConsumptionService

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Printf("⚠️ PostgreSQL недоступен, движок производства отключен: %v", err)
		db = nil
	} else {
		defer database.ClosePostgres(db)

		if err := models.AutoMigrate(db); err != nil {
			log.Printf("⚠️ Ошибка миграции: %v", err)
		}

		repos := repositories.New(db)
		uow := repositories.NewUnitOfWork(db)

		schedulingService = services.NewSchedulingService(repos, uow, cfg.CascadeIgnoreCancelled)
		consumptionService = services.NewConsumptionService(repos)

		if cfg.CascadeIgnoreCancelled {
			log.Println("⚙️ Каскад заказов: отмененные позиции игнорируются")
		}
	}

	// Redis — кэш расписаний, сервис работает и без него
	redisClient, err := database.ConnectRedis(cfg.RedisURL, cfg.RedisSentinelAddrs, cfg.RedisMasterName)
	if err != nil {
		log.Printf("⚠️ Redis недоступен, кэширование отключено: %v", err)
		redisClient = nil
	} else {
		defer database.CloseRedis(redisClient)
		if schedulingService != nil {
			schedulingService.SetRedisUtil(utils.NewRedisClient(redisClient))
		}
	}

	// WebSocket хаб для цеховых планшетов
	go api.ProductionHub.Run()

	// Kafka — поток событий производства, опциональна
	var kafkaWriter *kafka.Writer
	brokers := api.ParseKafkaBrokers(cfg.KafkaBrokers)
	if len(brokers) > 0 {
		transport := api.CreateKafkaTransport(cfg.KafkaUsername, cfg.KafkaPassword, cfg.KafkaCACert)
		kafkaWriter = api.NewKafkaWriter(brokers, "production-events", transport)
		defer kafkaWriter.Close()
		log.Printf("✅ Kafka producer настроен (brokers: %v, topic: production-events)", brokers)
	} else {
		log.Println("⚠️ KAFKA_BROKERS не задан, события уходят только в WebSocket")
	}

	if schedulingService != nil {
		schedulingService.SetEventSink(api.NewEventPublisher(kafkaWriter, api.ProductionHub))
	}

	// Фоновый пересчет аналитики расхода ингредиентов
	if consumptionService != nil {
		go runConsumptionRecalcJob(consumptionService, cfg.ConsumptionRecalcHours)
	}

	router := gin.Default()
	router.Use(corsMiddleware())

	// GET /health (и алиас /api/v1/health)
	healthHandler := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":   "ok",
			"database": db != nil,
			"redis":    redisClient != nil,
			"kafka":    kafkaWriter != nil,
			"time":     time.Now().UTC(),
		})
	}
	router.GET("/health", healthHandler)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", healthHandler)

		if schedulingService != nil {
			productionController := api.NewProductionController(schedulingService, consumptionService)
			productionController.RegisterRoutes(v1)
		}

		// GET /api/v1/ws — подключения цеховых планшетов
		v1.GET("/ws", api.ServeWS)
	}

	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router,
	}

	go func() {
		log.Printf("🚀 Сервер производства запущен на порту %s", cfg.ServerPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Ошибка сервера: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Остановка сервера...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("⚠️ Ошибка остановки сервера: %v", err)
	}
	log.Println("✅ Сервер остановлен")
}

// runConsumptionRecalcJob периодически пересчитывает агрегаты расхода
// Первый пересчет через минуту после старта, далее по расписанию
func runConsumptionRecalcJob(consumption *services.ConsumptionService, intervalHours int) {
	if intervalHours <= 0 {
		intervalHours = 24
	}
	log.Printf("⏰ Пересчет расхода ингредиентов: каждые %d ч", intervalHours)

	time.Sleep(time.Minute)
	if err := consumption.Recalculate(); err != nil {
		log.Printf("⚠️ Ошибка пересчета расхода: %v", err)
	}

	ticker := time.NewTicker(time.Duration(intervalHours) * time.Hour)
	defer ticker.Stop()

	for range ticker.C {
		if err := consumption.Recalculate(); err != nil {
			log.Printf("⚠️ Ошибка пересчета расхода: %v", err)
		}
	}
}

// corsMiddleware разрешает запросы от фронтенда
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
