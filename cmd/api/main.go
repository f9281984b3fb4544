package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/justloccit/booking-backend/internal/adapter/events/rabbitmq"
	"github.com/justloccit/booking-backend/internal/adapter/handler"
	"github.com/justloccit/booking-backend/internal/adapter/repository/postgres"
	"github.com/justloccit/booking-backend/internal/adapter/stream/redisstream"
	"github.com/justloccit/booking-backend/internal/core/services"
	"github.com/justloccit/booking-backend/internal/platform/config"
	"github.com/justloccit/booking-backend/internal/platform/database"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using OS environment.")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(context.Background(), database.Config{
		Host:            cfg.DBHost,
		Port:            cfg.DBPort,
		User:            cfg.DBUser,
		Password:        cfg.DBPassword,
		DBName:          cfg.DBName,
		ConnectAttempts: cfg.DBConnectAttempts,
		MaxOpenConns:    25,
		MaxIdleConns:    25,
		ConnMaxLifetime: 5 * time.Minute,
	})
	if err != nil {
		log.Fatalf("Failed to connect to db after retries: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(context.Background(), db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	log.Printf("Connecting to Redis at %s:%s...", cfg.RedisHost, cfg.RedisPort)

	redisClient := redis.NewClient(&redis.Options{
		Addr: fmt.Sprintf("%s:%s", cfg.RedisHost, cfg.RedisPort),
		DB:   0,
	})

	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	log.Println("Redis connected successfully!")

	eventPublisher, err := rabbitmq.NewPublisher(cfg.RabbitURL, cfg.EventsExchange)
	if err != nil {
		log.Fatalf("Failed to connect to RabbitMQ: %v", err)
	}
	defer eventPublisher.Close()

	reservationRepo := postgres.NewReservationRepository(db)
	timeslotRepo := postgres.NewTimeslotRepository(db)
	bookingRepo := postgres.NewBookingRepository(db)
	customerRepo := postgres.NewCustomerRepository(db)
	subServiceRepo := postgres.NewSubServiceRepository(db)

	changePublisher := redisstream.NewPublisher(redisClient, cfg.ChangeStream)
	changeConsumer := redisstream.NewConsumer(redisClient, cfg.ChangeStream, cfg.ChangeGroup, hostname())

	reservationService := services.NewReservationService(reservationRepo, subServiceRepo, changePublisher, redisClient)
	confirmationService := services.NewConfirmationService(reservationRepo, bookingRepo, customerRepo, changePublisher, eventPublisher)
	timeslotService := services.NewTimeslotService(timeslotRepo, redisClient)
	reconciler := services.NewReconciler(timeslotRepo, redisClient)
	sweeper := services.NewSweeper(reservationRepo, timeslotRepo, changePublisher)

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()

	go func() {
		if err := changeConsumer.Run(workerCtx, reconciler.Apply); err != nil && workerCtx.Err() == nil {
			log.Fatalf("Change feed consumer failed: %v", err)
		}
	}()

	go sweeper.Run(workerCtx)

	reservationHandler := handler.NewReservationHandler(reservationService, confirmationService)
	timeslotHandler := handler.NewTimeslotHandler(timeslotService)

	mux := http.NewServeMux()

	mux.HandleFunc("/reservations/lock", reservationHandler.Lock)
	mux.HandleFunc("/reservations/release", reservationHandler.Release)
	mux.HandleFunc("/bookings/confirm", reservationHandler.Confirm)
	mux.HandleFunc("/timeslots/", timeslotHandler.Handle)

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("Server starting on %s", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server startup failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	log.Println("Shutting down server...")

	stopWorkers()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting")
}

func hostname() string {
	name, err := os.Hostname()
	if err != nil {
		return "api"
	}
	return name
}
