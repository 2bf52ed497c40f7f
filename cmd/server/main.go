package main

import (
	"context"
	"log"
	"net/http"
	"os"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"github.com/adaptlearn/backend/internal/assessment"
	"github.com/adaptlearn/backend/internal/auth"
	"github.com/adaptlearn/backend/internal/cache"
	"github.com/adaptlearn/backend/internal/database"
	"github.com/adaptlearn/backend/internal/events"
	"github.com/adaptlearn/backend/internal/gamification"
	"github.com/adaptlearn/backend/internal/history"
	"github.com/adaptlearn/backend/internal/live"
	"github.com/adaptlearn/backend/internal/middleware"
	"github.com/adaptlearn/backend/internal/questions"
)

func main() {
	// .env is optional; deployments set the environment directly
	_ = godotenv.Load()

	ctx := context.Background()

	// Postgres: users, question bank, response history, gamification
	db, err := database.Connect()
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// MongoDB: assessment session documents
	mongoClient, mongoDB, err := database.ConnectMongo(ctx)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer mongoClient.Disconnect(ctx)

	if err := assessment.InitializeIndexes(ctx, mongoDB); err != nil {
		log.Printf("WARN: session indexes: %v", err)
	}

	// Redis: session pinning and leaderboards. The server runs without it.
	var sessionCache assessment.SessionCache
	var leaderboards *cache.LeaderboardCache
	if redisClient, err := cache.Connect(ctx); err != nil {
		log.Printf("WARN: redis unavailable, caching disabled: %v", err)
	} else {
		defer redisClient.Close()
		sessionCache = cache.NewSessionCache(redisClient)
		leaderboards = cache.NewLeaderboardCache(redisClient)
	}

	// RabbitMQ: session lifecycle events, enabled by AMQP_URL
	var publisher assessment.EventPublisher
	if amqpURL := os.Getenv("AMQP_URL"); amqpURL != "" {
		pub, err := events.NewPublisher(amqpURL, "adaptlearn.events")
		if err != nil {
			log.Printf("WARN: event publishing disabled: %v", err)
		} else {
			defer pub.Close()
			publisher = pub
		}
	}

	// Stores
	questionStore := questions.NewStore(db)
	historyStore := history.NewStore(db)
	gamificationStore := gamification.NewStore(db)
	sessionStore := assessment.NewSessionStore(mongoDB)

	// Services
	questionService := questions.NewService(questionStore)
	gamificationService := gamification.NewService(gamificationStore, leaderboards)
	hub := live.NewHub()
	assessmentService := assessment.NewService(
		sessionStore, questionStore,
		assessment.NewEstimator(assessment.DefaultEstimatorConfig()), assessment.NewSelector(),
		sessionCache, historyStore, gamificationService, publisher, hub,
	)

	// Handlers
	authHandler := auth.NewHandler(db)
	assessmentHandler := assessment.NewHandler(assessmentService)
	questionHandler := questions.NewHandler(questionService)
	historyHandler := history.NewHandler(historyStore)
	gamificationHandler := gamification.NewHandler(gamificationService)
	liveHandler := live.NewHandler(hub, assessmentService)

	// Setup router
	r := mux.NewRouter()
	api := r.PathPrefix("/api/v1").Subrouter()

	// Public routes
	api.HandleFunc("/auth/register", authHandler.Register).Methods("POST")
	api.HandleFunc("/auth/login", authHandler.Login).Methods("POST")

	// Protected routes
	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.AuthMiddleware)
	protected.HandleFunc("/auth/me", authHandler.GetCurrentUser).Methods("GET")

	protected.HandleFunc("/assessment/start", assessmentHandler.Start).Methods("POST")
	protected.HandleFunc("/assessment/answer", assessmentHandler.SubmitAnswer).Methods("POST")
	protected.HandleFunc("/assessment/history", assessmentHandler.ListSessions).Methods("GET")
	protected.HandleFunc("/assessment/sessions/{id}", assessmentHandler.GetSession).Methods("GET")
	protected.HandleFunc("/assessment/sessions/{id}/abandon", assessmentHandler.Abandon).Methods("POST")
	protected.HandleFunc("/assessment/sessions/{id}/watch", liveHandler.Watch).Methods("GET")

	// Question bank. Static paths registered before {id} so mux does not
	// swallow them into the ID route.
	protected.HandleFunc("/questions", questionHandler.List).Methods("GET")
	protected.HandleFunc("/questions", questionHandler.Create).Methods("POST")
	protected.HandleFunc("/questions/generate", questionHandler.Generate).Methods("POST")
	protected.HandleFunc("/questions/flagged", questionHandler.Flagged).Methods("GET")
	protected.HandleFunc("/questions/coverage", questionHandler.Coverage).Methods("GET")
	protected.HandleFunc("/questions/stats", questionHandler.Stats).Methods("GET")
	protected.HandleFunc("/questions/recalibration", questionHandler.Recalibration).Methods("GET")
	protected.HandleFunc("/questions/export", questionHandler.Export).Methods("GET")
	protected.HandleFunc("/questions/import", questionHandler.Import).Methods("POST")
	protected.HandleFunc("/questions/{id}", questionHandler.Get).Methods("GET")
	protected.HandleFunc("/questions/{id}/review", questionHandler.Review).Methods("POST")
	protected.HandleFunc("/questions/{id}/difficulty", questionHandler.ApplyDifficulty).Methods("POST")

	protected.HandleFunc("/history/responses", historyHandler.Responses).Methods("GET")
	protected.HandleFunc("/history/stats", historyHandler.Stats).Methods("GET")
	protected.HandleFunc("/history/profiles", historyHandler.Profiles).Methods("GET")

	protected.HandleFunc("/gamification/profile", gamificationHandler.GetProfile).Methods("GET")
	protected.HandleFunc("/gamification/leaderboard", gamificationHandler.GetLeaderboard).Methods("GET")
	protected.HandleFunc("/gamification/daily-goal", gamificationHandler.SetDailyGoal).Methods("POST")
	protected.HandleFunc("/gamification/streak-freeze", gamificationHandler.BuyStreakFreeze).Methods("POST")

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// Background workers
	go questionService.StartGenerationWorker(ctx)
	go assessmentService.StartAbandonmentSweeper(ctx)
	go gamificationService.StartWeeklyResetWorker(ctx)
	go gamificationService.StartDailyStreakWorker(ctx)

	// CORS
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	handler := c.Handler(r)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server starting on :%s", port)
	if err := http.ListenAndServe(":"+port, handler); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
