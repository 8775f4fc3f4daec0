package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"videosync/config"
	"videosync/handlers"
	"videosync/internal/dispatcher"
	"videosync/internal/ffmpeg"
	"videosync/internal/imagegen"
	"videosync/internal/jobrunner"
	"videosync/internal/segmenter"
	"videosync/internal/speech"
	"videosync/internal/storage"
	"videosync/internal/store"
	"videosync/internal/tracker"
	"videosync/internal/tts"
	"videosync/middleware"
)

func main() {
	// Load .env if present; real deployments inject the environment directly.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config.InitLogger()

	if err := config.InitSupabase(); err != nil {
		config.Log.Fatalf("Failed to initialize Supabase: %v", err)
	}

	settings, err := config.LoadSettings()
	if err != nil {
		config.Log.Fatalf("Invalid configuration: %v", err)
	}

	db := store.New(config.SupabaseClient)

	var objects storage.ObjectStore
	switch settings.StorageBackend {
	case "s3":
		objects, err = storage.NewS3Store(context.Background(), settings.StorageBucket, settings.S3Region)
		if err != nil {
			config.Log.Fatalf("Failed to initialize S3 storage: %v", err)
		}
	default:
		objects = storage.NewSupabaseStore(config.SupabaseClient, settings.StorageBucket, config.GetSupabaseURL())
	}

	speechOpts := []speech.Option{}
	if settings.RedisAddr != "" {
		cache := redis.NewClient(&redis.Options{Addr: settings.RedisAddr})
		speechOpts = append(speechOpts, speech.WithCache(cache))
		config.Log.WithField("addr", settings.RedisAddr).Info("Transcription cache enabled")
	}
	speechClient := speech.NewClient(settings.DeepgramAPIKey, config.Log, speechOpts...)

	runner := jobrunner.NewClient(settings.GitHubToken, settings.RepoOwner, settings.RepoName)
	renderDispatcher := dispatcher.New(runner, db, config.Log)

	jobTracker := tracker.New(runner, db, objects, config.Log)
	trackerCtx, stopTracker := context.WithCancel(context.Background())
	go jobTracker.Run(trackerCtx)

	videoSegmenter := segmenter.New(ffmpeg.SegmentTranscoder{}, objects, config.Log, "")
	imageClient := imagegen.NewClient(settings.ReplicateAPIKey)
	voiceClient := tts.NewClient(settings.ElevenLabsAPIKey)

	appHandler := handlers.NewApplicationHandler(
		config.Log,
		db,
		objects,
		speechClient,
		videoSegmenter,
		renderDispatcher,
		imageClient,
		voiceClient,
	)

	app := fiber.New(fiber.Config{
		BodyLimit: 100 * 1024 * 1024,
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
	app.Use(middleware.RequestLogger())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status":  "ok",
			"message": "Video pipeline API is healthy",
		})
	})

	apiV1 := app.Group("/api/v1")

	apiV1.Post("/videos/upload", appHandler.InitiateVideoUpload)
	apiV1.Post("/videos/:videoId/segments", appHandler.SegmentVideo)
	apiV1.Post("/transcribe", appHandler.TranscribeSegment)
	apiV1.Post("/render/bulk", appHandler.BulkRender)

	apiV1.Get("/users/:userId/workflows", appHandler.ListWorkflows)
	apiV1.Get("/users/:userId/videos", appHandler.ListUserVideos)
	apiV1.Delete("/users/:userId/videos/:videoId", appHandler.DeleteUserVideo)

	apiV1.Post("/images/generate", appHandler.GenerateImages)
	apiV1.Post("/audio/speech", appHandler.SynthesizeSpeech)

	go func() {
		config.Log.WithField("port", settings.Port).Info("Starting video pipeline API")
		if err := app.Listen(":" + settings.Port); err != nil {
			config.Log.Fatalf("Server stopped: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	config.Log.Info("Shutting down")
	stopTracker()
	if err := app.Shutdown(); err != nil {
		config.Log.Errorf("Error during shutdown: %v", err)
	}
	config.Log.Info("Shutdown complete")
}
