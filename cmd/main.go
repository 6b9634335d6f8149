package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/fathima-sithara/media-pipeline/internal/auth"
	"github.com/fathima-sithara/media-pipeline/internal/cache"
	"github.com/fathima-sithara/media-pipeline/internal/config"
	"github.com/fathima-sithara/media-pipeline/internal/events"
	"github.com/fathima-sithara/media-pipeline/internal/handlers"
	"github.com/fathima-sithara/media-pipeline/internal/imagepipe"
	"github.com/fathima-sithara/media-pipeline/internal/media"
	"github.com/fathima-sithara/media-pipeline/internal/moderation"
	"github.com/fathima-sithara/media-pipeline/internal/presign"
	"github.com/fathima-sithara/media-pipeline/internal/repository"
	service "github.com/fathima-sithara/media-pipeline/internal/services"
	"github.com/fathima-sithara/media-pipeline/internal/storage"
	"github.com/fathima-sithara/media-pipeline/internal/transcode"
	utils "github.com/fathima-sithara/media-pipeline/internal/utis"
)

func main() {
	// load config
	cfg, err := config.Load("config/config.yaml")
	if err != nil {
		panic(err)
	}
	// logger
	logger, err := utils.NewLogger(cfg.App.Env, cfg.Log.Level)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	// Mongo
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	mc, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Mongo.URI))
	if err != nil {
		logger.Fatalf("mongo connect: %v", err)
	}
	db := mc.Database(cfg.Mongo.Database)
	assets := repository.NewAssetRepo(db.Collection("media_assets"))
	renditions := repository.NewRenditionRepo(db.Collection("media_renditions"))
	jobs := repository.NewJobRepo(db.Collection("media_rendition_jobs"))
	posts := repository.NewPostRepo(db.Collection("posts"))

	// Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	urlCache := cache.NewSignedURLCache(rdb, "media", time.Duration(cfg.Redis.SignedTTL)*time.Second)

	// Kafka producer
	producer := events.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)

	// AWS clients
	awsConf, err := awscfg.LoadDefaultConfig(context.Background(), awscfg.WithRegion(cfg.AWS.Region))
	if err != nil {
		logger.Fatalf("aws config: %v", err)
	}
	if cfg.AWS.AccessKey != "" && cfg.AWS.SecretKey != "" {
		awsConf.Credentials = credentials.NewStaticCredentialsProvider(cfg.AWS.AccessKey, cfg.AWS.SecretKey, "")
	}
	store, err := storage.NewS3Store(context.Background(), cfg.AWS.Region, cfg.AWS.AccessKey, cfg.AWS.SecretKey)
	if err != nil {
		logger.Fatalf("s3 init: %v", err)
	}

	// presign gateway
	gateway := presign.NewGateway(store, cfg.AWS,
		time.Duration(cfg.S3.PresignPutTTL)*time.Second,
		time.Duration(cfg.S3.PresignGetTTL)*time.Second,
	)

	// image pipeline
	screener := moderation.NewRekognitionScreener(awsConf)
	pipeline := imagepipe.NewPipeline(store, screener, renditions, imagepipe.Config{
		MinConfidence:   cfg.Moderation.MinConfidence,
		DerivativeWidth: cfg.Image.DerivativeWidth,
		ThumbSize:       cfg.Image.ThumbSize,
		JPEGQuality:     cfg.Image.JPEGQuality,
		WebPQuality:     float32(cfg.Image.WebPQuality),
		MosaicBlockSize: cfg.Image.MosaicBlockSize,
		MosaicMinBlocks: cfg.Image.MosaicMinBlocks,
		OutputBucket:    cfg.AWS.MediaBucket,
		OutputKMSKey:    cfg.AWS.KMSAliasMedia,
		CacheControl:    presign.PublicCacheControl,
	}, logger)

	// transcoding backend
	builder := transcode.Builder{IngestBucket: cfg.AWS.IngestBucket, MediaBucket: cfg.AWS.MediaBucket}
	backend := transcode.NewMediaConvertBackend(awsConf, cfg.AWS.MediaConvertEndpoint, cfg.AWS.MediaConvertRoleARN, cfg.AWS.OutputKMSARN)

	jobBackend, err := media.ParseJobBackend(cfg.Transcode.Backend)
	if err != nil {
		logger.Fatalf("transcode config: %v", err)
	}

	// service
	msvc := service.NewMediaService(
		assets, renditions, jobs, posts,
		gateway, pipeline, builder, backend,
		producer, urlCache,
		service.Config{Env: cfg.App.Env, SubmitTimeout: cfg.SubmitTimeout, JobBackend: jobBackend},
		logger,
	)

	// JWT Verifier
	verifier, err := auth.NewJWTVerifier(cfg.JWT.PublicKeyPath)
	if err != nil {
		logger.Fatalf("jwt init: %v", err)
	}

	// fiber app & routes
	app := fiber.New(fiber.Config{
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	})
	h := handlers.NewHandler(verifier, msvc, logger)
	h.Register(app)
	app.Get("/healthz", func(c *fiber.Ctx) error { return c.SendString("ok") })

	// periodic sweep for PENDING jobs whose submission outcome was lost
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-sweepCtx.Done():
				return
			case <-ticker.C:
				if n, err := msvc.ReconcileStalePending(sweepCtx, 15*time.Minute); err != nil {
					logger.Errorw("stale job sweep failed", "error", err)
				} else if n > 0 {
					logger.Warnw("stale jobs failed by sweep", "count", n)
				}
			}
		}
	}()

	// start server
	go func() {
		addr := fmt.Sprintf(":%d", cfg.App.Port)
		logger.Infof("starting media pipeline on %s", addr)
		if err := app.Listen(addr); err != nil {
			logger.Fatalf("listen failed: %v", err)
		}
	}()

	// graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, os.Kill)
	<-quit
	logger.Info("shutdown requested")
	stopSweep()
	timeoutCtx, cancel2 := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel2()

	_ = app.Shutdown()
	_ = producer.Close()
	_ = rdb.Close()
	_ = mc.Disconnect(timeoutCtx)
	logger.Info("shutdown completed")
}
