package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "medbook"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort     = "4000"
	DefaultLogLevel = "info"

	DefaultSMTPPort = 465
	DefaultMailFrom = "no-reply@medbook.local"

	DefaultKafkaTopic = "appointment-events"

	DefaultMediaDir     = "./media"
	DefaultMediaBaseURL = "http://localhost:4000/media"

	DefaultRateLimitRequests = 60
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultTokenTTL       = 7 * 24 * time.Hour
	DefaultMaxRequestSize = 5 * 1024 * 1024 // room for remedy image uploads

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultMaxActiveAppointments  = 5
	DefaultMaxRecentCancellations = 3
	DefaultCancellationWindow     = 24 * time.Hour
	DefaultReviewWindow           = 30 * 24 * time.Hour
	DefaultSlotLockTTL            = 10 * time.Second

	DefaultPaginationLimit = 100
)
