package main

import (
	"github.com/joho/godotenv"

	adminhandler "medbook/internal/admin/handler"
	appointmenthandler "medbook/internal/appointments/handler"
	appointmentrepo "medbook/internal/appointments/repository"
	appointmentservice "medbook/internal/appointments/service"
	doctorhandler "medbook/internal/doctors/handler"
	doctorrepo "medbook/internal/doctors/repository"
	doctorservice "medbook/internal/doctors/service"
	notificationhandler "medbook/internal/notifications/handler"
	notificationrepo "medbook/internal/notifications/repository"
	notificationservice "medbook/internal/notifications/service"
	"medbook/internal/realtime"
	reviewhandler "medbook/internal/reviews/handler"
	reviewrepo "medbook/internal/reviews/repository"
	reviewservice "medbook/internal/reviews/service"
	userhandler "medbook/internal/users/handler"
	userrepo "medbook/internal/users/repository"
	userservice "medbook/internal/users/service"
	"medbook/pkg/app"
	"medbook/pkg/auth"
	"medbook/pkg/config"
	"medbook/pkg/contracts"
	"medbook/pkg/imagestore"
	"medbook/pkg/kafka"
	"medbook/pkg/mail"
	"medbook/pkg/middleware"
	"medbook/pkg/validator"
)

const ServiceName = "medbook"

const mailQueueSize = 128

func main() {
	_ = godotenv.Load()

	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	cfg.Log.Info("Starting Medbook service")

	tokens := auth.NewManager(cfg.JWTSecret, cfg.TokenTTL)
	serverApp := app.NewApplication(cfg)

	images, err := imagestore.NewDiskStore(cfg.MediaDir, cfg.MediaBaseURL)
	if err != nil {
		cfg.Log.Fatal("Failed to initialize media store", "error", err)
	}

	mailer := initMailer(cfg, serverApp)
	events := initEvents(cfg, serverApp)

	hub := realtime.NewHub(cfg.Log)
	serverApp.OnShutdown(hub.Close)

	v := validator.New()

	doctorRepo := doctorrepo.NewMongoDoctorRepository(cfg)
	userRepo := userrepo.NewMongoUserRepository(cfg)
	appointmentRepo := appointmentrepo.NewMongoAppointmentRepository(cfg)
	slotLockRepo := appointmentrepo.NewSlotLockRepository(cfg)
	notificationRepo := notificationrepo.NewMongoNotificationRepository(cfg)
	reviewRepo := reviewrepo.NewMongoReviewRepository(cfg)

	doctorService := doctorservice.NewDoctorService(doctorRepo, images, v, cfg)
	userService := userservice.NewUserService(userRepo, images, v, cfg)
	notificationService := notificationservice.NewNotificationService(notificationRepo, cfg)
	appointmentService := appointmentservice.NewAppointmentService(
		appointmentRepo,
		slotLockRepo,
		doctorRepo,
		userRepo,
		notificationService,
		reviewRepo,
		hub,
		mailer,
		events,
		images,
		v,
		cfg,
	)
	reviewService := reviewservice.NewReviewService(reviewRepo, appointmentRepo, doctorRepo, v, cfg)

	handlers := []contracts.Handler{
		adminhandler.NewAdminHandler(cfg.AdminEmail, cfg.AdminPassword, tokens, cfg.Log),
		doctorhandler.NewDoctorHandler(doctorService, tokens, cfg.Log),
		userhandler.NewUserHandler(userService, tokens, cfg.Log),
		appointmenthandler.NewAppointmentHandler(appointmentService, cfg.Log),
		notificationhandler.NewNotificationHandler(notificationService, cfg.Log),
		reviewhandler.NewReviewHandler(reviewService, cfg.Log),
	}

	serverApp.SetApp(
		middleware.Authenticate(tokens, cfg.Log),
		realtime.NewHandler(hub, tokens, cfg.Log),
		handlers...,
	)
	serverApp.Run()
}

// initMailer returns a nil dispatcher when SMTP is not configured; the
// appointment service treats a nil mailer as "skip email".
func initMailer(cfg *config.Config, serverApp *app.Application) *mail.Dispatcher {
	if cfg.SMTPHost == "" {
		cfg.Log.Info("SMTP not configured, email notifications disabled")
		return nil
	}

	sender := mail.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.MailFrom)
	dispatcher := mail.NewDispatcher(sender, mailQueueSize, cfg.Log)
	serverApp.OnShutdown(dispatcher.Stop)
	return dispatcher
}

func initEvents(cfg *config.Config, serverApp *app.Application) kafka.Publisher {
	if len(cfg.KafkaBrokers) == 0 {
		cfg.Log.Info("Kafka not configured, event publishing disabled")
		return kafka.NopPublisher{}
	}

	producer, err := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to initialize Kafka producer", "error", err)
	}
	serverApp.OnShutdown(func() {
		if err := producer.Close(); err != nil {
			cfg.Log.Error("Failed to close Kafka producer", "error", err)
		}
	})
	return producer
}
