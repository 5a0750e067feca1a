// Package server assembles the HTTP surface: middleware, health probes, the
// portal API under /api, the upload controller and the realtime feed.
package server

import (
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/medisight/portal/internal/config"
	"github.com/medisight/portal/internal/domain/appointments"
	"github.com/medisight/portal/internal/domain/chat"
	"github.com/medisight/portal/internal/domain/doctors"
	"github.com/medisight/portal/internal/domain/records"
	"github.com/medisight/portal/internal/domain/screening"
	"github.com/medisight/portal/internal/domain/users"
	"github.com/medisight/portal/internal/platform/apierror"
	"github.com/medisight/portal/internal/platform/blobstore"
	"github.com/medisight/portal/internal/platform/db"
	"github.com/medisight/portal/internal/platform/events"
	"github.com/medisight/portal/internal/platform/identity"
	"github.com/medisight/portal/internal/platform/middleware"
	"github.com/medisight/portal/internal/platform/validation"
	"github.com/medisight/portal/internal/platform/websocket"
	"github.com/medisight/portal/internal/storage/memory"
)

const (
	Version = "0.1.0"

	defaultBodyLimit   = "1M"
	defaultUploadLimit = "30M"
)

// Repositories is the storage backend seen by the services.
type Repositories struct {
	Users        users.UserRepository
	Records      records.RecordRepository
	Screening    screening.ResultRepository
	Appointments appointments.AppointmentRepository
	Chat         chat.MessageRepository
}

func PostgresRepositories(pool *pgxpool.Pool) Repositories {
	return Repositories{
		Users:        users.NewUserRepoPG(pool),
		Records:      records.NewRecordRepoPG(pool),
		Screening:    screening.NewResultRepoPG(pool),
		Appointments: appointments.NewAppointmentRepoPG(pool),
		Chat:         chat.NewMessageRepoPG(pool),
	}
}

func MemoryRepositories(store *memory.Store) Repositories {
	return Repositories{
		Users:        store.Users(),
		Records:      store.Records(),
		Screening:    store.ScreeningResults(),
		Appointments: store.Appointments(),
		Chat:         store.ChatMessages(),
	}
}

// Inference is the AI backend used for the assistant and the screenings.
type Inference interface {
	chat.Assistant
	screening.Analyzer
}

// Deps carries everything New needs. Verifier, Inference, Publisher and Hub
// are optional.
type Deps struct {
	Config    *config.Config
	Logger    zerolog.Logger
	Repos     Repositories
	DB        db.Pinger
	Blobs     blobstore.BlobStore
	Verifier  identity.Verifier
	Inference Inference
	// Publisher receives domain events. It defaults to Hub.
	Publisher events.Publisher
	Hub       *websocket.Hub
}

// New builds the echo instance with every route registered.
func New(d Deps) (*echo.Echo, error) {
	if d.Config == nil {
		return nil, errors.New("server: config is required")
	}
	if d.Repos.Users == nil || d.Repos.Records == nil || d.Repos.Screening == nil ||
		d.Repos.Appointments == nil || d.Repos.Chat == nil {
		return nil, errors.New("server: every repository is required")
	}
	if d.Blobs == nil {
		d.Blobs = blobstore.NewInMemoryBlobStore()
	}
	if d.Hub == nil {
		d.Hub = websocket.NewHub(d.Logger)
	}
	if d.Publisher == nil {
		d.Publisher = d.Hub
	}
	publisher := events.BestEffort(d.Publisher, d.Logger)
	cfg := d.Config

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = validation.New()
	e.HTTPErrorHandler = apierror.HTTPErrorHandler(d.Logger)

	e.Use(middleware.Recovery(d.Logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(d.Logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{echo.HeaderContentType, echo.HeaderXRequestID},
	}))
	uploadLimit := cfg.BodyLimit
	if uploadLimit == "" {
		uploadLimit = defaultUploadLimit
	}
	e.Use(middleware.BodyLimit(defaultBodyLimit, uploadLimit))
	e.Use(middleware.RateLimit(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"success": true,
			"status":  "ok",
			"version": Version,
		})
	})
	e.GET("/health/db", db.HealthHandler(d.DB))

	api := e.Group("/api")

	userSvc := users.NewService(d.Repos.Users, users.NewBcryptHasher(cfg.BcryptCost))
	userSvc.SetPublisher(publisher)
	if d.Verifier != nil {
		userSvc.SetIdentityVerifier(d.Verifier)
	}
	users.NewHandler(userSvc).RegisterRoutes(api)

	recordSvc := records.NewService(d.Repos.Records)
	recordSvc.SetPublisher(publisher)
	records.NewHandler(recordSvc).RegisterRoutes(api)

	screeningSvc := screening.NewService(d.Repos.Screening)
	screeningSvc.SetPublisher(publisher)
	if d.Inference != nil {
		screeningSvc.SetAnalyzer(d.Inference)
	}
	screening.NewHandler(screeningSvc).RegisterRoutes(api)

	apptSvc := appointments.NewService(d.Repos.Appointments)
	apptSvc.SetPublisher(publisher)
	appointments.NewHandler(apptSvc).RegisterRoutes(api)

	chatSvc := chat.NewService(d.Repos.Chat)
	chatSvc.SetPublisher(publisher)
	if d.Inference != nil {
		chatSvc.SetAssistant(d.Inference)
	}
	chat.NewHandler(chatSvc).RegisterRoutes(api)

	directory, err := doctors.LoadDefault()
	if err != nil {
		return nil, err
	}
	doctors.NewHandler(directory).RegisterRoutes(api)

	blobstore.NewHandler(d.Blobs, blobstore.WithPublicURL(cfg.S3PublicURL)).RegisterRoutes(e.Group("/upload"))
	websocket.NewHandler(d.Hub, cfg.CORSOrigins).RegisterRoutes(e.Group("/ws"))

	return e, nil
}
