package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mcastellanos/fotoescolar-backend/api/controllers"
	webhookcontrollers "github.com/mcastellanos/fotoescolar-backend/api/controllers/webhooks"
	"github.com/mcastellanos/fotoescolar-backend/api/middleware"
	"github.com/mcastellanos/fotoescolar-backend/internal/auth"
	"github.com/mcastellanos/fotoescolar-backend/internal/events"
	"github.com/mcastellanos/fotoescolar-backend/internal/folders"
	"github.com/mcastellanos/fotoescolar-backend/internal/orders"
	"github.com/mcastellanos/fotoescolar-backend/internal/photos"
	"github.com/mcastellanos/fotoescolar-backend/internal/shares"
	"github.com/mcastellanos/fotoescolar-backend/internal/subjects"
	mercadopagowebhook "github.com/mcastellanos/fotoescolar-backend/internal/webhooks/mercadopago"
	"github.com/mcastellanos/fotoescolar-backend/pkg/auth/session"
	"github.com/mcastellanos/fotoescolar-backend/pkg/config"
	"github.com/mcastellanos/fotoescolar-backend/pkg/enums"
	"github.com/mcastellanos/fotoescolar-backend/pkg/logger"
	"github.com/mcastellanos/fotoescolar-backend/pkg/redis"
	"github.com/mcastellanos/fotoescolar-backend/pkg/storage/gcs"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP controllers.Pinger,
	redisClient *redis.Client,
	gcsClient *gcs.Client,
	bigqueryP controllers.Pinger,
	sessionChecker session.Checker,
	authService auth.Service,
	eventsService events.Service,
	foldersService folders.Service,
	photosService photos.Service,
	subjectsService subjects.Service,
	sharesService shares.Service,
	galleryValidator controllers.GalleryValidator,
	ordersService orders.Service,
	mpWebhookService webhookcontrollers.MercadoPagoWebhookService,
	mpVerifier *mercadopagowebhook.Verifier,
	mpGuard *mercadopagowebhook.IdempotencyGuard,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive())
		r.Get("/ready", controllers.HealthReady(map[string]controllers.Pinger{
			"postgres": dbP,
			"redis":    redisClient,
			"gcs":      gcsClient,
			"bigquery": bigqueryP,
		}, logg))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// Public storefront. Both the gallery and order placement sit behind the
	// share-token rate limiter so token guessing stays expensive.
	r.Group(func(r chi.Router) {
		r.Use(middleware.ShareRateLimit(cfg.ShareRateLimit, redisClient, logg))
		r.Post("/gallery/{token}", controllers.ValidateGallery(galleryValidator, gcsClient, cfg.GCS, logg))
		r.Post("/gallery/{token}/orders", controllers.CreateOrder(ordersService, logg))
	})
	r.Get("/orders/{orderID}", controllers.GetOrder(ordersService, logg))

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/mercadopago", webhookcontrollers.MercadoPagoWebhook(mpWebhookService, mpVerifier, mpGuard, logg))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, redisClient, logg)).Post("/login", controllers.Login(authService, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, sessionChecker, logg))
			r.Post("/logout", controllers.Logout(authService, logg))
			r.Get("/me", controllers.Profile(authService, logg))
			r.With(middleware.RequireRole(string(enums.UserRoleAdmin), logg)).Post("/register", controllers.Register(authService, logg))
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessionChecker, logg))

		r.Route("/events", func(r chi.Router) {
			r.Post("/", controllers.CreateEvent(eventsService, logg))
			r.Get("/", controllers.ListEvents(eventsService, logg))
			r.Get("/{eventID}", controllers.GetEvent(eventsService, logg))
			r.Patch("/{eventID}", controllers.UpdateEvent(eventsService, logg))
			r.Get("/{eventID}/folders", controllers.FolderTree(foldersService, logg))
			r.Get("/{eventID}/subjects", controllers.ListEventSubjects(subjectsService, logg))
			r.Get("/{eventID}/shares", controllers.ListEventShares(sharesService, logg))
		})

		r.Post("/folders", controllers.CreateFolder(foldersService, logg))
		r.Get("/folders/{folderID}/photos", controllers.ListFolderPhotos(photosService, logg))

		r.Route("/photos", func(r chi.Router) {
			r.Post("/presign", controllers.PresignUpload(photosService, logg))
			r.Get("/{photoID}", controllers.GetPhoto(photosService, logg))
			r.Post("/{photoID}/finalize", controllers.FinalizePhoto(photosService, logg))
			r.Post("/{photoID}/approve", controllers.ApprovePhoto(photosService, logg))
		})

		r.Route("/subjects", func(r chi.Router) {
			r.Post("/", controllers.CreateSubject(subjectsService, logg))
			r.Post("/assign", controllers.AssignSubject(subjectsService, logg))
			r.Post("/unassign", controllers.UnassignSubject(subjectsService, logg))
			r.Post("/assign/batch", controllers.BatchAssignSubjects(subjectsService, logg))
		})

		r.Route("/shares", func(r chi.Router) {
			r.Post("/", controllers.CreateShare(sharesService, logg))
			r.Get("/{shareID}", controllers.GetShare(sharesService, logg))
			r.Patch("/{shareID}", controllers.UpdateShare(sharesService, logg))
			r.Delete("/{shareID}", controllers.RevokeShare(sharesService, logg))
			r.Get("/{shareID}/orders", controllers.ListShareOrders(ordersService, logg))
		})
	})

	return r
}
