package router

import (
	"errors"
	"time"

	"somosrentable-backend/internal/application/accounts"
	authsvc "somosrentable-backend/internal/application/auth"
	docsvc "somosrentable-backend/internal/application/documents"
	healthsvc "somosrentable-backend/internal/application/health"
	"somosrentable-backend/internal/application/funnel"
	invsvc "somosrentable-backend/internal/application/investments"
	kycsvc "somosrentable-backend/internal/application/kyc"
	leadsvc "somosrentable-backend/internal/application/leads"
	"somosrentable-backend/internal/application/notifications"
	projsvc "somosrentable-backend/internal/application/projects"
	ressvc "somosrentable-backend/internal/application/reservations"
	statsvc "somosrentable-backend/internal/application/statistics"
	"somosrentable-backend/internal/config"
	"somosrentable-backend/internal/constants"
	"somosrentable-backend/internal/infrastructure/database"
	authhandler "somosrentable-backend/internal/interfaces/handlers/auth"
	healthhandler "somosrentable-backend/internal/interfaces/handlers/health"
	invhandler "somosrentable-backend/internal/interfaces/handlers/investments"
	kychandler "somosrentable-backend/internal/interfaces/handlers/kyc"
	leadhandler "somosrentable-backend/internal/interfaces/handlers/leads"
	payhandler "somosrentable-backend/internal/interfaces/handlers/payments"
	projhandler "somosrentable-backend/internal/interfaces/handlers/projects"
	reshandler "somosrentable-backend/internal/interfaces/handlers/reservations"
	stathandler "somosrentable-backend/internal/interfaces/handlers/statistics"
	uploadhandler "somosrentable-backend/internal/interfaces/handlers/uploads"
	userhandler "somosrentable-backend/internal/interfaces/handlers/users"
	"somosrentable-backend/internal/middleware"
	"somosrentable-backend/internal/platform/metrics"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// App is the assembled HTTP server plus the pieces cmd/api runs beside it.
type App struct {
	Fiber    *fiber.App
	DB       *gorm.DB
	Rdb      *redis.Client
	Registry *prometheus.Registry
	Sweeper  *ressvc.Sweeper
}

// Services holds the wired application layer.
type Services struct {
	Accounts     *accounts.Service
	Leads        *leadsvc.Service
	Reservations *ressvc.Service
	KYC          *kycsvc.Service
	Investments  *invsvc.Service
	Funnel       *funnel.Service
	Projects     *projsvc.Service
	Documents    *docsvc.Service
	Statistics   *statsvc.Service
	Notifier     *notifications.Notifier
	Metrics      *metrics.Metrics
}

// NewServices wires every service against one DB handle. Cross-service
// hooks (lead linking, conversion, notifications) are set here.
func NewServices(cfg *config.Config, db *gorm.DB, rdb *redis.Client, m *metrics.Metrics) *Services {
	var mailer notifications.Mailer
	switch {
	case cfg.SendinblueAPIKey != "":
		mailer = &notifications.BrevoClient{APIKey: cfg.SendinblueAPIKey, MailFrom: cfg.MailFrom}
	case cfg.SMTPHost != "":
		mailer = &notifications.SMTPMailer{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			User:     cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			MailFrom: cfg.MailFrom,
		}
	}
	notifier := &notifications.Notifier{Mailer: mailer, DB: db, PublicBaseURL: cfg.PublicBaseURL}

	docs := &docsvc.Service{Store: &docsvc.SupabaseStore{
		BaseURL:   cfg.SupabaseURL,
		SecretKey: cfg.SupabaseSecretKey,
	}}
	acc := &accounts.Service{DB: db}
	leads := &leadsvc.Service{DB: db, Metrics: m}
	inv := &invsvc.Service{DB: db, Documents: docs, Notifier: notifier, Metrics: m}
	res := &ressvc.Service{
		DB:          db,
		Leads:       leads,
		Investments: inv,
		Notifier:    notifier,
		Metrics:     m,
		Validity:    cfg.ReservationValidity,
	}
	fn := &funnel.Service{DB: db, Accounts: acc, Leads: leads, Reservations: res, Notifier: notifier}
	res.Converter = fn

	return &Services{
		Accounts:     acc,
		Leads:        leads,
		Reservations: res,
		KYC: &kycsvc.Service{
			DB:                  db,
			Documents:           docs,
			Random:              kycsvc.NewRandomSource(time.Now().UnixNano()),
			ApprovalProbability: &cfg.KYCApprovalProbability,
			Notifier:            notifier,
			Metrics:             m,
		},
		Investments: inv,
		Funnel:      fn,
		Projects:    &projsvc.Service{DB: db},
		Documents:   docs,
		Statistics:  &statsvc.Service{DB: db, Rdb: rdb},
		Notifier:    notifier,
		Metrics:     m,
	}
}

// CreateApp opens Postgres and Redis from cfg and builds the app.
func CreateApp(cfg *config.Config) (*App, error) {
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if cfg.AutoMigrate {
		if err := database.AutoMigrate(db); err != nil {
			return nil, err
		}
		log.Info().Msg("database schema migrated")
	}

	rdb, err := middleware.NewRedisClient(cfg.RedisURL)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return New(cfg, db, rdb, reg), nil
}

// New assembles the Fiber app over ready connections.
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, reg *prometheus.Registry) *App {
	svc := NewServices(cfg, db, rdb, metrics.New(reg))

	app := fiber.New(fiber.Config{
		DisableStartupMessage:   true,
		ErrorHandler:            middleware.ErrorHandler(rdb),
		EnableTrustedProxyCheck: true,
	})

	app.Use(middleware.Tracing())
	app.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		PreviewSuffix:  cfg.CORSPreviewSuffix,
	}))
	app.Use(middleware.Session(rdb))
	app.Use(middleware.HealthMarker(rdb))
	app.Use(middleware.RouteLogger())

	hh := &healthhandler.Handlers{
		Checker: &healthsvc.Checker{
			Rdb:  rdb,
			DB:   &database.Pinger{DB: db},
			Gorm: db,
		},
		AdminKey: cfg.HealthAdminKey,
	}
	app.Get("/reset", hh.Reset)
	app.Get("/health/json", hh.JSON)
	app.Get("/health/errors", hh.Errors)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	sessionCfg := middleware.SessionConfig{
		AllowCrossSiteDev: cfg.AllowCrossSiteDev,
		IsProduction:      cfg.Env == "production",
	}

	api := app.Group("/api/v1")
	auth := middleware.RequireAuth()
	can := middleware.AuthorizePermission

	ah := &authhandler.Handlers{
		UserFinder: &authsvc.GormUserFinder{DB: db},
		Funnel:     svc.Funnel,
		Accounts:   svc.Accounts,
		Rdb:        rdb,
		Config:     sessionCfg,
	}
	ag := api.Group("/auth")
	ag.Post("/register", ah.Register)
	ag.Post("/login", ah.Login)
	ag.Get("/me", ah.Me)
	ag.Delete("/logout", ah.Logout)

	ph := &projhandler.Handlers{Service: svc.Projects}
	pg := api.Group("/projects")
	pg.Get("/", ph.List)
	pg.Get("/:slug", ph.Get)
	pg.Get("/:slug/calculate-return", ph.CalculateReturn)
	pg.Post("/", auth, can(constants.ProjectManage), ph.Create)
	pg.Patch("/:slug", auth, can(constants.ProjectManage), ph.Update)
	pg.Post("/:slug/images", auth, can(constants.ProjectManage), ph.AddImage)

	rh := &reshandler.Handlers{Service: svc.Reservations, Funnel: svc.Funnel}
	rg := api.Group("/reservations")
	rg.Post("/", rh.Create)
	rg.Get("/my", auth, rh.Mine)
	rg.Post("/sweep", auth, can(constants.ReserveManage), rh.Sweep)
	rg.Get("/:token", rh.Get)
	rg.Post("/:token/convert", auth, rh.Convert)
	rg.Delete("/:token/cancel", rh.Cancel)

	kh := &kychandler.Handlers{Service: svc.KYC}
	kg := api.Group("/kyc", auth)
	kg.Get("/status", kh.Status)
	kg.Post("/submit", can(constants.KYCSubmit), kh.Submit)
	kg.Get("/submissions", can(constants.KYCReview), kh.List)
	kg.Get("/submissions/:id", can(constants.KYCReview), kh.Get)
	kg.Post("/submissions/:id/review", can(constants.KYCReview), kh.Review)

	ih := &invhandler.Handlers{Service: svc.Investments}
	ig := api.Group("/investments", auth)
	ig.Get("/", ih.List)
	ig.Post("/", can(constants.InvestmentCreate), middleware.RequireVerified(db), ih.Create)
	ig.Get("/:id", ih.Get)
	ig.Get("/:id/projection", ih.Projection)

	payh := &payhandler.Handlers{Service: svc.Investments}
	payg := api.Group("/payments", auth)
	payg.Post("/proof", can(constants.PaymentUpload), payh.UploadProof)
	payg.Get("/pending", can(constants.PaymentReview), payh.Pending)
	payg.Get("/:id", payh.Get)
	payg.Post("/:id/review", can(constants.PaymentReview), payh.Review)

	lh := &leadhandler.Handlers{Service: svc.Leads}
	lg := api.Group("/leads")
	lg.Post("/contact", lh.Contact)
	lg.Post("/webhook", middleware.APIKey(cfg.WebhookAPIKey), lh.Webhook)
	lg.Get("/", auth, can(constants.LeadView), lh.List)
	lg.Get("/my", auth, can(constants.LeadView), lh.Mine)
	lg.Get("/export", auth, can(constants.LeadView), lh.Export)
	lg.Post("/", auth, can(constants.LeadManage), lh.Create)
	lg.Get("/:id", auth, can(constants.LeadView), lh.Get)
	lg.Patch("/:id", auth, can(constants.LeadManage), lh.Update)
	lg.Post("/:id/assign", auth, can(constants.LeadAssign), lh.Assign)
	lg.Get("/:id/interactions", auth, can(constants.LeadView), lh.Interactions)
	lg.Post("/:id/interactions", auth, can(constants.LeadManage), lh.AddInteraction)

	uph := &uploadhandler.Handlers{Service: svc.Documents}
	upg := api.Group("/uploads", auth)
	upg.Post("/kyc-document", can(constants.KYCSubmit), uph.KYCDocument)
	upg.Post("/payment-proof", can(constants.PaymentUpload), uph.PaymentProof)

	sh := &stathandler.Handlers{Service: svc.Statistics}
	sg := api.Group("/statistics", auth)
	sg.Get("/platform", can(constants.StatsView), sh.Platform)
	sg.Get("/executives", can(constants.StatsView), sh.Executives)
	sg.Get("/executives/:id", can(constants.StatsViewOwn), sh.Executive)
	sg.Get("/my", can(constants.StatsViewOwn), sh.Mine)
	sg.Get("/projects", can(constants.StatsView), sh.Projects)
	sg.Get("/lead-sources", can(constants.StatsView), sh.LeadSources)

	uh := &userhandler.Handlers{Accounts: svc.Accounts, Rdb: rdb}
	ug := api.Group("/users", auth)
	ug.Get("/executives", can(constants.UserView), uh.Executives)
	ug.Post("/staff", can(constants.UserManage), uh.CreateStaff)
	ug.Patch("/:id/active", can(constants.UserManage), uh.SetActive)

	return &App{
		Fiber:    app,
		DB:       db,
		Rdb:      rdb,
		Registry: reg,
		Sweeper: &ressvc.Sweeper{
			Service:  svc.Reservations,
			Rdb:      rdb,
			Interval: cfg.ExpirySweepInterval,
		},
	}
}
