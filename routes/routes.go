package routes

import (
	"Medicare/cache"
	"Medicare/config"
	"Medicare/controllers"
	"Medicare/database"
	"Medicare/diagnosis"
	"Medicare/handlers"
	"Medicare/middlewares"
	"Medicare/repositories"
	"Medicare/services"
	"Medicare/utils"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Dependencies is everything the HTTP layer is built from. Cache, Locker,
// Documents, Notifier and ResetMailer may be nil.
type Dependencies struct {
	Config      *config.AppConfig
	DB          *gorm.DB
	Cache       *cache.Cache
	Locker      *database.Locker
	Tokens      *utils.TokenIssuer
	Predictor   diagnosis.Predictor
	Extractor   services.TextExtractor
	Synthesizer services.SummarySynthesizer
	Documents   services.DocumentStore
	Notifier    services.PlanNotifier
	ResetMailer services.ResetMailer
}

// SetupRoutes initializes the routes and middleware for the server
func SetupRoutes(deps Dependencies) http.Handler {
	if deps.Config.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.MaxMultipartMemory = handlers.MaxDocumentSize

	corsConfig := &middlewares.CorsConfig{
		AllowedOrigins:   deps.Config.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", middlewares.RequestIDHeader},
		AllowCredentials: true,
	}
	router.Use(middlewares.CorsMiddleware(corsConfig))

	router.Use(middlewares.NewRateLimiterMiddleware(middlewares.RateLimiterConfig{
		RequestsPerSecond: deps.Config.RateLimitRPS,
		Burst:             deps.Config.RateLimitBurst,
	}))

	router.Use(middlewares.LoggingMiddleware())

	// Initialize repositories, services, and handlers
	hospitalRepo := repositories.NewHospitalRepository(deps.DB, deps.Cache)
	patientRepo := repositories.NewPatientRepository(deps.DB, deps.Cache, deps.Locker)
	recordRepo := repositories.NewMedicalRecordRepository(deps.DB)
	historyRepo := repositories.NewDiseaseHistoryRepository(deps.DB, deps.Locker)
	planRepo := repositories.NewTreatmentPlanRepository(deps.DB, deps.Cache, deps.Locker)

	resetCodes := utils.NewResetCodes(deps.Cache, utils.ResetCodeTTL)
	hospitalService := services.NewHospitalService(hospitalRepo, deps.Tokens, resetCodes, deps.ResetMailer)
	patientService := services.NewPatientService(patientRepo, recordRepo, deps.Predictor, deps.Extractor, deps.Documents)
	diagnosisService := services.NewDiagnosisService(historyRepo, deps.Predictor, deps.Extractor, deps.Synthesizer)
	planService := services.NewTreatmentPlanService(planRepo, patientRepo, hospitalRepo, deps.Notifier)

	tokenAuth := middlewares.TokenAuthMiddleware(deps.Tokens)

	controllers.NewAuthController(handlers.NewAuthHandler(hospitalService)).RegisterRoutes(router, tokenAuth)
	controllers.SetupPatientRoutes(
		router,
		tokenAuth,
		handlers.NewPatientHandler(patientService),
		handlers.NewDiagnosisHandler(diagnosisService),
		handlers.NewTreatmentPlanHandler(planService),
	)
	controllers.SetupRootRoute(router)

	return router
}
