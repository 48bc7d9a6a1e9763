package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tanpii/sportly-back/internal/config"
	"github.com/tanpii/sportly-back/internal/handlers"
	"github.com/tanpii/sportly-back/internal/middleware"
	"github.com/tanpii/sportly-back/internal/repository"
	"github.com/tanpii/sportly-back/internal/services"
)

func RegisterRoutes(app *fiber.App, cfg *config.Config, db *pgxpool.Pool) {
	userRepo := repository.NewUserRepository(db)
	workoutRepo := repository.NewWorkoutRepository(db)
	courseRepo := repository.NewCourseRepository(db)

	var storageService services.StorageService
	if cfg.StorageConfigured() {
		storageService = services.NewSupabaseStorageService(cfg.SupabaseURL, cfg.SupabaseBucket, cfg.SupabaseServiceKey)
	}

	membershipService := services.NewMembershipService(db, workoutRepo, courseRepo)
	catalogService := services.NewCatalogService(userRepo, workoutRepo, courseRepo)

	authHandler := handlers.NewAuthHandler(userRepo, storageService, cfg.JWTSecret)
	profileHandler := handlers.NewProfileHandler(userRepo, storageService)
	workoutHandler := handlers.NewWorkoutHandler(membershipService, catalogService)
	courseHandler := handlers.NewCourseHandler(membershipService, catalogService)
	coachHandler := handlers.NewCoachHandler(catalogService)

	auth := middleware.AuthRequired(cfg.JWTSecret)

	api := app.Group("/api")

	users := api.Group("/users")
	users.Post("", authHandler.RegisterUser)
	users.Post("/login", authHandler.Login)
	users.Get("/me", auth, authHandler.Me)
	users.Post("/profile/photo", auth, profileHandler.UploadPhoto)

	coaches := api.Group("/coaches")
	coaches.Post("", authHandler.RegisterCoach)
	coaches.Get("", coachHandler.ListCoaches)
	coaches.Get("/:id", coachHandler.GetCoach)

	workouts := api.Group("/workouts")
	workouts.Post("", auth, workoutHandler.CreateWorkout)
	workouts.Get("", workoutHandler.ListWorkouts)
	workouts.Get("/:id", workoutHandler.GetWorkout)
	workouts.Delete("/:id", auth, workoutHandler.DeleteWorkout)
	workouts.Post("/:id/enroll", auth, workoutHandler.Enroll)
	workouts.Post("/:id/unenroll", auth, workoutHandler.Unenroll)

	courses := api.Group("/courses")
	courses.Post("", auth, courseHandler.CreateCourse)
	courses.Get("", courseHandler.ListCourses)
	courses.Get("/:id", courseHandler.GetCourse)
	courses.Delete("/:id", auth, courseHandler.DeleteCourse)
	courses.Post("/:id/workouts/:workoutId/remove", auth, courseHandler.RemoveWorkout)
	courses.Post("/:id/enroll", auth, courseHandler.Enroll)
	courses.Post("/:id/unenroll", auth, courseHandler.Unenroll)

	my := api.Group("/my", auth)
	my.Get("/workouts", workoutHandler.MyWorkouts)
	my.Get("/courses", courseHandler.MyCourses)
	my.Get("/courses/:id", courseHandler.MyCourse)
}
