package handler

import (
	"github.com/gin-gonic/gin"
)

// Handlers bundles every HTTP handler for route registration.
type Handlers struct {
	Auth      *AuthHandler
	Courses   *CourseHandler
	Faculties *FacultyHandler
	Groups    *GroupHandler
	Templates *TemplateHandler
	Degrees   *DegreeHandler
	Schedules *ScheduleHandler
}

// RegisterRoutes mounts the API surface under the given prefix. The
// requireAuth middleware guards every route that reads or mutates
// user-owned state or edits shared reference data.
func RegisterRoutes(r *gin.Engine, prefix string, h Handlers, requireAuth gin.HandlerFunc) {
	api := r.Group(prefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", h.Auth.Login)
		auth.POST("/refresh", h.Auth.Refresh)
		auth.GET("/me", requireAuth, h.Auth.Me)
		auth.POST("/logout", requireAuth, h.Auth.Logout)
	}

	courses := api.Group("/courses")
	{
		courses.GET("", h.Courses.List)
		courses.GET("/search", h.Courses.Search)
		courses.GET("/:code", h.Courses.Get)
		courses.POST("", requireAuth, h.Courses.Create)
		courses.PUT("/:code", requireAuth, h.Courses.Update)
		courses.DELETE("/:code", requireAuth, h.Courses.Delete)
	}

	faculties := api.Group("/faculties")
	{
		faculties.GET("", h.Faculties.List)
		faculties.GET("/:name", h.Faculties.Get)
		faculties.POST("", requireAuth, h.Faculties.Create)
		faculties.DELETE("/:name", requireAuth, h.Faculties.Delete)
	}

	groups := api.Group("/course-groups")
	{
		groups.GET("", h.Groups.List)
		groups.GET("/:id", h.Groups.Get)
		groups.POST("", requireAuth, h.Groups.Create)
		groups.PUT("/:id", requireAuth, h.Groups.Update)
		groups.DELETE("/:id", requireAuth, h.Groups.Delete)
		groups.POST("/:id/courses", requireAuth, h.Groups.AddCourse)
		groups.DELETE("/:id/courses/:code", requireAuth, h.Groups.RemoveCourse)
	}

	templates := api.Group("/templates")
	{
		templates.GET("", h.Templates.List)
		templates.GET("/:id", h.Templates.Get)
		templates.GET("/:id/requirements", h.Templates.ListRequirements)
		templates.POST("/:id/requirements", requireAuth, h.Templates.CreateRequirement)
	}
	api.PUT("/requirements/:id", requireAuth, h.Templates.UpdateRequirement)
	api.DELETE("/requirements/:id", requireAuth, h.Templates.DeleteRequirement)

	users := api.Group("/users/:id", requireAuth)
	{
		users.GET("/degree", h.Degrees.GetState)
		users.POST("/degree", h.Degrees.Select)
		users.GET("/degree/export", h.Degrees.Export)
		users.PATCH("/degree/requirements/:reqId", h.Degrees.SetForceCompleted)
		users.POST("/degree/requirements/:reqId/courses", h.Degrees.AddCourse)
		users.DELETE("/degree/requirements/:reqId/courses/:code", h.Degrees.RemoveCourse)
		users.POST("/degree/groups/:groupId/courses", h.Degrees.AddCourse)
		users.DELETE("/degree/groups/:groupId/courses/:code", h.Degrees.RemoveCourse)

		users.GET("/schedule", h.Schedules.Get)
		users.POST("/schedule", h.Schedules.Add)
		users.PUT("/schedule", h.Schedules.Move)
		users.PATCH("/schedule/current-term", h.Schedules.SetCurrentTerm)
		users.DELETE("/schedule/:code", h.Schedules.Remove)
	}
}
