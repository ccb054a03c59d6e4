package controller

import "github.com/gin-gonic/gin"

// Register mounts the judge endpoints on router.
func Register(router gin.IRouter, submissions *SubmissionController, runs *RunController) {
	api := router.Group("/api/v1")
	api.POST("/submissions", submissions.Create)
	api.GET("/submissions/:id", submissions.Get)
	api.GET("/submissions/:id/status", submissions.GetStatus)
	api.GET("/submissions/:id/results", submissions.GetResults)
	api.GET("/users/:user_id/submissions", submissions.ListByUser)
	api.POST("/run", runs.Run)

	router.GET("/ws/submissions/:id", submissions.Stream)
}
