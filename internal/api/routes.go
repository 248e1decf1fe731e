package api

func (s *Server) setupRoutes() {
	s.router.GET("/", s.healthHandler.WorkerInfo)
	s.router.GET("/health", s.healthHandler.HealthCheck)

	s.router.POST("/ingest", s.ingestHandler.IngestVideo)
	s.router.POST("/notify", s.notifyHandler.Notify)

	s.router.GET("/logs", s.logsHandler.GetLogs)
	s.router.GET("/summaries", s.summaryHandler.ListSummaries)
	s.router.GET("/ws", s.feedHandler.Feed)

	units := s.router.Group("/units")
	{
		units.GET("", s.unitHandler.ListUnits)
		units.POST("", s.unitHandler.RegisterUnit)
		units.POST("/:id/release", s.unitHandler.ReleaseUnit)
	}

	dispatch := s.router.Group("/dispatch")
	{
		dispatch.POST("", s.dispatchHandler.Dispatch)
		dispatch.GET("/:eventId", s.dispatchHandler.GetInstruction)
	}

	system := s.router.Group("/system")
	{
		system.GET("/stats", s.systemHandler.GetStats)
	}
}
