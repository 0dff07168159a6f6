// Package handlers contains the HTTP handlers and middleware of the bot.
//
// # Webhook
//
// LineWebhookHandler authenticates the raw body against X-Line-Signature and
// hands the decoded events to a BatchHandler:
//
//	wh := handlers.NewLineWebhookHandler(handlers.WebhookConfig{
//	    ChannelSecret: cfg.Line.ChannelSecret,
//	}, dispatcher, log)
//	router.Post("/webhook", wh.ServeHTTP)
//
// Responses: 400 for unreadable or malformed bodies, 403 for a bad signature,
// 200 {"ok":true} otherwise. Per-event failures never change the status.
//
// # Health Checks
//
//	checker := handlers.NewCompositeHealthChecker("v1.0.0")
//	checker.AddCheck("store", handlers.NewPingCheck(store))
//	status := checker.Check(ctx)
//
// # Middleware
//
// RequestID, IPRateLimiter.Middleware, SecurityHeadersMiddleware and
// APIKeyAuth.Middleware all have the func(http.Handler) http.Handler shape and
// plug into chi's router.Use.
package handlers
