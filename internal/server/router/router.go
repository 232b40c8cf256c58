package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/mamadbah2/milkman/internal/server/handlers"
)

// Handlers groups the HTTP adapters mounted by New.
type Handlers struct {
	Accounts gin.HandlerFunc
	Records  *handlers.RecordsHandler
	Reports  *handlers.ReportsHandler
	Admin    *handlers.AdminHandler
}

// Options toggles optional endpoints.
type Options struct {
	MetricsEnabled bool
}

// New wires the Gin engine with required routes and middlewares.
func New(h Handlers, opts Options, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(zapLoggerMiddleware(logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if opts.MetricsEnabled {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	api := r.Group("/api", h.Accounts)
	{
		api.GET("/snapshot", h.Records.Snapshot)
		api.GET("/snapshot/stream", h.Records.Stream)
		api.GET("/usage", h.Records.Usage)
		api.GET("/dashboard", h.Reports.Dashboard)
		api.GET("/diary", h.Reports.Day)
		api.GET("/diary/:date", h.Reports.Day)

		api.POST("/customers", h.Records.CreateCustomer)
		api.PATCH("/customers/:id", h.Records.UpdateCustomer)
		api.DELETE("/customers/:id", h.Records.DeleteCustomer)
		api.GET("/customers/:id/ledger", h.Reports.CustomerLedger)

		api.POST("/entries", h.Records.CreateEntry)
		api.PATCH("/entries/:id", h.Records.UpdateEntry)
		api.PUT("/entries/:id/price", h.Records.CorrectEntryPrice)
		api.DELETE("/entries/:id", h.Records.DeleteEntry)

		api.POST("/payments", h.Records.CreatePayment)
		api.DELETE("/payments/:id", h.Records.DeletePayment)

		api.GET("/reports/:month", h.Reports.Monthly)
		api.GET("/reports/:month/customers/:id", h.Reports.CustomerMonth)
		api.GET("/reports/:month/customers/:id/share", h.Reports.Share)
		api.POST("/reports/:month/customers/:id/share", h.Reports.SendShare)
		api.GET("/reports/:month/export.csv", h.Reports.ExportCSV)
		api.GET("/reports/:month/export.xlsx", h.Reports.ExportXLSX)
		api.POST("/reports/:month/sheets", h.Reports.ExportSheet)

		api.GET("/plans", h.Admin.Plans)
		api.GET("/admin/accounts", h.Admin.Accounts)
		api.PUT("/admin/accounts/:accountId/plan", h.Admin.ChangePlan)
	}

	if logger != nil {
		logger.Info("router initialized", zap.Bool("metrics", opts.MetricsEnabled))
	}

	return r
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.String("account", c.GetHeader(handlers.AccountHeader)))
	}
}
