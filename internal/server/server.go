package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/notalys/notalys/internal/acttemplate"
	templatedomain "github.com/notalys/notalys/internal/acttemplate/domain"
	"github.com/notalys/notalys/internal/bareme"
	baremedomain "github.com/notalys/notalys/internal/bareme/domain"
	"github.com/notalys/notalys/internal/config"
	"github.com/notalys/notalys/internal/feecalc"
	feedomain "github.com/notalys/notalys/internal/feecalc/domain"
	"github.com/notalys/notalys/internal/invoice"
	invoicedomain "github.com/notalys/notalys/internal/invoice/domain"
	"github.com/notalys/notalys/internal/ledger"
	"github.com/notalys/notalys/internal/observability"
	obsmiddleware "github.com/notalys/notalys/internal/observability/logger"
	obsmetrics "github.com/notalys/notalys/internal/observability/metrics"
	obstracing "github.com/notalys/notalys/internal/observability/tracing"
	"github.com/notalys/notalys/internal/tax"
	taxdomain "github.com/notalys/notalys/internal/tax/domain"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	tax.Module,
	bareme.Module,
	acttemplate.Module,
	feecalc.Module,
	ledger.Module,
	invoice.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine      *gin.Engine
	cfg         config.Config
	taxSvc      taxdomain.Service
	baremeSvc   baremedomain.Service
	templateSvc templatedomain.Service
	feeCalcSvc  feedomain.Service
	invoiceSvc  invoicedomain.Service
}

type ServerParams struct {
	fx.In

	Gin         *gin.Engine
	Cfg         config.Config
	TaxSvc      taxdomain.Service
	BaremeSvc   baremedomain.Service
	TemplateSvc templatedomain.Service
	FeeCalcSvc  feedomain.Service
	InvoiceSvc  invoicedomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:      p.Gin,
		cfg:         p.Cfg,
		taxSvc:      p.TaxSvc,
		baremeSvc:   p.BaremeSvc,
		templateSvc: p.TemplateSvc,
		feeCalcSvc:  p.FeeCalcSvc,
		invoiceSvc:  p.InvoiceSvc,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) registerAPIRoutes() {
	v1 := s.engine.Group("/v1")

	taxes := v1.Group("/tax-definitions")
	taxes.POST("", s.CreateTaxDefinition)
	taxes.GET("", s.ListTaxDefinitions)
	taxes.GET("/:id", s.GetTaxDefinition)
	taxes.PATCH("/:id", s.UpdateTaxDefinition)
	taxes.POST("/:id/disable", s.DisableTaxDefinition)

	baremes := v1.Group("/baremes")
	baremes.POST("", s.CreateBareme)
	baremes.GET("", s.ListBaremes)
	baremes.GET("/:id", s.GetBareme)

	templates := v1.Group("/act-templates")
	templates.POST("", s.CreateActTemplate)
	templates.GET("", s.ListActTemplates)
	templates.GET("/:id", s.GetActTemplate)
	templates.PUT("/:id", s.UpdateActTemplate)
	templates.DELETE("/:id", s.DeleteActTemplate)
	templates.POST("/:id/evaluate", s.EvaluateActTemplate)

	invoices := v1.Group("/invoices")
	invoices.POST("", s.CreateInvoice)
	invoices.GET("", s.ListInvoices)
	invoices.GET("/:id", s.GetInvoice)
	invoices.POST("/:id/send", s.SendInvoice)
	invoices.POST("/:id/cancel", s.CancelInvoice)
	invoices.POST("/:id/payments", s.RecordPayment)
	invoices.POST("/:id/adjustments", s.RecordAdjustment)
	invoices.GET("/:id/ledger-lines", s.InvoiceLedgerLines)
	invoices.POST("/:id/post-ledger", s.PostInvoiceLedger)
}
