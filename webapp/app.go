package webapp

import (
	"context"
	"embed"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"diagserve/config"
)

//go:embed templates/*.html
var templates embed.FS

type ctxKey struct{}

// RequestID returns the id the form app assigned to the current request.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

type App struct {
	client  *APIClient
	columns int
	logger  *zap.Logger
}

// NewApp builds the gin engine for the form.
func NewApp(client *APIClient, cfg config.Webapp, logger *zap.Logger) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	app := &App{client: client, columns: cfg.Columns, logger: logger}

	engine := gin.New()
	engine.Use(gin.Recovery(), app.requestLogger())
	engine.SetHTMLTemplate(template.Must(template.ParseFS(templates, "templates/*.html")))

	engine.GET("/", app.index)
	engine.POST("/predict", app.submit)
	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return engine
}

func (a *App) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		id := uuid.NewString()
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), ctxKey{}, id))
		c.Header("X-Request-ID", id)

		c.Next()

		a.logger.Info("request",
			zap.String("request_id", id),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)))
	}
}

func (a *App) basePage() page {
	return page{APIBaseURL: a.client.BaseURL(), Disclaimer: disclaimer}
}

func (a *App) index(c *gin.Context) {
	p := a.basePage()
	schema, err := a.client.Features(c.Request.Context())
	if err != nil {
		a.schemaFailed(c, p, err)
		return
	}
	p.Columns = layout(schema, nil, a.columns)
	c.HTML(http.StatusOK, "index.html", p)
}

func (a *App) submit(c *gin.Context) {
	p := a.basePage()
	ctx := c.Request.Context()
	schema, err := a.client.Features(ctx)
	if err != nil {
		a.schemaFailed(c, p, err)
		return
	}

	values, raw, err := parseValues(schema, c.GetPostForm)
	p.Columns = layout(schema, raw, a.columns)
	if err != nil {
		p.Error = err.Error()
		c.HTML(http.StatusUnprocessableEntity, "index.html", p)
		return
	}

	result, err := a.client.Predict(ctx, values)
	if err != nil {
		a.logger.Warn("prediction request failed", zap.String("request_id", RequestID(ctx)), zap.Error(err))
		p.Error = errorMessage(err)
		c.HTML(http.StatusOK, "index.html", p)
		return
	}
	p.Outcome, err = outcomeFor(result)
	if err != nil {
		p.Error = err.Error()
	}
	c.HTML(http.StatusOK, "index.html", p)
}

// schemaFailed renders the blocking error page; no form is shown.
func (a *App) schemaFailed(c *gin.Context, p page, err error) {
	a.logger.Warn("schema unavailable", zap.String("request_id", RequestID(c.Request.Context())), zap.Error(err))
	p.SchemaError = schemaUnavailable
	p.Detail = errorMessage(err)
	c.HTML(http.StatusServiceUnavailable, "index.html", p)
}
