// Package app wires the dependencies and the HTTP routes together
package app

import (
	"context"
	"fmt"
	"time"

	"spendlog/expense-api/app/expense"
	"spendlog/expense-api/app/recovery"
	"spendlog/expense-api/app/root"
	"spendlog/expense-api/app/user"
	"spendlog/expense-api/db"
	"spendlog/expense-api/internal"
	"spendlog/expense-api/internal/reset"
	"spendlog/expense-api/internal/service"
	"spendlog/expense-api/pkg/middleware"
	"spendlog/expense-api/pkg/security"
	"spendlog/expense-api/storage"

	cache "github.com/chenyahui/gin-cache"
	"github.com/chenyahui/gin-cache/persist"
	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	gray      = "\x1b[90m"
	colorless = "\x1b[0m"

	authTTL = time.Hour * 24 * 30
)

var store = persist.NewMemoryStore(time.Minute)

type App struct {
	Router *gin.Engine
	Deps   *internal.Deps

	cleanup *cron.Cron
	closers []func() error
}

type RouterOptions struct {
	CORSOrigins []string
	BodyLimit   int64
}

// NewApp builds every dependency from the loaded config and registers the
// routes. Close releases what it started.
func NewApp(ctx context.Context) (*App, error) {
	makeLogger(viper.GetString("app.log_level"))

	a := &App{}

	gdb, err := db.New(viper.GetString("database.driver"), viper.GetString("database.dsn"))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database, %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database handle, %w", err)
	}
	a.closers = append(a.closers, sqlDB.Close)

	secret := []byte(viper.GetString("security.jwt_secret"))

	markerStore, err := a.newMarkerStore(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	codeStore := reset.NewGormStore(gdb)
	argon := security.New()

	d := &internal.Deps{
		DB:     gdb,
		Argon:  argon,
		Secret: secret,
		Reset: reset.New(codeStore, newNotifier(), argon,
			reset.NewMarkers(secret, viper.GetDuration("reset.marker_ttl"), markerStore),
			reset.Options{
				CodeTTL:             viper.GetDuration("reset.code_ttl"),
				LogUndeliveredCodes: viper.GetBool("reset.log_undelivered_codes"),
			}),
		SecureCookies: viper.GetBool("host.ssl.enabled"),
		AuthTTL:       authTTL,
		Now:           time.Now,
	}

	if bucket := viper.GetString("storage.bucket"); bucket != "" {
		s3, err := storage.NewS3(ctx, storage.Config{
			Bucket:          bucket,
			Region:          viper.GetString("storage.region"),
			Endpoint:        viper.GetString("storage.endpoint"),
			AccessKeyID:     viper.GetString("storage.access_key_id"),
			SecretAccessKey: viper.GetString("storage.secret_access_key"),
		})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to initialize S3 client, %w", err)
		}

		d.Archive = s3
	}

	a.cleanup, err = service.CodeCleanup(
		viper.GetString("reset.purge_schedule"),
		viper.GetDuration("reset.purge_after"),
		codeStore,
	)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Deps = d
	a.Router = NewRouter(d, RouterOptions{
		CORSOrigins: viper.GetStringSlice("host.cors_origins"),
		BodyLimit:   viper.GetInt64("security.body_limit"),
	})

	return a, nil
}

func (a *App) newMarkerStore(ctx context.Context) (reset.MarkerStore, error) {
	if viper.GetString("reset.marker_store") != "redis" {
		s := reset.NewMemoryMarkerStore()
		a.closers = append(a.closers, s.Close)
		return s, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     viper.GetString("redis.addr"),
		Password: viper.GetString("redis.password"),
		DB:       viper.GetInt("redis.db"),
	})
	a.closers = append(a.closers, rdb.Close)

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis, %w", err)
	}

	return reset.NewRedisMarkerStore(rdb), nil
}

func newNotifier() reset.Notifier {
	if viper.GetString("mail.host") == "" {
		return reset.NotifierFunc(func(context.Context, string, string) bool { return false })
	}

	return service.NewMailer(service.MailConfig{
		Host:     viper.GetString("mail.host"),
		Port:     viper.GetInt("mail.port"),
		Username: viper.GetString("mail.username"),
		Password: viper.GetString("mail.password"),
		Sender:   viper.GetString("mail.sender"),
		CodeTTL:  viper.GetDuration("reset.code_ttl"),
	})
}

// Close stops the cleanup job and closes the connections in reverse order.
func (a *App) Close() {
	if a.cleanup != nil {
		<-a.cleanup.Stop().Done()
	}

	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			zap.L().Warn("Failed to close resource", zap.Error(err))
		}
	}
	a.closers = nil
}

// NewRouter registers every route on a new engine.
func NewRouter(d *internal.Deps, o RouterOptions) *gin.Engine {
	router := gin.New()

	if len(o.CORSOrigins) == 0 {
		o.CORSOrigins = []string{"http://localhost:5173"}
	}

	router.Use(
		cors.New(cors.Config{
			AllowOrigins:     o.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
			ExposeHeaders:    []string{"Content-Length", "Content-Disposition", "X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}),
		gin.Recovery(),
		middleware.NewRequestIDMiddleware(),
		ginzap.GinzapWithConfig(zap.L(), &ginzap.Config{
			TimeFormat: "15:04:05.000",
			UTC:        true,
			Skipper: func(c *gin.Context) bool {
				return c.Request.Method == "HEAD"
			},
			Context: func(c *gin.Context) []zapcore.Field {
				fields := []zapcore.Field{}

				if v := c.GetString("requestID"); v != "" {
					fields = append(fields, zap.String("request_id", v))
				}

				if v := c.GetString("userID"); v != "" {
					fields = append(fields, zap.String("userID", v))
				}

				return fields
			},
		}),
		middleware.BodySizeLimiter(o.BodyLimit),
	)

	router.HandleMethodNotAllowed = true
	router.RedirectFixedPath = true

	jwt := middleware.NewJWTMiddleware(d.DB, d.Secret)

	m := router.Group("/api")
	{
		// HEAD /api/heartbeat 		-> Used to check if the server is alive
		m.HEAD("/heartbeat", root.Heartbeat)

		// GET /api/validate		-> Validates the auth cookie
		m.GET("/validate", jwt, root.Validate)

		// GET /api/dashboard		-> Expenses with this year's and month's totals
		m.GET("/dashboard", jwt, func(c *gin.Context) { expense.Dashboard(c, d) })
	}

	u := m.Group("/users")
	{
		// GET /api/users		-> Returns the basic info of a user
		u.GET("", jwt, func(c *gin.Context) { user.UserFetch(c, d) })

		// POST /api/users 		-> Registers a new user
		u.POST("", func(c *gin.Context) { user.UserRegister(c, d) })

		// POST /api/users/login 	-> Logs in a user and sets the auth cookie
		u.POST("/login", func(c *gin.Context) { user.UserLogin(c, d) })

		// POST /api/users/logout 	-> Clears the auth cookies
		u.POST("/logout", jwt, func(c *gin.Context) { user.UserLogout(c, d) })
	}

	r := m.Group("/reset")
	{
		// POST /api/reset/request	-> Emails a reset code
		r.POST("/request", func(c *gin.Context) { recovery.ResetRequest(c, d) })

		// POST /api/reset/verify	-> Checks a code and sets the reset_token cookie
		r.POST("/verify", func(c *gin.Context) { recovery.ResetVerify(c, d) })

		// POST /api/reset/password	-> Sets a new password, needs reset_token
		r.POST("/password", func(c *gin.Context) { recovery.ResetPassword(c, d) })
	}

	e := m.Group("/expenses")
	{
		// GET /api/expenses/options	-> Countries, currencies and categories
		e.GET("/options", cacheFor(5*60), expense.ExpenseOptions)

		// GET /api/expenses/export	-> Downloads a CSV or PDF statement
		e.GET("/export", jwt, func(c *gin.Context) { expense.ExpenseExport(c, d) })

		// GET /api/expenses		-> Lists a user's expenses, newest first
		e.GET("", jwt, func(c *gin.Context) { expense.ExpenseList(c, d) })

		// POST /api/expenses		-> Adds an expense
		e.POST("", jwt, func(c *gin.Context) { expense.ExpenseAdd(c, d) })

		// DELETE /api/expenses/:id	-> Deletes an expense owned by the user
		e.DELETE("/:id", jwt, func(c *gin.Context) { expense.ExpenseDelete(c, d) })
	}

	return router
}

func makeLogger(level string) {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.EncoderConfig.EncodeTime = func(t time.Time, pae zapcore.PrimitiveArrayEncoder) {
		pae.AppendString(gray + t.Format("15:04:05.000") + colorless)
	}
	cfg.EncoderConfig.EncodeCaller = func(ec zapcore.EntryCaller, pae zapcore.PrimitiveArrayEncoder) {
		pae.AppendString(gray + ec.TrimmedPath() + colorless)
	}

	if lvl, err := zapcore.ParseLevel(level); err == nil {
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}

	cfg.DisableStacktrace = true

	log, _ := cfg.Build()
	zap.ReplaceGlobals(log)
}

func cacheFor(sec int) gin.HandlerFunc {
	return cache.CacheByRequestURI(store, time.Second*time.Duration(sec))
}
