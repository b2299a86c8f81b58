package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/mgulec/taskroom/api/ws"
	"github.com/mgulec/taskroom/config"
	"github.com/mgulec/taskroom/internal/domain"
	"github.com/mgulec/taskroom/internal/jsonstore"
	"github.com/mgulec/taskroom/internal/metrics"
	natsclient "github.com/mgulec/taskroom/internal/nats"
	"github.com/mgulec/taskroom/internal/protocol"
	"github.com/mgulec/taskroom/internal/realtime"
	redisclient "github.com/mgulec/taskroom/internal/redis"
	"github.com/mgulec/taskroom/internal/websocket"
	"github.com/mgulec/taskroom/pkg/logger"
	"github.com/mgulec/taskroom/service"
)

const chatDoc = "chatrooms"

// App holds all wired dependencies for one server process.
type App struct {
	cfg  config.Config
	logg logger.Logger

	natsClient  *natsclient.Client
	redisClient *redisclient.Client
	store       realtime.Store
	tasks       *service.TaskService
	chat        *service.ChatService
	hub         *websocket.Hub
	httpServer  *http.Server

	rootCtx context.Context
	cancel  context.CancelFunc
}

// NewApp initializes and connects all application dependencies.
func NewApp(cfg config.Config) (*App, error) {
	baseLogger := logger.NewLogger(cfg.LogLevel, cfg.LogFile)
	rootCtx := logger.NewContext(context.Background(), baseLogger)
	rootCtx, cancel := context.WithCancel(rootCtx)

	log := baseLogger.WithModule("app")
	log.Infof("initializing application components")

	a := &App{cfg: cfg, logg: log, rootCtx: rootCtx, cancel: cancel}

	docs, err := jsonstore.New(cfg.DataDir)
	if err != nil {
		cancel()
		return nil, err
	}

	if err := a.buildStore(docs, baseLogger); err != nil {
		cancel()
		return nil, err
	}

	removalDelay := time.Duration(cfg.RemovalDelayMS) * time.Millisecond
	a.tasks, err = service.NewTaskService(docs, cfg.SecretCode, cfg.AdminCode, removalDelay, baseLogger.WithModule("tasks"))
	if err != nil {
		a.closeClients()
		cancel()
		return nil, fmt.Errorf("task service: %w", err)
	}

	enumerable := cfg.ChatBackend == config.BackendLocal
	a.chat, err = service.NewChatService(rootCtx, a.store, enumerable, baseLogger.WithModule("chat"))
	if err != nil {
		a.closeClients()
		cancel()
		return nil, fmt.Errorf("chat service: %w", err)
	}

	m := metrics.New()
	a.hub = websocket.NewHub(m, baseLogger.WithModule("hub"))

	// Every task mutation fans out to all attached clients.
	a.tasks.SetOnChange(func(tasks []domain.Task, stats domain.TaskStats) {
		a.hub.Broadcast <- protocol.Event{
			Type:  protocol.EventTaskList,
			Tasks: protocol.TaskViews(tasks),
			Stats: &stats,
		}
	})

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(func(c *gin.Context) {
		log.Debugf("request: %s", c.Request.URL.Path)
		c.Next()
	})

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	engine.Use(cors.New(corsConfig))

	engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, map[string]string{"info": "pong"})
	})
	engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(m.Reg, promhttp.HandlerOpts{})))

	ws.RegisterRoutes(engine, ws.WSConfig{
		Tasks:    a.tasks,
		Chat:     a.chat,
		Store:    a.store,
		Hub:      a.hub,
		Metrics:  m,
		Validate: validator.New(),
		RootCtx:  rootCtx,
	})

	a.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: engine,
	}

	log.Infof("application initialized successfully")
	return a, nil
}

// buildStore selects the chat backend: file-backed for a single process,
// Redis+NATS when rooms are shared between server instances.
func (a *App) buildStore(docs *jsonstore.Store, baseLogger logger.Logger) error {
	switch a.cfg.ChatBackend {
	case config.BackendLocal:
		store, err := realtime.NewLocalStore(docs, chatDoc, baseLogger.WithModule("store"))
		if err != nil {
			return fmt.Errorf("local store: %w", err)
		}
		a.store = store
	case config.BackendRemote:
		nc, err := natsclient.NewClient(a.cfg.NATSURL)
		if err != nil {
			return fmt.Errorf("failed to connect to NATS: %w", err)
		}
		rc, err := redisclient.NewClient(a.rootCtx, a.cfg.RedisURL)
		if err != nil {
			nc.Close()
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
		a.natsClient = nc
		a.redisClient = rc
		a.store = realtime.NewRemoteStore(rc, nc, baseLogger.WithModule("store"))
	default:
		return fmt.Errorf("unknown chat_backend %q", a.cfg.ChatBackend)
	}
	return nil
}

// Start runs the application until a shutdown signal arrives.
func (a *App) Start() error {
	log := a.logg.WithFields(map[string]interface{}{"port": a.cfg.Port})
	log.Infof("starting application server")

	go a.hub.Run()

	g := new(errgroup.Group)

	g.Go(func() error {
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			log.Warnf("received shutdown signal %s", sig)
		case <-a.rootCtx.Done():
		}
		return a.Stop()
	})

	return g.Wait()
}

// Stop gracefully shuts down the server and closes all connections.
func (a *App) Stop() error {
	a.logg.Infof("initiating graceful shutdown")

	a.cancel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(ctx); err != nil {
		a.logg.Errorf("http server shutdown error: %v", err)
	}

	a.hub.Close()
	a.tasks.Close()
	if err := a.chat.Close(); err != nil {
		a.logg.Errorf("chat service close error: %v", err)
	}
	if err := a.store.Close(); err != nil {
		a.logg.Errorf("store close error: %v", err)
	}
	a.closeClients()

	a.logg.Infof("shutdown completed successfully")
	return nil
}

func (a *App) closeClients() {
	if a.natsClient != nil {
		a.logg.Infof("closing NATS connection")
		a.natsClient.Close()
	}
	if a.redisClient != nil {
		a.logg.Infof("closing Redis connection")
		a.redisClient.Close()
	}
}
