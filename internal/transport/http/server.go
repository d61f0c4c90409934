package http

import (
	"context"
	"errors"
	"fmt"
	stdhttp "net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"sharefun/internal/cache"
	"sharefun/internal/clock"
	"sharefun/internal/config"
	"sharefun/internal/database"
	"sharefun/internal/handler"
	"sharefun/internal/queue"
	appredis "sharefun/internal/redis"
	"sharefun/internal/repository"
	"sharefun/internal/repository/memory"
	"sharefun/internal/service"
	appmw "sharefun/internal/transport/http/middleware"
	"sharefun/internal/worker"
)

const (
	shutdownTimeout = 10 * time.Second
	janitorInterval = time.Minute
)

// Stores bundles the repositories the services run on.
type Stores struct {
	Users    repository.UserRepository
	Friends  repository.FriendRepository
	Posts    repository.PostRepository
	Sessions repository.SessionRepository
}

// MemoryStores returns empty in-process stores.
func MemoryStores() Stores {
	return Stores{
		Users:    memory.NewUserStore(),
		Friends:  memory.NewFriendStore(),
		Posts:    memory.NewPostStore(),
		Sessions: memory.NewSessionStore(),
	}
}

// Services is the application core wired over a set of stores.
type Services struct {
	Users   *service.UserService
	Auth    *service.AuthService
	Friends *service.FriendService
	Posts   *service.PostService
	Feed    *service.FeedService
	Media   *service.MediaService // nil when R2 is not configured
}

// NewServices wires the services. publisher and media may be nil.
func NewServices(st Stores, media *service.MediaService, publisher queue.Publisher, clk clock.Clock, cfg *config.Config) *Services {
	users := service.NewUserService(st.Users, st.Friends, st.Posts, clk, cfg)
	friends := service.NewFriendService(st.Friends, st.Users, clk)
	posts := service.NewPostService(st.Posts, st.Users, clk)
	if publisher != nil {
		users.SetPublisher(publisher)
		posts.SetPublisher(publisher)
	}

	return &Services{
		Users:   users,
		Auth:    service.NewAuthService(users, st.Sessions, clk, cfg),
		Friends: friends,
		Posts:   posts,
		Feed:    service.NewFeedService(posts, friends, st.Users),
		Media:   media,
	}
}

// NewHandler builds the full HTTP surface over svcs.
func NewHandler(svcs *Services, cfg *config.Config) chi.Router {
	return NewRouter(RouterConfig{
		AuthHandler:        handler.NewAuthHandler(svcs.Users, svcs.Auth),
		UserHandler:        handler.NewUserHandler(svcs.Users, svcs.Media),
		FriendHandler:      handler.NewFriendHandler(svcs.Friends),
		FeedHandler:        handler.NewFeedHandler(svcs.Feed),
		PostHandler:        handler.NewPostHandler(svcs.Posts),
		MediaHandler:       handler.NewMediaHandler(svcs.Media),
		Authenticator:      svcs.Auth,
		Metrics:            appmw.NewMetrics(),
		AuthRateLimitRPS:   cfg.AuthRateLimitRPS,
		AuthRateLimitBurst: cfg.AuthRateLimitBurst,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	})
}

// Run starts the API server and blocks until SIGINT/SIGTERM.
func Run() error {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	setupLogging(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clk := clock.Real{}

	// 2. Storage
	stores, closeStores, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStores()

	// 3. Media storage (optional)
	var media *service.MediaService
	if cfg.MediaEnabled() {
		if media, err = service.NewMediaService(ctx, cfg); err != nil {
			return fmt.Errorf("failed to init media storage: %w", err)
		}
	} else {
		log.Warn("[Server] R2 is not configured, media uploads are disabled")
	}

	// 4. Redis: sessions and the media cleanup stream (optional)
	var publisher queue.Publisher
	if cfg.RedisURL != "" {
		rdb, err := appredis.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer rdb.Close()

		stores.Sessions = cache.NewSessionStore(rdb.Client, clk)

		if media != nil {
			publisher = queue.NewPublisher(rdb.Client)
			mgr := worker.NewManager(
				queue.NewConsumer(rdb.Client),
				worker.NewHandler(media, cfg.DefaultAvatarKey),
				worker.ManagerConfig{WorkerCount: cfg.WorkerCount},
			)
			if err := mgr.Start(ctx); err != nil {
				return fmt.Errorf("failed to start media workers: %w", err)
			}
			defer mgr.Stop()
		}
	} else {
		log.Warn("[Server] REDIS_URL is empty, sessions are kept in memory")
	}

	if sweeper, ok := stores.Sessions.(worker.Sweeper); ok {
		go worker.RunJanitor(ctx, sweeper, clk, janitorInterval)
	}

	// 5. HTTP
	svcs := NewServices(stores, media, publisher, clk, cfg)
	srv := &stdhttp.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           NewHandler(svcs, cfg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("[Server] Listening on :%s (storage=%s)", cfg.ServerPort, cfg.StorageDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("[Server] Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}

func openStores(ctx context.Context, cfg *config.Config) (Stores, func(), error) {
	if cfg.StorageDriver == config.StorageDriverMemory {
		log.Warn("[Server] Using in-memory storage, data is lost on restart")
		return MemoryStores(), func() {}, nil
	}

	db, err := database.Connect(cfg)
	if err != nil {
		return Stores{}, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := database.Migrate(ctx, db); err != nil {
		db.Close()
		return Stores{}, nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	stores := Stores{
		Users:    repository.NewUserRepository(db),
		Friends:  repository.NewFriendRepository(db),
		Posts:    repository.NewPostRepository(db),
		Sessions: memory.NewSessionStore(),
	}
	return stores, func() { db.Close() }, nil
}

func setupLogging(cfg *config.Config) {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warnf("[Server] Unknown LOG_LEVEL %q, using info", cfg.LogLevel)
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if strings.EqualFold(cfg.LogFormat, "json") {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}
