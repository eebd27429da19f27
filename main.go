package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"DogiCord/global"
	"DogiCord/global/config"
	"DogiCord/logger"
	mid "DogiCord/middleware"
	"DogiCord/module/chat/handler"
	chatsvc "DogiCord/module/chat/service"
	"DogiCord/module/presence"
	gw "DogiCord/service/chat"
	"DogiCord/service/chat/handlers"
	"DogiCord/service/feed"
	"DogiCord/service/storage"
	"DogiCord/tools/resp"
	"DogiCord/tools/safe"
	"DogiCord/tools/security"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfgPath := flag.String("config", os.Getenv("DOGI_CONFIG"), "yaml config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		logger.Log.Fatal("[Boot] load config", zap.Error(err))
	}

	// nacos 变更统一回到主协程处理
	reloadCh := make(chan config.AppConfig, 1)
	if cfg.Nacos.Addr != "" {
		w, err := config.NewNacosWatcher(cfg.Nacos)
		if err != nil {
			logger.Log.Fatal("[Boot] nacos", zap.Error(err))
		}
		defer w.Close()
		cfg, err = w.Start(cfg, func(next config.AppConfig) {
			// 只保留最新一份
			select {
			case <-reloadCh:
			default:
			}
			select {
			case reloadCh <- next:
			default:
			}
		})
		if err != nil {
			logger.Warn("[Boot] nacos config unavailable, using local config", zap.Error(err))
		}
	}
	config.Store(cfg)
	logger.SetLevel(cfg.Log.Level)
	gin.SetMode(cfg.GinMode)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	global.ConfigIds(cfg)
	global.ConfigMiddleware(cfg)
	jwt := global.JwtOptions(cfg)
	if len(jwt.Secret) == 0 {
		logger.Log.Fatal("[Boot] auth.secret is empty")
	}

	// ---- 存储 ----
	chatStore, closeMgo, err := global.ConfigMgo(ctx, cfg, 30*time.Second)
	if err != nil {
		logger.Log.Fatal("[Boot] mongo", zap.Error(err))
	}
	defer closeMgo()

	rdb, err := global.ConfigRedis(ctx, cfg)
	if err != nil {
		logger.Log.Fatal("[Boot] redis", zap.Error(err))
	}
	defer func() { _ = rdb.Close() }()
	keys := storage.NewKeys(cfg.Redis.KeyPrefix)
	hot := storage.NewPresenceStore(rdb, keys, cfg.Presence.KeyTTL)
	crumbs := storage.NewBreadcrumbStore(rdb, keys, cfg.Presence.BreadcrumbTTL)
	seen := storage.NewLastNotifiedStore(rdb, keys)
	flags := storage.NewOnceFlags(rdb, keys)
	friendsCache := storage.NewFriendsCache(rdb, keys, cfg.Notify.FriendsCacheTTL)

	// ---- 消息总线 / 活动日志 / 对象存储（后两者可选） ----
	bus, closeBus, err := global.ConfigBus(cfg)
	if err != nil {
		logger.Log.Fatal("[Boot] nats", zap.Error(err))
	}
	defer closeBus()
	events := feed.NewEvents(bus, cfg.Nats.SubjectPrefix)

	deps := chatsvc.Deps{
		Users: chatStore, Friends: chatStore, Messages: chatStore,
		Groups: chatStore, Blocks: chatStore, Mutes: chatStore,
		Feed:  events,
		Cache: friendsCache,
	}
	eventLog, err := global.ConfigKafka(cfg)
	if err != nil {
		logger.Log.Fatal("[Boot] kafka", zap.Error(err))
	}
	if eventLog != nil {
		deps.Log = eventLog
		defer func() { _ = eventLog.Close() }()
	}
	objs, err := global.ConfigObjects(ctx, cfg)
	if err != nil {
		logger.Log.Fatal("[Boot] objects", zap.Error(err))
	}
	if objs != nil {
		deps.Objects = objs
	}
	chat := chatsvc.New(deps)

	// ---- 在线状态 ----
	dir := presence.NewDirectory(chatStore, hot, bus, cfg.Nats.SubjectPrefix)
	observer := presence.NewObserver(dir, cfg.Presence.StaleAfter)
	sweeper := presence.NewSweeper(hot, dir, cfg.Presence.StaleAfter, cfg.Presence.SweepEvery)
	sweeper.Start(ctx)
	defer sweeper.Stop()

	// ---- websocket 网关 ----
	gwID := os.Getenv("GATEWAY_ID")
	if gwID == "" {
		gwID = "gw-" + strconv.FormatInt(cfg.NodeId, 10)
	}
	disp := gw.NewDispatcher()
	handlers.Register(disp)
	srv := gw.NewServer(gw.OptionsFromConfig(cfg), gw.Deps{
		Verify:   func(token string) (string, error) { return security.Verify(jwt, token) },
		Presence: dir,
		Crumbs:   crumbs,
		Observer: observer,
		Feed:     events,
		Seen:     seen,
		Mutes:    chat.Mutes,
		Friends:  chat.Friends,
		Flags:    flags,
	}, disp, gw.NewConnManagerWithConf(gw.ManagerConf{MaxPerUser: cfg.Gateway.MaxPerUser, EvictOldest: true}, gwID))

	// ---- HTTP ----
	r := gin.New()
	r.Use(mid.Recovery(), mid.Manager().Use())
	r.GET("/healthz", func(c *gin.Context) { resp.OK(c, gin.H{"gateway": srv.ConnMgr().GwId(), "sessions": srv.ConnMgr().Len()}) })
	r.GET("/ws", srv.HandleWS)
	handler.New(handler.Options{
		Chat:     chat,
		Presence: observer,
		Writer:   dir,
		Crumbs:   crumbs,
		Issue: func(user string, now time.Time) (string, time.Time, error) {
			return security.Generate(jwt, user, now)
		},
		MaxUpload: cfg.Objects.MaxSize,
	}).Register(r)

	httpSrv := &http.Server{Addr: ":" + strconv.Itoa(cfg.Port), Handler: r}
	safe.SafeGo("http-server", func() {
		logger.Info("[HTTP] listening", zap.String("addr", httpSrv.Addr), zap.String("gateway", gwID))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("[HTTP] serve failed", zap.Error(err))
			stop()
		}
	})

	if cfg.Nacos.Addr != "" && cfg.Nacos.Register {
		reg, err := config.NewNacosRegistry(cfg.Nacos, config.GatewayInstance{
			ID:   gwID,
			Port: uint64(cfg.Port),
			Meta: map[string]string{"node_id": strconv.FormatInt(cfg.NodeId, 10)},
		})
		if err != nil {
			logger.Log.Fatal("[Boot] nacos registry", zap.Error(err))
		}
		if err := reg.Register(); err != nil {
			logger.Warn("[Boot] gateway not registered", zap.Error(err))
		}
		defer reg.Close()
	}

	for running := true; running; {
		select {
		case <-ctx.Done():
			running = false
		case next := <-reloadCh:
			logger.SetLevel(next.Log.Level)
			global.ReloadMiddleware(next)
			srv.Reload(gw.OptionsFromConfig(next))
			logger.Info("[Boot] runtime options reloaded")
		}
	}

	logger.Info("[Boot] shutting down")
	srv.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("[HTTP] shutdown", zap.Error(err))
	}
}
