package app

import (
	collab_coordinator "github.com/shinchan79/peerpoint/internal/collab/coordinator"
	collab_persist "github.com/shinchan79/peerpoint/internal/collab/persist"
	collab_registry "github.com/shinchan79/peerpoint/internal/collab/registry"
	"github.com/shinchan79/peerpoint/internal/config"
	http_init "github.com/shinchan79/peerpoint/internal/delivery/http/init"
	http_project "github.com/shinchan79/peerpoint/internal/delivery/http/project"
	http_room "github.com/shinchan79/peerpoint/internal/delivery/http/room"
	ws_room "github.com/shinchan79/peerpoint/internal/delivery/ws/room"
	infra_pg_init "github.com/shinchan79/peerpoint/internal/infra/postgres/init"
	infra_postgres_project "github.com/shinchan79/peerpoint/internal/infra/postgres/project"
	infra_redis_init "github.com/shinchan79/peerpoint/internal/infra/redis/init"
	infra_redis_snapshot "github.com/shinchan79/peerpoint/internal/infra/redis/snapshot"
	usecase_project "github.com/shinchan79/peerpoint/internal/usecase/project"
	usecase_room "github.com/shinchan79/peerpoint/internal/usecase/room"
)

func Go(cfg *config.Config) {
	redisConn := infra_redis_init.MustEstablishConn(cfg.Redis)
	pgConn := infra_pg_init.MustEstablishConn(cfg.Postgres)

	snapshotStore := infra_redis_snapshot.New(redisConn, "room_snapshot")
	projectRepository := infra_postgres_project.New(pgConn)

	registry := collab_registry.New(snapshotStore, nil, collab_registry.Config{
		Coordinator: collab_coordinator.Config{
			IdleTTL:           cfg.Room.IdleTTL,
			HeartbeatInterval: cfg.Room.HeartbeatInterval,
			SendBuffer:        cfg.Room.SendBuffer,
		},
		Persist: collab_persist.Config{
			Attempts: cfg.Room.PersistAttempts,
			Backoff:  cfg.Room.PersistBackoff,
		},
		HistoryWindow: cfg.Room.HistoryWindow,
	})
	defer registry.Close()

	projectUC := usecase_project.New(projectRepository)
	roomUC := usecase_room.New(registry, projectUC)

	controllerPool := http_init.NewControllerPool()
	controllerPool.Add(http_room.New(roomUC))
	controllerPool.Add(http_project.New(projectUC))
	controllerPool.Add(ws_room.New(roomUC))

	controllerPool.Register()
	controllerPool.RunAll(cfg.HTTP.Port)
}
