package main

import (
	"fmt"
	"os"

	"kirogate/auth"
	"kirogate/config"
	"kirogate/converter"
	"kirogate/dispatcher"
	"kirogate/logger"
	"kirogate/pool"
	"kirogate/server"
	"kirogate/telemetry"

	"github.com/joho/godotenv"
)

func main() {
	// 自动加载.env文件，不存在时忽略
	_ = godotenv.Load()
	logger.Reinitialize()
	defer logger.Close()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("加载配置失败: %v\n", err)
		os.Exit(1)
	}

	accounts, err := pool.LoadRoster(cfg.RosterPath)
	if err != nil {
		logger.Fatal("加载账号文件失败", logger.Err(err), logger.String("path", cfg.RosterPath))
	}
	if len(accounts) == 0 {
		logger.Warn("账号文件为空，所有请求将返回无可用账号", logger.String("path", cfg.RosterPath))
	}

	accountPool := pool.New(accounts, cfg.SelectionPolicy,
		pool.WithPersister(pool.NewPersister(cfg.RosterPath)))

	// MySQL可选，未配置时审计落空、模型映射走内置规则
	var sink dispatcher.LogSink = telemetry.NoopSink{}
	var mappingStore converter.ModelMappingStore
	if cfg.MySQLDSN != "" {
		store, err := telemetry.Open(cfg.MySQLDSN)
		if err != nil {
			logger.Fatal("连接MySQL失败", logger.Err(err))
		}
		defer store.Close()
		sink = store
		mappingStore = store
		logger.Info("MySQL审计与模型映射已启用")
	}

	tokens := auth.NewManager(accountPool)
	usage := auth.NewUsageChecker()
	translator := converter.NewTranslator(converter.NewModelMapper(mappingStore))
	disp := dispatcher.New(cfg, translator, accountPool, tokens, sink)

	handler := server.NewHandler(cfg, disp, accountPool, tokens, usage)
	if err := server.StartServer(cfg, handler); err != nil {
		logger.Fatal("启动服务器失败", logger.Err(err))
	}
}
