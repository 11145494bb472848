package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"gopkg.in/yaml.v3"

	"inbox-triage/dao"
	"inbox-triage/internal/aiclient"
	"inbox-triage/model"
	"inbox-triage/route"
	"inbox-triage/service"
)

func main() {
	cfg, err := loadAppConfig("config/config.yaml")
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}
	log.Printf("配置加载成功 ai_mode=%s model=%s", cfg.Ai.Mode, cfg.Inference.Model)

	store := dao.NewRedisStore(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB,
		time.Duration(cfg.Ai.CacheTTLHours)*time.Hour)

	runner := aiclient.NewClient(cfg.Inference.BaseURL)
	timeout := time.Duration(cfg.Inference.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	interpreter := service.NewInterpreter(cfg.Ai, cfg.Inference.Model, timeout, runner, nil)
	orchestrator := service.NewOrchestrator(cfg.Ai, cfg.Inference.Model, interpreter, store, store)
	svc := service.NewTriageService(cfg.Thresholds, orchestrator)

	r := gin.Default()
	route.Register(r, svc)

	if err := r.Run(cfg.Server.Addr); err != nil {
		panic(err)
	}
}

func loadAppConfig(path string) (*model.AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var config model.AppConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	if config.Thresholds == (model.Thresholds{}) {
		config.Thresholds = model.DefaultThresholds()
	}
	return &config, nil
}
