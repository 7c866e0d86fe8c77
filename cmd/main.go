package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"adfilter/adblock"
	"adfilter/config"
	"adfilter/logger"
	"adfilter/settings"
	"adfilter/stats"
	"adfilter/sysinstall"
	"adfilter/webapi"
)

func main() {
	// 定义命令行参数
	configPath := flag.String("c", "config.yaml", "配置文件路径")
	workDir := flag.String("w", "", "工作目录")
	testURL := flag.String("t", "", "加载规则后测试单个 URL 并退出")
	verbose := flag.Bool("v", false, "详细输出")
	help := flag.Bool("h", false, "显示帮助信息")

	// 服务管理参数
	service := flag.String("s", "", "系统服务管理（install/uninstall/status）")
	runUser := flag.String("user", "", "服务运行用户（仅用于 install）")
	dryRun := flag.Bool("dry-run", false, "干运行模式，仅预览不执行")

	flag.Parse()

	if *help {
		printHelp()
		os.Exit(0)
	}

	if *service != "" {
		os.Exit(handleService(*service, *configPath, *workDir, *runUser, *dryRun, *verbose))
	}

	// 确定工作目录
	effectiveWorkDir := *workDir
	if effectiveWorkDir == "" {
		var err error
		effectiveWorkDir, err = os.Getwd()
		if err != nil {
			fmt.Fprintf(os.Stderr, "错误：无法获取当前工作目录：%v\n", err)
			os.Exit(1)
		}
	}

	// 相对路径都以工作目录为基准
	effectiveConfigPath := resolvePath(effectiveWorkDir, *configPath)

	cfg, err := config.LoadConfig(effectiveConfigPath)
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	cfg.AdBlock.CacheDir = resolvePath(effectiveWorkDir, cfg.AdBlock.CacheDir)
	cfg.Settings.File = resolvePath(effectiveWorkDir, cfg.Settings.File)

	// 立即设置日志级别，确保后续所有日志都遵循配置
	if *verbose {
		cfg.System.LogLevel = "debug"
	}
	logger.SetLevel(cfg.System.LogLevel)
	defer logger.Sync()
	logger.Infof("Config loaded from %s, log level %s", effectiveConfigPath, logger.GetLevel())

	store, err := settings.OpenBolt(cfg.Settings.File)
	if err != nil {
		logger.Fatalf("Failed to open settings store %s: %v", cfg.Settings.File, err)
	}
	defer store.Close()

	manager, err := adblock.NewManager(&cfg.AdBlock, store)
	if err != nil {
		logger.Fatalf("Failed to create adblock manager: %v", err)
	}

	if *testURL != "" {
		code := runTest(manager, *testURL)
		store.Close()
		os.Exit(code)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	manager.Start(ctx)

	fmt.Printf("adfilter started, engine=%s, %d filter lists\n", manager.Engine(), len(cfg.AdBlock.RuleURLs))

	var webServer *webapi.Server
	webServerDone := make(chan error, 1)
	if cfg.WebUI.Enabled {
		webServer = webapi.NewServer(cfg, manager, stats.NewCollector())
		go func() {
			webServerDone <- webServer.Start()
		}()
	}

	// 设置优雅停机
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-webServerDone:
		if err != nil {
			logger.Errorf("Web API server stopped: %v", err)
		}
	}

	logger.Info("Shutting down...")
	cancel()

	if webServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := webServer.Shutdown(shutdownCtx); err != nil {
			logger.Warnf("Web API server shutdown: %v", err)
		}
		shutdownCancel()
	}

	logger.Info("Stopped.")
}

// runTest 同步加载规则并输出单个 URL 的判定结果
func runTest(manager *adblock.Manager, rawURL string) int {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := manager.Initialize(ctx); err != nil {
		logger.Errorf("Failed to load rules: %v", err)
	}

	out, err := json.MarshalIndent(manager.Test(rawURL), "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "错误：%v\n", err)
		return 1
	}
	fmt.Println(string(out))
	return 0
}

// handleService 处理 -s 子命令
func handleService(command, configPath, workDir, runUser string, dryRun, verbose bool) int {
	cfg := sysinstall.InstallerConfig{
		WorkDir: workDir,
		RunUser: runUser,
		DryRun:  dryRun,
		Verbose: verbose,
	}
	// 仅在显式指定时覆盖默认的 /etc/adfilter/config.yaml
	if configPath != "config.yaml" {
		cfg.ConfigPath = configPath
	}
	installer := sysinstall.NewSystemInstaller(cfg)

	var err error
	switch command {
	case "install":
		err = installer.Install()
	case "uninstall":
		err = installer.Uninstall()
	case "status":
		err = installer.Status()
	default:
		fmt.Fprintf(os.Stderr, "错误：未知的服务命令 %q（可选 install/uninstall/status）\n", command)
		return 2
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "错误：%v\n", err)
		return 1
	}
	return 0
}

func resolvePath(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

func printHelp() {
	fmt.Print(`adfilter - 基于过滤列表的广告与跟踪请求拦截服务

使用方法：
  adfilter [选项]

选项：
  -c <路径>       配置文件路径（默认：config.yaml）
  -w <路径>       工作目录（默认：当前目录）
  -t <URL>        加载规则后测试单个 URL 并退出
  -v              详细输出（等同 log_level=debug）
  -h              显示此帮助信息

服务管理（仅 Linux/systemd）：
  -s install      安装为 systemd 服务
  -s uninstall    卸载服务（保留配置和数据）
  -s status       查看服务状态
  -user <用户>    服务运行用户（默认：root）
  -dry-run        仅预览安装/卸载步骤

环境变量：
  ADFILTER_<段>__<键> 覆盖配置文件中的值，例如
  ADFILTER_ADBLOCK__ENGINE=urlfilter

示例：
  # 启动服务
  adfilter -c /etc/adfilter/config.yaml

  # 测试一个请求是否会被拦截
  adfilter -t https://ad.doubleclick.net/ddm/ad.js

  # 预览服务安装
  sudo adfilter -s install -dry-run
`)
}
