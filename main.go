package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/weibaohui/fcpipe/config"
	"github.com/weibaohui/fcpipe/filter"
	"github.com/weibaohui/fcpipe/pipelines"
	"github.com/weibaohui/fcpipe/server"
	"github.com/weibaohui/fcpipe/tools"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

const shutdownTimeout = 10 * time.Second

var (
	debugGlobal bool
	configPath  string
	servePort   int
	inletFile   string
	filterID    string
	initForce   bool
)

var rootCmd = &cobra.Command{
	Use:   "fcpipe",
	Short: "fcpipe - 函数调用过滤器",
	Long:  `fcpipe - 在请求到达主模型前用任务模型选择并执行工具，把结果注入系统消息。`,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "启动过滤器 HTTP 服务",
	RunE:  runServe,
}

var inletCmd = &cobra.Command{
	Use:   "inlet",
	Short: "对一个请求体执行 inlet 并输出结果",
	Long:  `从文件或标准输入读取 JSON 请求体，执行过滤器链（或 --filter 指定的单个过滤器），输出处理后的请求体。`,
	RunE:  runInlet,
}

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "输出过滤器的工具列表",
	RunE:  runTools,
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "写入默认配置",
	RunE:  runInit,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "显示版本",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("fcpipe %s (built %s)\n", version, buildDate)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&debugGlobal, "debug", "d", false, "调试模式")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "配置文件路径，默认 ~/.fcpipe/config.json")

	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "监听端口，覆盖配置文件")

	inletCmd.Flags().StringVarP(&inletFile, "file", "f", "", "请求体文件，默认读取标准输入")
	inletCmd.Flags().StringVar(&filterID, "filter", "", "只执行指定的过滤器")

	toolsCmd.Flags().StringVar(&filterID, "filter", "", "只输出指定过滤器的工具")

	initCmd.Flags().BoolVar(&initForce, "force", false, "覆盖已存在的配置")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(inletCmd)
	rootCmd.AddCommand(toolsCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// ========== Serve 命令实现 ==========

func runServe(cmd *cobra.Command, args []string) error {
	logger := initLogger(debugGlobal)
	defer logger.Sync()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if servePort > 0 {
		cfg.Server.Port = servePort
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	chain, err := pipelines.Build(ctx, cfg, logger)
	if err != nil {
		return err
	}

	logger.Info("fcpipe 启动中",
		zap.Int("端口", cfg.Server.Port),
		zap.Int("过滤器", chain.Len()),
		zap.String("版本", version),
		zap.String("构建时间", buildDate),
	)

	srv := server.New(cfg.Server, chain, logger)
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("HTTP 服务异常退出: %w", err)
		}
		return nil
	case <-sigChan:
	}

	logger.Info("正在关闭...")
	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("关闭 HTTP 服务失败", zap.Error(err))
	}
	logger.Info("已关闭")
	return nil
}

// ========== Inlet 命令实现 ==========

func runInlet(cmd *cobra.Command, args []string) error {
	logger := initLogger(debugGlobal)
	defer logger.Sync()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}

	data, err := readInput(cmd.InOrStdin(), inletFile)
	if err != nil {
		return err
	}
	var body filter.Body
	if err := json.Unmarshal(data, &body); err != nil {
		return fmt.Errorf("解析请求体失败: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var out *filter.Body
	if filterID != "" {
		f, err := singleFilter(ctx, cfg, logger, filterID)
		if err != nil {
			return err
		}
		out = f.Inlet(ctx, &body, nil)
	} else {
		chain, err := pipelines.Build(ctx, cfg, logger)
		if err != nil {
			return err
		}
		out = chain.Inlet(ctx, &body, nil)
	}

	encoded, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(encoded))
	return nil
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}

// singleFilter 按 id 组装单个过滤器，未启用的也可以
func singleFilter(ctx context.Context, cfg *config.Config, logger *zap.Logger, id string) (*filter.Filter, error) {
	fc, ok := cfg.Filter(id)
	if !ok {
		return nil, fmt.Errorf("过滤器不存在: %s", id)
	}
	return pipelines.NewBuilder(cfg, logger).Filter(ctx, *fc)
}

// ========== Tools 命令实现 ==========

func runTools(cmd *cobra.Command, args []string) error {
	logger := initLogger(debugGlobal)
	defer logger.Sync()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}

	targets := cfg.EnabledFilters()
	if filterID != "" {
		fc, ok := cfg.Filter(filterID)
		if !ok {
			return fmt.Errorf("过滤器不存在: %s", filterID)
		}
		targets = []config.FilterConfig{*fc}
	}

	ctx := context.Background()
	builder := pipelines.NewBuilder(cfg, logger)
	for _, fc := range targets {
		registry, err := builder.Registry(ctx, fc.Toolset)
		if err != nil {
			return err
		}
		text, err := tools.FormatSpecs(registry.Describe())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "# %s (%s)\n%s\n", fc.Name, fc.ID, text)
	}
	return nil
}

// ========== Init 命令实现 ==========

func runInit(cmd *cobra.Command, args []string) error {
	path := configPath
	if path == "" {
		path = config.GetConfigPath()
	}

	if _, err := os.Stat(path); err == nil && !initForce {
		fmt.Printf("配置已存在于 %s\n", path)
		fmt.Print("是否覆盖? (y/N): ")
		var confirm string
		fmt.Scanln(&confirm)
		if confirm != "y" && confirm != "Y" {
			fmt.Println("已取消")
			return nil
		}
	}

	if err := config.SaveConfig(config.DefaultConfig(), path); err != nil {
		return fmt.Errorf("写入配置失败: %w", err)
	}
	fmt.Printf("✓ 创建配置: %s\n", path)
	fmt.Println()
	fmt.Println("下一步:")
	fmt.Println("  1. 修改 OLLAMA_API_BASE_URL 和 TASK_MODEL 指向可用的 Ollama")
	fmt.Println("  2. 如需 kubectl 工具，将 kubectl_pipeline 的 enabled 设为 true")
	fmt.Println("  3. 启动服务: fcpipe serve")
	return nil
}

func initLogger(debug bool) *zap.Logger {
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	level := zapcore.InfoLevel
	if debug {
		level = zapcore.DebugLevel
	}

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.AddSync(os.Stderr),
		level,
	)

	return zap.New(core, zap.AddCaller())
}
