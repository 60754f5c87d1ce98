package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	internalstorage "github.com/LENAX/dependent-engine/internal/storage"
	"github.com/LENAX/dependent-engine/pkg/cli/output"
	"github.com/LENAX/dependent-engine/pkg/config"
	"github.com/LENAX/dependent-engine/pkg/core/dateutil"
	"github.com/LENAX/dependent-engine/pkg/core/depend"
	"github.com/LENAX/dependent-engine/pkg/core/engine"
)

// 检查结果对应的退出码
const (
	exitCodeFailed  = 1
	exitCodeWaiting = 2
)

// checkOptions check命令参数
type checkOptions struct {
	file       string
	date       string
	wait       bool
	interval   time.Duration
	timeout    time.Duration
	configPath string
	dbType     string
	dsn        string
	json       bool
}

// CheckReport check命令的JSON输出
type CheckReport struct {
	BusinessDate string            `json:"business_date"`
	Result       string            `json:"result"`
	ModelResults []string          `json:"model_results"`
	Items        map[string]string `json:"items"`
	Error        string            `json:"error,omitempty"`
}

// newCheckCmd check命令
func newCheckCmd() *cobra.Command {
	opts := &checkOptions{}
	cmd := &cobra.Command{
		Use:   "check",
		Short: "检查依赖声明是否满足",
		Long: `根据执行历史检查依赖声明文件。

结果为SUCCESS时退出码为0，FAILED为1，仍在等待为2。

示例：
  # 检查一次
  dependent-engine check -f ./decl/report.yaml --db-type sqlite --dsn ./data/history.db

  # 使用引擎配置文件中的数据库，等待依赖满足
  dependent-engine check -f ./decl/report.yaml --config ./configs/engine.yaml --wait --interval 30s --timeout 2h`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runCheck(ctx, opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "依赖声明文件（YAML）")
	cmd.Flags().StringVar(&opts.date, "date", "", "业务日期（2006-01-02 / 2006-01-02 15:04:05 / RFC3339），默认当前时间")
	cmd.Flags().BoolVar(&opts.wait, "wait", false, "阻塞等待直到依赖得到终态")
	cmd.Flags().DurationVar(&opts.interval, "interval", 30*time.Second, "等待模式下的轮询间隔")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "等待模式下的超时时间，0表示不超时")
	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "引擎配置文件，用于读取数据库设置")
	cmd.Flags().StringVar(&opts.dbType, "db-type", "sqlite", "数据库类型（sqlite/mysql/postgres/memory）")
	cmd.Flags().StringVar(&opts.dsn, "dsn", "./data/dependent-engine.db", "数据库连接字符串")
	cmd.Flags().BoolVarP(&opts.json, "json", "j", false, "使用JSON格式输出")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func runCheck(ctx context.Context, opts *checkOptions, w io.Writer) error {
	businessDate, err := parseBusinessDate(opts.date, time.Now())
	if err != nil {
		return err
	}

	decl, err := config.LoadDependentConfig(opts.file)
	if err != nil {
		return err
	}
	resolver := dateutil.NewDefaultResolver()
	params, err := decl.ToParameters(resolver)
	if err != nil {
		return fmt.Errorf("依赖声明无效: %w", err)
	}

	factory, err := openStore(opts)
	if err != nil {
		return err
	}
	defer factory.Close()

	task, err := depend.NewDependentTask(params, depend.NewItemEvaluator(resolver, factory.HistoryRepository()))
	if err != nil {
		return err
	}

	var checkErr error
	if opts.wait {
		_, checkErr = engine.WaitForDependencies(ctx, task, businessDate, opts.interval, opts.timeout)
	} else {
		_, checkErr = task.Poll(ctx, businessDate)
	}

	result := task.Result()
	if errors.Is(checkErr, engine.ErrWaitTimeout) {
		result = depend.DependResultFailed
	}
	report := &CheckReport{
		BusinessDate: businessDate.Format(time.RFC3339),
		Result:       string(result),
		Items:        make(map[string]string),
	}
	for _, r := range task.ModelResults() {
		report.ModelResults = append(report.ModelResults, string(r))
	}
	for k, v := range task.Snapshot() {
		report.Items[k] = string(v)
	}
	if checkErr != nil {
		report.Error = checkErr.Error()
	}

	if opts.json {
		if err := output.PrintJSON(w, report); err != nil {
			return err
		}
	} else {
		printReport(w, report, result)
	}

	switch {
	case checkErr != nil && !errors.Is(checkErr, engine.ErrWaitTimeout):
		return checkErr
	case result == depend.DependResultSuccess:
		return nil
	case result == depend.DependResultFailed:
		return &ExitError{Code: exitCodeFailed}
	default:
		return &ExitError{Code: exitCodeWaiting}
	}
}

// openStore 按参数或引擎配置打开执行历史存储
func openStore(opts *checkOptions) (internalstorage.RepositoryFactory, error) {
	dbType, dsn := opts.dbType, opts.dsn
	var pool internalstorage.PoolConfig
	if opts.configPath != "" {
		cfg, err := config.LoadEngineConfig(opts.configPath)
		if err != nil {
			return nil, err
		}
		db := cfg.DependentEngine.Storage.Database
		dbType, dsn = cfg.GetDatabaseType(), cfg.GetDatabaseDSN()
		pool = internalstorage.PoolConfig{
			MaxOpenConns:    db.MaxOpenConns,
			MaxIdleConns:    db.MaxIdleConns,
			ConnMaxLifetime: db.ConnMaxLifetime,
			ConnMaxIdleTime: db.ConnMaxIdleTime,
		}
	}
	factory, err := internalstorage.NewRepositoryFactory(dbType, dsn, pool)
	if err != nil {
		return nil, fmt.Errorf("打开执行历史存储失败: %w", err)
	}
	return factory, nil
}

// parseBusinessDate 解析业务日期，为空时使用now
func parseBusinessDate(value string, now time.Time) (time.Time, error) {
	if value == "" {
		return now, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	for _, layout := range []string{time.DateTime, time.DateOnly} {
		if t, err := time.ParseInLocation(layout, value, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("无效的业务日期: %s", value)
}

func printReport(w io.Writer, report *CheckReport, result depend.DependResult) {
	output.Info(w, "业务日期: %s", report.BusinessDate)

	if len(report.Items) > 0 {
		keys := make([]string, 0, len(report.Items))
		for k := range report.Items {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		table := output.NewTable("ITEM", "RESULT")
		for _, k := range keys {
			table.AddRow(k, output.ColorResult(depend.DependResult(report.Items[k])))
		}
		table.Render(w)
	}

	if report.Error != "" {
		output.Warning(w, "检查出错: %s", report.Error)
	}
	output.Result(w, result)
}
