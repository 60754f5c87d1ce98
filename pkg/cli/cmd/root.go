package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// ExitError 携带进程退出码的错误
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit code %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewRootCmd 创建根命令
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "dependent-engine",
		Short: "Dependent Engine CLI - 依赖检查命令行工具",
		Long: `Dependent Engine CLI 根据执行历史判断依赖声明是否满足。

支持的功能：
  - 对依赖声明文件做一次性检查
  - 阻塞等待依赖满足（带超时）
  - 以表格或JSON格式输出各依赖项结果

使用示例：
  # 以今天为业务日期检查一次
  dependent-engine check -f ./decl/report.yaml

  # 指定业务日期并等待依赖满足
  dependent-engine check -f ./decl/report.yaml --date 2026-10-21 --wait --timeout 2h`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(newCheckCmd())
	rootCmd.AddCommand(newVersionCmd())
	return rootCmd
}

// Execute 执行根命令
func Execute() {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			if exitErr.Err != nil {
				fmt.Fprintln(os.Stderr, exitErr.Err)
			}
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
