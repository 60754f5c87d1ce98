package output

import (
	"encoding/json"
	"io"

	"github.com/fatih/color"

	"github.com/LENAX/dependent-engine/pkg/core/depend"
)

// PrintJSON 输出JSON格式
func PrintJSON(w io.Writer, data interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// Success 输出成功消息
func Success(w io.Writer, format string, args ...interface{}) {
	color.New(color.FgGreen, color.Bold).Fprintf(w, "✅ "+format+"\n", args...)
}

// Error 输出错误消息
func Error(w io.Writer, format string, args ...interface{}) {
	color.New(color.FgRed, color.Bold).Fprintf(w, "❌ "+format+"\n", args...)
}

// Info 输出信息
func Info(w io.Writer, format string, args ...interface{}) {
	color.New(color.FgCyan).Fprintf(w, "ℹ️  "+format+"\n", args...)
}

// Warning 输出警告
func Warning(w io.Writer, format string, args ...interface{}) {
	color.New(color.FgYellow).Fprintf(w, "⚠️  "+format+"\n", args...)
}

// Result 按依赖结果着色输出最终结论
func Result(w io.Writer, result depend.DependResult) {
	switch result {
	case depend.DependResultSuccess:
		Success(w, "依赖已满足: %s", result)
	case depend.DependResultFailed:
		Error(w, "依赖失败: %s", result)
	default:
		Warning(w, "依赖仍在等待: %s", result)
	}
}

// ColorResult 返回着色后的依赖结果文本
func ColorResult(result depend.DependResult) string {
	switch result {
	case depend.DependResultSuccess:
		return color.GreenString(string(result))
	case depend.DependResultFailed:
		return color.RedString(string(result))
	default:
		return color.YellowString(string(result))
	}
}
