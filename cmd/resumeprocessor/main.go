package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"resume-screener/internal/config"

	"github.com/spf13/cobra"
)

const app = "resumeprocessor"

var (
	cfgFile string
	maxLen  int
	verbose bool

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "离线处理本地简历文件：提取文本、切分章节、按岗位描述打分排序",
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "配置文件路径 (默认在当前目录查找 config.yaml)")
	rootCmd.PersistentFlags().IntVar(&maxLen, "maxlen", 1000, "显示的文本最大长度，设为-1显示全部")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "输出组件日志到 stderr")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("加载配置失败: %w", err)
	}
	return cfg, nil
}

func componentLogger(component string, _ bool) *log.Logger {
	if !verbose {
		return log.New(io.Discard, "", 0)
	}
	return log.New(os.Stderr, "["+component+"] ", log.LstdFlags)
}

// truncate 按 maxLen 截断展示文本
func truncate(text string) string {
	runes := []rune(text)
	if maxLen < 0 || len(runes) <= maxLen {
		return text
	}
	return string(runes[:maxLen]) + fmt.Sprintf("\n... (已截断，共 %d 字符)", len(runes))
}
