package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"resume-screener/internal/processor"

	"github.com/spf13/cobra"
)

var extractSaveFile string

var extractCmd = &cobra.Command{
	Use:   "extract <file>...",
	Short: "提取简历文件的纯文本",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)
	extractCmd.Flags().StringVarP(&extractSaveFile, "save", "o", "", "保存提取内容到文件 (只处理一个文件时可用)")
}

func runExtract(cmd *cobra.Command, args []string) error {
	if extractSaveFile != "" && len(args) > 1 {
		return fmt.Errorf("--save 只能和单个文件一起使用")
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
	defer cancel()

	renderer, err := processor.NewRendererFromConfig(ctx, cfg, componentLogger("Renderer", true))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, path := range args {
		start := time.Now()
		text, err := renderer.RenderFile(ctx, path, filepath.Base(path))
		if err != nil {
			fmt.Fprintf(out, "提取 %s 失败: %v\n", path, err)
			continue
		}
		fmt.Fprintf(out, "\n===== %s (共 %d 字符, 耗时 %v) =====\n", path, len([]rune(text)), time.Since(start))
		fmt.Fprintln(out, truncate(text))

		if extractSaveFile != "" {
			if err := os.WriteFile(extractSaveFile, []byte(text), 0o644); err != nil {
				return fmt.Errorf("保存提取内容失败: %w", err)
			}
			fmt.Fprintf(out, "已保存到 %s\n", extractSaveFile)
		}
	}
	return nil
}
