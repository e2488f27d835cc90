package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"resume-screener/internal/api/handler"
	"resume-screener/internal/export"
	"resume-screener/internal/processor"
	"resume-screener/internal/types"

	"github.com/spf13/cobra"
)

var (
	analyzeJDFile string
	analyzeJDText string
	analyzeTopN   string
	analyzeOrder  string
	analyzeXLSX   string
	analyzeJSON   bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze --jd <file> <resume>...",
	Short: "按岗位描述为本地简历打分并排序",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().StringVar(&analyzeJDFile, "jd", "", "岗位描述文本文件")
	analyzeCmd.Flags().StringVar(&analyzeJDText, "jd-text", "", "岗位描述文本 (与 --jd 二选一)")
	analyzeCmd.Flags().StringVar(&analyzeTopN, "top-n", "", "返回条数，0 或 all 表示全部 (默认取配置)")
	analyzeCmd.Flags().StringVar(&analyzeOrder, "order", "desc", "排序方向 asc|desc")
	analyzeCmd.Flags().StringVar(&analyzeXLSX, "xlsx", "", "同时导出 XLSX 到该路径")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "以 JSON 输出完整结果")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	jdText, err := readJobDescription()
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	topN, err := handler.ParseTopN(analyzeTopN, cfg.Pipeline.DefaultTopN)
	if err != nil {
		return err
	}
	descending, err := handler.ParseOrder(analyzeOrder)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	pipeline, err := processor.NewPipelineFromConfig(ctx, cfg, &processor.FactoryOptions{Logger: componentLogger})
	if err != nil {
		return err
	}

	docs := make([]processor.ResumeDocument, len(args))
	for i, path := range args {
		docs[i] = processor.ResumeDocument{FileName: filepath.Base(path), Path: path}
	}

	result, err := pipeline.Analyze(ctx, processor.AnalyzeRequest{
		JobDescription: jdText,
		Documents:      docs,
		TopN:           topN,
		Descending:     descending,
	})
	if err != nil {
		var jdErr *types.JDNormalizationError
		if errors.As(err, &jdErr) {
			return fmt.Errorf("岗位描述解析失败: %s\n原始输出: %s", jdErr.Message, jdErr.RawOutput)
		}
		return err
	}

	out := cmd.OutOrStdout()
	if analyzeJSON {
		data, err := json.MarshalIndent(result.Ranked, "", "  ")
		if err != nil {
			return fmt.Errorf("序列化结果失败: %w", err)
		}
		fmt.Fprintln(out, string(data))
	} else {
		printRanked(out, result)
	}

	if analyzeXLSX != "" {
		f, err := os.Create(analyzeXLSX)
		if err != nil {
			return fmt.Errorf("创建 XLSX 文件失败: %w", err)
		}
		defer f.Close()
		if err := export.WriteShortlist(f, result.Ranked); err != nil {
			return err
		}
		fmt.Fprintf(out, "已导出到 %s\n", analyzeXLSX)
	}
	return nil
}

func readJobDescription() (string, error) {
	if analyzeJDText != "" {
		return analyzeJDText, nil
	}
	if analyzeJDFile == "" {
		return "", fmt.Errorf("必须通过 --jd 或 --jd-text 提供岗位描述")
	}
	data, err := os.ReadFile(analyzeJDFile)
	if err != nil {
		return "", fmt.Errorf("读取岗位描述失败: %w", err)
	}
	return string(data), nil
}

func printRanked(w io.Writer, result *processor.AnalyzeResult) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tNAME\tMATCH %\tSKILLS\tEXPERIENCE\tEDUCATION\tPROJECTS\tMISSING\tFILE")
	for i, e := range result.Ranked {
		if e.Failed() {
			fmt.Fprintf(tw, "%d\t%s\t-\t-\t-\t-\t-\t-\t%s (%s)\n", i+1, e.Name, e.OriginalFileName, e.Error)
			continue
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n", i+1, e.Name,
			formatPercent(e.MatchPercent), formatPercent(e.SkillsScore), formatPercent(e.ExperienceScore),
			formatPercent(e.EducationScore), formatPercent(e.ProjectScore),
			strings.Join(e.MissingSkills, ", "), e.OriginalFileName)
	}
	tw.Flush()
	fmt.Fprintf(w, "\n共 %d 份简历，失败 %d 份\n", len(result.Records), result.Failed)
}

func formatPercent(p types.Percent) string {
	if p.IsMissing() {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", float64(p))
}
