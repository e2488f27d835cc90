package main

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"resume-screener/internal/parser"
	"resume-screener/internal/processor"
	"resume-screener/internal/types"

	"github.com/spf13/cobra"
)

// sectionOutput 按出现顺序输出的章节
type sectionOutput struct {
	Label string `json:"label"`
	Body  string `json:"body"`
}

type segmentOutput struct {
	File      string            `json:"file"`
	Sections  []sectionOutput   `json:"sections"`
	Skills    []string          `json:"skills"`
	Education []string          `json:"education"`
	Projects  []string          `json:"projects"`
	Contact   types.ContactInfo `json:"contact_fallback"`
	Bodies    map[string]string `json:"bodies,omitempty"`
	Error     string            `json:"error,omitempty"`
}

var segmentFull bool

var segmentCmd = &cobra.Command{
	Use:   "segment <file>...",
	Short: "切分简历章节并提取技能、教育和项目 (不调用评估模型)",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSegment,
}

func init() {
	segmentCmd.Flags().BoolVar(&segmentFull, "full", false, "额外输出未截断的章节正文 (bodies)")
	rootCmd.AddCommand(segmentCmd)
}

func runSegment(cmd *cobra.Command, args []string) error {
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
	segmenter := parser.NewSegmenter()
	catalog := segmenter.Catalog()
	skills := parser.NewSkillExtractor(catalog)
	education := parser.NewEducationExtractor(catalog)
	projects := parser.NewProjectsExtractor(catalog)

	results := make([]segmentOutput, 0, len(args))
	for _, path := range args {
		res := segmentOutput{File: path}
		text, err := renderer.RenderFile(ctx, path, filepath.Base(path))
		if err != nil {
			res.Error = err.Error()
			results = append(results, res)
			continue
		}
		sections := segmenter.Segment(text)
		for _, label := range sections.Labels() {
			body, _ := sections.Get(label)
			res.Sections = append(res.Sections, sectionOutput{Label: label, Body: truncate(body)})
		}
		res.Skills = skills.ExtractAndClean(sections)
		res.Education = education.Extract(sections)
		res.Projects = projects.Extract(sections)
		res.Contact = parser.ContactFromText(sections.Header())
		if segmentFull {
			res.Bodies = sections.ToMap()
		}
		results = append(results, res)
	}

	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化结果失败: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
