package export

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"resume-screener/internal/types"

	"github.com/xuri/excelize/v2"
)

// SheetName 导出工作表名称
const SheetName = "Shortlist"

// ContentType XLSX 响应类型
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var shortlistHeader = []interface{}{
	"Rank", "Name", "Email", "Phone", "Match %",
	"Skills", "Experience", "Education", "Projects", "Domain",
	"Missing Skills", "Original File", "File URL", "Error",
}

// WriteShortlist 把排名结果写成 XLSX。缺失分数留空单元格。
func WriteShortlist(w io.Writer, entries []types.RankedEntry) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("重命名工作表失败: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("创建表头样式失败: %w", err)
	}

	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return fmt.Errorf("创建流式写入器失败: %w", err)
	}
	if err := sw.SetColWidth(2, 4, 24); err != nil {
		return err
	}
	if err := sw.SetColWidth(11, 13, 36); err != nil {
		return err
	}

	header := make([]interface{}, len(shortlistHeader))
	for i, v := range shortlistHeader {
		header[i] = excelize.Cell{StyleID: headerStyle, Value: v}
	}
	if err := sw.SetRow("A1", header, excelize.RowOpts{Height: 18}); err != nil {
		return fmt.Errorf("写入表头失败: %w", err)
	}

	for i, e := range entries {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, shortlistRow(i+1, e)); err != nil {
			return fmt.Errorf("写入第 %d 行失败: %w", i+2, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("刷新工作表失败: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("输出 XLSX 失败: %w", err)
	}
	return nil
}

// ShortlistXLSX WriteShortlist 的字节版本
func ShortlistXLSX(entries []types.RankedEntry) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteShortlist(&buf, entries); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// FileName 下载文件名，形如 shortlist_20240102_150405.xlsx
func FileName(at time.Time) string {
	return "shortlist_" + at.UTC().Format("20060102_150405") + ".xlsx"
}

func shortlistRow(rank int, e types.RankedEntry) []interface{} {
	return []interface{}{
		rank,
		e.Name,
		e.Email,
		e.Phone,
		percentCell(e.MatchPercent),
		percentCell(e.SkillsScore),
		percentCell(e.ExperienceScore),
		percentCell(e.EducationScore),
		percentCell(e.ProjectScore),
		percentCell(e.DomainMatchScore),
		strings.Join(e.MissingSkills, ", "),
		e.OriginalFileName,
		e.OriginalFileURL,
		e.Error,
	}
}

func percentCell(p types.Percent) interface{} {
	if p.IsMissing() {
		return nil
	}
	return float64(p)
}
