package types

import (
	"bytes"
	"encoding/json"
	"strings"
)

// SectionCategory 表示章节标题所属的类别
type SectionCategory string

const (
	// CategoryEducation 教育经历
	CategoryEducation SectionCategory = "EDUCATION"
	// CategoryExperience 工作/实习/研究经历
	CategoryExperience SectionCategory = "EXPERIENCE"
	// CategorySkills 技能
	CategorySkills SectionCategory = "SKILLS"
	// CategoryProjects 项目经历
	CategoryProjects SectionCategory = "PROJECTS"
	// CategoryCertifications 证书与培训
	CategoryCertifications SectionCategory = "CERTIFICATIONS"
	// CategoryAwards 奖项
	CategoryAwards SectionCategory = "AWARDS"
	// CategorySummary 个人简介
	CategorySummary SectionCategory = "SUMMARY"
	// CategoryObjective 求职目标
	CategoryObjective SectionCategory = "OBJECTIVE"
	// CategoryMisc 其他
	CategoryMisc SectionCategory = "MISC"
)

// HeaderLabel 是首个标题之前文本所在的合成章节
const HeaderLabel = "HEADER"

// SectionMap 有序的 章节标签 -> 章节正文 映射
// 零值不可用，请使用 NewSectionMap。HEADER 键始终存在。
type SectionMap struct {
	order  []string
	bodies map[string]string
}

// NewSectionMap 创建只包含空 HEADER 的 SectionMap
func NewSectionMap() *SectionMap {
	return &SectionMap{
		order:  []string{HeaderLabel},
		bodies: map[string]string{HeaderLabel: ""},
	}
}

// Append 将正文追加到 label 下；label 首次出现时记录其顺序
func (m *SectionMap) Append(label, body string) {
	if body == "" {
		return
	}
	existing, ok := m.bodies[label]
	if !ok {
		m.order = append(m.order, label)
		m.bodies[label] = body
		return
	}
	if existing == "" {
		m.bodies[label] = body
		return
	}
	m.bodies[label] = existing + "\n" + body
}

// Get 返回 label 对应的正文
func (m *SectionMap) Get(label string) (string, bool) {
	if m == nil {
		return "", false
	}
	body, ok := m.bodies[label]
	return body, ok
}

// Has 判断 label 是否存在
func (m *SectionMap) Has(label string) bool {
	_, ok := m.Get(label)
	return ok
}

// Header 返回 HEADER 章节正文
func (m *SectionMap) Header() string {
	body, _ := m.Get(HeaderLabel)
	return body
}

// Labels 按出现顺序返回所有标签（副本）
func (m *SectionMap) Labels() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

// Len 返回章节数量
func (m *SectionMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.order)
}

// ToMap 导出为普通 map，便于序列化和调试输出
func (m *SectionMap) ToMap() map[string]string {
	out := make(map[string]string, len(m.bodies))
	for k, v := range m.bodies {
		out[k] = v
	}
	return out
}

// String 以 "LABEL:\nbody" 形式按顺序输出，主要用于 CLI 展示
func (m *SectionMap) String() string {
	var sb strings.Builder
	for i, label := range m.order {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(label)
		sb.WriteString(":\n")
		sb.WriteString(m.bodies[label])
	}
	return sb.String()
}

// ContactInfo 候选人联系方式，各字段都可能为空
type ContactInfo struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// IsEmpty 三个字段是否全部为空
func (c ContactInfo) IsEmpty() bool {
	return c.Name == "" && c.Email == "" && c.Phone == ""
}

// Duration 工作经历的起止时间（原样保留模型返回的文本）
type Duration struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// UnmarshalJSON 兼容模型把 duration 直接写成字符串的情况，如 "2019 - 2021"
func (d *Duration) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		d.Start, d.End = splitDurationText(s)
		return nil
	}
	type plain Duration
	var p plain
	if err := json.Unmarshal(trimmed, &p); err != nil {
		return err
	}
	*d = Duration(p)
	return nil
}

func splitDurationText(s string) (string, string) {
	for _, sep := range []string{" - ", " – ", " — ", " to "} {
		if idx := strings.Index(s, sep); idx >= 0 {
			return strings.TrimSpace(s[:idx]), strings.TrimSpace(s[idx+len(sep):])
		}
	}
	return strings.TrimSpace(s), ""
}

// ExperienceEntry 单段工作经历
type ExperienceEntry struct {
	Title            string   `json:"job_title"`
	Organization     string   `json:"company"`
	Duration         Duration `json:"duration"`
	Location         string   `json:"location"`
	Responsibilities []string `json:"responsibilities"`
}

// ExperienceResult 经历/联系方式抽取结果
type ExperienceResult struct {
	ContactInfo ContactInfo       `json:"contact_info"`
	Experience  []ExperienceEntry `json:"experience"`
}

// ResumeRecord 合并四个抽取器输出后的候选人结构化记录
type ResumeRecord struct {
	Skills           []string          `json:"skills"`
	Education        []string          `json:"education"`
	Experience       []ExperienceEntry `json:"experience"`
	Projects         []string          `json:"projects"`
	ContactInfo      ContactInfo       `json:"contact_info"`
	OriginalFileName string            `json:"original_file_name"`
	// 以下字段不参与评分 prompt
	StoredFileName string   `json:"-"`
	Errors         []string `json:"-"`
}

// JobDescriptionRecord 归一化后的岗位描述
type JobDescriptionRecord struct {
	Skills                 []string `json:"skills"`
	Responsibilities       []string `json:"responsibilities"`
	ExperienceRequirements []string `json:"experience_requirements"`
	EducationRequirements  []string `json:"education_requirements"`
}

// Normalize 将 nil 切片替换为空切片
func (j *JobDescriptionRecord) Normalize() {
	if j.Skills == nil {
		j.Skills = []string{}
	}
	if j.Responsibilities == nil {
		j.Responsibilities = []string{}
	}
	if j.ExperienceRequirements == nil {
		j.ExperienceRequirements = []string{}
	}
	if j.EducationRequirements == nil {
		j.EducationRequirements = []string{}
	}
}

// Normalize 将 nil 切片替换为空切片，保证 JSON 输出为 []
func (r *ResumeRecord) Normalize() {
	if r.Skills == nil {
		r.Skills = []string{}
	}
	if r.Education == nil {
		r.Education = []string{}
	}
	if r.Experience == nil {
		r.Experience = []ExperienceEntry{}
	}
	if r.Projects == nil {
		r.Projects = []string{}
	}
}
