package processor

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"resume-screener/internal/types"

	"github.com/cloudwego/eino/components/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockEvaluator 按用户消息内容路由响应
type mockEvaluator struct {
	respond  func(ctx context.Context, user string) (string, error)
	calls    atomic.Int32
	inFlight atomic.Int32
	maxSeen  atomic.Int32
}

func (m *mockEvaluator) Call(ctx context.Context, op, system, user string, _ ...model.Option) (string, error) {
	m.calls.Add(1)
	cur := m.inFlight.Add(1)
	defer m.inFlight.Add(-1)
	for {
		seen := m.maxSeen.Load()
		if cur <= seen || m.maxSeen.CompareAndSwap(seen, cur) {
			break
		}
	}
	return m.respond(ctx, user)
}

const goodScore = `{"education_score":0.5,"skills_score":0.8,"experience_score":0.6,"project_relevance_score":0.4,"final_score":0.66,"domain_match_score":0.9,"adjusted_final_score":0.594,"missing_skills":["Kubernetes"]}`

func sampleJD() *types.JobDescriptionRecord {
	jd := &types.JobDescriptionRecord{
		Skills:                []string{"SQL"},
		EducationRequirements: []string{"BSc Computer Science"},
	}
	jd.Normalize()
	return jd
}

func resumeNamed(name string) types.ResumeRecord {
	r := types.ResumeRecord{
		Skills:           []string{"sql", "python"},
		Projects:         []string{"ETL pipeline"},
		OriginalFileName: name,
	}
	r.Normalize()
	return r
}

func TestScoreBatch_IsolatesFailuresAndKeepsOrder(t *testing.T) {
	eval := &mockEvaluator{respond: func(_ context.Context, user string) (string, error) {
		// 各简历用不同的技能区分；延迟倒序，先提交的最后返回
		switch {
		case strings.Contains(user, `"r2"`):
			return "", types.NewTransportError("score_resume", "", errors.New("503"))
		case strings.Contains(user, `"r0"`):
			time.Sleep(30 * time.Millisecond)
		case strings.Contains(user, `"r1"`):
			time.Sleep(20 * time.Millisecond)
		}
		return goodScore, nil
	}}

	resumes := make([]types.ResumeRecord, 5)
	for i := range resumes {
		resumes[i] = resumeNamed(fmt.Sprintf("cv%d.pdf", i))
		resumes[i].Skills = []string{fmt.Sprintf("r%d", i)}
	}

	outcomes := NewScorer(eval).ScoreBatch(context.Background(), resumes, sampleJD())
	require.Len(t, outcomes, 5)
	for i, o := range outcomes {
		if i == 2 {
			assert.False(t, o.Succeeded())
			assert.Equal(t, string(types.KindTransport), o.Failure.Kind)
			continue
		}
		require.True(t, o.Succeeded(), "resume %d", i)
		assert.InDelta(t, 0.594, float64(o.Score.AdjustedFinalScore), 1e-9)
	}
	assert.EqualValues(t, 5, eval.calls.Load())
}

func TestScoreBatch_ConcurrencyLimit(t *testing.T) {
	eval := &mockEvaluator{respond: func(context.Context, string) (string, error) {
		time.Sleep(10 * time.Millisecond)
		return goodScore, nil
	}}
	resumes := make([]types.ResumeRecord, 6)
	for i := range resumes {
		resumes[i] = resumeNamed("cv.pdf")
	}

	outcomes := NewScorer(eval, WithScoreConcurrency(2)).ScoreBatch(context.Background(), resumes, sampleJD())
	require.Len(t, outcomes, 6)
	assert.LessOrEqual(t, eval.maxSeen.Load(), int32(2))
}

func TestScoreBatch_Empty(t *testing.T) {
	eval := &mockEvaluator{respond: func(context.Context, string) (string, error) { return goodScore, nil }}
	assert.Empty(t, NewScorer(eval).ScoreBatch(context.Background(), nil, sampleJD()))
	assert.EqualValues(t, 0, eval.calls.Load())
}

func TestScore_ContractErrorOnNonJSON(t *testing.T) {
	eval := &mockEvaluator{respond: func(context.Context, string) (string, error) {
		return "The candidate looks great!", nil
	}}
	r := resumeNamed("cv.pdf")
	o := NewScorer(eval).Score(context.Background(), &r, sampleJD())
	require.False(t, o.Succeeded())
	assert.Equal(t, string(types.KindContract), o.Failure.Kind)
	assert.ErrorIs(t, o.Failure.Err, types.ErrEvaluatorContract)
}

func TestScore_PromptEmbedsResumeAndJD(t *testing.T) {
	var got string
	eval := &mockEvaluator{respond: func(_ context.Context, user string) (string, error) {
		got = user
		return goodScore, nil
	}}
	r := resumeNamed("cv.pdf")
	r.ContactInfo = types.ContactInfo{Name: "Jane Doe", Email: "jane@example.com"}
	NewScorer(eval).Score(context.Background(), &r, sampleJD())

	assert.Contains(t, got, `"skills": [`)
	assert.Contains(t, got, `"experience_reqs": []`)
	assert.Contains(t, got, `"education_reqs": [`)
	assert.Contains(t, got, `"projects": [`)
	assert.NotContains(t, got, "jane@example.com", "contact details are not sent for scoring")
}

func TestParseScoreResponse_FencedEqualsPlain(t *testing.T) {
	r := resumeNamed("cv.pdf")
	plain, err := ParseScoreResponse(goodScore, &r, sampleJD())
	require.NoError(t, err)
	fenced, err := ParseScoreResponse("```json\n"+goodScore+"\n```", &r, sampleJD())
	require.NoError(t, err)
	assert.Equal(t, plain, fenced)
	assert.Equal(t, 0.5, fenced.EducationScore)
	assert.Equal(t, []string{"Kubernetes"}, fenced.MissingSkills)
}

func TestParseScoreResponse_EducationDefaultsWithoutRequirement(t *testing.T) {
	jd := &types.JobDescriptionRecord{Skills: []string{"SQL"}}
	jd.Normalize()
	r := types.ResumeRecord{Skills: []string{"SQL", "Python"}}
	r.Normalize()

	res, err := ParseScoreResponse(`{"education_score":0.2,"skills_score":1,"experience_score":0.5,"final_score":0.7,"domain_match_score":1,"adjusted_final_score":0.7}`, &r, jd)
	require.NoError(t, err)
	assert.Equal(t, 1.0, res.EducationScore)
	assert.Equal(t, 0.0, res.ProjectRelevanceScore)
}

func TestParseScoreResponse_ProjectZeroWithoutProjects(t *testing.T) {
	r := types.ResumeRecord{}
	r.Normalize()
	res, err := ParseScoreResponse(`{"project_relevance_score":0.9,"adjusted_final_score":0.5}`, &r, sampleJD())
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.ProjectRelevanceScore)
}

func TestParseScoreResponse_MissingAdjustedIsNaN(t *testing.T) {
	r := resumeNamed("cv.pdf")
	for _, raw := range []string{
		`{"skills_score":0.8}`,
		`{"skills_score":0.8,"adjusted_final_score":null}`,
		`{"skills_score":0.8,"adjusted_final_score":"high"}`,
	} {
		res, err := ParseScoreResponse(raw, &r, sampleJD())
		require.NoError(t, err)
		assert.True(t, res.AdjustedFinalScore.IsMissing(), raw)
		assert.NotNil(t, res.MissingSkills)
	}
}

func TestParseScoreResponse_DerivesFinalAndClamps(t *testing.T) {
	r := resumeNamed("cv.pdf")
	res, err := ParseScoreResponse(`{"education_score":1.5,"skills_score":"0.5","experience_score":-2,"project_relevance_score":1,"domain_match_score":0.8,"adjusted_final_score":"0.4"}`, &r, sampleJD())
	require.NoError(t, err)
	assert.Equal(t, 1.0, res.EducationScore)
	assert.Equal(t, 0.5, res.SkillsScore)
	assert.Equal(t, 0.0, res.ExperienceScore)
	assert.InDelta(t, 0.45*0.5+0.10*1+0.10*1, res.FinalScore, 1e-9)
	assert.InDelta(t, (0.45*0.5+0.10*1+0.10*1)*0.8, float64(res.AdjustedFinalScore), 1e-9)
	assert.False(t, math.IsNaN(res.FinalScore))
}

func TestParseScoreResponse_FinalMatchesSubScores(t *testing.T) {
	jd := &types.JobDescriptionRecord{Skills: []string{"Go"}}
	jd.Normalize()
	r := resumeNamed("cv.pdf")

	// 岗位无学历要求，模型仍按 0 分计算了 final
	res, err := ParseScoreResponse(`{"education_score":0,"skills_score":0.5,"experience_score":0.5,"project_relevance_score":0,"final_score":0.4,"domain_match_score":1,"adjusted_final_score":0.4}`, &r, jd)
	require.NoError(t, err)
	assert.Equal(t, 1.0, res.EducationScore)
	assert.InDelta(t, res.WeightedFinal(), res.FinalScore, 1e-9)
	assert.InDelta(t, 0.5, res.FinalScore, 1e-9)
	assert.InDelta(t, 0.5, float64(res.AdjustedFinalScore), 1e-9)

	p := &Pipeline{settings: DefaultSettings()}
	entry := p.BuildEntry(&r, types.ScoreOK(res), "cv.pdf")
	assert.Equal(t, types.Percent(50), entry.MatchPercent)
	assert.Equal(t, types.Percent(100), entry.EducationScore)
}

func TestParseScoreResponse_PercentStyleAdjustedStaysBounded(t *testing.T) {
	r := resumeNamed("cv.pdf")
	res, err := ParseScoreResponse(`{"education_score":80,"skills_score":90,"experience_score":70,"project_relevance_score":60,"domain_match_score":95,"adjusted_final_score":81}`, &r, sampleJD())
	require.NoError(t, err)
	assert.InDelta(t, res.WeightedFinal(), res.FinalScore, 1e-9)
	assert.InDelta(t, 1.0, float64(res.AdjustedFinalScore), 1e-9)

	p := &Pipeline{settings: DefaultSettings()}
	entry := p.BuildEntry(&r, types.ScoreOK(res), "cv.pdf")
	assert.GreaterOrEqual(t, float64(entry.MatchPercent), 0.0)
	assert.LessOrEqual(t, float64(entry.MatchPercent), 100.0)
}

func TestParseScoreResponse_NoJSON(t *testing.T) {
	r := resumeNamed("cv.pdf")
	_, err := ParseScoreResponse("no object here", &r, sampleJD())
	assert.Error(t, err)
}
