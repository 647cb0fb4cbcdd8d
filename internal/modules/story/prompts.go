package story

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/petrel-quant/petrel/internal/domain"
)

const systemPrompt = `你是一名严谨的A股叙事分析师。只基于给定材料作答，禁止编造事实。
所有论断使用统一的 claim 结构：{"text": "...", "type": "HARD|INFERRED", "evidence_ids": ["E1"], "basis": "..."}。
HARD 论断必须引用证据编号；INFERRED 论断必须给出推理依据 basis。
只输出 JSON，不要输出任何解释文字。`

// buildDocument renders the shared input document every stage leads with.
func buildDocument(in Input, evidence []domain.Evidence) string {
	snap := buildSnapshot(in)
	var b strings.Builder

	fmt.Fprintf(&b, "## 标的\n%s，当日涨幅 %.2f%%\n\n", snap.Intro, in.ChangePct)

	b.WriteString("## 公司速览\n")
	if len(snap.BusinessAxes) > 0 {
		b.WriteString("业务方向：\n")
		for _, ax := range snap.BusinessAxes {
			fmt.Fprintf(&b, "- %s\n", ax)
		}
	}
	if snap.BusinessExcerpt != "" {
		fmt.Fprintf(&b, "主营摘录：%s\n", snap.BusinessExcerpt)
	}
	if snap.Fundamentals != "" {
		fmt.Fprintf(&b, "基本面摘录：%s\n", snap.Fundamentals)
	}
	b.WriteString("\n## 证据清单\n")
	if len(evidence) == 0 {
		b.WriteString("（无可用新闻）\n")
	}
	for _, e := range evidence {
		fmt.Fprintf(&b, "[%s] %s\n%s\n\n", e.ID, e.Title, e.Snippet)
	}

	if len(in.Concepts) > 0 {
		fmt.Fprintf(&b, "## 概念标签\n%s\n", strings.Join(in.Concepts, "、"))
	}
	return b.String()
}

func narrativePrompt(doc string) string {
	return doc + `
## 任务：叙事识别
识别市场当前给这家公司讲的故事。输出 JSON：
{
  "company_profile": "一句话公司画像",
  "market_narratives": [claim, ...],
  "company_directions": [claim, ...],
  "evidence_grade": "Strong|Medium|Weak",
  "grade_reason": "证据硬度评级理由",
  "data_gaps": ["缺失信息"],
  "main_narrative_a": "仅当存在传统主业叙事时填写",
  "main_narrative_b": "仅当存在新方向叙事时填写"
}
market_narratives 至少一条。同时存在传统主业与新方向两条线时才填 A/B。`
}

func timelinePrompt(doc string, narrative *NarrativeOutput) string {
	prior, _ := json.Marshal(narrative)
	return doc + fmt.Sprintf(`
## 上一阶段叙事结论
%s

## 任务：催化时间线
梳理未来 1-3 个月可验证的催化事件。输出 JSON：
{
  "events": [{"text": "...", "type": "HARD|INFERRED", "evidence_ids": [], "basis": "", "window": "如 2026-09 或 1个月内"}],
  "near_term_grade": "Strong|Medium|Weak",
  "mid_term_grade": "Strong|Medium|Weak",
  "data_gaps": [],
  "unverifiable_note": "无任何可验证催化时必须说明，禁止编造事件"
}`, prior)
}

func synthesisPrompt(doc string, narrative *NarrativeOutput, timeline *TimelineOutput) string {
	p1, _ := json.Marshal(narrative)
	p2, _ := json.Marshal(timeline)
	return doc + fmt.Sprintf(`
## 叙事结论
%s

## 催化时间线
%s

## 任务：故事卡合成
综合以上材料输出最终故事卡 JSON：
{
  "market_impression": "市场印象",
  "one_liner": "一句话故事",
  "company_basics": "公司基本盘",
  "story": {"narrative_claims": [claim], "direction_claims": [claim], "so_what": "对股价意味着什么"},
  "highlights": [{"text": "...", "grade": "Strong|Medium|Weak"}],
  "drawbacks": [{"text": "...", "grade": "Strong|Medium|Weak"}],
  "evidence_assessment": {"grade": "Strong|Medium|Weak", "hard_evidence": [], "weak_points": []},
  "timeline_summary": {"near_term": "...", "mid_term": "..."},
  "why_money_comes": ["资金为什么来"],
  "downgrade_rules": [{"signal": "...", "action": "...", "trigger": "..."}],
  "notes": {"data_gaps": [], "strictness": "评审口径说明"},
  "main_story_a": "",
  "main_story_b": ""
}`, p1, p2)
}
