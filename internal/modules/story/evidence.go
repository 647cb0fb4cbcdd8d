package story

import (
	"fmt"
	"strings"

	"github.com/petrel-quant/petrel/internal/domain"
)

const maxEvidenceItems = 20

// ParseEvidence splits a raw news dump into numbered evidence items. Items
// are "### " headed blocks; the head line becomes the title, the remainder
// the snippet, ids E1..En. Capped at maxEvidenceItems.
func ParseEvidence(raw string) []domain.Evidence {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	var items []domain.Evidence
	blocks := strings.Split(raw, "### ")
	for _, block := range blocks {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		title, snippet := block, ""
		if i := strings.IndexByte(block, '\n'); i >= 0 {
			title = strings.TrimSpace(block[:i])
			snippet = strings.TrimSpace(block[i+1:])
		}
		if len([]rune(snippet)) > 400 {
			snippet = string([]rune(snippet)[:400])
		}
		items = append(items, domain.Evidence{
			ID:      fmt.Sprintf("E%d", len(items)+1),
			Title:   title,
			Snippet: snippet,
		})
		if len(items) >= maxEvidenceItems {
			break
		}
	}
	return items
}

// companySnapshot condenses the fundamentals and business text into the
// short profile block the prompts lead with.
type companySnapshot struct {
	Intro           string
	BusinessAxes    []string
	BusinessExcerpt string
	Fundamentals    string
}

func buildSnapshot(in Input) companySnapshot {
	business := strings.TrimSpace(in.Business)
	if business == "" {
		business = businessFromFundamentals(in.Fundamentals)
	}
	snap := companySnapshot{
		Intro:           fmt.Sprintf("%s（%s），行业：%s", in.Name, in.Symbol, orUnknown(in.Industry)),
		BusinessExcerpt: excerpt(business, 600),
		Fundamentals:    excerpt(in.Fundamentals, 800),
	}
	for _, line := range strings.Split(business, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "- ") || strings.HasPrefix(line, "* ") {
			snap.BusinessAxes = append(snap.BusinessAxes, strings.TrimSpace(line[2:]))
		}
		if len(snap.BusinessAxes) >= 5 {
			break
		}
	}
	if len(snap.BusinessAxes) == 0 && business != "" {
		for _, part := range strings.FieldsFunc(business, isBusinessSep) {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			snap.BusinessAxes = append(snap.BusinessAxes, part)
			if len(snap.BusinessAxes) >= 5 {
				break
			}
		}
	}
	return snap
}

// businessKeys are tried in order against the fundamentals key-value map.
var businessKeys = []string{"主营业务", "经营范围", "公司简介", "主营构成"}

// businessFromFundamentals recovers the main-business text from the
// fundamentals markdown when no dedicated business text was supplied.
func businessFromFundamentals(fundamentals string) string {
	kv := parseFundamentalsMap(fundamentals)
	for _, key := range businessKeys {
		if v := kv[key]; v != "" {
			return v
		}
	}
	return ""
}

// parseFundamentalsMap reads "- **键**: 值" bullet lines into a map.
func parseFundamentalsMap(text string) map[string]string {
	out := make(map[string]string)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "- **") {
			continue
		}
		rest := line[len("- **"):]
		i := strings.Index(rest, "**:")
		if i < 0 {
			continue
		}
		key := strings.TrimSpace(rest[:i])
		val := strings.TrimSpace(rest[i+len("**:"):])
		if key != "" && val != "" {
			out[key] = val
		}
	}
	return out
}

func isBusinessSep(r rune) bool {
	switch r {
	case '；', ';', '，', ',', '、', '/':
		return true
	}
	return false
}

func excerpt(s string, maxRunes int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) > maxRunes {
		return string(r[:maxRunes])
	}
	return s
}

func orUnknown(s string) string {
	if s == "" {
		return "未知"
	}
	return s
}
