package inference

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/menta2k/glasses-detector/pkg/types"
)

// ScoresPrompt asks a vision model for the two class scores of a face image
const ScoresPrompt = `You are a binary image classifier.

Decide whether the person in this image is wearing glasses.

Return JSON only:
{"glasses": 0.0, "no_glasses": 0.0}

HARD RULES
- Both values are scores in [0,1].
- glasses + no_glasses should equal 1.
- If no face is visible, return {"glasses": 0.0, "no_glasses": 1.0}.
- JSON only. No markdown, no code fences, no comments, no trailing commas.`

var (
	reBlock    = regexp.MustCompile(`(?s)/\*.*?\*/`)
	reLine     = regexp.MustCompile(`(?m)^\s*//.*$`)
	reInline   = regexp.MustCompile(`(?m)//.*$`)
	reTrailing = regexp.MustCompile(`,(\s*[}\]])`)
)

type scoresReply struct {
	Glasses   *float64  `json:"glasses"`
	NoGlasses *float64  `json:"no_glasses"`
	Scores    []float64 `json:"scores"`
}

// ParseScores extracts class scores from a vision model reply. It accepts
// either {"glasses": a, "no_glasses": b} or {"scores": [a, b]}.
func ParseScores(raw string) (types.Scores, error) {
	raw = SanitizeModelJSON(raw)
	if !strings.HasPrefix(raw, "{") {
		return types.Scores{}, fmt.Errorf("no json object in model reply")
	}

	var reply scoresReply
	if err := json.Unmarshal([]byte(raw), &reply); err != nil {
		return types.Scores{}, fmt.Errorf("failed to parse model reply: %w", err)
	}

	var s types.Scores
	switch {
	case len(reply.Scores) == 2:
		s = types.Scores{Class0: reply.Scores[0], Class1: reply.Scores[1]}
	case reply.Glasses != nil && reply.NoGlasses != nil:
		s = types.Scores{Class0: *reply.Glasses, Class1: *reply.NoGlasses}
	case len(reply.Scores) > 0:
		return types.Scores{}, fmt.Errorf("expected 2 scores, got %d", len(reply.Scores))
	default:
		return types.Scores{}, fmt.Errorf("model reply has no scores")
	}

	if s.Class0 < 0 || s.Class1 < 0 || math.IsNaN(s.Class0) || math.IsNaN(s.Class1) {
		return types.Scores{}, fmt.Errorf("invalid scores %v", s.Vector())
	}
	return s, nil
}

// SanitizeModelJSON removes code fences, comments, and trailing commas from JSON response
func SanitizeModelJSON(raw string) string {
	raw = strings.TrimSpace(raw)

	// Strip triple-backtick fences if present
	if strings.HasPrefix(raw, "```") {
		if i := strings.Index(raw, "\n"); i >= 0 {
			raw = raw[i+1:]
		}
		if j := strings.LastIndex(raw, "```"); j >= 0 {
			raw = raw[:j]
		}
	}
	raw = strings.TrimSpace(raw)
	raw = strings.Trim(raw, "`")

	raw = reBlock.ReplaceAllString(raw, "")
	raw = reLine.ReplaceAllString(raw, "")
	raw = reInline.ReplaceAllString(raw, "")
	raw = reTrailing.ReplaceAllString(raw, "$1")

	// Keep only the outermost {...}
	if start := strings.Index(raw, "{"); start >= 0 {
		if end := strings.LastIndex(raw, "}"); end > start {
			raw = raw[start : end+1]
		}
	}
	return strings.TrimSpace(raw)
}
