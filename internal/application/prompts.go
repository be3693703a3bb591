package application

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/bnema/beright/internal/domain"
)

var promptTemplates = template.Must(template.New("prompts").Funcs(template.FuncMap{
	"join": strings.Join,
}).Parse(`
{{- define "header" -}}
Topic: "{{.Topic}}"
Perspective 1 (P1): "{{.OpinionA}}"
Perspective 2 (P2): "{{.OpinionB}}"
{{- end -}}

{{- define "initial" -}}
{{template "header" .}}
{{- with .PreviousAnalysis}}

PREVIOUS ANALYSIS CONTEXT (maintain continuity with this):
Previous Summary: {{join .SummaryBullets "; "}}
Previous P1 Insights: {{join .PerspectiveABullets "; "}}
Previous P2 Insights: {{join .PerspectiveBBullets "; "}}
Previous Narration: {{.Narration}}
{{- end}}

Return JSON with:
- summaryBullets: 3 short bullets (max 10 words each) about common ground on this topic
- perspectiveABullets: 3 encouraging bullets - why we'd AGREE with P1's view and what's valuable about it
- perspectiveBBullets: 3 encouraging bullets - why we'd AGREE with P2's view and what's valuable about it
- narration: 2-3 sentences. An engaging response to the two perspectives, optimistic tone, and respectful of the two perspectives.
- oneLineSummary: One sentence (max 12 words) about shared understanding

Return ONLY valid JSON, no markdown.
{{- end -}}

{{- define "queries" -}}
{{template "header" .}}

Generate search queries to find evidence supporting each perspective.

Return JSON with:
- queryA: Search query for P1's perspective (5-8 words)
- queryB: Search query for P2's perspective (5-8 words)

Return ONLY valid JSON.
{{- end -}}

{{- define "conflict" -}}
{{template "header" .Debate}}

Research findings for each perspective:
P1 search: "{{.QueryA}}"
Evidence: {{.EvidenceA}}

P2 search: "{{.QueryB}}"
Evidence: {{.EvidenceB}}

Bearing in mind that BOTH perspectives have validity:

Return JSON with:
- summaryBullets: 3 bullets on why each perspective might initially disagree with the other (while acknowledging both are valid)
- narration: 1-2 sentence narration about the tension between perspectives - first person tone that is interested in the exploration.
- oneLineSummary: One sentence (max 12 words) about the disagreement

Return ONLY valid JSON.
{{- end -}}

{{- define "supportQuery" -}}
{{template "header" .}}

Generate a search query to find nuanced perspectives or synthesis on "{{.Topic}}".

Return JSON with:
- query: Search query (5-8 words)

Return ONLY valid JSON.
{{- end -}}

{{- define "support" -}}
{{template "header" .Debate}}

Research on nuanced perspectives: "{{.Query}}"
Evidence: {{.Evidence}}

Return JSON with:
- summaryBullets: 3 bullets on how different views on "{{.Debate.Topic}}" can coexist
- narration: 1-2 sentence narration about the complimentary nature of the two perspectives - first person tone that is interested in the exploration.
- oneLineSummary: One sentence (max 12 words) about the synthesis

Return ONLY valid JSON.
{{- end -}}

{{- define "final" -}}
{{template "header" .Debate}}

Research journey:
- Initial agreement: {{.InitialNarration}}
- Points of tension: {{.ConflictNarration}}
- Synthesis: {{.SupportNarration}}

You're a top quality on-the-ground reporter - impartial, friendly, punchy with facts. Now that both perspectives are INFORMED:

Return JSON with:
- summaryBullets: 3 CONCISE bullets showing how both can grow their perspectives and find common ground after being informed
- perspectiveABullets: 3 short, punchy bullets for P1 - valuable insights to know. Casual, fact-driven. NO greetings or addresses.
- perspectiveBBullets: 3 short, punchy bullets for P2 - valuable insights to know. Casual, fact-driven. NO greetings or addresses.
- narration: 2-3 sentences. Friendly, impartial. Show how understanding the full picture helps both perspectives see a richer point of view.

Return ONLY valid JSON.
{{- end -}}

{{- define "transcribeAndExtract" -}}
Listen to this conversation recording and extract the debate it contains.

Identify:
1. The main topic being discussed.
2. The first speaker's viewpoint or position.
3. The second speaker's viewpoint or position.

If only one speaker is present, infer the opposing view from what they argue against.
If the recording holds no clear disagreement, describe the two closest positions you hear.

Return JSON with:
- topic: short phrase naming the subject (max 8 words)
- viewpointA: the first position in one or two sentences
- viewpointB: the second position in one or two sentences
- transcript: a brief transcript or summary of what was said
- confidence: "high", "medium" or "low" depending on how clearly two positions were stated

Return ONLY valid JSON.
{{- end -}}
`))

type conflictPromptData struct {
	Debate    domain.Debate
	QueryA    string
	QueryB    string
	EvidenceA string
	EvidenceB string
}

type supportPromptData struct {
	Debate   domain.Debate
	Query    string
	Evidence string
}

func renderPrompt(stage domain.Stage, data any) (string, error) {
	var b strings.Builder
	if err := promptTemplates.ExecuteTemplate(&b, string(stage), data); err != nil {
		return "", fmt.Errorf("render %s prompt: %w", stage, err)
	}

	return b.String(), nil
}
