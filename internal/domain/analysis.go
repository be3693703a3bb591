package domain

import (
	"fmt"
	"math/rand/v2"
	"strings"
)

type Stage string

const (
	StageInitial          Stage = "initial"
	StageQueryGen         Stage = "queries"
	StageConflictEvidence Stage = "conflict"
	StageSupportQuery     Stage = "supportQuery"
	StageSupportEvidence  Stage = "support"
	StageFinal            Stage = "final"
	StageDone             Stage = "done"

	// StageTranscribe turns a recorded conversation into a Debate. It is not
	// part of the analysis pipeline.
	StageTranscribe Stage = "transcribeAndExtract"
)

type Link struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

type StageResult struct {
	Stage          Stage    `json:"stage"`
	Title          string   `json:"title"`
	SummaryBullets []string `json:"summaryBullets"`
	Narration      string   `json:"narration"`
	OneLineSummary string   `json:"oneLineSummary"`
}

type AnalysisResult struct {
	Topic               string   `json:"topic"`
	PerspectiveALabel   string   `json:"perspectiveALabel"`
	PerspectiveBLabel   string   `json:"perspectiveBLabel"`
	PerspectiveABullets []string `json:"perspectiveABullets"`
	PerspectiveBBullets []string `json:"perspectiveBBullets"`
	SummaryBullets      []string `json:"summaryBullets"`
	Narration           string   `json:"narration"`
	SummaryLinks        []Link   `json:"summaryLinks"`
	PerspectiveALinks   []Link   `json:"perspectiveALinks"`
	PerspectiveBLinks   []Link   `json:"perspectiveBLinks"`
}

// Debate is the input shared by every stage of one conversation.
type Debate struct {
	Topic             string          `json:"topic"`
	OpinionA          string          `json:"opinionA"`
	OpinionB          string          `json:"opinionB"`
	PerspectiveALabel string          `json:"perspectiveALabel,omitempty"`
	PerspectiveBLabel string          `json:"perspectiveBLabel,omitempty"`
	PreviousAnalysis  *AnalysisResult `json:"previousAnalysis,omitempty"`

	// Mode is how the conversation was paid for. It is set by the server
	// after charging and selects the model tier; clients cannot supply it.
	Mode Mode `json:"-"`
}

func (d Debate) Validate() error {
	if strings.TrimSpace(d.Topic) == "" {
		return fmt.Errorf("%w: topic is required", ErrInvalidRequest)
	}
	if strings.TrimSpace(d.OpinionA) == "" || strings.TrimSpace(d.OpinionB) == "" {
		return fmt.Errorf("%w: both opinions are required", ErrInvalidRequest)
	}

	return nil
}

func (d Debate) Labels() (string, string) {
	a := strings.TrimSpace(d.PerspectiveALabel)
	if a == "" {
		a = "Perspective A"
	}
	b := strings.TrimSpace(d.PerspectiveBLabel)
	if b == "" {
		b = "Perspective B"
	}

	return a, b
}

// Fruits name the two sides of a conversation when the caller gives no labels.
var Fruits = []string{"Apple", "Banana", "Cherry", "Grape", "Lemon", "Mango", "Orange", "Peach", "Pear", "Strawberry"}

// RandomFruitPair returns two distinct fruit names.
func RandomFruitPair() (string, string) {
	perm := rand.Perm(len(Fruits))
	return Fruits[perm[0]], Fruits[perm[1]]
}

// WithLabels fills both labels from pick when the caller left both empty.
func (d Debate) WithLabels(pick func() (string, string)) Debate {
	if strings.TrimSpace(d.PerspectiveALabel) != "" || strings.TrimSpace(d.PerspectiveBLabel) != "" || pick == nil {
		return d
	}
	d.PerspectiveALabel, d.PerspectiveBLabel = pick()

	return d
}

// SearchResult is one hit returned by an evidence search.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

func (r SearchResult) Link() Link {
	return Link{Title: r.Title, URL: r.URL}
}
