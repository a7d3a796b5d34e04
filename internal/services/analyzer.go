package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/AnshRaj112/moodlog-backend/internal/models"
)

// Analysis is the structured result of analysing one transcript.
type Analysis struct {
	MoodScore         float64  `json:"moodScore" jsonschema:"minimum=0,maximum=100" jsonschema_description:"Overall mood from 0 (lowest) to 100 (most positive)"`
	Summary           string   `json:"summary" jsonschema_description:"First-person diary rewrite of everything the user said"`
	Title             string   `json:"title" jsonschema_description:"Short title, at most 15 to 20 words"`
	SignificantEvents []string `json:"significantEvents" jsonschema:"maxItems=4" jsonschema_description:"At most 4 notable life events, each at most 4 or 5 words"`
}

var analysisSchema = GenerateSchema[Analysis]()

// Analyzer produces the diary summary, title, mood score and significant events for a transcript.
type Analyzer struct {
	client StructuredClient
	model  string
}

func NewAnalyzer(client StructuredClient, model string) *Analyzer {
	return &Analyzer{client: client, model: model}
}

func (a *Analyzer) Analyze(ctx context.Context, transcript string) (Analysis, error) {
	if a.client == nil {
		return Analysis{}, errors.New("analyzer: client is nil")
	}

	var out Analysis
	err := a.client.Extract(ctx, ExtractionRequest{
		Name:         "JournalAnalysis",
		Description:  "Diary rewrite, title, mood score and significant events",
		Model:        a.model,
		Instructions: analysisInstructions,
		Input:        transcript,
		Schema:       analysisSchema,
	}, &out)
	if err != nil {
		return Analysis{}, err
	}

	out.Summary = strings.TrimSpace(out.Summary)
	out.Title = strings.TrimSpace(out.Title)
	out.SignificantEvents = compactStrings(out.SignificantEvents)
	if err := out.validate(); err != nil {
		return Analysis{}, err
	}
	return out, nil
}

func (a Analysis) validate() error {
	if math.IsNaN(a.MoodScore) || a.MoodScore < 0 || a.MoodScore > 100 {
		return fmt.Errorf("%w: moodScore %v outside [0,100]", ErrValidation, a.MoodScore)
	}
	if a.Summary == "" {
		return fmt.Errorf("%w: summary is empty", ErrValidation)
	}
	if a.Title == "" {
		return fmt.Errorf("%w: title is empty", ErrValidation)
	}
	if len(a.SignificantEvents) > models.MaxSignificantEvents {
		return fmt.Errorf("%w: %d significant events (max %d)", ErrValidation, len(a.SignificantEvents), models.MaxSignificantEvents)
	}
	return nil
}

// compactStrings trims every item and drops the blank ones. The result is never nil.
func compactStrings(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
