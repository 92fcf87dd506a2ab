// Package nlp holds the replaceable language heuristics of the bot: intent
// classification, slot extraction, area and route parsing. The dialogue
// state machine only depends on the Classifier and Extractor interfaces.
package nlp

import "github.com/soyeahso/mrbooky/internal/domain"

// Prediction is an advisory intent guess.
type Prediction struct {
	Intent     domain.Intent `json:"intent"`
	Confidence float64       `json:"confidence"`
}

// Classifier guesses the intent of a message.
type Classifier interface {
	Classify(text string, active domain.Intent, missing []string) Prediction
}

// Extractor pulls slot values out of free text. Keys are slot names
// (area, origin, destination, which_day, pickup_time, pickup_date, pax, phone, ...).
type Extractor interface {
	Extract(text string) map[string]string
}

// ClassifierFunc adapts a function to the Classifier interface.
type ClassifierFunc func(text string, active domain.Intent, missing []string) Prediction

func (f ClassifierFunc) Classify(text string, active domain.Intent, missing []string) Prediction {
	return f(text, active, missing)
}

// ExtractorFunc adapts a function to the Extractor interface.
type ExtractorFunc func(text string) map[string]string

func (f ExtractorFunc) Extract(text string) map[string]string { return f(text) }
