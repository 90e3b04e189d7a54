// Package fewshot selects few-shot examples from user travel history,
// choosing a detail level by similarity to the current request and formatting
// the result for prompt injection.
package fewshot

import (
	"github.com/hrygo/tripsense/ai/history"
	"github.com/hrygo/tripsense/internal/strutil"
)

// Similarity component weights and the satisfaction rating scale.
const (
	weightDestination  = 0.4
	weightPreferences  = 0.4
	weightSatisfaction = 0.2
	ratingScale        = 5.0
)

// stopwords are dropped from preference tokens before overlap scoring.
var stopwords = map[string]struct{}{
	"and": {}, "the": {}, "a": {}, "an": {}, "or": {},
	"but": {}, "in": {}, "on": {}, "at": {}, "to": {}, "for": {},
}

// Similarity scores a past trip against the current request, in [0, 1].
// Destination and preference overlap each contribute up to 0.4 (Jaccard over
// case-folded tokens), a positive satisfaction rating up to 0.2. Pure, no
// side effects.
func Similarity(trip history.Trip, destination, preferences string) float64 {
	score := 0.0

	tripDest := strutil.TokenSet(trip.Destination)
	reqDest := strutil.TokenSet(destination)
	if inter := intersection(tripDest, reqDest); inter > 0 {
		score += weightDestination * float64(inter) / float64(union(tripDest, reqDest))
	}

	tripPrefs := dropStopwords(strutil.TokenSet(trip.Preferences))
	reqPrefs := dropStopwords(strutil.TokenSet(preferences))
	if len(tripPrefs) > 0 && len(reqPrefs) > 0 {
		if total := union(tripPrefs, reqPrefs); total > 0 {
			score += weightPreferences * float64(intersection(tripPrefs, reqPrefs)) / float64(total)
		}
	}

	if trip.SatisfactionRating > 0 {
		score += weightSatisfaction * float64(trip.SatisfactionRating) / ratingScale
	}

	if score > 1.0 {
		score = 1.0
	}
	return score
}

func dropStopwords(set map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{}, len(set))
	for tok := range set {
		if _, ok := stopwords[tok]; !ok {
			out[tok] = struct{}{}
		}
	}
	return out
}

func intersection(a, b map[string]struct{}) int {
	n := 0
	for tok := range a {
		if _, ok := b[tok]; ok {
			n++
		}
	}
	return n
}

func union(a, b map[string]struct{}) int {
	n := len(a)
	for tok := range b {
		if _, ok := a[tok]; !ok {
			n++
		}
	}
	return n
}
