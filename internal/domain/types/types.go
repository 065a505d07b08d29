// Package types contains types shared between the repository and the HTTP layer.
package types

// Entry is one row of the similarity ranking.
type Entry struct {
	Rank                   int     `json:"rank"`
	ID                     string  `json:"id"`
	OverallScore           float64 `json:"overall_score"`
	IsMatch                bool    `json:"is_match"`
	IsPossibleDoppelganger bool    `json:"is_possible_doppelganger"`
}

// Submission acknowledges an asynchronous comparison.
type Submission struct {
	ID        string `json:"id"`
	Duplicate bool   `json:"duplicate"`
}
