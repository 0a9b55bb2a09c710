// Package types contains common types used across the application.
package types

// Entry is a contributor's position on the leaderboard.
type Entry struct {
	Rank          int    `json:"rank"`
	ContributorID string `json:"contributorId"`
	Name          string `json:"name,omitempty"`
	Email         string `json:"email,omitempty"`
	FeatureCount  int    `json:"featureCount"`
}
