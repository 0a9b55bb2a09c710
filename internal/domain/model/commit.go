package model

import "time"

// CommitAuthor identifies who wrote a commit.
type CommitAuthor struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required,email"`
}

// FileStat is the per-file line delta of a commit.
type FileStat struct {
	FilePath     string `json:"filePath" validate:"required"`
	LinesAdded   int    `json:"linesAdded" validate:"gte=0"`
	LinesDeleted int    `json:"linesDeleted" validate:"gte=0"`
}

// Commit is a single unit of repository history submitted for ingestion.
type Commit struct {
	Hash        string       `json:"hash" validate:"required"`
	Message     string       `json:"message"`
	Timestamp   int64        `json:"timestamp" validate:"gte=0"` // unix millis
	Contributor CommitAuthor `json:"contributor" validate:"required"`
	Files       []FileStat   `json:"files" validate:"dive"`
}

// Contributor is a commit author aggregated by email.
type Contributor struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	FirstSeen int64  `json:"firstSeen"` // unix millis
	LastSeen  int64  `json:"lastSeen"`  // unix millis
}

// Feature is an ingested commit attributed to a contributor.
type Feature struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	Hash          string `json:"hash"`
	Timestamp     int64  `json:"timestamp"` // unix millis
	ContributorID string `json:"contributorId"`
}

// FeatureFile is a file touched by a feature.
type FeatureFile struct {
	ID           string `json:"id"`
	FeatureID    string `json:"featureId"`
	FilePath     string `json:"filePath"`
	LinesAdded   int    `json:"linesAdded"`
	LinesDeleted int    `json:"linesDeleted"`
}

// FeatureWithFiles bundles a feature with the files it changed.
type FeatureWithFiles struct {
	Feature
	Files []FeatureFile `json:"files"`
}

// Totals counts stored history.
type Totals struct {
	Features     int `json:"totalCommitsAnalyzed"`
	Contributors int `json:"totalContributors"`
	Files        int `json:"totalFilesChanged"`
}

// MillisToTime converts unix milliseconds to UTC time.
func MillisToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
