package services

import (
	"regexp"
	"strings"

	"github.com/skiffdb/skiff/pkg/errors"
)

// StatementType represents the type of SQL statement.
type StatementType int

// The zero value is DQL so an unclassified fetch defaults to tabular
// retrieval rather than statement output.
const (
	StatementTypeDQL     StatementType = iota // SELECT, WITH...SELECT
	StatementTypeDML                          // INSERT, UPDATE, DELETE, MERGE
	StatementTypeDDL                          // CREATE, DROP, ALTER, TRUNCATE
	StatementTypeUtility                      // SHOW, DESCRIBE, EXPLAIN, MSCK, SET, USE
	StatementTypeOther                        // Unrecognized statements
)

// String returns the string representation of the statement type.
func (st StatementType) String() string {
	switch st {
	case StatementTypeDDL:
		return "DDL"
	case StatementTypeDML:
		return "DML"
	case StatementTypeDQL:
		return "DQL"
	case StatementTypeUtility:
		return "UTILITY"
	case StatementTypeOther:
		return "OTHER"
	default:
		return "UNKNOWN"
	}
}

// IsStatementOutput reports whether the statement's result blob is the
// engine's plain-text statement output rather than a tabular result set.
// Utility and DDL statements produce text output with no schema.
func (st StatementType) IsStatementOutput() bool {
	return st == StatementTypeDDL || st == StatementTypeUtility
}

// StatementClassifier determines the type of a SQL statement from its
// leading keyword.
type StatementClassifier struct {
	ddlPatterns     []*regexp.Regexp
	dmlPatterns     []*regexp.Regexp
	dqlPatterns     []*regexp.Regexp
	utilityPatterns []*regexp.Regexp
	commentPattern  *regexp.Regexp
}

// NewStatementClassifier creates a new statement classifier.
func NewStatementClassifier() *StatementClassifier {
	return &StatementClassifier{
		ddlPatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)^\s*CREATE\s+`),
			regexp.MustCompile(`(?i)^\s*DROP\s+`),
			regexp.MustCompile(`(?i)^\s*ALTER\s+`),
			regexp.MustCompile(`(?i)^\s*TRUNCATE\s+`),
		},
		dmlPatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)^\s*INSERT\s+`),
			regexp.MustCompile(`(?i)^\s*UPDATE\s+`),
			regexp.MustCompile(`(?i)^\s*DELETE\s+`),
			regexp.MustCompile(`(?i)^\s*MERGE\s+`),
			regexp.MustCompile(`(?i)^\s*UNLOAD\s+`),
		},
		dqlPatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)^\s*SELECT\s+`),
			regexp.MustCompile(`(?i)^\s*WITH\s+`),
			regexp.MustCompile(`(?i)^\s*\(\s*SELECT\s+`),
			regexp.MustCompile(`(?i)^\s*VALUES\s+`),
		},
		utilityPatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)^\s*SHOW\s+`),
			regexp.MustCompile(`(?i)^\s*DESCRIBE\s+`),
			regexp.MustCompile(`(?i)^\s*DESC\s+`),
			regexp.MustCompile(`(?i)^\s*EXPLAIN\s+`),
			regexp.MustCompile(`(?i)^\s*ANALYZE\s+`),
			regexp.MustCompile(`(?i)^\s*MSCK\s+`),
			regexp.MustCompile(`(?i)^\s*SET\s+`),
			regexp.MustCompile(`(?i)^\s*USE\s+`),
		},
		commentPattern: regexp.MustCompile(`(?m)--.*$|/\*[\s\S]*?\*/`),
	}
}

// ClassifyStatement returns the type of a SQL statement.
func (sc *StatementClassifier) ClassifyStatement(query string) StatementType {
	stripped := strings.TrimSpace(sc.commentPattern.ReplaceAllString(query, ""))
	if stripped == "" {
		return StatementTypeOther
	}

	for _, p := range sc.dqlPatterns {
		if p.MatchString(stripped) {
			return StatementTypeDQL
		}
	}
	for _, p := range sc.ddlPatterns {
		if p.MatchString(stripped) {
			return StatementTypeDDL
		}
	}
	for _, p := range sc.dmlPatterns {
		if p.MatchString(stripped) {
			return StatementTypeDML
		}
	}
	for _, p := range sc.utilityPatterns {
		if p.MatchString(stripped) {
			return StatementTypeUtility
		}
	}
	return StatementTypeOther
}

// ValidateStatement rejects statements the orchestrator cannot submit.
func (sc *StatementClassifier) ValidateStatement(query string) error {
	if strings.TrimSpace(query) == "" {
		return errors.ErrInvalidQuery.WithDetail("query", "cannot be empty")
	}
	return nil
}
