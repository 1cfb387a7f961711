package services

import (
	"testing"
)

func TestClassifyStatement(t *testing.T) {
	classifier := NewStatementClassifier()

	tests := []struct {
		query string
		want  StatementType
	}{
		{"SELECT * FROM events", StatementTypeDQL},
		{"  select 1", StatementTypeDQL},
		{"WITH t AS (SELECT 1) SELECT * FROM t", StatementTypeDQL},
		{"VALUES (1), (2)", StatementTypeDQL},
		{"(SELECT 1)", StatementTypeDQL},
		{"CREATE TABLE t (id int)", StatementTypeDDL},
		{"DROP TABLE t", StatementTypeDDL},
		{"ALTER TABLE t ADD COLUMNS (x int)", StatementTypeDDL},
		{"INSERT INTO t VALUES (1)", StatementTypeDML},
		{"UNLOAD (SELECT * FROM t) TO 's3://bucket/x'", StatementTypeDML},
		{"SHOW TABLES", StatementTypeUtility},
		{"DESCRIBE t", StatementTypeUtility},
		{"MSCK REPAIR TABLE t", StatementTypeUtility},
		{"EXPLAIN SELECT 1", StatementTypeUtility},
		{"-- a comment\nSELECT 1", StatementTypeDQL},
		{"/* leading block */ CREATE TABLE t (id int)", StatementTypeDDL},
		{"GRANT ALL ON t TO role", StatementTypeOther},
		{"", StatementTypeOther},
		{"-- only a comment", StatementTypeOther},
	}

	for _, tt := range tests {
		got := classifier.ClassifyStatement(tt.query)
		if got != tt.want {
			t.Errorf("ClassifyStatement(%q) = %s, want %s", tt.query, got, tt.want)
		}
	}
}

func TestIsStatementOutput(t *testing.T) {
	if !StatementTypeDDL.IsStatementOutput() {
		t.Error("DDL should produce statement output")
	}
	if !StatementTypeUtility.IsStatementOutput() {
		t.Error("utility statements should produce statement output")
	}
	for _, st := range []StatementType{StatementTypeDQL, StatementTypeDML, StatementTypeOther} {
		if st.IsStatementOutput() {
			t.Errorf("%s should not produce statement output", st)
		}
	}
}

func TestValidateStatement(t *testing.T) {
	classifier := NewStatementClassifier()

	if err := classifier.ValidateStatement("SELECT 1"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := classifier.ValidateStatement("   "); err == nil {
		t.Error("expected error for blank statement")
	}
}
