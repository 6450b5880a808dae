package database

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"siteworks/internal/observability"
	contextutils "siteworks/internal/utils"

	"github.com/lib/pq"
	"go.opentelemetry.io/otel/attribute"
)

// runApplicationSchema replays schema.sql. Tables go first and indexes
// last, so an index on a column added by a later migration is skipped
// rather than fatal.
func (dm *Manager) runApplicationSchema(ctx context.Context, db *sql.DB) (err error) {
	path, err := FindUpward("schema.sql")
	if err != nil {
		return contextutils.WrapError(err, "failed to find schema file")
	}
	ctx, span := observability.TraceDatabaseFunction(ctx, "apply_schema", attribute.String("schema.path", path))
	defer observability.FinishSpan(span, &err)

	raw, err := os.ReadFile(path)
	if err != nil {
		return contextutils.WrapError(err, "failed to read schema file")
	}

	tables, indexes := splitIndexes(ParseSchemaStatements(string(raw)))
	span.SetAttributes(
		attribute.Int("schema.statements.count", len(tables)+len(indexes)),
		attribute.Int("schema.indexes.count", len(indexes)),
	)

	if err := execTolerating(ctx, db, tables, isTableExistsError); err != nil {
		return err
	}
	return execTolerating(ctx, db, indexes, func(err error) bool {
		return isTableExistsError(err) || isColumnMissingError(err)
	})
}

func execTolerating(ctx context.Context, db *sql.DB, statements []string, tolerated func(error) bool) error {
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil && !tolerated(err) {
			return contextutils.WrapErrorf(err, "failed to execute schema statement: %s", stmt)
		}
	}
	return nil
}

func splitIndexes(statements []string) (other, indexes []string) {
	for _, stmt := range statements {
		upper := strings.ToUpper(stmt)
		if strings.HasPrefix(upper, "CREATE INDEX") || strings.HasPrefix(upper, "CREATE UNIQUE INDEX") {
			indexes = append(indexes, stmt)
		} else {
			other = append(other, stmt)
		}
	}
	return other, indexes
}

// FindUpward returns the first path named name in the working directory or
// one of its ancestors.
func FindUpward(name string) (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", contextutils.ErrorWithContextf("%s not found in any parent directory", name)
		}
		dir = parent
	}
}

// ParseSchemaStatements drops -- and /* */ comments and splits the script
// on semicolons. Semicolons inside string literals are not supported.
func ParseSchemaStatements(script string) []string {
	var kept []string
	inBlock := false
	for _, line := range strings.Split(script, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case inBlock:
			inBlock = !strings.HasSuffix(line, "*/")
			continue
		case strings.HasPrefix(line, "/*"):
			inBlock = !strings.HasSuffix(line, "*/")
			continue
		}
		if before, _, found := strings.Cut(line, "--"); found {
			line = strings.TrimSpace(before)
		}
		if line != "" {
			kept = append(kept, line)
		}
	}

	var statements []string
	for _, stmt := range strings.Split(strings.Join(kept, " "), ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			statements = append(statements, stmt)
		}
	}
	return statements
}

// SQLSTATE codes tolerated while replaying schema.sql on an existing database
const (
	sqlStateDuplicateTable  = "42P07"
	sqlStateDuplicateObject = "42710"
	sqlStateUndefinedColumn = "42703"
)

func sqlState(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

// isTableExistsError matches relations, indexes and types that already exist
func isTableExistsError(err error) bool {
	switch sqlState(err) {
	case sqlStateDuplicateTable, sqlStateDuplicateObject:
		return true
	case "":
		return strings.Contains(err.Error(), "already exists")
	}
	return false
}

// isColumnMissingError matches an index on a column a later migration adds
func isColumnMissingError(err error) bool {
	switch sqlState(err) {
	case sqlStateUndefinedColumn:
		return true
	case "":
		msg := err.Error()
		return strings.Contains(msg, "column") && strings.Contains(msg, "does not exist")
	}
	return false
}
