// Package schema implements the schema diff and migration planner
// (spec.md §4.4, C7): comparing a target schema (union of event IR
// table_schemas) against the recorded schema state and emitting
// forward, idempotent SQL.
package schema

import (
	"fmt"
	"sort"
	"strings"

	"smorty/internal/apperr"
	"smorty/internal/ir"
)

// StatementKind buckets a planned DDL statement for ordering purposes.
type StatementKind int

const (
	KindCreateTable StatementKind = iota
	KindAlterColumn
	KindIndexChange
)

// Statement is one planned DDL statement plus enough metadata to sort
// and log it deterministically.
type Statement struct {
	Kind      StatementKind
	Table     string
	Column    string // empty for table-level statements
	SQL       string
}

// Warning is a non-actioned observation (table/column drops), surfaced
// to the operator but never auto-applied.
type Warning struct {
	Message string
}

// Plan is the result of diffing target against previous.
type Plan struct {
	Statements []Statement
	Warnings   []Warning
}

// widensTo is the known-safe column type widening set from spec.md §4.4.
var widensTo = map[string]string{
	"BIGINT": "NUMERIC(78,0)",
}

func isSafeWidening(from, to string) bool {
	if to == from {
		return true
	}
	if widensTo[from] == to {
		return true
	}
	// VARCHAR(n) -> TEXT is safe for any n.
	if strings.HasPrefix(from, "VARCHAR(") && to == "TEXT" {
		return true
	}
	return false
}

// Diff computes the migration plan to bring previous up to target.
// Ordering: creates before alters before index changes; within each
// bucket, sorted by table_name then column_name (spec.md §4.4).
func Diff(target, previous *ir.SchemaState) (*Plan, error) {
	plan := &Plan{}

	tableNames := sortedTableNames(target)
	for _, name := range tableNames {
		t := target.Tables[name]
		p, existed := previous.Tables[name]
		if !existed {
			plan.Statements = append(plan.Statements, createTableStatement(t))
			for _, idx := range sortedIndexes(t.Indexes) {
				plan.Statements = append(plan.Statements, createIndexStatement(t.TableName, idx))
			}
			continue
		}

		alters, indexStmts, warnings, err := diffTable(t, p)
		if err != nil {
			return nil, err
		}
		plan.Statements = append(plan.Statements, alters...)
		plan.Statements = append(plan.Statements, indexStmts...)
		plan.Warnings = append(plan.Warnings, warnings...)
	}

	// Dropped tables: warning only, never automatic (spec.md §4.4).
	for _, name := range sortedPrevTableNames(previous) {
		if _, ok := target.Tables[name]; !ok {
			plan.Warnings = append(plan.Warnings, Warning{
				Message: fmt.Sprintf("table %q no longer appears in any event IR; drop skipped, manual cleanup required", name),
			})
		}
	}

	sortStatements(plan.Statements)
	return plan, nil
}

func diffTable(t, p ir.TableSchema) (alters []Statement, indexStmts []Statement, warnings []Warning, err error) {
	prevCols := make(map[string]ir.Column, len(p.Columns))
	for _, c := range p.Columns {
		prevCols[c.Name] = c
	}
	curCols := make(map[string]bool, len(t.Columns))
	for _, c := range t.Columns {
		curCols[c.Name] = true
	}

	for _, col := range sortedColumns(t.Columns) {
		prev, existed := prevCols[col.Name]
		if !existed {
			alters = append(alters, Statement{
				Kind: KindAlterColumn, Table: t.TableName, Column: col.Name,
				SQL: fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s;", t.TableName, col.Name, col.SQLType),
			})
			continue
		}
		if prev.SQLType != col.SQLType {
			if !isSafeWidening(prev.SQLType, col.SQLType) {
				return nil, nil, nil, apperr.New(apperr.KindUnsafeMigration, fmt.Sprintf(
					"column %s.%s changes type %s -> %s, which is not a known-safe widening; manual migration required",
					t.TableName, col.Name, prev.SQLType, col.SQLType))
			}
			alters = append(alters, Statement{
				Kind: KindAlterColumn, Table: t.TableName, Column: col.Name,
				SQL: fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s TYPE %s;", t.TableName, col.Name, col.SQLType),
			})
		}
	}

	for _, c := range sortedColumns(p.Columns) {
		if !curCols[c.Name] {
			warnings = append(warnings, Warning{
				Message: fmt.Sprintf("column %s.%s no longer appears in the event IR; drop skipped, manual cleanup required", t.TableName, c.Name),
			})
		}
	}

	prevIdx := make(map[string]ir.Index, len(p.Indexes))
	for _, idx := range p.Indexes {
		prevIdx[idx.Name] = idx
	}
	for _, idx := range sortedIndexes(t.Indexes) {
		if old, ok := prevIdx[idx.Name]; !ok || !sameIndex(old, idx) {
			if ok {
				indexStmts = append(indexStmts, Statement{
					Kind: KindIndexChange, Table: t.TableName, Column: idx.Name,
					SQL: fmt.Sprintf("DROP INDEX IF EXISTS %s;", idx.Name),
				})
			}
			indexStmts = append(indexStmts, createIndexStatement(t.TableName, idx))
		}
	}

	return alters, indexStmts, warnings, nil
}

func sameIndex(a, b ir.Index) bool {
	if a.Unique != b.Unique || len(a.Columns) != len(b.Columns) {
		return false
	}
	for i := range a.Columns {
		if a.Columns[i] != b.Columns[i] {
			return false
		}
	}
	return true
}

func createTableStatement(t ir.TableSchema) Statement {
	var cols []string
	for _, c := range t.Columns {
		cols = append(cols, fmt.Sprintf("%s %s", c.Name, c.SQLType))
	}
	sql := fmt.Sprintf("CREATE TABLE %s (\n  %s\n);", t.TableName, strings.Join(cols, ",\n  "))
	return Statement{Kind: KindCreateTable, Table: t.TableName, SQL: sql}
}

func createIndexStatement(table string, idx ir.Index) Statement {
	unique := ""
	if idx.Unique {
		unique = "UNIQUE "
	}
	sql := fmt.Sprintf("CREATE %sINDEX IF NOT EXISTS %s ON %s (%s);",
		unique, idx.Name, table, strings.Join(idx.Columns, ", "))
	return Statement{Kind: KindIndexChange, Table: table, Column: idx.Name, SQL: sql}
}

func sortedTableNames(s *ir.SchemaState) []string {
	names := make([]string, 0, len(s.Tables))
	for n := range s.Tables {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func sortedPrevTableNames(s *ir.SchemaState) []string {
	return sortedTableNames(s)
}

func sortedColumns(cols []ir.Column) []ir.Column {
	out := append([]ir.Column{}, cols...)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func sortedIndexes(idxs []ir.Index) []ir.Index {
	out := append([]ir.Index{}, idxs...)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func sortStatements(stmts []Statement) {
	sort.SliceStable(stmts, func(i, j int) bool {
		if stmts[i].Kind != stmts[j].Kind {
			return stmts[i].Kind < stmts[j].Kind
		}
		if stmts[i].Table != stmts[j].Table {
			return stmts[i].Table < stmts[j].Table
		}
		return stmts[i].Column < stmts[j].Column
	})
}
