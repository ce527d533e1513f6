package tui

import (
	"fmt"
	"slices"
	"strings"

	"github.com/aretw0/logicbridge/pkg/registry"
)

// BindingsTable renders variable bindings as a markdown table, one row per solution.
// Columns are the variable names in sorted order.
func BindingsTable(rows []map[string]any) string {
	if len(rows) == 0 {
		return "_no solutions_\n"
	}
	var cols []string
	for _, row := range rows {
		for name := range row {
			if !slices.Contains(cols, name) {
				cols = append(cols, name)
			}
		}
	}
	if len(cols) == 0 {
		return fmt.Sprintf("_yes (%d)_\n", len(rows))
	}
	slices.Sort(cols)

	var b strings.Builder
	b.WriteString("| " + strings.Join(cols, " | ") + " |\n")
	b.WriteString("|" + strings.Repeat(" --- |", len(cols)) + "\n")
	for _, row := range rows {
		cells := make([]string, len(cols))
		for i, col := range cols {
			cells[i] = cell(row[col])
		}
		b.WriteString("| " + strings.Join(cells, " | ") + " |\n")
	}
	return b.String()
}

// ValuesList renders decoded solutions as a numbered markdown list.
func ValuesList(values []any) string {
	if len(values) == 0 {
		return "_no solutions_\n"
	}
	var b strings.Builder
	for i, v := range values {
		fmt.Fprintf(&b, "%d. `%s`\n", i+1, registry.Format(v))
	}
	return b.String()
}

func cell(v any) string {
	return "`" + strings.ReplaceAll(registry.Format(v), "|", `\|`) + "`"
}
