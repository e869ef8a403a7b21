package config

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// AppendOnlyTables are never updated or deleted by the loader.
var AppendOnlyTables = []string{"dim_funds", "fact_costs"}

var ErrAppendOnly = errors.New("table is append-only")

// AppendOnlyGuardPlugin rejects gorm UPDATE and DELETE statements against the listed tables.
//
// NOTE:
// - This does NOT apply to Raw/Exec SQL. The loader issues no such statements against these tables.
type AppendOnlyGuardPlugin struct {
	tables map[string]struct{}
}

func NewAppendOnlyGuardPlugin(tables ...string) *AppendOnlyGuardPlugin {
	p := &AppendOnlyGuardPlugin{tables: make(map[string]struct{}, len(tables))}
	for _, t := range tables {
		p.tables[strings.ToLower(strings.TrimSpace(t))] = struct{}{}
	}
	return p
}

func (p *AppendOnlyGuardPlugin) Name() string { return "append_only_guard" }

func (p *AppendOnlyGuardPlugin) Initialize(db *gorm.DB) error {
	if err := db.Callback().Update().Before("gorm:update").Register("append_only_guard:update", p.guard("update")); err != nil {
		return err
	}
	if err := db.Callback().Delete().Before("gorm:delete").Register("append_only_guard:delete", p.guard("delete")); err != nil {
		return err
	}
	return nil
}

func (p *AppendOnlyGuardPlugin) guard(op string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		if db == nil || db.Statement == nil {
			return
		}
		table := strings.ToLower(db.Statement.Table)
		if table == "" && db.Statement.Schema != nil {
			table = strings.ToLower(db.Statement.Schema.Table)
		}
		if _, ok := p.tables[table]; ok {
			_ = db.AddError(fmt.Errorf("%s %s: %w", op, table, ErrAppendOnly))
		}
	}
}
