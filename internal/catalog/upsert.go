/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package catalog

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// upsertNewValue references the incoming row's value for column inside an
// ON CONFLICT / ON DUPLICATE KEY update. SQLite and Postgres spell this
// excluded.col, MySQL spells it VALUES(col).
func upsertNewValue(dialect, column string) clause.Expr {
	if dialect == "mysql" {
		return gorm.Expr("VALUES(" + column + ")")
	}
	return gorm.Expr("excluded." + column)
}

// upsertCoalesce keeps the stored value for column when the incoming row
// carries none.
func upsertCoalesce(dialect, table, column string) clause.Expr {
	if dialect == "mysql" {
		return gorm.Expr("COALESCE(VALUES(" + column + "), " + table + "." + column + ")")
	}
	return gorm.Expr("COALESCE(excluded." + column + ", " + table + "." + column + ")")
}
