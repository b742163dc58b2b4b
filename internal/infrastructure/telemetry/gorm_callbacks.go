package telemetry

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
)

type startTimeKey struct{ plugin string }

// gormHook is one before/after pair around a gorm processor
type gormHook struct {
	processor string
	operation string
	before    func(string, func(*gorm.DB)) error
	after     func(string, func(*gorm.DB)) error
}

func gormHooks(db *gorm.DB) []gormHook {
	cb := db.Callback()
	return []gormHook{
		{"gorm:create", "INSERT", cb.Create().Before("gorm:create").Register, cb.Create().After("gorm:create").Register},
		{"gorm:query", "SELECT", cb.Query().Before("gorm:query").Register, cb.Query().After("gorm:query").Register},
		{"gorm:update", "UPDATE", cb.Update().Before("gorm:update").Register, cb.Update().After("gorm:update").Register},
		{"gorm:delete", "DELETE", cb.Delete().Before("gorm:delete").Register, cb.Delete().After("gorm:delete").Register},
		{"gorm:row", "", cb.Row().Before("gorm:row").Register, cb.Row().After("gorm:row").Register},
		{"gorm:raw", "", cb.Raw().Before("gorm:raw").Register, cb.Raw().After("gorm:raw").Register},
	}
}

// registerTimedCallbacks stamps the start time before every processor and
// calls after with the elapsed time and the operation name once it returns.
func registerTimedCallbacks(db *gorm.DB, plugin string, after func(db *gorm.DB, operation string, elapsed time.Duration)) error {
	key := startTimeKey{plugin: plugin}
	for _, h := range gormHooks(db) {
		suffix := strings.TrimPrefix(h.processor, "gorm:")
		operation := h.operation

		err := h.before(plugin+":before_"+suffix, func(tx *gorm.DB) {
			ctx := tx.Statement.Context
			if ctx == nil {
				ctx = context.Background()
			}
			tx.Statement.Context = context.WithValue(ctx, key, time.Now())
		})
		if err != nil {
			return err
		}

		err = h.after(plugin+":after_"+suffix, func(tx *gorm.DB) {
			var elapsed time.Duration
			if tx.Statement.Context != nil {
				if start, ok := tx.Statement.Context.Value(key).(time.Time); ok {
					elapsed = time.Since(start)
				}
			}
			op := operation
			if op == "" {
				op = detectOperationType(tx.Statement.SQL.String())
			}
			after(tx, op, elapsed)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// detectOperationType guesses the statement kind for raw and row queries
func detectOperationType(sql string) string {
	sql = strings.TrimSpace(strings.ToUpper(sql))
	for _, op := range []string{"SELECT", "INSERT", "UPDATE", "DELETE"} {
		if strings.HasPrefix(sql, op) {
			return op
		}
	}
	if strings.HasPrefix(sql, "WITH") {
		return "SELECT"
	}
	return "OTHER"
}
