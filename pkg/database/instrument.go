package database

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

const startKey = "metrics:start"

// Instrument observes the duration of every create, query, update and
// delete statement, labelled by operation and table.
func Instrument(db *gorm.DB, hist *prometheus.HistogramVec) error {
	cb := db.Callback()
	type registration struct {
		op     string
		before func(name string, fn func(*gorm.DB)) error
		after  func(name string, fn func(*gorm.DB)) error
	}
	regs := []registration{
		{"create", cb.Create().Before("gorm:create").Register, cb.Create().After("gorm:create").Register},
		{"query", cb.Query().Before("gorm:query").Register, cb.Query().After("gorm:query").Register},
		{"update", cb.Update().Before("gorm:update").Register, cb.Update().After("gorm:update").Register},
		{"delete", cb.Delete().Before("gorm:delete").Register, cb.Delete().After("gorm:delete").Register},
	}

	for _, r := range regs {
		op := r.op
		if err := r.before("metrics:before_"+op, func(tx *gorm.DB) {
			tx.InstanceSet(startKey, time.Now())
		}); err != nil {
			return err
		}
		if err := r.after("metrics:after_"+op, func(tx *gorm.DB) {
			v, ok := tx.InstanceGet(startKey)
			if !ok {
				return
			}
			start, ok := v.(time.Time)
			if !ok {
				return
			}
			hist.WithLabelValues(op, tx.Statement.Table).Observe(time.Since(start).Seconds())
		}); err != nil {
			return err
		}
	}
	return nil
}
