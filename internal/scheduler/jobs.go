package scheduler

import (
	"context"
	"fmt"

	"ledger-service/internal/ledger"
	"ledger-service/internal/report"
	"ledger-service/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	JobDailyReport  = "daily_report"
	JobNotification = "notification"
	JobBackup       = "backup"

	AutoReportTitle  = "Smart Ledger Daily Auto Report"
	AutoReportPrefix = "auto_report_"
)

// Tenants hands out shop database handles; *database.Registry implements it
type Tenants interface {
	Get(name string) (*gorm.DB, error)
}

// DailyReportJob writes the daily order report of tenant
func DailyReportJob(tenants Tenants, tenant string, generator *report.Generator) JobFunc {
	return func(ctx context.Context) error {
		db, err := tenants.Get(tenant)
		if err != nil {
			return fmt.Errorf("open tenant %s: %w", tenant, err)
		}
		rep, err := generator.Generate(ctx, ledger.NewStore(db), ledger.RangeDaily, report.Options{
			Title:      AutoReportTitle,
			FilePrefix: AutoReportPrefix,
			Trigger:    "cron",
			Tenant:     tenant,
		})
		if err != nil {
			return err
		}
		logger.FromStdContext(ctx).Info("Daily report written",
			zap.String("tenant", tenant),
			zap.String("file", rep.Path),
			zap.Int("rows", rep.Rows),
		)
		return nil
	}
}

// NotificationJob is a placeholder for outgoing notifications; it only logs
func NotificationJob() JobFunc {
	return func(ctx context.Context) error {
		logger.FromStdContext(ctx).Info("Notification job ran, nothing to send")
		return nil
	}
}

// BackupJob is a placeholder for database backups; it only logs
func BackupJob() JobFunc {
	return func(ctx context.Context) error {
		logger.FromStdContext(ctx).Info("Backup job ran, no backup target configured")
		return nil
	}
}
