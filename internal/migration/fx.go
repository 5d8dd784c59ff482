package migration

import (
	eventdomain "github.com/pawsentry/pawsentry/internal/alertengine/domain"
	ruledomain "github.com/pawsentry/pawsentry/internal/alertrule/domain"
	notifdomain "github.com/pawsentry/pawsentry/internal/notification/domain"
	"github.com/pawsentry/pawsentry/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Migrate keeps the schema in step with the domain models at startup.
func Migrate(db *gorm.DB, log *zap.Logger) error {
	err := db.AutoMigrate(
		&ruledomain.AlertRule{},
		&ratelimit.FiringRecord{},
		&eventdomain.AnalysisEvent{},
		&notifdomain.Notification{},
		&notifdomain.NotificationSettings{},
	)
	if err != nil {
		return err
	}
	log.Info("database schema migrated")
	return nil
}

var Module = fx.Module("migration",
	fx.Invoke(Migrate),
)
