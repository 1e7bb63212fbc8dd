package migration

import (
	clientdomain "github.com/kekeligroup/backoffice/internal/client/domain"
	invoicedomain "github.com/kekeligroup/backoffice/internal/invoice/domain"
	notificationdomain "github.com/kekeligroup/backoffice/internal/notification/domain"
	paymentdomain "github.com/kekeligroup/backoffice/internal/payment/domain"
	projectdomain "github.com/kekeligroup/backoffice/internal/project/domain"
	subscriptiondomain "github.com/kekeligroup/backoffice/internal/subscription/domain"
	userdomain "github.com/kekeligroup/backoffice/internal/user/domain"
	"gorm.io/gorm"
)

// AutoMigrate builds the schema from the models for dialects without SQL
// migrations (sqlite in dev and tests, mysql).
func AutoMigrate(conn *gorm.DB) error {
	return conn.AutoMigrate(
		&clientdomain.Client{},
		&projectdomain.Project{},
		&userdomain.User{},
		&subscriptiondomain.Subscription{},
		&invoicedomain.Invoice{},
		&paymentdomain.Payment{},
		&notificationdomain.Notification{},
	)
}
