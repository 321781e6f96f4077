package worker

import (
	"github.com/spec-kit/ticket-desk/internal/service"
)

// StartNotificationWorker subscribes the notification channels to domain
// events. Delivery runs inline with the publisher.
func StartNotificationWorker(notificationService *service.NotificationService) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
}
