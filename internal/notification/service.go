// Package notification fans review outcomes out to users. Delivery
// mechanics (SMS gateways and the like) live outside this engine; the
// default implementation renders a template and logs the message.
package notification

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"investa/pkg/logger"
)

// Service is the notification contract consumed by the lifecycle manager.
type Service interface {
	Notify(ctx context.Context, accountID uuid.UUID, eventType string, data map[string]interface{}) error
}

type logService struct {
	logger logger.Logger
}

func NewService(log logger.Logger) Service {
	return &logService{logger: log}
}

func (s *logService) Notify(ctx context.Context, accountID uuid.UUID, eventType string, data map[string]interface{}) error {
	var body string
	switch eventType {
	case "DEPOSIT_APPROVED":
		body = fmt.Sprintf("Your deposit of %v has been approved.", data["amount"])
	case "DEPOSIT_REJECTED":
		body = fmt.Sprintf("Your deposit was rejected: %v", data["reason"])
	case "WITHDRAWAL_APPROVED":
		body = fmt.Sprintf("Your withdrawal of %v has been processed.", data["amount"])
	case "WITHDRAWAL_REJECTED":
		body = fmt.Sprintf("Your withdrawal was rejected and refunded: %v", data["reason"])
	case "REFERRAL_COMMISSION":
		body = fmt.Sprintf("You earned a level %v referral commission of %v.", data["level"], data["amount"])
	default:
		body = eventType
	}

	s.logger.Info("notification dispatched", map[string]interface{}{
		"account_id": accountID,
		"event":      eventType,
		"body":       body,
	})
	return nil
}
