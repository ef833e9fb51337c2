package service

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"locker-rental-backend/internal/domain"
	"locker-rental-backend/internal/logger"
)

type emailService struct {
	apiKey    string
	fromEmail string
	fromName  string
}

// NewEmailService sends through SendGrid. With an empty API key messages
// are only logged, which is what dev and kiosk-demo setups use.
func NewEmailService(apiKey, fromEmail, fromName string) NotificationService {
	return &emailService{
		apiKey:    apiKey,
		fromEmail: fromEmail,
		fromName:  fromName,
	}
}

func overstayReminderBody(locker *domain.Locker, blocks, charge int32) (string, string) {
	subject := fmt.Sprintf("Your locker %s rental has expired", locker.ID)
	body := fmt.Sprintf(
		"Hello,\n\nYour rental of locker %s ended at %s.\n\nOverstay so far: %d started 30-minute block(s), %d DKK. "+
			"Extend your rental or empty the locker to avoid further charges.\n\nBest regards,\nThe Locker Team",
		locker.ID, locker.RentalInfo.EndTime.Format("15:04"), blocks, charge,
	)
	return subject, body
}

func (s *emailService) SendOverstayReminder(ctx context.Context, email string, locker *domain.Locker, blocks, charge int32) error {
	if locker == nil || locker.RentalInfo == nil {
		return fmt.Errorf("locker has no active rental")
	}
	subject, body := overstayReminderBody(locker, blocks, charge)

	if s.apiKey == "" {
		logger.Info("Overstay reminder (mail disabled)", "to", email, "locker_id", locker.ID, "subject", subject)
		return nil
	}

	logger.ExternalServiceCall("sendgrid", "send", "to", email, "locker_id", locker.ID)
	from := mail.NewEmail(s.fromName, s.fromEmail)
	to := mail.NewEmail("", email)
	message := mail.NewSingleEmail(from, subject, to, body, "")

	client := sendgrid.NewSendClient(s.apiKey)
	response, err := client.SendWithContext(ctx, message)
	if err == nil && response.StatusCode >= 400 {
		err = fmt.Errorf("sendgrid error: status %d, body: %s", response.StatusCode, response.Body)
	}
	logger.ExternalServiceResult("sendgrid", "send", err, "to", email)
	if err != nil {
		return fmt.Errorf("failed to send overstay reminder: %w", err)
	}
	return nil
}
