package notify

import (
	"fmt"
	"net/smtp"
	"time"

	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"

	"github.com/cryptowallet/wallet-service/internal/config"
	"github.com/cryptowallet/wallet-service/internal/models"
)

// Sender handles sending account emails via SMTP
type Sender struct {
	cfg    *config.Config
	logger *logrus.Logger
}

// NewSender creates a new email sender
func NewSender(cfg *config.Config, logger *logrus.Logger) *Sender {
	return &Sender{
		cfg:    cfg,
		logger: logger,
	}
}

// AccountCreated sends a welcome email to a freshly registered account
func (s *Sender) AccountCreated(account *models.Account) error {
	body := fmt.Sprintf(
		"Dear customer,\n\n"+
			"Your wallet account %s has been created.\n"+
			"Current balance: %.2f\n"+
			"\nBest regards,\nWallet Service",
		account.ID, account.BalanceMajor(),
	)
	return s.send(account.Email, "Welcome to Wallet Service", body)
}

// BalanceChanged sends a notification email for a deposit or withdrawal
func (s *Sender) BalanceChanged(account *models.Account, amount int64, operation string) error {
	var line string
	if operation == "Deposit" {
		line = fmt.Sprintf("Your account %s has been credited with %.2f.", account.ID, float64(amount)/100)
	} else {
		line = fmt.Sprintf("An amount of %.2f has been withdrawn from your account %s.", float64(amount)/100, account.ID)
	}

	body := fmt.Sprintf(
		"Dear customer,\n\n"+
			"%s\n"+
			"Transaction time: %s\n"+
			"Current balance: %.2f\n"+
			"\nBest regards,\nWallet Service",
		line, time.Now().Format("2006-01-02 15:04:05"), account.BalanceMajor(),
	)
	return s.send(account.Email, fmt.Sprintf("%s Notification", operation), body)
}

func (s *Sender) send(to, subject, body string) error {
	e := email.NewEmail()
	e.From = s.cfg.SenderEmail
	e.To = []string{to}
	e.Subject = subject
	e.Text = []byte(body)

	addr := fmt.Sprintf("%s:%s", s.cfg.SMTPHost, s.cfg.SMTPPort)
	auth := smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	if err := e.Send(addr, auth); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Infof("Email sent to %s: %s", to, subject)
	return nil
}
