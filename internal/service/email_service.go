package service

import (
	"context"
	"fmt"
	"html"
	"log"

	"coinzy/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

// EmailService handles sending emails via Amazon SES
type EmailService struct {
	client     *sesv2.Client
	fromEmail  string
	fromName   string
	appBaseURL string
	enabled    bool
	debug      bool
}

// NewEmailService creates a new email service
func NewEmailService(awsRegion, fromEmail, fromName, appBaseURL string, debug bool) (*EmailService, error) {
	// If fromEmail is empty, create a disabled service
	if fromEmail == "" {
		log.Println("Email service disabled: SES_FROM_EMAIL not configured")
		if debug {
			log.Println("[DEBUG] Email service will skip sending all emails")
		}
		return &EmailService{
			enabled: false,
			debug:   debug,
		}, nil
	}

	if debug {
		log.Printf("[DEBUG] Initializing email service with AWS SES")
		log.Printf("[DEBUG] AWS Region: %s", awsRegion)
		log.Printf("[DEBUG] From Email: %s", fromEmail)
		log.Printf("[DEBUG] From Name: %s", fromName)
		log.Printf("[DEBUG] App Base URL: %s", appBaseURL)
	}

	// Load AWS configuration
	cfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithRegion(awsRegion),
	)
	if err != nil {
		if debug {
			log.Printf("[DEBUG] Failed to load AWS config: %v", err)
		}
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	if debug {
		log.Println("[DEBUG] AWS config loaded successfully")
	}

	// Create SES client
	client := sesv2.NewFromConfig(cfg)

	log.Printf("Email service enabled: from=%s, region=%s", fromEmail, awsRegion)
	if debug {
		log.Println("[DEBUG] SES client created successfully")
	}

	return &EmailService{
		client:     client,
		fromEmail:  fromEmail,
		fromName:   fromName,
		appBaseURL: appBaseURL,
		enabled:    true,
		debug:      debug,
	}, nil
}

// IsEnabled returns whether the email service is enabled
func (s *EmailService) IsEnabled() bool {
	return s.enabled
}

// SendFamilyNotification e-mails a milestone or goal notification to a parent
func (s *EmailService) SendFamilyNotification(ctx context.Context, toEmail string, n models.FamilyNotification) error {
	if s.debug {
		log.Printf("[DEBUG] SendFamilyNotification called: to=%s, type=%s, id=%s", toEmail, n.Type, n.ID)
	}

	if !s.enabled {
		log.Printf("Skipping email send (service disabled): %s notification to %s", n.Type, toEmail)
		return nil
	}

	subject := "Coinzy: a new savings milestone"
	heading := "A new savings milestone!"
	if n.Type == models.NotificationGoalReached {
		subject = "Coinzy: savings goal reached"
		heading = "The savings goal was reached!"
	}

	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<style>
		body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
		.container { max-width: 600px; margin: 0 auto; padding: 20px; }
		.header { background-color: #f5a623; color: white; padding: 20px; text-align: center; border-radius: 5px 5px 0 0; }
		.content { background-color: #f9f9f9; padding: 30px; border-radius: 0 0 5px 5px; }
		.amount { font-size: 28px; font-weight: bold; text-align: center; margin: 20px 0; }
		.button { display: inline-block; padding: 12px 30px; background-color: #f5a623; color: white; text-decoration: none; border-radius: 5px; margin: 20px 0; }
		.footer { text-align: center; margin-top: 20px; font-size: 12px; color: #666; }
	</style>
</head>
<body>
	<div class="container">
		<div class="header">
			<h1>%s</h1>
		</div>
		<div class="content">
			<p>%s</p>
			<p class="amount">%s coins</p>
			<p style="text-align: center;">
				<a href="%s/parent" class="button">Open the parent dashboard</a>
			</p>
		</div>
		<div class="footer">
			<p>This is an automated email from Coinzy. Please do not reply.</p>
		</div>
	</div>
</body>
</html>
`, heading, html.EscapeString(n.Message), n.Amount.StringFixed(2), s.appBaseURL)

	textBody := fmt.Sprintf(`%s

%s
Amount: %s coins

Open the parent dashboard: %s/parent

---
This is an automated email from Coinzy. Please do not reply.
`, heading, n.Message, n.Amount.StringFixed(2), s.appBaseURL)

	return s.sendEmail(ctx, toEmail, subject, htmlBody, textBody)
}

// SendContactConfirmation tells a parent their address will receive notifications
func (s *EmailService) SendContactConfirmation(ctx context.Context, toEmail string) error {
	if !s.enabled {
		log.Printf("Skipping email send (service disabled): contact confirmation to %s", toEmail)
		return nil
	}

	subject := "Coinzy notifications are on"
	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
	<p>Hi,</p>
	<p>This address will now receive Coinzy e-mails when your child reaches a savings milestone or goal.</p>
	<p><a href="%s/parent">Open the parent dashboard</a></p>
</body>
</html>
`, s.appBaseURL)
	textBody := fmt.Sprintf(`Hi,

This address will now receive Coinzy e-mails when your child reaches a savings milestone or goal.

Open the parent dashboard: %s/parent
`, s.appBaseURL)

	return s.sendEmail(ctx, toEmail, subject, htmlBody, textBody)
}

// sendEmail sends an email using Amazon SES
func (s *EmailService) sendEmail(ctx context.Context, toEmail, subject, htmlBody, textBody string) error {
	if s.debug {
		log.Printf("[DEBUG] sendEmail called: to=%s, subject=%s", toEmail, subject)
	}

	fromAddress := s.fromEmail
	if s.fromName != "" {
		fromAddress = fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail)
	}

	if s.debug {
		log.Printf("[DEBUG] From address: %s", fromAddress)
		log.Printf("[DEBUG] To address: %s", toEmail)
		log.Printf("[DEBUG] Subject: %s", subject)
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{toEmail},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{
					Data:    aws.String(subject),
					Charset: aws.String("UTF-8"),
				},
				Body: &types.Body{
					Html: &types.Content{
						Data:    aws.String(htmlBody),
						Charset: aws.String("UTF-8"),
					},
					Text: &types.Content{
						Data:    aws.String(textBody),
						Charset: aws.String("UTF-8"),
					},
				},
			},
		},
	}

	if s.debug {
		log.Printf("[DEBUG] Calling SES SendEmail API...")
	}

	result, err := s.client.SendEmail(ctx, input)
	if err != nil {
		if s.debug {
			log.Printf("[DEBUG] SES SendEmail failed: %v", err)
		}
		return fmt.Errorf("failed to send email to %s: %w", toEmail, err)
	}

	if s.debug {
		log.Printf("[DEBUG] SES SendEmail succeeded")
		if result.MessageId != nil {
			log.Printf("[DEBUG] Message ID: %s", *result.MessageId)
		}
	}

	log.Printf("Email sent successfully: to=%s, subject=%s", toEmail, subject)
	return nil
}
