// Package email sends transactional mail through AWS SES.
package email

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// Sender is implemented by SESService and by test doubles
type Sender interface {
	SendPasswordResetEmail(ctx context.Context, toEmail, resetToken string) error
	SendFriendRequestEmail(ctx context.Context, toEmail, toName, fromName, fromUsername string) error
}

type sesAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESService renders messages and hands them to SES
type SESService struct {
	client    sesAPI
	fromEmail string
	fromName  string
	baseURL   string
}

var _ Sender = (*SESService)(nil)

// NewSESService loads AWS credentials for region. baseURL is the web app
// origin used in links.
func NewSESService(ctx context.Context, region, fromEmail, fromName, baseURL string) (*SESService, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return newSESService(ses.NewFromConfig(cfg), fromEmail, fromName, baseURL), nil
}

func newSESService(client sesAPI, fromEmail, fromName, baseURL string) *SESService {
	return &SESService{client: client, fromEmail: fromEmail, fromName: fromName, baseURL: baseURL}
}

func (e *SESService) SendPasswordResetEmail(ctx context.Context, toEmail, resetToken string) error {
	msg, err := renderPasswordReset(e.baseURL, resetToken)
	if err != nil {
		return err
	}
	if err := e.send(ctx, toEmail, msg); err != nil {
		return fmt.Errorf("failed to send password reset email: %w", err)
	}
	return nil
}

func (e *SESService) SendFriendRequestEmail(ctx context.Context, toEmail, toName, fromName, fromUsername string) error {
	msg, err := renderFriendRequest(e.baseURL, toName, fromName, fromUsername)
	if err != nil {
		return err
	}
	if err := e.send(ctx, toEmail, msg); err != nil {
		return fmt.Errorf("failed to send friend request email: %w", err)
	}
	return nil
}

func (e *SESService) source() string {
	if e.fromName != "" {
		return fmt.Sprintf("%s <%s>", e.fromName, e.fromEmail)
	}
	return e.fromEmail
}

func (e *SESService) send(ctx context.Context, to string, msg *message) error {
	_, err := e.client.SendEmail(ctx, &ses.SendEmailInput{
		Source: aws.String(e.source()),
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(msg.Subject), Charset: aws.String("UTF-8")},
			Body: &types.Body{
				Html: &types.Content{Data: aws.String(msg.HTML), Charset: aws.String("UTF-8")},
				Text: &types.Content{Data: aws.String(msg.Text), Charset: aws.String("UTF-8")},
			},
		},
	})
	return err
}
