package notify

import (
	"context"
	"fmt"
	"html"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

// sesAPI is the slice of *sesv2.Client we call; tests substitute a fake.
type sesAPI interface {
	SendEmail(ctx context.Context, in *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESNotifier emails the recipient through Amazon SES v2.
type SESNotifier struct {
	client sesAPI
	from   string
	logger *slog.Logger
}

// NewSESNotifier loads AWS credentials from the default chain
// (environment, shared config, instance role).
func NewSESNotifier(ctx context.Context, region, from string, logger *slog.Logger) (*SESNotifier, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("notify: loading AWS config: %w", err)
	}
	return &SESNotifier{client: sesv2.NewFromConfig(cfg), from: from, logger: logger}, nil
}

func (n *SESNotifier) AddressShared(ctx context.Context, s Share) error {
	subject, text, htmlBody := shareMessage(s)

	_, err := n.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(n.from),
		Destination:      &types.Destination{ToAddresses: []string{s.Recipient}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Text: &types.Content{Data: aws.String(text), Charset: aws.String("UTF-8")},
					Html: &types.Content{Data: aws.String(htmlBody), Charset: aws.String("UTF-8")},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("notify: sending share email to %s: %w", s.Recipient, err)
	}

	n.logger.Info("share email sent",
		slog.String("addressID", s.AddressID),
		slog.String("recipient", s.Recipient),
	)
	return nil
}

func shareMessage(s Share) (subject, text, htmlBody string) {
	who := s.OwnerEmail
	if who == "" {
		who = "Someone"
	}
	subject = fmt.Sprintf("%s shared \"%s\" with you", who, s.AddressLabel)
	text = fmt.Sprintf("%s shared the location \"%s\" with you on stash.\n", who, s.AddressLabel)
	htmlBody = fmt.Sprintf("<p>%s shared the location <strong>%s</strong> with you on stash.</p>",
		html.EscapeString(who), html.EscapeString(s.AddressLabel))
	return subject, text, htmlBody
}
