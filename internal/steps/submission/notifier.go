package submission

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	commonaws "deal-wizard/internal/common/aws"
	apperrors "deal-wizard/internal/common/errors"
)

// Notifier tells someone a deal was created.
type Notifier interface {
	DealCreated(ctx context.Context, dealID string, p *Payload) error
}

type SESNotifier struct {
	client commonaws.SESService
	from   string
	to     string
}

func NewSESNotifier(client commonaws.SESService, from, to string) *SESNotifier {
	return &SESNotifier{client: client, from: from, to: to}
}

func (n *SESNotifier) DealCreated(ctx context.Context, dealID string, p *Payload) error {
	subject := fmt.Sprintf("Deal created: %s", p.Name)
	body := fmt.Sprintf("Deal %q (%s, %s) was created with id %s.\nAddress: %s\nDocuments: %d",
		p.Name, p.Category, p.DevelopmentType, dealID, p.Address, len(p.DocumentIDs))

	_, err := n.client.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{n.to},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body)},
			},
		},
		Source: aws.String(n.from),
	})
	if err != nil {
		return apperrors.NewNotificationSendFailedError("email", err)
	}
	return nil
}
