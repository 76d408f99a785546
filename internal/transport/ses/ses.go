// Package ses sends broadcast email through AWS SES v2.
package ses

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"go.uber.org/zap"

	"github.com/aura-workshop/backend/internal/broadcast"
	"github.com/aura-workshop/backend/internal/models"
	"github.com/aura-workshop/backend/pkg/utils"
)

// SendEmailAPI is the slice of the SES v2 client used here.
type SendEmailAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// ClientFactory builds an SES client for one region and key pair.
type ClientFactory func(ctx context.Context, region, accessKeyID, secretAccessKey string) (SendEmailAPI, error)

type clientKey struct {
	region, accessKeyID, secretAccessKey string
}

// Transport implements broadcast.Transport for SES. Credentials come from the
// email settings document, so clients are built lazily and cached per key pair.
type Transport struct {
	newClient ClientFactory
	logger    *zap.Logger

	mu      sync.Mutex
	clients map[clientKey]SendEmailAPI
}

// New creates an SES transport backed by the AWS SDK.
func New(logger *zap.Logger) *Transport {
	return NewWithFactory(DefaultClientFactory, logger)
}

// NewWithFactory creates an SES transport with a custom client factory.
func NewWithFactory(f ClientFactory, logger *zap.Logger) *Transport {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Transport{newClient: f, logger: logger, clients: make(map[clientKey]SendEmailAPI)}
}

// DefaultClientFactory loads an AWS config with static credentials.
func DefaultClientFactory(ctx context.Context, region, accessKeyID, secretAccessKey string) (SendEmailAPI, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return sesv2.NewFromConfig(cfg), nil
}

func (t *Transport) Name() string { return models.EmailProviderSES }

func (t *Transport) Channel() broadcast.Channel { return broadcast.ChannelEmail }

func (t *Transport) RequiredCredentials() []string {
	return []string{
		broadcast.CredRegion,
		broadcast.CredAccessKeyID,
		broadcast.CredSecretAccessKey,
		broadcast.CredFromAddress,
	}
}

func (t *Transport) client(ctx context.Context, creds broadcast.Credentials) (SendEmailAPI, error) {
	key := clientKey{
		region:          creds[broadcast.CredRegion],
		accessKeyID:     creds[broadcast.CredAccessKeyID],
		secretAccessKey: creds[broadcast.CredSecretAccessKey],
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if c, ok := t.clients[key]; ok {
		return c, nil
	}
	c, err := t.newClient(ctx, key.region, key.accessKeyID, key.secretAccessKey)
	if err != nil {
		return nil, err
	}
	t.clients[key] = c
	return c, nil
}

// Send delivers one plain-text email.
func (t *Transport) Send(ctx context.Context, msg broadcast.Message) error {
	c, err := t.client(ctx, msg.Credentials)
	if err != nil {
		return err
	}
	from := msg.Credentials[broadcast.CredFromAddress]
	if name := msg.Credentials[broadcast.CredFromName]; name != "" {
		from = fmt.Sprintf("%s <%s>", name, from)
	}
	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(from),
		Destination:      &types.Destination{ToAddresses: []string{msg.To}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(msg.Subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Text: &types.Content{Data: aws.String(msg.Body), Charset: aws.String("UTF-8")},
				},
			},
		},
		EmailTags: []types.MessageTag{
			{Name: aws.String("recipient_id"), Value: aws.String(msg.RecipientID.String())},
		},
	}
	out, err := c.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("ses send: %w", err)
	}
	t.logger.Debug("ses sent", zap.String("to", utils.RedactEmail(msg.To)), zap.String("message_id", aws.ToString(out.MessageId)))
	return nil
}
