package sns

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/go-api-users/internal/config"
	"github.com/go-api-users/internal/infrastructure/awscfg"
)

// publisher is the subset of the SNS client the sender needs.
type publisher interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// Message is the JSON payload published for every outgoing email. A mail
// worker subscribed to the topic delivers it.
type Message struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

// Sender publishes rendered emails to an SNS topic.
type Sender struct {
	client   publisher
	topicARN string
	from     string
}

func NewSender(ctx context.Context, cfg *config.Config) (*Sender, error) {
	awsCfg, err := awscfg.Load(ctx, cfg)
	if err != nil {
		return nil, err
	}
	var opts []func(*sns.Options)
	if cfg.AWSEndpointURL != "" {
		opts = append(opts, func(o *sns.Options) {
			o.BaseEndpoint = aws.String(cfg.AWSEndpointURL)
		})
	}
	return newSender(sns.NewFromConfig(awsCfg, opts...), cfg.SNSTopicARN, cfg.MailFrom), nil
}

func newSender(client publisher, topicARN, from string) *Sender {
	return &Sender{client: client, topicARN: topicARN, from: from}
}

func (s *Sender) SendEmail(ctx context.Context, to, subject, body string) error {
	payload, err := json.Marshal(Message{From: s.from, To: to, Subject: subject, HTML: body})
	if err != nil {
		return fmt.Errorf("marshal mail message: %w", err)
	}
	_, err = s.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(s.topicARN),
		Subject:  aws.String(subject),
		Message:  aws.String(string(payload)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"kind": {DataType: aws.String("String"), StringValue: aws.String("email")},
		},
	})
	if err != nil {
		return fmt.Errorf("sns publish: %w", err)
	}
	return nil
}
