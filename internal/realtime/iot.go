package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iotdataplane"

	"vapi/internal/domain/entities"
)

// IoTClient is the part of *iotdataplane.Client the publisher needs.
type IoTClient interface {
	Publish(ctx context.Context, params *iotdataplane.PublishInput, optFns ...func(*iotdataplane.Options)) (*iotdataplane.PublishOutput, error)
}

// IoTPublisher forwards report updates to the MQTT topic "<prefix>/<area>"
// through the AWS IoT data plane. Messages are sent at QoS 0: an update is
// superseded by the next one, so redelivery buys nothing.
type IoTPublisher struct {
	client IoTClient
	prefix string
}

func NewIoTPublisher(client IoTClient, topicPrefix string) *IoTPublisher {
	return &IoTPublisher{client: client, prefix: strings.TrimSuffix(topicPrefix, "/")}
}

// NewIoTClient builds a data plane client for the account-specific endpoint
// (for example "abc123-ats.iot.us-east-1.amazonaws.com").
func NewIoTClient(cfg aws.Config, endpoint string) *iotdataplane.Client {
	return iotdataplane.NewFromConfig(cfg, func(o *iotdataplane.Options) {
		if endpoint == "" {
			return
		}
		if !strings.HasPrefix(endpoint, "https://") && !strings.HasPrefix(endpoint, "http://") {
			endpoint = "https://" + endpoint
		}
		o.BaseEndpoint = aws.String(endpoint)
	})
}

// Topic returns the topic updates for area are published on.
func (p *IoTPublisher) Topic(area string) string {
	return p.prefix + "/" + area
}

func (p *IoTPublisher) Publish(ctx context.Context, area string, update entities.ReportUpdate) error {
	payload, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("marshal report update: %w", err)
	}

	topic := p.Topic(area)
	_, err = p.client.Publish(ctx, &iotdataplane.PublishInput{
		Topic:   aws.String(topic),
		Qos:     0,
		Payload: payload,
	})
	if err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}
