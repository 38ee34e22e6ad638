package notify

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"github.com/brightpath/campaign-monitor/internal/pkg/logger"
)

// redeliveryWarnThreshold is the receive count past which a message is
// flagged as a likely poison message. There is no dead-letter path in-core;
// the warning gives operators something to act on.
const redeliveryWarnThreshold = 5

// queueAPI is the slice of the SQS client the consumer needs.
type queueAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// Consumer is a long-lived subscriber on the notification queue. Each
// received message is rendered and emailed; only a successful send
// acknowledges (deletes) the message, so every failure path ends in broker
// redelivery after the visibility timeout.
type Consumer struct {
	client   queueAPI
	queueURL string
	sender   Sender
	from     string
	prefetch int32
	done     chan struct{}
	stopOnce sync.Once
}

// NewConsumer creates a consumer with a bounded in-flight prefetch limit.
func NewConsumer(client *sqs.Client, queueURL string, sender Sender, from string, prefetch int) *Consumer {
	return newConsumer(client, queueURL, sender, from, prefetch)
}

func newConsumer(client queueAPI, queueURL string, sender Sender, from string, prefetch int) *Consumer {
	if prefetch <= 0 || prefetch > 10 {
		prefetch = 10 // SQS receive batch ceiling
	}
	return &Consumer{
		client:   client,
		queueURL: queueURL,
		sender:   sender,
		from:     from,
		prefetch: int32(prefetch),
		done:     make(chan struct{}),
	}
}

// Start begins consuming in a background goroutine until ctx is cancelled
// or Stop is called.
func (c *Consumer) Start(ctx context.Context) {
	logger.Info("notification consumer started", "queue", c.queueURL, "prefetch", c.prefetch)
	go c.poll(ctx)
}

// Stop terminates the poll loop. In-flight messages finish handling.
func (c *Consumer) Stop() {
	c.stopOnce.Do(func() { close(c.done) })
}

func (c *Consumer) poll(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		default:
		}

		if err := c.pollOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Error("queue receive failed", "error", err)
			time.Sleep(5 * time.Second)
		}
	}
}

// pollOnce long-polls one batch and handles its messages concurrently, up
// to the prefetch bound. It returns only receive-level errors; per-message
// failures are resolved by non-acknowledgement.
func (c *Consumer) pollOnce(ctx context.Context) error {
	out, err := c.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(c.queueURL),
		MaxNumberOfMessages: c.prefetch,
		WaitTimeSeconds:     20,
		MessageSystemAttributeNames: []types.MessageSystemAttributeName{
			types.MessageSystemAttributeNameApproximateReceiveCount,
		},
	})
	if err != nil {
		return err
	}

	var wg sync.WaitGroup
	for _, msg := range out.Messages {
		wg.Add(1)
		go func(m types.Message) {
			defer wg.Done()
			c.handle(ctx, m)
		}(msg)
	}
	wg.Wait()
	return nil
}

// handle processes one delivery. Acknowledgement is tied to this specific
// message's outcome: parse failure, validation failure, and send failure
// all leave the message on the queue.
func (c *Consumer) handle(ctx context.Context, msg types.Message) {
	receives := receiveCount(msg)
	if receives > redeliveryWarnThreshold {
		logger.Warn("message redelivered repeatedly, possible poison message",
			"receive_count", receives, "queue", c.queueURL)
	}

	var n Notification
	if err := json.Unmarshal([]byte(aws.ToString(msg.Body)), &n); err != nil {
		logger.Error("malformed notification payload", "error", err)
		return
	}
	if err := n.Validate(); err != nil {
		logger.Error("invalid notification", "error", err)
		return
	}

	if err := c.sender.Send(ctx, c.from, n.ToEmail, n.Subject, n.Body); err != nil {
		logger.Error("email send failed, leaving message for redelivery",
			"to_email", n.ToEmail, "error", err)
		return
	}

	if err := c.ack(ctx, msg.ReceiptHandle); err != nil {
		// The email went out but the delete failed; the broker will
		// redeliver and the recipient may see a duplicate. That is the
		// at-least-once contract.
		logger.Warn("acknowledge failed after successful send", "error", err)
		return
	}
	logger.Info("notification delivered", "to_email", n.ToEmail, "subject", n.Subject)
}

func (c *Consumer) ack(ctx context.Context, handle *string) error {
	_, err := c.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(c.queueURL),
		ReceiptHandle: handle,
	})
	return err
}

func receiveCount(msg types.Message) int {
	v, ok := msg.Attributes[string(types.MessageSystemAttributeNameApproximateReceiveCount)]
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}
