// internal/notify/notifier.go
package notify

import (
	"context"
	"fmt"
	"strings"

	"research-orchestrator/internal/common/config"
	"research-orchestrator/internal/common/logger"
	"research-orchestrator/internal/orchestrator"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

// Interfaces for mocking the AWS clients.
type SESService interface {
	SendEmail(ctx context.Context, input *ses.SendEmailInput) (*ses.SendEmailOutput, error)
}

type SNSService interface {
	Publish(ctx context.Context, input *sns.PublishInput) (*sns.PublishOutput, error)
}

// Notifier announces finalized runs: a summary email to the research team
// and an SNS alert when a run was force-finalized with open gaps. Delivery
// failures are logged and swallowed; notifications never fail a run.
type Notifier struct {
	config config.NotificationConfig
	ses    SESService
	sns    SNSService
	logger logger.Logger
}

func New(cfg config.NotificationConfig, sesClient SESService, snsClient SNSService, log logger.Logger) *Notifier {
	return &Notifier{
		config: cfg,
		ses:    sesClient,
		sns:    snsClient,
		logger: log.WithFields(map[string]interface{}{"component": "notifier"}),
	}
}

// RunFinalized sends the configured notifications for one finalized run.
func (n *Notifier) RunFinalized(ctx context.Context, result *orchestrator.Result) {
	if n == nil || result == nil {
		return
	}

	if n.config.Email.Enabled && n.ses != nil {
		n.sendSummaryEmail(ctx, result)
	}
	if n.config.Alert.Enabled && n.sns != nil && result.Forced {
		n.sendForcedAlert(ctx, result)
	}
}

func (n *Notifier) sendSummaryEmail(ctx context.Context, result *orchestrator.Result) {
	state := result.State
	subject := fmt.Sprintf("Research run finished: %s", state.Target)
	body := n.buildEmailBody(result)

	_, err := n.ses.SendEmail(ctx, &ses.SendEmailInput{
		Source: aws.String(n.config.Email.FromEmail),
		Destination: &types.Destination{
			ToAddresses: n.config.Email.Recipients,
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body)},
			},
		},
	})
	if err != nil {
		n.logger.Warn("summary email failed", map[string]interface{}{
			"runId": state.RunID,
			"error": err.Error(),
		})
		return
	}

	n.logger.Info("summary email sent", map[string]interface{}{
		"runId":      state.RunID,
		"recipients": len(n.config.Email.Recipients),
	})
}

func (n *Notifier) sendForcedAlert(ctx context.Context, result *orchestrator.Result) {
	state := result.State
	message := fmt.Sprintf(
		"research run %s for %q was force-finalized after %d iterations with %d accepted items and %d open gaps",
		state.RunID, state.Target, state.IterationCount, len(result.Accepted), len(result.Gaps))

	_, err := n.sns.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(n.config.Alert.TopicARN),
		Subject:  aws.String("research run force-finalized"),
		Message:  aws.String(message),
	})
	if err != nil {
		n.logger.Warn("forced-run alert failed", map[string]interface{}{
			"runId": state.RunID,
			"error": err.Error(),
		})
		return
	}

	n.logger.Info("forced-run alert published", map[string]interface{}{
		"runId": state.RunID,
	})
}

func (n *Notifier) buildEmailBody(result *orchestrator.Result) string {
	state := result.State

	var sb strings.Builder
	fmt.Fprintf(&sb, "Target: %s\n", state.Target)
	fmt.Fprintf(&sb, "Thesis: %s\n", state.Thesis)
	fmt.Fprintf(&sb, "Iterations: %d of %d\n", state.IterationCount, state.MaxIterations)
	fmt.Fprintf(&sb, "Evidence collected: %d (accepted: %d)\n", state.EvidenceCount(), len(result.Accepted))
	fmt.Fprintf(&sb, "Forced finalization: %t\n", result.Forced)

	if len(result.Gaps) > 0 {
		sb.WriteString("\nOpen gaps:\n")
		for _, gap := range result.Gaps {
			fmt.Fprintf(&sb, "  - [%s] %s: %s\n", gap.Severity, gap.PillarName, gap.Reason)
		}
	}

	if result.Summary != "" {
		sb.WriteString("\nSummary:\n")
		sb.WriteString(result.Summary)
		sb.WriteString("\n")
	}
	return sb.String()
}
