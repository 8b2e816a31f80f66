package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"calltriage/internal/models"
	"calltriage/internal/utils"
	"calltriage/pkg/logger"
	"calltriage/pkg/sms"
)

const defaultAlertTimeout = 10 * time.Second

// Alerter is told about every stored emergency and decides whether anyone
// must be paged.
type Alerter interface {
	Notify(ctx context.Context, emergency *models.Emergency)
}

// CriticalAlerter texts the on-call numbers when a record scores at or above
// the threshold. Sends run in the background and never fail the request.
type CriticalAlerter struct {
	sender     sms.Sender
	recipients []string
	threshold  int
	timeout    time.Duration
	logger     *logger.Logger
	wg         sync.WaitGroup
}

func NewCriticalAlerter(sender sms.Sender, recipients []string, threshold int, log *logger.Logger) *CriticalAlerter {
	if log == nil {
		log = logger.NewNop()
	}
	return &CriticalAlerter{
		sender:     sender,
		recipients: recipients,
		threshold:  threshold,
		timeout:    defaultAlertTimeout,
		logger:     log,
	}
}

func (a *CriticalAlerter) Notify(ctx context.Context, emergency *models.Emergency) {
	if emergency.PriorityScore < a.threshold || len(a.recipients) == 0 {
		return
	}

	body := AlertMessage(emergency)
	log := a.logger.WithEmergencyID(emergency.ID)

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.timeout)
		defer cancel()

		for _, to := range a.recipients {
			sid, err := a.sender.Send(sendCtx, to, body)
			if err != nil {
				log.WithError(err).WithField("to", utils.MaskPhone(to)).Warn("Failed to send critical alert")
				continue
			}
			log.WithField("message_sid", sid).Info("Critical alert sent")
		}
	}()
}

// Wait blocks until in-flight alerts finish. Used on shutdown.
func (a *CriticalAlerter) Wait() {
	a.wg.Wait()
}

// AlertMessage renders the text sent to on-call staff.
func AlertMessage(e *models.Emergency) string {
	return fmt.Sprintf("[P%d] %s, severity %d, %s. Area: %s. %s (id %s)",
		e.PriorityScore,
		e.Analysis.EmergencyType,
		e.Analysis.SeverityLevel,
		e.Analysis.Urgency,
		e.Analysis.Location.Area,
		e.Analysis.Summary,
		e.ID,
	)
}
