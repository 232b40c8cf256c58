package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/milkman/internal/domain/models"
	client "github.com/mamadbah2/milkman/pkg/clients/whatsapp"
)

const sendTimeout = 10 * time.Second

// ErrNotConfigured is returned when WhatsApp credentials were not provided.
var ErrNotConfigured = errors.New("whatsapp messaging is not configured")

// Messenger describes the operations the HTTP layer and the scheduler can perform.
type Messenger interface {
	SendOutbound(ctx context.Context, req models.OutboundMessageRequest) error
	SendShare(ctx context.Context, msg models.ShareMessage) error
	SendReminders(ctx context.Context, msgs []models.ShareMessage) (int, error)
}

// MetaWhatsAppService is the production implementation backed by WhatsApp Cloud API.
type MetaWhatsAppService struct {
	client client.Client
	logger *zap.Logger
}

// NewMetaWhatsAppService wires a new service instance.
func NewMetaWhatsAppService(client client.Client, logger *zap.Logger) *MetaWhatsAppService {
	svc := &MetaWhatsAppService{
		client: client,
		logger: logger,
	}
	if svc.logger == nil {
		svc.logger = zap.NewNop()
	}
	return svc
}

// SendOutbound pushes a single text message.
func (s *MetaWhatsAppService) SendOutbound(ctx context.Context, req models.OutboundMessageRequest) error {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	resp, err := s.client.SendTextMessage(ctxWithTimeout, client.SendTextMessageRequest{
		To:         req.To,
		Body:       req.Message,
		PreviewURL: req.PreviewURL,
	})
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}

	if len(resp.Messages) > 0 {
		s.logger.Debug("whatsapp message accepted", zap.String("message_id", resp.Messages[0].ID))
	}
	return nil
}

// SendShare sends a customer's month summary to their phone.
func (s *MetaWhatsAppService) SendShare(ctx context.Context, msg models.ShareMessage) error {
	if err := s.SendOutbound(ctx, models.OutboundMessageRequest{To: msg.Phone, Message: msg.Text}); err != nil {
		return fmt.Errorf("share with customer %s: %w", msg.CustomerID, err)
	}
	return nil
}

// SendReminders sends every message, continuing past failures. It returns how many
// were accepted and the first error seen.
func (s *MetaWhatsAppService) SendReminders(ctx context.Context, msgs []models.ShareMessage) (int, error) {
	var (
		sent     int
		firstErr error
	)

	for _, msg := range msgs {
		if err := ctx.Err(); err != nil {
			return sent, err
		}
		if err := s.SendShare(ctx, msg); err != nil {
			s.logger.Error("failed to send balance reminder", zap.Error(err), zap.String("customer", msg.CustomerID))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		sent++
	}

	return sent, firstErr
}
