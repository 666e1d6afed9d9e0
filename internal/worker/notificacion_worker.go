package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"
)

const JobNotificacion = "notificacion"

// NotificacionPayload is the body of a JobNotificacion.
type NotificacionPayload struct {
	Para   string `json:"para"`
	Asunto string `json:"asunto"`
	Cuerpo string `json:"cuerpo"`
}

// Sender is satisfied by infra.Mailer.
type Sender interface {
	Send(to, subject, body string) error
}

// NotificacionWorker delivers operator notices by e-mail.
type NotificacionWorker struct {
	sender Sender
}

func NewNotificacionWorker(sender Sender) *NotificacionWorker {
	return &NotificacionWorker{sender: sender}
}

func (w *NotificacionWorker) Process(_ context.Context, raw json.RawMessage) error {
	var p NotificacionPayload
	if err := json.Unmarshal(raw, &p); err != nil || p.Para == "" {
		log.Error().Err(err).Msg("notificacion_worker: invalid payload")
		return fmt.Errorf("%w: %v", ErrPermanente, err)
	}
	if err := w.sender.Send(p.Para, p.Asunto, p.Cuerpo); err != nil {
		log.Warn().Err(err).Str("to", p.Para).Str("asunto", p.Asunto).Msg("notificacion_worker: send failed")
		return err
	}
	log.Info().Str("to", p.Para).Str("asunto", p.Asunto).Msg("notificacion_worker: sent")
	return nil
}
