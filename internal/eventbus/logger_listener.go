package eventbus

import (
	"context"

	"github.com/annel0/wildlands/internal/logging"
)

// StartLoggingListener подписывается на все события и пишет их в лог компонента eventbus.
// Функция неблокирующая.
func StartLoggingListener(bus EventBus) error {
	log := logging.GetComponentLogger("eventbus")
	_, err := bus.Subscribe(context.Background(), Filter{}, func(ctx context.Context, ev *Envelope) {
		log.Debug("%s %s player=%s prio=%d %s", ev.ID, ev.EventType, ev.PlayerID, ev.Priority, ev.Payload)
	})
	if err != nil {
		return err
	}
	log.Info("🪵 LoggingListener: подписка на все события активирована")
	return nil
}
