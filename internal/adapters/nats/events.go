package natsad

import (
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// Room change subjects published by the backend.
const (
	SubjectRoomCreated = "room.created"
	SubjectRoomUpdated = "room.updated"
	SubjectRoomDeleted = "room.deleted"
)

type roomEvent struct {
	HotelID string `json:"hotelId"`
}

// Listener is the push side of inventory refresh: a persistent NATS
// connection subscribed to room change subjects.
type Listener struct {
	conn *nats.Conn
}

func New(url string) (*Listener, error) {
	conn, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return &Listener{conn: conn}, nil
}

// Listen subscribes to the three room subjects and invokes notify for events
// matching hotelID. The returned stop func drains the subscriptions.
func (l *Listener) Listen(hotelID string, notify func(event string)) (func(), error) {
	subjects := []string{SubjectRoomCreated, SubjectRoomUpdated, SubjectRoomDeleted}
	subs := make([]*nats.Subscription, 0, len(subjects))

	for _, subj := range subjects {
		subj := subj
		sub, err := l.conn.Subscribe(subj, func(msg *nats.Msg) {
			var ev roomEvent
			if err := json.Unmarshal(msg.Data, &ev); err != nil {
				log.Warn().Err(err).Str("subject", subj).Msg("bad room event payload")
				return
			}
			if ev.HotelID != hotelID {
				return // another hotel's inventory
			}
			notify(subj)
		})
		if err != nil {
			for _, s := range subs {
				_ = s.Unsubscribe()
			}
			return nil, fmt.Errorf("subscribe %s: %w", subj, err)
		}
		subs = append(subs, sub)
	}

	stop := func() {
		for _, s := range subs {
			_ = s.Unsubscribe()
		}
	}
	return stop, nil
}

func (l *Listener) Close() error {
	l.conn.Close()
	return nil
}
