package notifications

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"

	"github.com/sanksan/tics/internal/seats"
)

func sampleEvent() *VenueEvent {
	blocks := []seats.SeatBlock{{Row: 1, Col: 1, Length: 2}}
	return NewVenueEvent(EventTypeHoldCreated, 3, "a@a.com", blocks, time.Unix(100, 0)).
		WithExpiry(time.Unix(101, 0))
}

func TestVenueEvent_JSONRoundTripKeepsSeats(t *testing.T) {
	e := sampleEvent().WithReservation("res-1")
	data, err := e.ToJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got, err := FromJSON(data)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.NumSeats != 2 || len(got.Seats) != 2 || got.Seats[1].Col != 2 {
		t.Fatalf("unexpected seats: %+v", got.Seats)
	}
	if got.ReservationID != "res-1" || got.ExpiresAt == nil {
		t.Fatalf("unexpected event: %+v", got)
	}
}

func TestVenueEvent_PartitionKeyFallsBackToHold(t *testing.T) {
	e := NewVenueEvent(EventTypeHoldExpired, 9, "", nil, time.Now())
	if e.GetPartitionKey() != "hold-9" {
		t.Fatalf("unexpected key %q", e.GetPartitionKey())
	}
	if sampleEvent().GetPartitionKey() != "a@a.com" {
		t.Fatalf("expected customer email as key")
	}
}

func TestKafkaPublisher_PublishSendsJSON(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		e, err := FromJSON(val)
		if err != nil {
			return err
		}
		if e.Type != EventTypeHoldCreated || e.HoldID != 3 {
			return fmt.Errorf("unexpected event %+v", e)
		}
		return nil
	})

	p := NewKafkaPublisherWithProducer(producer, "venue-events")
	if err := p.Publish(context.Background(), sampleEvent()); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestKafkaPublisher_PublishWrapsProducerError(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	p := NewKafkaPublisherWithProducer(producer, "venue-events")
	err := p.Publish(context.Background(), sampleEvent())
	if !errors.Is(err, sarama.ErrOutOfBrokers) {
		t.Fatalf("expected wrapped ErrOutOfBrokers, got %v", err)
	}
	_ = p.Close()
}

func TestKafkaPublisher_PublishBatch(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageAndSucceed()
	producer.ExpectSendMessageAndSucceed()

	p := NewKafkaPublisherWithProducer(producer, "venue-events")
	if err := p.PublishBatch(context.Background(), nil); err != nil {
		t.Fatalf("empty batch: %v", err)
	}
	if err := p.PublishBatch(context.Background(), []*VenueEvent{sampleEvent(), sampleEvent()}); err != nil {
		t.Fatalf("batch: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestCreateHeaders(t *testing.T) {
	headers := createHeaders(sampleEvent().WithReservation("res-1"))
	keys := make(map[string]string)
	for _, h := range headers {
		keys[string(h.Key)] = string(h.Value)
	}
	if keys["event_type"] != string(EventTypeHoldCreated) || keys["hold_id"] != "3" {
		t.Fatalf("unexpected headers: %v", keys)
	}
	if keys["reservation_id"] != "res-1" || keys["expires_at"] == "" {
		t.Fatalf("missing optional headers: %v", keys)
	}
}

func TestDefaultConfigIsIdempotent(t *testing.T) {
	cfg := DefaultKafkaPublisherConfig().SaramaConfig()
	if !cfg.Producer.Idempotent || cfg.Net.MaxOpenRequests != 1 {
		t.Fatalf("expected idempotent producer with one open request")
	}
	if cfg.Producer.RequiredAcks != sarama.WaitForAll {
		t.Fatalf("expected WaitForAll acks")
	}
}

func TestShared_CloseLeavesProducerOpen(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageAndSucceed()

	kp := NewKafkaPublisherWithProducer(producer, "venue-events")
	shared := Shared(kp)
	if err := shared.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := shared.Publish(context.Background(), sampleEvent()); err != nil {
		t.Fatalf("publish after shared close: %v", err)
	}
	if err := kp.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}
