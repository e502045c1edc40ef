package mq

import (
	"errors"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
)

func TestPublisherSendsKeyedMessage(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		key, _ := msg.Key.Encode()
		value, _ := msg.Value.Encode()
		if msg.Topic != "ffarena.change_event" || string(key) != "matches" || string(value) != `{"kind":"matches"}` {
			return errors.New("unexpected message")
		}
		return nil
	})

	p := NewPublisher(producer)
	if err := p.SendMessage("ffarena.change_event", "matches", `{"kind":"matches"}`); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestPublisherReturnsBrokerError(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	p := NewPublisher(producer)
	defer p.Close()
	if err := p.SendMessage("t", "k", "v"); !errors.Is(err, sarama.ErrOutOfBrokers) {
		t.Fatalf("err = %v", err)
	}
}
