package mq

import (
	"fmt"
	"log"

	"ffarena/internal/config"

	"github.com/IBM/sarama"
)

// Publisher 对 sarama 同步生产者的薄封装，OutboxSender 通过它投递变更事件
type Publisher struct {
	producer sarama.SyncProducer
}

func NewPublisher(producer sarama.SyncProducer) *Publisher {
	return &Publisher{producer: producer}
}

// NewProducer 创建 Kafka 同步生产者
func NewProducer(cfg *config.KafkaConfig) (sarama.SyncProducer, error) {
	kafkaConfig := sarama.NewConfig()
	kafkaConfig.Producer.RequiredAcks = sarama.WaitForAll // 等待所有副本确认
	kafkaConfig.Producer.Retry.Max = 3
	kafkaConfig.Producer.Return.Successes = true
	kafkaConfig.Producer.Partitioner = sarama.NewHashPartitioner // 同一 key 落同一分区，保证顺序

	producer, err := sarama.NewSyncProducer(cfg.Brokers, kafkaConfig)
	if err != nil {
		return nil, fmt.Errorf("创建 Kafka 生产者失败: %w", err)
	}
	return producer, nil
}

// InitKafka 初始化 Kafka 发布者，失败直接退出
func InitKafka(cfg *config.KafkaConfig) *Publisher {
	producer, err := NewProducer(cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}
	log.Println("Kafka 生产者创建成功")
	return NewPublisher(producer)
}

func (p *Publisher) SendMessage(topic, key, value string) error {
	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.StringEncoder(value),
	}
	_, _, err := p.producer.SendMessage(msg)
	return err
}

func (p *Publisher) Close() error {
	if p.producer == nil {
		return nil
	}
	return p.producer.Close()
}
