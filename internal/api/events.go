package api

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"log"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl/plain"

	"bakehouse/server/internal/models"
)

// ProductionEvent событие производства для Kafka и WebSocket
type ProductionEvent struct {
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// EventPublisher отправляет события производства в Kafka и на цеховые планшеты
// Доставка best-effort: ошибки логируются и не влияют на операции
type EventPublisher struct {
	writer *kafka.Writer
	hub    *Hub
}

// NewEventPublisher создает публикатора событий
// writer может быть nil (Kafka не настроена) — тогда остается только WebSocket
func NewEventPublisher(writer *kafka.Writer, hub *Hub) *EventPublisher {
	return &EventPublisher{writer: writer, hub: hub}
}

// NewKafkaWriter создает асинхронный Kafka producer для событий производства
func NewKafkaWriter(brokers []string, topic string, transport *kafka.Transport) *kafka.Writer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		Async:        true, // Не блокируем операции производства ожиданием брокера
		BatchTimeout: 100 * time.Millisecond,
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			log.Printf("⚠️ Kafka producer: "+msg, args...)
		}),
	}
	if transport != nil {
		writer.Transport = transport
	}
	return writer
}

// PublishScheduleCreated публикует событие создания расписания
func (p *EventPublisher) PublishScheduleCreated(schedule *models.ProductionSchedule) {
	p.publish("schedule_created", map[string]interface{}{
		"schedule_id": schedule.ID,
		"date":        schedule.Date.Format("2006-01-02"),
		"total_items": schedule.TotalItems,
		"created_by":  schedule.CreatedBy,
	})
}

// PublishItemStatusChanged публикует событие смены статуса позиции
func (p *EventPublisher) PublishItemStatusChanged(item *models.ProductionItem, previousStatus string) {
	p.publish("item_status_changed", map[string]interface{}{
		"item_id":         item.ID,
		"schedule_id":     item.ScheduleID,
		"recipe_name":     item.RecipeName,
		"quantity":        item.Quantity,
		"previous_status": previousStatus,
		"status":          item.Status,
	})
}

// PublishOrderCascade публикует событие каскадного закрытия заказа
func (p *EventPublisher) PublishOrderCascade(kind models.OrderKind, orderID, newStatus string) {
	p.publish("order_cascade", map[string]interface{}{
		"order_kind": kind,
		"order_id":   orderID,
		"status":     newStatus,
	})
}

func (p *EventPublisher) publish(eventType string, payload interface{}) {
	event := ProductionEvent{
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}

	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("⚠️ Не удалось сериализовать событие %s: %v", eventType, err)
		return
	}

	if p.hub != nil {
		p.hub.BroadcastMessage(data)
	}

	if p.writer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		err := p.writer.WriteMessages(ctx, kafka.Message{
			Key:   []byte(eventType),
			Value: data,
		})
		if err != nil {
			log.Printf("⚠️ Не удалось отправить событие %s в Kafka: %v", eventType, err)
		}
	}
}

// CreateKafkaTransport создает transport для Kafka producer
// с поддержкой SASL/PLAIN и TLS (для Aiven)
func CreateKafkaTransport(username, password, caCert string) *kafka.Transport {
	transport := &kafka.Transport{
		DialTimeout: 10 * time.Second,
	}

	// Если указаны username и password, используем SASL/PLAIN
	if username != "" && password != "" {
		transport.SASL = plain.Mechanism{
			Username: username,
			Password: password,
		}
		log.Printf("🔐 Kafka: SASL/PLAIN аутентификация включена (username: %s)", username)
	}

	tlsConfig := &tls.Config{
		InsecureSkipVerify: false, // По умолчанию проверяем сертификат
	}

	// Если указан CA сертификат, добавляем его в pool
	if caCert != "" {
		caCertPool := x509.NewCertPool()
		if ok := caCertPool.AppendCertsFromPEM([]byte(caCert)); ok {
			tlsConfig.RootCAs = caCertPool
			log.Printf("🔒 Kafka: TLS с CA сертификатом включен")
		} else {
			log.Printf("⚠️ Kafka: не удалось распарсить CA сертификат, используем системные сертификаты")
		}
	}

	// Если есть SASL, всегда включаем TLS (Aiven требует TLS для SASL)
	if transport.SASL != nil || caCert != "" {
		transport.TLS = tlsConfig
	}

	return transport
}

// ParseKafkaBrokers парсит строку с брокерами (может быть через запятую)
func ParseKafkaBrokers(brokers string) []string {
	if brokers == "" {
		return []string{}
	}
	// Убираем пробелы и разбиваем по запятой
	brokerList := strings.Split(strings.ReplaceAll(brokers, " ", ""), ",")
	var result []string
	for _, broker := range brokerList {
		if broker != "" {
			result = append(result, broker)
		}
	}
	return result
}
