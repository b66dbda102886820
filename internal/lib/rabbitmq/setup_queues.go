package rabbitmq

const (
	// RoutingKeySyncCompleted — ключ маршрутизации события о завершении прогона.
	RoutingKeySyncCompleted = "sync.completed"
	// RoutingKeySyncRequested — ключ маршрутизации запроса на синхронизацию пользователя.
	RoutingKeySyncRequested = "sync.requested"
)

// QueueSyncRequested — очередь, из которой читаются запросы на синхронизацию.
const QueueSyncRequested = "subscriptions.sync.requested"

// QueueConfig описывает очередь и ключ, которым она привязана к exchange.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// GetSyncQueues возвращает очереди для событий синхронизации.
func GetSyncQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: "subscriptions.sync.completed", RoutingKey: RoutingKeySyncCompleted},
		{QueueName: QueueSyncRequested, RoutingKey: RoutingKeySyncRequested},
	}
}
