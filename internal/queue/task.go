package queue

// TaskType routes a queued dispatch task to its fan-out path.
// Automation and webhook fan-out are separate messages so a failure in
// one path never touches the other.
type TaskType string

const (
	TaskTypeAutomation    TaskType = "automation"
	TaskTypeWebhookFanout TaskType = "webhook_fanout"
)
