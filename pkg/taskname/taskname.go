package taskname

const (
	// Scheduler
	ExpiryTick = "expiry:tick"

	// Notifications
	NotifyDuelExpired   = "notify:duel:expired"
	NotifyDuelFinished  = "notify:duel:finished"
	NotifyRaidCompleted = "notify:raid:completed"
	NotifyRaidExpired   = "notify:raid:expired"
	NotifyQuestOutcome  = "notify:quest:outcome"
)

// Queues
const (
	QueueCritical = "critical"
	QueueNotify   = "notify"
	QueueDefault  = "default"
)
