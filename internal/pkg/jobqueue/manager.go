package jobqueue

import (
	"sync"

	"github.com/MarcChevalier/Tastevin/internal/pkg/mail"
)

var (
	defaultQueue     *Queue
	defaultQueueOnce sync.Once
)

// GetQueue returns the process-wide mail queue backed by the SMTP mailer
func GetQueue() *Queue {
	defaultQueueOnce.Do(func() {
		defaultQueue = NewQueue(mail.SendMail)
	})
	return defaultQueue
}
