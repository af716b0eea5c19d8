package services

import (
	"natours/internal/logger"

	"go.uber.org/zap"
)

type EmailJob struct {
	To      []string
	Subject string
	Body    string
}

var EmailQueue = make(chan EmailJob, 100) // глобальная очередь на 100 писем

type emailSender interface {
	Send(to []string, subject, body string) error
}

func StartEmailWorker(emailService emailSender) {
	go func() {
		for job := range EmailQueue {
			if err := emailService.Send(job.To, job.Subject, job.Body); err != nil {
				logger.Log.Error("Не удалось отправить письмо", zap.String("subject", job.Subject), zap.Error(err))
			}
		}
	}()
}
