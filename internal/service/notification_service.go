package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/noah-isme/academic-scheduler/internal/models"
	"github.com/noah-isme/academic-scheduler/pkg/jobs"
)

const notificationJobType = "notification.deliver"

type notificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	ListByUser(ctx context.Context, userID string, unreadOnly bool, limit int) ([]models.Notification, error)
	MarkRead(ctx context.Context, id, userID string) error
}

type recipientRepository interface {
	FindByTeacherID(ctx context.Context, teacherID string) (*models.User, error)
	ListActiveStudentsByGroup(ctx context.Context, groupID string) ([]models.User, error)
	ListActiveByRole(ctx context.Context, role models.UserRole) ([]models.User, error)
}

type jobQueue interface {
	Enqueue(job jobs.Job) error
}

// NotificationService writes inbox notifications. Delivery failures are
// logged and counted, never returned to the workflow that caused them.
type NotificationService struct {
	repo       notificationRepository
	recipients recipientRepository
	queue      jobQueue
	metrics    *MetricsService
	logger     *zap.Logger
	now        func() time.Time
}

// NewNotificationService constructs a NotificationService.
func NewNotificationService(repo notificationRepository, recipients recipientRepository, metrics *MetricsService, logger *zap.Logger) *NotificationService {
	return &NotificationService{repo: repo, recipients: recipients, metrics: metrics, logger: nilLogger(logger), now: time.Now}
}

// UseQueue switches delivery to the background queue.
func (s *NotificationService) UseQueue(queue jobQueue) {
	s.queue = queue
}

// HandleJob is the queue handler for queued deliveries.
func (s *NotificationService) HandleJob(ctx context.Context, job jobs.Job) error {
	notification, ok := job.Payload.(models.Notification)
	if !ok {
		return fmt.Errorf("unexpected payload %T for job %s", job.Payload, job.ID)
	}
	if err := s.repo.Create(ctx, &notification); err != nil {
		return err
	}
	s.metrics.RecordNotification(string(notification.Category), true)
	return nil
}

// HandleExhausted records a queued delivery that ran out of retries.
func (s *NotificationService) HandleExhausted(job jobs.Job, err error) {
	category := "unknown"
	if notification, ok := job.Payload.(models.Notification); ok {
		category = string(notification.Category)
	}
	s.metrics.RecordNotification(category, false)
	s.logger.Warn("notification dropped", zap.String("job_id", job.ID), zap.String("category", category), zap.Error(err))
}

// NotifyUser delivers one notification to a user.
func (s *NotificationService) NotifyUser(ctx context.Context, userID string, category models.NotificationCategory, title, body string) models.DispatchReport {
	return s.deliver(ctx, []string{userID}, category, title, body)
}

// NotifyTeacher delivers a notification to the account linked to a teacher.
func (s *NotificationService) NotifyTeacher(ctx context.Context, teacherID string, category models.NotificationCategory, title, body string) models.DispatchReport {
	user, err := s.recipients.FindByTeacherID(ctx, teacherID)
	if err != nil {
		s.logger.Warn("no account for teacher", zap.String("teacher_id", teacherID), zap.Error(err))
		s.metrics.RecordNotification(string(category), false)
		return models.DispatchReport{Failed: 1}
	}
	return s.deliver(ctx, []string{user.ID}, category, title, body)
}

// NotifyGroup fans a notification out to every active student of a group.
func (s *NotificationService) NotifyGroup(ctx context.Context, groupID string, category models.NotificationCategory, title, body string) models.DispatchReport {
	students, err := s.recipients.ListActiveStudentsByGroup(ctx, groupID)
	if err != nil {
		s.logger.Warn("failed to resolve group members", zap.String("group_id", groupID), zap.Error(err))
		s.metrics.RecordNotification(string(category), false)
		return models.DispatchReport{Failed: 1}
	}
	return s.deliver(ctx, lo.Map(students, func(u models.User, _ int) string { return u.ID }), category, title, body)
}

// NotifyAdmins delivers a notification to every active administrator.
func (s *NotificationService) NotifyAdmins(ctx context.Context, category models.NotificationCategory, title, body string) models.DispatchReport {
	admins, err := s.recipients.ListActiveByRole(ctx, models.RoleAdmin)
	if err != nil {
		s.logger.Warn("failed to resolve administrators", zap.Error(err))
		s.metrics.RecordNotification(string(category), false)
		return models.DispatchReport{Failed: 1}
	}
	return s.deliver(ctx, lo.Map(admins, func(u models.User, _ int) string { return u.ID }), category, title, body)
}

// Dispatch delivers the post-commit events produced by a workflow.
func (s *NotificationService) Dispatch(ctx context.Context, events []models.NotificationEvent) models.DispatchReport {
	var report models.DispatchReport
	for _, event := range events {
		switch event.Audience {
		case models.AudienceUser:
			report.Add(s.NotifyUser(ctx, event.TargetID, event.Category, event.Title, event.Body))
		case models.AudienceTeacher:
			report.Add(s.NotifyTeacher(ctx, event.TargetID, event.Category, event.Title, event.Body))
		case models.AudienceGroup:
			report.Add(s.NotifyGroup(ctx, event.TargetID, event.Category, event.Title, event.Body))
		case models.AudienceAdmins:
			report.Add(s.NotifyAdmins(ctx, event.Category, event.Title, event.Body))
		default:
			s.logger.Warn("unknown notification audience", zap.String("audience", string(event.Audience)))
			report.Failed++
		}
	}
	return report
}

// List returns a user's inbox, newest first.
func (s *NotificationService) List(ctx context.Context, userID string, unreadOnly bool, limit int) ([]models.Notification, error) {
	items, err := s.repo.ListByUser(ctx, userID, unreadOnly, limit)
	if err != nil {
		return nil, internal(err, "failed to load notifications")
	}
	return items, nil
}

// MarkRead flags one of the user's notifications as read.
func (s *NotificationService) MarkRead(ctx context.Context, id, userID string) error {
	if err := s.repo.MarkRead(ctx, id, userID); err != nil {
		return notFoundOr(err, "notification not found", "failed to update notification")
	}
	return nil
}

func (s *NotificationService) deliver(ctx context.Context, userIDs []string, category models.NotificationCategory, title, body string) models.DispatchReport {
	var report models.DispatchReport
	for _, userID := range userIDs {
		notification := models.Notification{
			ID:        uuid.NewString(),
			UserID:    userID,
			Category:  category,
			Title:     title,
			Body:      body,
			CreatedAt: s.now().UTC(),
		}
		if s.queue != nil {
			err := s.queue.Enqueue(jobs.Job{ID: notification.ID, Type: notificationJobType, Payload: notification})
			if err == nil {
				report.Sent++
				continue
			}
			s.logger.Warn("failed to queue notification, delivering inline", zap.String("user_id", userID), zap.Error(err))
		}
		if err := s.repo.Create(ctx, &notification); err != nil {
			s.logger.Warn("failed to deliver notification", zap.String("user_id", userID), zap.String("category", string(category)), zap.Error(err))
			s.metrics.RecordNotification(string(category), false)
			report.Failed++
			continue
		}
		s.metrics.RecordNotification(string(category), true)
		report.Sent++
	}
	return report
}
