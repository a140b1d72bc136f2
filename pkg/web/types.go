package web

import "github.com/dukex/flowstudio/pkg/models"

// CreateDocumentRequest is the body of POST /documents.
type CreateDocumentRequest struct {
	IsComponent bool `json:"is_component"`
}

// CreateDocumentResponse carries the id of a new document.
type CreateDocumentResponse struct {
	ID string `json:"id"`
}

// UpdateDocumentRequest is a partial update of a document. Absent fields are kept.
type UpdateDocumentRequest struct {
	Name        *string          `json:"name,omitempty"        validate:"omitempty,min=1"`
	Description *string          `json:"description,omitempty"`
	Data        *models.FlowData `json:"data,omitempty"`
}

// SetActiveRequest moves the active pointer. An empty id clears it.
type SetActiveRequest struct {
	ID string `json:"id"`
}

// SubmitCodeRequest is the body of a code submission.
type SubmitCodeRequest struct {
	Code string `json:"code" validate:"required"`
}

// CenterRequest opens or closes the notification center.
type CenterRequest struct {
	Open bool `json:"open"`
}

// PushNotificationRequest queues a notification raised by the UI itself.
// Unique skips the push when an identical item is still queued.
type PushNotificationRequest struct {
	Kind   models.NotificationKind `json:"kind"   validate:"required,oneof=info error success"`
	Title  string                  `json:"title"  validate:"required"`
	List   []string                `json:"list"`
	Unique bool                    `json:"unique"`
}

// PublishRequest is the body of a publish attempt.
type PublishRequest struct {
	Tags   []string `json:"tags"   validate:"dive,required"`
	Public bool     `json:"public"`
}

// NotificationsResponse is the notification queue with its unread marker.
type NotificationsResponse struct {
	Items      []models.NotificationItem `json:"items"`
	Unread     bool                      `json:"unread"`
	CenterOpen bool                      `json:"center_open"`
}
