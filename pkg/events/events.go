// Package events defines the change feed emitted by the document registry, the
// notification center and the store publish coordinator.
package events

import (
	"time"

	"github.com/dukex/flowstudio/pkg/models"
	"github.com/google/uuid"
)

type EventType string

// Topic carries every flowstudio event.
const Topic = "flowstudio.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Document registry events.
	DocumentAddedEvent     EventType = "document.added"
	DocumentUpdatedEvent   EventType = "document.updated"
	DocumentRemovedEvent   EventType = "document.removed"
	DocumentActivatedEvent EventType = "document.activated"

	// Notification center events.
	NotificationPushedEvent   EventType = "notification.pushed"
	NotificationRemovedEvent  EventType = "notification.removed"
	NotificationsClearedEvent EventType = "notification.cleared"

	// Store events.
	StoreEntryPublishedEvent EventType = "store.entry.published"
)

type BaseEvent struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

func newBase(eventType EventType) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
	}
}

type DocumentAdded struct {
	BaseEvent

	DocumentID  string `json:"document_id"`
	Name        string `json:"name"`
	IsComponent bool   `json:"is_component"`
}

func (e DocumentAdded) GetType() EventType {
	return DocumentAddedEvent
}

func NewDocumentAdded(doc *models.FlowDocument) *DocumentAdded {
	return &DocumentAdded{
		BaseEvent:   newBase(DocumentAddedEvent),
		DocumentID:  doc.ID,
		Name:        doc.Name,
		IsComponent: doc.IsComponent,
	}
}

type DocumentUpdated struct {
	BaseEvent

	DocumentID string `json:"document_id"`
}

func (e DocumentUpdated) GetType() EventType {
	return DocumentUpdatedEvent
}

func NewDocumentUpdated(documentID string) *DocumentUpdated {
	return &DocumentUpdated{
		BaseEvent:  newBase(DocumentUpdatedEvent),
		DocumentID: documentID,
	}
}

type DocumentRemoved struct {
	BaseEvent

	DocumentID string `json:"document_id"`
	WasActive  bool   `json:"was_active"`
}

func (e DocumentRemoved) GetType() EventType {
	return DocumentRemovedEvent
}

func NewDocumentRemoved(documentID string, wasActive bool) *DocumentRemoved {
	return &DocumentRemoved{
		BaseEvent:  newBase(DocumentRemovedEvent),
		DocumentID: documentID,
		WasActive:  wasActive,
	}
}

type DocumentActivated struct {
	BaseEvent

	DocumentID string `json:"document_id"` // empty when the selection is cleared
}

func (e DocumentActivated) GetType() EventType {
	return DocumentActivatedEvent
}

func NewDocumentActivated(documentID string) *DocumentActivated {
	return &DocumentActivated{
		BaseEvent:  newBase(DocumentActivatedEvent),
		DocumentID: documentID,
	}
}

type NotificationPushed struct {
	BaseEvent

	Notification models.NotificationItem `json:"notification"`
}

func (e NotificationPushed) GetType() EventType {
	return NotificationPushedEvent
}

func NewNotificationPushed(item models.NotificationItem) *NotificationPushed {
	return &NotificationPushed{
		BaseEvent:    newBase(NotificationPushedEvent),
		Notification: item,
	}
}

type NotificationRemoved struct {
	BaseEvent

	NotificationID string `json:"notification_id"`
}

func (e NotificationRemoved) GetType() EventType {
	return NotificationRemovedEvent
}

func NewNotificationRemoved(id string) *NotificationRemoved {
	return &NotificationRemoved{
		BaseEvent:      newBase(NotificationRemovedEvent),
		NotificationID: id,
	}
}

type NotificationsCleared struct {
	BaseEvent

	Count int `json:"count"`
}

func (e NotificationsCleared) GetType() EventType {
	return NotificationsClearedEvent
}

func NewNotificationsCleared(count int) *NotificationsCleared {
	return &NotificationsCleared{
		BaseEvent: newBase(NotificationsClearedEvent),
		Count:     count,
	}
}

type StoreEntryPublished struct {
	BaseEvent

	DocumentID  string `json:"document_id"`
	RemoteID    string `json:"remote_id,omitempty"` // set when an existing entry was replaced
	Name        string `json:"name"`
	IsComponent bool   `json:"is_component"`
	Replaced    bool   `json:"replaced"`
}

func (e StoreEntryPublished) GetType() EventType {
	return StoreEntryPublishedEvent
}

func NewStoreEntryPublished(doc *models.FlowDocument, remoteID string) *StoreEntryPublished {
	return &StoreEntryPublished{
		BaseEvent:   newBase(StoreEntryPublishedEvent),
		DocumentID:  doc.ID,
		RemoteID:    remoteID,
		Name:        doc.Name,
		IsComponent: doc.IsComponent,
		Replaced:    remoteID != "",
	}
}
