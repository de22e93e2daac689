// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package dashboard

import (
	"encoding/json"
	"time"

	"github.com/arbaaz/klarity-sync/internal/klarity"
	"github.com/arbaaz/klarity-sync/internal/syncer"
	"github.com/arbaaz/klarity-sync/pkg/types"
)

// Notifier returns a sync notifier that republishes cycle events to all
// connected dashboard clients. Broadcasts never block the sync loop.
func (s *Server) Notifier() syncer.Notifier {
	return &notifier{server: s}
}

type notifier struct {
	server *Server
}

func (n *notifier) SyncStarted(trigger types.Trigger) {
	n.publish(MessageTypeSyncStarted, SyncStartedData{Trigger: string(trigger)})
}

func (n *notifier) NoteSynced(note types.Note, processed, total int) {
	n.publish(MessageTypeNoteSynced, NoteSyncedData{
		NoteID:    note.ID,
		Title:     note.Title,
		Processed: processed,
		Total:     total,
	})
}

func (n *notifier) NoteFailed(note types.Note, reason string) {
	n.publish(MessageTypeNoteFailed, NoteFailedData{
		NoteID: note.ID,
		Title:  note.Title,
		Reason: reason,
	})
}

func (n *notifier) SyncCompleted(sum types.Summary) {
	// The summary's own JSON shape is the payload.
	n.publish(MessageTypeSyncComplete, sum)
}

func (n *notifier) SyncFailed(trigger types.Trigger, err error) {
	n.publish(MessageTypeSyncError, SyncErrorData{
		Trigger: string(trigger),
		Kind:    string(klarity.KindOf(err)),
		Error:   err.Error(),
	})
}

func (n *notifier) publish(mt MessageType, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		n.server.logger.Printf("marshaling %s payload: %v", mt, err)
		return
	}
	n.server.Broadcast(Message{
		Type:      mt,
		Timestamp: time.Now(),
		Data:      data,
	})
}
