package config

import (
	"fmt"
)

type SlotKeyStruct struct{}

func NewSlotKeyStruct() *SlotKeyStruct {
	return &SlotKeyStruct{}
}

// SessionSlot returns the durable slot name for a student's live exam session.
func (r *SlotKeyStruct) SessionSlot(userID int) string {
	return fmt.Sprintf("student:%d:exam_session", userID)
}

// BackupSlot returns the slot name for the crash-recovery backup.
// Written by the recovery guard on a fault as write-only insurance;
// the recover path re-hydrates from the live session slot.
func (r *SlotKeyStruct) BackupSlot(userID int) string {
	return fmt.Sprintf("student:%d:exam_session_backup", userID)
}

// ZoomSlot returns the slot name for a student's display-scale preference.
// Kept separate from the session slot so it survives a full session reset.
func (r *SlotKeyStruct) ZoomSlot(userID int) string {
	return fmt.Sprintf("student:%d:zoom_level", userID)
}

var SlotKey = NewSlotKeyStruct()
