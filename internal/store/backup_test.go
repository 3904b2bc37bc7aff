package store

import (
	"testing"
	"time"

	"github.com/praneethkvs/Memento/internal/model"
)

func TestBackupLifecycle(t *testing.T) {
	db := setupTestDB(t)
	s := NewBackupStore(db)

	b, err := s.Create("backup-1.db.enc", "memento/backup-1.db.enc")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if b.Status != model.BackupStatusPending || b.StartedAt == nil {
		t.Errorf("new backup = %+v", b)
	}

	if err := s.UpdateStatus(b.ID, model.BackupStatusFailed, "boom"); err != nil {
		t.Fatalf("update status: %v", err)
	}
	got, _ := s.GetByID(b.ID)
	if got.Status != model.BackupStatusFailed || got.ErrorMessage != "boom" {
		t.Errorf("after failure = %+v", got)
	}

	if err := s.UpdateCompleted(b.ID, 2048); err != nil {
		t.Fatalf("update completed: %v", err)
	}
	got, _ = s.GetByID(b.ID)
	if got.Status != model.BackupStatusCompleted || got.SizeBytes != 2048 || got.CompletedAt == nil {
		t.Errorf("after completion = %+v", got)
	}

	missing, err := s.GetByID(999)
	if err != nil || missing != nil {
		t.Errorf("missing backup = %+v, %v", missing, err)
	}
}

func TestBackupListAndDeleteOlderThan(t *testing.T) {
	db := setupTestDB(t)
	s := NewBackupStore(db)

	for _, name := range []string{"a", "b", "c"} {
		if _, err := s.Create(name, "memento/"+name); err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
	}
	old := time.Now().UTC().AddDate(0, 0, -40)
	if _, err := db.Exec(`UPDATE backups SET created_at = ? WHERE filename = 'a'`, old); err != nil {
		t.Fatalf("age backup: %v", err)
	}

	list, err := s.List(10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 3 || list[len(list)-1].Filename != "a" {
		t.Errorf("list = %+v, want newest first", list)
	}

	keys, err := s.DeleteOlderThan(time.Now().AddDate(0, 0, -30))
	if err != nil {
		t.Fatalf("delete older: %v", err)
	}
	if len(keys) != 1 || keys[0] != "memento/a" {
		t.Errorf("deleted keys = %v", keys)
	}
	list, _ = s.List(10)
	if len(list) != 2 {
		t.Errorf("%d backups left, want 2", len(list))
	}
}
