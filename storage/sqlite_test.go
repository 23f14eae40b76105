package storage

import (
	"path/filepath"
	"testing"

	"danji_watch/models"
)

func newTestQueue(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "cmd.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestCommandQueueRoundTrip(t *testing.T) {
	store := newTestQueue(t)

	err := store.EnqueueCommand(models.CmdCrawlNow, &models.CommandParams{
		ComplexNos: []string{"1001", "1002"},
	})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := store.EnqueueCommand(models.CmdReloadSchedules, nil); err != nil {
		t.Fatalf("enqueue without params: %v", err)
	}

	cmds, err := store.GetPendingCommands()
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(cmds) != 2 {
		t.Fatalf("%d pending commands, want 2", len(cmds))
	}
	if cmds[0].Command != models.CmdCrawlNow {
		t.Errorf("first command = %s, want crawl_now", cmds[0].Command)
	}

	params, err := store.ParseCommandParams(&cmds[0])
	if err != nil {
		t.Fatalf("parse params: %v", err)
	}
	if len(params.ComplexNos) != 2 || params.ComplexNos[0] != "1001" {
		t.Errorf("params = %+v", params)
	}

	empty, err := store.ParseCommandParams(&cmds[1])
	if err != nil {
		t.Fatalf("parse empty params: %v", err)
	}
	if len(empty.ComplexNos) != 0 || empty.ScheduleID != "" {
		t.Errorf("empty params = %+v", empty)
	}
}

func TestMarkCommandProcessed(t *testing.T) {
	store := newTestQueue(t)

	if err := store.EnqueueCommand(models.CmdReloadSchedules, nil); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	cmds, err := store.GetPendingCommands()
	if err != nil || len(cmds) != 1 {
		t.Fatalf("pending = %v, %v", cmds, err)
	}

	if err := store.MarkCommandProcessed(cmds[0].ID); err != nil {
		t.Fatalf("mark processed: %v", err)
	}

	cmds, err = store.GetPendingCommands()
	if err != nil {
		t.Fatalf("pending after mark: %v", err)
	}
	if len(cmds) != 0 {
		t.Errorf("%d commands still pending, want 0", len(cmds))
	}
}
