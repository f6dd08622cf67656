package store

import (
	"path/filepath"
	"testing"
	"time"
)

func openTest(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "sub", "tripburn.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestBlobs(t *testing.T) {
	db := openTest(t)

	got, err := db.GetBlob("state.v2")
	if err != nil || got != nil {
		t.Fatalf("GetBlob(missing) = %q, %v; want nil, nil", got, err)
	}
	if err := db.PutBlob("state.v2", []byte(`{"a":1}`)); err != nil {
		t.Fatalf("PutBlob: %v", err)
	}
	if err := db.PutBlob("state.v2", []byte(`{"a":2}`)); err != nil {
		t.Fatalf("PutBlob: %v", err)
	}
	got, err = db.GetBlob("state.v2")
	if err != nil || string(got) != `{"a":2}` {
		t.Fatalf("GetBlob = %q, %v", got, err)
	}
	at, err := db.BlobUpdatedAt("state.v2")
	if err != nil || at.IsZero() {
		t.Errorf("BlobUpdatedAt = %v, %v", at, err)
	}
}

func TestSettings(t *testing.T) {
	db := openTest(t)
	if err := db.SetSetting(SettingShareCode, "ABC123"); err != nil {
		t.Fatal(err)
	}
	if v, _ := db.GetSetting(SettingShareCode); v != "ABC123" {
		t.Errorf("GetSetting = %q, want ABC123", v)
	}
	if err := db.SetSetting(SettingShareCode, ""); err != nil {
		t.Fatal(err)
	}
	if v, _ := db.GetSetting(SettingShareCode); v != "" {
		t.Errorf("GetSetting after clear = %q, want empty", v)
	}
}

func TestSyncLog(t *testing.T) {
	db := openTest(t)
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	_ = db.RecordSync(SyncEvent{Op: "push", Slug: "laos", OK: true, At: base})
	_ = db.RecordSync(SyncEvent{Op: "push", Slug: "laos", OK: false, Message: "timeout", At: base.Add(time.Minute)})
	_ = db.RecordSync(SyncEvent{Op: "pull", OK: true, At: base.Add(2 * time.Minute)})

	ev, ok, err := db.LastSync("push")
	if err != nil || !ok {
		t.Fatalf("LastSync = %v, %v", ok, err)
	}
	if !ev.At.Equal(base) || ev.Slug != "laos" {
		t.Errorf("LastSync(push) = %+v, want the successful one", ev)
	}

	recent, err := db.RecentSyncEvents(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != 3 || recent[0].Op != "pull" || recent[1].Message != "timeout" {
		t.Errorf("RecentSyncEvents = %+v", recent)
	}
}
