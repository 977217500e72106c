package ledger

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/atlas/internal/event"
	"github.com/roach88/atlas/internal/testutil"
)

func seen(id, artifact string, ts float64) event.Envelope {
	return event.Envelope{
		EventID:    id,
		EventType:  event.ArtifactSeen,
		TS:         ts,
		Actor:      event.Actor{Module: "test"},
		ArtifactID: artifact,
		Payload: map[string]any{
			"artifact_id": artifact,
			"locator":     "/tmp/" + artifact,
			"size_bytes":  int64(1),
		},
	}
}

func TestAppendRead_Roundtrip(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	for i, id := range []string{"evt-1", "evt-2", "evt-3"} {
		seq, err := s.Append(seen(id, "art-1", 1700000000+float64(i)))
		if err != nil {
			t.Fatalf("Append(%s) failed: %v", id, err)
		}
		if seq != int64(i+1) {
			t.Errorf("seq = %d, want %d", seq, i+1)
		}
	}

	records, stats, err := s.Read(Filter{})
	if err != nil {
		t.Fatalf("Read() failed: %v", err)
	}
	if stats.Lines != 3 || stats.Skipped != 0 {
		t.Errorf("stats = %+v", stats)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}
	for i, r := range records {
		if r.Seq != int64(i+1) {
			t.Errorf("record %d seq = %d", i, r.Seq)
		}
	}
	if records[0].Event.EventID != "evt-1" {
		t.Errorf("first event = %s", records[0].Event.EventID)
	}
}

func TestAppend_DailySegments(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	// Midnight UTC 2023-11-14, then roll the wall clock over a day
	// between appends.
	clock := testutil.NewDeterministicClock(time.Unix(1699920000, 0).UTC())
	s.WithClock(clock.Now)

	if _, err := s.Append(seen("evt-1", "a", 1699920000)); err != nil {
		t.Fatal(err)
	}
	clock.Advance(24 * time.Hour)
	if _, err := s.Append(seen("evt-2", "a", 1700006400)); err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{"2023-11-14.jsonl", "2023-11-15.jsonl"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("segment %s missing: %v", name, err)
		}
	}
}

func TestAppend_BackdatedEventStaysInCurrentSegment(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	// Wall clock pinned to 2023-11-15; the second event carries a
	// timestamp from the previous day. Placement follows the clock, so
	// no 2023-11-14 segment may appear and replay keeps append order.
	clock := testutil.NewDeterministicClock(time.Unix(1700006400, 0).UTC())
	s.WithClock(clock.Now)

	if _, err := s.Append(seen("evt-a", "a", 1700006400)); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Append(seen("evt-b", "a", 1699920000)); err != nil {
		t.Fatal(err)
	}

	if _, err := os.Stat(filepath.Join(dir, "2023-11-14.jsonl")); !os.IsNotExist(err) {
		t.Errorf("backdated event opened an earlier segment: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "2023-11-15.jsonl")); err != nil {
		t.Fatalf("current segment missing: %v", err)
	}

	records, _, err := s.Read(Filter{})
	if err != nil {
		t.Fatalf("Read() failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0].Event.EventID != "evt-a" || records[1].Event.EventID != "evt-b" {
		t.Errorf("replay reordered across days: %s, %s",
			records[0].Event.EventID, records[1].Event.EventID)
	}
}

func TestRead_SequenceOrderNotTimestampOrder(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	// Append with a later timestamp first; both land in the same
	// segment and replay must keep append order.
	if _, err := s.Append(seen("evt-late", "a", 1700000500)); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Append(seen("evt-early", "a", 1700000100)); err != nil {
		t.Fatal(err)
	}

	records, _, err := s.Read(Filter{})
	if err != nil {
		t.Fatalf("Read() failed: %v", err)
	}
	if records[0].Event.EventID != "evt-late" || records[1].Event.EventID != "evt-early" {
		t.Errorf("replay reordered by timestamp: %s, %s",
			records[0].Event.EventID, records[1].Event.EventID)
	}
}

func TestRead_SkipsMalformedLines(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	if _, err := s.Append(seen("evt-1", "a", 1700000000)); err != nil {
		t.Fatal(err)
	}
	s.Close()

	// Simulate a torn write.
	segs, _ := os.ReadDir(dir)
	if len(segs) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(segs))
	}
	path := filepath.Join(dir, segs[0].Name())
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	f.WriteString("{\"event_id\": \"evt-torn\", \"event_ty\n")
	f.Close()

	s2, err := Open(dir)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer s2.Close()

	records, stats, err := s2.Read(Filter{})
	if err != nil {
		t.Fatalf("Read() failed: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("got %d records, want 1", len(records))
	}
	if stats.Skipped != 1 {
		t.Errorf("skipped = %d, want 1", stats.Skipped)
	}
	if stats.Lines != 2 {
		t.Errorf("lines = %d, want 2", stats.Lines)
	}
}

func TestOpen_RecoversSequenceSkippingMalformed(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	s.Append(seen("evt-1", "a", 1700000000))
	s.Append(seen("evt-2", "a", 1700000001))
	s.Close()

	// Garbage line must not consume a sequence number.
	segs, _ := os.ReadDir(dir)
	if len(segs) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(segs))
	}
	path := filepath.Join(dir, segs[0].Name())
	f, _ := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	f.WriteString("not json\n")
	f.Close()

	s2, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Close()

	if got := s2.LatestSequence(); got != 2 {
		t.Errorf("recovered seq = %d, want 2", got)
	}
	seq, err := s2.Append(seen("evt-3", "a", 1700000002))
	if err != nil {
		t.Fatal(err)
	}
	if seq != 3 {
		t.Errorf("next seq = %d, want 3", seq)
	}
}

func TestAppend_Closed(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	s.Close()

	if _, err := s.Append(seen("evt-1", "a", 1700000000)); err != ErrClosed {
		t.Errorf("err = %v, want ErrClosed", err)
	}
}

func TestFilter(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	s.Append(seen("evt-1", "art-1", 1700000000))
	s.Append(seen("evt-2", "art-2", 1700000100))
	tagged := event.NewTagsProposed("test", "art-1", []string{"x"}, "",
		event.WithTimestamp(1700000200), event.WithSession("ses-1"))
	s.Append(tagged)

	byArtifact, _, err := s.Read(Filter{ArtifactID: "art-1"})
	if err != nil {
		t.Fatal(err)
	}
	if len(byArtifact) != 2 {
		t.Errorf("by artifact: got %d, want 2", len(byArtifact))
	}

	byType, _, err := s.Read(Filter{Types: []event.Type{event.TagsProposed}})
	if err != nil {
		t.Fatal(err)
	}
	if len(byType) != 1 {
		t.Errorf("by type: got %d, want 1", len(byType))
	}

	bySession, _, err := s.Read(Filter{SessionID: "ses-1"})
	if err != nil {
		t.Fatal(err)
	}
	if len(bySession) != 1 {
		t.Errorf("by session: got %d, want 1", len(bySession))
	}

	byTime, _, err := s.Read(Filter{Since: 1700000050, Until: 1700000150})
	if err != nil {
		t.Fatal(err)
	}
	if len(byTime) != 1 || byTime[0].Event.EventID != "evt-2" {
		t.Errorf("by time: %+v", byTime)
	}
}

func TestGetEvent(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	s.Append(seen("evt-1", "a", 1700000000))

	got, ok, err := s.GetEvent("evt-1")
	if err != nil || !ok {
		t.Fatalf("GetEvent: ok=%v err=%v", ok, err)
	}
	if got.EventID != "evt-1" {
		t.Errorf("event id = %s", got.EventID)
	}

	_, ok, err = s.GetEvent("evt-missing")
	if err != nil {
		t.Fatalf("GetEvent(missing) err = %v", err)
	}
	if ok {
		t.Error("missing event reported as found")
	}
}

func TestMemory_MirrorsStoreSemantics(t *testing.T) {
	m := NewMemory()
	for i, id := range []string{"evt-1", "evt-2"} {
		seq, err := m.Append(seen(id, "a", 1700000000+float64(i)))
		if err != nil {
			t.Fatal(err)
		}
		if seq != int64(i+1) {
			t.Errorf("seq = %d", seq)
		}
	}
	records, _, err := m.Read(Filter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Errorf("got %d records", len(records))
	}
	if m.LatestSequence() != 2 {
		t.Errorf("latest = %d", m.LatestSequence())
	}
}
