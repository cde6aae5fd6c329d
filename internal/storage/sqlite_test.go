package storage

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// TestMigrationsIdempotent runs Open twice on the same database and verifies
// the schema_version count stays correct (migration not re-applied).
func TestMigrationsIdempotent(t *testing.T) {
	dir := t.TempDir()

	s1, err := Open(dir)
	if err != nil {
		t.Fatalf("first Open failed: %v", err)
	}
	v1, err := s1.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	s1.Close()

	s2, err := Open(dir)
	if err != nil {
		t.Fatalf("second Open failed: %v", err)
	}
	defer s2.Close()

	v2, err := s2.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	if diff := cmp.Diff(v1, v2); diff != "" {
		t.Errorf("migrations changed on reopen (-first +second):\n%s", diff)
	}
}

func TestMigrationsOrdered(t *testing.T) {
	s := openTestStore(t)

	versions, err := s.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	if diff := cmp.Diff([]int{1, 2}, versions); diff != "" {
		t.Errorf("versions (-want +got):\n%s", diff)
	}
}

func TestIndexesExist(t *testing.T) {
	s := openTestStore(t)

	for _, idx := range []string{"idx_interactions_created", "idx_interactions_feedback"} {
		var count int
		err := s.db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='index' AND name=?", idx).Scan(&count)
		if err != nil {
			t.Fatalf("query index %s: %v", idx, err)
		}
		if count != 1 {
			t.Errorf("index %s not found", idx)
		}
	}
}

func TestSaveAndGetInteraction(t *testing.T) {
	s := openTestStore(t)

	want := Interaction{
		ID:             "int-001",
		CreatedAt:      time.Date(2025, 10, 15, 9, 30, 0, 123, time.UTC),
		Query:          "Quanto gastei?",
		Classification: "financial_query",
		Mode:           "template",
		ShortText:      "Você gastou R$ 1650.00 nos últimos 30 dias.",
		FullText:       "Você gastou R$ 1650.00 nos últimos 30 dias. Período analisado: de 10/09/2025 a 10/10/2025.",
		Sources:        []string{"transacoes.csv:data,tipo,categoria,valor"},
		Truncated:      true,
	}
	if err := s.SaveInteraction(want); err != nil {
		t.Fatalf("SaveInteraction: %v", err)
	}

	got, err := s.GetInteraction("int-001")
	if err != nil {
		t.Fatalf("GetInteraction: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("interaction (-want +got):\n%s", diff)
	}
}

func TestSaveInteraction_Defaults(t *testing.T) {
	s := openTestStore(t)

	if err := s.SaveInteraction(Interaction{ID: "int-d", Query: "oi", Classification: "greeting"}); err != nil {
		t.Fatalf("SaveInteraction: %v", err)
	}
	got, err := s.GetInteraction("int-d")
	if err != nil {
		t.Fatalf("GetInteraction: %v", err)
	}
	if got.Mode != "template" {
		t.Errorf("Mode = %q, want template", got.Mode)
	}
	if got.CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}
	if got.Sources == nil || len(got.Sources) != 0 {
		t.Errorf("Sources = %#v, want empty slice", got.Sources)
	}
}

func TestSaveInteraction_RequiresID(t *testing.T) {
	s := openTestStore(t)
	if err := s.SaveInteraction(Interaction{Query: "x"}); err == nil {
		t.Error("SaveInteraction without id succeeded")
	}
}

// TestGetInteractionNotFound verifies that retrieving a non-existent ID returns ErrNotFound.
func TestGetInteractionNotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.GetInteraction("does-not-exist")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestUpdateFeedback(t *testing.T) {
	s := openTestStore(t)

	if err := s.SaveInteraction(Interaction{ID: "int-fb", Query: "test query", Classification: "financial_query"}); err != nil {
		t.Fatalf("SaveInteraction: %v", err)
	}
	if err := s.UpdateFeedback("int-fb", 5, "resposta útil"); err != nil {
		t.Fatalf("UpdateFeedback: %v", err)
	}

	got, err := s.GetInteraction("int-fb")
	if err != nil {
		t.Fatalf("GetInteraction: %v", err)
	}
	if got.FeedbackScore != 5 || got.FeedbackNotes != "resposta útil" {
		t.Errorf("feedback = (%d, %q)", got.FeedbackScore, got.FeedbackNotes)
	}

	if err := s.UpdateFeedback("missing", 1, ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateFeedback(missing) = %v, want ErrNotFound", err)
	}
}

// TestGetRecentInteractions saves 10 interactions and verifies limit and descending order.
func TestGetRecentInteractions(t *testing.T) {
	s := openTestStore(t)

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for j := 0; j < 10; j++ {
		i := Interaction{
			ID: fmt.Sprintf("int-%02d", j),
			// sub-second offsets must still sort correctly
			CreatedAt:      base.Add(time.Duration(j) * 100 * time.Millisecond),
			Query:          fmt.Sprintf("query %d", j),
			Classification: "financial_query",
		}
		if err := s.SaveInteraction(i); err != nil {
			t.Fatalf("SaveInteraction %d: %v", j, err)
		}
	}

	got, err := s.GetRecentInteractions(5)
	if err != nil {
		t.Fatalf("GetRecentInteractions: %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("got %d interactions, want 5", len(got))
	}
	var ids []string
	for _, i := range got {
		ids = append(ids, i.ID)
	}
	if diff := cmp.Diff([]string{"int-09", "int-08", "int-07", "int-06", "int-05"}, ids); diff != "" {
		t.Errorf("order (-want +got):\n%s", diff)
	}
}

// TestCreatedAtRoundTrip covers timestamps whose fractional seconds end in
// zeros, which the driver renders with a shortened fraction.
func TestCreatedAtRoundTrip(t *testing.T) {
	s := openTestStore(t)

	times := []time.Time{
		time.Date(2025, 3, 1, 10, 0, 0, 500_000_000, time.UTC),
		time.Date(2025, 3, 1, 10, 0, 1, 0, time.UTC),
		time.Date(2025, 3, 1, 10, 0, 2, 123_456_000, time.UTC),
		time.Date(2025, 3, 1, 10, 0, 3, 123_456_789, time.UTC),
	}
	for j, ts := range times {
		id := fmt.Sprintf("ts-%d", j)
		if err := s.SaveInteraction(Interaction{ID: id, CreatedAt: ts, Query: "q"}); err != nil {
			t.Fatalf("SaveInteraction %s: %v", id, err)
		}
		got, err := s.GetInteraction(id)
		if err != nil {
			t.Fatalf("GetInteraction %s: %v", id, err)
		}
		if !got.CreatedAt.Equal(ts) {
			t.Errorf("%s: CreatedAt = %v, want %v", id, got.CreatedAt, ts)
		}
	}

	recent, err := s.GetRecentInteractions(10)
	if err != nil {
		t.Fatalf("GetRecentInteractions: %v", err)
	}
	var ids []string
	for _, i := range recent {
		ids = append(ids, i.ID)
	}
	if diff := cmp.Diff([]string{"ts-3", "ts-2", "ts-1", "ts-0"}, ids); diff != "" {
		t.Errorf("order (-want +got):\n%s", diff)
	}
}
