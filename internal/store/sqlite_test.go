package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/iPrq/RealChatApp/internal/chat"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	s, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "chat.db"))
	if err != nil {
		t.Fatalf("OpenSQLite() failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestInsertAssignsID(t *testing.T) {
	s := openTestStore(t)

	stored, err := s.Insert(context.Background(), chat.Message{
		Content: "hi",
		Sender:  "alice",
		RoomID:  1,
	})
	if err != nil {
		t.Fatalf("Insert() failed: %v", err)
	}
	if stored.ID == "" {
		t.Error("Insert() did not assign an id")
	}
	if stored.Content != "hi" || stored.Sender != "alice" || stored.RoomID != 1 {
		t.Errorf("Insert() mutated message fields: %+v", stored)
	}
}

func TestInsertKeepsProvidedID(t *testing.T) {
	s := openTestStore(t)

	stored, err := s.Insert(context.Background(), chat.Message{
		ID:      "msg-42",
		Content: "hi",
		Sender:  "alice",
	})
	if err != nil {
		t.Fatalf("Insert() failed: %v", err)
	}
	if stored.ID != "msg-42" {
		t.Errorf("Insert() replaced id %q with %q", "msg-42", stored.ID)
	}
}

func TestInsertRejectsMissingFields(t *testing.T) {
	s := openTestStore(t)

	cases := []struct {
		name string
		msg  chat.Message
	}{
		{"empty content", chat.Message{Sender: "alice"}},
		{"empty sender", chat.Message{Content: "hi"}},
		{"whitespace content", chat.Message{Content: "   ", Sender: "alice"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := s.Insert(context.Background(), tc.msg); !errors.Is(err, ErrInvalidMessage) {
				t.Errorf("Insert(%+v) = %v, want ErrInvalidMessage", tc.msg, err)
			}
		})
	}

	messages, err := s.ListAll(context.Background())
	if err != nil {
		t.Fatalf("ListAll() failed: %v", err)
	}
	if len(messages) != 0 {
		t.Errorf("rejected messages were persisted: %+v", messages)
	}
}

func TestListAllEmptyStore(t *testing.T) {
	s := openTestStore(t)

	messages, err := s.ListAll(context.Background())
	if err != nil {
		t.Fatalf("ListAll() on empty store failed: %v", err)
	}
	if messages == nil {
		t.Error("ListAll() returned nil, want empty slice")
	}
	if len(messages) != 0 {
		t.Errorf("ListAll() returned %d messages, want 0", len(messages))
	}
}

func TestListAllPreservesInsertionOrder(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	contents := []string{"first", "second", "third", "fourth"}
	for _, content := range contents {
		if _, err := s.Insert(ctx, chat.Message{Content: content, Sender: "alice"}); err != nil {
			t.Fatalf("Insert(%q) failed: %v", content, err)
		}
	}

	messages, err := s.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll() failed: %v", err)
	}
	if len(messages) != len(contents) {
		t.Fatalf("ListAll() returned %d messages, want %d", len(messages), len(contents))
	}
	for i, content := range contents {
		if messages[i].Content != content {
			t.Errorf("messages[%d].Content = %q, want %q", i, messages[i].Content, content)
		}
	}
}

func TestConcurrentInsertsAllSucceed(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	const writers = 16
	const perWriter = 25

	var wg sync.WaitGroup
	errs := make(chan error, writers*perWriter)
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				msg := chat.Message{Content: fmt.Sprintf("w%d-%d", w, i), Sender: "alice"}
				if _, err := s.Insert(ctx, msg); err != nil {
					errs <- err
				}
			}
		}(w)
	}
	wg.Wait()
	close(errs)

	failed := 0
	for err := range errs {
		failed++
		t.Logf("Insert() failed: %v", err)
	}
	if failed > 0 {
		t.Fatalf("%d of %d concurrent inserts failed", failed, writers*perWriter)
	}

	messages, err := s.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll() failed: %v", err)
	}
	if len(messages) != writers*perWriter {
		t.Errorf("ListAll() returned %d messages, want %d", len(messages), writers*perWriter)
	}
}

func TestOperationsAfterCloseReportUnavailable(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	if _, err := s.Insert(ctx, chat.Message{Content: "hi", Sender: "alice"}); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Insert() after close = %v, want ErrUnavailable", err)
	}
	if _, err := s.ListAll(ctx); !errors.Is(err, ErrUnavailable) {
		t.Errorf("ListAll() after close = %v, want ErrUnavailable", err)
	}
	if err := s.Ping(ctx); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Ping() after close = %v, want ErrUnavailable", err)
	}
}

func TestOpenSQLiteRejectsEmptyPath(t *testing.T) {
	if _, err := OpenSQLite(context.Background(), "  "); err == nil {
		t.Error("OpenSQLite(\"  \") succeeded, want error")
	}
}
