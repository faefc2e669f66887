package session

import (
	"errors"
	"testing"

	"github.com/kalambet/filesearch/internal/backend"
	"github.com/kalambet/filesearch/internal/conversation"
)

func msg(content string) conversation.Message {
	return conversation.Message{Role: conversation.RoleUser, Content: content}
}

func TestSelectionEpoch(t *testing.T) {
	sel := NewSelection()
	if _, ok := sel.Current(); ok {
		t.Fatal("new selection should have no store")
	}

	sel.Select("a")
	e1 := sel.Epoch()
	if !sel.CommitIfCurrent(e1, msg("x")) {
		t.Fatal("commit with current epoch refused")
	}

	if sel.Select("a") {
		t.Error("re-selecting the same store reported a change")
	}
	if sel.Epoch() != e1 {
		t.Error("re-selecting the same store bumped the epoch")
	}

	sel.Select("b")
	if sel.CommitIfCurrent(e1, msg("stale")) {
		t.Error("commit with a stale epoch was applied")
	}
	if got := sel.Messages(); len(got) != 0 {
		t.Errorf("messages after switch = %v", got)
	}
}

func TestSelectionClearKeepsEpoch(t *testing.T) {
	sel := NewSelection()
	sel.Select("a")
	e := sel.Epoch()
	sel.CommitIfCurrent(e, msg("1"))

	sel.Clear()
	if len(sel.Messages()) != 0 {
		t.Error("Clear left messages")
	}
	if sel.Epoch() != e {
		t.Error("Clear changed the epoch")
	}
}

func TestSelectionSnapshot(t *testing.T) {
	sel := NewSelection()
	sel.Select("a")
	for i := 0; i < 12; i++ {
		sel.CommitIfCurrent(sel.Epoch(), msg(string(rune('a'+i))))
	}

	id, epoch, hist := sel.Snapshot(10)
	if id != "a" || epoch != sel.Epoch() {
		t.Errorf("Snapshot id=%q epoch=%d", id, epoch)
	}
	if len(hist) != 10 || hist[0].Content != "c" {
		t.Errorf("Snapshot history = %v", hist)
	}
}

func TestSelectionReconcile(t *testing.T) {
	stores := []backend.Store{{Name: "a"}, {Name: "b"}}

	sel := NewSelection()
	if changed, err := sel.Reconcile(stores, ""); changed || err != nil {
		t.Errorf("no selection, no preference: changed=%v err=%v", changed, err)
	}

	if changed, err := sel.Reconcile(stores, "b"); !changed || err != nil {
		t.Errorf("preferred: changed=%v err=%v", changed, err)
	}
	if id, _ := sel.Current(); id != "b" {
		t.Errorf("Current = %q, want b", id)
	}

	sel.CommitIfCurrent(sel.Epoch(), msg("kept"))
	if changed, err := sel.Reconcile(stores, "a"); changed || err != nil {
		t.Errorf("present selection: changed=%v err=%v", changed, err)
	}
	if len(sel.Messages()) != 1 {
		t.Error("reconcile with a present store cleared messages")
	}

	before := sel.Epoch()
	changed, err := sel.Reconcile([]backend.Store{{Name: "a"}}, "a")
	if !changed || !errors.Is(err, ErrStoreNotFound) {
		t.Errorf("vanished: changed=%v err=%v", changed, err)
	}
	if _, ok := sel.Current(); ok {
		t.Error("vanished store should fall back to no store, not the preferred one")
	}
	if sel.Epoch() == before {
		t.Error("fallback did not bump the epoch")
	}
	if len(sel.Messages()) != 0 {
		t.Error("fallback did not clear the buffer")
	}
}
