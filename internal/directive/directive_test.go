package directive

import (
	"errors"
	"testing"

	"github.com/kalambet/filesearch/internal/storage"
)

func newCell(t *testing.T) (*Cell, *storage.Store) {
	t.Helper()
	s, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return New(s), s
}

func TestReadUnset(t *testing.T) {
	c, _ := newCell(t)

	got, err := c.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got != "" {
		t.Errorf("Read = %q, want empty", got)
	}
}

func TestWriteReadClear(t *testing.T) {
	c, s := newCell(t)

	if err := c.Write("Answer in French."); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := c.Read()
	if err != nil || got != "Answer in French." {
		t.Fatalf("Read = %q, %v", got, err)
	}

	raw, err := s.GetSetting(Key)
	if err != nil || raw != "Answer in French." {
		t.Errorf("stored under %q = %q, %v", Key, raw, err)
	}

	if err := c.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if got, _ := c.Read(); got != "" {
		t.Errorf("Read after Clear = %q", got)
	}
}

func TestWriteBlankClears(t *testing.T) {
	c, s := newCell(t)

	c.Write("be brief")
	if err := c.Write("   "); err != nil {
		t.Fatalf("Write blank: %v", err)
	}
	if _, err := s.GetSetting(Key); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("blank write should delete the key, got err=%v", err)
	}
}

type failingSettings struct{}

func (failingSettings) GetSetting(string) (string, error) { return "", errors.New("disk gone") }
func (failingSettings) SetSetting(string, string) error   { return errors.New("disk gone") }
func (failingSettings) DeleteSetting(string) error        { return errors.New("disk gone") }

func TestErrorsWrapped(t *testing.T) {
	c := New(failingSettings{})

	if _, err := c.Read(); err == nil {
		t.Error("Read: expected error")
	}
	if err := c.Write("x"); err == nil {
		t.Error("Write: expected error")
	}
	if err := c.Clear(); err == nil {
		t.Error("Clear: expected error")
	}
}

func TestStatic(t *testing.T) {
	got, err := Static("fixed").Read()
	if err != nil || got != "fixed" {
		t.Errorf("Static.Read = %q, %v", got, err)
	}
}
