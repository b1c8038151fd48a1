package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNew(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l, err := New(Config{Level: "debug", Format: "json", Output: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if l.GetLevel() != logrus.DebugLevel {
		t.Fatalf("level = %v, want debug", l.GetLevel())
	}
	l.WithField("column", "age").Debug("classified")
	if !strings.Contains(buf.String(), `"column":"age"`) {
		t.Fatalf("json output missing field: %s", buf.String())
	}
}

func TestNew_Errors(t *testing.T) {
	t.Parallel()

	if _, err := New(Config{Level: "loud"}); err == nil {
		t.Errorf("unknown level should fail")
	}
	if _, err := New(Config{Format: "xml"}); err == nil {
		t.Errorf("unknown format should fail")
	}
	l, err := New(Config{})
	if err != nil {
		t.Fatalf("New(defaults): %v", err)
	}
	if l.GetLevel() != logrus.InfoLevel {
		t.Errorf("default level = %v, want info", l.GetLevel())
	}
}
