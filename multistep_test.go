package multistep

import (
	"io/fs"
	"testing"
)

func TestEmbeddedFlows(t *testing.T) {
	data, err := fs.ReadFile(EmbeddedFlows(), "signup.yaml")
	if err != nil {
		t.Fatalf("read embedded flow: %v", err)
	}
	if len(data) == 0 {
		t.Fatalf("embedded flow is empty")
	}
}

func TestEmbeddedTemplates(t *testing.T) {
	for _, name := range []string{"templates/step.tmpl", "templates/done.tmpl"} {
		if _, err := fs.Stat(EmbeddedTemplates(), name); err != nil {
			t.Fatalf("stat %s: %v", name, err)
		}
	}
}

func TestNew_DelegatesToWizard(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Fatalf("expected error for empty page list")
	}
}
