package submit

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/goliatone/go-multistep/pkg/wizard"
)

// Writer returns a submit handler that writes the accumulated values to w.
// Writes are serialized so one writer can back several forms.
func Writer(w io.Writer, format Format) wizard.SubmitHandler {
	var mu sync.Mutex
	return wizard.SubmitHandlerFunc(func(_ context.Context, values map[string]any) error {
		out, err := Encode(values, format)
		if err != nil {
			return err
		}
		mu.Lock()
		defer mu.Unlock()
		if _, err := w.Write(out); err != nil {
			return fmt.Errorf("submit: write: %w", err)
		}
		if format != FormatPrettyText {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return fmt.Errorf("submit: write: %w", err)
			}
		}
		return nil
	})
}
