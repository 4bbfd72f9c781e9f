package vanilla

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/goliatone/go-multistep/pkg/flow"
	"github.com/goliatone/go-multistep/pkg/wizard"
)

const (
	actionField    = "_action"
	stepField      = "_step"
	actionPrevious = "previous"
	actionEdit     = "edit"
	actionSubmit   = "submit"
)

// Handler serves a single wizard session over HTTP. GET renders the active
// step; POST applies the posted action and redirects back (post/redirect/get).
type Handler struct {
	renderer *Renderer
	form     *wizard.Form
	flow     flow.Flow

	// posts serializes POST handling so a step is decoded and submitted
	// against the same active index.
	posts sync.Mutex

	mu   sync.Mutex
	done bool
}

// Handler binds form to an http.Handler. The form pages must have been built
// from f, e.g. through Renderer.Form.
func (r *Renderer) Handler(form *wizard.Form, f flow.Flow) (*Handler, error) {
	if form == nil {
		return nil, errors.New("vanilla renderer: form is nil")
	}
	if form.Len() != len(f.Steps) {
		return nil, fmt.Errorf("vanilla renderer: form has %d pages but flow %q has %d steps", form.Len(), f.Name, len(f.Steps))
	}
	return &Handler{renderer: r, form: form, flow: f}, nil
}

// Completed reports whether the final step was submitted successfully.
func (h *Handler) Completed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.done
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	switch req.Method {
	case http.MethodGet, http.MethodHead:
		h.render(w, req)
	case http.MethodPost:
		h.post(w, req)
	default:
		w.Header().Set("Allow", "GET, HEAD, POST")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	}
}

func (h *Handler) render(w http.ResponseWriter, req *http.Request) {
	var (
		out []byte
		err error
	)
	if h.Completed() {
		out, err = h.renderer.RenderDone(h.flow, req.URL.Path)
	} else {
		out, err = h.form.Render(WithRequestAction(req.Context(), req.URL.Path))
	}
	if err != nil {
		h.renderer.logger.Error("render step failed", "flow", h.flow.Name, "step", h.form.Index(), "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", h.renderer.ContentType())
	w.WriteHeader(http.StatusOK)
	if req.Method != http.MethodHead {
		_, _ = w.Write(out)
	}
}

func (h *Handler) post(w http.ResponseWriter, req *http.Request) {
	if err := req.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.posts.Lock()
	defer h.posts.Unlock()

	if raw := req.PostForm.Get(stepField); raw != "" {
		expected, err := strconv.Atoi(raw)
		if err != nil {
			http.Error(w, fmt.Sprintf("invalid step %q", raw), http.StatusBadRequest)
			return
		}
		if current := h.form.Index(); expected != current || h.Completed() {
			h.renderer.logger.Warn("stale step post rejected", "flow", h.flow.Name, "posted", expected, "active", current)
			http.Error(w, "the form has moved on; reload to continue", http.StatusConflict)
			return
		}
	}

	switch action := req.PostForm.Get(actionField); action {
	case actionPrevious:
		h.form.Previous()
	case actionEdit:
		h.mu.Lock()
		h.done = false
		h.mu.Unlock()
		h.form.Edit()
	case actionSubmit, "":
		if h.Completed() {
			break
		}
		step := h.flow.Steps[h.form.Index()]
		values, err := DecodeStep(step, req.PostForm)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		last := h.form.IsLast()
		// The submission outlives the request if the client goes away.
		sub := h.form.SubmitContext(context.WithoutCancel(req.Context()), values)
		if !last {
			break
		}
		if sub != nil {
			if err := sub.Wait(req.Context()); err != nil {
				h.renderer.logger.Warn("form submission failed", "flow", h.flow.Name, "error", err)
				break
			}
		}
		h.mu.Lock()
		h.done = true
		h.mu.Unlock()
		h.renderer.logger.Info("form submitted", "flow", h.flow.Name)
	default:
		http.Error(w, fmt.Sprintf("unknown action %q", action), http.StatusBadRequest)
		return
	}

	http.Redirect(w, req, req.URL.Path, http.StatusSeeOther)
}

// DecodeStep converts posted form values into typed step values. Checkboxes
// missing from the post decode as false; empty numbers decode as nil.
func DecodeStep(step flow.Step, form url.Values) (map[string]any, error) {
	values := make(map[string]any, len(step.Fields))
	for _, field := range step.Fields {
		raw := strings.TrimSpace(form.Get(field.Name))
		switch field.Type {
		case flow.FieldTypeBoolean:
			values[field.Name] = raw == "true" || raw == "on"
		case flow.FieldTypeMulti:
			selected := make([]any, 0, len(form[field.Name]))
			for _, v := range form[field.Name] {
				selected = append(selected, v)
			}
			values[field.Name] = selected
		case flow.FieldTypeInteger:
			if raw == "" {
				values[field.Name] = nil
				continue
			}
			i, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("%s: %q is not a valid integer", field.DisplayLabel(), raw)
			}
			values[field.Name] = i
		case flow.FieldTypeNumber:
			if raw == "" {
				values[field.Name] = nil
				continue
			}
			f, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, fmt.Errorf("%s: %q is not a valid number", field.DisplayLabel(), raw)
			}
			values[field.Name] = f
		case flow.FieldTypeTextArea:
			values[field.Name] = form.Get(field.Name)
		default:
			values[field.Name] = raw
		}
	}
	return values, nil
}
