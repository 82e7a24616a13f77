package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/turtacn/helmkit/internal/domain/monomer"
	"github.com/turtacn/helmkit/internal/domain/notation"
	"github.com/turtacn/helmkit/pkg/errors"
)

// MonomerView is the JSON form of a library monomer.
type MonomerView struct {
	ID            string   `json:"id"`
	PolymerType   string   `json:"polymer_type"`
	Role          string   `json:"role,omitempty"`
	NaturalAnalog string   `json:"natural_analog,omitempty"`
	Attachments   []string `json:"attachments"`
	Name          string   `json:"name,omitempty"`
	SMILES        string   `json:"smiles,omitempty"`
}

// MonomerListResponse is the body of GET /api/v1/monomers.
type MonomerListResponse struct {
	Total    int           `json:"total"`
	Monomers []MonomerView `json:"monomers"`
}

func toMonomerView(m *monomer.Monomer) MonomerView {
	return MonomerView{
		ID:            m.ID,
		PolymerType:   m.PolymerType.String(),
		Role:          string(m.Role),
		NaturalAnalog: m.NaturalAnalog,
		Attachments:   m.Attachments,
		Name:          m.Name,
		SMILES:        m.SMILES,
	}
}

// MonomerHandler serves read access to the shared monomer store.
type MonomerHandler struct {
	store *monomer.MemoryStore
}

func NewMonomerHandler(store *monomer.MemoryStore) *MonomerHandler {
	return &MonomerHandler{store: store}
}

// List handles GET /api/v1/monomers with an optional ?type= filter.
func (h *MonomerHandler) List(w http.ResponseWriter, r *http.Request) {
	kind := notation.KindUnknown
	if t := r.URL.Query().Get("type"); t != "" {
		var err error
		if kind, err = parsePolymerType(t); err != nil {
			writeError(w, err)
			return
		}
	}
	monomers := h.store.List(kind)
	resp := MonomerListResponse{Total: len(monomers), Monomers: make([]MonomerView, 0, len(monomers))}
	for _, m := range monomers {
		resp.Monomers = append(resp.Monomers, toMonomerView(m))
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get handles GET /api/v1/monomers/{type}/{id}.
func (h *MonomerHandler) Get(w http.ResponseWriter, r *http.Request) {
	kind, err := parsePolymerType(chi.URLParam(r, "type"))
	if err != nil {
		writeError(w, err)
		return
	}
	id := chi.URLParam(r, "id")
	m, ok := h.store.GetMonomer(kind, id)
	if !ok || m.AdHoc {
		writeError(w, errors.NotFound("monomer not found").WithDetailf("type=%s id=%s", kind, id))
		return
	}
	writeJSON(w, http.StatusOK, toMonomerView(m))
}

func parsePolymerType(s string) (notation.Kind, error) {
	kind, ok := notation.ParseKind(strings.ToUpper(s))
	if !ok || !kind.IsPolymer() {
		return notation.KindUnknown, errors.InvalidParam("unknown polymer type").WithDetailf("type=%s", s)
	}
	return kind, nil
}
