package api

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/google/uuid"

	"github.com/LinkesAuge/duneatlas/internal/blob"
	"github.com/LinkesAuge/duneatlas/internal/poi"
	"github.com/LinkesAuge/duneatlas/internal/storage"
)

// --- Mock MapStore ---

type mockMapStore struct {
	baseMaps []poi.BaseMap
	overlays []poi.Overlay

	createErr error
	listErr   error
}

func newMockMapStore() *mockMapStore {
	return &mockMapStore{}
}

func (m *mockMapStore) ListBaseMaps(_ context.Context) ([]poi.BaseMap, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.baseMaps, nil
}

func (m *mockMapStore) CreateBaseMap(_ context.Context, bm *poi.BaseMap) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.baseMaps = append(m.baseMaps, *bm)
	return nil
}

func (m *mockMapStore) ActivateBaseMap(_ context.Context, id uuid.UUID) error {
	found := false
	for i := range m.baseMaps {
		m.baseMaps[i].IsActive = m.baseMaps[i].ID == id
		if m.baseMaps[i].ID == id {
			found = true
		}
	}
	if !found {
		return storage.ErrMapNotFound
	}
	return nil
}

func (m *mockMapStore) DeleteBaseMap(_ context.Context, id uuid.UUID) (string, error) {
	for i, bm := range m.baseMaps {
		if bm.ID == id {
			m.baseMaps = append(m.baseMaps[:i], m.baseMaps[i+1:]...)
			return bm.ImageURL, nil
		}
	}
	return "", storage.ErrMapNotFound
}

func (m *mockMapStore) ListOverlays(_ context.Context) ([]poi.Overlay, error) {
	return m.overlays, nil
}

func (m *mockMapStore) CreateOverlay(_ context.Context, o *poi.Overlay) error {
	m.overlays = append(m.overlays, *o)
	return nil
}

func (m *mockMapStore) UpdateOverlay(_ context.Context, id uuid.UUID, patch storage.OverlayPatch) (*poi.Overlay, error) {
	for i := range m.overlays {
		if m.overlays[i].ID == id {
			if patch.Opacity != nil {
				m.overlays[i].Opacity = *patch.Opacity
			}
			if patch.DisplayOrder != nil {
				m.overlays[i].DisplayOrder = *patch.DisplayOrder
			}
			cp := m.overlays[i]
			return &cp, nil
		}
	}
	return nil, storage.ErrMapNotFound
}

func (m *mockMapStore) DeleteOverlay(_ context.Context, id uuid.UUID) (string, error) {
	for i, o := range m.overlays {
		if o.ID == id {
			m.overlays = append(m.overlays[:i], m.overlays[i+1:]...)
			return o.ImageURL, nil
		}
	}
	return "", storage.ErrMapNotFound
}

// --- Base maps ---

func TestCreateBaseMap(t *testing.T) {
	env := newTestEnv(t)

	w := env.doMultipart(t, http.MethodPost, "/v1/maps", uuid.NewString(),
		[]formFile{{field: "file", name: "basin.png", data: testPNG(t, 128, 128)}},
		map[string]string{"name": "Hagga Basin HD"})

	if w.Code != http.StatusCreated {
		t.Fatalf("status: got %d\nbody: %s", w.Code, w.Body.String())
	}

	var resp poi.BaseMap
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Name != "Hagga Basin HD" {
		t.Errorf("Name: got %q", resp.Name)
	}
	if resp.ImageURL == "" {
		t.Error("ImageURL not set")
	}
	if resp.IsActive {
		t.Error("new base maps must start inactive")
	}
	if len(env.maps.baseMaps) != 1 {
		t.Errorf("stored maps: got %d", len(env.maps.baseMaps))
	}
	if len(env.blobs.objects) != 1 {
		t.Errorf("stored blobs: got %d, want 1", len(env.blobs.objects))
	}
}

func TestCreateBaseMap_MissingName(t *testing.T) {
	env := newTestEnv(t)

	w := env.doMultipart(t, http.MethodPost, "/v1/maps", uuid.NewString(),
		[]formFile{{field: "file", name: "basin.png", data: testPNG(t, 64, 64)}}, nil)

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("status: got %d, want 422", w.Code)
	}
}

func TestActivateBaseMap_Exclusive(t *testing.T) {
	env := newTestEnv(t)
	a := poi.BaseMap{ID: uuid.New(), Name: "a", IsActive: true}
	b := poi.BaseMap{ID: uuid.New(), Name: "b"}
	env.maps.baseMaps = []poi.BaseMap{a, b}

	w := env.do(t, http.MethodPost, "/v1/maps/"+b.ID.String()+"/activate", uuid.NewString(), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d\nbody: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Maps []poi.BaseMap `json:"maps"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, m := range resp.Maps {
		if m.ID == b.ID && !m.IsActive {
			t.Error("activated map not active")
		}
		if m.ID == a.ID && m.IsActive {
			t.Error("previous active map still active")
		}
	}
}

func TestActivateBaseMap_Unknown(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/v1/maps/"+uuid.NewString()+"/activate", uuid.NewString(), nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", w.Code)
	}
}

func TestDeleteBaseMap_RemovesImage(t *testing.T) {
	env := newTestEnv(t)
	path := "basin.webp"
	env.blobs.objects[blob.BucketMaps+"/"+path] = []byte("img")
	bm := poi.BaseMap{ID: uuid.New(), Name: "a", ImageURL: env.blobs.PublicURL(blob.BucketMaps, path)}
	env.maps.baseMaps = []poi.BaseMap{bm}

	w := env.do(t, http.MethodDelete, "/v1/maps/"+bm.ID.String(), uuid.NewString(), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d\nbody: %s", w.Code, w.Body.String())
	}
	if len(env.maps.baseMaps) != 0 {
		t.Error("base map still stored")
	}
	if len(env.blobs.deleted) != 1 || env.blobs.deleted[0] != blob.BucketMaps+"/"+path {
		t.Errorf("deleted: got %v", env.blobs.deleted)
	}
}

// --- Overlays ---

func TestCreateOverlay_ParsesFields(t *testing.T) {
	env := newTestEnv(t)

	w := env.doMultipart(t, http.MethodPost, "/v1/overlays", uuid.NewString(),
		[]formFile{{field: "file", name: "spice.png", data: testPNG(t, 64, 64)}},
		map[string]string{"name": "spice fields", "opacity": "0.4", "display_order": "2"})

	if w.Code != http.StatusCreated {
		t.Fatalf("status: got %d\nbody: %s", w.Code, w.Body.String())
	}
	var resp poi.Overlay
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Opacity != 0.4 || resp.DisplayOrder != 2 {
		t.Errorf("overlay: got %+v", resp)
	}
}

func TestCreateOverlay_BadOpacity(t *testing.T) {
	env := newTestEnv(t)

	w := env.doMultipart(t, http.MethodPost, "/v1/overlays", uuid.NewString(),
		[]formFile{{field: "file", name: "x.png", data: testPNG(t, 32, 32)}},
		map[string]string{"name": "x", "opacity": "1.5"})

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("status: got %d, want 422", w.Code)
	}
}

func TestUpdateOverlay_Patch(t *testing.T) {
	env := newTestEnv(t)
	o := poi.Overlay{ID: uuid.New(), Name: "spice", Opacity: 1, DisplayOrder: 1}
	env.maps.overlays = []poi.Overlay{o}

	opacity := 0.25
	w := env.do(t, http.MethodPatch, "/v1/overlays/"+o.ID.String(), uuid.NewString(),
		map[string]any{"opacity": opacity})
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d\nbody: %s", w.Code, w.Body.String())
	}
	var resp poi.Overlay
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Opacity != 0.25 {
		t.Errorf("Opacity: got %v", resp.Opacity)
	}
	if resp.DisplayOrder != 1 {
		t.Errorf("DisplayOrder changed: got %d", resp.DisplayOrder)
	}
}

func TestUpdateOverlay_BadOpacity(t *testing.T) {
	env := newTestEnv(t)
	o := poi.Overlay{ID: uuid.New(), Name: "spice", Opacity: 1}
	env.maps.overlays = []poi.Overlay{o}

	w := env.do(t, http.MethodPatch, "/v1/overlays/"+o.ID.String(), uuid.NewString(),
		map[string]any{"opacity": -0.1})
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("status: got %d, want 422", w.Code)
	}
}

func TestDeleteOverlay(t *testing.T) {
	env := newTestEnv(t)
	path := "overlay.webp"
	env.blobs.objects[blob.BucketMaps+"/"+path] = []byte("img")
	o := poi.Overlay{ID: uuid.New(), Name: "x", ImageURL: env.blobs.PublicURL(blob.BucketMaps, path)}
	env.maps.overlays = []poi.Overlay{o}

	w := env.do(t, http.MethodDelete, "/v1/overlays/"+o.ID.String(), uuid.NewString(), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d\nbody: %s", w.Code, w.Body.String())
	}
	if len(env.maps.overlays) != 0 {
		t.Error("overlay still stored")
	}
	if len(env.blobs.deleted) != 1 {
		t.Errorf("deleted: got %v", env.blobs.deleted)
	}
}
