package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/LinkesAuge/duneatlas/internal/blob"
	"github.com/LinkesAuge/duneatlas/internal/coord"
	"github.com/LinkesAuge/duneatlas/internal/poi"
	"github.com/LinkesAuge/duneatlas/internal/settings"
	"github.com/LinkesAuge/duneatlas/internal/storage"
)

// --- Mock PoiStore ---

type mockPoiStore struct {
	pois  map[uuid.UUID]*poi.Poi
	types []poi.PoiType
	links map[uuid.UUID][]poi.EntityLink

	createErr   error
	getErr      error
	listErr     error
	updateErr   error
	setShotsErr error
	deleteErr   error
}

func newMockPoiStore() *mockPoiStore {
	return &mockPoiStore{
		pois:  make(map[uuid.UUID]*poi.Poi),
		links: make(map[uuid.UUID][]poi.EntityLink),
	}
}

func (m *mockPoiStore) CreatePoi(_ context.Context, p *poi.Poi) error {
	if m.createErr != nil {
		return m.createErr
	}
	cp := *p
	m.pois[p.ID] = &cp
	return nil
}

func (m *mockPoiStore) GetPoi(_ context.Context, id, viewer uuid.UUID) (*poi.Poi, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	p, ok := m.pois[id]
	if !ok || !p.VisibleTo(viewer) {
		return nil, storage.ErrPoiNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockPoiStore) ListPois(_ context.Context, params storage.ListPoisParams) (*storage.PoiPage, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []poi.Poi
	for _, p := range m.pois {
		if !p.VisibleTo(params.Viewer) {
			continue
		}
		if params.MapType != "" && p.MapType != params.MapType {
			continue
		}
		if params.GridCell != "" && p.GridCell != params.GridCell {
			continue
		}
		out = append(out, *p)
	}
	return &storage.PoiPage{Pois: out}, nil
}

func (m *mockPoiStore) UpdatePoi(_ context.Context, id uuid.UUID, patch storage.PoiPatch) (*poi.Poi, error) {
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	p, ok := m.pois[id]
	if !ok {
		return nil, storage.ErrPoiNotFound
	}
	if patch.Title != nil {
		p.Title = *patch.Title
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.TypeID != nil {
		p.TypeID = *patch.TypeID
	}
	if patch.Privacy != nil {
		p.Privacy = *patch.Privacy
	}
	cp := *p
	return &cp, nil
}

func (m *mockPoiStore) UpdatePosition(_ context.Context, id uuid.UUID, pos coord.Pixel) (*poi.Poi, error) {
	p, ok := m.pois[id]
	if !ok {
		return nil, storage.ErrPoiNotFound
	}
	p.Position = pos
	cp := *p
	return &cp, nil
}

func (m *mockPoiStore) SetScreenshots(_ context.Context, id uuid.UUID, shots []poi.Screenshot) error {
	if m.setShotsErr != nil {
		return m.setShotsErr
	}
	p, ok := m.pois[id]
	if !ok {
		return storage.ErrPoiNotFound
	}
	p.Screenshots = shots
	return nil
}

func (m *mockPoiStore) DeletePoi(_ context.Context, id uuid.UUID) ([]string, error) {
	if m.deleteErr != nil {
		return nil, m.deleteErr
	}
	p, ok := m.pois[id]
	if !ok {
		return nil, storage.ErrPoiNotFound
	}
	seen := make(map[string]bool)
	var urls []string
	for _, s := range p.Screenshots {
		for _, u := range []string{s.URL, s.OriginalURL} {
			if u != "" && !seen[u] {
				seen[u] = true
				urls = append(urls, u)
			}
		}
	}
	delete(m.pois, id)
	delete(m.links, id)
	return urls, nil
}

func (m *mockPoiStore) SetShares(_ context.Context, id uuid.UUID, users []uuid.UUID) error {
	p, ok := m.pois[id]
	if !ok {
		return storage.ErrPoiNotFound
	}
	p.SharedWith = users
	return nil
}

func (m *mockPoiStore) AddEntityLink(_ context.Context, link poi.EntityLink) error {
	m.links[link.PoiID] = append(m.links[link.PoiID], link)
	return nil
}

func (m *mockPoiStore) RemoveEntityLink(_ context.Context, poiID, entityID uuid.UUID) error {
	links := m.links[poiID]
	for i, l := range links {
		if l.EntityID == entityID {
			m.links[poiID] = append(links[:i], links[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *mockPoiStore) ListEntityLinks(_ context.Context, poiID uuid.UUID) ([]poi.EntityLink, error) {
	return m.links[poiID], nil
}

func (m *mockPoiStore) ListPoiTypes(_ context.Context) ([]poi.PoiType, error) {
	return m.types, nil
}

func (m *mockPoiStore) SetPoiTypeIcon(_ context.Context, id uuid.UUID, icon poi.IconRef) (*poi.PoiType, error) {
	for i := range m.types {
		if m.types[i].ID == id {
			m.types[i].Icon = icon
			t := m.types[i]
			return &t, nil
		}
	}
	return nil, storage.ErrTypeNotFound
}

func (m *mockPoiStore) CreatePoiType(_ context.Context, t *poi.PoiType) error {
	m.types = append(m.types, *t)
	return nil
}

// --- Mock blob.Store ---

type mockBlobStore struct {
	objects map[string][]byte // "bucket/path" keys
	deleted []string

	uploadErr error
	deleteErr error
}

func newMockBlobStore() *mockBlobStore {
	return &mockBlobStore{objects: make(map[string][]byte)}
}

func (m *mockBlobStore) Upload(_ context.Context, bucket, path string, data []byte) (string, error) {
	if m.uploadErr != nil {
		return "", m.uploadErr
	}
	m.objects[bucket+"/"+path] = data
	return m.PublicURL(bucket, path), nil
}

func (m *mockBlobStore) Get(_ context.Context, bucket, path string) ([]byte, error) {
	data, ok := m.objects[bucket+"/"+path]
	if !ok {
		return nil, blob.ErrNotFound
	}
	return data, nil
}

func (m *mockBlobStore) Delete(_ context.Context, bucket string, paths []string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	for _, p := range paths {
		m.deleted = append(m.deleted, bucket+"/"+p)
		delete(m.objects, bucket+"/"+p)
	}
	return nil
}

func (m *mockBlobStore) List(_ context.Context, bucket string) ([]blob.Object, error) {
	var objs []blob.Object
	for k := range m.objects {
		if strings.HasPrefix(k, bucket+"/") {
			objs = append(objs, blob.Object{Path: strings.TrimPrefix(k, bucket+"/")})
		}
	}
	return objs, nil
}

func (m *mockBlobStore) PublicURL(bucket, path string) string {
	return "https://atlas.test/files/" + bucket + "/" + path
}

// --- Mock SettingsStore ---

type mockSettingsStore struct {
	docs   map[string][]byte
	getErr error
	putErr error
}

func newMockSettingsStore() *mockSettingsStore {
	return &mockSettingsStore{docs: make(map[string][]byte)}
}

func (m *mockSettingsStore) GetSetting(_ context.Context, name string, dst any) (bool, error) {
	if m.getErr != nil {
		return false, m.getErr
	}
	raw, ok := m.docs[name]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dst)
}

func (m *mockSettingsStore) PutSetting(_ context.Context, name string, v any) error {
	if m.putErr != nil {
		return m.putErr
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	m.docs[name] = raw
	return nil
}

// --- Test server ---

type testEnv struct {
	pois   *mockPoiStore
	grid   *mockGridStore
	maps   *mockMapStore
	blobs  *mockBlobStore
	server http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		pois:  newMockPoiStore(),
		grid:  newMockGridStore(),
		maps:  newMockMapStore(),
		blobs: newMockBlobStore(),
	}
	svc := settings.NewService(newMockSettingsStore(), testLogger())
	env.server = NewServer(testLogger(), Stores{Pois: env.pois, Grid: env.grid, Maps: env.maps},
		env.blobs, svc, nil, "", 0)
	return env
}

func newTestServer(t *testing.T, backends map[string]Pinger) http.Handler {
	t.Helper()
	svc := settings.NewService(newMockSettingsStore(), testLogger())
	return NewServer(testLogger(), Stores{Pois: newMockPoiStore(), Grid: newMockGridStore(), Maps: newMockMapStore()},
		newMockBlobStore(), svc, backends, "", 0)
}

func (env *testEnv) do(t *testing.T, method, path, userID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	w := httptest.NewRecorder()
	env.server.ServeHTTP(w, req)
	return w
}

func seedPoi(env *testEnv, owner uuid.UUID, privacy poi.Privacy) *poi.Poi {
	p := &poi.Poi{
		ID:        uuid.New(),
		MapType:   poi.MapHaggaBasin,
		Position:  coord.Pixel{X: 1000, Y: 2000},
		Title:     "spice field",
		TypeID:    uuid.New(),
		Privacy:   privacy,
		CreatedBy: owner,
	}
	env.pois.pois[p.ID] = p
	return p
}

// --- CRUD ---

func TestCreatePoi_Success(t *testing.T) {
	env := newTestEnv(t)
	user := uuid.New()

	w := env.do(t, http.MethodPost, "/v1/pois", user.String(), CreatePoiBody{
		MapType: "hagga_basin",
		X:       1200,
		Y:       3400,
		Title:   "crashed ornithopter",
		TypeID:  uuid.New(),
		Privacy: "global",
	})

	if w.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want %d\nbody: %s", w.Code, http.StatusCreated, w.Body.String())
	}

	var resp poi.Poi
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.ID == uuid.Nil {
		t.Error("ID not assigned")
	}
	if resp.CreatedBy != user {
		t.Errorf("CreatedBy: got %s, want %s", resp.CreatedBy, user)
	}
	if resp.Title != "crashed ornithopter" {
		t.Errorf("Title: got %q", resp.Title)
	}
	if _, ok := env.pois.pois[resp.ID]; !ok {
		t.Error("poi not stored")
	}
}

func TestCreatePoi_OutOfBounds(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/v1/pois", uuid.NewString(), CreatePoiBody{
		MapType: "hagga_basin",
		X:       4001,
		Y:       0,
		Title:   "beyond the edge",
		TypeID:  uuid.New(),
		Privacy: "global",
	})

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("status: got %d, want 422\nbody: %s", w.Code, w.Body.String())
	}
}

func TestCreatePoi_DeepDesertNeedsCell(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/v1/pois", uuid.NewString(), CreatePoiBody{
		MapType: "deep_desert",
		X:       100,
		Y:       100,
		Title:   "shipwreck",
		TypeID:  uuid.New(),
		Privacy: "global",
	})

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("status: got %d, want 422\nbody: %s", w.Code, w.Body.String())
	}
}

func TestCreatePoi_BadUserHeader(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/v1/pois", "not-a-uuid", CreatePoiBody{
		MapType: "hagga_basin",
		X:       100,
		Y:       100,
		Title:   "somewhere",
		TypeID:  uuid.New(),
		Privacy: "global",
	})

	if w.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", w.Code)
	}
}

func TestGetPoi_Success(t *testing.T) {
	env := newTestEnv(t)
	owner := uuid.New()
	p := seedPoi(env, owner, poi.PrivacyGlobal)

	w := env.do(t, http.MethodGet, "/v1/pois/"+p.ID.String(), "", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d\nbody: %s", w.Code, w.Body.String())
	}
	var resp poi.Poi
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.ID != p.ID {
		t.Errorf("ID: got %s, want %s", resp.ID, p.ID)
	}
}

func TestGetPoi_PrivateReadsAsNotFound(t *testing.T) {
	env := newTestEnv(t)
	owner := uuid.New()
	p := seedPoi(env, owner, poi.PrivacyPrivate)

	w := env.do(t, http.MethodGet, "/v1/pois/"+p.ID.String(), uuid.NewString(), nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("stranger: got %d, want 404", w.Code)
	}

	w = env.do(t, http.MethodGet, "/v1/pois/"+p.ID.String(), owner.String(), nil)
	if w.Code != http.StatusOK {
		t.Errorf("owner: got %d, want 200\nbody: %s", w.Code, w.Body.String())
	}
}

func TestListPois_VisibilityAndFilter(t *testing.T) {
	env := newTestEnv(t)
	owner := uuid.New()
	seedPoi(env, owner, poi.PrivacyGlobal)
	seedPoi(env, owner, poi.PrivacyPrivate)

	w := env.do(t, http.MethodGet, "/v1/pois?map_type=hagga_basin", uuid.NewString(), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d\nbody: %s", w.Code, w.Body.String())
	}

	var resp PoiListResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Pois) != 1 {
		t.Errorf("pois: got %d, want 1 (private hidden)", len(resp.Pois))
	}
}

func TestListPois_UnknownMapType(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodGet, "/v1/pois?map_type=arrakeen", "", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", w.Code)
	}
}

func TestUpdatePoi_OwnerOnly(t *testing.T) {
	env := newTestEnv(t)
	owner := uuid.New()
	p := seedPoi(env, owner, poi.PrivacyGlobal)

	title := "renamed"
	w := env.do(t, http.MethodPatch, "/v1/pois/"+p.ID.String(), uuid.NewString(), UpdatePoiBody{Title: &title})
	if w.Code != http.StatusForbidden {
		t.Errorf("stranger: got %d, want 403\nbody: %s", w.Code, w.Body.String())
	}

	w = env.do(t, http.MethodPatch, "/v1/pois/"+p.ID.String(), owner.String(), UpdatePoiBody{Title: &title})
	if w.Code != http.StatusOK {
		t.Fatalf("owner: got %d\nbody: %s", w.Code, w.Body.String())
	}
	var resp poi.Poi
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Title != "renamed" {
		t.Errorf("Title: got %q", resp.Title)
	}
}

func TestUpdatePosition_OutOfBounds(t *testing.T) {
	env := newTestEnv(t)
	owner := uuid.New()
	p := seedPoi(env, owner, poi.PrivacyGlobal)

	w := env.do(t, http.MethodPut, "/v1/pois/"+p.ID.String()+"/position", owner.String(),
		map[string]float64{"x": -5, "y": 10})
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("status: got %d, want 422\nbody: %s", w.Code, w.Body.String())
	}
}

func TestUpdatePosition_Success(t *testing.T) {
	env := newTestEnv(t)
	owner := uuid.New()
	p := seedPoi(env, owner, poi.PrivacyGlobal)

	w := env.do(t, http.MethodPut, "/v1/pois/"+p.ID.String()+"/position", owner.String(),
		map[string]float64{"x": 3999, "y": 1})
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d\nbody: %s", w.Code, w.Body.String())
	}
	if got := env.pois.pois[p.ID].Position; got.X != 3999 || got.Y != 1 {
		t.Errorf("position: got %+v", got)
	}
}

func TestDeletePoi_RemovesArtifacts(t *testing.T) {
	env := newTestEnv(t)
	owner := uuid.New()
	p := seedPoi(env, owner, poi.PrivacyGlobal)
	p.Screenshots = []poi.Screenshot{{
		ID:          uuid.New(),
		URL:         env.blobs.PublicURL(blob.BucketScreenshots, "poi_cropped/a.webp"),
		OriginalURL: env.blobs.PublicURL(blob.BucketScreenshots, "poi_screenshots/a.webp"),
	}}

	w := env.do(t, http.MethodDelete, "/v1/pois/"+p.ID.String(), owner.String(), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d\nbody: %s", w.Code, w.Body.String())
	}
	if _, ok := env.pois.pois[p.ID]; ok {
		t.Error("poi still stored")
	}
	if len(env.blobs.deleted) != 2 {
		t.Errorf("deleted blobs: got %v, want both artifacts", env.blobs.deleted)
	}
}

func TestSetShares_RequiresSharedPrivacy(t *testing.T) {
	env := newTestEnv(t)
	owner := uuid.New()
	p := seedPoi(env, owner, poi.PrivacyGlobal)

	w := env.do(t, http.MethodPut, "/v1/pois/"+p.ID.String()+"/shares", owner.String(),
		map[string][]string{"user_ids": {uuid.NewString()}})
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("status: got %d, want 422\nbody: %s", w.Code, w.Body.String())
	}
}

func TestSetShares_Success(t *testing.T) {
	env := newTestEnv(t)
	owner := uuid.New()
	p := seedPoi(env, owner, poi.PrivacyShared)
	friend := uuid.New()

	w := env.do(t, http.MethodPut, "/v1/pois/"+p.ID.String()+"/shares", owner.String(),
		map[string][]string{"user_ids": {friend.String()}})
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d\nbody: %s", w.Code, w.Body.String())
	}
	shared := env.pois.pois[p.ID].SharedWith
	if len(shared) != 1 || shared[0] != friend {
		t.Errorf("SharedWith: got %v", shared)
	}
}

func TestEntityLinks_AddAndList(t *testing.T) {
	env := newTestEnv(t)
	owner := uuid.New()
	p := seedPoi(env, owner, poi.PrivacyGlobal)
	entity := uuid.New()

	w := env.do(t, http.MethodPost, "/v1/pois/"+p.ID.String()+"/links", owner.String(),
		map[string]string{"entity_id": entity.String(), "entity_type": "schematic"})
	if w.Code != http.StatusCreated {
		t.Fatalf("add: got %d\nbody: %s", w.Code, w.Body.String())
	}

	w = env.do(t, http.MethodGet, "/v1/pois/"+p.ID.String()+"/links", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list: got %d\nbody: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Links []poi.EntityLink `json:"links"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Links) != 1 || resp.Links[0].EntityID != entity {
		t.Errorf("links: got %+v", resp.Links)
	}
}

func TestAddEntityLink_BadType(t *testing.T) {
	env := newTestEnv(t)
	owner := uuid.New()
	p := seedPoi(env, owner, poi.PrivacyGlobal)

	w := env.do(t, http.MethodPost, "/v1/pois/"+p.ID.String()+"/links", owner.String(),
		map[string]string{"entity_id": uuid.NewString(), "entity_type": "vehicle"})
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("status: got %d, want 422", w.Code)
	}
}

func TestPoiTypes_CreateAndList(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/v1/poi-types", uuid.NewString(), map[string]any{
		"name":  "spice blow",
		"icon":  map[string]string{"kind": "glyph", "value": "S"},
		"color": "#e07000",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create: got %d\nbody: %s", w.Code, w.Body.String())
	}

	w = env.do(t, http.MethodGet, "/v1/poi-types", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list: got %d", w.Code)
	}
	var resp struct {
		Types []poi.PoiType `json:"types"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Types) != 1 || resp.Types[0].Name != "spice blow" {
		t.Errorf("types: got %+v", resp.Types)
	}
}

func TestCreatePoiType_BadIconKind(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/v1/poi-types", uuid.NewString(), map[string]any{
		"name":  "broken",
		"icon":  map[string]string{"kind": "sprite", "value": "x"},
		"color": "#fff",
	})
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("status: got %d, want 422", w.Code)
	}
}

func TestUploadPoiTypeIcon_Success(t *testing.T) {
	env := newTestEnv(t)
	typ := poi.PoiType{ID: uuid.New(), Name: "shipwreck", Icon: poi.IconRef{Kind: poi.IconGlyph, Value: "W"}}
	env.pois.types = append(env.pois.types, typ)

	w := env.doMultipart(t, http.MethodPut, "/v1/poi-types/"+typ.ID.String()+"/icon", uuid.NewString(),
		[]formFile{{field: "file", name: "wreck.png", data: testPNG(t, 256, 256)}}, nil)

	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d\nbody: %s", w.Code, w.Body.String())
	}
	var got poi.PoiType
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Icon.Kind != poi.IconURL {
		t.Errorf("icon kind: got %s, want %s", got.Icon.Kind, poi.IconURL)
	}
	if !strings.Contains(got.Icon.Value, "/"+blob.BucketIcons+"/") {
		t.Errorf("icon URL outside the icons bucket: %s", got.Icon.Value)
	}
	if env.pois.types[0].Icon != got.Icon {
		t.Errorf("icon not persisted: %+v", env.pois.types[0].Icon)
	}
	if len(env.blobs.objects) != 1 {
		t.Errorf("stored artifacts: got %d, want 1", len(env.blobs.objects))
	}
}

func TestUploadPoiTypeIcon_UnknownType(t *testing.T) {
	env := newTestEnv(t)

	w := env.doMultipart(t, http.MethodPut, "/v1/poi-types/"+uuid.NewString()+"/icon", uuid.NewString(),
		[]formFile{{field: "file", name: "x.png", data: testPNG(t, 32, 32)}}, nil)

	if w.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", w.Code)
	}
}

func TestUploadPoiTypeIcon_RejectsNonImage(t *testing.T) {
	env := newTestEnv(t)
	typ := poi.PoiType{ID: uuid.New(), Name: "cave", Icon: poi.IconRef{Kind: poi.IconGlyph, Value: "C"}}
	env.pois.types = append(env.pois.types, typ)

	w := env.doMultipart(t, http.MethodPut, "/v1/poi-types/"+typ.ID.String()+"/icon", uuid.NewString(),
		[]formFile{{field: "file", name: "notes.txt", data: []byte("plain text")}}, nil)

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("status: got %d, want 422", w.Code)
	}
}

func TestGetPoi_StoreFailure(t *testing.T) {
	env := newTestEnv(t)
	env.pois.getErr = context.DeadlineExceeded

	w := env.do(t, http.MethodGet, "/v1/pois/"+uuid.NewString(), "", nil)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status: got %d, want 500", w.Code)
	}
}
