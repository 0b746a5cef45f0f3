package app

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/armory/internal/common"
	"github.com/bobmcallan/armory/internal/models"
	armsync "github.com/bobmcallan/armory/internal/services/sync"
	"github.com/bobmcallan/armory/internal/storage"
)

type fakeSync struct {
	forceErr  error
	gotRegion string
	gotNS     []string
	instances []models.ExpansionInstances
}

func (f *fakeSync) Instances(ctx context.Context) ([]models.ExpansionInstances, error) {
	return f.instances, nil
}

func (f *fakeSync) ForceUpdate(ctx context.Context, userID int64) (*armsync.Report, error) {
	if f.forceErr != nil {
		return nil, f.forceErr
	}
	return &armsync.Report{Job: "force_update", Processed: 2, Updated: 2}, nil
}

func (f *fakeSync) FetchCharacters(ctx context.Context, userID int64, region string, namespaces []string) ([]models.CharacterIdentity, error) {
	f.gotRegion = region
	f.gotNS = namespaces
	return []models.CharacterIdentity{{ID: 1, Name: "Foo", Namespace: "retail"}}, nil
}

type fakeCharacters struct {
	byUser map[int64][]*models.EnrichedCharacter
}

func (f *fakeCharacters) GetCharacter(ctx context.Context, id int64) (*models.EnrichedCharacter, error) {
	return nil, fmt.Errorf("character %d: %w", id, storage.ErrNotFound)
}

func (f *fakeCharacters) ListCharactersByUser(ctx context.Context, userID int64) ([]*models.EnrichedCharacter, error) {
	return f.byUser[userID], nil
}

func serve(t *testing.T, svc *fakeSync, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	chars := &fakeCharacters{byUser: map[int64][]*models.EnrichedCharacter{
		7: {{CharacterIdentity: models.CharacterIdentity{ID: 1, Name: "Foo"}, UserID: 7}},
	}}
	mux := BuildMux(svc, chars, common.NewSilentLogger())
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestHealth(t *testing.T) {
	rec := serve(t, &fakeSync{}, http.MethodGet, "/api/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = serve(t, &fakeSync{}, http.MethodPost, "/api/health")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestVersion(t *testing.T) {
	rec := serve(t, &fakeSync{}, http.MethodGet, "/api/version")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"version"`)
}

func TestMetricsEndpoint(t *testing.T) {
	rec := serve(t, &fakeSync{}, http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestInstancesEndpoint(t *testing.T) {
	svc := &fakeSync{instances: []models.ExpansionInstances{{Expansion: "Dragonflight", Raids: []models.Instance{{ID: 1, Name: "Vault"}}}}}
	rec := serve(t, svc, http.MethodGet, "/api/instances")
	require.Equal(t, http.StatusOK, rec.Code)

	var got []models.ExpansionInstances
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "Vault", got[0].Raids[0].Name)
}

func TestUserCharacters(t *testing.T) {
	rec := serve(t, &fakeSync{}, http.MethodGet, "/api/users/7/characters")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name":"Foo"`)

	rec = serve(t, &fakeSync{}, http.MethodGet, "/api/users/8/characters")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))

	rec = serve(t, &fakeSync{}, http.MethodGet, "/api/users/abc/characters")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAccountCharacters_PassesQuery(t *testing.T) {
	svc := &fakeSync{}
	rec := serve(t, svc, http.MethodGet, "/api/users/7/account?region=us&namespaces=retail,classic")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "us", svc.gotRegion)
	assert.Equal(t, []string{"retail", "classic"}, svc.gotNS)
}

func TestForceUpdate_StatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"ok", nil, http.StatusOK},
		{"cooldown", armsync.ErrCooldown, http.StatusTooManyRequests},
		{"no characters", armsync.ErrNoCharacters, http.StatusNotFound},
		{"no profile", fmt.Errorf("profile 7: %w", storage.ErrNotFound), http.StatusNotFound},
		{"other", fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(t, &fakeSync{forceErr: tt.err}, http.MethodPost, "/api/users/7/update")
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}
