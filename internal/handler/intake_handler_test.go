package handler_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bmedtech/startup-intake/internal/assembler"
	"github.com/bmedtech/startup-intake/internal/handler"
	"github.com/bmedtech/startup-intake/internal/questionnaire"
	"github.com/bmedtech/startup-intake/internal/router"
	"github.com/bmedtech/startup-intake/internal/service"
	"github.com/bmedtech/startup-intake/internal/storage"
	"github.com/bmedtech/startup-intake/internal/taxonomy"
	"github.com/bmedtech/startup-intake/internal/wizard"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	dir := t.TempDir()

	tax, err := taxonomy.Load("")
	require.NoError(t, err)
	res, err := questionnaire.Load("")
	require.NoError(t, err)

	asm := assembler.New(storage.DiskSink{}, res, dir, nil)
	logStore := storage.NewLogStore(filepath.Join(dir, "subs.jsonl"))
	db := storage.NewExcelStore(filepath.Join(dir, "db.xlsx"))

	machine := wizard.NewMachine(tax, res)
	sessions := service.NewSessionManager(machine)
	svc := service.NewIntakeService(tax, asm, logStore, db)

	r := router.New(
		handler.NewIntakeHandler(sessions, svc, tax),
		handler.NewDashboardHandler(svc, sessions),
	)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func decode(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func postJSON(t *testing.T, url string, payload any) *http.Response {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	return resp
}

func openSession(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	resp, err := http.Post(srv.URL+"/api/v1/sessions", "application/json", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	body := decode(t, resp)
	return body["sessionId"].(string)
}

func TestCreateSessionReturnsVocabulary(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Post(srv.URL+"/api/v1/sessions", "application/json", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	body := decode(t, resp)
	assert.Equal(t, "collecting_general", body["state"])
	niches := body["niches"].([]any)
	assert.Equal(t, taxonomy.UnlistedNiche, niches[len(niches)-1])
	assert.Len(t, body["categories"], 3)
}

func TestSubmitGeneralReturnsAllViolations(t *testing.T) {
	srv := newTestServer(t)
	id := openSession(t, srv)

	resp := postJSON(t, srv.URL+"/api/v1/sessions/"+id+"/general", map[string]any{
		"startup_name": "",
		"email":        "invalido",
		"niche":        "Telemedicina",
	})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	body := decode(t, resp)
	assert.Len(t, body["errors"], 2)
}

func TestWizardFullFlow(t *testing.T) {
	srv := newTestServer(t)
	id := openSession(t, srv)
	base := srv.URL + "/api/v1/sessions/" + id

	// Phase 1
	resp := postJSON(t, base+"/general", map[string]any{
		"startup_name": "Consulta Já",
		"email":        "time@consultaja.com.br",
		"niche":        "Telemedicina",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode(t, resp)
	assert.Equal(t, "Ferramentas de Gestão e Fluxo", body["category"])

	// Edit round trip keeps staged values
	resp, err := http.Post(base+"/edit", "application/json", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body = decode(t, resp)
	general := body["general"].(map[string]any)
	assert.Equal(t, "Consulta Já", general["startup_name"])

	resp = postJSON(t, base+"/general", map[string]any{
		"startup_name": "Consulta Já",
		"email":        "time@consultaja.com.br",
		"niche":        "Telemedicina",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp)

	// Category schema
	resp, err = http.Get(base + "/questions")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body = decode(t, resp)
	fields := body["fields"].([]any)
	require.NotEmpty(t, fields)
	assert.Equal(t, "integration_type", fields[0].(map[string]any)["key"])

	// Phase 2, multipart with one attachment
	var buf bytes.Buffer
	mp := multipart.NewWriter(&buf)
	require.NoError(t, mp.WriteField("checklist", `{"tech_anvisa_status":"Não se aplica","tech_lgpd":true}`))
	require.NoError(t, mp.WriteField("answers", `{"integration_type":"Padrão HL7 FHIR/v2"}`))
	fw, err := mp.CreateFormFile("doc_deck", "deck.pdf")
	require.NoError(t, err)
	_, err = fw.Write([]byte("%PDF-1.4 deck"))
	require.NoError(t, err)
	require.NoError(t, mp.Close())

	resp, err = http.Post(base+"/submit", mp.FormDataContentType(), &buf)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	body = decode(t, resp)
	assert.Equal(t, "submitted", body["state"])
	assert.Equal(t, false, body["partialSuccess"])
	assert.Contains(t, body["folderPath"], "consulta_já_")

	// Read models surfaces
	resp, err = http.Get(srv.URL + "/api/v1/dashboard")
	require.NoError(t, err)
	body = decode(t, resp)
	assert.Equal(t, float64(1), body["submissionCount"])

	resp, err = http.Get(srv.URL + "/api/v1/submissions?limit=5")
	require.NoError(t, err)
	body = decode(t, resp)
	assert.Equal(t, float64(1), body["count"])
}

func TestSubmitBeforeGeneralConflicts(t *testing.T) {
	srv := newTestServer(t)
	id := openSession(t, srv)

	var buf bytes.Buffer
	mp := multipart.NewWriter(&buf)
	require.NoError(t, mp.WriteField("answers", `{}`))
	require.NoError(t, mp.Close())

	resp, err := http.Post(srv.URL+"/api/v1/sessions/"+id+"/submit", mp.FormDataContentType(), &buf)
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()
}

func TestUnknownSessionIs404(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/v1/sessions/nao-existe")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}
