package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	labeler "github.com/FrenchMajesty/comment-labeler"
	"github.com/FrenchMajesty/comment-labeler/adapters"
	"github.com/FrenchMajesty/comment-labeler/internal/config"
	"github.com/FrenchMajesty/comment-labeler/internal/metrics"
	"github.com/FrenchMajesty/comment-labeler/pkg/testutil"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = "1,great video\n2,terrible\n3,meh\n"

var sampleLabels = map[string]string{
	"great video": "positive",
	"terrible":    "negative",
	"meh":         "neutral",
}

func newTestServer(t *testing.T, client *testutil.MockClassifier, gotKey *string) (*gin.Engine, *config.Config) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.DefaultConfig()
	s := New(Options{
		Config:    cfg,
		Recorder:  metrics.NewRecorder(),
		NewClient: client.Factory(gotKey),
	})
	return s.Router(), cfg
}

type upload struct {
	fields   map[string]string
	filename string
	content  string
}

func labelRequest(t *testing.T, u upload) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range u.fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if u.filename != "" {
		fw, err := mw.CreateFormFile("file", u.filename)
		require.NoError(t, err)
		_, err = fw.Write([]byte(u.content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/label", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Error
}

func TestLabel_Success(t *testing.T) {
	client := testutil.StubClassifier(sampleLabels, "terrible")
	var gotKey string
	r, _ := newTestServer(t, client, &gotKey)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, labelRequest(t, upload{
		fields:   map[string]string{"api_key": "sk-form"},
		filename: "comments.csv",
		content:  sampleCSV,
	}))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "sk-form", gotKey)
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="sentiment_analysis_results.csv"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "3", w.Header().Get(headerRowsTotal))
	assert.Equal(t, "1", w.Header().Get(headerRowsFailed))
	assert.NotEmpty(t, w.Header().Get(headerRunID))

	require.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte{0xEF, 0xBB, 0xBF}))
	results, err := labeler.ParseCSV(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, []labeler.ClassificationResult{
		{ID: "1", Text: "great video", Label: "positive"},
		{ID: "2", Text: "terrible", Label: "Error"},
		{ID: "3", Text: "meh", Label: "neutral"},
	}, results)
}

func TestLabel_Workbook(t *testing.T) {
	client := testutil.StubClassifier(sampleLabels)
	r, _ := newTestServer(t, client, nil)

	data, err := testutil.Workbook([]any{1, "great video"}, []any{2, "meh"})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, labelRequest(t, upload{
		fields:   map[string]string{"api_key": "sk"},
		filename: "comments.xlsx",
		content:  string(data),
	}))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "2", w.Header().Get(headerRowsTotal))
	assert.Equal(t, "0", w.Header().Get(headerRowsFailed))
}

func TestLabel_APIKeyHeader(t *testing.T) {
	client := &testutil.MockClassifier{}
	var gotKey string
	r, _ := newTestServer(t, client, &gotKey)

	req := labelRequest(t, upload{filename: "c.csv", content: sampleCSV})
	req.Header.Set(apiKeyHeader, "sk-header")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "sk-header", gotKey)
}

func TestLabel_PromptHandling(t *testing.T) {
	t.Run("absent prompt uses the default template", func(t *testing.T) {
		client := &testutil.MockClassifier{}
		r, _ := newTestServer(t, client, nil)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, labelRequest(t, upload{
			fields:   map[string]string{"api_key": "sk"},
			filename: "c.csv",
			content:  "1,hello\n",
		}))

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, []string{labeler.Compose(labeler.DefaultTemplate, "hello")}, client.Prompts)
	})

	t.Run("custom prompt is used verbatim", func(t *testing.T) {
		client := &testutil.MockClassifier{}
		r, _ := newTestServer(t, client, nil)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, labelRequest(t, upload{
			fields:   map[string]string{"api_key": "sk", "prompt": "Is this spam?"},
			filename: "c.csv",
			content:  "1,hello\n",
		}))

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, []string{"Is this spam?\nText: hello"}, client.Prompts)
	})

	t.Run("blank prompt is rejected", func(t *testing.T) {
		client := &testutil.MockClassifier{}
		r, _ := newTestServer(t, client, nil)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, labelRequest(t, upload{
			fields:   map[string]string{"api_key": "sk", "prompt": "   "},
			filename: "c.csv",
			content:  "1,hello\n",
		}))

		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "missing required input: prompt", decodeError(t, w))
		assert.Equal(t, 0, client.Calls())
	})
}

func TestLabel_InputErrors(t *testing.T) {
	tests := []struct {
		name    string
		upload  upload
		wantErr string
	}{
		{
			name:    "missing api key",
			upload:  upload{filename: "c.csv", content: sampleCSV},
			wantErr: "missing required input: api key",
		},
		{
			name:    "missing file",
			upload:  upload{fields: map[string]string{"api_key": "sk"}},
			wantErr: "missing required input: file",
		},
		{
			name:    "single column",
			upload:  upload{fields: map[string]string{"api_key": "sk"}, filename: "c.csv", content: "1\n2\n"},
			wantErr: "file must have at least 2 columns [ID, Comment], found 1",
		},
		{
			name:    "unreadable workbook",
			upload:  upload{fields: map[string]string{"api_key": "sk"}, filename: "c.xlsx", content: "garbage"},
			wantErr: `failed to read "c.xlsx"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &testutil.MockClassifier{}
			r, _ := newTestServer(t, client, nil)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, labelRequest(t, tt.upload))

			require.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, decodeError(t, w), tt.wantErr)
			assert.Equal(t, 0, client.Calls())
		})
	}
}

func TestLabel_NotMultipart(t *testing.T) {
	r, _ := newTestServer(t, &testutil.MockClassifier{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/label", strings.NewReader(`{"api_key":"sk"}`))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "missing required input: api key", decodeError(t, w))
}

func TestLabel_UploadTooLarge(t *testing.T) {
	client := &testutil.MockClassifier{}
	r, cfg := newTestServer(t, client, nil)
	cfg.Server.MaxUploadBytes = 64

	w := httptest.NewRecorder()
	r.ServeHTTP(w, labelRequest(t, upload{
		fields:   map[string]string{"api_key": "sk"},
		filename: "c.csv",
		content:  strings.Repeat("1,hello\n", 100),
	}))

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Equal(t, 0, client.Calls())
}

func TestLabel_ClientConstructionFailure(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s := New(Options{
		NewClient: func(string, adapters.ClientOptions) (labeler.Classifier, error) {
			return nil, errors.New("dial failure")
		},
	})

	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, labelRequest(t, upload{
		fields:   map[string]string{"api_key": "sk"},
		filename: "c.csv",
		content:  sampleCSV,
	}))

	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, decodeError(t, w), "failed to create classification client")
}

func TestDefaultPrompt(t *testing.T) {
	r, _ := newTestServer(t, &testutil.MockClassifier{}, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/prompt/default", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var resp PromptResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, labeler.DefaultTemplate, resp.Template)
}

func TestHealthz(t *testing.T) {
	r, _ := newTestServer(t, &testutil.MockClassifier{}, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestMetricsAfterRun(t *testing.T) {
	r, _ := newTestServer(t, testutil.StubClassifier(sampleLabels, "meh"), nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, labelRequest(t, upload{
		fields:   map[string]string{"api_key": "sk"},
		filename: "c.csv",
		content:  sampleCSV,
	}))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `labeler_rows_processed_total{status="labeled"} 2`)
	assert.Contains(t, w.Body.String(), `labeler_rows_processed_total{status="failed"} 1`)
	assert.Contains(t, w.Body.String(), `labeler_runs_total{result="completed"} 1`)
}

func TestCORSPreflight(t *testing.T) {
	r, _ := newTestServer(t, &testutil.MockClassifier{}, nil)

	req := httptest.NewRequest(http.MethodOptions, "/v1/label", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSConfig_RestrictedOrigins(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Server.AllowedOrigins = []string{"https://app.example.com"}

	cc := New(Options{Config: cfg}).corsConfig()

	assert.False(t, cc.AllowAllOrigins)
	assert.Equal(t, []string{"https://app.example.com"}, cc.AllowOrigins)
}
