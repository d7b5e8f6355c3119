package storageapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"verifica/internal/documents"
	"verifica/internal/platform/config"
	"verifica/internal/verification"
)

type listRequest struct {
	Prefix string `json:"prefix"`
	Limit  int    `json:"limit"`
	Offset int    `json:"offset"`
}

type fakeObject struct {
	Name      string    `json:"name"`
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Metadata  struct {
		Size     int64  `json:"size"`
		MimeType string `json:"mimetype"`
	} `json:"metadata"`
}

func file(name string, createdAt time.Time, size int64) fakeObject {
	obj := fakeObject{Name: name, ID: "obj-" + name, CreatedAt: createdAt}
	obj.Metadata.Size = size
	obj.Metadata.MimeType = "application/pdf"
	return obj
}

func folder(name string) fakeObject {
	return fakeObject{Name: name}
}

// fakeStorage serves the object-list endpoint from an in-memory listing
// keyed by prefix.
func fakeStorage(t *testing.T, listings map[string][]fakeObject) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/storage/v1/object/list/provider-documents", r.URL.Path)
		require.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		var req listRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		objects := listings[req.Prefix]
		if req.Offset >= len(objects) {
			objects = nil
		} else {
			objects = objects[req.Offset:]
		}
		if req.Limit > 0 && req.Limit < len(objects) {
			objects = objects[:req.Limit]
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(objects)
	}))
}

func newTestClient(baseURL string) *Client {
	return NewClient(config.StorageAPIConfig{
		BaseURL: baseURL,
		Token:   "test-token",
		Timeout: 5 * time.Second,
	})
}

func TestListProvidersWithDocuments(t *testing.T) {
	uploaded := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	srv := fakeStorage(t, map[string][]fakeObject{
		"": {folder("prov-1"), folder("prov-2"), file("readme.txt", uploaded, 10)},
		"prov-1/": {
			file("cpf_rg-frente.pdf", uploaded.Add(time.Hour), 1024),
			file("cpf_rg-verso.pdf", uploaded.Add(2*time.Hour), 2048),
			file("comprovante_residencia-conta.pdf", uploaded, 512),
			file("selfie.png", uploaded, 99),
		},
		"prov-2/": {
			file("cnh.pdf", uploaded, 4096),
		},
	})
	defer srv.Close()

	client := newTestClient(srv.URL)
	providers, err := client.ListProvidersWithDocuments(context.Background())
	require.NoError(t, err)
	require.Len(t, providers, 2)

	byID := make(map[string]documents.ProviderDocuments, len(providers))
	for _, p := range providers {
		byID[p.ProviderID] = p
	}

	t.Run("groups files by document type", func(t *testing.T) {
		p := byID["prov-1"]
		assert.Len(t, p.Documents[verification.DocumentTypeCPFRG], 2)
		assert.Len(t, p.Documents[verification.DocumentTypeComprovanteResidencia], 1)
	})

	t.Run("ignores files outside the naming convention", func(t *testing.T) {
		total := 0
		for _, docs := range byID["prov-1"].Documents {
			total += len(docs)
		}
		assert.Equal(t, 3, total)
	})

	t.Run("earliest upload wins", func(t *testing.T) {
		assert.Equal(t, uploaded, byID["prov-1"].UploadedAt)
	})

	t.Run("documents start pending with a download URL", func(t *testing.T) {
		doc := byID["prov-2"].Documents[verification.DocumentTypeCNH][0]
		assert.Equal(t, verification.StatusPending, doc.Status)
		assert.Equal(t, srv.URL+"/storage/v1/object/public/provider-documents/prov-2/cnh.pdf", doc.URL)
		assert.Equal(t, int64(4096), doc.SizeBytes)
	})

	t.Run("document IDs are stable across listings", func(t *testing.T) {
		again, err := client.ListProvidersWithDocuments(context.Background())
		require.NoError(t, err)
		byIDAgain := make(map[string]documents.ProviderDocuments, len(again))
		for _, p := range again {
			byIDAgain[p.ProviderID] = p
		}
		assert.Equal(t,
			byID["prov-2"].Documents[verification.DocumentTypeCNH][0].ID,
			byIDAgain["prov-2"].Documents[verification.DocumentTypeCNH][0].ID,
		)
	})
}

func TestListProvidersSkipsEmptyFolders(t *testing.T) {
	srv := fakeStorage(t, map[string][]fakeObject{
		"":            {folder("prov-empty")},
		"prov-empty/": nil,
	})
	defer srv.Close()

	providers, err := newTestClient(srv.URL).ListProvidersWithDocuments(context.Background())
	require.NoError(t, err)
	assert.Empty(t, providers)
}

func TestListProvidersUnavailable(t *testing.T) {
	t.Run("server error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "backend down", http.StatusBadGateway)
		}))
		defer srv.Close()

		_, err := newTestClient(srv.URL).ListProvidersWithDocuments(context.Background())
		assert.ErrorIs(t, err, documents.ErrStoreUnavailable)
	})

	t.Run("unreachable host", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
		srv.Close()

		_, err := newTestClient(srv.URL).ListProvidersWithDocuments(context.Background())
		assert.ErrorIs(t, err, documents.ErrStoreUnavailable)
	})
}

func TestHasDocuments(t *testing.T) {
	uploaded := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	srv := fakeStorage(t, map[string][]fakeObject{
		"prov-1/": {file("cnh.pdf", uploaded, 10)},
		"prov-2/": nil,
	})
	defer srv.Close()

	client := newTestClient(srv.URL)

	has, err := client.HasDocuments(context.Background(), "prov-1")
	require.NoError(t, err)
	assert.True(t, has)

	has, err = client.HasDocuments(context.Background(), "prov-2")
	require.NoError(t, err)
	assert.False(t, has)
}

func TestTypeFromName(t *testing.T) {
	cases := map[string]verification.DocumentType{
		"cpf_rg-frente.pdf":                verification.DocumentTypeCPFRG,
		"cpf_rg.pdf":                       verification.DocumentTypeCPFRG,
		"cnh-2026.jpeg":                    verification.DocumentTypeCNH,
		"comprovante_residencia-conta.pdf": verification.DocumentTypeComprovanteResidencia,
		"certificado-nr35.pdf":             verification.DocumentTypeCertificado,
		"selfie.png":                       "",
		"cpf_rgzinho.pdf":                  "",
	}
	for name, want := range cases {
		assert.Equal(t, want, typeFromName(name), name)
	}
}
