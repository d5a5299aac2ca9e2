//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/veldt-labs/papyrus/internal/api/handlers"
	"github.com/veldt-labs/papyrus/internal/extract"
	"github.com/veldt-labs/papyrus/internal/jobs"
	"github.com/veldt-labs/papyrus/internal/openai"
	"github.com/veldt-labs/papyrus/internal/repository"
	"github.com/veldt-labs/papyrus/internal/server"
	"github.com/veldt-labs/papyrus/internal/service"
	"github.com/veldt-labs/papyrus/internal/storage"
	"github.com/veldt-labs/papyrus/internal/testutil"
)

const embeddingDim = 1536

// stubAIClient provides deterministic embeddings, image summaries and
// answers so the pipeline runs end to end without a model provider.
type stubAIClient struct {
	embeddingCalls atomic.Int64
}

// embed hashes the text into a stable unit vector so identical text
// always lands on identical embeddings.
func embed(text string) []float32 {
	sum := sha256.Sum256([]byte(text))
	axis := binary.BigEndian.Uint32(sum[:4]) % embeddingDim
	v := make([]float32, embeddingDim)
	v[axis] = 1
	return v
}

func (c *stubAIClient) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	c.embeddingCalls.Add(1)
	return embed(text), nil
}

func (c *stubAIClient) GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	c.embeddingCalls.Add(1)
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = embed(text)
	}
	return out, nil
}

func (c *stubAIClient) SummarizeImage(ctx context.Context, image []byte, mimeType, instruction string) (string, error) {
	return fmt.Sprintf("a figure of %d bytes", len(image)), nil
}

func (c *stubAIClient) GenerateAnswer(ctx context.Context, systemPrompt string, history []openai.Message, userPrompt string) (string, error) {
	return fmt.Sprintf("answer based on %d prior messages", len(history)), nil
}

// extractorElement mirrors the partition API wire format.
type extractorElement struct {
	Type     string `json:"type"`
	Text     string `json:"text"`
	Metadata struct {
		PageNumber  int    `json:"page_number"`
		ImageBase64 string `json:"image_base64"`
		ImageMime   string `json:"image_mime_type"`
	} `json:"metadata"`
}

func textEl(page int, kind, text string) extractorElement {
	var e extractorElement
	e.Type = kind
	e.Text = text
	e.Metadata.PageNumber = page
	return e
}

// newExtractorServer serves a fixed partition result for every upload.
func newExtractorServer(t *testing.T, elements []extractorElement) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/general/v0/general" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(elements); err != nil {
			t.Errorf("failed to encode extractor response: %v", err)
		}
	}))
}

// TestEnv holds the wired pipeline plus the HTTP server under test.
type TestEnv struct {
	T         *testing.T
	Ctx       context.Context
	PostgresC *testutil.PostgresContainer
	Pool      *pgxpool.Pool
	AI        *stubAIClient
	Worker    *jobs.Worker
	Server    *httptest.Server
	Client    *http.Client
}

// SetupTestEnv starts postgres, wires the full pipeline against stub
// collaborators and serves the API over an in-process HTTP server.
func SetupTestEnv(t *testing.T, extractorURL string) *TestEnv {
	ctx := context.Background()

	pc := testutil.NewPostgresContainer(ctx, t)
	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")

	blobs, err := storage.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create blob store: %v", err)
	}

	docRepo := repository.NewDocumentRepository(pool)
	chunkRepo := repository.NewChunkRepository(pool)
	sessionRepo := repository.NewSessionRepository(pool)

	ai := &stubAIClient{}
	extractor := extract.NewClient(extract.Config{BaseURL: extractorURL}, blobs)

	ingestor := service.NewIngestor(
		docRepo,
		blobs,
		extractor,
		service.NewNormalizer(),
		service.NewSummarizer(ai, blobs),
		service.NewAggregator(),
		service.NewIndexer(ai, chunkRepo),
		service.DefaultIngestorConfig(),
	)

	retriever := service.NewRetriever(ai, chunkRepo)
	synthesizer := service.NewSynthesizer(ai)
	chatSvc := service.NewChatService(sessionRepo, docRepo, retriever, synthesizer)

	worker := jobs.NewWorker(jobs.NewIngestionWorker(docRepo, ingestor, 5), 100*time.Millisecond)
	go worker.Start(ctx)

	router := server.NewRouter(server.RouterConfig{
		DocumentHandler: handlers.NewDocumentHandler(ingestor, service.NewDocumentService(docRepo, blobs)),
		ChatHandler:     handlers.NewChatHandler(chatSvc),
	})

	srv := httptest.NewServer(router)

	return &TestEnv{
		T:         t,
		Ctx:       ctx,
		PostgresC: pc,
		Pool:      pool,
		AI:        ai,
		Worker:    worker,
		Server:    srv,
		Client:    &http.Client{Timeout: 30 * time.Second},
	}
}

// Cleanup releases all resources
func (e *TestEnv) Cleanup() {
	e.Worker.Stop()
	e.Server.Close()
	e.Pool.Close()
	e.PostgresC.Terminate(e.Ctx)
}

type apiResponse struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
}

// Upload posts a file through the multipart upload endpoint.
func (e *TestEnv) Upload(filename string, content []byte) (int, apiResponse) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		e.T.Fatalf("failed to build upload: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		e.T.Fatalf("failed to build upload: %v", err)
	}
	if err := writer.Close(); err != nil {
		e.T.Fatalf("failed to build upload: %v", err)
	}

	req, err := http.NewRequest(http.MethodPost, e.Server.URL+"/documents", &body)
	if err != nil {
		e.T.Fatalf("failed to build upload request: %v", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	return e.do(req)
}

// GetJSON performs a GET and decodes the response envelope.
func (e *TestEnv) GetJSON(path string) (int, apiResponse) {
	req, err := http.NewRequest(http.MethodGet, e.Server.URL+path, nil)
	if err != nil {
		e.T.Fatalf("failed to build request: %v", err)
	}
	return e.do(req)
}

// PostJSON performs a POST with a JSON body.
func (e *TestEnv) PostJSON(path string, payload any) (int, apiResponse) {
	raw, err := json.Marshal(payload)
	if err != nil {
		e.T.Fatalf("failed to marshal payload: %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, e.Server.URL+path, bytes.NewReader(raw))
	if err != nil {
		e.T.Fatalf("failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return e.do(req)
}

func (e *TestEnv) do(req *http.Request) (int, apiResponse) {
	resp, err := e.Client.Do(req)
	if err != nil {
		e.T.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		e.T.Fatalf("failed to read response: %v", err)
	}

	var envelope apiResponse
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &envelope); err != nil {
			e.T.Fatalf("failed to decode response %q: %v", raw, err)
		}
	}
	return resp.StatusCode, envelope
}

// WaitForStatus polls the document endpoint until the wanted status or
// the deadline.
func (e *TestEnv) WaitForStatus(documentID, want string, timeout time.Duration) handlers.DocumentResponse {
	deadline := time.Now().Add(timeout)
	var doc handlers.DocumentResponse
	for time.Now().Before(deadline) {
		code, resp := e.GetJSON("/documents/" + documentID)
		if code == http.StatusOK {
			if err := json.Unmarshal(resp.Data, &doc); err != nil {
				e.T.Fatalf("failed to decode document: %v", err)
			}
			if doc.Status == want {
				return doc
			}
			if doc.Status == "failed" && want != "failed" {
				e.T.Fatalf("document failed during processing: %s", doc.Error)
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	e.T.Fatalf("document %s never reached status %s (last: %s)", documentID, want, doc.Status)
	return doc
}
