//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/THL3VPN/piaic71-hackathon1-v1/internal/api/handlers"
	"github.com/THL3VPN/piaic71-hackathon1-v1/internal/domain"
	"github.com/THL3VPN/piaic71-hackathon1-v1/internal/repository"
	"github.com/THL3VPN/piaic71-hackathon1-v1/internal/server"
	"github.com/THL3VPN/piaic71-hackathon1-v1/internal/service"
	"github.com/THL3VPN/piaic71-hackathon1-v1/internal/storage"
	"github.com/THL3VPN/piaic71-hackathon1-v1/internal/testutil"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap/zaptest"
)

const testDims = 8

// Questions the stub embedder knows. Anything else embeds orthogonally to the corpus.
const (
	questionNodes  = "What is a ROS 2 node?"
	questionTopics = "How do nodes exchange messages?"
	questionOff    = "Who won the 1998 football World Cup?"
)

var questionVectors = map[string][]float32{
	questionNodes:  testutil.UnitVector(testDims, 0),
	questionTopics: testutil.UnitVector(testDims, 1),
}

// Corpus is a small slice of the book, one chunk per axis.
var corpus = []testutil.SeededChunk{
	{
		Chunk: domain.Chunk{
			ID:         "ros2-nodes-0",
			Text:       "A node is a process that performs computation. Each node in ROS 2 should be responsible for a single module.",
			SourcePath: "docs/module-1/nodes.md",
			Heading:    "Nodes",
			ChunkIndex: 0,
		},
		Embedding: testutil.UnitVector(testDims, 0),
	},
	{
		Chunk: domain.Chunk{
			ID:         "ros2-topics-0",
			Text:       "Nodes exchange messages over topics. A publisher sends messages on a topic and every subscriber receives them.",
			SourcePath: "docs/module-1/topics.md",
			Heading:    "Topics",
			ChunkIndex: 0,
		},
		Embedding: testutil.UnitVector(testDims, 1),
	},
	{
		Chunk: domain.Chunk{
			ID:         "isaac-sim-0",
			Text:       "Isaac Sim renders photorealistic scenes for synthetic data generation.",
			SourcePath: "docs/module-3/isaac.md",
			Heading:    "Isaac Sim",
			ChunkIndex: 0,
		},
		Embedding: testutil.UnitVector(testDims, 2),
	},
}

type stubEmbedder struct {
	fail bool
}

func (e *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e.fail {
		return nil, domain.NewDependencyError(domain.DependencyEmbedder, errors.New("connection refused"))
	}
	if v, ok := questionVectors[strings.TrimSpace(text)]; ok {
		return v, nil
	}
	return testutil.UnitVector(testDims, testDims-1), nil
}

// echoGenerator answers with the first sentence of the first context fragment, which
// always passes the grounding check.
type echoGenerator struct{}

func (echoGenerator) Generate(ctx context.Context, systemInstructions, contextText, question string) (string, error) {
	for _, line := range strings.Split(contextText, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "[") {
			continue
		}
		if i := strings.Index(line, ". "); i > 0 {
			return line[:i+1], nil
		}
		return line, nil
	}
	return "", errors.New("empty context")
}

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T          *testing.T
	Ctx        context.Context
	PostgresC  *testutil.PostgresContainer
	RustFSC    *testutil.RustFSContainer
	Pool       *pgxpool.Pool
	S3Client   *storage.S3Client
	Server     *httptest.Server
	BinaryDir  string
	HTTPClient *http.Client
}

// SetupE2EEnv starts Postgres, seeds the corpus and serves the full router.
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")
	if err := testutil.SeedChunks(ctx, pool, corpus...); err != nil {
		t.Fatalf("failed to seed corpus: %v", err)
	}

	env := &E2ETestEnv{
		T:          t,
		Ctx:        ctx,
		PostgresC:  pgC,
		Pool:       pool,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
	env.Server = env.newServer(&stubEmbedder{}, repository.NewChunkRepository(pool))
	return env
}

// WithS3ChunkStore starts RustFS, uploads the corpus and returns a server reading chunks from it.
func (e *E2ETestEnv) WithS3ChunkStore(prefix string) *httptest.Server {
	e.RustFSC = testutil.NewRustFSContainer(e.Ctx, e.T)

	s3Client, err := storage.NewS3Client(e.Ctx, storage.S3ClientConfig{
		Endpoint:        e.RustFSC.Endpoint(),
		Region:          "us-east-1",
		AccessKeyID:     "rustfsadmin",
		SecretAccessKey: "rustfsadmin",
		Bucket:          "book-chunks",
		UsePathStyle:    true,
	})
	if err != nil {
		e.T.Fatalf("failed to create S3 client: %v", err)
	}
	if err := s3Client.EnsureBucket(e.Ctx); err != nil {
		e.T.Fatalf("failed to create bucket: %v", err)
	}
	e.S3Client = s3Client

	store := storage.NewS3ChunkStore(s3Client, prefix)
	for _, s := range corpus {
		if err := store.Put(e.Ctx, s.Chunk); err != nil {
			e.T.Fatalf("failed to upload chunk %s: %v", s.Chunk.ID, err)
		}
	}

	srv := e.newServer(&stubEmbedder{}, store)
	e.T.Cleanup(srv.Close)
	return srv
}

// WithFailingEmbedder returns a server whose embedder is unreachable.
func (e *E2ETestEnv) WithFailingEmbedder() *httptest.Server {
	srv := e.newServer(&stubEmbedder{fail: true}, repository.NewChunkRepository(e.Pool))
	e.T.Cleanup(srv.Close)
	return srv
}

func (e *E2ETestEnv) newServer(embedder service.Embedder, store service.ChunkStore) *httptest.Server {
	logger := zaptest.NewLogger(e.T)

	cfg := service.DefaultAnswerConfig()
	cfg.SimilarityThreshold = 0.5

	queryLogs := repository.NewQueryLogRepository(e.Pool)
	answers := service.NewAnswerService(embedder, repository.NewVectorIndexRepository(e.Pool, cfg.MaxTopK), store, echoGenerator{}, queryLogs, cfg, logger)
	chat := service.NewChatService(repository.NewChatRepository(e.Pool), repository.NewTxRunner(e.Pool), answers, 10, logger)

	router := server.NewRouter(server.RouterConfig{
		RAGHandler:    handlers.NewRAGHandler(answers, service.NewStatsService(queryLogs)),
		ChatHandler:   handlers.NewChatHandler(chat),
		HealthHandler: handlers.NewHealthHandler(map[string]handlers.Pinger{"postgres": e.Pool}, logger),
		Logger:        logger,
	})
	return httptest.NewServer(router)
}

// Cleanup releases all resources
func (e *E2ETestEnv) Cleanup() {
	if e.Server != nil {
		e.Server.Close()
	}
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.RustFSC != nil {
		e.RustFSC.Terminate(e.Ctx)
	}
	if e.PostgresC != nil {
		e.PostgresC.Terminate(e.Ctx)
	}
	if e.BinaryDir != "" {
		os.RemoveAll(e.BinaryDir)
	}
}

// Request sends a JSON request to baseURL and returns the status and raw body.
func (e *E2ETestEnv) Request(baseURL, method, path string, body interface{}) (int, []byte) {
	e.T.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			e.T.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(e.Ctx, method, baseURL+path, reader)
	if err != nil {
		e.T.Fatalf("failed to create request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		e.T.Fatalf("request %s %s failed: %v", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		e.T.Fatalf("failed to read response: %v", err)
	}
	return resp.StatusCode, data
}

// DecodeJSON unmarshals a response body or fails the test.
func (e *E2ETestEnv) DecodeJSON(data []byte, v interface{}) {
	e.T.Helper()
	if err := json.Unmarshal(data, v); err != nil {
		e.T.Fatalf("failed to decode %s: %v", string(data), err)
	}
}

// BuildCLI builds the bookrag binary into a temp dir.
func (e *E2ETestEnv) BuildCLI() {
	tmpDir, err := os.MkdirTemp("", "bookrag-e2e-*")
	if err != nil {
		e.T.Fatalf("failed to create temp dir: %v", err)
	}
	e.BinaryDir = tmpDir

	cmd := exec.Command("go", "build", "-o", filepath.Join(tmpDir, "bookrag"), "./cmd/bookrag")
	cmd.Dir = "../.."
	if out, err := cmd.CombinedOutput(); err != nil {
		e.T.Fatalf("failed to build bookrag: %v\n%s", err, out)
	}
}

// RunCLI runs bookrag against the env server with an isolated config dir.
func (e *E2ETestEnv) RunCLI(configHome string, args ...string) (string, error) {
	args = append(args, "--api-url", e.Server.URL)
	cmd := exec.Command(filepath.Join(e.BinaryDir, "bookrag"), args...)
	cmd.Env = append(os.Environ(),
		"XDG_CONFIG_HOME="+configHome,
		"HOME="+configHome,
		"BOOKRAG_API_URL=",
		"NO_COLOR=1",
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	if err != nil {
		return stdout.String(), fmt.Errorf("%w: %s", err, stderr.String())
	}
	return stdout.String(), nil
}
