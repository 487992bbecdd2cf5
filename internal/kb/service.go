package kb

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/openai/openai-go"
)

type Config struct {
	DataDir    string
	CachePath  string
	EmbedModel string
	ChatModel  string
	TopK       int
}

type indexedChunk struct {
	Doc    string
	Text   string
	Vector []float32
}

// Service answers free-text clinical queries from a semantically indexed
// guideline corpus. Built once at process start and injected everywhere a
// query is needed; the index lives in memory with a sqlite-backed embedding
// cache.
type Service struct {
	openai openai.Client
	cfg    Config
	chunks []indexedChunk
}

const embedBatchSize = 64

// New builds the index eagerly. A missing or empty guidelines directory is a
// fatal construction error.
func New(ctx context.Context, cfg Config, client openai.Client) (*Service, error) {
	if cfg.TopK <= 0 {
		cfg.TopK = 4
	}

	info, err := os.Stat(cfg.DataDir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("guidelines directory not found: %s", cfg.DataDir)
	}

	var paths []string
	err = filepath.WalkDir(cfg.DataDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".md", ".txt":
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan guidelines: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no guideline documents found in %s", cfg.DataDir)
	}
	sort.Strings(paths)

	store, err := OpenStore(cfg.CachePath)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	svc := &Service{openai: client, cfg: cfg}
	start := time.Now()
	reused := 0

	for _, path := range paths {
		body, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		sum := sha256.Sum256(body)
		hash := hex.EncodeToString(sum[:])

		cachedHash, found, err := store.DocHash(path)
		if err != nil {
			return nil, err
		}
		if found && cachedHash == hash {
			texts, vectors, err := store.Chunks(path)
			if err != nil {
				return nil, err
			}
			svc.addChunks(path, texts, vectors)
			reused++
			continue
		}

		texts := splitChunks(string(body))
		vectors, err := svc.embed(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embed %s: %w", path, err)
		}
		if err := store.ReplaceDoc(path, hash, texts, vectors); err != nil {
			return nil, fmt.Errorf("cache %s: %w", path, err)
		}
		svc.addChunks(path, texts, vectors)
	}

	slog.InfoContext(ctx, "knowledge index ready",
		"documents", len(paths),
		"cached", reused,
		"chunks", len(svc.chunks),
		"duration_ms", time.Since(start).Milliseconds())

	return svc, nil
}

func (s *Service) addChunks(doc string, texts []string, vectors [][]float32) {
	for i := range texts {
		s.chunks = append(s.chunks, indexedChunk{Doc: doc, Text: texts[i], Vector: vectors[i]})
	}
}

// Answer embeds the query, retrieves the top-k passages and synthesizes a
// prose answer over them.
func (s *Service) Answer(ctx context.Context, query string) (string, error) {
	vectors, err := s.embed(ctx, []string{query})
	if err != nil {
		return "", fmt.Errorf("embed query: %w", err)
	}
	passages := s.topK(vectors[0])

	var excerpts strings.Builder
	for i, p := range passages {
		fmt.Fprintf(&excerpts, "[%d] (%s)\n%s\n\n", i+1, filepath.Base(p.Doc), p.Text)
	}

	resp, err := s.openai.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(s.cfg.ChatModel),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(
				"You are a clinical triage assistant. Answer the question using ONLY " +
					"the guideline excerpts provided. Be concise and state the urgency " +
					"wording used by the guidelines."),
			openai.UserMessage("Guideline excerpts:\n\n" + excerpts.String() + "Question: " + query),
		},
	})
	if err != nil {
		return "", fmt.Errorf("synthesize answer: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in answer response")
	}
	return resp.Choices[0].Message.Content, nil
}

func (s *Service) topK(query []float32) []indexedChunk {
	type scored struct {
		chunk indexedChunk
		score float64
	}
	ranked := make([]scored, 0, len(s.chunks))
	for _, c := range s.chunks {
		ranked = append(ranked, scored{chunk: c, score: cosine(query, c.Vector)})
	}
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	k := s.cfg.TopK
	if k > len(ranked) {
		k = len(ranked)
	}
	out := make([]indexedChunk, 0, k)
	for _, r := range ranked[:k] {
		out = append(out, r.chunk)
	}
	return out
}

func (s *Service) embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		resp, err := s.openai.Embeddings.New(ctx, openai.EmbeddingNewParams{
			Model: openai.EmbeddingModel(s.cfg.EmbedModel),
			Input: openai.EmbeddingNewParamsInputUnion{
				OfArrayOfStrings: texts[start:end],
			},
		})
		if err != nil {
			return nil, err
		}
		if len(resp.Data) != end-start {
			return nil, fmt.Errorf("embedding count mismatch: want %d, got %d", end-start, len(resp.Data))
		}
		for _, d := range resp.Data {
			vec := make([]float32, len(d.Embedding))
			for i, v := range d.Embedding {
				vec[i] = float32(v)
			}
			vectors = append(vectors, vec)
		}
	}
	return vectors, nil
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
