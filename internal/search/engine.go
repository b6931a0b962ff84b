// Package search ranks chunks of the current generation against free-text
// queries. Scoring is lexical TF-IDF with cosine similarity and fully
// deterministic ordering, so identical queries against an unchanged
// generation always return the same hits in the same order.
package search

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/maic-lab/ragcore/internal/chunkstore"
	rcerrors "github.com/maic-lab/ragcore/internal/errors"
	"github.com/maic-lab/ragcore/internal/readiness"
)

// Hit is one ranked retrieval result.
type Hit struct {
	ChunkID    string            `json:"chunk_id"`
	DocumentID string            `json:"document_id"`
	Text       string            `json:"text"`
	Score      float64           `json:"score"`
	Position   int               `json:"position"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// Corpus is the prepared, generation-scoped scoring state: tokenized
// chunks plus document frequencies. IDF is always computed from the
// generation the chunks came from, never from a mix of generations.
type Corpus struct {
	Generation string

	chunks    []chunkstore.Chunk
	termFreqs []map[string]int
	docFreq   map[string]int
}

// Size returns the number of chunks in the corpus.
func (c *Corpus) Size() int {
	return len(c.chunks)
}

// idf is the smoothed inverse document frequency. The +1 smoothing keeps
// every weight positive, including terms present in all chunks.
func (c *Corpus) idf(term string) float64 {
	return math.Log(float64(len(c.chunks)+1)/float64(c.docFreq[term]+1)) + 1
}

// buildCorpus tokenizes every chunk once.
func buildCorpus(generation string, chunks []chunkstore.Chunk) *Corpus {
	c := &Corpus{
		Generation: generation,
		chunks:     chunks,
		termFreqs:  make([]map[string]int, len(chunks)),
		docFreq:    make(map[string]int),
	}
	for i, ch := range chunks {
		freq := TermFrequencies(Tokenize(ch.Text))
		c.termFreqs[i] = freq
		for term := range freq {
			c.docFreq[term]++
		}
	}
	return c
}

// Scorer ranks a corpus against query tokens. Implementations must be
// deterministic for a fixed corpus and query.
type Scorer interface {
	Name() string
	Rank(queryTokens []string, corpus *Corpus) []Hit
}

// TFIDFScorer scores with sublinear term frequency and cosine similarity.
type TFIDFScorer struct{}

// Name implements Scorer.
func (TFIDFScorer) Name() string { return "tfidf" }

// Rank implements Scorer. Chunks sharing no term with the query score zero
// and are dropped. Ties break by score, then chunk position, then chunk ID.
func (TFIDFScorer) Rank(queryTokens []string, corpus *Corpus) []Hit {
	queryFreq := TermFrequencies(queryTokens)

	queryWeights := make(map[string]float64, len(queryFreq))
	var queryNorm float64
	for term, f := range queryFreq {
		w := (1 + math.Log(float64(f))) * corpus.idf(term)
		queryWeights[term] = w
		queryNorm += w * w
	}
	queryNorm = math.Sqrt(queryNorm)
	if queryNorm == 0 {
		return nil
	}

	var hits []Hit
	for i, ch := range corpus.chunks {
		freq := corpus.termFreqs[i]

		var dot, docNorm float64
		for term, f := range freq {
			w := (1 + math.Log(float64(f))) * corpus.idf(term)
			docNorm += w * w
			if qw, ok := queryWeights[term]; ok {
				dot += qw * w
			}
		}
		if dot == 0 {
			continue
		}

		hits = append(hits, Hit{
			ChunkID:    ch.ID,
			DocumentID: ch.DocumentID,
			Text:       ch.Text,
			Score:      dot / (queryNorm * math.Sqrt(docNorm)),
			Position:   ch.Position,
			Metadata:   ch.Metadata,
		})
	}

	sort.Slice(hits, func(a, b int) bool {
		if hits[a].Score != hits[b].Score {
			return hits[a].Score > hits[b].Score
		}
		if hits[a].Position != hits[b].Position {
			return hits[a].Position < hits[b].Position
		}
		return hits[a].ChunkID < hits[b].ChunkID
	})
	return hits
}

// corpusCacheSize bounds how many generations' corpora stay resident.
// Normally only the current one is live; a second slot covers the window
// during a publish.
const corpusCacheSize = 2

// Engine answers queries against the current generation. It refuses to
// serve unless the store is READY.
type Engine struct {
	store   *chunkstore.Store
	tracker *readiness.Tracker
	scorer  Scorer

	mu      sync.Mutex
	corpora *lru.Cache[string, *Corpus]
}

// NewEngine creates a search engine over the given store. A nil scorer
// defaults to TF-IDF.
func NewEngine(store *chunkstore.Store, tracker *readiness.Tracker, scorer Scorer) (*Engine, error) {
	if scorer == nil {
		scorer = TFIDFScorer{}
	}
	corpora, err := lru.New[string, *Corpus](corpusCacheSize)
	if err != nil {
		return nil, err
	}
	return &Engine{store: store, tracker: tracker, scorer: scorer, corpora: corpora}, nil
}

// Search returns the topK best-matching chunks for query. It errors with
// NOT_READY unless the store is READY, and with INVALID_INPUT on an empty
// query or non-positive topK. topK larger than the corpus is clamped.
func (e *Engine) Search(ctx context.Context, query string, topK int) ([]Hit, error) {
	if strings.TrimSpace(query) == "" {
		return nil, rcerrors.New(rcerrors.ErrCodeEmptyQuery, "query is empty", nil)
	}
	if topK <= 0 {
		return nil, rcerrors.InputError("topK must be positive")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	status := e.tracker.Status()
	if status.State != chunkstore.StateReady {
		return nil, rcerrors.NotReady(string(status.State))
	}

	corpus, err := e.corpus(status.Generation)
	if err != nil {
		return nil, err
	}

	tokens := Tokenize(query)
	if len(tokens) == 0 {
		return nil, rcerrors.New(rcerrors.ErrCodeEmptyQuery, "query has no searchable tokens", nil)
	}

	hits := e.scorer.Rank(tokens, corpus)
	if topK > len(hits) {
		topK = len(hits)
	}
	hits = hits[:topK]

	slog.Debug("search_completed",
		slog.String("generation", corpus.Generation),
		slog.String("scorer", e.scorer.Name()),
		slog.Int("hits", len(hits)))
	return hits, nil
}

// corpus returns the cached corpus for a generation, loading and
// tokenizing the chunk file on a cold cache.
func (e *Engine) corpus(generation string) (*Corpus, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if cached, ok := e.corpora.Get(generation); ok {
		return cached, nil
	}

	chunks, err := e.store.LoadChunks(generation)
	if err != nil {
		return nil, err
	}
	corpus := buildCorpus(generation, chunks)
	e.corpora.Add(generation, corpus)

	slog.Info("search_corpus_loaded",
		slog.String("generation", generation),
		slog.Int("chunks", corpus.Size()),
		slog.Int("terms", len(corpus.docFreq)))
	return corpus, nil
}
