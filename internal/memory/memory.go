// Package memory stores learned user behavior patterns and past
// interactions in a local vector database and recalls the ones relevant
// to a conversation.
package memory

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"time"

	chromem "github.com/philippgille/chromem-go"

	"github.com/tempohq/tempo/internal/contextengine"
	"github.com/tempohq/tempo/internal/embeddings"
	"github.com/tempohq/tempo/internal/task"
)

const (
	patternsCollection     = "patterns"
	interactionsCollection = "interactions"
	persistFile            = "memory.gob.gz"
)

// typeRecurringRequest marks memories recalled from past conversation
// turns rather than derived behavior patterns.
const typeRecurringRequest = "recurring_request"

// minSimilarity filters out recalls that only match by accident.
const minSimilarity = 0.2

// replyClip bounds how much of an assistant reply gets stored with an
// interaction. The message carries the recall signal.
const replyClip = 400

// Store implements long-term memory over chromem-go. It keeps two
// collections: derived behavior patterns and past conversation turns.
// It satisfies contextengine.PatternSource.
type Store struct {
	db           *chromem.DB
	patterns     *chromem.Collection
	interactions *chromem.Collection
	embedFunc    chromem.EmbeddingFunc
}

// NewStore creates an in-memory store.
func NewStore(embedder embeddings.Embedder) (*Store, error) {
	db := chromem.NewDB()
	ef := embeddings.ToChromemFunc(embedder)

	pats, err := db.GetOrCreateCollection(patternsCollection, nil, ef)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}
	inter, err := db.GetOrCreateCollection(interactionsCollection, nil, ef)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}

	return &Store{db: db, patterns: pats, interactions: inter, embedFunc: ef}, nil
}

// Record stores a pattern. The ID derives from type and description, so
// recording the same observation again updates it in place.
func (s *Store) Record(ctx context.Context, p contextengine.UserPattern, observedAt time.Time) error {
	if p.Type == "" || p.Description == "" {
		return fmt.Errorf("recording pattern: type and description are required")
	}

	doc := chromem.Document{
		ID:      patternID(p),
		Content: p.Description,
		Metadata: map[string]string{
			"type":        p.Type,
			"confidence":  strconv.FormatFloat(p.Confidence, 'f', 4, 64),
			"observed_at": observedAt.UTC().Format(time.RFC3339),
		},
	}
	return s.patterns.AddDocuments(ctx, []chromem.Document{doc}, 1)
}

// RecordInteraction remembers a completed conversation turn so similar
// future requests can be recognized. The ID derives from the message, so
// repeating a request refreshes the stored turn instead of piling up
// duplicates.
func (s *Store) RecordInteraction(ctx context.Context, message, reply, category string, at time.Time) error {
	if message == "" {
		return fmt.Errorf("recording interaction: message is required")
	}

	doc := chromem.Document{
		ID:      interactionID(message),
		Content: message,
		Metadata: map[string]string{
			"type":        typeRecurringRequest,
			"reply":       clip(reply, replyClip),
			"category":    category,
			"observed_at": at.UTC().Format(time.RFC3339),
		},
	}
	return s.interactions.AddDocuments(ctx, []chromem.Document{doc}, 1)
}

// Recall returns up to limit memories relevant to the query, strongest
// first. Behavior patterns carry their recorded confidence; past turns
// come back as recurring_request memories whose confidence is the
// similarity to the query. Weak matches are dropped.
func (s *Store) Recall(ctx context.Context, query string, limit int) ([]contextengine.UserPattern, error) {
	if limit <= 0 {
		limit = 3
	}

	out := []contextengine.UserPattern{}

	results, err := queryCollection(ctx, s.patterns, query, limit)
	if err != nil {
		return nil, fmt.Errorf("recalling patterns: %w", err)
	}
	for _, r := range results {
		confidence, _ := strconv.ParseFloat(r.Metadata["confidence"], 64)
		out = append(out, contextengine.UserPattern{
			Type:        r.Metadata["type"],
			Confidence:  confidence,
			Description: r.Content,
		})
	}

	results, err = queryCollection(ctx, s.interactions, query, limit)
	if err != nil {
		return nil, fmt.Errorf("recalling interactions: %w", err)
	}
	for _, r := range results {
		desc := fmt.Sprintf("Similar past request: %q", r.Content)
		if cat := r.Metadata["category"]; cat != "" {
			desc = fmt.Sprintf("Similar past request (%s): %q", cat, r.Content)
		}
		out = append(out, contextengine.UserPattern{
			Type:        typeRecurringRequest,
			Confidence:  float64(r.Similarity),
			Description: desc,
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Confidence > out[j].Confidence })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// queryCollection runs a similarity query and drops weak matches.
func queryCollection(ctx context.Context, col *chromem.Collection, query string, limit int) ([]chromem.Result, error) {
	count := col.Count()
	if count == 0 {
		return nil, nil
	}
	// chromem-go requires nResults <= collection size.
	if limit > count {
		limit = count
	}

	results, err := col.Query(ctx, query, limit, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem query: %w", err)
	}

	kept := make([]chromem.Result, 0, len(results))
	for _, r := range results {
		if r.Similarity < minSimilarity {
			continue
		}
		kept = append(kept, r)
	}
	return kept, nil
}

// Forget removes all memories of the given type.
func (s *Store) Forget(ctx context.Context, patternType string) error {
	if patternType == typeRecurringRequest {
		return s.interactions.Delete(ctx, map[string]string{"type": patternType}, nil)
	}
	return s.patterns.Delete(ctx, map[string]string{"type": patternType}, nil)
}

// Count returns the number of stored memories, patterns and
// interactions alike.
func (s *Store) Count() int {
	return s.patterns.Count() + s.interactions.Count()
}

// Persist saves the store to dir.
func (s *Store) Persist(ctx context.Context, dir string) error {
	return s.db.ExportToFile(dir+"/"+persistFile, true, "")
}

// Load restores the store from dir.
func (s *Store) Load(ctx context.Context, dir string) error {
	if err := s.db.ImportFromFile(dir+"/"+persistFile, ""); err != nil {
		return fmt.Errorf("import from file: %w", err)
	}

	// Re-acquire collection references after import.
	pats := s.db.GetCollection(patternsCollection, s.embedFunc)
	if pats == nil {
		return fmt.Errorf("collection %q not found after import", patternsCollection)
	}
	inter := s.db.GetCollection(interactionsCollection, s.embedFunc)
	if inter == nil {
		return fmt.Errorf("collection %q not found after import", interactionsCollection)
	}
	s.patterns = pats
	s.interactions = inter
	return nil
}

func patternID(p contextengine.UserPattern) string {
	sum := sha256.Sum256(fmt.Appendf(nil, "%s|%s", p.Type, p.Description))
	return hex.EncodeToString(sum[:16])
}

func interactionID(message string) string {
	sum := sha256.Sum256(fmt.Appendf(nil, "interaction|%s", message))
	return hex.EncodeToString(sum[:16])
}

func clip(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}

// learnWindow bounds how far back Learn looks.
const learnWindow = 30 * 24 * time.Hour

// Learn derives behavior patterns from recent work history and records
// them. Patterns need a minimum amount of evidence before they are
// stored.
func (s *Store) Learn(ctx context.Context, store task.Store, now time.Time) (int, error) {
	sessions, err := store.ListSessions(ctx, now.Add(-learnWindow))
	if err != nil {
		return 0, fmt.Errorf("listing sessions: %w", err)
	}

	recorded := 0
	for _, p := range derivePatterns(sessions, now) {
		if err := s.Record(ctx, p, now); err != nil {
			return recorded, err
		}
		recorded++
	}
	return recorded, nil
}

// derivePatterns turns raw session history into pattern observations.
func derivePatterns(sessions []task.Session, now time.Time) []contextengine.UserPattern {
	var patterns []contextengine.UserPattern

	focus := make([]task.Session, 0, len(sessions))
	for _, sess := range sessions {
		if sess.Kind == task.SessionFocus {
			focus = append(focus, sess)
		}
	}
	if len(focus) < 3 {
		return patterns
	}

	// Peak hours: the start hour that holds the most focus sessions.
	byHour := map[int]int{}
	for _, sess := range focus {
		byHour[sess.StartedAt.Hour()]++
	}
	peakHour, peakCount := 0, 0
	hours := make([]int, 0, len(byHour))
	for h := range byHour {
		hours = append(hours, h)
	}
	sort.Ints(hours)
	for _, h := range hours {
		if byHour[h] > peakCount {
			peakHour, peakCount = h, byHour[h]
		}
	}
	if peakCount >= 2 {
		patterns = append(patterns, contextengine.UserPattern{
			Type:        "peak_hours",
			Confidence:  float64(peakCount) / float64(len(focus)),
			Description: fmt.Sprintf("Focus sessions usually start around %02d:00", peakHour),
		})
	}

	// Typical session length.
	var totalMinutes float64
	ended := 0
	for _, sess := range focus {
		if sess.EndedAt == nil {
			continue
		}
		totalMinutes += sess.Duration(now).Minutes()
		ended++
	}
	if ended >= 3 {
		avg := totalMinutes / float64(ended)
		patterns = append(patterns, contextengine.UserPattern{
			Type:        "session_length",
			Confidence:  0.6,
			Description: fmt.Sprintf("Focus sessions typically run about %.0f minutes", avg),
		})
	}

	return patterns
}
