package contextengine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tempohq/tempo/internal/intent"
	"github.com/tempohq/tempo/internal/task"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// stubStore serves canned answers for the read paths the engine uses.
// Mutation methods are never called by the engine.
type stubStore struct {
	tasks    []task.Task
	overdue  []task.Task
	statsFn  func(since time.Time) (*task.Stats, error)
	listErr  error
	statsErr error
}

func (s *stubStore) ListTasks(ctx context.Context, f task.Filter) ([]task.Task, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	if f.DueBefore != nil {
		return s.overdue, nil
	}
	return s.tasks, nil
}

func (s *stubStore) Stats(ctx context.Context, since time.Time) (*task.Stats, error) {
	if s.statsErr != nil {
		return nil, s.statsErr
	}
	if s.statsFn != nil {
		return s.statsFn(since)
	}
	return &task.Stats{}, nil
}

func (s *stubStore) CreateTask(ctx context.Context, t task.Task) (*task.Task, error) {
	return nil, errors.New("not implemented")
}
func (s *stubStore) GetTask(ctx context.Context, id string) (*task.Task, error) {
	return nil, errors.New("not implemented")
}
func (s *stubStore) UpdateTask(ctx context.Context, id string, upd task.Update) (*task.Task, error) {
	return nil, errors.New("not implemented")
}
func (s *stubStore) ArchiveTask(ctx context.Context, id string) (*task.Task, error) {
	return nil, errors.New("not implemented")
}
func (s *stubStore) DeleteTask(ctx context.Context, id string) error {
	return errors.New("not implemented")
}
func (s *stubStore) StartSession(ctx context.Context, sess task.Session) (*task.Session, error) {
	return nil, errors.New("not implemented")
}
func (s *stubStore) StopSession(ctx context.Context) (*task.Session, error) {
	return nil, errors.New("not implemented")
}
func (s *stubStore) ActiveSession(ctx context.Context) (*task.Session, error) {
	return nil, nil
}
func (s *stubStore) ListSessions(ctx context.Context, since time.Time) ([]task.Session, error) {
	return nil, nil
}

type stubPatterns struct {
	mu        sync.Mutex
	patterns  []UserPattern
	err       error
	lastQuery string
}

func (s *stubPatterns) Recall(ctx context.Context, query string, limit int) ([]UserPattern, error) {
	s.mu.Lock()
	s.lastQuery = query
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	if len(s.patterns) > limit {
		return s.patterns[:limit], nil
	}
	return s.patterns, nil
}

func (s *stubPatterns) query() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastQuery
}

// Monday 09:00:05 UTC. Five seconds past a 15-minute bucket boundary, so
// TTL advances inside the tests stay within one bucket.
func testStart() time.Time {
	return time.Date(2025, 3, 10, 9, 0, 5, 0, time.UTC)
}

func baseAt(now time.Time) BaseContext {
	return BaseContext{Preferences: DefaultPreferences(), Timestamp: now}
}

func almost(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestBuildWithNilStoreDegradesToDefaults(t *testing.T) {
	clock := &fakeClock{t: testStart()}
	engine := NewEngine(nil, Options{Now: clock.Now})

	res := engine.Build(context.Background(), baseAt(clock.Now()), "how are my stats", nil)
	if res == nil {
		t.Fatal("expected a result")
	}
	if res.CacheHit {
		t.Error("first build should not be a cache hit")
	}
	if len(res.Warnings) != 1 || !strings.Contains(res.Warnings[0], "no task store configured") {
		t.Errorf("Warnings = %v, want one about the missing store", res.Warnings)
	}
	if !reflect.DeepEqual(res.DataSourcesUsed, []string{"environmental_factors"}) {
		t.Errorf("DataSourcesUsed = %v, want only environmental_factors", res.DataSourcesUsed)
	}
	if res.Context.Workflow.Phase != "idle" {
		t.Errorf("Phase = %q, want idle default", res.Context.Workflow.Phase)
	}
	if res.Context.Environment.TimeOfDay != "morning" {
		t.Errorf("TimeOfDay = %q, want morning", res.Context.Environment.TimeOfDay)
	}
}

func TestBuildContainsFacetFailures(t *testing.T) {
	clock := &fakeClock{t: testStart()}
	store := &stubStore{
		listErr:  errors.New("disk gone"),
		statsErr: errors.New("disk gone"),
	}
	engine := NewEngine(store, Options{Now: clock.Now})

	res := engine.Build(context.Background(), baseAt(clock.Now()), "what should I do next", nil)

	// Patterns and environment still succeed; the store-backed facets
	// fall back to defaults with one warning each.
	want := []string{"recent_patterns", "environmental_factors"}
	if !reflect.DeepEqual(res.DataSourcesUsed, want) {
		t.Errorf("DataSourcesUsed = %v, want %v", res.DataSourcesUsed, want)
	}
	if len(res.Warnings) != 3 {
		t.Fatalf("got %d warnings, want 3: %v", len(res.Warnings), res.Warnings)
	}
	for i, facet := range []string{"workflow_state", "productivity_metrics", "contextual_insights"} {
		if !strings.Contains(res.Warnings[i], facet) {
			t.Errorf("warning %d = %q, want it to name %s", i, res.Warnings[i], facet)
		}
	}
	if res.Context.Workflow.WorkloadIntensity != "none" {
		t.Errorf("WorkloadIntensity = %q, want default none", res.Context.Workflow.WorkloadIntensity)
	}
	if res.Context.Productivity.Trend != "steady" || res.Context.Productivity.EnergyEstimate != "medium" {
		t.Errorf("Productivity = %+v, want steady/medium defaults", res.Context.Productivity)
	}
}

func TestBuildPatternFailureKeepsOtherFacets(t *testing.T) {
	clock := &fakeClock{t: testStart()}
	store := &stubStore{}
	patterns := &stubPatterns{err: errors.New("vector store offline")}
	engine := NewEngine(store, Options{Now: clock.Now, Patterns: patterns})

	res := engine.Build(context.Background(), baseAt(clock.Now()), "anything", nil)

	want := []string{"workflow_state", "productivity_metrics", "contextual_insights", "environmental_factors"}
	if !reflect.DeepEqual(res.DataSourcesUsed, want) {
		t.Errorf("DataSourcesUsed = %v, want %v", res.DataSourcesUsed, want)
	}
	if len(res.Warnings) != 1 || !strings.Contains(res.Warnings[0], "recent_patterns") {
		t.Errorf("Warnings = %v, want one for recent_patterns", res.Warnings)
	}
	if len(res.Context.Patterns) != 0 {
		t.Errorf("Patterns = %v, want empty default", res.Context.Patterns)
	}
}

func TestBuildAllSourcesInOrder(t *testing.T) {
	clock := &fakeClock{t: testStart()}
	engine := NewEngine(&stubStore{}, Options{Now: clock.Now, Patterns: &stubPatterns{}})

	res := engine.Build(context.Background(), baseAt(clock.Now()), "hello", nil)
	want := []string{"workflow_state", "productivity_metrics", "recent_patterns", "contextual_insights", "environmental_factors"}
	if !reflect.DeepEqual(res.DataSourcesUsed, want) {
		t.Errorf("DataSourcesUsed = %v, want %v", res.DataSourcesUsed, want)
	}
	if len(res.Warnings) != 0 {
		t.Errorf("Warnings = %v, want none", res.Warnings)
	}
}

func TestBuildCacheHitReturnsIdenticalContext(t *testing.T) {
	clock := &fakeClock{t: testStart()}
	engine := NewEngine(&stubStore{}, Options{Now: clock.Now})
	base := baseAt(clock.Now())

	first := engine.Build(context.Background(), base, "plan my week ahead", nil)
	if first.CacheHit {
		t.Fatal("first build should miss")
	}

	clock.Advance(time.Minute)
	second := engine.Build(context.Background(), base, "plan my week ahead", nil)
	if !second.CacheHit {
		t.Fatal("second build within the TTL should hit")
	}

	a, err := json.Marshal(first.Context)
	if err != nil {
		t.Fatalf("marshaling first context: %v", err)
	}
	b, err := json.Marshal(second.Context)
	if err != nil {
		t.Fatalf("marshaling second context: %v", err)
	}
	if string(a) != string(b) {
		t.Errorf("cached context differs:\n%s\n%s", a, b)
	}
}

func TestBuildCacheHitRecomputesRelevance(t *testing.T) {
	clock := &fakeClock{t: testStart()}
	engine := NewEngine(&stubStore{}, Options{Now: clock.Now})
	base := baseAt(clock.Now())

	// Both messages share the first 50 runes, so they map to the same
	// cache key, but their intents differ.
	pad := strings.Repeat("background detail ", 3)
	first := engine.Build(context.Background(), base, pad+"show my productivity stats report", nil)
	second := engine.Build(context.Background(), base, pad+"create a task to fix the login bug", nil)

	if !second.CacheHit {
		t.Fatal("expected the second build to hit the cache")
	}
	if almost(first.Relevance.ProductivityMetrics, second.Relevance.ProductivityMetrics) {
		t.Errorf("relevance was not recomputed: both %v", first.Relevance.ProductivityMetrics)
	}
	wantIntent := intent.Extract(pad + "create a task to fix the login bug")
	want := Score(second.Context, wantIntent)
	if !reflect.DeepEqual(second.Relevance, want) {
		t.Errorf("Relevance = %+v, want fresh score %+v", second.Relevance, want)
	}
}

func TestBuildCacheExpiresAfterTTL(t *testing.T) {
	clock := &fakeClock{t: testStart()}
	engine := NewEngine(&stubStore{}, Options{Now: clock.Now})
	base := baseAt(clock.Now())

	engine.Build(context.Background(), base, "hello there", nil)

	clock.Advance(DefaultCacheTTL - time.Second)
	if res := engine.Build(context.Background(), base, "hello there", nil); !res.CacheHit {
		t.Error("expected a hit just inside the TTL")
	}

	clock.Advance(2 * time.Second)
	if res := engine.Build(context.Background(), base, "hello there", nil); res.CacheHit {
		t.Error("expected a miss just past the TTL")
	}
}

func TestCacheKeyComponents(t *testing.T) {
	now := testStart()
	base := BaseContext{}

	if cacheKey(base, "message", now) != cacheKey(base, "message", now.Add(time.Minute)) {
		t.Error("same bucket should produce the same key")
	}
	if cacheKey(base, "message", now) == cacheKey(base, "message", now.Add(16*time.Minute)) {
		t.Error("a later bucket should change the key")
	}

	pad := strings.Repeat("x", 50)
	if cacheKey(base, pad+"one", now) != cacheKey(base, pad+"two", now) {
		t.Error("messages sharing the first 50 runes should share a key")
	}
	if cacheKey(base, "one "+pad, now) == cacheKey(base, "two "+pad, now) {
		t.Error("messages differing inside the prefix should not share a key")
	}

	withTask := BaseContext{CurrentTask: &task.Task{ID: "t1"}}
	if cacheKey(base, "message", now) == cacheKey(withTask, "message", now) {
		t.Error("the current task should change the key")
	}
	withSession := BaseContext{ActiveSession: &task.Session{ID: "s1"}}
	if cacheKey(base, "message", now) == cacheKey(withSession, "message", now) {
		t.Error("the active session should change the key")
	}
}

func TestCacheEvictsBeyondBound(t *testing.T) {
	clock := &fakeClock{t: testStart()}
	cache := newContextCache(0, 0, clock.Now)

	for i := 0; i < 150; i++ {
		cache.put(fmt.Sprintf("key-%d", i), EnhancedContext{}, nil)
	}
	if cache.len() != DefaultCacheSize {
		t.Errorf("len = %d, want %d", cache.len(), DefaultCacheSize)
	}
	if _, ok := cache.get("key-0"); ok {
		t.Error("oldest entry should have been evicted")
	}
	if _, ok := cache.get("key-149"); !ok {
		t.Error("newest entry should still be present")
	}
}

func TestScoreWeightsSumToOne(t *testing.T) {
	sum := weightWorkflow + weightProductivity + weightPatterns + weightEnvironmental + weightInsights
	if !almost(sum, 1.0) {
		t.Errorf("facet weights sum to %v, want 1.0", sum)
	}
}

func TestScoreDeterministic(t *testing.T) {
	ec := EnhancedContext{
		Workflow:    WorkflowState{Phase: "executing"},
		Patterns:    []UserPattern{{Type: "peak_hours", Confidence: 0.8}},
		Insights:    []ContextualInsight{{Type: "streak"}},
		Environment: EnvironmentalFactors{IsWorkingHours: true},
	}
	it := intent.Intent{Category: intent.CategoryAnalysis, Urgency: intent.UrgencyHigh, Complexity: intent.ComplexityComplex}

	first := Score(ec, it)
	for i := 0; i < 20; i++ {
		if got := Score(ec, it); !reflect.DeepEqual(got, first) {
			t.Fatalf("iteration %d: %+v, want %+v", i, got, first)
		}
	}
}

func TestScoreAnalysisBoostsMetrics(t *testing.T) {
	ec := EnhancedContext{Environment: EnvironmentalFactors{IsWorkingHours: true}}
	it := intent.Intent{Category: intent.CategoryAnalysis, Urgency: intent.UrgencyMedium, Complexity: intent.ComplexitySimple}

	rs := Score(ec, it)
	if !almost(rs.ProductivityMetrics, 0.60) {
		t.Errorf("ProductivityMetrics = %v, want 0.60", rs.ProductivityMetrics)
	}
	if !almost(rs.RecentPatterns, 0.50) {
		t.Errorf("RecentPatterns = %v, want 0.50", rs.RecentPatterns)
	}
	if !almost(rs.ContextualInsights, 0.50) {
		t.Errorf("ContextualInsights = %v, want 0.50", rs.ContextualInsights)
	}
	if len(rs.Reasoning) == 0 {
		t.Error("expected reasoning entries for the applied boosts")
	}
}

func TestScoreCriticalFactors(t *testing.T) {
	ec := EnhancedContext{
		Workflow:    WorkflowState{Phase: "executing"},
		Environment: EnvironmentalFactors{IsWorkingHours: true},
	}
	it := intent.Intent{Category: intent.CategoryTaskManagement, Urgency: intent.UrgencyHigh, Complexity: intent.ComplexitySimple}

	rs := Score(ec, it)
	if !almost(rs.WorkflowState, 0.75) {
		t.Errorf("WorkflowState = %v, want 0.75", rs.WorkflowState)
	}
	if !reflect.DeepEqual(rs.CriticalFactors, []string{"workflow_state"}) {
		t.Errorf("CriticalFactors = %v, want [workflow_state]", rs.CriticalFactors)
	}
}

func TestScoreOverallIsWeightedSum(t *testing.T) {
	ec := EnhancedContext{Environment: EnvironmentalFactors{IsWorkingHours: true}}
	it := intent.Intent{Category: intent.CategoryGeneral, Urgency: intent.UrgencyMedium, Complexity: intent.ComplexitySimple}

	rs := Score(ec, it)
	want := rs.WorkflowState*weightWorkflow +
		rs.ProductivityMetrics*weightProductivity +
		rs.RecentPatterns*weightPatterns +
		rs.EnvironmentalFactors*weightEnvironmental +
		rs.ContextualInsights*weightInsights
	if !almost(rs.Overall, want) {
		t.Errorf("Overall = %v, want %v", rs.Overall, want)
	}
}

func TestClamp01(t *testing.T) {
	if got := clamp01(-0.5); got != 0 {
		t.Errorf("clamp01(-0.5) = %v, want 0", got)
	}
	if got := clamp01(1.5); got != 1 {
		t.Errorf("clamp01(1.5) = %v, want 1", got)
	}
	if got := clamp01(0.4); got != 0.4 {
		t.Errorf("clamp01(0.4) = %v, want 0.4", got)
	}
}

func TestBuildWorkflowStateFacet(t *testing.T) {
	now := testStart()
	due := now.Add(48 * time.Hour)
	far := now.Add(10 * 24 * time.Hour)
	store := &stubStore{
		tasks: []task.Task{
			{ID: "t1", Title: "soon", Status: task.StatusTodo, DueDate: &due},
			{ID: "t2", Title: "later", Status: task.StatusTodo, DueDate: &far},
			{ID: "t3", Title: "doing", Status: task.StatusInProgress},
			{ID: "t4", Title: "done", Status: task.StatusDone},
		},
		statsFn: func(since time.Time) (*task.Stats, error) {
			return &task.Stats{StreakDays: 2}, nil
		},
	}
	engine := NewEngine(store, Options{Now: func() time.Time { return now }})

	started := now.Add(-30 * time.Minute)
	base := BaseContext{
		ActiveSession: &task.Session{ID: "s1", Kind: task.SessionFocus, StartedAt: started},
		Preferences:   DefaultPreferences(),
	}

	ws, err := engine.buildWorkflowState(context.Background(), base, now)
	if err != nil {
		t.Fatalf("building workflow state: %v", err)
	}
	if ws.Phase != "executing" {
		t.Errorf("Phase = %q, want executing", ws.Phase)
	}
	if ws.FocusLevel != "deep" {
		t.Errorf("FocusLevel = %q, want deep after 30 minutes", ws.FocusLevel)
	}
	if ws.WorkloadIntensity != "light" {
		t.Errorf("WorkloadIntensity = %q, want light for 3 open tasks", ws.WorkloadIntensity)
	}
	if len(ws.UpcomingDeadlines) != 1 || ws.UpcomingDeadlines[0].TaskID != "t1" {
		t.Fatalf("UpcomingDeadlines = %+v, want only t1", ws.UpcomingDeadlines)
	}
	if ws.UpcomingDeadlines[0].DaysLeft != 2 {
		t.Errorf("DaysLeft = %d, want 2", ws.UpcomingDeadlines[0].DaysLeft)
	}
	if ws.StreakDays != 2 {
		t.Errorf("StreakDays = %d, want 2", ws.StreakDays)
	}
}

func TestBuildWorkflowStatePhases(t *testing.T) {
	now := testStart()
	engine := NewEngine(&stubStore{}, Options{Now: func() time.Time { return now }})

	ws, err := engine.buildWorkflowState(context.Background(), BaseContext{}, now)
	if err != nil {
		t.Fatalf("building workflow state: %v", err)
	}
	if ws.Phase != "idle" {
		t.Errorf("Phase = %q, want idle with no tasks and no session", ws.Phase)
	}

	onBreak := BaseContext{ActiveSession: &task.Session{Kind: task.SessionBreak, StartedAt: now}}
	ws, err = engine.buildWorkflowState(context.Background(), onBreak, now)
	if err != nil {
		t.Fatalf("building workflow state: %v", err)
	}
	if ws.Phase != "on_break" {
		t.Errorf("Phase = %q, want on_break", ws.Phase)
	}
}

func TestBuildProductivityMetricsTrend(t *testing.T) {
	now := testStart()
	// 5 completions this week against 3 the week before.
	store := &stubStore{
		statsFn: func(since time.Time) (*task.Stats, error) {
			if now.Sub(since) > 10*24*time.Hour {
				return &task.Stats{CompletedTasks: 8, CompletionRate: 0.6}, nil
			}
			return &task.Stats{CompletedTasks: 5, CompletionRate: 0.7, FocusMinutes: 60, BreakMinutes: 20}, nil
		},
	}
	engine := NewEngine(store, Options{Now: func() time.Time { return now }})

	pm, err := engine.buildProductivityMetrics(context.Background(), now)
	if err != nil {
		t.Fatalf("building metrics: %v", err)
	}
	if pm.Trend != "improving" {
		t.Errorf("Trend = %q, want improving", pm.Trend)
	}
	if !almost(pm.CompletionRate, 0.7) {
		t.Errorf("CompletionRate = %v, want 0.7", pm.CompletionRate)
	}
	if !almost(pm.FocusEfficiency, 0.75) {
		t.Errorf("FocusEfficiency = %v, want 0.75", pm.FocusEfficiency)
	}
	if pm.EnergyEstimate != "high" {
		t.Errorf("EnergyEstimate = %q, want high at 9am with little focus time", pm.EnergyEstimate)
	}
}

func TestEnergyEstimate(t *testing.T) {
	morning := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	afternoon := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
	night := time.Date(2025, 3, 10, 23, 0, 0, 0, time.UTC)

	cases := []struct {
		name  string
		now   time.Time
		focus float64
		want  string
	}{
		{"morning fresh", morning, 0, "high"},
		{"morning fatigued", morning, 200, "medium"},
		{"afternoon fresh", afternoon, 0, "medium"},
		{"afternoon fatigued", afternoon, 200, "low"},
		{"night fresh", night, 0, "low"},
		{"night fatigued", night, 200, "low"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := energyEstimate(tc.now, tc.focus); got != tc.want {
				t.Errorf("energyEstimate = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestBuildPatternsQuery(t *testing.T) {
	now := testStart()
	patterns := &stubPatterns{patterns: []UserPattern{{Type: "peak_hours", Confidence: 0.9}}}
	engine := NewEngine(&stubStore{}, Options{Now: func() time.Time { return now }, Patterns: patterns})

	got, err := engine.buildPatterns(context.Background(), "current message", []string{"older", "most recent"})
	if err != nil {
		t.Fatalf("building patterns: %v", err)
	}
	if len(got) != 1 || got[0].Type != "peak_hours" {
		t.Errorf("patterns = %+v, want the recalled one", got)
	}
	if want := "most recent\ncurrent message"; patterns.query() != want {
		t.Errorf("query = %q, want %q", patterns.query(), want)
	}
}

func TestBuildInsightsOrder(t *testing.T) {
	now := testStart()
	overdueAt := now.Add(-24 * time.Hour)
	store := &stubStore{
		overdue: []task.Task{
			{ID: "o1", Status: task.StatusTodo, DueDate: &overdueAt},
			{ID: "o2", Status: task.StatusDone, DueDate: &overdueAt},
		},
		statsFn: func(since time.Time) (*task.Stats, error) {
			return &task.Stats{StreakDays: 4, OpenTasks: 6, CompletionRate: 0.2}, nil
		},
	}
	engine := NewEngine(store, Options{Now: func() time.Time { return now }})

	base := BaseContext{
		ActiveSession: &task.Session{Kind: task.SessionFocus, StartedAt: now.Add(-2 * time.Hour)},
	}
	insights, err := engine.buildInsights(context.Background(), base, now)
	if err != nil {
		t.Fatalf("building insights: %v", err)
	}

	wantTypes := []string{"overdue_tasks", "long_session", "streak", "low_completion"}
	if len(insights) != len(wantTypes) {
		t.Fatalf("got %d insights, want %d: %+v", len(insights), len(wantTypes), insights)
	}
	for i, wt := range wantTypes {
		if insights[i].Type != wt {
			t.Errorf("insight %d = %q, want %q", i, insights[i].Type, wt)
		}
	}
	if !strings.Contains(insights[0].Message, "1 tasks") {
		t.Errorf("overdue message = %q, want a count of 1 open overdue task", insights[0].Message)
	}
}

func TestBuildEnvironment(t *testing.T) {
	prefs := DefaultPreferences()
	cases := []struct {
		name        string
		now         time.Time
		wantTime    string
		wantWorking bool
	}{
		{"monday morning", time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC), "morning", true},
		{"wednesday afternoon", time.Date(2025, 3, 12, 13, 0, 0, 0, time.UTC), "afternoon", true},
		{"wednesday evening", time.Date(2025, 3, 12, 18, 0, 0, 0, time.UTC), "evening", false},
		{"late night", time.Date(2025, 3, 12, 23, 30, 0, 0, time.UTC), "night", false},
		{"saturday morning", time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC), "morning", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := buildEnvironment(tc.now, prefs)
			if env.TimeOfDay != tc.wantTime {
				t.Errorf("TimeOfDay = %q, want %q", env.TimeOfDay, tc.wantTime)
			}
			if env.IsWorkingHours != tc.wantWorking {
				t.Errorf("IsWorkingHours = %v, want %v", env.IsWorkingHours, tc.wantWorking)
			}
			if env.DayOfWeek != tc.now.Weekday().String() {
				t.Errorf("DayOfWeek = %q, want %q", env.DayOfWeek, tc.now.Weekday().String())
			}
		})
	}
}

func setupRoutes(t *testing.T) chi.Router {
	t.Helper()
	clock := &fakeClock{t: testStart()}
	engine := NewEngine(&stubStore{}, Options{Now: clock.Now})
	r := chi.NewRouter()
	RegisterRoutes(r, engine, DefaultPreferences())
	return r
}

func TestSnapshotRoute(t *testing.T) {
	r := setupRoutes(t)

	req := httptest.NewRequest(http.MethodGet, "/api/context", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var result BuildResult
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("decoding snapshot: %v", err)
	}
	if len(result.DataSourcesUsed) == 0 {
		t.Error("snapshot lists no data sources")
	}
	if result.Context.Environment.DayOfWeek != "Monday" {
		t.Errorf("DayOfWeek = %q, want Monday", result.Context.Environment.DayOfWeek)
	}
}

func TestBuildRoute(t *testing.T) {
	r := setupRoutes(t)

	body := strings.NewReader(`{"message":"plan my day","history":["earlier question"]}`)
	req := httptest.NewRequest(http.MethodPost, "/api/context/build", body)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var result BuildResult
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("decoding result: %v", err)
	}
	if result.Relevance.Overall <= 0 {
		t.Errorf("Overall = %v, want a positive score", result.Relevance.Overall)
	}
}

func TestBuildRouteRejectsBadRequests(t *testing.T) {
	r := setupRoutes(t)

	cases := []struct {
		name string
		body string
	}{
		{"invalid json", `{"message":`},
		{"missing message", `{}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/context/build", strings.NewReader(tc.body))
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", w.Code)
			}
		})
	}
}

func TestIntentRoute(t *testing.T) {
	r := setupRoutes(t)

	req := httptest.NewRequest(http.MethodGet, "/api/context/intent?message=plan+my+week", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var it intent.Intent
	if err := json.NewDecoder(w.Body).Decode(&it); err != nil {
		t.Fatalf("decoding intent: %v", err)
	}
	if it.Category != intent.CategoryPlanning {
		t.Errorf("Category = %q, want %q", it.Category, intent.CategoryPlanning)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/context/intent", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing message: expected 400, got %d", w.Code)
	}
}
