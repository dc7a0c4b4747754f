package answer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hyperjump/nyaya/internal/confidence"
	"github.com/hyperjump/nyaya/internal/config"
	"github.com/hyperjump/nyaya/internal/intent"
	"github.com/hyperjump/nyaya/internal/llm"
	"github.com/hyperjump/nyaya/internal/models"
	"github.com/hyperjump/nyaya/internal/proof"
	"github.com/hyperjump/nyaya/internal/ranking"
	"github.com/hyperjump/nyaya/internal/retrieval"
	"github.com/hyperjump/nyaya/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const bnsAct = "Bharatiya Nyaya Sanhita (BNS)"

type fakeStore struct {
	hits    []store.Hit
	records map[string][]store.Record
	err     error
	queries []string
}

func (f *fakeStore) Search(_ context.Context, q string, _ int) ([]store.Hit, error) {
	f.queries = append(f.queries, q)
	return f.hits, f.err
}

func (f *fakeStore) ExactLookup(_ context.Context, filter store.Filter) ([]store.Record, error) {
	return f.records[filter["section"]], f.err
}

func (f *fakeStore) Add(context.Context, []store.Record) error     { return nil }
func (f *fakeStore) Delete(context.Context, string) (int64, error) { return 0, nil }
func (f *fakeStore) Count(context.Context) (int64, error)          { return 0, nil }
func (f *fakeStore) Close() error                                  { return nil }
func (f *fakeStore) Replace(context.Context, string, []store.Record) error {
	return nil
}

type fakeGenerator struct {
	text    string
	err     error
	prompts []string
}

func (g *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.prompts = append(g.prompts, prompt)
	return g.text, g.err
}

func (g *fakeGenerator) Name() string { return "fake" }

type fixture struct {
	store *fakeStore
	gen   *fakeGenerator
	cfg   *config.Config
}

func newFixture() *fixture {
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	return &fixture{
		store: &fakeStore{},
		gen:   &fakeGenerator{text: "Cheating under section 318 is punishable with imprisonment."},
		cfg:   cfg,
	}
}

func (f *fixture) orchestrator() *Orchestrator {
	lex := f.cfg.Lexicon
	ranker := ranking.NewRanker(&ranking.RankingConfig{FinalK: f.cfg.Retrieval.FinalK}, lex.PunishmentAnchors)
	return NewOrchestrator(
		intent.NewClassifier(lex),
		retrieval.NewRetriever(f.store, ranker, f.cfg.Retrieval),
		confidence.NewScorer(f.cfg.Confidence, lex.ConfidenceTerms),
		proof.NewBuilder(f.cfg.Generation.SnippetChars),
		f.gen,
		f.cfg.Generation,
	)
}

func hit(section, effective, text string, distance float64) store.Hit {
	return store.Hit{
		Text:     text,
		Metadata: map[string]any{"act": bnsAct, "section": section, "effective_from": effective},
		Distance: distance,
	}
}

func TestAsk_PunishmentQueryAnswered(t *testing.T) {
	f := newFixture()
	f.store.hits = []store.Hit{
		hit("318", "2024-07-01", "Whoever cheats shall be punished with imprisonment of either description for a term which may extend to three years.", 0.4),
		hit("2", "2024-07-01", "Definitions of words used in the Sanhita.", 0.3),
	}
	res, err := f.orchestrator().Ask(context.Background(), "What is the punishment for cheating under BNS?")
	require.NoError(t, err)

	assert.Equal(t, OutcomeAnswered, res.Outcome)
	assert.Equal(t, StageRespond, res.Stage)
	assert.Equal(t, intent.Punishment, res.SubIntent)
	assert.Equal(t, retrieval.PathSemantic, res.Path)
	assert.GreaterOrEqual(t, res.Response.Confidence, 0.3)
	assert.LessOrEqual(t, res.Response.Confidence, 0.9)
	require.NotEmpty(t, res.Response.Citations)
	assert.Equal(t, bnsAct, res.Response.Citations[0].Act)
	for _, c := range res.Response.Citations {
		assert.NotEqual(t, "2", c.Section, "gate drops passages without punishment language")
	}
	require.NotNil(t, res.Response.Proof)
	assert.Equal(t, models.Disclaimer, res.Response.Disclaimer)
	assert.Equal(t, f.gen.text, res.Response.Answer)
	assert.NotEmpty(t, res.RequestID)

	require.Len(t, f.gen.prompts, 1)
	assert.Contains(t, f.gen.prompts[0], "Whoever cheats shall be punished")
	assert.Contains(t, f.gen.prompts[0], "Question: What is the punishment for cheating under BNS?")
	assert.NotContains(t, f.gen.prompts[0], "{{")
}

func TestAsk_NonLegalRefusedBeforeRetrieval(t *testing.T) {
	f := newFixture()
	f.store.hits = []store.Hit{hit("318", "2024", "Whoever cheats shall be punished.", 0.1)}
	for _, q := range []string{
		"My partner is cheating on me, what should I do?",
		"Is it illegal to have an affair?",
	} {
		res, err := f.orchestrator().Ask(context.Background(), q)
		require.NoError(t, err)
		assert.Equal(t, OutcomeRefused, res.Outcome, q)
		assert.Equal(t, RefusalNonLegal, res.RefusalReason, q)
		assert.Equal(t, MessageNonLegal, res.Response.Answer)
		assert.Zero(t, res.Response.Confidence)
		assert.Empty(t, res.Response.Citations)
		assert.NotNil(t, res.Response.Citations)
		assert.Nil(t, res.Response.Proof)
		assert.Equal(t, StageClassify, res.Stage)
	}
	assert.Empty(t, f.store.queries)
}

func TestAsk_Underspecified(t *testing.T) {
	f := newFixture()
	res, err := f.orchestrator().Ask(context.Background(), "How do I get a refund?")
	require.NoError(t, err)
	assert.Equal(t, RefusalUnderspecified, res.RefusalReason)
	assert.Equal(t, MessageUnderspecified, res.Response.Answer)
	assert.Zero(t, res.Response.Confidence)
}

func TestAsk_NoEvidence(t *testing.T) {
	f := newFixture()
	f.store.hits = []store.Hit{hit("1", "1860", "Territorial extent.", 0.9)}
	res, err := f.orchestrator().Ask(context.Background(), "Which law covers trespass?")
	require.NoError(t, err)
	assert.Equal(t, RefusalNoEvidence, res.RefusalReason)
	assert.Equal(t, MessageNoLawFound, res.Response.Answer)
	assert.Zero(t, res.Response.Confidence)
	assert.Nil(t, res.Response.Proof)
	assert.Empty(t, f.gen.prompts)
}

func TestAsk_PunishmentGateEmptiesToRefusal(t *testing.T) {
	f := newFixture()
	f.store.hits = []store.Hit{hit("2", "2024", "Definitions of words used in the Sanhita.", 0.1)}
	res, err := f.orchestrator().Ask(context.Background(), "What is the punishment for stalking?")
	require.NoError(t, err)
	assert.Equal(t, RefusalNoEvidence, res.RefusalReason)
	assert.Empty(t, res.Response.Citations)
}

func TestAsk_LowConfidenceKeepsScore(t *testing.T) {
	f := newFixture()
	f.cfg.Confidence.AnswerThreshold = 0.5
	f.store.hits = []store.Hit{hit("329", "1860-01-01", "Criminal trespass explained.", 0.6)}
	res, err := f.orchestrator().Ask(context.Background(), "Which law covers trespass?")
	require.NoError(t, err)
	assert.Equal(t, RefusalLowConfidence, res.RefusalReason)
	assert.Equal(t, MessageNoLawFound, res.Response.Answer)
	assert.InDelta(t, 0.4, res.Response.Confidence, 1e-9, "refusal reports the computed score")
	assert.Empty(t, res.Response.Citations)
	assert.Nil(t, res.Response.Proof)
	assert.Equal(t, StageScore, res.Stage)
}

func TestAsk_ExactSectionLookup(t *testing.T) {
	f := newFixture()
	f.store.records = map[string][]store.Record{"303": {
		{Text: "Whoever commits theft shall be punished.", Metadata: map[string]any{"act": bnsAct, "section": "303", "effective_from": "2024-07-01"}},
		{Text: "Theft explanation.", Metadata: map[string]any{"act": bnsAct, "section": "303", "effective_from": "2024-07-01"}},
	}}
	res, err := f.orchestrator().Ask(context.Background(), "Explain BNS section 303")
	require.NoError(t, err)

	assert.Equal(t, retrieval.PathExact, res.Path)
	assert.Empty(t, f.store.queries, "no semantic fallback when the exact lookup hits")
	assert.Equal(t, 0.9, res.Response.Confidence)
	require.Len(t, res.Response.Citations, 1, "two passages, one citation")
	assert.Equal(t, "303", res.Response.Citations[0].Section)
	require.NotNil(t, res.Response.Proof)
	assert.Len(t, res.Response.Proof.Sources, 2)
}

func TestAsk_UnknownSectionFallsThrough(t *testing.T) {
	f := newFixture()
	f.store.hits = []store.Hit{hit("66C", "2008-10-27", "Identity theft: whoever fraudulently uses the electronic signature shall be punished with imprisonment.", 0.3)}
	res, err := f.orchestrator().Ask(context.Background(), "Section 66C IT Act")
	require.NoError(t, err)
	assert.Equal(t, retrieval.PathSemantic, res.Path)
	assert.Equal(t, OutcomeAnswered, res.Outcome)
	assert.Len(t, f.store.queries, 1)
}

func TestAsk_EmptyGenerationKeepsEvidence(t *testing.T) {
	f := newFixture()
	f.gen.text = "   "
	f.store.hits = []store.Hit{hit("318", "2024-07-01", "Whoever cheats shall be punished with imprisonment.", 0.4)}

	res, err := f.orchestrator().Ask(context.Background(), "What is the punishment for cheating under BNS?")
	require.NoError(t, err)
	assert.Equal(t, OutcomeDegraded, res.Outcome)
	assert.Equal(t, DegradeGenerationEmpty, res.DegradeReason)
	assert.Equal(t, MessageModelEmpty, res.Response.Answer)
	require.NotNil(t, res.Response.Proof)
	assert.Equal(t, []models.Citation{{Act: bnsAct, Section: "318", EffectiveFrom: "2024-07-01"}}, res.Response.Citations)
	assert.InDelta(t, 0.9, res.Response.Confidence, 1e-9)
}

func TestAsk_GenerationErrorIsDegraded(t *testing.T) {
	f := newFixture()
	f.gen.err = context.DeadlineExceeded
	f.store.hits = []store.Hit{hit("318", "2024-07-01", "Whoever cheats shall be punished with imprisonment.", 0.4)}

	res, err := f.orchestrator().Ask(context.Background(), "What is the punishment for cheating under BNS?")
	require.NoError(t, err)
	assert.Equal(t, OutcomeDegraded, res.Outcome)
	assert.Equal(t, DegradeGenerationFailed, res.DegradeReason)
	assert.NotNil(t, res.Response.Proof)
}

func TestAsk_EmptyContextRefuses(t *testing.T) {
	f := newFixture()
	f.cfg.Generation.MaxContextChars = 0
	f.store.hits = []store.Hit{hit("318", "2024-07-01", "Whoever cheats shall be punished with imprisonment.", 0.4)}

	res, err := f.orchestrator().Ask(context.Background(), "What is the punishment for cheating under BNS?")
	require.NoError(t, err)
	assert.Equal(t, RefusalEmptyContext, res.RefusalReason)
	assert.Zero(t, res.Response.Confidence)
	assert.Empty(t, res.Response.Citations)
	assert.Nil(t, res.Response.Proof)
	assert.Empty(t, f.gen.prompts, "synthesis never runs on empty context")
}

func TestAsk_StoreFailureIsError(t *testing.T) {
	f := newFixture()
	f.store.err = errors.New("connection refused")
	_, err := f.orchestrator().Ask(context.Background(), "What is the punishment for theft?")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestAsk_EmptyQuery(t *testing.T) {
	_, err := newFixture().orchestrator().Ask(context.Background(), "   ")
	assert.ErrorIs(t, err, models.ErrEmptyQuery)
}

func TestAsk_Idempotent(t *testing.T) {
	f := newFixture()
	f.store.hits = []store.Hit{
		hit("318", "2024-07-01", "Whoever cheats shall be punished with imprisonment.", 0.4),
		hit("319", "2024-07-01", "Whoever cheats by personation shall be punished with imprisonment.", 0.4),
		hit("318", "2024-07-01", "Whoever cheats shall be punished with fine.", 0.4),
	}
	o := f.orchestrator()
	first, err := o.Ask(context.Background(), "What is the punishment for cheating?")
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		again, err := o.Ask(context.Background(), "What is the punishment for cheating?")
		require.NoError(t, err)
		assert.Equal(t, first.Response.Confidence, again.Response.Confidence)
		assert.Equal(t, first.Response.Citations, again.Response.Citations)
	}
	assert.Len(t, first.Response.Citations, 2)
}

func TestAsk_WithLocalGenerator(t *testing.T) {
	f := newFixture()
	f.store.hits = []store.Hit{hit("318", "2024-07-01", "Whoever cheats shall be punished with imprisonment.", 0.4)}
	ranker := ranking.NewRanker(nil, f.cfg.Lexicon.PunishmentAnchors)
	o := NewOrchestrator(
		intent.NewClassifier(f.cfg.Lexicon),
		retrieval.NewRetriever(f.store, ranker, f.cfg.Retrieval),
		confidence.NewScorer(f.cfg.Confidence, f.cfg.Lexicon.ConfidenceTerms),
		proof.NewBuilder(500),
		llm.NewLocalGenerator(),
		f.cfg.Generation,
	)
	res, err := o.Ask(context.Background(), "What is the punishment for cheating under BNS?")
	require.NoError(t, err)
	assert.Equal(t, llm.LocalAnswer, res.Response.Answer)
}

func TestBuildContext(t *testing.T) {
	cands := []models.CandidatePassage{{Text: " first "}, {Text: "second"}}
	assert.Equal(t, "first"+ContextSeparator+"second", BuildContext(cands, 1000))
	assert.Equal(t, "first\n\n", BuildContext(cands, 7))
	assert.Equal(t, "", BuildContext(cands, 0))
	assert.True(t, strings.HasPrefix(BuildContext(cands, 3), "fir"))
}

func TestFillPrompt(t *testing.T) {
	got := FillPrompt("C={{context}} Q={{query}} again {{query}}", "ctx", "q")
	assert.Equal(t, "C=ctx Q=q again q", got)
}
