package agents

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/nvandessel/tracelink/internal/config"
	"github.com/nvandessel/tracelink/internal/constants"
	"github.com/nvandessel/tracelink/internal/models"
	"github.com/nvandessel/tracelink/internal/recommendation"
	"github.com/nvandessel/tracelink/internal/similarity"
)

// fixedSimilarity judges words similar when they are equal ignoring case (score 1)
// or listed in the table with a score of at least 0.5.
type fixedSimilarity map[[2]string]float64

func (f fixedSimilarity) Score(_ context.Context, a, b string) (float64, bool) {
	if strings.EqualFold(a, b) {
		return 1, true
	}
	if v, ok := f[[2]string{a, b}]; ok {
		return v, true
	}
	v, ok := f[[2]string{b, a}]
	return v, ok
}

func (f fixedSimilarity) AreSimilar(ctx context.Context, a, b string) bool {
	v, ok := f.Score(ctx, a, b)
	return ok && v >= 0.5
}

func (f fixedSimilarity) AreTermsSimilar(ctx context.Context, a, b similarity.Term) bool {
	return f.AreSimilar(ctx, a.Text, b.Text)
}

func word(text string, sentence, position int) models.Word {
	return models.Word{Text: text, POS: models.POSNoun, Sentence: sentence, Position: position}
}

// fixture models "The Logic component calls the Server." against a two-component model.
func fixture() ([]*models.Mention, []*models.ModelInstance, fixedSimilarity) {
	mentions := []*models.Mention{
		models.NewMention("n1", "Logic", models.MappingKindName, []models.Word{word("Logic", 0, 1)}),
		models.NewMention("t1", "component", models.MappingKindType, []models.Word{word("component", 0, 2)}),
		models.NewMention("n2", "Server", models.MappingKindName, []models.Word{word("Server", 0, 5)}),
	}
	instances := []*models.ModelInstance{
		{ID: "c1", Name: "Logic", Type: "BasicComponent"},
		{ID: "c2", Name: "Server", Type: "BasicComponent"},
	}
	sim := fixedSimilarity{{"component", "BasicComponent"}: 0.7}
	return mentions, instances, sim
}

func summaries(bb *Blackboard) string {
	var out []string
	for _, ri := range bb.Recommendations.All() {
		out = append(out, ri.Name()+"/"+ri.Type())
	}
	return strings.Join(out, ",")
}

func TestNameTypeAgent(t *testing.T) {
	mentions, instances, sim := fixture()
	bb := NewBlackboard(mentions, instances, sim, nil)
	cfg := config.Default().Agents.NameType

	if err := NewNameTypeAgent(cfg).Execute(context.Background(), bb); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if got, want := summaries(bb), "Logic/BasicComponent,Server/"; got != want {
		t.Fatalf("recommendations = %s, want %s", got, want)
	}
	all := bb.Recommendations.All()
	if all[0].Probability() != cfg.Probability || !all[0].HasTypeMappings() {
		t.Errorf("paired instance = %+v, want probability %v with type evidence", all[0].Summary(), cfg.Probability)
	}
	if all[1].Probability() != cfg.ProbabilityWithoutType {
		t.Errorf("typeless probability = %v, want %v", all[1].Probability(), cfg.ProbabilityWithoutType)
	}
}

func TestNameTypeAgent_TypeBeforeName(t *testing.T) {
	mentions := []*models.Mention{
		models.NewMention("t1", "database", models.MappingKindType, []models.Word{word("database", 2, 3)}),
		models.NewMention("n1", "Storage", models.MappingKindName, []models.Word{word("Storage", 2, 4)}),
		models.NewMention("t2", "queue", models.MappingKindType, []models.Word{word("queue", 3, 5)}),
	}
	bb := NewBlackboard(mentions, nil, fixedSimilarity{}, nil)

	if err := NewNameTypeAgent(config.Default().Agents.NameType).Execute(context.Background(), bb); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	// No model types are similar, so the mention's own reference is used.
	// The queue mention is in another sentence.
	if got, want := summaries(bb), "Storage/database"; got != want {
		t.Errorf("recommendations = %s, want %s", got, want)
	}
}

func TestModelTypeAgent_RefinesTypelessRecommendation(t *testing.T) {
	mentions, instances, sim := fixture()
	bb := NewBlackboard(mentions, instances, sim, nil)
	ctx := context.Background()
	agentsCfg := config.Default().Agents

	if err := NewNameTypeAgent(agentsCfg.NameType).Execute(ctx, bb); err != nil {
		t.Fatal(err)
	}
	if err := NewModelTypeAgent(agentsCfg.ModelType).Execute(ctx, bb); err != nil {
		t.Fatal(err)
	}

	if got, want := summaries(bb), "Logic/BasicComponent,Server/BasicComponent"; got != want {
		t.Errorf("recommendations = %s, want %s", got, want)
	}
}

func TestInstanceConnectionAgent(t *testing.T) {
	mentions, instances, sim := fixture()
	bb := NewBlackboard(mentions, instances, sim, nil)

	reg := FromConfig(config.Default().Agents)
	if err := (&Runner{}).Run(context.Background(), reg, bb); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	links := bb.Links.Links()
	if len(links) != 2 {
		t.Fatalf("got %d links, want 2", len(links))
	}
	for _, l := range links {
		if l.Instance.Name != l.Recommended.Name() {
			t.Errorf("link %s -> %s joins different names", l.Recommended.Name(), l.Instance.ID)
		}
		if len(l.Evidence) != 2 {
			t.Errorf("link to %s has %d proposals, want forward and backward", l.Instance.ID, len(l.Evidence))
		}
		if l.Confidence != 1 {
			t.Errorf("link to %s confidence = %v, want 1", l.Instance.ID, l.Confidence)
		}
	}
}

// details renders every recommendation with its claimant, probability, and mappings.
func details(bb *Blackboard) string {
	var out []string
	for _, ri := range bb.Recommendations.All() {
		var names, types []string
		for _, m := range ri.NameMappings() {
			names = append(names, m.ID())
		}
		for _, m := range ri.TypeMappings() {
			types = append(types, m.ID())
		}
		out = append(out, fmt.Sprintf("%s %s/%s by %s p=%v names=%v types=%v",
			ri.ID(), ri.Name(), ri.Type(), ri.Claimant(), ri.Probability(), names, types))
	}
	return strings.Join(out, "\n")
}

func TestRunner_ParallelMatchesSequential(t *testing.T) {
	run := func(parallel bool) string {
		mentions, instances, sim := fixture()
		bb := NewBlackboard(mentions, instances, sim, nil)
		if err := (&Runner{Parallel: parallel}).Run(context.Background(), FromConfig(config.Default().Agents), bb); err != nil {
			t.Fatalf("Run(parallel=%v) error = %v", parallel, err)
		}
		return details(bb)
	}
	seq := run(false)
	if !strings.Contains(seq, "Logic/BasicComponent by "+string(constants.AgentNameType)) {
		t.Fatalf("sequential run should credit Logic to the name-type agent:\n%s", seq)
	}
	for i := 0; i < 20; i++ {
		if par := run(true); par != seq {
			t.Fatalf("parallel result differs from sequential:\n%s\nwant:\n%s", par, seq)
		}
	}
}

// submittingAgent proposes one instance. When wait is set it blocks until that channel
// closes; when done is set it closes it after submitting.
type submittingAgent struct {
	name        string
	probability float64
	mention     *models.Mention
	wait, done  chan struct{}
}

func (a submittingAgent) Name() models.Claimant { return models.Claimant(a.name) }

func (a submittingAgent) Execute(ctx context.Context, bb *Blackboard) error {
	if a.wait != nil {
		<-a.wait
	}
	bb.Recommend(ctx, recommendation.Submission{
		Name:         "Server",
		Type:         "Component",
		Claimant:     a.Name(),
		Probability:  a.probability,
		NameMappings: []*models.Mention{a.mention},
	})
	if a.done != nil {
		close(a.done)
	}
	return nil
}

func TestRunner_ParallelAppliesInRegistrationOrder(t *testing.T) {
	first := models.NewMention("m1", "Server", models.MappingKindName, nil)
	second := models.NewMention("m2", "Server", models.MappingKindName, nil)
	secondDone := make(chan struct{})

	// The first registered agent only submits after the second one has finished.
	reg := NewRegistry("recommend")
	mustRegister(t, reg, "recommend", submittingAgent{name: "first", probability: 0.8, mention: first, wait: secondDone})
	mustRegister(t, reg, "recommend", submittingAgent{name: "second", probability: 0.3, mention: second, done: secondDone})

	bb := NewBlackboard(nil, nil, fixedSimilarity{}, nil)
	if err := (&Runner{Parallel: true}).Run(context.Background(), reg, bb); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	all := bb.Recommendations.All()
	if len(all) != 1 {
		t.Fatalf("got %d recommendations, want 1", len(all))
	}
	ri := all[0]
	if ri.Claimant() != "first" || ri.Probability() != 0.8 {
		t.Errorf("claimant = %s p=%v, want first p=0.8", ri.Claimant(), ri.Probability())
	}
	names := ri.NameMappings()
	if len(names) != 2 || names[0] != first || names[1] != second {
		t.Errorf("name mappings = %v, want [m1 m2]", names)
	}
}

func TestBlackboard_RecommendBuffered(t *testing.T) {
	bb := NewBlackboard(nil, nil, fixedSimilarity{}, nil)
	var pending []recommendation.Submission
	view := bb.buffered(&pending)

	view.Recommend(context.Background(), recommendation.Submission{Name: "Server", Claimant: "x"})
	if bb.Recommendations.Len() != 0 || len(pending) != 1 {
		t.Errorf("buffered submission reached the store: len=%d pending=%d", bb.Recommendations.Len(), len(pending))
	}
	if view.Recommendations != bb.Recommendations || view.Links != bb.Links {
		t.Error("buffered view does not share the run state")
	}

	bb.Recommend(context.Background(), recommendation.Submission{Name: "Server", Claimant: "x"})
	if bb.Recommendations.Len() != 1 {
		t.Errorf("direct submission: len=%d, want 1", bb.Recommendations.Len())
	}
}

// recordingAgent appends its name to a shared log and returns err.
type recordingAgent struct {
	name string
	err  error
	mu   *sync.Mutex
	log  *[]string
}

func (a recordingAgent) Name() models.Claimant { return models.Claimant(a.name) }

func (a recordingAgent) Execute(context.Context, *Blackboard) error {
	a.mu.Lock()
	*a.log = append(*a.log, a.name)
	a.mu.Unlock()
	return a.err
}

func TestRunner_StageOrderAndErrors(t *testing.T) {
	var (
		mu  sync.Mutex
		log []string
	)
	agent := func(name string, err error) Agent {
		return recordingAgent{name: name, err: err, mu: &mu, log: &log}
	}
	boom := errors.New("boom")

	reg := NewRegistry("first", "second")
	mustRegister(t, reg, "first", agent("a", nil))
	mustRegister(t, reg, "first", agent("b", boom))
	mustRegister(t, reg, "first", agent("c", nil))
	mustRegister(t, reg, "second", agent("d", nil))

	bb := NewBlackboard(nil, nil, fixedSimilarity{}, nil)
	err := (&Runner{}).Run(context.Background(), reg, bb)
	if !errors.Is(err, boom) {
		t.Fatalf("Run() error = %v, want boom", err)
	}
	if got := strings.Join(log, ","); got != "a,b,c" {
		t.Errorf("executed %s, want a,b,c (stage two skipped after failure)", got)
	}
}

func TestRunner_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	mentions, instances, sim := fixture()
	bb := NewBlackboard(mentions, instances, sim, nil)

	err := (&Runner{}).Run(ctx, FromConfig(config.Default().Agents), bb)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
	if bb.Recommendations.Len() != 0 {
		t.Errorf("recommendations = %d, want 0", bb.Recommendations.Len())
	}
}

func mustRegister(t *testing.T, reg *Registry, stage string, a Agent) {
	t.Helper()
	if err := reg.Register(stage, a); err != nil {
		t.Fatalf("Register(%s, %s) error = %v", stage, a.Name(), err)
	}
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry(constants.StageRecommendation)
	if err := reg.Register("nope", NewNameTypeAgent(config.NameTypeConfig{})); err == nil {
		t.Error("Register() into unknown stage should fail")
	}
	mustRegister(t, reg, constants.StageRecommendation, NewNameTypeAgent(config.NameTypeConfig{}))
	if err := reg.Register(constants.StageRecommendation, NewNameTypeAgent(config.NameTypeConfig{})); err == nil {
		t.Error("Register() of a duplicate agent name should fail")
	}

	cfg := config.Default().Agents
	cfg.ModelType.Enabled = false
	var got []string
	for _, name := range FromConfig(cfg).Agents() {
		got = append(got, string(name))
	}
	if want := "name-type,instance-connection"; strings.Join(got, ",") != want {
		t.Errorf("FromConfig agents = %v, want %s", got, want)
	}
}
