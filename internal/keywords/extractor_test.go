package keywords

import (
	"reflect"
	"testing"
)

func weightsOf(t *testing.T, m *WeightMap) map[string]float64 {
	t.Helper()
	out := make(map[string]float64, m.Len())
	for _, kw := range m.Keywords() {
		out[kw.Term] = kw.Weight
	}
	return out
}

func TestExtractEmpty(t *testing.T) {
	t.Parallel()

	m := Extract("")
	if m.Len() != 0 {
		t.Fatalf("expected empty map, got %d keys", m.Len())
	}
	if m.Total() != 0 {
		t.Fatalf("expected zero total, got %v", m.Total())
	}
}

func TestExtractRules(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  string
		expect map[string]float64
	}{
		{
			name:   "stop words are dropped",
			input:  "the and with work good first",
			expect: map[string]float64{},
		},
		{
			// +2 twice from the abbreviation, +2 from the acronym; the plain
			// count is ignored because the key already exists.
			name:   "abbreviation acronym and plain count do not stack",
			input:  "AI ai",
			expect: map[string]float64{"ai": 6},
		},
		{
			name:  "abbreviation survives the stop word filter",
			input: "IT manager",
			expect: map[string]float64{
				"it":      4,
				"manager": 2.5,
			},
		},
		{
			name:  "compound phrases overlap with model phrases",
			input: "large   language models",
			expect: map[string]float64{
				"large language models": 3,
				"language models":       3,
				"language model":        3,
				"large":                 1,
				"language":              1,
				"models":                1,
			},
		},
		{
			name:  "model phrase prefix",
			input: "neural networks",
			expect: map[string]float64{
				"neural network": 3,
				"neural":         1,
				"networks":       1,
			},
		},
		{
			name:   "tools accumulate on top of frequency",
			input:  "python python",
			expect: map[string]float64{"python": 6},
		},
		{
			name:  "acronyms from original case",
			input: "Built REST services on GCP",
			expect: map[string]float64{
				"gcp":      4,
				"rest":     2,
				"built":    1,
				"services": 1,
			},
		},
		{
			name:   "accented words are not split",
			input:  "Résumé from Zürich",
			expect: map[string]float64{"from": 1},
		},
		{
			name:   "non ascii words and acronyms are skipped",
			input:  "naïve café ÉCOLE Ingénieur",
			expect: map[string]float64{},
		},
		{
			name:   "digits and underscores join words",
			input:  "python3 python_dev GPT4",
			expect: map[string]float64{},
		},
		{
			name:  "boundaries next to accented letters",
			input: "Zürich-based LLM developer, éllm",
			expect: map[string]float64{
				"llm":       5,
				"based":     1,
				"developer": 2.5,
			},
		},
		{
			name:   "single letters and digits are not words",
			input:  "a b c 42 x1",
			expect: map[string]float64{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := weightsOf(t, Extract(tt.input))
			if !reflect.DeepEqual(got, tt.expect) {
				t.Fatalf("unexpected weights\n got: %v\nwant: %v", got, tt.expect)
			}
		})
	}
}

func TestExtractKeepsFirstSeenOrder(t *testing.T) {
	t.Parallel()

	m := Extract("We need a Python developer with AWS, SQL, and Kubernetes experience.")

	want := []Keyword{
		{Term: "sql", Weight: 4},
		{Term: "aws", Weight: 4},
		{Term: "python", Weight: 3},
		{Term: "developer", Weight: 2.5},
		{Term: "kubernetes", Weight: 3},
		{Term: "experience", Weight: 1},
	}

	if got := m.Keywords(); !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected keywords\n got: %+v\nwant: %+v", got, want)
	}
}

func TestExtractIsDeterministic(t *testing.T) {
	t.Parallel()

	text := `Senior Machine Learning Engineer (LLM, NLP)
We build real-time data pipelines on AWS and GCP with Python, Docker and Kubernetes.
Experience with deep learning, transformer models and MLOps is a plus. KPI-driven PM culture.`

	first := Extract(text)
	for i := 0; i < 10; i++ {
		again := Extract(text)
		if !reflect.DeepEqual(first.Keywords(), again.Keywords()) {
			t.Fatalf("run %d produced different keywords", i)
		}
	}
}

func TestWeightMapNilSafe(t *testing.T) {
	t.Parallel()

	var m *WeightMap
	if m.Len() != 0 || m.Total() != 0 || m.Has("go") {
		t.Fatalf("nil map should behave as empty")
	}
	if kws := m.Keywords(); kws == nil || len(kws) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", kws)
	}
}

func TestAnalyzeIgnoresAccentedWords(t *testing.T) {
	t.Parallel()

	report := Analyze("Python developer", "Python developer, Résumé in Zürich")
	if report.MatchPercentage != 100 {
		t.Fatalf("expected a full match, got %v", report.MatchPercentage)
	}
	if len(report.MissingKeywords) != 0 {
		t.Fatalf("expected no missing keywords, got %v", report.MissingKeywords)
	}
}
