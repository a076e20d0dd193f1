package categorizer

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"sort"
	"strings"

	"fjacquet/fin-insights/internal/analyticserror"
	"fjacquet/fin-insights/internal/models"

	"github.com/jbrukh/bayesian"
)

// Backend selects the linear classifier behind a Model.
type Backend string

const (
	// BackendLogistic is a softmax regression over TF-IDF features.
	BackendLogistic Backend = "logistic"
	// BackendBayes is a TF-IDF naive Bayes classifier.
	BackendBayes Backend = "bayes"
)

// TrainOptions controls model fitting.
type TrainOptions struct {
	Backend      Backend
	MaxFeatures  int
	Epochs       int
	LearningRate float64
	L2           float64
}

// DefaultTrainOptions returns the options used when none are configured.
func DefaultTrainOptions() TrainOptions {
	return TrainOptions{
		Backend:      BackendLogistic,
		MaxFeatures:  5000,
		Epochs:       300,
		LearningRate: 2.0,
		L2:           0.0001,
	}
}

func (o TrainOptions) withDefaults() TrainOptions {
	d := DefaultTrainOptions()
	if o.Backend == "" {
		o.Backend = d.Backend
	}
	if o.MaxFeatures <= 0 {
		o.MaxFeatures = d.MaxFeatures
	}
	if o.Epochs <= 0 {
		o.Epochs = d.Epochs
	}
	if o.LearningRate <= 0 {
		o.LearningRate = d.LearningRate
	}
	if o.L2 < 0 {
		o.L2 = 0
	}
	return o
}

// Model is a trained, immutable classifier. Exported fields are persisted;
// the lookup structures are rebuilt by init after loading.
type Model struct {
	Version         string
	LabelSetVersion string
	Backend         Backend
	Options         TrainOptions
	Labels          []string
	Vocabulary      []string
	IDF             []float64
	Weights         [][]float64
	Bias            []float64
	Examples        []models.TrainingExample
	ExampleCount    int

	vec   *vectorizer
	bayes *bayesian.Classifier
}

// Train fits a new Model. At least two distinct categories and one usable
// example are required.
func Train(examples []models.TrainingExample, opts TrainOptions) (*Model, error) {
	opts = opts.withDefaults()
	if opts.Backend != BackendLogistic && opts.Backend != BackendBayes {
		return nil, &analyticserror.TrainingError{Examples: len(examples), Reason: fmt.Sprintf("unknown backend %q", opts.Backend)}
	}

	usable := make([]models.TrainingExample, 0, len(examples))
	labelSet := make(map[string]struct{})
	for _, ex := range examples {
		category := strings.TrimSpace(ex.Category)
		if category == "" || len(Terms(ex.Description)) == 0 {
			continue
		}
		usable = append(usable, models.TrainingExample{Description: ex.Description, Category: category})
		labelSet[category] = struct{}{}
	}
	if len(usable) == 0 {
		return nil, &analyticserror.TrainingError{Examples: len(examples), Labels: len(labelSet), Reason: "no usable examples"}
	}
	if len(labelSet) < 2 {
		return nil, &analyticserror.TrainingError{Examples: len(usable), Labels: len(labelSet), Reason: "at least two distinct categories are required"}
	}

	labels := make([]string, 0, len(labelSet))
	for l := range labelSet {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	labelIndex := make(map[string]int, len(labels))
	for i, l := range labels {
		labelIndex[l] = i
	}

	docs := make([][]string, len(usable))
	for i, ex := range usable {
		docs[i] = Terms(ex.Description)
	}

	m := &Model{
		Backend:      opts.Backend,
		Options:      opts,
		Labels:       labels,
		Examples:     usable,
		ExampleCount: len(usable),
	}

	vec := fitVectorizer(docs, opts.MaxFeatures)
	m.Vocabulary = vec.vocabulary
	m.IDF = vec.idf

	if opts.Backend == BackendLogistic {
		xs := make([][]feature, len(docs))
		ys := make([]int, len(docs))
		for i, doc := range docs {
			xs[i] = vec.transform(doc)
			ys[i] = labelIndex[usable[i].Category]
		}
		params := trainSoftmax(xs, ys, len(labels), len(vec.vocabulary), opts)
		m.Weights = params.weights
		m.Bias = params.bias
	}

	m.LabelSetVersion = labelSetVersion(labels)
	m.Version = m.fingerprint()
	if err := m.init(); err != nil {
		return nil, err
	}
	return m, nil
}

// init rebuilds the runtime lookup structures of a trained or loaded model.
func (m *Model) init() error {
	if len(m.Vocabulary) != len(m.IDF) {
		return fmt.Errorf("vocabulary has %d terms but idf has %d", len(m.Vocabulary), len(m.IDF))
	}
	if len(m.Labels) < 2 {
		return fmt.Errorf("model has %d labels", len(m.Labels))
	}
	m.vec = newVectorizer(m.Vocabulary, m.IDF)

	switch m.Backend {
	case BackendLogistic:
		if len(m.Weights) != len(m.Labels) || len(m.Bias) != len(m.Labels) {
			return fmt.Errorf("weights do not match %d labels", len(m.Labels))
		}
		for _, w := range m.Weights {
			if len(w) != len(m.Vocabulary) {
				return fmt.Errorf("weight row has %d entries, vocabulary has %d", len(w), len(m.Vocabulary))
			}
		}
	case BackendBayes:
		m.bayes = buildBayes(m.Labels, m.Examples, m.vec)
	default:
		return fmt.Errorf("unknown backend %q", m.Backend)
	}
	return nil
}

// Predict returns the most probable label for description and its
// probability. Ties resolve to the lexicographically smallest label.
func (m *Model) Predict(description string) (string, float64) {
	probs := m.Probabilities(description)
	best := argmax(probs)
	return m.Labels[best], probs[best]
}

// Probabilities returns one probability per label, in Labels order.
func (m *Model) Probabilities(description string) []float64 {
	terms := Terms(description)
	probs := make([]float64, len(m.Labels))

	switch m.Backend {
	case BackendBayes:
		known := m.knownTerms(terms)
		scores, _, _ := m.bayes.LogScores(known)
		copy(probs, scores)
	default:
		softmaxParams{weights: m.Weights, bias: m.Bias}.scores(m.vec.transform(terms), probs)
	}
	softmaxInPlace(probs)
	return probs
}

// HasLabel reports whether category belongs to the model's label set.
func (m *Model) HasLabel(category string) bool {
	i := sort.SearchStrings(m.Labels, category)
	return i < len(m.Labels) && m.Labels[i] == category
}

func (m *Model) knownTerms(terms []string) []string {
	known := terms[:0:0]
	for _, t := range terms {
		if _, ok := m.vec.index[t]; ok {
			known = append(known, t)
		}
	}
	return known
}

// buildBayes learns a TF-IDF naive Bayes classifier. Classes are passed in
// sorted label order so score positions line up with Labels.
func buildBayes(labels []string, examples []models.TrainingExample, vec *vectorizer) *bayesian.Classifier {
	classes := make([]bayesian.Class, len(labels))
	for i, l := range labels {
		classes[i] = bayesian.Class(l)
	}
	cl := bayesian.NewClassifierTfIdf(classes...)
	for _, ex := range examples {
		terms := Terms(ex.Description)
		known := terms[:0:0]
		for _, t := range terms {
			if _, ok := vec.index[t]; ok {
				known = append(known, t)
			}
		}
		cl.Learn(known, bayesian.Class(ex.Category))
	}
	cl.ConvertTermsFreqToTfIdf()
	return cl
}

// fingerprint derives a content version from everything that affects scoring.
func (m *Model) fingerprint() string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%d|%d|%g|%g\n", m.Backend, m.Options.MaxFeatures, m.Options.Epochs, m.Options.LearningRate, m.Options.L2)
	for _, l := range m.Labels {
		fmt.Fprintf(h, "L%s\n", l)
	}
	for _, ex := range m.Examples {
		fmt.Fprintf(h, "E%s\x00%s\n", ex.Description, ex.Category)
	}
	for _, t := range m.Vocabulary {
		fmt.Fprintf(h, "V%s\n", t)
	}
	var buf [8]byte
	floats := func(tag byte, vs []float64) {
		h.Write([]byte{tag})
		for _, v := range vs {
			binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
			h.Write(buf[:])
		}
	}
	floats('I', m.IDF)
	for _, row := range m.Weights {
		floats('W', row)
	}
	floats('B', m.Bias)
	return "m-" + hex.EncodeToString(h.Sum(nil))[:12]
}

func labelSetVersion(labels []string) string {
	sum := sha256.Sum256([]byte(strings.Join(labels, "\x00")))
	return "ls-" + hex.EncodeToString(sum[:])[:8]
}
