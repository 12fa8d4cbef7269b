package classifier

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"
)

// Transform is a fitted TF-IDF feature transform. The vocabulary maps tokens
// to feature indices; IDF is indexed the same way.
type Transform struct {
	Vocabulary map[string]int `json:"vocabulary"`
	IDF        []float64      `json:"idf"`
}

// tokenize splits text into ASCII word tokens plus CJK character bigrams.
// Chinese has no whitespace word boundaries, so bigrams stand in for words.
func tokenize(text string) []string {
	var tokens []string
	var ascii strings.Builder
	var prevHan rune

	flushASCII := func() {
		if ascii.Len() > 0 {
			tokens = append(tokens, strings.ToLower(ascii.String()))
			ascii.Reset()
		}
	}

	for _, r := range text {
		switch {
		case unicode.Is(unicode.Han, r):
			flushASCII()
			if prevHan != 0 {
				tokens = append(tokens, string([]rune{prevHan, r}))
			}
			prevHan = r
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			prevHan = 0
			ascii.WriteRune(r)
		default:
			prevHan = 0
			flushASCII()
		}
	}
	flushASCII()
	return tokens
}

// FitTransform builds a TF-IDF transform over the given texts. The vocabulary
// is sorted so repeated fits over the same data are deterministic.
func FitTransform(texts []string) *Transform {
	docFreq := make(map[string]int)
	for _, text := range texts {
		seen := make(map[string]bool)
		for _, token := range tokenize(text) {
			if !seen[token] {
				seen[token] = true
				docFreq[token]++
			}
		}
	}

	vocab := make([]string, 0, len(docFreq))
	for token := range docFreq {
		vocab = append(vocab, token)
	}
	sort.Strings(vocab)

	t := &Transform{
		Vocabulary: make(map[string]int, len(vocab)),
		IDF:        make([]float64, len(vocab)),
	}
	n := float64(len(texts))
	for i, token := range vocab {
		t.Vocabulary[token] = i
		// smoothed idf, as in the usual tf-idf formulation
		t.IDF[i] = math.Log((1+n)/(1+float64(docFreq[token]))) + 1
	}
	return t
}

// Apply converts text to an L2-normalized TF-IDF vector. Tokens outside the
// fitted vocabulary are dropped.
func (t *Transform) Apply(text string) []float64 {
	vec := make([]float64, len(t.IDF))
	for _, token := range tokenize(text) {
		if idx, ok := t.Vocabulary[token]; ok {
			vec[idx]++
		}
	}

	var norm float64
	for i := range vec {
		vec[i] *= t.IDF[i]
		norm += vec[i] * vec[i]
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for i := range vec {
			vec[i] /= norm
		}
	}
	return vec
}

// NaiveBayes is a multinomial naive Bayes classifier over TF-IDF features.
type NaiveBayes struct {
	Classes        []string    `json:"classes"`
	ClassLogPrior  []float64   `json:"class_log_prior"`
	FeatureLogProb [][]float64 `json:"feature_log_prob"`
}

const nbSmoothing = 1.0

// FitNaiveBayes trains a multinomial NB model on transformed features.
func FitNaiveBayes(features [][]float64, labels []string) *NaiveBayes {
	classSet := make(map[string]bool)
	for _, label := range labels {
		classSet[label] = true
	}
	classes := make([]string, 0, len(classSet))
	for class := range classSet {
		classes = append(classes, class)
	}
	sort.Strings(classes)

	classIndex := make(map[string]int, len(classes))
	for i, class := range classes {
		classIndex[class] = i
	}

	featureCount := 0
	if len(features) > 0 {
		featureCount = len(features[0])
	}

	counts := make([]int, len(classes))
	featureSums := make([][]float64, len(classes))
	for i := range featureSums {
		featureSums[i] = make([]float64, featureCount)
	}

	for i, vec := range features {
		ci := classIndex[labels[i]]
		counts[ci]++
		for j, v := range vec {
			featureSums[ci][j] += v
		}
	}

	nb := &NaiveBayes{
		Classes:        classes,
		ClassLogPrior:  make([]float64, len(classes)),
		FeatureLogProb: make([][]float64, len(classes)),
	}

	total := float64(len(features))
	for ci := range classes {
		nb.ClassLogPrior[ci] = math.Log(float64(counts[ci]) / total)

		var sum float64
		for _, v := range featureSums[ci] {
			sum += v + nbSmoothing
		}

		nb.FeatureLogProb[ci] = make([]float64, featureCount)
		for j, v := range featureSums[ci] {
			nb.FeatureLogProb[ci][j] = math.Log((v + nbSmoothing) / sum)
		}
	}
	return nb
}

// PredictLogProba returns unnormalized class log scores for one feature vector.
func (nb *NaiveBayes) PredictLogProba(vec []float64) []float64 {
	scores := make([]float64, len(nb.Classes))
	for ci := range nb.Classes {
		score := nb.ClassLogPrior[ci]
		for j, v := range vec {
			if v != 0 {
				score += v * nb.FeatureLogProb[ci][j]
			}
		}
		scores[ci] = score
	}
	return scores
}

// PredictProba returns normalized class probabilities for one feature vector.
func (nb *NaiveBayes) PredictProba(vec []float64) []float64 {
	scores := nb.PredictLogProba(vec)

	// softmax with max-subtraction for numeric stability
	maxScore := math.Inf(-1)
	for _, s := range scores {
		if s > maxScore {
			maxScore = s
		}
	}

	var sum float64
	probs := make([]float64, len(scores))
	for i, s := range scores {
		probs[i] = math.Exp(s - maxScore)
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs
}

// Model is the trained classification artifact: a frozen feature transform
// plus fold-calibrated naive Bayes members. Prediction averages the member
// probabilities, which is what the calibration buys over a single fit.
type Model struct {
	Transform *Transform    `json:"transform"`
	Members   []*NaiveBayes `json:"members"`
	Classes   []string      `json:"classes"`
}

// ErrInsufficientSamples is returned when the pool has fewer than two samples.
var ErrInsufficientSamples = fmt.Errorf("training requires at least 2 samples")

// Train performs a full retrain: a fresh transform fitted on all samples,
// then fold-calibrated classifiers on the transformed features.
func Train(pool *SamplePool) (*Model, error) {
	if len(pool.Texts) < 2 {
		return nil, ErrInsufficientSamples
	}

	transform := FitTransform(pool.Texts)
	return fitCalibrated(transform, pool)
}

// TrainIncremental refits the classifier members only, reusing the existing
// transform without refitting it. Vocabulary added since the transform was
// fitted is invisible to the model; this is an approximation of online
// learning, kept deliberately.
func TrainIncremental(existing *Model, pool *SamplePool) (*Model, error) {
	if len(pool.Texts) < 2 {
		return nil, ErrInsufficientSamples
	}
	if existing == nil || existing.Transform == nil {
		return Train(pool)
	}

	return fitCalibrated(existing.Transform, pool)
}

func fitCalibrated(transform *Transform, pool *SamplePool) (*Model, error) {
	features := make([][]float64, len(pool.Texts))
	for i, text := range pool.Texts {
		features[i] = transform.Apply(text)
	}

	folds := pool.DistinctLabels()
	if folds > 3 {
		folds = 3
	}
	if folds < 1 {
		return nil, fmt.Errorf("sample pool has no labels")
	}

	var members []*NaiveBayes
	if folds == 1 {
		members = []*NaiveBayes{FitNaiveBayes(features, pool.Labels)}
	} else {
		// Deterministic round-robin folds; each member trains on all samples
		// outside its fold.
		for fold := 0; fold < folds; fold++ {
			var trainX [][]float64
			var trainY []string
			for i := range features {
				if i%folds == fold {
					continue
				}
				trainX = append(trainX, features[i])
				trainY = append(trainY, pool.Labels[i])
			}
			if len(trainX) == 0 {
				continue
			}
			members = append(members, FitNaiveBayes(trainX, trainY))
		}
	}

	if len(members) == 0 {
		return nil, fmt.Errorf("calibration produced no members")
	}

	classSet := make(map[string]bool)
	for _, label := range pool.Labels {
		classSet[label] = true
	}
	classes := make([]string, 0, len(classSet))
	for class := range classSet {
		classes = append(classes, class)
	}
	sort.Strings(classes)

	return &Model{
		Transform: transform,
		Members:   members,
		Classes:   classes,
	}, nil
}

// PredictProba returns the fold-averaged probability per class for the text.
func (m *Model) PredictProba(text string) map[string]float64 {
	vec := m.Transform.Apply(text)

	probs := make(map[string]float64, len(m.Classes))
	contributions := 0
	for _, member := range m.Members {
		memberProbs := member.PredictProba(vec)
		for ci, class := range member.Classes {
			probs[class] += memberProbs[ci]
		}
		contributions++
	}

	for class := range probs {
		probs[class] /= float64(contributions)
	}
	return probs
}

// Best returns the arg-max class and its probability.
func (m *Model) Best(probs map[string]float64) (string, float64) {
	bestClass := ""
	bestProb := -1.0
	// iterate the stable class list so ties resolve deterministically
	for _, class := range m.Classes {
		if p := probs[class]; p > bestProb {
			bestClass = class
			bestProb = p
		}
	}
	return bestClass, bestProb
}
