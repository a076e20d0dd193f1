package categorizer

import "math"

// softmaxParams holds a multinomial logistic regression over sparse inputs.
type softmaxParams struct {
	weights [][]float64 // [label][feature]
	bias    []float64
}

// trainSoftmax fits the model by full-batch gradient descent starting from
// zero weights. Given the same inputs it always produces the same parameters.
func trainSoftmax(xs [][]feature, ys []int, labels, features int, opts TrainOptions) softmaxParams {
	p := softmaxParams{
		weights: make([][]float64, labels),
		bias:    make([]float64, labels),
	}
	gradW := make([][]float64, labels)
	for k := range p.weights {
		p.weights[k] = make([]float64, features)
		gradW[k] = make([]float64, features)
	}
	gradB := make([]float64, labels)
	probs := make([]float64, labels)
	n := float64(len(xs))

	for epoch := 0; epoch < opts.Epochs; epoch++ {
		for k := range gradW {
			clear(gradW[k])
		}
		clear(gradB)

		for i, x := range xs {
			p.scores(x, probs)
			softmaxInPlace(probs)
			for k := range probs {
				g := probs[k]
				if k == ys[i] {
					g--
				}
				gradB[k] += g
				for _, f := range x {
					gradW[k][f.index] += g * f.value
				}
			}
		}

		for k := range p.weights {
			w := p.weights[k]
			gw := gradW[k]
			for j := range w {
				w[j] -= opts.LearningRate * (gw[j]/n + opts.L2*w[j])
			}
			p.bias[k] -= opts.LearningRate * gradB[k] / n
		}
	}
	return p
}

// scores writes the linear score of every label for x into out.
func (p softmaxParams) scores(x []feature, out []float64) {
	for k := range p.weights {
		s := p.bias[k]
		w := p.weights[k]
		for _, f := range x {
			s += w[f.index] * f.value
		}
		out[k] = s
	}
}

// softmaxInPlace turns scores into probabilities.
func softmaxInPlace(v []float64) {
	if len(v) == 0 {
		return
	}
	maxV := v[0]
	for _, s := range v[1:] {
		if s > maxV {
			maxV = s
		}
	}
	var sum float64
	for i, s := range v {
		v[i] = math.Exp(s - maxV)
		sum += v[i]
	}
	for i := range v {
		v[i] /= sum
	}
}

// argmax returns the index of the largest value. Equal values resolve to the
// lowest index.
func argmax(v []float64) int {
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}
