package feature

import (
	"slices"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Set tracks the data of each feature keyed by the string representation of the feature.
// All feature data share the same length m. Shorter data is zero padded and longer data
// pads every existing feature.
type Set struct {
	m      int
	set    map[string][]float64
	labels []Feature
}

// NewSet returns an empty feature set
func NewSet() *Set {
	return &Set{
		set: make(map[string][]float64),
	}
}

// Len returns the number of features
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.labels)
}

// Rows returns the number of observations of every feature
func (s *Set) Rows() int {
	if s == nil {
		return 0
	}
	return s.m
}

// Set stores the feature data overriding any previous data for the same feature
func (s *Set) Set(f Feature, data []float64) *Set {
	if s.set == nil {
		s.set = make(map[string][]float64)
	}

	if len(data) > s.m {
		for label, d := range s.set {
			s.set[label] = append(d, make([]float64, len(data)-len(d))...)
		}
		s.m = len(data)
	}

	stored := make([]float64, s.m)
	copy(stored, data)

	label := f.String()
	if _, exists := s.set[label]; !exists {
		s.labels = append(s.labels, f)
		sort.Slice(s.labels, func(i, j int) bool {
			return s.labels[i].String() < s.labels[j].String()
		})
	}
	s.set[label] = stored
	return s
}

// Get returns the data of a feature and whether it exists
func (s *Set) Get(f Feature) ([]float64, bool) {
	if s == nil || s.set == nil {
		return nil, false
	}
	data, exists := s.set[f.String()]
	return data, exists
}

// Del removes a feature from the set
func (s *Set) Del(f Feature) *Set {
	label := f.String()
	if _, exists := s.set[label]; !exists {
		return s
	}
	delete(s.set, label)
	s.labels = slices.DeleteFunc(s.labels, func(l Feature) bool {
		return l.String() == label
	})
	if len(s.labels) == 0 {
		return NewSet()
	}
	return s
}

// Update copies every feature of the other set into this set
func (s *Set) Update(other *Set) *Set {
	if other == nil {
		return s
	}
	for _, f := range other.labels {
		s.Set(f, other.set[f.String()])
	}
	return s
}

// Labels returns the sorted slice of all tracked features in the set
func (s *Set) Labels() []Feature {
	if s == nil {
		return nil
	}
	labels := make([]Feature, len(s.labels))
	copy(labels, s.labels)
	return labels
}

// Filter returns a new set holding only the features of the given types
func (s *Set) Filter(types ...FeatureType) *Set {
	res := NewSet()
	if s == nil {
		return res
	}
	for _, f := range s.labels {
		if slices.Contains(types, f.Type()) {
			res.Set(f, s.set[f.String()])
		}
	}
	return res
}

// RemoveZeroOnlyFeatures drops features that carry no signal
func (s *Set) RemoveZeroOnlyFeatures() {
	for _, f := range s.Labels() {
		data := s.set[f.String()]
		if len(data) == 0 || (floats.Min(data) == 0 && floats.Max(data) == 0) {
			s.Del(f)
		}
	}
}

// Matrix returns a matrix representation of the feature set to be used with matrix
// methods. The matrix has m rows representing the number of observations and n columns
// representing the number of features in label order.
func (s *Set) Matrix(intercept bool) *mat.Dense {
	if s == nil || len(s.labels) == 0 || s.m == 0 {
		return nil
	}

	m := s.m
	n := len(s.labels)
	if intercept {
		n += 1
	}

	obs := make([]float64, m*n)

	featNum := 0
	if intercept {
		for i := 0; i < m; i++ {
			obs[n*i] = 1.0
		}
		featNum += 1
	}

	for _, label := range s.labels {
		data := s.set[label.String()]
		for i := 0; i < len(data); i++ {
			obs[n*i+featNum] = data[i]
		}
		featNum += 1
	}
	return mat.NewDense(m, n, obs)
}
