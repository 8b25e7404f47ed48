package ports

// Model is the external regressor contract. Transform normalizes a raw
// feature vector; Predict turns a normalized vector into an RUL estimate.
type Model interface {
	Transform(features []float64) ([]float64, error)
	Predict(normalized []float64) (float64, error)
}
