package gateway

// Estimator predicts the token cost of a request before it reaches a model.
// Input estimates are charged against input_tpm at admission time; output
// estimates against output_tpm. Over-estimation throttles early, under-
// estimation lets bursts slip through one window, so estimators should aim
// slightly high.
type Estimator interface {
	EstimateInput(req *ChatCompletionRequest) int64
	EstimateOutput(req *ChatCompletionRequest) int64
}

// CharEstimator is a fast character-count heuristic: roughly one token per
// CharsPerToken characters of message content, and a flat OutputTokens
// reservation per request. It never returns less than one input token, so
// every admitted request costs something on the input dimension.
type CharEstimator struct {
	// CharsPerToken is the assumed characters-per-token ratio. Default 4,
	// which tracks English text on GPT-style tokenizers.
	CharsPerToken int64

	// OutputTokens is the flat completion reservation. Default 50.
	OutputTokens int64
}

// DefaultEstimator returns the stock 4-chars-per-token estimator with a
// 50-token output reservation.
func DefaultEstimator() *CharEstimator {
	return &CharEstimator{CharsPerToken: 4, OutputTokens: 50}
}

// EstimateInput sums the content length of all messages and divides by
// CharsPerToken, with a floor of one token.
func (e *CharEstimator) EstimateInput(req *ChatCompletionRequest) int64 {
	perToken := e.CharsPerToken
	if perToken <= 0 {
		perToken = 4
	}
	var chars int64
	for _, m := range req.Messages {
		chars += int64(len(m.Content))
	}
	tokens := chars / perToken
	if tokens < 1 {
		tokens = 1
	}
	return tokens
}

// EstimateOutput returns the flat output reservation.
func (e *CharEstimator) EstimateOutput(req *ChatCompletionRequest) int64 {
	if e.OutputTokens <= 0 {
		return 50
	}
	return e.OutputTokens
}
