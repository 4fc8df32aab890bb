package generation

// Prices are USD per million tokens.
type price struct {
	input  float64
	output float64
}

var modelPrices = map[string]price{
	"anthropic/claude-sonnet-4-20250514": {input: 3, output: 15},
	"anthropic/claude-opus-4-20250514":   {input: 15, output: 75},
	"openai/gpt-4o":                      {input: 5, output: 15},
	"meta-llama/llama-3.1-70b-instruct":  {input: 0.9, output: 0.9},
	"gemini-2.5-flash":                   {input: 0.3, output: 2.5},
}

var defaultPrice = price{input: 1, output: 3}

func EstimateCost(model string, promptTokens, completionTokens int) float64 {
	p, ok := modelPrices[model]
	if !ok {
		p = defaultPrice
	}
	return float64(promptTokens)/1_000_000*p.input + float64(completionTokens)/1_000_000*p.output
}
