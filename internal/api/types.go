package api

// RegionDTO is a half-open fixed region in time steps.
type RegionDTO struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// StageDTO configures one generation stage.
type StageDTO struct {
	Iterations  int     `json:"iterations,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
	Filter      string  `json:"filter,omitempty"`
	TopK        int     `json:"top_k,omitempty"`
	TopP        float64 `json:"top_p,omitempty"`
	TypicalMass float64 `json:"typical_mass,omitempty"`
	Curve       string  `json:"curve,omitempty"`
}

// GenerateRequest is the body of POST /v1/generate.
type GenerateRequest struct {
	Steps int   `json:"steps"`
	Seed  int64 `json:"seed,omitempty"`

	// Prompt optionally seeds the grid with token rows [layers][steps].
	Prompt [][]int     `json:"prompt,omitempty"`
	Keep   []RegionDTO `json:"keep,omitempty"`

	Loop      bool `json:"loop,omitempty"`
	LoopWidth int  `json:"loop_width,omitempty"`

	Coarse StageDTO `json:"coarse,omitempty"`
	Fine   StageDTO `json:"fine,omitempty"`

	// IncludeWaveform asks the server to decode and return audio samples.
	IncludeWaveform bool `json:"include_waveform,omitempty"`
}

// StageStatsDTO mirrors vamp.StageStats for the wire.
type StageStatsDTO struct {
	Iterations     int     `json:"iterations"`
	Positions      int     `json:"positions"`
	MeanConfidence float64 `json:"mean_confidence"`
	MinConfidence  float64 `json:"min_confidence"`
	DurationMS     int64   `json:"duration_ms"`
}

// GenerateResponse is the body returned by POST /v1/generate.
type GenerateResponse struct {
	ID        string `json:"id"`
	Object    string `json:"object"`
	CreatedAt int64  `json:"created_at"`

	Layers int `json:"layers"`
	Steps  int `json:"steps"`
	Vocab  int `json:"vocab"`

	Tokens [][]int `json:"tokens"`

	CoarseStats StageStatsDTO `json:"coarse_stats"`
	FineStats   StageStatsDTO `json:"fine_stats"`

	Waveform   []float32 `json:"waveform,omitempty"`
	SampleRate int       `json:"sample_rate,omitempty"`
}

// ErrorBody is the error envelope for all non-2xx responses.
type ErrorBody struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
}

// HealthResponse is the body of GET /v1/healthz.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}
