package stages

// The artifact types below are the stage-to-stage data shapes: the output of
// stage N is exactly the input the engine threads into stage N+1.

type StartArtifact struct {
	Workdir string `json:"workdir"`
}

type Document struct {
	Ref  string `json:"ref"`
	Main bool   `json:"main"`
	Text string `json:"text"`
}

type ExtractArtifact struct {
	Documents []Document `json:"documents"`
}

type CombineArtifact struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

type Segment struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

type ScriptArtifact struct {
	Title    string    `json:"title"`
	Segments []Segment `json:"segments"`
}

type AudioArtifact struct {
	Title        string    `json:"title"`
	Segments     []Segment `json:"segments"`
	SegmentPaths []string  `json:"segment_paths"`
}

type MergeArtifact struct {
	Title           string    `json:"title"`
	Segments        []Segment `json:"segments"`
	AudioPath       string    `json:"audio_path"`
	DurationSeconds int       `json:"duration_seconds"`
}
