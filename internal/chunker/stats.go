package chunker

// Stats summarizes the size distribution of one chunking run.
type Stats struct {
	TotalChunks     int     `json:"total_chunks"`
	TotalCharacters int     `json:"total_characters"`
	AverageSize     float64 `json:"average_size"`
	MinSize         int     `json:"min_size"`
	MaxSize         int     `json:"max_size"`
}

// Summarize computes chunk statistics for logging and reporting.
func Summarize(chunks []Chunk) Stats {
	if len(chunks) == 0 {
		return Stats{}
	}

	var s Stats
	s.TotalChunks = len(chunks)
	s.MinSize = len([]rune(chunks[0].Text))
	for _, c := range chunks {
		size := len([]rune(c.Text))
		s.TotalCharacters += size
		if size < s.MinSize {
			s.MinSize = size
		}
		if size > s.MaxSize {
			s.MaxSize = size
		}
	}
	s.AverageSize = float64(s.TotalCharacters) / float64(s.TotalChunks)
	return s
}
