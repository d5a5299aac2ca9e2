package service

import (
	"fmt"
	"sort"
	"strings"

	"github.com/veldt-labs/papyrus/internal/domain"
)

// GroupingMode selects how elements are grouped into chunks.
type GroupingMode string

const (
	// GroupByPage produces one chunk per page (the default).
	GroupByPage GroupingMode = "page"
	// GroupByWindow splits each page's combined text into fixed-size
	// rune windows, producing one or more chunks per page.
	GroupByWindow GroupingMode = "window"
)

// AggregatorConfig controls chunk grouping.
type AggregatorConfig struct {
	Mode GroupingMode
	// WindowSize is the maximum chunk size in runes for GroupByWindow.
	WindowSize int
}

// DefaultAggregatorConfig provides sane defaults for aggregation.
func DefaultAggregatorConfig() AggregatorConfig {
	return AggregatorConfig{
		Mode:       GroupByPage,
		WindowSize: 1200,
	}
}

// Aggregator combines summarized elements into chunks. Aggregation is
// deterministic: the same elements in the same order always produce the
// same combined text. Pages with no extractable content yield no chunk.
type Aggregator struct {
	cfg AggregatorConfig
}

func NewAggregator() *Aggregator {
	return NewAggregatorWithConfig(DefaultAggregatorConfig())
}

func NewAggregatorWithConfig(cfg AggregatorConfig) *Aggregator {
	if cfg.Mode == "" {
		cfg.Mode = GroupByPage
	}
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = DefaultAggregatorConfig().WindowSize
	}
	return &Aggregator{cfg: cfg}
}

// Aggregate groups elements by page, preserving extraction order within
// each page, and returns chunks ordered by (page, chunk index).
func (a *Aggregator) Aggregate(elements []domain.Element) []domain.Chunk {
	byPage := make(map[int][]domain.Element)
	pages := make([]int, 0)
	for _, e := range elements {
		if _, seen := byPage[e.PageNumber]; !seen {
			pages = append(pages, e.PageNumber)
		}
		byPage[e.PageNumber] = append(byPage[e.PageNumber], e)
	}
	sort.Ints(pages)

	chunks := make([]domain.Chunk, 0, len(pages))
	for _, page := range pages {
		combined, sourceIDs := combineElements(byPage[page])
		if combined == "" {
			continue
		}

		if a.cfg.Mode == GroupByWindow {
			// Windows slice the page's combined text, so each window
			// chunk carries the whole page group's element IDs.
			for i, window := range splitWindows(combined, a.cfg.WindowSize) {
				chunks = append(chunks, domain.Chunk{
					DocumentID:       byPage[page][0].DocumentID,
					PageNumber:       page,
					ChunkIndex:       i,
					CombinedText:     window,
					SourceElementIDs: sourceIDs,
				})
			}
			continue
		}

		chunks = append(chunks, domain.Chunk{
			DocumentID:       byPage[page][0].DocumentID,
			PageNumber:       page,
			ChunkIndex:       0,
			CombinedText:     combined,
			SourceElementIDs: sourceIDs,
		})
	}

	return chunks
}

// combineElements concatenates derived text in extraction order and
// reports which elements contributed. Image summaries are rendered as
// markdown image references so the synthesizer can attribute figures,
// and tables are fenced so tabular content stays distinguishable from
// body text.
func combineElements(elements []domain.Element) (string, []string) {
	parts := make([]string, 0, len(elements))
	sourceIDs := make([]string, 0, len(elements))
	for _, e := range elements {
		text := strings.TrimSpace(e.DerivedText)
		if text == "" {
			continue
		}
		sourceIDs = append(sourceIDs, e.ID())
		switch e.Kind {
		case domain.ElementKindImage:
			parts = append(parts, fmt.Sprintf("![%s](%s)", text, e.RawContent))
		case domain.ElementKindTable:
			parts = append(parts, "[table]\n"+text)
		default:
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n"), sourceIDs
}

// splitWindows cuts text into rune windows of at most size runes,
// preferring to break at whitespace.
func splitWindows(text string, size int) []string {
	runes := []rune(text)
	if len(runes) <= size {
		return []string{text}
	}

	windows := make([]string, 0, len(runes)/size+1)
	start := 0
	for start < len(runes) {
		end := start + size
		if end >= len(runes) {
			end = len(runes)
		} else {
			cut := end
			for i := end; i > start+size/2; i-- {
				if runes[i-1] == ' ' || runes[i-1] == '\n' {
					cut = i
					break
				}
			}
			end = cut
		}

		window := strings.TrimSpace(string(runes[start:end]))
		if window != "" {
			windows = append(windows, window)
		}
		start = end
	}

	return windows
}
