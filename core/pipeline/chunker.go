package pipeline

import (
	"regexp"
	"strings"

	"github.com/studypal/textbase/model"
)

// Structural marker patterns for 人教版-style textbooks. A unit header starts
// a new unit; a lesson header starts a new lesson within the current unit.
var (
	unitPattern   = regexp.MustCompile(`第[一二三四五六七八九十\d]+单元[^\n]{0,30}`)
	lessonPattern = regexp.MustCompile(`第[一二三四五六七八九十\d]+课[^\n]{0,30}`)
)

// pageSpan maps a rune range of the joined document text back to its page.
type pageSpan struct {
	page  int
	start int
	end   int
}

// joinPages concatenates non-degenerate page texts into a single rune buffer
// and records which rune range belongs to which page. Degenerate pages
// (empty or whitespace-only) are returned as unprocessed.
func joinPages(pages []model.PageBlock) ([]rune, []pageSpan, []int) {
	var (
		buf         []rune
		spans       []pageSpan
		unprocessed []int
	)

	for _, p := range pages {
		text := strings.TrimSpace(p.Text)
		if text == "" {
			unprocessed = append(unprocessed, p.Page)
			continue
		}

		start := len(buf)
		buf = append(buf, []rune(text)...)
		buf = append(buf, '\n')
		spans = append(spans, pageSpan{page: p.Page, start: start, end: len(buf)})
	}

	return buf, spans, unprocessed
}

// pageAt returns the page containing the given rune offset.
func pageAt(spans []pageSpan, offset int) int {
	for _, s := range spans {
		if offset >= s.start && offset < s.end {
			return s.page
		}
	}
	if len(spans) > 0 {
		return spans[len(spans)-1].page
	}
	return 0
}

// windowChunks cuts the rune range [from, to) into fixed-length windows with
// a trailing/leading overlap, appending the resulting chunks.
func windowChunks(buf []rune, spans []pageSpan, from, to int, unit, lesson string, targetChars, overlapChars int, chunks []model.Chunk) []model.Chunk {
	step := targetChars - overlapChars

	for start := from; start < to; start += step {
		end := start + targetChars
		if end > to {
			end = to
		}

		content := strings.TrimSpace(string(buf[start:end]))
		if content != "" {
			chunks = append(chunks, model.Chunk{
				Unit:      unit,
				Lesson:    lesson,
				PageStart: pageAt(spans, start),
				PageEnd:   pageAt(spans, end-1),
				Content:   content,
			})
		}

		if end == to {
			break
		}
	}

	return chunks
}

// normalizeChunkConfig guards against degenerate window parameters.
func normalizeChunkConfig(targetChars, overlapChars int) (int, int) {
	if targetChars <= 0 {
		targetChars = model.DefaultIngestConfig().TargetChars
	}
	if overlapChars < 0 || overlapChars >= targetChars {
		overlapChars = 0
	}
	return targetChars, overlapChars
}

// PageChunker creates a chunker that cuts page-tagged text into fixed-length
// windows with a configurable overlap, attaching the covered page range to
// each chunk. It is the fallback for sources without structural markers.
func PageChunker(targetChars, overlapChars int) ChunkFunc {
	return func(pages []model.PageBlock) ([]model.Chunk, []int) {
		targetChars, overlapChars := normalizeChunkConfig(targetChars, overlapChars)

		buf, spans, unprocessed := joinPages(pages)
		if len(buf) == 0 {
			return nil, unprocessed
		}

		chunks := windowChunks(buf, spans, 0, len(buf), "", "", targetChars, overlapChars, nil)
		for i := range chunks {
			chunks[i].ChunkIndex = i
		}

		return chunks, unprocessed
	}
}

// sectionBoundary is a detected structural marker in the joined text.
type sectionBoundary struct {
	offset int // rune offset of the marker
	unit   string
	lesson string
}

// findBoundaries locates unit and lesson headers in the joined text, in
// document order.
func findBoundaries(buf []rune) []sectionBoundary {
	text := string(buf)

	// Byte offset -> rune offset lookup for regexp match positions.
	runeOffset := make(map[int]int, len(buf))
	byteOffset := 0
	for i, r := range buf {
		runeOffset[byteOffset] = i
		byteOffset += len(string(r))
	}

	var boundaries []sectionBoundary
	for _, m := range unitPattern.FindAllStringIndex(text, -1) {
		boundaries = append(boundaries, sectionBoundary{
			offset: runeOffset[m[0]],
			unit:   strings.TrimSpace(text[m[0]:m[1]]),
		})
	}
	for _, m := range lessonPattern.FindAllStringIndex(text, -1) {
		boundaries = append(boundaries, sectionBoundary{
			offset: runeOffset[m[0]],
			lesson: strings.TrimSpace(text[m[0]:m[1]]),
		})
	}

	// Insertion sort keeps it simple; marker counts are tiny.
	for i := 1; i < len(boundaries); i++ {
		for j := i; j > 0 && boundaries[j].offset < boundaries[j-1].offset; j-- {
			boundaries[j], boundaries[j-1] = boundaries[j-1], boundaries[j]
		}
	}

	return boundaries
}

// StructuredChunker creates a chunker that snaps chunk boundaries to unit and
// lesson headers, attaching the detected labels to each chunk. Text between
// markers is cut with the same fixed-length window as PageChunker; sources
// without any detectable marker degrade to pure windowing.
func StructuredChunker(targetChars, overlapChars int) ChunkFunc {
	return func(pages []model.PageBlock) ([]model.Chunk, []int) {
		targetChars, overlapChars := normalizeChunkConfig(targetChars, overlapChars)

		buf, spans, unprocessed := joinPages(pages)
		if len(buf) == 0 {
			return nil, unprocessed
		}

		boundaries := findBoundaries(buf)
		if len(boundaries) == 0 {
			chunks := windowChunks(buf, spans, 0, len(buf), "", "", targetChars, overlapChars, nil)
			for i := range chunks {
				chunks[i].ChunkIndex = i
			}
			return chunks, unprocessed
		}

		var (
			chunks       []model.Chunk
			unit, lesson string
			sectionStart int
		)

		flush := func(end int) {
			if end > sectionStart {
				chunks = windowChunks(buf, spans, sectionStart, end, unit, lesson, targetChars, overlapChars, chunks)
			}
		}

		for _, b := range boundaries {
			flush(b.offset)
			sectionStart = b.offset

			if b.unit != "" {
				unit = b.unit
				lesson = ""
			} else {
				lesson = b.lesson
			}
		}
		flush(len(buf))

		for i := range chunks {
			chunks[i].ChunkIndex = i
		}

		return chunks, unprocessed
	}
}
