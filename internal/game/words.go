package game

import (
	"bufio"
	"math/rand"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// fallbackWords keeps the server playable when the word file is missing or
// unreadable.
var fallbackWords = []string{"cat", "house", "tree", "car", "sun"}

// WordBank is the static list of candidate secret words, loaded once at
// startup.
type WordBank struct {
	mu    sync.Mutex
	words []string
}

func NewWordBank(words []string) *WordBank {
	if len(words) == 0 {
		words = fallbackWords
	}
	return &WordBank{words: words}
}

// LoadWordBank reads one word per line from path, skipping blank lines. On
// any error it falls back to the built-in list rather than failing startup.
func LoadWordBank(path string, log zerolog.Logger) *WordBank {
	f, err := os.Open(path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("word file unavailable, using fallback list")
		return NewWordBank(nil)
	}
	defer f.Close()

	var words []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		word := strings.TrimSpace(scanner.Text())
		if word != "" {
			words = append(words, word)
		}
	}
	if err := scanner.Err(); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("word file unreadable, using fallback list")
		return NewWordBank(nil)
	}
	log.Info().Int("words", len(words)).Str("path", path).Msg("word bank loaded")
	return NewWordBank(words)
}

// Pick draws a random secret word.
func (w *WordBank) Pick() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.words[rand.Intn(len(w.words))]
}

// Size reports how many words are loaded.
func (w *WordBank) Size() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.words)
}
