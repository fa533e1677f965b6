package words

import (
	"bufio"
	"math/rand"
	"os"
	"strings"

	"github.com/djkaif/Scribble-bot/shared/logger"
)

// fallbackWord is returned by Random when the list is empty, so a
// missing or empty wordlist degrades to a playable game instead of
// an error.
const fallbackWord = "apple"

type List struct {
	words []string
}

func NewList(words []string) *List {
	return &List{words: words}
}

// Load reads a wordlist file with one word per line. Blank lines are
// skipped and words are lowercased.
func Load(path string) (*List, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var words []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		word := strings.TrimSpace(scanner.Text())
		if word == "" {
			continue
		}
		words = append(words, strings.ToLower(word))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	logger.Infof("[Words] Loaded %d words from %s", len(words), path)
	return &List{words: words}, nil
}

func (l *List) Len() int {
	return len(l.words)
}

// Random returns a uniformly random word from the list.
func (l *List) Random() string {
	if len(l.words) == 0 {
		return fallbackWord
	}
	return l.words[rand.Intn(len(l.words))]
}

// Mask renders word with only the revealed indices visible, the rest
// replaced by an underscore, all joined by single spaces.
func Mask(word string, revealed map[int]bool) string {
	runes := []rune(word)
	parts := make([]string, len(runes))
	for i, r := range runes {
		if revealed[i] {
			parts[i] = string(r)
		} else {
			parts[i] = "_"
		}
	}
	return strings.Join(parts, " ")
}
