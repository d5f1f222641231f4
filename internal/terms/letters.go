package terms

import (
	"encoding/json"
	"errors"
	"io/fs"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"

	appLog "schoolcal/internal/log"
	"schoolcal/internal/model"
)

// PrefsFileName is the fixed storage key of the week-letter preferences.
const PrefsFileName = "schoolcal-week-letters.json"

// PrefStore persists the term name -> first week letter map as a JSON object.
type PrefStore struct {
	fs   afero.Fs
	path string
}

// NewPrefStore keeps preferences in dir on fsys.
func NewPrefStore(fsys afero.Fs, dir string) *PrefStore {
	return &PrefStore{fs: fsys, path: filepath.Join(dir, PrefsFileName)}
}

// Load reads the stored map. A missing or unreadable file yields an empty
// map; values other than "A" and "B" are dropped.
func (p *PrefStore) Load() map[string]model.Letter {
	out := map[string]model.Letter{}
	data, err := afero.ReadFile(p.fs, p.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			appLog.Error("week letters: read failed; starting empty", err, "path", p.path)
		}
		return out
	}
	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		appLog.Error("week letters: corrupt preferences; starting empty", err, "path", p.path)
		return out
	}
	for term, letter := range raw {
		switch model.Letter(letter) {
		case model.LetterA, model.LetterB:
			out[term] = model.Letter(letter)
		}
	}
	return out
}

// Save writes the map.
func (p *PrefStore) Save(m map[string]model.Letter) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	if err := p.fs.MkdirAll(filepath.Dir(p.path), 0o700); err != nil {
		return err
	}
	return afero.WriteFile(p.fs, p.path, data, 0o600)
}

// Letters holds the first-week letter of every term.
type Letters struct {
	mu    sync.RWMutex
	first map[string]model.Letter
	store *PrefStore
}

// NewLetters loads preferences from store. A nil store keeps them in memory.
func NewLetters(store *PrefStore) *Letters {
	l := &Letters{first: map[string]model.Letter{}, store: store}
	if store != nil {
		l.first = store.Load()
	}
	return l
}

// First returns the letter of the first week of a term, A unless toggled.
func (l *Letters) First(termName string) model.Letter {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.firstLocked(termName)
}

// Letter returns the letter of the week at index inside a term. Weeks
// alternate starting from the term's first letter; a blank term name is
// always A.
func (l *Letters) Letter(termName string, index int) model.Letter {
	if termName == "" {
		return model.LetterA
	}
	offset := 0
	if l.First(termName) == model.LetterB {
		offset = 1
	}
	if (index+offset)%2 == 0 {
		return model.LetterA
	}
	return model.LetterB
}

// Toggle flips the first letter of a term and persists the map. The new
// letter takes effect even if persisting fails.
func (l *Letters) Toggle(termName string) (model.Letter, error) {
	if termName == "" {
		return model.LetterA, nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	next := l.firstLocked(termName).Flip()
	l.first[termName] = next
	if l.store == nil {
		return next, nil
	}
	if err := l.store.Save(l.first); err != nil {
		appLog.Error("week letters: save failed", err, "term", termName)
		return next, err
	}
	return next, nil
}

func (l *Letters) firstLocked(termName string) model.Letter {
	if l.first[termName] == model.LetterB {
		return model.LetterB
	}
	return model.LetterA
}
